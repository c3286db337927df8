// Package conn abstracts the byte transport a debug session runs over and
// provides the common adapters (TCP, unix domain socket, pty).
//
// The core performs no I/O of its own: every byte it sends goes through
// WriteByte/Flush, every byte it receives the caller obtained from
// ReadByte. Blocking behavior belongs to the transport; a transport that
// cannot block returns ErrWouldBlock and the caller's event loop decides
// when to retry.
package conn

import "errors"

// ErrWouldBlock is returned by ReadByte on a non-blocking transport when
// no data is available.
var ErrWouldBlock = errors.New("transport read would block")

// Conn is one client connection.
type Conn interface {
	// ReadByte returns the next byte from the client. It may block, or
	// return ErrWouldBlock on transports that cannot.
	ReadByte() (byte, error)

	// WriteByte queues one byte towards the client.
	WriteByte(c byte) error

	// Flush pushes queued bytes out.
	Flush() error

	// OnSessionStart is invoked once when a session begins, before any
	// packet is exchanged. Adapters use it to configure the link (e.g.
	// disabling Nagle on TCP).
	OnSessionStart() error
}

package conn

import (
	"bufio"
	"net"
	"time"
)

// TCPConn adapts a net.Conn (TCP or unix domain socket) to the transport
// interface, with buffered reads and writes.
type TCPConn struct {
	c   net.Conn
	rdr *bufio.Reader
	wrt *bufio.Writer
}

// NewTCPConn wraps an established network connection.
func NewTCPConn(c net.Conn) *TCPConn {
	return &TCPConn{
		c:   c,
		rdr: bufio.NewReader(c),
		wrt: bufio.NewWriter(c),
	}
}

func (t *TCPConn) ReadByte() (byte, error) { return t.rdr.ReadByte() }
func (t *TCPConn) WriteByte(c byte) error  { return t.wrt.WriteByte(c) }
func (t *TCPConn) Flush() error            { return t.wrt.Flush() }

// Buffered reports how many bytes are already waiting in the read buffer;
// the server uses it to poll for interrupts without blocking.
func (t *TCPConn) Buffered() int { return t.rdr.Buffered() }

// SetReadDeadline forwards to the underlying connection so callers can
// turn blocking reads into timed polls while the target runs.
func (t *TCPConn) SetReadDeadline(tm time.Time) error { return t.c.SetReadDeadline(tm) }

// OnSessionStart disables Nagle's algorithm: the protocol is made of many
// tiny packets and the extra latency breaks single-step responsiveness.
func (t *TCPConn) OnSessionStart() error {
	if tc, ok := t.c.(*net.TCPConn); ok {
		return tc.SetNoDelay(true)
	}
	return nil
}

// Close closes the underlying connection.
func (t *TCPConn) Close() error { return t.c.Close() }

// Listen accepts a single client on the given TCP address and returns the
// established transport.
func Listen(addr string) (*TCPConn, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	c, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewTCPConn(c), nil
}

// ListenUnix accepts a single client on the given unix domain socket path.
func ListenUnix(path string) (*TCPConn, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	c, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return NewTCPConn(c), nil
}

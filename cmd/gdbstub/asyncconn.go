package main

import (
	"github.com/gdbstub-go/gdbstub/pkg/conn"
)

// asyncConn owns a reader goroutine over a blocking transport, so the
// event loop can both block on the next command while idle and poll for
// interrupt bytes while the target runs. The session core itself stays
// single-threaded; only this adapter is concurrent.
type asyncConn struct {
	inner conn.Conn
	ch    chan byte
	err   error
}

func newAsyncConn(inner conn.Conn) *asyncConn {
	a := &asyncConn{inner: inner, ch: make(chan byte, 4096)}
	go a.reader()
	return a
}

func (a *asyncConn) reader() {
	for {
		b, err := a.inner.ReadByte()
		if err != nil {
			a.err = err
			close(a.ch)
			return
		}
		a.ch <- b
	}
}

// ReadByte blocks until a byte arrives or the transport fails.
func (a *asyncConn) ReadByte() (byte, error) {
	b, ok := <-a.ch
	if !ok {
		return 0, a.err
	}
	return b, nil
}

// TryReadByte returns immediately, reporting whether a byte was waiting.
func (a *asyncConn) TryReadByte() (byte, bool) {
	select {
	case b, ok := <-a.ch:
		if !ok {
			return 0, false
		}
		return b, true
	default:
		return 0, false
	}
}

func (a *asyncConn) WriteByte(c byte) error { return a.inner.WriteByte(c) }
func (a *asyncConn) Flush() error           { return a.inner.Flush() }
func (a *asyncConn) OnSessionStart() error  { return a.inner.OnSessionStart() }

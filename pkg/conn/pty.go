package conn

import (
	"bufio"
	"os"

	"github.com/creack/pty"
)

// PtyConn serves the session over a pseudo-terminal pair, so a client can
// attach with `target remote /dev/pts/N` as if the stub were behind a
// serial line.
type PtyConn struct {
	master *os.File
	name   string
	rdr    *bufio.Reader
	wrt    *bufio.Writer
}

// OpenPty allocates a pty pair and returns the transport bound to the
// master side along with the slave device path to hand to the client.
func OpenPty() (*PtyConn, string, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, "", err
	}
	name := slave.Name()
	// only the client opens the slave side
	slave.Close()
	return &PtyConn{
		master: master,
		name:   name,
		rdr:    bufio.NewReader(master),
		wrt:    bufio.NewWriter(master),
	}, name, nil
}

// Name returns the slave device path.
func (p *PtyConn) Name() string { return p.name }

func (p *PtyConn) ReadByte() (byte, error) { return p.rdr.ReadByte() }
func (p *PtyConn) WriteByte(c byte) error  { return p.wrt.WriteByte(c) }
func (p *PtyConn) Flush() error            { return p.wrt.Flush() }

// Buffered reports how many bytes are waiting in the read buffer.
func (p *PtyConn) Buffered() int { return p.rdr.Buffered() }

// OnSessionStart is a no-op for ptys.
func (p *PtyConn) OnSessionStart() error { return nil }

// Close releases the master side.
func (p *PtyConn) Close() error { return p.master.Close() }

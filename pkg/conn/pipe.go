package conn

// Pipe is an in-memory transport used by tests and by callers that embed
// the stub and the client in one process. Reads never block: when the
// inbound queue is empty ReadByte returns ErrWouldBlock.
type Pipe struct {
	in      []byte
	out     []byte
	flushed []byte
	started bool
}

// NewPipe returns an empty in-memory transport.
func NewPipe() *Pipe { return &Pipe{} }

// Inject queues bytes as if the client had sent them.
func (p *Pipe) Inject(data []byte) { p.in = append(p.in, data...) }

// Output drains and returns everything the stub flushed so far.
func (p *Pipe) Output() []byte {
	out := p.flushed
	p.flushed = nil
	return out
}

// Pending reports whether injected bytes remain unread.
func (p *Pipe) Pending() bool { return len(p.in) > 0 }

// Started reports whether OnSessionStart was invoked.
func (p *Pipe) Started() bool { return p.started }

func (p *Pipe) ReadByte() (byte, error) {
	if len(p.in) == 0 {
		return 0, ErrWouldBlock
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, nil
}

func (p *Pipe) WriteByte(c byte) error {
	p.out = append(p.out, c)
	return nil
}

func (p *Pipe) Flush() error {
	p.flushed = append(p.flushed, p.out...)
	p.out = nil
	return nil
}

func (p *Pipe) OnSessionStart() error {
	p.started = true
	return nil
}

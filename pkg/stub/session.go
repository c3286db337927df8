// Package stub drives a GDB Remote Serial Protocol debugging session for
// a debug target over a byte transport.
//
// The session is an explicit, non-blocking state machine: the caller owns
// the event loop, calls Pump to make progress, runs the target when Pump
// reports a deferred stop reason, and reports stops back with ReportStop.
// The core itself never blocks and performs no I/O beyond the transport
// interface it is handed.
package stub

import (
	"fmt"

	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/conn"
	"github.com/gdbstub-go/gdbstub/pkg/logflags"
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// Event is what Pump (and ReportStop) tell the caller to do next.
type Event int

const (
	// EventContinue: call Pump again.
	EventContinue Event = iota
	// EventNeedsData: block (or poll) on the transport, then call Pump.
	EventNeedsData
	// EventDeferredStopReason: a resume command was dispatched. Drive the
	// target forward, watch the transport through PeekInterrupt, and call
	// ReportStop when the target halts.
	EventDeferredStopReason
	// EventDisconnected: the session is over; see Reason.
	EventDisconnected
)

type sessionState int

const (
	statePreHandshake sessionState = iota
	stateIdle
	stateRunning
	stateDisconnected
)

func (s sessionState) String() string {
	switch s {
	case statePreHandshake:
		return "pre-handshake"
	case stateIdle:
		return "idle"
	case stateRunning:
		return "running"
	case stateDisconnected:
		return "disconnected"
	}
	return "invalid"
}

// Session is one RSP debugging session. It owns the packet buffer and the
// protocol state; the transport and the debug target are borrowed for the
// duration of each call and released in between.
type Session struct {
	buf   *proto.PacketBuf
	state sessionState

	noAck        bool
	multiprocess bool
	noRLE        bool

	caps     *capabilities
	parseSet proto.ParseSet
	ptrBits  int

	curMemTID    common.ThreadID
	curResumeTID common.ThreadID

	interruptPending bool
	reason           DisconnectReason

	log     logflags.Logger
	wireLog logflags.Logger
}

// New creates a session using a freshly allocated packet buffer of the
// default size. Use NewWithBuffer in allocation-constrained environments.
func New() *Session {
	return NewWithBuffer(nil)
}

// NewWithBuffer creates a session around a caller-supplied packet buffer;
// a nil buf allocates proto.DefaultPacketSize bytes. The buffer must hold
// at least 1024 bytes and belongs to the session until it disconnects.
func NewWithBuffer(buf []byte) *Session {
	var pb *proto.PacketBuf
	if buf == nil {
		pb = proto.NewPacketBuf(proto.DefaultPacketSize)
	} else {
		pb = proto.NewPacketBufWith(buf)
	}
	return &Session{
		buf:          pb,
		state:        statePreHandshake,
		curMemTID:    common.SingleThreadID,
		curResumeTID: common.SingleThreadID,
		log:          logflags.StubLogger(),
		wireLog:      logflags.GdbWireLogger(),
	}
}

// SetNoRLE disables run-length compression of responses.
func (s *Session) SetNoRLE(noRLE bool) { s.noRLE = noRLE }

// PacketSize returns the advertised maximum packet size.
func (s *Session) PacketSize() int { return s.buf.Size() }

// Reason returns why the session disconnected; its Kind is DisconnectNone
// while the session is live.
func (s *Session) Reason() DisconnectReason { return s.reason }

// InterruptPending reports whether a GDB Ctrl-C interrupt is waiting to be
// serviced. The caller must stop the target at the next safe point and
// call ReportStop (conventionally with SIGINT).
func (s *Session) InterruptPending() bool { return s.interruptPending }

// PeekInterrupt must be fed every byte that arrives on the transport
// while the target is running, so the 0x03 interrupt byte can be observed
// out of band. It reports whether an interrupt is now pending.
func (s *Session) PeekInterrupt(b byte) bool {
	if b == 0x03 {
		if !s.interruptPending && logflags.Stub() {
			s.log.Debugf("interrupt requested while %v", s.state)
		}
		s.interruptPending = true
	}
	return s.interruptPending
}

// Pump makes one unit of progress: it consumes transport bytes until a
// complete packet is handled, a read would block, or the session state
// changes. It never blocks unless the transport's ReadByte does.
func (s *Session) Pump(c conn.Conn, t target.Target) (Event, error) {
	switch s.state {
	case stateDisconnected:
		return EventDisconnected, nil
	case stateRunning:
		// the caller should be driving the target, not pumping commands
		return EventDeferredStopReason, nil
	}

	if s.caps == nil {
		s.caps = sampleCapabilities(t)
		s.parseSet = s.caps.parseSet()
		s.ptrBits = t.Arch().PtrBits()
		if err := c.OnSessionStart(); err != nil {
			return s.fatal(err)
		}
	}

	for {
		b, err := c.ReadByte()
		if err == conn.ErrWouldBlock {
			return EventNeedsData, nil
		}
		if err != nil {
			return s.fatal(err)
		}

		ev, err := s.buf.Feed(b)
		if err != nil {
			// oversized packet: discard and nack so the client gives up
			// on this command instead of hanging
			s.log.Warnf("dropping packet: %v", err)
			if err := s.nack(c); err != nil {
				return s.fatal(err)
			}
			continue
		}

		switch ev {
		case proto.FrameAck:
			// ack for our previous response; nothing to do
		case proto.FrameNack:
			return s.fatalErr(ErrClientNack)
		case proto.FrameInterrupt:
			// interrupt while stopped: hold it and deliver right after
			// the next resume
			s.interruptPending = true
			return EventContinue, nil
		case proto.FrameBadChecksum:
			if err := s.nack(c); err != nil {
				return s.fatal(err)
			}
		case proto.FramePacket:
			return s.handleFrame(c, t)
		}
	}
}

// ReportStop delivers the target's stop reason to the client. It is the
// (deferred) response to the resume command that returned
// EventDeferredStopReason.
func (s *Session) ReportStop(c conn.Conn, t target.Target, reason target.StopReason) (Event, error) {
	if s.state != stateRunning {
		return EventContinue, fmt.Errorf("ReportStop while %v", s.state)
	}
	s.interruptPending = false

	rw := proto.NewResponseWriter(c, s.noRLE, s.wireLog)
	dr, err := s.writeStopReply(rw, reason)
	if err != nil {
		return s.fatal(err)
	}
	if err := rw.Close(); err != nil {
		return s.fatal(err)
	}

	if dr.Kind != DisconnectNone {
		s.state = stateDisconnected
		s.reason = dr
		return EventDisconnected, nil
	}
	s.state = stateIdle
	return EventContinue, nil
}

func (s *Session) handleFrame(c conn.Conn, t target.Target) (Event, error) {
	if !s.noAck {
		if err := s.ack(c); err != nil {
			return s.fatal(err)
		}
	}

	body, err := s.buf.Body()
	if err != nil {
		s.log.Warnf("undecodable packet: %v", err)
		if err := s.nack(c); err != nil {
			return s.fatal(err)
		}
		return EventContinue, nil
	}
	if logflags.GdbWire() {
		if len(body) > 128 {
			s.wireLog.Debugf("-> $%s...", string(body[:128]))
		} else {
			s.wireLog.Debugf("-> $%s", string(body))
		}
	}

	rw := proto.NewResponseWriter(c, s.noRLE, s.wireLog)

	cmd, err := proto.ParseCommand(body, s.parseSet, s.ptrBits)
	if err != nil {
		// checksum was fine but a recognized command had unparseable
		// fields; answer with EINVAL rather than killing the session
		s.log.Warnf("malformed packet %q: %v", truncate(body), err)
		if err := rw.Errno(22); err != nil {
			return s.fatal(err)
		}
		if err := rw.Close(); err != nil {
			return s.fatal(err)
		}
		return EventContinue, nil
	}

	res, err := s.handleCommand(rw, c, t, cmd)
	if err != nil {
		if code, ok := target.ErrnoOf(err); ok {
			if err := rw.Errno(code); err != nil {
				return s.fatal(err)
			}
			if err := rw.Close(); err != nil {
				return s.fatal(err)
			}
			return EventContinue, nil
		}
		return s.fatalErr(&TargetError{Err: err})
	}

	switch res.status {
	case statusNeedsOK:
		if err := rw.Str("OK"); err != nil {
			return s.fatal(err)
		}
	case statusDeferred:
		s.state = stateRunning
		return EventDeferredStopReason, nil
	}

	if !res.noFlush {
		if err := rw.Close(); err != nil {
			return s.fatal(err)
		}
	}

	if res.status == statusDisconnect {
		s.state = stateDisconnected
		s.reason = res.reason
		return EventDisconnected, nil
	}
	return EventContinue, nil
}

type handlerStatus int

const (
	// statusHandled: the handler wrote its own (possibly empty) reply.
	statusHandled handlerStatus = iota
	// statusNeedsOK: the session writes the canonical OK reply.
	statusNeedsOK
	// statusNoReply: the packet takes no response at all.
	statusNoReply
	// statusDeferred: a resume command; the reply is the stop-event.
	statusDeferred
	// statusDisconnect: final packet of the session.
	statusDisconnect
)

type handlerResult struct {
	status  handlerStatus
	reason  DisconnectReason
	noFlush bool
}

var (
	handled = handlerResult{status: statusHandled}
	needsOK = handlerResult{status: statusNeedsOK}
)

func (s *Session) ack(c conn.Conn) error {
	if err := c.WriteByte('+'); err != nil {
		return err
	}
	return c.Flush()
}

func (s *Session) nack(c conn.Conn) error {
	if s.noAck {
		return nil
	}
	if err := c.WriteByte('-'); err != nil {
		return err
	}
	return c.Flush()
}

func (s *Session) fatal(err error) (Event, error) {
	s.state = stateDisconnected
	s.reason = DisconnectReason{Kind: DisconnectError, Err: err}
	return EventDisconnected, err
}

// fatalErr is fatal like fatal, but the error is delivered through the
// disconnect reason only (the session-level call still succeeded).
func (s *Session) fatalErr(err error) (Event, error) {
	s.state = stateDisconnected
	s.reason = DisconnectReason{Kind: DisconnectError, Err: err}
	return EventDisconnected, nil
}

func truncate(b []byte) string {
	if len(b) > 32 {
		return string(b[:32]) + "..."
	}
	return string(b)
}

package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/conn"
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// consoleOutput streams monitor-command output to the client as a series
// of complete `O<hex>` packets, ahead of the command's final reply.
type consoleOutput struct {
	c       conn.Conn
	session *Session
	err     error
}

func (o *consoleOutput) Write(p []byte) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	rw := proto.NewResponseWriter(o.c, o.session.noRLE, o.session.wireLog)
	if err := rw.Str("O"); err != nil {
		o.err = err
		return 0, err
	}
	if err := rw.HexBuf(p); err != nil {
		o.err = err
		return 0, err
	}
	if err := rw.Close(); err != nil {
		o.err = err
		return 0, err
	}
	return len(p), nil
}

func (s *Session) handleMonitor(rw *proto.ResponseWriter, c conn.Conn, cmd proto.Monitor) (handlerResult, error) {
	out := &consoleOutput{c: c, session: s}
	err := s.caps.monitor.HandleMonitorCmd(cmd.Cmd, out)
	if out.err != nil {
		// a transport failure while streaming output is fatal
		return handled, out.err
	}
	if err != nil {
		return handled, err
	}
	return needsOK, nil
}

var _ target.MonitorOutput = (*consoleOutput)(nil)

func (s *Session) handleSectionOffsets(rw *proto.ResponseWriter) (handlerResult, error) {
	text, data, hasData, err := s.caps.sectionOffs.SectionOffsets()
	if err != nil {
		return handled, err
	}
	if err := rw.Str("Text="); err != nil {
		return handled, err
	}
	if err := rw.Num(text); err != nil {
		return handled, err
	}
	if !hasData {
		return handled, nil
	}
	if err := rw.Str(";Data="); err != nil {
		return handled, err
	}
	if err := rw.Num(data); err != nil {
		return handled, err
	}
	// GDB expects Bss to mirror Data
	if err := rw.Str(";Bss="); err != nil {
		return handled, err
	}
	return handled, rw.Num(data)
}

func (s *Session) handleThreadExtraInfo(rw *proto.ResponseWriter, cmd proto.ThreadExtraInfo) (handlerResult, error) {
	var info [256]byte
	n, err := s.caps.threadExtra.ThreadExtraInfo(cmd.TID, info[:])
	if err != nil {
		return handled, err
	}
	if n > len(info) {
		n = len(info)
	}
	return handled, rw.HexBuf(info[:n])
}

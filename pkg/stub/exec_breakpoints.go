package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

func watchKindOf(t proto.BreakpointType) target.WatchKind {
	switch t {
	case proto.WatchpointRead:
		return target.WatchRead
	case proto.WatchpointAccess:
		return target.WatchAccess
	}
	return target.WatchWrite
}

func (s *Session) handleInsertBreakpoint(cmd proto.InsertBreakpoint) (handlerResult, error) {
	switch cmd.Type {
	case proto.BreakpointSw:
		if err := s.caps.swBreak.AddSwBreakpoint(cmd.Addr, cmd.Kind); err != nil {
			return handled, err
		}
	case proto.BreakpointHw:
		if err := s.caps.hwBreak.AddHwBreakpoint(cmd.Addr, cmd.Kind); err != nil {
			return handled, err
		}
	default:
		// for watchpoints the third packet field is the watched length
		if err := s.caps.watch.AddWatchpoint(cmd.Addr, uint64(cmd.Kind), watchKindOf(cmd.Type)); err != nil {
			return handled, err
		}
	}
	return needsOK, nil
}

func (s *Session) handleRemoveBreakpoint(cmd proto.RemoveBreakpoint) (handlerResult, error) {
	switch cmd.Type {
	case proto.BreakpointSw:
		if err := s.caps.swBreak.RemoveSwBreakpoint(cmd.Addr, cmd.Kind); err != nil {
			return handled, err
		}
	case proto.BreakpointHw:
		if err := s.caps.hwBreak.RemoveHwBreakpoint(cmd.Addr, cmd.Kind); err != nil {
			return handled, err
		}
	default:
		if err := s.caps.watch.RemoveWatchpoint(cmd.Addr, uint64(cmd.Kind), watchKindOf(cmd.Type)); err != nil {
			return handled, err
		}
	}
	return needsOK, nil
}

package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// writeStopReply formats one stop-reply packet from the target's stop
// reason. Reasons that end the process also end the session; the returned
// DisconnectReason is DisconnectNone otherwise.
//
// Reporting a stop reason whose capability group was never declared is a
// target bug and tears the session down.
func (s *Session) writeStopReply(rw *proto.ResponseWriter, reason target.StopReason) (DisconnectReason, error) {
	none := DisconnectReason{}

	threadPrefix := func() error {
		if err := rw.Str("T05thread:"); err != nil {
			return err
		}
		if err := rw.ThreadID(reason.TID, s.multiprocess); err != nil {
			return err
		}
		return rw.Str(";")
	}

	// a breakpoint stop selects the reporting thread for the follow-up
	// register and memory reads
	selectThread := func() {
		s.curMemTID = reason.TID
		s.curResumeTID = reason.TID
	}

	switch reason.Kind {
	case target.StopDoneStep:
		return none, rw.Str("S05")

	case target.StopSignal:
		if err := rw.Str("T"); err != nil {
			return none, err
		}
		if err := rw.HexByte(byte(reason.Sig)); err != nil {
			return none, err
		}
		if err := rw.Str("thread:"); err != nil {
			return none, err
		}
		if err := rw.ThreadID(reason.TID, s.multiprocess); err != nil {
			return none, err
		}
		return none, rw.Str(";")

	case target.StopExited:
		if err := rw.Str("W"); err != nil {
			return none, err
		}
		if err := rw.HexByte(reason.Status); err != nil {
			return none, err
		}
		return DisconnectReason{Kind: DisconnectTargetExited, ExitStatus: reason.Status}, nil

	case target.StopTerminated:
		if err := rw.Str("X"); err != nil {
			return none, err
		}
		if err := rw.HexByte(byte(reason.Sig)); err != nil {
			return none, err
		}
		return DisconnectReason{Kind: DisconnectTargetTerminated, Sig: reason.Sig}, nil

	case target.StopSwBreak:
		if s.caps.swBreak == nil {
			return none, ErrUnsupportedStopReason
		}
		selectThread()
		if err := threadPrefix(); err != nil {
			return none, err
		}
		return none, rw.Str("swbreak:;")

	case target.StopHwBreak:
		if s.caps.hwBreak == nil {
			return none, ErrUnsupportedStopReason
		}
		selectThread()
		if err := threadPrefix(); err != nil {
			return none, err
		}
		return none, rw.Str("hwbreak:;")

	case target.StopWatch:
		if s.caps.watch == nil {
			return none, ErrUnsupportedStopReason
		}
		selectThread()
		if err := threadPrefix(); err != nil {
			return none, err
		}
		kind := "watch:"
		switch reason.Watch {
		case target.WatchRead:
			kind = "rwatch:"
		case target.WatchAccess:
			kind = "awatch:"
		}
		if err := rw.Str(kind); err != nil {
			return none, err
		}
		if err := rw.Num(reason.Addr); err != nil {
			return none, err
		}
		return none, rw.Str(";")

	case target.StopSyscallEntry, target.StopSyscallReturn:
		if s.caps.catchSyscalls == nil {
			return none, ErrUnsupportedStopReason
		}
		if err := threadPrefix(); err != nil {
			return none, err
		}
		field := "syscall_entry:"
		if reason.Kind == target.StopSyscallReturn {
			field = "syscall_return:"
		}
		if err := rw.Str(field); err != nil {
			return none, err
		}
		if err := rw.Num(reason.Syscall); err != nil {
			return none, err
		}
		return none, rw.Str(";")

	case target.StopReplayLogBegin, target.StopReplayLogEnd:
		if s.caps.reverseCont == nil && s.caps.reverseStep == nil {
			return none, ErrUnsupportedStopReason
		}
		if err := rw.Str("T05replaylog:"); err != nil {
			return none, err
		}
		pos := "begin"
		if reason.Kind == target.StopReplayLogEnd {
			pos = "end"
		}
		if err := rw.Str(pos); err != nil {
			return none, err
		}
		return none, rw.Str(";")

	case target.StopFork, target.StopVfork:
		field := "fork:"
		if reason.Kind == target.StopVfork {
			field = "vfork:"
		}
		if err := threadPrefix(); err != nil {
			return none, err
		}
		if err := rw.Str(field); err != nil {
			return none, err
		}
		// the child is always reported multiprocess-shaped
		if err := rw.ThreadID(reason.Child, true); err != nil {
			return none, err
		}
		return none, rw.Str(";")

	case target.StopVforkDone:
		if err := threadPrefix(); err != nil {
			return none, err
		}
		return none, rw.Str("vforkdone:;")

	case target.StopExec:
		if err := threadPrefix(); err != nil {
			return none, err
		}
		if err := rw.Str("exec:"); err != nil {
			return none, err
		}
		if err := rw.HexBuf(reason.ExecPath); err != nil {
			return none, err
		}
		return none, rw.Str(";")
	}

	return none, ErrUnsupportedStopReason
}

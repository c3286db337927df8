package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// handleRun spawns a new process. The new inferior is created stopped, so
// the reply is an immediate stop packet for its first thread.
func (s *Session) handleRun(rw *proto.ResponseWriter, cmd proto.Run, t target.Target) (handlerResult, error) {
	pid, err := s.caps.extended.Run(cmd.Filename, cmd.Args)
	if err != nil {
		return handled, err
	}
	return s.spawnStopReply(rw, t, pid)
}

func (s *Session) handleAttach(rw *proto.ResponseWriter, cmd proto.AttachPid, t target.Target) (handlerResult, error) {
	if err := s.caps.extended.Attach(cmd.PID); err != nil {
		return handled, err
	}
	return s.spawnStopReply(rw, t, cmd.PID)
}

func (s *Session) spawnStopReply(rw *proto.ResponseWriter, t target.Target, pid int) (handlerResult, error) {
	tid := common.ThreadID{PID: pid, TID: 1}
	if found, err := s.firstThreadOf(t, pid); err != nil {
		return handled, err
	} else if found.TID != 0 {
		tid = found
	}
	s.curMemTID = tid
	s.curResumeTID = tid

	if err := rw.Str("T05thread:"); err != nil {
		return handled, err
	}
	if err := rw.ThreadID(tid, s.multiprocess); err != nil {
		return handled, err
	}
	return handled, rw.Str(";")
}

func (s *Session) firstThreadOf(t target.Target, pid int) (common.ThreadID, error) {
	var found common.ThreadID
	err := t.ListThreads(func(tid common.ThreadID) {
		if found.TID == 0 && (pid == 0 || tid.PID == pid) {
			found = tid
		}
	})
	return found, err
}

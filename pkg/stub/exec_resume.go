package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

func (s *Session) handleContQuery(rw *proto.ResponseWriter) (handlerResult, error) {
	// continue is part of the base protocol
	if err := rw.Str("vCont;c;C"); err != nil {
		return handled, err
	}
	if s.caps.singleStep != nil {
		if err := rw.Str(";s;S"); err != nil {
			return handled, err
		}
	}
	if s.caps.rangeStep != nil {
		if err := rw.Str(";r"); err != nil {
			return handled, err
		}
	}
	return handled, nil
}

// handleCont applies a vCont action list (or a translated legacy resume
// packet) and transitions to Running. Threads without an explicit action
// stay stopped.
func (s *Session) handleCont(cmd proto.Cont, t target.Target) (handlerResult, error) {
	ops := s.caps.resume
	if err := ops.ClearResumeActions(); err != nil {
		return handled, err
	}

	all := common.ThreadID{PID: common.IDAll, TID: common.IDAll}
	for _, act := range cmd.Actions {
		tid := act.TID
		switch {
		case cmd.Legacy:
			// a legacy c/s packet resumes the thread previously selected
			// with Hc
			tid = s.curResumeTID
			if tid.TID == common.IDAny {
				tid = all
			}
		case act.Default:
			// an action with no thread-id applies to every thread that
			// has no specific action
			tid = all
		case act.TID.TID == common.IDAny:
			// some GDB versions send thread-id 0 where the protocol calls
			// for -1; treat it as "all threads", for this packet only
			tid = all
		}

		switch act.Kind {
		case proto.ResumeContinue:
			if err := ops.SetContinue(tid, act.Sig); err != nil {
				return handled, err
			}
		case proto.ResumeStep:
			if s.caps.singleStep == nil {
				s.log.Warnf("client sent a step action the stub never advertised")
				return handled, target.Errno(22)
			}
			if tid.TID == common.IDAll {
				// stepping "all threads" is not meaningful
				return handled, target.Errno(22)
			}
			if err := s.caps.singleStep.SetStep(tid, act.Sig); err != nil {
				return handled, err
			}
		case proto.ResumeRangeStep:
			if s.caps.rangeStep == nil || tid.TID == common.IDAll {
				return handled, target.Errno(22)
			}
			if err := s.caps.rangeStep.SetRangeStep(tid, act.Start, act.End); err != nil {
				return handled, err
			}
		case proto.ResumeStop:
			// 't' only exists in non-stop mode
			return handled, target.Errno(22)
		}
	}

	if err := ops.Resume(); err != nil {
		return handled, err
	}
	return handlerResult{status: statusDeferred}, nil
}

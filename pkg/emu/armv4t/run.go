package armv4t

import (
	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/logflags"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// target.ResumeOps

func (e *Emulator) ClearResumeActions() error {
	e.mode = resumeIdle
	return nil
}

func (e *Emulator) SetContinue(tid common.ThreadID, sig common.Signal) error {
	e.mode = resumeContinue
	return nil
}

func (e *Emulator) Resume() error {
	if e.mode == resumeIdle {
		// no action named our only thread; report an immediate trap
		// instead of leaving the client waiting forever
		e.mode = resumeStep
		return nil
	}
	e.stepsTaken = 0
	return nil
}

func (e *Emulator) SupportSingleStep() target.SingleStepOps { return e }
func (e *Emulator) SupportRangeStep() target.RangeStepOps   { return e }

func (e *Emulator) SetStep(tid common.ThreadID, sig common.Signal) error {
	e.mode = resumeStep
	e.stepsTaken = 0
	return nil
}

func (e *Emulator) SetRangeStep(tid common.ThreadID, start, end uint64) error {
	e.mode = resumeRangeStep
	e.rangeLo, e.rangeHi = start, end
	e.stepsTaken = 0
	return nil
}

func (e *Emulator) SupportReverseCont() target.ReverseContOps { return e }
func (e *Emulator) SupportReverseStep() target.ReverseStepOps { return e }

// The replay log is a fiction: reverse execution immediately reports the
// beginning of the log.
func (e *Emulator) ReverseCont() error {
	e.mode = resumeReverse
	return nil
}

func (e *Emulator) ReverseStep() error {
	e.mode = resumeReverse
	return nil
}

// StepInstruction executes one instruction of the armed resume action.
// It returns a stop reason when the action completed (or hit an event),
// nil when execution should keep going. The session's event loop calls it
// repeatedly while watching the transport for interrupts.
func (e *Emulator) StepInstruction() *target.StopReason {
	tid := common.SingleThreadID

	if e.mode == resumeReverse {
		e.mode = resumeIdle
		return &target.StopReason{Kind: target.StopReplayLogBegin, TID: tid}
	}

	pc := e.regs.PC()
	insn := e.readWord(pc)

	switch insn {
	case insnSyscall:
		sysno := uint64(e.regs.R[0])
		e.regs.SetPC(pc + 4)
		if e.catchAll || e.catchFilter[sysno] {
			e.mode = resumeIdle
			return &target.StopReason{Kind: target.StopSyscallEntry, TID: tid, Syscall: sysno}
		}
	case insnExit:
		e.mode = resumeIdle
		status := uint8(e.regs.R[0])
		if logflags.Emu() {
			e.log.Debugf("program exited with status %d", status)
		}
		return &target.StopReason{Kind: target.StopExited, Status: status}
	default:
		if insn&0xff000000 == 0xea000000 {
			// unconditional branch: sign-extended 24-bit word offset,
			// relative to pc+8
			off := int32(insn<<8) >> 8
			e.regs.SetPC(uint32(int64(pc) + 8 + int64(off)*4))
		} else {
			e.regs.SetPC(pc + 4)
		}
	}
	e.stepsTaken++

	newPC := e.regs.PC()
	if e.hwBreaks[newPC] {
		e.mode = resumeIdle
		return &target.StopReason{Kind: target.StopHwBreak, TID: tid}
	}
	if e.swBreaks[newPC] {
		e.mode = resumeIdle
		return &target.StopReason{Kind: target.StopSwBreak, TID: tid}
	}

	switch e.mode {
	case resumeStep:
		e.mode = resumeIdle
		r := target.Stopped(tid)
		return &r
	case resumeRangeStep:
		if uint64(newPC) < e.rangeLo || uint64(newPC) >= e.rangeHi {
			e.mode = resumeIdle
			r := target.Stopped(tid)
			return &r
		}
	}
	return nil
}

// InterruptStop reports the SIGINT stop used after a client interrupt.
func (e *Emulator) InterruptStop() target.StopReason {
	e.mode = resumeIdle
	return target.StopWithSignal(common.SingleThreadID, common.SIGINT)
}

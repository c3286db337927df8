package target

import "github.com/gdbstub-go/gdbstub/pkg/common"

// StopKind enumerates why the target halted.
type StopKind int

const (
	// StopDoneStep reports a completed single-step (a bare SIGTRAP).
	StopDoneStep StopKind = iota
	// StopSignal reports delivery of an arbitrary signal.
	StopSignal
	// StopSwBreak reports a software breakpoint hit.
	StopSwBreak
	// StopHwBreak reports a hardware breakpoint hit.
	StopHwBreak
	// StopWatch reports a watchpoint hit; Addr and Watch are set.
	StopWatch
	// StopExited reports process exit; Status is the exit status.
	StopExited
	// StopTerminated reports process death by signal.
	StopTerminated
	// StopSyscallEntry and StopSyscallReturn report catch-syscall stops;
	// Syscall is set.
	StopSyscallEntry
	StopSyscallReturn
	// StopReplayLogBegin and StopReplayLogEnd report running off either
	// end of the replay log during reverse execution.
	StopReplayLogBegin
	StopReplayLogEnd
	// StopFork, StopVfork, StopVforkDone and StopExec report process
	// lifecycle events; Child or ExecPath is set.
	StopFork
	StopVfork
	StopVforkDone
	StopExec
)

// StopReason is the value a target reports when execution halts. Only the
// fields relevant to Kind are meaningful.
type StopReason struct {
	Kind StopKind
	TID  common.ThreadID

	Sig     common.Signal // StopSignal, StopTerminated
	Status  uint8         // StopExited
	Addr    uint64        // StopWatch
	Watch   WatchKind     // StopWatch
	Syscall uint64        // StopSyscallEntry, StopSyscallReturn

	Child    common.ThreadID // StopFork, StopVfork
	ExecPath []byte          // StopExec
}

// Stopped builds the default "stopped with SIGTRAP" reason for tid.
func Stopped(tid common.ThreadID) StopReason {
	return StopReason{Kind: StopDoneStep, TID: tid}
}

// StopWithSignal builds a signal-delivery stop reason.
func StopWithSignal(tid common.ThreadID, sig common.Signal) StopReason {
	return StopReason{Kind: StopSignal, TID: tid, Sig: sig}
}

// SwBreakHit builds a software-breakpoint stop reason.
func SwBreakHit(tid common.ThreadID) StopReason {
	return StopReason{Kind: StopSwBreak, TID: tid}
}

// HwBreakHit builds a hardware-breakpoint stop reason.
func HwBreakHit(tid common.ThreadID) StopReason {
	return StopReason{Kind: StopHwBreak, TID: tid}
}

// WatchHit builds a watchpoint stop reason.
func WatchHit(tid common.ThreadID, kind WatchKind, addr uint64) StopReason {
	return StopReason{Kind: StopWatch, TID: tid, Watch: kind, Addr: addr}
}

// Exited builds a process-exit stop reason.
func Exited(status uint8) StopReason {
	return StopReason{Kind: StopExited, Status: status}
}

// Terminated builds a killed-by-signal stop reason.
func Terminated(sig common.Signal) StopReason {
	return StopReason{Kind: StopTerminated, Sig: sig}
}

// Package target defines the facade between the protocol core and the
// program under debug: the operations a debug target must implement, the
// optional capability groups it may implement, and the stop reasons it
// reports.
//
// Every optional capability is exposed through a Support* accessor that
// returns nil when the capability is absent. The session samples each
// accessor exactly once when it starts; a target type whose accessor is a
// constant `return nil` lets the compiler discard the corresponding
// handler paths entirely.
package target

import (
	"fmt"

	"github.com/gdbstub-go/gdbstub/pkg/common"
)

// Errno is a non-fatal target error surfaced to the client as `E nn`.
// Any other error returned by a target operation is fatal and tears the
// session down, preserving the original error for the caller.
type Errno uint8

func (e Errno) Error() string { return fmt.Sprintf("target errno %d", uint8(e)) }

// EFault is the errno used for failed memory accesses.
const EFault Errno = 14

// ErrnoOf extracts the wire errno from err.
func ErrnoOf(err error) (uint8, bool) {
	if e, ok := err.(Errno); ok {
		return uint8(e), true
	}
	return 0, false
}

// Target is the debug-target facade. Only the base operations are
// mandatory; everything else is an optional capability group discovered
// through the Support* accessors at session start.
//
// All operations run on the session's goroutine; implementations must not
// retain the byte slices they are handed.
type Target interface {
	// Arch describes the register file and pointer model.
	Arch() Arch

	// ListThreads calls fn for every live thread. Single-threaded targets
	// report exactly common.SingleThreadID.
	ListThreads(fn func(common.ThreadID)) error

	// ReadRegisters fills buf (of Arch().RegistersSize() bytes) with the
	// register file of the given thread, in the architecture's wire order.
	ReadRegisters(tid common.ThreadID, buf []byte) error

	// WriteRegisters replaces the register file of the given thread.
	WriteRegisters(tid common.ThreadID, data []byte) error

	// ReadMemory reads up to len(buf) bytes at addr, returning how many
	// bytes were actually read. Short reads are not errors.
	ReadMemory(tid common.ThreadID, addr uint64, buf []byte) (int, error)

	// WriteMemory writes data at addr.
	WriteMemory(tid common.ThreadID, addr uint64, data []byte) error

	// Optional capability groups. Embed NopExtensions to decline all of
	// them and override individual accessors to opt in.
	SupportResume() ResumeOps
	SupportSingleRegister() SingleRegisterOps
	SupportBreakpoints() BreakpointOps
	SupportExtendedMode() ExtendedModeOps
	SupportHostIO() HostIOOps
	SupportMonitor() MonitorOps
	SupportCatchSyscalls() CatchSyscallsOps
	SupportMemoryMap() MemoryMapOps
	SupportAuxv() AuxvOps
	SupportExecFile() ExecFileOps
	SupportLibraries() LibrariesOps
	SupportSectionOffsets() SectionOffsetsOps
	SupportThreadExtraInfo() ThreadExtraInfoOps
	SupportLLDBRegisterInfo() LLDBRegisterInfoOps
}

// ResumeOps resumes execution. Resumption is two-phase: the session
// records one action per addressed thread, then calls Resume; threads
// without an explicit action stay stopped unless a default continue action
// was recorded. Resume must not block: it only arms the target, and the
// caller then drives execution until a stop reason is reported.
type ResumeOps interface {
	// ClearResumeActions resets all per-thread actions before a new vCont.
	ClearResumeActions() error

	// SetContinue arms thread tid to continue, optionally delivering a
	// signal (0 for none). tid may be common.IDAll in either half.
	SetContinue(tid common.ThreadID, sig common.Signal) error

	// Resume applies the recorded actions.
	Resume() error

	// SupportSingleStep returns nil if the target cannot single-step.
	SupportSingleStep() SingleStepOps
	// SupportRangeStep returns nil if the target cannot range-step.
	SupportRangeStep() RangeStepOps
	// SupportReverseCont returns nil unless replay-log execution backwards
	// is available.
	SupportReverseCont() ReverseContOps
	// SupportReverseStep returns nil unless reverse single-stepping is
	// available.
	SupportReverseStep() ReverseStepOps
}

// SingleStepOps arms one thread to execute a single instruction.
type SingleStepOps interface {
	SetStep(tid common.ThreadID, sig common.Signal) error
}

// RangeStepOps arms one thread to step while PC stays within [start, end).
type RangeStepOps interface {
	SetRangeStep(tid common.ThreadID, start, end uint64) error
}

// ReverseContOps continues execution backwards through a replay log.
type ReverseContOps interface {
	ReverseCont() error
}

// ReverseStepOps steps backwards through a replay log.
type ReverseStepOps interface {
	ReverseStep() error
}

// SingleRegisterOps accesses one register at a time ('p'/'P' packets).
type SingleRegisterOps interface {
	// ReadRegister copies register regnum of thread tid into buf and
	// returns the register size in bytes. Unknown registers return 0.
	ReadRegister(tid common.ThreadID, regnum int, buf []byte) (int, error)
	WriteRegister(tid common.ThreadID, regnum int, data []byte) error
}

// WatchKind is the access mode of a watchpoint.
type WatchKind int

const (
	WatchWrite WatchKind = iota
	WatchRead
	WatchAccess
)

// BreakpointOps groups the three optional breakpoint families.
type BreakpointOps interface {
	SupportSwBreakpoint() SwBreakpointOps
	SupportHwBreakpoint() HwBreakpointOps
	SupportWatchpoint() WatchpointOps
}

// SwBreakpointOps installs trap-instruction breakpoints. kind is the
// architecture-specific breakpoint kind from the packet (for ARM: 2 for
// Thumb, 4 for ARM mode).
type SwBreakpointOps interface {
	AddSwBreakpoint(addr uint64, kind int) error
	RemoveSwBreakpoint(addr uint64, kind int) error
}

// HwBreakpointOps installs hardware breakpoints.
type HwBreakpointOps interface {
	AddHwBreakpoint(addr uint64, kind int) error
	RemoveHwBreakpoint(addr uint64, kind int) error
}

// WatchpointOps installs data watchpoints over [addr, addr+len).
type WatchpointOps interface {
	AddWatchpoint(addr uint64, length uint64, kind WatchKind) error
	RemoveWatchpoint(addr uint64, length uint64, kind WatchKind) error
}

// ExtendedModeOps implements `target extended-remote` process control.
type ExtendedModeOps interface {
	// Run spawns filename with args; a nil filename reruns the previous
	// program. Returns the pid of the new process.
	Run(filename []byte, args [][]byte) (int, error)
	Attach(pid int) error
	// Kill terminates pid (0: the current process). It reports whether
	// the session should stay open afterwards.
	Kill(pid int) (keepSession bool, err error)
	Restart() error
	// QueryAttached reports whether pid was attached to (true) or spawned
	// by the stub (false).
	QueryAttached(pid int) (bool, error)

	SupportConfigureASLR() ConfigureASLROps
	SupportConfigureEnv() ConfigureEnvOps
	SupportConfigureStartupShell() ConfigureStartupShellOps
	SupportConfigureWorkingDir() ConfigureWorkingDirOps
}

// ConfigureASLROps toggles address-space randomization for spawned
// processes.
type ConfigureASLROps interface {
	SetASLR(enable bool) error
}

// ConfigureEnvOps edits the environment of spawned processes.
type ConfigureEnvOps interface {
	SetEnv(key, val []byte) error
	UnsetEnv(key []byte) error
	ResetEnv() error
}

// ConfigureStartupShellOps toggles spawning through a shell.
type ConfigureStartupShellOps interface {
	SetStartupWithShell(enable bool) error
}

// ConfigureWorkingDirOps sets the working directory of spawned processes.
type ConfigureWorkingDirOps interface {
	SetWorkingDir(dir []byte) error
}

// MonitorOutput streams `O` console-output packets back to the client
// while a monitor command runs.
type MonitorOutput interface {
	Write(p []byte) (int, error)
}

// MonitorOps handles qRcmd monitor commands.
type MonitorOps interface {
	// HandleMonitorCmd runs cmd, writing human-readable output to out.
	// A returned Errno produces an `E nn` reply instead of `OK`.
	HandleMonitorCmd(cmd []byte, out MonitorOutput) error
}

// CatchSyscallsOps enables reporting of syscall entry/exit stops.
type CatchSyscallsOps interface {
	// EnableCatchSyscalls restricts catching to the given syscall numbers;
	// a nil filter catches all of them.
	EnableCatchSyscalls(filter []uint64) error
	DisableCatchSyscalls() error
}

// MemoryMapOps serves the memory-map XML object. All the *Ops object
// readers share the qXfer chunk contract: copy up to len(buf) bytes
// starting at offset, report how many were copied and whether data
// remains past the chunk.
type MemoryMapOps interface {
	MemoryMapXML(offset uint64, buf []byte) (int, bool, error)
}

// AuxvOps serves the ELF auxiliary vector.
type AuxvOps interface {
	Auxv(offset uint64, buf []byte) (int, bool, error)
}

// ExecFileOps serves the path of the executable being debugged.
type ExecFileOps interface {
	ExecFile(pid int, offset uint64, buf []byte) (int, bool, error)
}

// LibrariesOps serves the SVR4 library list XML object.
type LibrariesOps interface {
	LibrariesSVR4XML(offset uint64, buf []byte) (int, bool, error)
}

// SectionOffsetsOps reports relocation offsets for qOffsets.
type SectionOffsetsOps interface {
	SectionOffsets() (text, data uint64, hasData bool, err error)
}

// ThreadExtraInfoOps provides the human-readable per-thread description.
type ThreadExtraInfoOps interface {
	// ThreadExtraInfo fills buf with a printable description of tid and
	// returns its length.
	ThreadExtraInfo(tid common.ThreadID, buf []byte) (int, error)
}

// LLDBRegisterInfoOps serves the LLDB qRegisterInfo/qHostInfo packets.
type LLDBRegisterInfoOps interface {
	// HostInfo returns the `key:value;` host description string.
	HostInfo() string
	// RegisterInfo returns the description of register regnum, or false
	// once regnum is past the end of the register file.
	RegisterInfo(regnum int) (string, bool)
}

// NopExtensions declines every optional capability group. Embed it in a
// target and override individual Support* accessors to opt in.
type NopExtensions struct{}

func (NopExtensions) SupportResume() ResumeOps                     { return nil }
func (NopExtensions) SupportSingleRegister() SingleRegisterOps     { return nil }
func (NopExtensions) SupportBreakpoints() BreakpointOps            { return nil }
func (NopExtensions) SupportExtendedMode() ExtendedModeOps         { return nil }
func (NopExtensions) SupportHostIO() HostIOOps                     { return nil }
func (NopExtensions) SupportMonitor() MonitorOps                   { return nil }
func (NopExtensions) SupportCatchSyscalls() CatchSyscallsOps       { return nil }
func (NopExtensions) SupportMemoryMap() MemoryMapOps               { return nil }
func (NopExtensions) SupportAuxv() AuxvOps                         { return nil }
func (NopExtensions) SupportExecFile() ExecFileOps                 { return nil }
func (NopExtensions) SupportLibraries() LibrariesOps               { return nil }
func (NopExtensions) SupportSectionOffsets() SectionOffsetsOps     { return nil }
func (NopExtensions) SupportThreadExtraInfo() ThreadExtraInfoOps   { return nil }
func (NopExtensions) SupportLLDBRegisterInfo() LLDBRegisterInfoOps { return nil }

// NopResumeExtensions declines the optional resume sub-capabilities.
type NopResumeExtensions struct{}

func (NopResumeExtensions) SupportSingleStep() SingleStepOps   { return nil }
func (NopResumeExtensions) SupportRangeStep() RangeStepOps     { return nil }
func (NopResumeExtensions) SupportReverseCont() ReverseContOps { return nil }
func (NopResumeExtensions) SupportReverseStep() ReverseStepOps { return nil }

// NopExtendedModeExtensions declines the optional extended-mode
// sub-capabilities.
type NopExtendedModeExtensions struct{}

func (NopExtendedModeExtensions) SupportConfigureASLR() ConfigureASLROps { return nil }
func (NopExtendedModeExtensions) SupportConfigureEnv() ConfigureEnvOps   { return nil }
func (NopExtendedModeExtensions) SupportConfigureStartupShell() ConfigureStartupShellOps {
	return nil
}
func (NopExtendedModeExtensions) SupportConfigureWorkingDir() ConfigureWorkingDirOps { return nil }

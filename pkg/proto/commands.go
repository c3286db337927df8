package proto

import (
	"github.com/gdbstub-go/gdbstub/pkg/common"
)

// ParseSet selects which protocol-extension families the parser will
// recognize. It is computed once per session from the capability set the
// debug target declares; packets outside the set parse to Unknown and get
// the empty reply.
type ParseSet uint32

const (
	ParseResume ParseSet = 1 << iota
	ParseRangeStep
	ParseReverse
	ParseSwBreak
	ParseHwBreak
	ParseWatchpoints
	ParseSingleRegister
	ParseXPacket
	ParseExtendedMode
	ParseHostIO
	ParseMonitor
	ParseCatchSyscalls
	ParseSectionOffsets
	ParseThreadExtraInfo
	ParseLLDB
	ParseXferFeatures
	ParseXferMemoryMap
	ParseXferExecFile
	ParseXferAuxv
	ParseXferLibraries
)

// Has reports whether every bit of sub is in s.
func (s ParseSet) Has(sub ParseSet) bool { return s&sub == sub }

// Command is one parsed RSP packet. The concrete types below hold either
// integer fields parsed out of the payload or byte slices aliasing the
// packet buffer; none of them may outlive the handler that received them.
type Command interface {
	cmd()
}

// base

// HaltReason is the '?' packet.
type HaltReason struct{}

// ReadRegisters is the 'g' packet.
type ReadRegisters struct{}

// WriteRegisters is the 'G' packet; Data is the decoded register file.
type WriteRegisters struct{ Data []byte }

// ReadMemory is the 'm addr,len' packet.
type ReadMemory struct {
	Addr uint64
	Len  int
}

// WriteMemory is the 'M addr,len:hh...' packet; Data is decoded.
type WriteMemory struct {
	Addr uint64
	Data []byte
}

// BinaryWriteMemory is the 'X addr,len:bb...' packet (binary payload).
type BinaryWriteMemory struct {
	Addr uint64
	Data []byte
}

// BinaryReadMemory is the LLDB 'x addr,len' packet.
type BinaryReadMemory struct {
	Addr uint64
	Len  int
}

// ResumeKind distinguishes the actions of a vCont (and of the legacy
// resume packets, which are translated to single-action vCont forms).
type ResumeKind byte

const (
	ResumeContinue  ResumeKind = 'c'
	ResumeStep      ResumeKind = 's'
	ResumeRangeStep ResumeKind = 'r'
	ResumeStop      ResumeKind = 't'
)

// ResumeAction is one action of a vCont packet.
type ResumeAction struct {
	Kind    ResumeKind
	Sig     common.Signal // 0 when no signal was attached
	Start   uint64        // range-step bounds, [Start, End)
	End     uint64
	TID     common.ThreadID
	HasTID  bool
	Default bool // action carried no thread-id: applies to all other threads
}

// Cont is the vCont packet, pre-parsed into its action list. The legacy
// 'c'/'C'/'s'/'S' packets are translated into an equivalent single-action
// Cont before dispatch, with Legacy set so the executor applies the
// thread previously selected with `Hc`.
type Cont struct {
	Actions []ResumeAction
	Legacy  bool
}

// ContQuery is the 'vCont?' packet.
type ContQuery struct{}

// ReverseCont is the 'bc' packet.
type ReverseCont struct{}

// ReverseStep is the 'bs' packet.
type ReverseStep struct{}

// Detach is the 'D' or 'D;pid' packet.
type Detach struct {
	PID    int
	HasPID bool
}

// Kill is the 'k' packet.
type Kill struct{}

// KillPid is the 'vKill;pid' packet.
type KillPid struct{ PID int }

// SetThread is the 'H op thread-id' packet; Op is 'g' or 'c'.
type SetThread struct {
	Op  byte
	TID common.ThreadID
}

// ThreadAlive is the 'T thread-id' packet.
type ThreadAlive struct{ TID common.ThreadID }

// CurrentThread is the 'qC' packet.
type CurrentThread struct{}

// Attached is the 'qAttached' or 'qAttached:pid' packet.
type Attached struct {
	PID    int
	HasPID bool
}

// ThreadListFirst and ThreadListNext are qfThreadInfo / qsThreadInfo.
type ThreadListFirst struct{}
type ThreadListNext struct{}

// Supported is the 'qSupported:...' packet; Features holds the raw
// ';'-separated gdbfeature entries.
type Supported struct{ Features [][]byte }

// StartNoAckMode is the 'QStartNoAckMode' packet.
type StartNoAckMode struct{}

// single-register access

// ReadRegister is the 'p n' packet.
type ReadRegister struct{ Reg int }

// WriteRegister is the 'P n=hh...' packet; Data is decoded.
type WriteRegister struct {
	Reg  int
	Data []byte
}

// breakpoints

// BreakpointType enumerates the five Z/z packet type digits.
type BreakpointType int

const (
	BreakpointSw BreakpointType = iota
	BreakpointHw
	WatchpointWrite
	WatchpointRead
	WatchpointAccess
)

// InsertBreakpoint is the 'Z type,addr,kind' packet. Conditional and
// command lists are accepted on the wire but not interpreted (agent
// bytecode is not supported); HasConds records their presence.
type InsertBreakpoint struct {
	Type     BreakpointType
	Addr     uint64
	Kind     int
	HasConds bool
}

// RemoveBreakpoint is the 'z type,addr,kind' packet.
type RemoveBreakpoint struct {
	Type BreakpointType
	Addr uint64
	Kind int
}

// extended mode

// ExtendedMode is the '!' packet.
type ExtendedMode struct{}

// Run is the 'vRun;filename[;arg]...' packet; fields are decoded in place.
type Run struct {
	Filename []byte // nil: run the last-used program
	Args     [][]byte
}

// AttachPid is the 'vAttach;pid' packet.
type AttachPid struct{ PID int }

// Restart is the 'R XX' packet.
type Restart struct{}

// DisableASLR is the 'QDisableRandomization:val' packet.
type DisableASLR struct{ Disable bool }

// SetEnv is the 'QEnvironmentHexEncoded:KEY=VALUE' packet, decoded.
type SetEnv struct {
	Key []byte
	Val []byte
}

// UnsetEnv is the 'QEnvironmentUnset:KEY' packet, decoded.
type UnsetEnv struct{ Key []byte }

// ResetEnv is the 'QEnvironmentReset' packet.
type ResetEnv struct{}

// StartupWithShell is the 'QStartupWithShell:val' packet.
type StartupWithShell struct{ Enable bool }

// SetWorkingDir is the 'QSetWorkingDir:dir' packet; Dir is decoded and may
// be empty to reset to the default.
type SetWorkingDir struct{ Dir []byte }

// host I/O

type HostOpen struct {
	Path  []byte
	Flags uint64
	Mode  uint64
}

type HostClose struct{ FD int }

type HostPread struct {
	FD     int
	Count  int
	Offset uint64
}

type HostPwrite struct {
	FD     int
	Offset uint64
	Data   []byte
}

type HostFstat struct{ FD int }

type HostUnlink struct{ Path []byte }

type HostReadlink struct{ Path []byte }

// HostSetfs selects the filesystem seen by later vFile operations; PID 0
// selects the stub's own filesystem.
type HostSetfs struct{ PID int }

// qXfer objects

// XferObject enumerates the qXfer read-chunked objects the stub serves.
type XferObject int

const (
	XferFeatures XferObject = iota
	XferMemoryMap
	XferExecFile
	XferAuxv
	XferLibraries
)

// XferRead is a 'qXfer:object:read:annex:offset,length' packet.
type XferRead struct {
	Object XferObject
	Annex  []byte
	Offset uint64
	Length int
}

// misc

// Monitor is the 'qRcmd,...' packet; Cmd is the hex-decoded command text.
type Monitor struct{ Cmd []byte }

// CatchSyscalls is the 'QCatchSyscalls:0|1[;sysno]...' packet. A nil
// Filter with Enable set catches every syscall.
type CatchSyscalls struct {
	Enable bool
	Filter []uint64
}

// SectionOffsets is the 'qOffsets' packet.
type SectionOffsets struct{}

// ThreadExtraInfo is the 'qThreadExtraInfo,thread-id' packet.
type ThreadExtraInfo struct{ TID common.ThreadID }

// HostInfo is the LLDB 'qHostInfo' packet.
type HostInfo struct{}

// RegisterInfo is the LLDB 'qRegisterInfo n' packet.
type RegisterInfo struct{ Reg int }

// Unknown is any packet the parser does not recognize (or recognizes but
// was not declared by the target); it gets the empty reply.
type Unknown struct{ Raw []byte }

func (HaltReason) cmd()        {}
func (ReadRegisters) cmd()     {}
func (WriteRegisters) cmd()    {}
func (ReadMemory) cmd()        {}
func (WriteMemory) cmd()       {}
func (BinaryWriteMemory) cmd() {}
func (BinaryReadMemory) cmd()  {}
func (Cont) cmd()              {}
func (ContQuery) cmd()         {}
func (ReverseCont) cmd()       {}
func (ReverseStep) cmd()       {}
func (Detach) cmd()            {}
func (Kill) cmd()              {}
func (KillPid) cmd()           {}
func (SetThread) cmd()         {}
func (ThreadAlive) cmd()       {}
func (CurrentThread) cmd()     {}
func (Attached) cmd()          {}
func (ThreadListFirst) cmd()   {}
func (ThreadListNext) cmd()    {}
func (Supported) cmd()         {}
func (StartNoAckMode) cmd()    {}
func (ReadRegister) cmd()      {}
func (WriteRegister) cmd()     {}
func (InsertBreakpoint) cmd()  {}
func (RemoveBreakpoint) cmd()  {}
func (ExtendedMode) cmd()      {}
func (Run) cmd()               {}
func (AttachPid) cmd()         {}
func (Restart) cmd()           {}
func (DisableASLR) cmd()       {}
func (SetEnv) cmd()            {}
func (UnsetEnv) cmd()          {}
func (ResetEnv) cmd()          {}
func (StartupWithShell) cmd()  {}
func (SetWorkingDir) cmd()     {}
func (HostOpen) cmd()          {}
func (HostClose) cmd()         {}
func (HostPread) cmd()         {}
func (HostPwrite) cmd()        {}
func (HostFstat) cmd()         {}
func (HostUnlink) cmd()        {}
func (HostReadlink) cmd()      {}
func (HostSetfs) cmd()         {}
func (XferRead) cmd()          {}
func (Monitor) cmd()           {}
func (CatchSyscalls) cmd()     {}
func (SectionOffsets) cmd()    {}
func (ThreadExtraInfo) cmd()   {}
func (HostInfo) cmd()          {}
func (RegisterInfo) cmd()      {}
func (Unknown) cmd()           {}

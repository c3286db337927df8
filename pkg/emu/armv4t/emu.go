// Package armv4t is the example debug target: a deliberately small ARMv4T
// pseudo-machine that implements every capability group of the target
// facade except the SVR4 library list (SupportLibraries returns nil), so a
// stock GDB client can exercise nearly the whole stub against it.
//
// The machine is not a real emulator: instructions advance the program
// counter word by word, SVC words raise syscall and exit events, and
// everything else is faithful bookkeeping (registers, sparse memory,
// breakpoints, watchpoints, host I/O in a sandbox directory).
package armv4t

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/gdbstub-go/gdbstub/pkg/arch/arm"
	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/logflags"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// EntryPoint is where demo programs load and start.
const EntryPoint = 0x55550000

const pageSize = 4096

// svc #0 raises a syscall event, svc #1 exits with the status in r0
const (
	insnSyscall = 0xef000000
	insnExit    = 0xef000001
)

type watchpoint struct {
	addr uint64
	len  uint64
	kind target.WatchKind
}

type resumeMode int

const (
	resumeIdle resumeMode = iota
	resumeContinue
	resumeStep
	resumeRangeStep
	resumeReverse
)

// Emulator is the example machine. It is single-threaded; the one thread
// is common.SingleThreadID.
type Emulator struct {
	regs arm.Regs
	mem  map[uint32]*[pageSize]byte

	swBreaks map[uint32]bool
	hwBreaks map[uint32]bool
	watches  []watchpoint

	mode       resumeMode
	rangeLo    uint64
	rangeHi    uint64
	stepsTaken int

	catchAll    bool
	catchFilter map[uint64]bool

	execPath string

	hio      *hostIO
	monitors *monitorRegistry
	decode   *lru.Cache

	env       map[string]string
	cwd       string
	aslr      bool
	withShell bool

	log logflags.Logger
}

// New creates an emulator with empty memory. hostRoot is the sandbox
// directory host-I/O operations are confined to; "" disables host I/O.
func New(hostRoot string) *Emulator {
	decode, _ := lru.New(256)
	e := &Emulator{
		mem:      make(map[uint32]*[pageSize]byte),
		swBreaks: make(map[uint32]bool),
		hwBreaks: make(map[uint32]bool),
		env:      make(map[string]string),
		decode:   decode,
		aslr:     true,
		execPath: "/bin/demo",
		log:      logflags.EmuLogger(),
	}
	if hostRoot != "" {
		e.hio = newHostIO(hostRoot)
	}
	e.monitors = newMonitorRegistry(e)
	e.regs.SetPC(EntryPoint)
	e.regs.R[arm.RegSP] = EntryPoint + 0x10000
	return e
}

// LoadDemo seeds memory with a tiny endless program at the entry point.
func (e *Emulator) LoadDemo() {
	prog := []uint32{
		0xe52db004, // str fp, [sp, #-4]!
		0xe28db000, // add fp, sp, #0
		0xe3a00000, // mov r0, #0
		0xe2800001, // add r0, r0, #1
		insnSyscall,
		0xeafffffc, // b back to the add
	}
	for i, w := range prog {
		e.writeWord(EntryPoint+uint32(i*4), w)
	}
}

func (e *Emulator) page(addr uint32) *[pageSize]byte {
	base := addr &^ (pageSize - 1)
	p := e.mem[base]
	if p == nil {
		p = new([pageSize]byte)
		e.mem[base] = p
	}
	return p
}

func (e *Emulator) readByte(addr uint32) byte {
	base := addr &^ (pageSize - 1)
	if p := e.mem[base]; p != nil {
		return p[addr-base]
	}
	return 0
}

func (e *Emulator) writeByte(addr uint32, b byte) {
	p := e.page(addr)
	p[addr&(pageSize-1)] = b
}

func (e *Emulator) readWord(addr uint32) uint32 {
	var w uint32
	for i := uint32(0); i < 4; i++ {
		w |= uint32(e.readByte(addr+i)) << (8 * i)
	}
	return w
}

func (e *Emulator) writeWord(addr uint32, w uint32) {
	for i := uint32(0); i < 4; i++ {
		e.writeByte(addr+i, byte(w>>(8*i)))
	}
}

// target.Target implementation (base operations)

func (e *Emulator) Arch() target.Arch { return arm.ARMv4T{} }

func (e *Emulator) ListThreads(fn func(common.ThreadID)) error {
	fn(common.SingleThreadID)
	return nil
}

func (e *Emulator) ReadRegisters(tid common.ThreadID, buf []byte) error {
	e.regs.Encode(buf)
	return nil
}

func (e *Emulator) WriteRegisters(tid common.ThreadID, data []byte) error {
	if err := e.regs.Decode(data); err != nil {
		return target.Errno(22)
	}
	return nil
}

func (e *Emulator) ReadMemory(tid common.ThreadID, addr uint64, buf []byte) (int, error) {
	if addr > 0xffffffff {
		return 0, target.EFault
	}
	for i := range buf {
		buf[i] = e.readByte(uint32(addr) + uint32(i))
	}
	return len(buf), nil
}

func (e *Emulator) WriteMemory(tid common.ThreadID, addr uint64, data []byte) error {
	if addr > 0xffffffff {
		return target.EFault
	}
	for i, b := range data {
		e.writeByte(uint32(addr)+uint32(i), b)
	}
	return nil
}

// capability accessors

func (e *Emulator) SupportResume() target.ResumeOps                 { return e }
func (e *Emulator) SupportSingleRegister() target.SingleRegisterOps { return e }
func (e *Emulator) SupportBreakpoints() target.BreakpointOps        { return e }
func (e *Emulator) SupportExtendedMode() target.ExtendedModeOps     { return e }
func (e *Emulator) SupportHostIO() target.HostIOOps {
	if e.hio == nil {
		return nil
	}
	return e.hio
}
func (e *Emulator) SupportMonitor() target.MonitorOps                   { return e.monitors }
func (e *Emulator) SupportCatchSyscalls() target.CatchSyscallsOps       { return e }
func (e *Emulator) SupportMemoryMap() target.MemoryMapOps               { return e }
func (e *Emulator) SupportAuxv() target.AuxvOps                         { return e }
func (e *Emulator) SupportExecFile() target.ExecFileOps                 { return e }
func (e *Emulator) SupportLibraries() target.LibrariesOps               { return nil }
func (e *Emulator) SupportSectionOffsets() target.SectionOffsetsOps     { return e }
func (e *Emulator) SupportThreadExtraInfo() target.ThreadExtraInfoOps   { return e }
func (e *Emulator) SupportLLDBRegisterInfo() target.LLDBRegisterInfoOps { return e }

// single-register access

func (e *Emulator) ReadRegister(tid common.ThreadID, regnum int, buf []byte) (int, error) {
	if regnum < 0 || regnum >= arm.NumRegs || len(buf) < 4 {
		return 0, nil
	}
	v := e.regs.R[regnum]
	for i := 0; i < 4; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return 4, nil
}

func (e *Emulator) WriteRegister(tid common.ThreadID, regnum int, data []byte) error {
	if regnum < 0 || regnum >= arm.NumRegs || len(data) != 4 {
		return target.Errno(22)
	}
	var v uint32
	for i := 0; i < 4; i++ {
		v |= uint32(data[i]) << (8 * i)
	}
	e.regs.R[regnum] = v
	return nil
}

// breakpoints

func (e *Emulator) SupportSwBreakpoint() target.SwBreakpointOps { return e }
func (e *Emulator) SupportHwBreakpoint() target.HwBreakpointOps { return e }
func (e *Emulator) SupportWatchpoint() target.WatchpointOps     { return e }

func validBreakKind(kind int) bool {
	return kind == arm.BreakKindThumb || kind == arm.BreakKindARM
}

func (e *Emulator) AddSwBreakpoint(addr uint64, kind int) error {
	if !validBreakKind(kind) || addr > 0xffffffff {
		return target.Errno(22)
	}
	e.swBreaks[uint32(addr)] = true
	return nil
}

func (e *Emulator) RemoveSwBreakpoint(addr uint64, kind int) error {
	delete(e.swBreaks, uint32(addr))
	return nil
}

func (e *Emulator) AddHwBreakpoint(addr uint64, kind int) error {
	if addr > 0xffffffff {
		return target.Errno(22)
	}
	e.hwBreaks[uint32(addr)] = true
	return nil
}

func (e *Emulator) RemoveHwBreakpoint(addr uint64, kind int) error {
	delete(e.hwBreaks, uint32(addr))
	return nil
}

func (e *Emulator) AddWatchpoint(addr, length uint64, kind target.WatchKind) error {
	e.watches = append(e.watches, watchpoint{addr: addr, len: length, kind: kind})
	return nil
}

func (e *Emulator) RemoveWatchpoint(addr, length uint64, kind target.WatchKind) error {
	for i, w := range e.watches {
		if w.addr == addr && w.len == length && w.kind == kind {
			e.watches = append(e.watches[:i], e.watches[i+1:]...)
			return nil
		}
	}
	return target.Errno(22)
}

// catch-syscalls

func (e *Emulator) EnableCatchSyscalls(filter []uint64) error {
	e.catchAll = filter == nil
	e.catchFilter = nil
	if filter != nil {
		e.catchFilter = make(map[uint64]bool, len(filter))
		for _, n := range filter {
			e.catchFilter[n] = true
		}
	}
	return nil
}

func (e *Emulator) DisableCatchSyscalls() error {
	e.catchAll = false
	e.catchFilter = nil
	return nil
}

func (e *Emulator) String() string {
	return fmt.Sprintf("armv4t emulator pc=%08x", e.regs.PC())
}

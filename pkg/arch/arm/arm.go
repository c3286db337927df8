// Package arm provides the ARMv4T register file used by the example
// emulator: the architecture contract, the wire layout of the 'g' packet,
// and a target.xml description.
package arm

import (
	"encoding/binary"
	"errors"
)

// NumRegs is the number of registers in the core register file:
// r0-r12, sp, lr, pc and cpsr.
const NumRegs = 17

// register indexes into Regs
const (
	RegSP   = 13
	RegLR   = 14
	RegPC   = 15
	RegCPSR = 16
)

// Breakpoint kinds valid in Z0/z0 packets on ARM.
const (
	BreakKindThumb = 2
	BreakKindARM   = 4
)

const targetXML = `<?xml version="1.0"?>` +
	`<!DOCTYPE target SYSTEM "gdb-target.dtd">` +
	`<target version="1.0">` +
	`<architecture>armv4t</architecture>` +
	`<feature name="org.gnu.gdb.arm.core">` +
	`<reg name="r0" bitsize="32"/>` +
	`<reg name="r1" bitsize="32"/>` +
	`<reg name="r2" bitsize="32"/>` +
	`<reg name="r3" bitsize="32"/>` +
	`<reg name="r4" bitsize="32"/>` +
	`<reg name="r5" bitsize="32"/>` +
	`<reg name="r6" bitsize="32"/>` +
	`<reg name="r7" bitsize="32"/>` +
	`<reg name="r8" bitsize="32"/>` +
	`<reg name="r9" bitsize="32"/>` +
	`<reg name="r10" bitsize="32"/>` +
	`<reg name="r11" bitsize="32"/>` +
	`<reg name="r12" bitsize="32"/>` +
	`<reg name="sp" bitsize="32" type="data_ptr"/>` +
	`<reg name="lr" bitsize="32"/>` +
	`<reg name="pc" bitsize="32" type="code_ptr"/>` +
	`<reg name="cpsr" bitsize="32" regnum="25"/>` +
	`</feature></target>`

var regNames = [NumRegs]string{
	"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
	"r8", "r9", "r10", "r11", "r12", "sp", "lr", "pc", "cpsr",
}

// ARMv4T is the architecture descriptor for a little-endian ARMv4T core.
type ARMv4T struct{}

func (ARMv4T) Name() string                { return "armv4t" }
func (ARMv4T) PtrBits() int                { return 32 }
func (ARMv4T) ByteOrder() binary.ByteOrder { return binary.LittleEndian }
func (ARMv4T) RegistersSize() int          { return NumRegs * 4 }
func (ARMv4T) DescriptionXML() string      { return targetXML }
func (ARMv4T) SwBreakKinds() []int         { return []int{BreakKindThumb, BreakKindARM} }

// RegName returns the GDB name of register n, or "".
func RegName(n int) string {
	if n < 0 || n >= NumRegs {
		return ""
	}
	return regNames[n]
}

// Regs is one thread's register file.
type Regs struct {
	R [NumRegs]uint32
}

// PC returns the program counter.
func (r *Regs) PC() uint32 { return r.R[RegPC] }

// SetPC sets the program counter.
func (r *Regs) SetPC(pc uint32) { r.R[RegPC] = pc }

// Encode serializes the register file in 'g' packet order into buf, which
// must hold RegistersSize bytes.
func (r *Regs) Encode(buf []byte) {
	for i, v := range r.R {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
}

var errRegFileSize = errors.New("register file payload has the wrong size")

// Decode replaces the register file from a 'G' packet payload.
func (r *Regs) Decode(data []byte) error {
	if len(data) != NumRegs*4 {
		return errRegFileSize
	}
	for i := range r.R {
		r.R[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return nil
}

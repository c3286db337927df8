package armv4t

import (
	"fmt"

	"github.com/gdbstub-go/gdbstub/pkg/arch/arm"
	"github.com/gdbstub-go/gdbstub/pkg/common"
)

const memoryMapXML = `<?xml version="1.0"?>` +
	`<!DOCTYPE memory-map PUBLIC "+//IDN gnu.org//DTD GDB Memory Map V1.0//EN" "http://sourceware.org/gdb/gdb-memory-map.dtd">` +
	`<memory-map>` +
	`<memory type="ram" start="0x0" length="0x100000000"/>` +
	`</memory-map>`

func chunk(src string, offset uint64, buf []byte) (int, bool, error) {
	if offset >= uint64(len(src)) {
		return 0, false, nil
	}
	n := copy(buf, src[offset:])
	return n, offset+uint64(n) < uint64(len(src)), nil
}

func (e *Emulator) MemoryMapXML(offset uint64, buf []byte) (int, bool, error) {
	return chunk(memoryMapXML, offset, buf)
}

func (e *Emulator) Auxv(offset uint64, buf []byte) (int, bool, error) {
	// AT_ENTRY, AT_PAGESZ, AT_NULL as 32-bit pairs, little-endian
	var auxv [24]byte
	put := func(off int, v uint32) {
		auxv[off] = byte(v)
		auxv[off+1] = byte(v >> 8)
		auxv[off+2] = byte(v >> 16)
		auxv[off+3] = byte(v >> 24)
	}
	put(0, 9) // AT_ENTRY
	put(4, EntryPoint)
	put(8, 6) // AT_PAGESZ
	put(12, pageSize)
	return chunk(string(auxv[:]), offset, buf)
}

func (e *Emulator) ExecFile(pid int, offset uint64, buf []byte) (int, bool, error) {
	return chunk(e.execPath, offset, buf)
}

func (e *Emulator) SectionOffsets() (uint64, uint64, bool, error) {
	return 0, 0, false, nil
}

func (e *Emulator) ThreadExtraInfo(tid common.ThreadID, buf []byte) (int, error) {
	s := fmt.Sprintf("main (pc=%08x)", e.regs.PC())
	return copy(buf, s), nil
}

// LLDB support

func (e *Emulator) HostInfo() string {
	return "triple:armv4t--none-eabi;endian:little;ptrsize:4;"
}

func (e *Emulator) RegisterInfo(regnum int) (string, bool) {
	name := arm.RegName(regnum)
	if name == "" {
		return "", false
	}
	set := "General Purpose Registers"
	return fmt.Sprintf(
		"name:%s;bitsize:32;offset:%d;encoding:uint;format:hex;set:%s;",
		name, regnum*4, set), true
}

package target

import "encoding/binary"

// Arch is the architecture contract a debug target supplies: pointer
// model, byte order, register-file size, and (optionally) a target
// description. Register layouts themselves live with the target; the core
// only moves opaque register files around.
type Arch interface {
	// Name is the GDB architecture name (e.g. "armv4t").
	Name() string
	// PtrBits is the pointer width in bits (max 64).
	PtrBits() int
	// ByteOrder is the memory byte order of the target.
	ByteOrder() binary.ByteOrder
	// RegistersSize is the byte length of the full register file as it
	// appears in 'g'/'G' packets.
	RegistersSize() int
	// DescriptionXML returns the target.xml architecture description, or
	// "" when the architecture does not provide one.
	DescriptionXML() string
	// SwBreakKinds returns the breakpoint kind values valid in Z0/z0
	// packets, or nil to accept any.
	SwBreakKinds() []int
}

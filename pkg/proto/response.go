package proto

import (
	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/logflags"
)

// Writer is the byte sink a ResponseWriter streams into. Transports
// implement it; the core performs no I/O of its own.
type Writer interface {
	WriteByte(c byte) error
	Flush() error
}

const (
	asciiFirstPrint = byte(' ')
	asciiLastPrint  = byte('~')
)

// gdbWireMaxLen bounds how much of a packet the wire logger prints.
const gdbWireMaxLen = 120

// ResponseWriter streams one response packet to the transport, computing
// the outgoing checksum on the fly and run-length compressing the payload.
// It buffers at most one pending run; it never allocates unless wire
// logging is enabled.
type ResponseWriter struct {
	w        Writer
	started  bool
	checksum uint8
	noRLE    bool

	rleChar   byte
	rleRepeat int

	log    logflags.Logger
	logmsg []byte // packet log, only accumulated when the gdbwire flag is set
}

// NewResponseWriter returns a writer for a single response packet.
// Targets that talk to RLE-challenged clients can disable compression.
// log may be nil to suppress wire logging.
func NewResponseWriter(w Writer, noRLE bool, log logflags.Logger) *ResponseWriter {
	return &ResponseWriter{w: w, noRLE: noRLE, log: log}
}

// put emits one raw byte on the wire, opening the packet with '$' first if
// needed and folding the byte into the running checksum.
func (rw *ResponseWriter) put(b byte) error {
	if !rw.started {
		rw.started = true
		if err := rw.w.WriteByte('$'); err != nil {
			return err
		}
	}
	if rw.log != nil && logflags.GdbWire() && len(rw.logmsg) <= gdbWireMaxLen {
		rw.logmsg = append(rw.logmsg, b)
	}
	rw.checksum += b
	return rw.w.WriteByte(b)
}

// runCountByte encodes a total run length as the RLE count byte
// (repeat + 28; the decoder emits count-29 copies after the literal one).
func runCountByte(repeat int) byte {
	return asciiFirstPrint - 4 + byte(repeat)
}

// badRunCount reports count bytes the protocol forbids ('#', '$', '*', '+').
func badRunCount(c byte) bool {
	return c == '#' || c == '$' || c == '*' || c == '+'
}

// write emits one payload byte, coalescing repeats into RLE runs.
func (rw *ResponseWriter) write(b byte) error {
	if rw.noRLE {
		return rw.put(b)
	}
	if b == rw.rleChar && rw.rleRepeat > 0 && int(runCountByte(rw.rleRepeat+1)) <= int(asciiLastPrint) {
		rw.rleRepeat++
		return nil
	}
	if err := rw.flushRun(); err != nil {
		return err
	}
	rw.rleChar = b
	rw.rleRepeat = 1
	return nil
}

// flushRun emits the pending run. Runs of up to three bytes are cheaper
// written out literally; longer runs are compressed, downgrading by one
// byte at a time whenever the count byte would be one of the forbidden
// characters.
func (rw *ResponseWriter) flushRun() error {
	for rw.rleRepeat > 0 {
		switch {
		case rw.rleRepeat <= 3:
			for i := 0; i < rw.rleRepeat; i++ {
				if err := rw.put(rw.rleChar); err != nil {
					return err
				}
			}
			rw.rleRepeat = 0
		case badRunCount(runCountByte(rw.rleRepeat)):
			if err := rw.put(rw.rleChar); err != nil {
				return err
			}
			rw.rleRepeat--
		default:
			if err := rw.put(rw.rleChar); err != nil {
				return err
			}
			if err := rw.put('*'); err != nil {
				return err
			}
			if err := rw.put(runCountByte(rw.rleRepeat)); err != nil {
				return err
			}
			rw.rleRepeat = 0
		}
	}
	return nil
}

// Byte writes a single payload byte.
func (rw *ResponseWriter) Byte(b byte) error { return rw.write(b) }

// Str writes a literal string.
func (rw *ResponseWriter) Str(s string) error {
	for i := 0; i < len(s); i++ {
		if err := rw.write(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// HexByte writes one byte as two lower-case hex digits.
func (rw *ResponseWriter) HexByte(b byte) error {
	if err := rw.write(hexdigit[b>>4]); err != nil {
		return err
	}
	return rw.write(hexdigit[b&0xf])
}

// HexBuf writes a byte slice as a hex string.
func (rw *ResponseWriter) HexBuf(data []byte) error {
	for _, b := range data {
		if err := rw.HexByte(b); err != nil {
			return err
		}
	}
	return nil
}

// Binary writes data using the binary-escape encoding used by 'x' replies
// and host-I/O payloads.
func (rw *ResponseWriter) Binary(data []byte) error {
	for _, b := range data {
		switch b {
		case '#', '$', '}', '*':
			if err := rw.write('}'); err != nil {
				return err
			}
			if err := rw.write(b ^ escapeXor); err != nil {
				return err
			}
		default:
			if err := rw.write(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// Num writes an integer as big-endian hex in the most compact form
// (leading zeros trimmed; zero itself is "00").
func (rw *ResponseWriter) Num(v uint64) error {
	if v == 0 {
		return rw.HexByte(0)
	}
	started := false
	for shift := 56; shift >= 0; shift -= 8 {
		b := byte(v >> uint(shift))
		if !started && b == 0 {
			continue
		}
		started = true
		if err := rw.HexByte(b); err != nil {
			return err
		}
	}
	return nil
}

func (rw *ResponseWriter) writeID(id int) error {
	if id == common.IDAll {
		return rw.Str("-1")
	}
	return rw.Num(uint64(id))
}

// ThreadID writes a thread id, emitting the process half only when the
// session negotiated multiprocess support.
func (rw *ResponseWriter) ThreadID(tid common.ThreadID, multiprocess bool) error {
	if multiprocess {
		if err := rw.Str("p"); err != nil {
			return err
		}
		if err := rw.writeID(tid.PID); err != nil {
			return err
		}
		if err := rw.Str("."); err != nil {
			return err
		}
	}
	return rw.writeID(tid.TID)
}

// Errno writes an `E nn` error reply body.
func (rw *ResponseWriter) Errno(code uint8) error {
	if err := rw.Str("E"); err != nil {
		return err
	}
	return rw.HexByte(code)
}

// Close terminates the packet: pending run, '#', the checksum of
// everything before the '#', then a transport flush.
func (rw *ResponseWriter) Close() error {
	if err := rw.flushRun(); err != nil {
		return err
	}
	ck := rw.checksum
	if rw.log != nil && logflags.GdbWire() {
		if len(rw.logmsg) > gdbWireMaxLen {
			rw.log.Debugf("<- $%s...", string(rw.logmsg[:gdbWireMaxLen]))
		} else {
			rw.log.Debugf("<- $%s#%02x", string(rw.logmsg), ck)
		}
	}
	// the frame trailer is never run-length encoded and the checksum
	// covers only the bytes before the '#'
	if err := rw.put('#'); err != nil {
		return err
	}
	if err := rw.put(hexdigit[ck>>4]); err != nil {
		return err
	}
	if err := rw.put(hexdigit[ck&0xf]); err != nil {
		return err
	}
	return rw.w.Flush()
}

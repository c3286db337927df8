package proto

import (
	"bytes"
	"strings"
	"testing"
)

// sink collects everything a ResponseWriter emits.
type sink struct {
	buf     bytes.Buffer
	flushed bool
}

func (s *sink) WriteByte(c byte) error { return s.buf.WriteByte(c) }
func (s *sink) Flush() error           { s.flushed = true; return nil }

func respond(t *testing.T, noRLE bool, f func(rw *ResponseWriter) error) []byte {
	t.Helper()
	var s sink
	rw := NewResponseWriter(&s, noRLE, nil)
	if err := f(rw); err != nil {
		t.Fatal(err)
	}
	if err := rw.Close(); err != nil {
		t.Fatal(err)
	}
	if !s.flushed {
		t.Fatal("response was not flushed")
	}
	return s.buf.Bytes()
}

// checkFrame validates framing and returns the raw (undecoded) payload.
func checkFrame(t *testing.T, pkt []byte) []byte {
	t.Helper()
	if len(pkt) < 4 || pkt[0] != '$' || pkt[len(pkt)-3] != '#' {
		t.Fatalf("malformed frame %q", pkt)
	}
	payload := pkt[1 : len(pkt)-3]
	sum, err := DecodeUint(pkt[len(pkt)-2:])
	if err != nil || uint8(sum) != Checksum(payload) {
		t.Fatalf("bad checksum on %q (want %02x)", pkt, Checksum(payload))
	}
	return payload
}

func TestResponseEmpty(t *testing.T) {
	pkt := respond(t, false, func(rw *ResponseWriter) error { return nil })
	if string(pkt) != "$#00" {
		t.Errorf("empty response = %q", pkt)
	}
}

func TestResponseOK(t *testing.T) {
	pkt := respond(t, false, func(rw *ResponseWriter) error { return rw.Str("OK") })
	if string(pkt) != "$OK#9a" {
		t.Errorf("OK response = %q", pkt)
	}
}

func TestResponseHex(t *testing.T) {
	pkt := respond(t, true, func(rw *ResponseWriter) error {
		return rw.HexBuf([]byte{0x04, 0xb0, 0x2d, 0xe5})
	})
	if string(pkt) != "$04b02de5#26" {
		t.Errorf("memory read response = %q", pkt)
	}
}

func TestResponseNum(t *testing.T) {
	for _, tc := range []struct {
		in  uint64
		out string
	}{
		{0, "00"},
		{1, "01"},
		{0x1000, "1000"},
		{0x55550000, "55550000"},
	} {
		pkt := respond(t, true, func(rw *ResponseWriter) error { return rw.Num(tc.in) })
		payload := checkFrame(t, pkt)
		if string(payload) != tc.out {
			t.Errorf("Num(%#x) = %q, want %q", tc.in, payload, tc.out)
		}
	}
}

func TestResponseRLE(t *testing.T) {
	for _, tc := range []struct {
		in      string
		decoded string
	}{
		{"abc", "abc"},
		{"aaa", "aaa"},         // runs under 4 stay literal
		{"aaaa", "aaaa"},       // shortest compressible run
		{"aaaaaaa", "aaaaaaa"}, // a run of 7 would use '#' as its count
		{strings.Repeat("x", 10), strings.Repeat("x", 10)},
		{strings.Repeat("0", 97), strings.Repeat("0", 97)},
		{"00000000", "00000000"},
	} {
		pkt := respond(t, false, func(rw *ResponseWriter) error { return rw.Str(tc.in) })
		payload := checkFrame(t, pkt)

		if len(payload) > len(tc.in) {
			t.Errorf("RLE grew %q: %q", tc.in, payload)
		}
		for _, c := range []byte{'#', '$'} {
			if bytes.IndexByte(payload, c) >= 0 {
				t.Errorf("payload %q contains %q", payload, c)
			}
		}

		buf := make([]byte, len(payload), 4096)
		copy(buf, payload)
		decoded, err := decodeInPlace(buf, 4096)
		if err != nil {
			t.Fatalf("decode(%q): %v", payload, err)
		}
		if string(decoded) != tc.decoded {
			t.Errorf("round trip of %q = %q", tc.in, decoded)
		}
	}
}

func TestResponseRLECompresses(t *testing.T) {
	long := strings.Repeat("f", 40)
	pkt := respond(t, false, func(rw *ResponseWriter) error { return rw.Str(long) })
	payload := checkFrame(t, pkt)
	if len(payload) >= 40 {
		t.Errorf("run of 40 was not compressed: %q", payload)
	}
}

func TestResponseBinaryEscape(t *testing.T) {
	data := []byte{'#', '$', '}', '*', 0x00, 'a'}
	pkt := respond(t, true, func(rw *ResponseWriter) error { return rw.Binary(data) })
	payload := checkFrame(t, pkt)

	for _, c := range []byte{'#', '$', '*'} {
		if bytes.IndexByte(payload, c) >= 0 {
			t.Errorf("escaped payload %q contains %q", payload, c)
		}
	}

	buf := make([]byte, len(payload), 4096)
	copy(buf, payload)
	decoded, err := decodeInPlace(buf, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, data) {
		t.Errorf("escape round trip = % x", decoded)
	}
}

func TestResponseThreadID(t *testing.T) {
	pkt := respond(t, true, func(rw *ResponseWriter) error {
		return rw.ThreadID(tid(1, 1), true)
	})
	if string(checkFrame(t, pkt)) != "p01.01" {
		t.Errorf("multiprocess tid = %q", checkFrame(t, pkt))
	}

	pkt = respond(t, true, func(rw *ResponseWriter) error {
		return rw.ThreadID(tid(1, 2), false)
	})
	if string(checkFrame(t, pkt)) != "02" {
		t.Errorf("plain tid = %q", checkFrame(t, pkt))
	}

	pkt = respond(t, true, func(rw *ResponseWriter) error {
		return rw.ThreadID(tid(-1, -1), true)
	})
	if string(checkFrame(t, pkt)) != "p-1.-1" {
		t.Errorf("all-threads tid = %q", checkFrame(t, pkt))
	}
}

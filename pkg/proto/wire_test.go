package proto

import (
	"bytes"
	"testing"
)

func TestDecodeUint(t *testing.T) {
	for _, tc := range []struct {
		in   string
		out  uint64
		fail bool
	}{
		{"0", 0, false},
		{"7f", 0x7f, false},
		{"7F", 0x7f, false},
		{"55550000", 0x55550000, false},
		{"ffffffffffffffff", ^uint64(0), false},
		{"10000000000000000", 0, true},
		{"", 0, true},
		{"12g4", 0, true},
		{"-4", 0, true},
	} {
		v, err := DecodeUint([]byte(tc.in))
		if tc.fail {
			if err == nil {
				t.Errorf("DecodeUint(%q): expected error, got %x", tc.in, v)
			}
			continue
		}
		if err != nil {
			t.Errorf("DecodeUint(%q): %v", tc.in, err)
		} else if v != tc.out {
			t.Errorf("DecodeUint(%q) = %x, want %x", tc.in, v, tc.out)
		}
	}
}

func TestDecodeUintWidth(t *testing.T) {
	if _, err := DecodeUintWidth([]byte("100000000"), 32); err == nil {
		t.Errorf("expected out-of-range error for 33-bit address on 32-bit target")
	}
	if v, err := DecodeUintWidth([]byte("ffffffff"), 32); err != nil || v != 0xffffffff {
		t.Errorf("DecodeUintWidth(ffffffff, 32) = %x, %v", v, err)
	}
	if v, err := DecodeUintWidth([]byte("ffffffffffffffff"), 64); err != nil || v != ^uint64(0) {
		t.Errorf("DecodeUintWidth(max, 64) = %x, %v", v, err)
	}
}

func TestDecodeHexBuf(t *testing.T) {
	buf := []byte("04b02de5")
	out, err := DecodeHexBuf(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, []byte{0x04, 0xb0, 0x2d, 0xe5}) {
		t.Errorf("got % x", out)
	}
	if _, err := DecodeHexBuf([]byte("abc")); err == nil {
		t.Errorf("odd length must fail")
	}
	if _, err := DecodeHexBuf([]byte("zz")); err == nil {
		t.Errorf("non-hex must fail")
	}
}

func decodeHelper(t *testing.T, in string, max int) ([]byte, error) {
	t.Helper()
	buf := make([]byte, len(in), max)
	copy(buf, in)
	return decodeInPlace(buf, max)
}

func TestDecodeInPlaceEscape(t *testing.T) {
	out, err := decodeHelper(t, "ab}\x03cd", 64)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "ab#cd" {
		t.Errorf("got %q", out)
	}

	// escape of the escape character itself
	out, err = decodeHelper(t, "}]", 64)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "}" {
		t.Errorf("got %q", out)
	}

	if _, err := decodeHelper(t, "abc}", 64); err == nil {
		t.Errorf("trailing escape must fail")
	}
}

func TestDecodeInPlaceRLE(t *testing.T) {
	// '!' encodes 33-29 = 4 extra copies
	out, err := decodeHelper(t, "x*!", 64)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "xxxxx" {
		t.Errorf("got %q", out)
	}

	// run repeats the last decoded character, like GDB's own decoder
	out, err = decodeHelper(t, "0* ", 64)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "0000" {
		t.Errorf("got %q", out)
	}

	if _, err := decodeHelper(t, "*!", 64); err == nil {
		t.Errorf("run with no preceding character must fail")
	}
	if _, err := decodeHelper(t, "x*", 64); err == nil {
		t.Errorf("dangling run marker must fail")
	}
	if _, err := decodeHelper(t, "x*~", 8); err != ErrPacketTooLong {
		t.Errorf("oversized expansion must fail with ErrPacketTooLong")
	}
}

func TestDecodeInPlaceMixed(t *testing.T) {
	// an expansion larger than the remaining input exercises the
	// tail-shifting path
	out, err := decodeHelper(t, "a*(tail", 64)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "aaaaaaaaaaaatail" {
		t.Errorf("got %q (len %d)", out, len(out))
	}
}

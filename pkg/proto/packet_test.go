package proto

import (
	"fmt"
	"testing"
)

// frame builds a well-formed wire frame around payload.
func frame(payload string) []byte {
	return []byte(fmt.Sprintf("$%s#%02x", payload, Checksum([]byte(payload))))
}

func feedAll(t *testing.T, p *PacketBuf, data []byte) []FrameEvent {
	t.Helper()
	var events []FrameEvent
	for _, b := range data {
		ev, err := p.Feed(b)
		if err != nil {
			t.Fatalf("Feed(%q): %v", b, err)
		}
		if ev != FrameNone {
			events = append(events, ev)
		}
	}
	return events
}

func TestFramer(t *testing.T) {
	p := NewPacketBuf(1024)

	events := feedAll(t, p, append([]byte("+"), frame("qSupported:multiprocess+")...))
	if len(events) != 2 || events[0] != FrameAck || events[1] != FramePacket {
		t.Fatalf("events = %v", events)
	}
	body, err := p.Body()
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "qSupported:multiprocess+" {
		t.Errorf("body = %q", body)
	}
}

func TestFramerStrayBytes(t *testing.T) {
	p := NewPacketBuf(1024)
	events := feedAll(t, p, []byte("-\x03junk"))
	if len(events) != 2 || events[0] != FrameNack || events[1] != FrameInterrupt {
		t.Fatalf("events = %v", events)
	}
}

func TestFramerBadChecksum(t *testing.T) {
	p := NewPacketBuf(1024)
	events := feedAll(t, p, []byte("$OK#00"))
	if len(events) != 1 || events[0] != FrameBadChecksum {
		t.Fatalf("events = %v", events)
	}
	// the framer must resynchronize afterwards
	events = feedAll(t, p, frame("OK"))
	if len(events) != 1 || events[0] != FramePacket {
		t.Fatalf("events after resync = %v", events)
	}
}

func TestFramerNonHexChecksum(t *testing.T) {
	p := NewPacketBuf(1024)
	events := feedAll(t, p, []byte("$OK#zz"))
	if len(events) != 1 || events[0] != FrameBadChecksum {
		t.Fatalf("events = %v", events)
	}
}

func TestFramerTooLong(t *testing.T) {
	p := NewPacketBuf(1024)
	if _, err := p.Feed('$'); err != nil {
		t.Fatal(err)
	}
	var lastErr error
	for i := 0; i < 2000; i++ {
		_, err := p.Feed('a')
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr != ErrPacketTooLong {
		t.Fatalf("err = %v", lastErr)
	}
}

func TestFramerInterruptInsidePacketIsPayload(t *testing.T) {
	// 0x03 is only an interrupt outside a packet; inside a binary payload
	// it travels as a plain byte ('#' travels escaped, as "}\x03")
	p := NewPacketBuf(1024)
	payload := "M0,2:}\x03\x03"
	events := feedAll(t, p, frame(payload))
	if len(events) != 1 || events[0] != FramePacket {
		t.Fatalf("events = %v", events)
	}
	body, err := p.Body()
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "M0,2:#\x03" {
		t.Errorf("body = % x", body)
	}
}

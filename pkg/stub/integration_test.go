package stub_test

import (
	"strings"
	"testing"

	"github.com/gdbstub-go/gdbstub/pkg/conn"
	"github.com/gdbstub-go/gdbstub/pkg/emu/armv4t"
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/stub"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// gdbClient drives a session against the example emulator the way the
// server binary does, packet by packet.
type gdbClient struct {
	t    *testing.T
	sess *stub.Session
	pipe *conn.Pipe
	emu  *armv4t.Emulator
}

func newGdbClient(t *testing.T) *gdbClient {
	sess := stub.New()
	// keep expected payloads literal
	sess.SetNoRLE(true)
	return &gdbClient{
		t:    t,
		sess: sess,
		pipe: conn.NewPipe(),
		emu:  armv4t.New(""),
	}
}

func hexByte(b uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[b>>4], digits[b&0xf]})
}

func (g *gdbClient) frame(payload string) []byte {
	return []byte("$" + payload + "#" + hexByte(proto.Checksum([]byte(payload))))
}

func (g *gdbClient) runEmulator() target.StopReason {
	for i := 0; i < 100000; i++ {
		if stop := g.emu.StepInstruction(); stop != nil {
			return *stop
		}
	}
	g.t.Fatal("emulator never stopped")
	return target.StopReason{}
}

// send injects one command and pumps until the session wants more data,
// driving the emulator through any deferred stop. Returns all output.
func (g *gdbClient) send(payload string) string {
	g.t.Helper()
	g.pipe.Inject(g.frame(payload))
	var out strings.Builder
	for {
		ev, err := g.sess.Pump(g.pipe, g.emu)
		if err != nil {
			g.t.Fatalf("Pump: %v", err)
		}
		out.Write(g.pipe.Output())
		switch ev {
		case stub.EventContinue:
		case stub.EventNeedsData, stub.EventDisconnected:
			return out.String()
		case stub.EventDeferredStopReason:
			stopReason := g.runEmulator()
			if _, err := g.sess.ReportStop(g.pipe, g.emu, stopReason); err != nil {
				g.t.Fatalf("ReportStop: %v", err)
			}
			out.Write(g.pipe.Output())
		}
	}
}

// payloads extracts the decoded payloads of every packet in out.
func payloads(t *testing.T, out string) []string {
	t.Helper()
	var res []string
	for {
		start := strings.IndexByte(out, '$')
		if start < 0 {
			return res
		}
		end := strings.IndexByte(out[start:], '#')
		if end < 0 || start+end+3 > len(out) {
			t.Fatalf("truncated packet in %q", out)
		}
		res = append(res, out[start+1:start+end])
		out = out[start+end+3:]
	}
}

func TestEmulatorSession(t *testing.T) {
	g := newGdbClient(t)
	g.emu.LoadDemo()

	// handshake
	out := g.send("qSupported:multiprocess+;swbreak+;hwbreak+")
	for _, want := range []string{
		"multiprocess+", "swbreak+", "hwbreak+", "ReverseContinue+", "ReverseStep+",
		"QStartNoAckMode+", "qXfer:features:read+", "qXfer:memory-map:read+",
		"QDisableRandomization+", "QEnvironmentHexEncoded+",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("advertisement lacks %s: %q", want, out)
		}
	}

	if out := g.send("QStartNoAckMode"); !strings.Contains(out, "OK") {
		t.Fatalf("QStartNoAckMode = %q", out)
	}

	// halt reason mentions the single thread
	if out := g.send("?"); !strings.Contains(out, "T05thread:p01.01;") {
		t.Errorf("halt reason = %q", out)
	}

	// extended mode handshake
	if out := g.send("!"); !strings.Contains(out, "OK") {
		t.Errorf("extended mode = %q", out)
	}

	// read the whole register file: 17 32-bit registers
	out = g.send("g")
	regs := payloads(t, out)
	if len(regs) != 1 || len(regs[0]) != 17*4*2 {
		t.Fatalf("g reply = %q", out)
	}

	// sw breakpoint two instructions in, then continue into it
	if out := g.send("Z0,55550008,4"); !strings.Contains(out, "OK") {
		t.Fatalf("Z0 = %q", out)
	}
	out = g.send("vCont;c:p1.1")
	if !strings.Contains(out, "T05thread:p01.01;swbreak:;") {
		t.Fatalf("continue stop = %q", out)
	}

	// pc stopped on the breakpoint
	out = g.send("m55550008,4")
	if ps := payloads(t, out); len(ps) != 1 || ps[0] != "0000a0e3" {
		t.Errorf("memory at breakpoint = %q", out)
	}

	// single step off the breakpoint
	if out := g.send("vCont;s:p1.1"); !strings.Contains(out, "S05") {
		t.Errorf("step stop = %q", out)
	}

	// monitor round trip: an O packet with the hex of "pong\n", then OK
	out = g.send("qRcmd,70696e67")
	ps := payloads(t, out)
	if len(ps) != 2 || ps[0] != "O706f6e670a" || ps[1] != "OK" {
		t.Errorf("monitor = %q", ps)
	}

	// target description is served in chunks
	out = g.send("qXfer:features:read:target.xml:0,20")
	ps = payloads(t, out)
	if len(ps) != 1 || ps[0][0] != 'm' || !strings.Contains(ps[0], "<?xml") {
		t.Errorf("features chunk = %q", ps)
	}

	// detach ends the session
	out = g.send("D")
	if !strings.Contains(out, "OK") {
		t.Errorf("detach = %q", out)
	}
	if g.sess.Reason().Kind != stub.DisconnectClient {
		t.Errorf("reason = %v", g.sess.Reason())
	}
}

func TestEmulatorInterrupt(t *testing.T) {
	g := newGdbClient(t)
	g.emu.LoadDemo()

	g.send("qSupported:multiprocess+")
	g.send("QStartNoAckMode")

	// resume with no breakpoints: the demo program loops forever
	g.pipe.Inject(g.frame("vCont;c"))
	ev, err := g.sess.Pump(g.pipe, g.emu)
	if err != nil {
		t.Fatal(err)
	}
	if ev != stub.EventDeferredStopReason {
		t.Fatalf("event = %v", ev)
	}
	g.pipe.Output()

	// run a while; the client interrupts
	for i := 0; i < 50; i++ {
		if stop := g.emu.StepInstruction(); stop != nil {
			t.Fatalf("unexpected stop %+v", stop)
		}
	}
	if !g.sess.PeekInterrupt(0x03) {
		t.Fatal("interrupt not latched")
	}
	if _, err := g.sess.ReportStop(g.pipe, g.emu, g.emu.InterruptStop()); err != nil {
		t.Fatal(err)
	}
	out := string(g.pipe.Output())
	if !strings.Contains(out, "T02thread:p01.01;") {
		t.Errorf("interrupt stop reply = %q", out)
	}
}

package proto

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/gdbstub-go/gdbstub/pkg/common"
)

func tid(pid, t int) common.ThreadID { return common.ThreadID{PID: pid, TID: t} }

// allParse enables every family.
const allParse = ^ParseSet(0)

func parseOK(t *testing.T, body string, set ParseSet) Command {
	t.Helper()
	buf := []byte(body)
	cmd, err := ParseCommand(buf, set, 64)
	if err != nil {
		t.Fatalf("ParseCommand(%q): %v", body, err)
	}
	return cmd
}

func TestParseThreadID(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out common.ThreadID
	}{
		{"0", tid(0, 0)},
		{"-1", tid(0, -1)},
		{"1f", tid(0, 0x1f)},
		{"p1.1", tid(1, 1)},
		{"p-1.-1", tid(-1, -1)},
		{"p2", tid(2, -1)},
		{"pff.0", tid(255, 0)},
	} {
		got, err := ParseThreadID([]byte(tc.in))
		if err != nil {
			t.Errorf("ParseThreadID(%q): %v", tc.in, err)
		} else if got != tc.out {
			t.Errorf("ParseThreadID(%q) = %+v, want %+v", tc.in, got, tc.out)
		}
	}
	for _, bad := range []string{"", "p", "p.", "zz", "p1.zz", "-2"} {
		if _, err := ParseThreadID([]byte(bad)); err == nil {
			t.Errorf("ParseThreadID(%q): expected error", bad)
		}
	}
}

func TestParseBase(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out Command
	}{
		{"?", HaltReason{}},
		{"g", ReadRegisters{}},
		{"k", Kill{}},
		{"D", Detach{}},
		{"D;1", Detach{PID: 1, HasPID: true}},
		{"qC", CurrentThread{}},
		{"qAttached", Attached{}},
		{"qAttached:10", Attached{PID: 16, HasPID: true}},
		{"qfThreadInfo", ThreadListFirst{}},
		{"qsThreadInfo", ThreadListNext{}},
		{"QStartNoAckMode", StartNoAckMode{}},
		{"m55550000,4", ReadMemory{Addr: 0x55550000, Len: 4}},
		{"x55550000,100", BinaryReadMemory{Addr: 0x55550000, Len: 0x100}},
		{"Hg0", SetThread{Op: 'g', TID: tid(0, 0)}},
		{"Hcp1.1", SetThread{Op: 'c', TID: tid(1, 1)}},
		{"Tp1.1", ThreadAlive{TID: tid(1, 1)}},
		{"p19", ReadRegister{Reg: 0x19}},
		{"!", ExtendedMode{}},
		{"vCont?", ContQuery{}},
		{"bc", ReverseCont{}},
		{"bs", ReverseStep{}},
		{"qOffsets", SectionOffsets{}},
		{"qHostInfo", HostInfo{}},
		{"qRegisterInfo10", RegisterInfo{Reg: 16}},
		{"qThreadExtraInfo,p1.1", ThreadExtraInfo{TID: tid(1, 1)}},
	} {
		got := parseOK(t, tc.in, allParse)
		if !reflect.DeepEqual(got, tc.out) {
			t.Errorf("ParseCommand(%q) = %#v, want %#v", tc.in, got, tc.out)
		}
	}
}

func TestParseMemoryWrite(t *testing.T) {
	cmd := parseOK(t, "M5555000c,2:04b0", allParse)
	m, ok := cmd.(WriteMemory)
	if !ok {
		t.Fatalf("got %#v", cmd)
	}
	if m.Addr != 0x5555000c || !bytes.Equal(m.Data, []byte{0x04, 0xb0}) {
		t.Errorf("M = %+v", m)
	}

	cmd = parseOK(t, "X55550000,2:\x01\x02", allParse)
	x, ok := cmd.(BinaryWriteMemory)
	if !ok {
		t.Fatalf("got %#v", cmd)
	}
	if x.Addr != 0x55550000 || !bytes.Equal(x.Data, []byte{1, 2}) {
		t.Errorf("X = %+v", x)
	}

	if _, err := ParseCommand([]byte("M0,2:04"), allParse, 64); err == nil {
		t.Errorf("length mismatch must be malformed")
	}
}

func TestParseAddressWidth(t *testing.T) {
	if _, err := ParseCommand([]byte("m100000000,4"), allParse, 32); err == nil {
		t.Errorf("33-bit address must not parse on a 32-bit target")
	}
	cmd := parseOK(t, "mffffffff,4", allParse)
	if m := cmd.(ReadMemory); m.Addr != 0xffffffff {
		t.Errorf("m = %+v", m)
	}
}

func TestParseVCont(t *testing.T) {
	cmd := parseOK(t, "vCont;c:p1.1", allParse)
	vc := cmd.(Cont)
	if vc.Legacy || len(vc.Actions) != 1 {
		t.Fatalf("vCont = %+v", vc)
	}
	act := vc.Actions[0]
	if act.Kind != ResumeContinue || !act.HasTID || act.TID != tid(1, 1) {
		t.Errorf("action = %+v", act)
	}

	cmd = parseOK(t, "vCont;Cab:1;s:2;c", allParse)
	vc = cmd.(Cont)
	if len(vc.Actions) != 3 {
		t.Fatalf("vCont = %+v", vc)
	}
	if vc.Actions[0].Kind != ResumeContinue || vc.Actions[0].Sig != 0xab {
		t.Errorf("action 0 = %+v", vc.Actions[0])
	}
	if vc.Actions[1].Kind != ResumeStep || vc.Actions[1].TID != tid(0, 2) {
		t.Errorf("action 1 = %+v", vc.Actions[1])
	}
	if !vc.Actions[2].Default {
		t.Errorf("action 2 = %+v", vc.Actions[2])
	}

	cmd = parseOK(t, "vCont;r1000,1010:p1.1", allParse)
	vc = cmd.(Cont)
	if vc.Actions[0].Kind != ResumeRangeStep || vc.Actions[0].Start != 0x1000 || vc.Actions[0].End != 0x1010 {
		t.Errorf("range action = %+v", vc.Actions[0])
	}

	for _, bad := range []string{"vCont", "vCont;", "vCont;x", "vCont;Czz:1"} {
		if _, err := ParseCommand([]byte(bad), allParse, 64); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestParseLegacyResume(t *testing.T) {
	cmd := parseOK(t, "c", allParse)
	vc := cmd.(Cont)
	if !vc.Legacy || vc.Actions[0].Kind != ResumeContinue {
		t.Errorf("c = %+v", vc)
	}

	cmd = parseOK(t, "C05", allParse)
	vc = cmd.(Cont)
	if vc.Actions[0].Sig != common.SIGTRAP {
		t.Errorf("C05 = %+v", vc)
	}

	cmd = parseOK(t, "s", allParse)
	vc = cmd.(Cont)
	if vc.Actions[0].Kind != ResumeStep {
		t.Errorf("s = %+v", vc)
	}
}

func TestParseBreakpoints(t *testing.T) {
	cmd := parseOK(t, "Z0,55550000,4", allParse)
	z := cmd.(InsertBreakpoint)
	if z.Type != BreakpointSw || z.Addr != 0x55550000 || z.Kind != 4 || z.HasConds {
		t.Errorf("Z0 = %+v", z)
	}

	// conditional lists ride along and are ignored
	cmd = parseOK(t, "Z1,1000,4;X3,220a01", allParse)
	z = cmd.(InsertBreakpoint)
	if z.Type != BreakpointHw || !z.HasConds {
		t.Errorf("Z1 with conds = %+v", z)
	}

	cmd = parseOK(t, "z2,2000,8", allParse)
	rz := cmd.(RemoveBreakpoint)
	if rz.Type != WatchpointWrite || rz.Kind != 8 {
		t.Errorf("z2 = %+v", rz)
	}
}

func TestParseCapabilityGating(t *testing.T) {
	// undeclared families parse to Unknown, which gets the empty reply
	for _, tc := range []struct {
		in   string
		omit ParseSet
	}{
		{"Z0,1000,4", ParseSwBreak},
		{"Z1,1000,4", ParseHwBreak},
		{"Z2,1000,4", ParseWatchpoints},
		{"c", ParseResume},
		{"vCont;c", ParseResume},
		{"bc", ParseReverse},
		{"p10", ParseSingleRegister},
		{"!", ParseExtendedMode},
		{"vRun;3b69", ParseExtendedMode},
		{"vFile:open:2f,0,0", ParseHostIO},
		{"qRcmd,7265677300", ParseMonitor},
		{"qXfer:features:read:target.xml:0,fff", ParseXferFeatures},
		{"qXfer:memory-map:read::0,fff", ParseXferMemoryMap},
		{"qHostInfo", ParseLLDB},
	} {
		buf := []byte(tc.in)
		cmd, err := ParseCommand(buf, allParse&^tc.omit, 64)
		if err != nil {
			t.Errorf("ParseCommand(%q): %v", tc.in, err)
			continue
		}
		if _, ok := cmd.(Unknown); !ok {
			t.Errorf("ParseCommand(%q) without its capability = %#v, want Unknown", tc.in, cmd)
		}
	}
}

func TestParseHostIO(t *testing.T) {
	cmd := parseOK(t, "vFile:open:2f746d702f78,209,1a4", allParse)
	open := cmd.(HostOpen)
	if string(open.Path) != "/tmp/x" || open.Flags != 0x209 || open.Mode != 0x1a4 {
		t.Errorf("open = %+v", open)
	}

	cmd = parseOK(t, "vFile:pread:3,1000,0", allParse)
	pread := cmd.(HostPread)
	if pread.FD != 3 || pread.Count != 0x1000 || pread.Offset != 0 {
		t.Errorf("pread = %+v", pread)
	}

	cmd = parseOK(t, "vFile:pwrite:3,10,abc", allParse)
	pwrite := cmd.(HostPwrite)
	if pwrite.FD != 3 || pwrite.Offset != 0x10 || string(pwrite.Data) != "abc" {
		t.Errorf("pwrite = %+v", pwrite)
	}

	cmd = parseOK(t, "vFile:setfs:0", allParse)
	if setfs := cmd.(HostSetfs); setfs.PID != 0 {
		t.Errorf("setfs = %+v", setfs)
	}
}

func TestParseXfer(t *testing.T) {
	cmd := parseOK(t, "qXfer:features:read:target.xml:0,ffb", allParse)
	x := cmd.(XferRead)
	if x.Object != XferFeatures || string(x.Annex) != "target.xml" || x.Offset != 0 || x.Length != 0xffb {
		t.Errorf("xfer = %+v", x)
	}

	cmd = parseOK(t, "qXfer:memory-map:read::100,200", allParse)
	x = cmd.(XferRead)
	if x.Object != XferMemoryMap || x.Offset != 0x100 || x.Length != 0x200 {
		t.Errorf("xfer = %+v", x)
	}
}

func TestParseRun(t *testing.T) {
	cmd := parseOK(t, "vRun;2f62696e2f6c73;2d6c", allParse)
	run := cmd.(Run)
	if string(run.Filename) != "/bin/ls" || len(run.Args) != 1 || string(run.Args[0]) != "-l" {
		t.Errorf("vRun = %+v", run)
	}

	cmd = parseOK(t, "vRun;", allParse)
	run = cmd.(Run)
	if run.Filename != nil || len(run.Args) != 0 {
		t.Errorf("bare vRun = %+v", run)
	}
}

func TestParseEnv(t *testing.T) {
	// QEnvironmentHexEncoded:PATH=/bin
	cmd := parseOK(t, "QEnvironmentHexEncoded:504154483d2f62696e", allParse)
	env := cmd.(SetEnv)
	if string(env.Key) != "PATH" || string(env.Val) != "/bin" {
		t.Errorf("setenv = %+v", env)
	}
}

func TestParseMonitor(t *testing.T) {
	cmd := parseOK(t, "qRcmd,7265677320616c6c", allParse)
	mon := cmd.(Monitor)
	if string(mon.Cmd) != "regs all" {
		t.Errorf("monitor = %q", mon.Cmd)
	}
}

func TestParseCatchSyscalls(t *testing.T) {
	cmd := parseOK(t, "QCatchSyscalls:1;0;23", allParse)
	cs := cmd.(CatchSyscalls)
	if !cs.Enable || !reflect.DeepEqual(cs.Filter, []uint64{0, 0x23}) {
		t.Errorf("catch = %+v", cs)
	}

	cmd = parseOK(t, "QCatchSyscalls:0", allParse)
	cs = cmd.(CatchSyscalls)
	if cs.Enable || cs.Filter != nil {
		t.Errorf("catch off = %+v", cs)
	}
}

func TestParseUnknown(t *testing.T) {
	cmd := parseOK(t, "vMustReplyEmpty", allParse)
	if _, ok := cmd.(Unknown); !ok {
		t.Errorf("vMustReplyEmpty = %#v", cmd)
	}
}

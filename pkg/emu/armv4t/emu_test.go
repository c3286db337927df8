package armv4t

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

func tid() common.ThreadID { return common.SingleThreadID }

func TestMemoryRoundTrip(t *testing.T) {
	e := New("")
	data := []byte{1, 2, 3, 4, 5}
	if err := e.WriteMemory(tid(), 0x1000, data); err != nil {
		t.Fatal(err)
	}
	// crossing a page boundary
	if err := e.WriteMemory(tid(), 0x1ffe, data); err != nil {
		t.Fatal(err)
	}
	var buf [5]byte
	if _, err := e.ReadMemory(tid(), 0x1ffe, buf[:]); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf[:], data) {
		t.Errorf("memory = % x", buf)
	}
}

func TestStepAdvancesPC(t *testing.T) {
	e := New("")
	e.LoadDemo()

	if err := e.SetStep(tid(), 0); err != nil {
		t.Fatal(err)
	}
	stop := e.StepInstruction()
	if stop == nil || stop.Kind != target.StopDoneStep {
		t.Fatalf("stop = %+v", stop)
	}
	if pc := e.regs.PC(); pc != EntryPoint+4 {
		t.Errorf("pc = %08x", pc)
	}
}

func TestContinueHitsBreakpoint(t *testing.T) {
	e := New("")
	e.LoadDemo()
	if err := e.AddSwBreakpoint(EntryPoint+8, 4); err != nil {
		t.Fatal(err)
	}
	if err := e.SetContinue(tid(), 0); err != nil {
		t.Fatal(err)
	}

	var stop *target.StopReason
	for i := 0; i < 100 && stop == nil; i++ {
		stop = e.StepInstruction()
	}
	if stop == nil || stop.Kind != target.StopSwBreak {
		t.Fatalf("stop = %+v", stop)
	}
	if pc := e.regs.PC(); pc != EntryPoint+8 {
		t.Errorf("pc = %08x", pc)
	}
}

func TestRangeStepLeavesRange(t *testing.T) {
	e := New("")
	e.LoadDemo()
	if err := e.SetRangeStep(tid(), EntryPoint, EntryPoint+8); err != nil {
		t.Fatal(err)
	}
	var stop *target.StopReason
	for i := 0; i < 100 && stop == nil; i++ {
		stop = e.StepInstruction()
	}
	if stop == nil || stop.Kind != target.StopDoneStep {
		t.Fatalf("stop = %+v", stop)
	}
	if pc := e.regs.PC(); pc != EntryPoint+8 {
		t.Errorf("pc = %08x", pc)
	}
}

func TestSyscallCatch(t *testing.T) {
	e := New("")
	e.LoadDemo()
	if err := e.EnableCatchSyscalls(nil); err != nil {
		t.Fatal(err)
	}
	if err := e.SetContinue(tid(), 0); err != nil {
		t.Fatal(err)
	}
	var stop *target.StopReason
	for i := 0; i < 100 && stop == nil; i++ {
		stop = e.StepInstruction()
	}
	if stop == nil || stop.Kind != target.StopSyscallEntry {
		t.Fatalf("stop = %+v", stop)
	}
	if stop.Syscall != 0 {
		t.Errorf("syscall = %d", stop.Syscall)
	}
}

func TestExitInstruction(t *testing.T) {
	e := New("")
	e.writeWord(EntryPoint, 0xe3a00000) // mov r0, #0
	e.writeWord(EntryPoint+4, insnExit)
	e.regs.R[0] = 7
	if err := e.SetContinue(tid(), 0); err != nil {
		t.Fatal(err)
	}
	var stop *target.StopReason
	for i := 0; i < 10 && stop == nil; i++ {
		stop = e.StepInstruction()
	}
	if stop == nil || stop.Kind != target.StopExited {
		t.Fatalf("stop = %+v", stop)
	}
	if stop.Status != 7 {
		t.Errorf("exit status = %d", stop.Status)
	}
}

func TestRegistersEncodeDecode(t *testing.T) {
	e := New("")
	buf := make([]byte, e.Arch().RegistersSize())
	e.regs.R[0] = 0xdeadbeef
	if err := e.ReadRegisters(tid(), buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0xef || buf[3] != 0xde {
		t.Errorf("little-endian encoding broken: % x", buf[:4])
	}

	buf[4] = 0x01
	if err := e.WriteRegisters(tid(), buf); err != nil {
		t.Fatal(err)
	}
	if e.regs.R[1] != 1 {
		t.Errorf("r1 = %x", e.regs.R[1])
	}
}

type monitorSink struct{ bytes.Buffer }

func runMonitor(t *testing.T, e *Emulator, cmd string) string {
	t.Helper()
	var out monitorSink
	if err := e.monitors.HandleMonitorCmd([]byte(cmd), &out); err != nil {
		t.Fatalf("monitor %q: %v", cmd, err)
	}
	return out.String()
}

func TestMonitorCommands(t *testing.T) {
	e := New("")
	e.LoadDemo()

	if out := runMonitor(t, e, "ping"); out != "pong\n" {
		t.Errorf("ping = %q", out)
	}
	if out := runMonitor(t, e, "help"); !strings.Contains(out, "disasm") {
		t.Errorf("help = %q", out)
	}
	if out := runMonitor(t, e, "regs"); !strings.Contains(out, "pc") {
		t.Errorf("regs = %q", out)
	}
	// unambiguous prefixes resolve through the trie
	if out := runMonitor(t, e, "pi"); out != "pong\n" {
		t.Errorf("prefix ping = %q", out)
	}
	if out := runMonitor(t, e, "zzz"); !strings.Contains(out, "unknown command") {
		t.Errorf("unknown = %q", out)
	}
}

func TestMonitorDisasm(t *testing.T) {
	e := New("")
	e.LoadDemo()
	out := runMonitor(t, e, "disasm 0x55550000 2")
	if !strings.Contains(strings.ToLower(out), "str") {
		t.Errorf("disasm = %q", out)
	}
	// second run hits the decode cache
	if again := runMonitor(t, e, "disasm 0x55550000 2"); again != out {
		t.Errorf("cached disasm differs: %q vs %q", again, out)
	}
}

func TestHostIOSandbox(t *testing.T) {
	root, err := ioutil.TempDir("", "gdbstub-hostio")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)
	if err := ioutil.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	e := New(root)
	hio := e.SupportHostIO()
	if hio == nil {
		t.Fatal("host I/O not declared")
	}

	fd, err := hio.SupportOpen().HostOpen([]byte("hello.txt"), target.HostOpenRDONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	var buf [64]byte
	n, err := hio.SupportPread().HostPread(fd, 0, buf[:])
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "hello world" {
		t.Errorf("pread = %q", buf[:n])
	}
	st, err := hio.SupportFstat().HostFstat(fd)
	if err != nil {
		t.Fatal(err)
	}
	if st.Size != 11 {
		t.Errorf("size = %d", st.Size)
	}
	if err := hio.SupportClose().HostClose(fd); err != nil {
		t.Fatal(err)
	}

	// path traversal must not reach outside the sandbox; /etc/passwd
	// exists on the host, root/etc/passwd does not
	if _, err := hio.SupportOpen().HostOpen([]byte("../../etc/passwd"), target.HostOpenRDONLY, 0); err == nil {
		t.Errorf("path traversal escaped the sandbox")
	}
}

func TestExtendedRun(t *testing.T) {
	e := New("")
	pid, err := e.Run([]byte("/bin/demo2"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if pid != 1 {
		t.Errorf("pid = %d", pid)
	}
	if e.execPath != "/bin/demo2" {
		t.Errorf("exec path = %q", e.execPath)
	}
	if pc := e.regs.PC(); pc != EntryPoint {
		t.Errorf("pc after run = %08x", pc)
	}

	var buf [4]byte
	n, more, err := e.ExecFile(1, 0, buf[:])
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || !more || string(buf[:]) != "/bin" {
		t.Errorf("exec-file chunk = %q (n=%d more=%v)", buf, n, more)
	}
}

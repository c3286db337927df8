package armv4t

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"
	"golang.org/x/arch/arm/armasm"

	"github.com/gdbstub-go/gdbstub/pkg/arch/arm"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// monitorRegistry dispatches `monitor` commands. Command names live in a
// trie so unambiguous prefixes work, the way they do in a debugger shell.
type monitorRegistry struct {
	e     *Emulator
	names *trie.Trie
	cmds  map[string]monitorCmd
}

type monitorCmd struct {
	name string
	help string
	run  func(e *Emulator, args []string, out target.MonitorOutput) error
}

func newMonitorRegistry(e *Emulator) *monitorRegistry {
	r := &monitorRegistry{
		e:     e,
		names: trie.New(),
		cmds:  make(map[string]monitorCmd),
	}
	for _, cmd := range []monitorCmd{
		{"help", "list available commands", cmdHelp},
		{"ping", "check that the monitor channel works", cmdPing},
		{"regs", "print the register file", cmdRegs},
		{"disasm", "disasm <addr> <count>: disassemble memory", cmdDisasm},
		{"breakpoints", "list installed breakpoints", cmdBreakpoints},
	} {
		r.cmds[cmd.name] = cmd
		r.names.Add(cmd.name, nil)
	}
	return r
}

// HandleMonitorCmd implements target.MonitorOps.
func (r *monitorRegistry) HandleMonitorCmd(cmd []byte, out target.MonitorOutput) error {
	words, err := argv.Argv(string(cmd), func(s string) (string, error) {
		return "", fmt.Errorf("backtick expansion is not supported")
	}, nil)
	if err != nil || len(words) != 1 || len(words[0]) == 0 {
		fmt.Fprintf(out, "usage: monitor <command> [args]; try 'monitor help'\n")
		return nil
	}
	args := words[0]

	matches := r.names.PrefixSearch(args[0])
	switch {
	case len(matches) == 0:
		fmt.Fprintf(out, "unknown command %q; try 'monitor help'\n", args[0])
		return nil
	case len(matches) > 1:
		sort.Strings(matches)
		fmt.Fprintf(out, "ambiguous command %q: %v\n", args[0], matches)
		return nil
	}
	return r.cmds[matches[0]].run(r.e, args[1:], out)
}

func cmdHelp(e *Emulator, args []string, out target.MonitorOutput) error {
	names := make([]string, 0, len(e.monitors.cmds))
	for name := range e.monitors.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%-12s %s\n", name, e.monitors.cmds[name].help)
	}
	return nil
}

func cmdPing(e *Emulator, args []string, out target.MonitorOutput) error {
	fmt.Fprintf(out, "pong\n")
	return nil
}

func cmdRegs(e *Emulator, args []string, out target.MonitorOutput) error {
	for i := 0; i < arm.NumRegs; i++ {
		fmt.Fprintf(out, "%-4s %08x\n", arm.RegName(i), e.regs.R[i])
	}
	return nil
}

func cmdBreakpoints(e *Emulator, args []string, out target.MonitorOutput) error {
	for addr := range e.swBreaks {
		fmt.Fprintf(out, "sw break at %08x\n", addr)
	}
	for addr := range e.hwBreaks {
		fmt.Fprintf(out, "hw break at %08x\n", addr)
	}
	for _, w := range e.watches {
		fmt.Fprintf(out, "watchpoint at %08x len %d\n", w.addr, w.len)
	}
	return nil
}

func cmdDisasm(e *Emulator, args []string, out target.MonitorOutput) error {
	if len(args) != 2 {
		fmt.Fprintf(out, "usage: disasm <addr> <count>\n")
		return nil
	}
	addr, err1 := strconv.ParseUint(args[0], 0, 32)
	count, err2 := strconv.ParseUint(args[1], 0, 8)
	if err1 != nil || err2 != nil {
		fmt.Fprintf(out, "usage: disasm <addr> <count>\n")
		return nil
	}
	for i := uint64(0); i < count; i++ {
		a := uint32(addr + i*4)
		word := e.readWord(a)
		fmt.Fprintf(out, "%08x  %08x  %s\n", a, word, e.disasmWord(word))
	}
	return nil
}

// disasmWord decodes one ARM instruction word, memoizing decodes: demo
// programs are tiny loops and the same words come up over and over.
func (e *Emulator) disasmWord(word uint32) string {
	if text, ok := e.decode.Get(word); ok {
		return text.(string)
	}
	var raw [4]byte
	raw[0] = byte(word)
	raw[1] = byte(word >> 8)
	raw[2] = byte(word >> 16)
	raw[3] = byte(word >> 24)
	text := "?"
	if inst, err := armasm.Decode(raw[:], armasm.ModeARM); err == nil {
		text = inst.String()
	}
	e.decode.Add(word, text)
	return text
}

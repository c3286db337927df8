package armv4t

import (
	"github.com/gdbstub-go/gdbstub/pkg/arch/arm"
	"github.com/gdbstub-go/gdbstub/pkg/logflags"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// target.ExtendedModeOps. There is no host process behind the machine;
// run/attach/kill reset and relabel the simulated one.

func (e *Emulator) Run(filename []byte, args [][]byte) (int, error) {
	if filename != nil {
		e.execPath = string(filename)
	}
	if logflags.Emu() {
		e.log.Debugf("run %s with %d args", e.execPath, len(args))
	}
	e.reset()
	e.LoadDemo()
	return 1, nil
}

func (e *Emulator) Attach(pid int) error {
	if pid != 1 {
		return target.Errno(3) // ESRCH
	}
	return nil
}

func (e *Emulator) Kill(pid int) (bool, error) {
	if logflags.Emu() {
		e.log.Debugf("kill pid %d", pid)
	}
	e.reset()
	// in extended mode the session survives the kill
	return true, nil
}

func (e *Emulator) Restart() error {
	e.reset()
	e.LoadDemo()
	return nil
}

func (e *Emulator) QueryAttached(pid int) (bool, error) { return false, nil }

func (e *Emulator) reset() {
	e.regs = arm.Regs{}
	e.regs.SetPC(EntryPoint)
	e.regs.R[arm.RegSP] = EntryPoint + 0x10000
	e.mem = make(map[uint32]*[pageSize]byte)
	e.mode = resumeIdle
}

// extended-mode configuration sub-capabilities

func (e *Emulator) SupportConfigureASLR() target.ConfigureASLROps { return e }
func (e *Emulator) SupportConfigureEnv() target.ConfigureEnvOps   { return e }
func (e *Emulator) SupportConfigureStartupShell() target.ConfigureStartupShellOps {
	return e
}
func (e *Emulator) SupportConfigureWorkingDir() target.ConfigureWorkingDirOps { return e }

func (e *Emulator) SetASLR(enable bool) error {
	e.aslr = enable
	return nil
}

func (e *Emulator) SetEnv(key, val []byte) error {
	e.env[string(key)] = string(val)
	return nil
}

func (e *Emulator) UnsetEnv(key []byte) error {
	delete(e.env, string(key))
	return nil
}

func (e *Emulator) ResetEnv() error {
	e.env = make(map[string]string)
	return nil
}

func (e *Emulator) SetStartupWithShell(enable bool) error {
	e.withShell = enable
	return nil
}

func (e *Emulator) SetWorkingDir(dir []byte) error {
	e.cwd = string(dir)
	return nil
}

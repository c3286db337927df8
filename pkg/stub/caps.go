package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// capabilities is the immutable capability set of one session, sampled
// exactly once from the target's Support* accessors. It governs the
// qSupported advertisement, the parser's rule set and every dispatch
// decision until the session ends.
type capabilities struct {
	resume      target.ResumeOps
	singleStep  target.SingleStepOps
	rangeStep   target.RangeStepOps
	reverseCont target.ReverseContOps
	reverseStep target.ReverseStepOps

	singleReg target.SingleRegisterOps

	swBreak target.SwBreakpointOps
	hwBreak target.HwBreakpointOps
	watch   target.WatchpointOps

	extended target.ExtendedModeOps
	aslr     target.ConfigureASLROps
	env      target.ConfigureEnvOps
	shell    target.ConfigureStartupShellOps
	cwd      target.ConfigureWorkingDirOps

	hostOpen     target.HostIOOpenOps
	hostClose    target.HostIOCloseOps
	hostPread    target.HostIOPreadOps
	hostPwrite   target.HostIOPwriteOps
	hostFstat    target.HostIOFstatOps
	hostUnlink   target.HostIOUnlinkOps
	hostReadlink target.HostIOReadlinkOps
	hostSetfs    target.HostIOSetfsOps

	monitor       target.MonitorOps
	catchSyscalls target.CatchSyscallsOps
	memoryMap     target.MemoryMapOps
	auxv          target.AuxvOps
	execFile      target.ExecFileOps
	libraries     target.LibrariesOps
	sectionOffs   target.SectionOffsetsOps
	threadExtra   target.ThreadExtraInfoOps
	lldb          target.LLDBRegisterInfoOps

	descriptionXML string
}

func sampleCapabilities(t target.Target) *capabilities {
	c := &capabilities{}

	if c.resume = t.SupportResume(); c.resume != nil {
		c.singleStep = c.resume.SupportSingleStep()
		c.rangeStep = c.resume.SupportRangeStep()
		c.reverseCont = c.resume.SupportReverseCont()
		c.reverseStep = c.resume.SupportReverseStep()
	}

	c.singleReg = t.SupportSingleRegister()

	if bp := t.SupportBreakpoints(); bp != nil {
		c.swBreak = bp.SupportSwBreakpoint()
		c.hwBreak = bp.SupportHwBreakpoint()
		c.watch = bp.SupportWatchpoint()
	}

	if c.extended = t.SupportExtendedMode(); c.extended != nil {
		c.aslr = c.extended.SupportConfigureASLR()
		c.env = c.extended.SupportConfigureEnv()
		c.shell = c.extended.SupportConfigureStartupShell()
		c.cwd = c.extended.SupportConfigureWorkingDir()
	}

	if hio := t.SupportHostIO(); hio != nil {
		c.hostOpen = hio.SupportOpen()
		c.hostClose = hio.SupportClose()
		c.hostPread = hio.SupportPread()
		c.hostPwrite = hio.SupportPwrite()
		c.hostFstat = hio.SupportFstat()
		c.hostUnlink = hio.SupportUnlink()
		c.hostReadlink = hio.SupportReadlink()
		c.hostSetfs = hio.SupportSetfs()
	}

	c.monitor = t.SupportMonitor()
	c.catchSyscalls = t.SupportCatchSyscalls()
	c.memoryMap = t.SupportMemoryMap()
	c.auxv = t.SupportAuxv()
	c.execFile = t.SupportExecFile()
	c.libraries = t.SupportLibraries()
	c.sectionOffs = t.SupportSectionOffsets()
	c.threadExtra = t.SupportThreadExtraInfo()
	c.lldb = t.SupportLLDBRegisterInfo()

	c.descriptionXML = t.Arch().DescriptionXML()

	return c
}

// parseSet computes the rule set the packet parser consults. Families the
// target never declared are not parsed at all, so their packets fall
// through to the empty reply.
func (c *capabilities) parseSet() proto.ParseSet {
	var set proto.ParseSet
	set |= proto.ParseXPacket
	if c.resume != nil {
		set |= proto.ParseResume
	}
	if c.rangeStep != nil {
		set |= proto.ParseRangeStep
	}
	if c.reverseCont != nil || c.reverseStep != nil {
		set |= proto.ParseReverse
	}
	if c.swBreak != nil {
		set |= proto.ParseSwBreak
	}
	if c.hwBreak != nil {
		set |= proto.ParseHwBreak
	}
	if c.watch != nil {
		set |= proto.ParseWatchpoints
	}
	if c.singleReg != nil {
		set |= proto.ParseSingleRegister
	}
	if c.extended != nil {
		set |= proto.ParseExtendedMode
	}
	if c.hostOpen != nil || c.hostClose != nil || c.hostPread != nil ||
		c.hostPwrite != nil || c.hostFstat != nil || c.hostUnlink != nil ||
		c.hostReadlink != nil || c.hostSetfs != nil {
		set |= proto.ParseHostIO
	}
	if c.monitor != nil {
		set |= proto.ParseMonitor
	}
	if c.catchSyscalls != nil {
		set |= proto.ParseCatchSyscalls
	}
	if c.sectionOffs != nil {
		set |= proto.ParseSectionOffsets
	}
	if c.threadExtra != nil {
		set |= proto.ParseThreadExtraInfo
	}
	if c.lldb != nil {
		set |= proto.ParseLLDB
	}
	if c.descriptionXML != "" {
		set |= proto.ParseXferFeatures
	}
	if c.memoryMap != nil {
		set |= proto.ParseXferMemoryMap
	}
	if c.execFile != nil {
		set |= proto.ParseXferExecFile
	}
	if c.auxv != nil {
		set |= proto.ParseXferAuxv
	}
	if c.libraries != nil {
		set |= proto.ParseXferLibraries
	}
	return set
}

// writeSupported emits the qSupported feature string. PacketSize,
// vContSupported, multiprocess and QStartNoAckMode are always advertised;
// every later entry is conditional on a declared capability, so such a
// feature is advertised exactly when the target implements it.
func (c *capabilities) writeSupported(rw *proto.ResponseWriter, packetSize int) error {
	if err := rw.Str("PacketSize="); err != nil {
		return err
	}
	if err := rw.Num(uint64(packetSize)); err != nil {
		return err
	}
	if err := rw.Str(";vContSupported+;multiprocess+;QStartNoAckMode+"); err != nil {
		return err
	}

	cond := func(ok bool, s string) error {
		if !ok {
			return nil
		}
		return rw.Str(s)
	}

	if err := cond(c.reverseCont != nil, ";ReverseContinue+"); err != nil {
		return err
	}
	if err := cond(c.reverseStep != nil, ";ReverseStep+"); err != nil {
		return err
	}
	if err := cond(c.aslr != nil, ";QDisableRandomization+"); err != nil {
		return err
	}
	if err := cond(c.env != nil, ";QEnvironmentHexEncoded+;QEnvironmentUnset+;QEnvironmentReset+"); err != nil {
		return err
	}
	if err := cond(c.shell != nil, ";QStartupWithShell+"); err != nil {
		return err
	}
	if err := cond(c.cwd != nil, ";QSetWorkingDir+"); err != nil {
		return err
	}
	if err := cond(c.swBreak != nil, ";swbreak+"); err != nil {
		return err
	}
	if err := cond(c.hwBreak != nil || c.watch != nil, ";hwbreak+"); err != nil {
		return err
	}
	if err := cond(c.catchSyscalls != nil, ";QCatchSyscalls+"); err != nil {
		return err
	}
	if err := cond(c.descriptionXML != "", ";qXfer:features:read+"); err != nil {
		return err
	}
	if err := cond(c.memoryMap != nil, ";qXfer:memory-map:read+"); err != nil {
		return err
	}
	if err := cond(c.execFile != nil, ";qXfer:exec-file:read+"); err != nil {
		return err
	}
	if err := cond(c.auxv != nil, ";qXfer:auxv:read+"); err != nil {
		return err
	}
	return cond(c.libraries != nil, ";qXfer:libraries-svr4:read+")
}

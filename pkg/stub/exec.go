package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/common"
	"github.com/gdbstub-go/gdbstub/pkg/conn"
	"github.com/gdbstub-go/gdbstub/pkg/logflags"
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// handleCommand translates one parsed command into target facade calls
// and a reply. Returned target.Errno errors become `E nn` replies; any
// other error is fatal to the session.
func (s *Session) handleCommand(rw *proto.ResponseWriter, c conn.Conn, t target.Target, cmd proto.Command) (handlerResult, error) {
	switch cmd := cmd.(type) {
	// handshake and queries
	case proto.Supported:
		return s.handleSupported(rw, cmd)
	case proto.StartNoAckMode:
		s.noAck = true
		return needsOK, nil
	case proto.HaltReason:
		return s.handleHaltReason(rw, t)
	case proto.CurrentThread:
		if err := rw.Str("QC"); err != nil {
			return handled, err
		}
		return handled, rw.ThreadID(s.curMemTID, s.multiprocess)
	case proto.Attached:
		return s.handleAttached(rw, cmd)
	case proto.ThreadListFirst:
		return s.handleThreadList(rw, t)
	case proto.ThreadListNext:
		return handled, rw.Str("l")

	// registers and memory
	case proto.ReadRegisters:
		return s.handleReadRegisters(rw, t)
	case proto.WriteRegisters:
		return s.handleWriteRegisters(cmd, t)
	case proto.ReadRegister:
		return s.handleReadRegister(rw, cmd, t)
	case proto.WriteRegister:
		return needsOK, s.caps.singleReg.WriteRegister(s.curMemTID, cmd.Reg, cmd.Data)
	case proto.ReadMemory:
		return s.handleReadMemory(rw, cmd, t, false)
	case proto.BinaryReadMemory:
		return s.handleReadMemory(rw, proto.ReadMemory(cmd), t, true)
	case proto.WriteMemory:
		return needsOK, t.WriteMemory(s.curMemTID, cmd.Addr, cmd.Data)
	case proto.BinaryWriteMemory:
		return needsOK, t.WriteMemory(s.curMemTID, cmd.Addr, cmd.Data)

	// thread bookkeeping
	case proto.SetThread:
		return s.handleSetThread(cmd, t)
	case proto.ThreadAlive:
		return s.handleThreadAlive(cmd, t)

	// resumption
	case proto.ContQuery:
		return s.handleContQuery(rw)
	case proto.Cont:
		return s.handleCont(cmd, t)
	case proto.ReverseCont:
		if s.caps.reverseCont == nil {
			return handled, nil
		}
		if err := s.caps.reverseCont.ReverseCont(); err != nil {
			return handled, err
		}
		return handlerResult{status: statusDeferred}, nil
	case proto.ReverseStep:
		if s.caps.reverseStep == nil {
			return handled, nil
		}
		if err := s.caps.reverseStep.ReverseStep(); err != nil {
			return handled, err
		}
		return handlerResult{status: statusDeferred}, nil

	// breakpoints
	case proto.InsertBreakpoint:
		return s.handleInsertBreakpoint(cmd)
	case proto.RemoveBreakpoint:
		return s.handleRemoveBreakpoint(cmd)

	// session teardown
	case proto.Detach:
		if err := rw.Str("OK"); err != nil {
			return handled, err
		}
		return handlerResult{status: statusDisconnect, reason: DisconnectReason{Kind: DisconnectClient}}, nil
	case proto.Kill:
		return s.handleKill(rw, 0, false)
	case proto.KillPid:
		return s.handleKill(rw, cmd.PID, true)

	// extended mode
	case proto.ExtendedMode:
		return needsOK, nil
	case proto.Run:
		return s.handleRun(rw, cmd, t)
	case proto.AttachPid:
		return s.handleAttach(rw, cmd, t)
	case proto.Restart:
		// the restart packet takes no reply
		return handlerResult{status: statusNoReply, noFlush: true}, s.caps.extended.Restart()
	case proto.DisableASLR:
		return s.handleConfig(s.caps.aslr != nil, func() error { return s.caps.aslr.SetASLR(!cmd.Disable) })
	case proto.SetEnv:
		return s.handleConfig(s.caps.env != nil, func() error { return s.caps.env.SetEnv(cmd.Key, cmd.Val) })
	case proto.UnsetEnv:
		return s.handleConfig(s.caps.env != nil, func() error { return s.caps.env.UnsetEnv(cmd.Key) })
	case proto.ResetEnv:
		return s.handleConfig(s.caps.env != nil, func() error { return s.caps.env.ResetEnv() })
	case proto.StartupWithShell:
		return s.handleConfig(s.caps.shell != nil, func() error { return s.caps.shell.SetStartupWithShell(cmd.Enable) })
	case proto.SetWorkingDir:
		return s.handleConfig(s.caps.cwd != nil, func() error { return s.caps.cwd.SetWorkingDir(cmd.Dir) })

	// host I/O
	case proto.HostOpen, proto.HostClose, proto.HostPread, proto.HostPwrite,
		proto.HostFstat, proto.HostUnlink, proto.HostReadlink, proto.HostSetfs:
		return s.handleHostIO(rw, cmd)

	// qXfer objects
	case proto.XferRead:
		return s.handleXfer(rw, cmd)

	// misc
	case proto.Monitor:
		return s.handleMonitor(rw, c, cmd)
	case proto.CatchSyscalls:
		if cmd.Enable {
			return needsOK, s.caps.catchSyscalls.EnableCatchSyscalls(cmd.Filter)
		}
		return needsOK, s.caps.catchSyscalls.DisableCatchSyscalls()
	case proto.SectionOffsets:
		return s.handleSectionOffsets(rw)
	case proto.ThreadExtraInfo:
		return s.handleThreadExtraInfo(rw, cmd)
	case proto.HostInfo:
		return handled, rw.Str(s.caps.lldb.HostInfo())
	case proto.RegisterInfo:
		info, ok := s.caps.lldb.RegisterInfo(cmd.Reg)
		if !ok {
			return handled, rw.Str("E45")
		}
		return handled, rw.Str(info)

	case proto.Unknown:
		return s.handleUnknown(rw, c, cmd)
	}
	// unreachable: every command type is enumerated above
	return handled, nil
}

func (s *Session) handleSupported(rw *proto.ResponseWriter, cmd proto.Supported) (handlerResult, error) {
	for _, f := range cmd.Features {
		if string(f) == "multiprocess+" {
			s.multiprocess = true
		}
	}
	if logflags.Stub() {
		s.log.Debugf("handshake: multiprocess=%v packetsize=%d", s.multiprocess, s.buf.Size())
	}
	s.state = stateIdle
	return handled, s.caps.writeSupported(rw, s.buf.Size())
}

// saneAnyTid resolves a wire "any thread" to a concrete one: the first
// live thread the target reports.
func (s *Session) saneAnyTid(t target.Target) (common.ThreadID, error) {
	first := common.ThreadID{}
	found := false
	err := t.ListThreads(func(tid common.ThreadID) {
		if !found {
			first = tid
			found = true
		}
	})
	if err != nil {
		return first, err
	}
	if !found {
		return first, target.Errno(22)
	}
	return first, nil
}

func (s *Session) handleHaltReason(rw *proto.ResponseWriter, t target.Target) (handlerResult, error) {
	tid, err := s.saneAnyTid(t)
	if err != nil {
		return handled, err
	}
	// report a valid thread-id or GDB warns when several threads exist
	if err := rw.Str("T05thread:"); err != nil {
		return handled, err
	}
	if err := rw.ThreadID(tid, s.multiprocess); err != nil {
		return handled, err
	}
	return handled, rw.Str(";")
}

func (s *Session) handleAttached(rw *proto.ResponseWriter, cmd proto.Attached) (handlerResult, error) {
	attached := true
	if s.caps.extended != nil && cmd.HasPID {
		was, err := s.caps.extended.QueryAttached(cmd.PID)
		if err != nil {
			return handled, err
		}
		attached = was
	}
	if attached {
		return handled, rw.Str("1")
	}
	return handled, rw.Str("0")
}

func (s *Session) handleThreadList(rw *proto.ResponseWriter, t target.Target) (handlerResult, error) {
	if err := rw.Str("m"); err != nil {
		return handled, err
	}
	first := true
	var werr error
	err := t.ListThreads(func(tid common.ThreadID) {
		if werr != nil {
			return
		}
		if !first {
			werr = rw.Str(",")
		}
		first = false
		if werr == nil {
			werr = rw.ThreadID(tid, s.multiprocess)
		}
	})
	if err != nil {
		return handled, err
	}
	return handled, werr
}

func (s *Session) handleReadRegisters(rw *proto.ResponseWriter, t target.Target) (handlerResult, error) {
	size := t.Arch().RegistersSize()
	buf := s.buf.Scratch(0)
	// the hex reply is two bytes per register byte and must stay within
	// the advertised packet size
	if size > len(buf) || size*2 > s.buf.Size()-8 {
		return handled, target.Errno(22)
	}
	regs := buf[:size]
	if err := t.ReadRegisters(s.curMemTID, regs); err != nil {
		return handled, err
	}
	return handled, rw.HexBuf(regs)
}

func (s *Session) handleWriteRegisters(cmd proto.WriteRegisters, t target.Target) (handlerResult, error) {
	if len(cmd.Data) != t.Arch().RegistersSize() {
		return handled, target.Errno(22)
	}
	return needsOK, t.WriteRegisters(s.curMemTID, cmd.Data)
}

func (s *Session) handleReadRegister(rw *proto.ResponseWriter, cmd proto.ReadRegister, t target.Target) (handlerResult, error) {
	buf := s.buf.Scratch(0)
	max := t.Arch().RegistersSize()
	if max > len(buf) {
		return handled, target.Errno(22)
	}
	n, err := s.caps.singleReg.ReadRegister(s.curMemTID, cmd.Reg, buf[:max])
	if err != nil {
		return handled, err
	}
	if n == 0 {
		return handled, target.Errno(1)
	}
	return handled, rw.HexBuf(buf[:n])
}

func (s *Session) handleReadMemory(rw *proto.ResponseWriter, cmd proto.ReadMemory, t target.Target, binary bool) (handlerResult, error) {
	// a hex reply needs two bytes per memory byte; never build a response
	// larger than the advertised packet size
	max := (s.buf.Size() - 8) / 2
	n := cmd.Len
	if n > max {
		n = max
	}

	scratch := s.buf.Scratch(0)
	if len(scratch) > n {
		scratch = scratch[:n]
	}

	done := 0
	for done < n {
		chunk := scratch[:min(n-done, len(scratch))]
		rd, err := t.ReadMemory(s.curMemTID, cmd.Addr+uint64(done), chunk)
		if err != nil {
			if done == 0 {
				return handled, err
			}
			break
		}
		if rd == 0 {
			break
		}
		if binary {
			if err := rw.Binary(chunk[:rd]); err != nil {
				return handled, err
			}
		} else {
			if err := rw.HexBuf(chunk[:rd]); err != nil {
				return handled, err
			}
		}
		done += rd
		if rd < len(chunk) {
			// short read: the reply reflects the bytes actually read
			break
		}
	}
	if done == 0 && n > 0 && !binary {
		return handled, target.Errno(uint8(target.EFault))
	}
	return handled, nil
}

func (s *Session) handleSetThread(cmd proto.SetThread, t target.Target) (handlerResult, error) {
	resolve := func(tid common.ThreadID) (common.ThreadID, error) {
		if tid.TID == common.IDAny {
			return s.saneAnyTid(t)
		}
		return tid, nil
	}
	switch cmd.Op {
	case 'g':
		if cmd.TID.TID == common.IDAll {
			// "all threads" makes no sense for memory and register access
			return handled, target.Errno(22)
		}
		tid, err := resolve(cmd.TID)
		if err != nil {
			return handled, err
		}
		s.curMemTID = tid
	case 'c':
		if cmd.TID.TID == common.IDAll {
			s.curResumeTID = common.ThreadID{PID: common.IDAll, TID: common.IDAll}
			break
		}
		tid, err := resolve(cmd.TID)
		if err != nil {
			return handled, err
		}
		s.curResumeTID = tid
	}
	return needsOK, nil
}

func (s *Session) handleThreadAlive(cmd proto.ThreadAlive, t target.Target) (handlerResult, error) {
	alive := false
	err := t.ListThreads(func(tid common.ThreadID) {
		if tid.TID == cmd.TID.TID && (cmd.TID.PID == common.IDAny || tid.PID == cmd.TID.PID) {
			alive = true
		}
	})
	if err != nil {
		return handled, err
	}
	if !alive {
		return handled, target.Errno(1)
	}
	return needsOK, nil
}

func (s *Session) handleKill(rw *proto.ResponseWriter, pid int, hasPID bool) (handlerResult, error) {
	kill := handlerResult{status: statusDisconnect, reason: DisconnectReason{Kind: DisconnectKill}}
	if s.caps.extended == nil {
		// stock GDB closes the connection right after 'k'; flushing the
		// reply would race the close and is skipped entirely
		kill.noFlush = true
		return kill, nil
	}
	if !hasPID {
		pid = 0
	}
	keep, err := s.caps.extended.Kill(pid)
	if err != nil {
		return handled, err
	}
	if keep {
		return needsOK, nil
	}
	if err := rw.Str("OK"); err != nil {
		return handled, err
	}
	return kill, nil
}

func (s *Session) handleConfig(ok bool, apply func() error) (handlerResult, error) {
	if !ok {
		// sub-capability not declared: empty reply
		return handled, nil
	}
	return needsOK, apply()
}

// handleUnknown answers unrecognized packets with the empty reply. As a
// courtesy, a resume packet sent to a target without resume support gets
// a console warning and a dummy stop, instead of a hang.
func (s *Session) handleUnknown(rw *proto.ResponseWriter, c conn.Conn, cmd proto.Unknown) (handlerResult, error) {
	if s.caps.resume == nil && len(cmd.Raw) > 0 {
		switch cmd.Raw[0] {
		case 'c', 'C', 's', 'S':
			s.log.Warnf("client tried to resume a target with no resume support")
			out := proto.NewResponseWriter(c, s.noRLE, s.wireLog)
			if err := out.Str("O"); err != nil {
				return handled, err
			}
			if err := out.HexBuf([]byte("target does not support resumption\n")); err != nil {
				return handled, err
			}
			if err := out.Close(); err != nil {
				return handled, err
			}
			return handled, rw.Str("S05")
		}
	}
	if logflags.Stub() {
		s.log.Debugf("unknown command %q", truncate(cmd.Raw))
	}
	return handled, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

package proto

import (
	"bytes"

	"github.com/gdbstub-go/gdbstub/pkg/common"
)

// strip removes prefix from body, reporting whether it matched.
func strip(body []byte, prefix string) ([]byte, bool) {
	if len(body) < len(prefix) {
		return body, false
	}
	for i := 0; i < len(prefix); i++ {
		if body[i] != prefix[i] {
			return body, false
		}
	}
	return body[len(prefix):], true
}

// splitByte is bytes.SplitN without the allocation: it cuts body at the
// first occurrence of sep.
func splitByte(body []byte, sep byte) (head, tail []byte, found bool) {
	if i := bytes.IndexByte(body, sep); i >= 0 {
		return body[:i], body[i+1:], true
	}
	return body, nil, false
}

// ParseThreadID parses the wire form of a thread id: `[p<pid>.]<tid>`,
// where either half may be the literal `-1` (all) or `0` (any).
func ParseThreadID(buf []byte) (common.ThreadID, error) {
	var tid common.ThreadID

	parseHalf := func(b []byte) (int, error) {
		if len(b) == 2 && b[0] == '-' && b[1] == '1' {
			return common.IDAll, nil
		}
		v, err := DecodeUint(b)
		if err != nil || v > 1<<30 {
			return 0, ErrMalformed
		}
		return int(v), nil
	}

	if rest, ok := strip(buf, "p"); ok {
		pidBuf, tidBuf, found := splitByte(rest, '.')
		pid, err := parseHalf(pidBuf)
		if err != nil {
			return tid, err
		}
		tid.PID = pid
		if !found {
			// `p<pid>` with no thread half addresses all of its threads
			tid.TID = common.IDAll
			return tid, nil
		}
		t, err := parseHalf(tidBuf)
		if err != nil {
			return tid, err
		}
		tid.TID = t
		return tid, nil
	}

	t, err := parseHalf(buf)
	if err != nil {
		return tid, err
	}
	tid.TID = t
	return tid, nil
}

// parseAddrLen parses the `addr,length` pair shared by the memory packets.
func parseAddrLen(body []byte, ptrBits int) (uint64, int, error) {
	addrBuf, lenBuf, found := splitByte(body, ',')
	if !found {
		return 0, 0, ErrMalformed
	}
	addr, err := DecodeUintWidth(addrBuf, ptrBits)
	if err != nil {
		return 0, 0, err
	}
	n, err := DecodeUint(lenBuf)
	if err != nil || n > 1<<24 {
		return 0, 0, ErrMalformed
	}
	return addr, int(n), nil
}

// ParseCommand parses one decoded packet payload into a typed command.
// set selects which extension families are recognized at all and ptrBits
// bounds every address field. The returned command may alias body.
//
// ParseCommand never panics on malformed input: unrecognized packets
// produce Unknown, recognized-but-malformed ones produce ErrMalformed.
func ParseCommand(body []byte, set ParseSet, ptrBits int) (Command, error) {
	if len(body) == 0 {
		return Unknown{Raw: body}, nil
	}

	// single-letter commands dispatch on their first byte; the
	// multi-letter q/Q/v names are matched below
	switch body[0] {
	case '?':
		return HaltReason{}, nil
	case 'g':
		if len(body) == 1 {
			return ReadRegisters{}, nil
		}
	case 'G':
		data, err := DecodeHexBuf(body[1:])
		if err != nil {
			return nil, err
		}
		return WriteRegisters{Data: data}, nil
	case 'm':
		addr, n, err := parseAddrLen(body[1:], ptrBits)
		if err != nil {
			return nil, err
		}
		return ReadMemory{Addr: addr, Len: n}, nil
	case 'M':
		return parseWriteMemory(body[1:], ptrBits, false)
	case 'X':
		if !set.Has(ParseXPacket) {
			break
		}
		return parseWriteMemory(body[1:], ptrBits, true)
	case 'x':
		if !set.Has(ParseXPacket) {
			break
		}
		addr, n, err := parseAddrLen(body[1:], ptrBits)
		if err != nil {
			return nil, err
		}
		return BinaryReadMemory{Addr: addr, Len: n}, nil
	case 'c', 'C', 's', 'S':
		if !set.Has(ParseResume) {
			break
		}
		return parseLegacyResume(body)
	case 'b':
		if !set.Has(ParseReverse) || len(body) != 2 {
			break
		}
		switch body[1] {
		case 'c':
			return ReverseCont{}, nil
		case 's':
			return ReverseStep{}, nil
		}
	case 'D':
		if len(body) == 1 {
			return Detach{}, nil
		}
		if rest, ok := strip(body, "D;"); ok {
			pid, err := DecodeUint(rest)
			if err != nil {
				return nil, err
			}
			return Detach{PID: int(pid), HasPID: true}, nil
		}
		return nil, ErrMalformed
	case 'k':
		if len(body) == 1 {
			return Kill{}, nil
		}
	case 'H':
		if len(body) < 2 || (body[1] != 'g' && body[1] != 'c') {
			return nil, ErrMalformed
		}
		tid, err := ParseThreadID(body[2:])
		if err != nil {
			return nil, err
		}
		return SetThread{Op: body[1], TID: tid}, nil
	case 'T':
		tid, err := ParseThreadID(body[1:])
		if err != nil {
			return nil, err
		}
		return ThreadAlive{TID: tid}, nil
	case 'p':
		if !set.Has(ParseSingleRegister) {
			break
		}
		reg, err := DecodeUint(body[1:])
		if err != nil || reg > 1<<16 {
			return nil, ErrMalformed
		}
		return ReadRegister{Reg: int(reg)}, nil
	case 'P':
		if !set.Has(ParseSingleRegister) {
			break
		}
		regBuf, valBuf, found := splitByte(body[1:], '=')
		if !found {
			return nil, ErrMalformed
		}
		reg, err := DecodeUint(regBuf)
		if err != nil || reg > 1<<16 {
			return nil, ErrMalformed
		}
		data, err := DecodeHexBuf(valBuf)
		if err != nil {
			return nil, err
		}
		return WriteRegister{Reg: int(reg), Data: data}, nil
	case 'Z', 'z':
		return parseBreakpoint(body, set, ptrBits)
	case '!':
		if set.Has(ParseExtendedMode) && len(body) == 1 {
			return ExtendedMode{}, nil
		}
	case 'R':
		if set.Has(ParseExtendedMode) {
			// the restart packet carries a dummy hex byte
			return Restart{}, nil
		}
	case 'q', 'Q', 'v':
		return parseNamed(body, set, ptrBits)
	}

	return Unknown{Raw: body}, nil
}

func parseWriteMemory(body []byte, ptrBits int, binary bool) (Command, error) {
	head, payload, found := splitByte(body, ':')
	if !found {
		return nil, ErrMalformed
	}
	addr, n, err := parseAddrLen(head, ptrBits)
	if err != nil {
		return nil, err
	}
	if binary {
		// escapes were already resolved when the frame was decoded
		if len(payload) != n {
			return nil, ErrMalformed
		}
		return BinaryWriteMemory{Addr: addr, Data: payload}, nil
	}
	data, err := DecodeHexBuf(payload)
	if err != nil || len(data) != n {
		return nil, ErrMalformed
	}
	return WriteMemory{Addr: addr, Data: data}, nil
}

// parseLegacyResume translates the deprecated c/C/s/S packets into a
// single-action Cont with no thread id; the executor applies the thread
// previously selected with `Hc`.
func parseLegacyResume(body []byte) (Command, error) {
	act := ResumeAction{Kind: ResumeContinue, Default: true}
	switch body[0] {
	case 's', 'S':
		act.Kind = ResumeStep
	}
	if body[0] == 'C' || body[0] == 'S' {
		sigBuf, _, _ := splitByte(body[1:], ';')
		sig, err := DecodeUint(sigBuf)
		if err != nil || sig > 0xff {
			return nil, ErrMalformed
		}
		act.Sig = common.Signal(sig)
	}
	// an optional resume address is accepted and ignored: vCont has no
	// equivalent and stock GDB never sends it
	return Cont{Actions: []ResumeAction{act}, Legacy: true}, nil
}

func parseBreakpoint(body []byte, set ParseSet, ptrBits int) (Command, error) {
	insert := body[0] == 'Z'
	fields := body[1:]

	typeBuf, fields, found := splitByte(fields, ',')
	if !found {
		return nil, ErrMalformed
	}
	t, err := DecodeUint(typeBuf)
	if err != nil || t > uint64(WatchpointAccess) {
		return nil, ErrMalformed
	}
	btype := BreakpointType(t)

	switch btype {
	case BreakpointSw:
		if !set.Has(ParseSwBreak) {
			return Unknown{Raw: body}, nil
		}
	case BreakpointHw:
		if !set.Has(ParseHwBreak) {
			return Unknown{Raw: body}, nil
		}
	default:
		if !set.Has(ParseWatchpoints) {
			return Unknown{Raw: body}, nil
		}
	}

	addrBuf, fields, found := splitByte(fields, ',')
	if !found {
		return nil, ErrMalformed
	}
	addr, err := DecodeUintWidth(addrBuf, ptrBits)
	if err != nil {
		return nil, err
	}

	// a condition or command list may trail the kind field; it is
	// tolerated and ignored (agent bytecode is out of scope)
	kindBuf, conds, hasConds := splitByte(fields, ';')
	kind, err := DecodeUint(kindBuf)
	if err != nil || kind > 1<<16 {
		return nil, ErrMalformed
	}
	_ = conds

	if insert {
		return InsertBreakpoint{Type: btype, Addr: addr, Kind: int(kind), HasConds: hasConds}, nil
	}
	return RemoveBreakpoint{Type: btype, Addr: addr, Kind: int(kind)}, nil
}

// parseNamed handles the colon/semicolon-delimited multi-letter commands.
func parseNamed(body []byte, set ParseSet, ptrBits int) (Command, error) {
	if rest, ok := strip(body, "qSupported"); ok {
		var features [][]byte
		if args, ok := strip(rest, ":"); ok {
			for len(args) > 0 {
				var f []byte
				f, args, _ = splitByte(args, ';')
				features = append(features, f)
			}
		}
		return Supported{Features: features}, nil
	}
	if _, ok := strip(body, "QStartNoAckMode"); ok {
		return StartNoAckMode{}, nil
	}
	if body[0] == 'q' && len(body) >= 2 && body[1] == 'C' && len(body) == 2 {
		return CurrentThread{}, nil
	}
	if rest, ok := strip(body, "qAttached"); ok {
		if pidBuf, ok := strip(rest, ":"); ok {
			pid, err := DecodeUint(pidBuf)
			if err != nil {
				return nil, err
			}
			return Attached{PID: int(pid), HasPID: true}, nil
		}
		return Attached{}, nil
	}
	if _, ok := strip(body, "qfThreadInfo"); ok {
		return ThreadListFirst{}, nil
	}
	if _, ok := strip(body, "qsThreadInfo"); ok {
		return ThreadListNext{}, nil
	}
	if rest, ok := strip(body, "qXfer:"); ok {
		return parseXfer(rest, set)
	}
	if rest, ok := strip(body, "qRcmd,"); ok && set.Has(ParseMonitor) {
		cmd, err := DecodeHexBuf(rest)
		if err != nil {
			return nil, err
		}
		return Monitor{Cmd: cmd}, nil
	}
	if _, ok := strip(body, "qOffsets"); ok && set.Has(ParseSectionOffsets) {
		return SectionOffsets{}, nil
	}
	if rest, ok := strip(body, "qThreadExtraInfo,"); ok && set.Has(ParseThreadExtraInfo) {
		tid, err := ParseThreadID(rest)
		if err != nil {
			return nil, err
		}
		return ThreadExtraInfo{TID: tid}, nil
	}
	if _, ok := strip(body, "qHostInfo"); ok && set.Has(ParseLLDB) {
		return HostInfo{}, nil
	}
	if rest, ok := strip(body, "qRegisterInfo"); ok && set.Has(ParseLLDB) {
		reg, err := DecodeUint(rest)
		if err != nil || reg > 1<<16 {
			return nil, ErrMalformed
		}
		return RegisterInfo{Reg: int(reg)}, nil
	}
	if rest, ok := strip(body, "QCatchSyscalls:"); ok && set.Has(ParseCatchSyscalls) {
		return parseCatchSyscalls(rest)
	}
	if rest, ok := strip(body, "QDisableRandomization:"); ok && set.Has(ParseExtendedMode) {
		if len(rest) != 1 || (rest[0] != '0' && rest[0] != '1') {
			return nil, ErrMalformed
		}
		return DisableASLR{Disable: rest[0] == '1'}, nil
	}
	if rest, ok := strip(body, "QEnvironmentHexEncoded:"); ok && set.Has(ParseExtendedMode) {
		decoded, err := DecodeHexBuf(rest)
		if err != nil {
			return nil, err
		}
		key, val, _ := splitByte(decoded, '=')
		return SetEnv{Key: key, Val: val}, nil
	}
	if rest, ok := strip(body, "QEnvironmentUnset:"); ok && set.Has(ParseExtendedMode) {
		key, err := DecodeHexBuf(rest)
		if err != nil {
			return nil, err
		}
		return UnsetEnv{Key: key}, nil
	}
	if _, ok := strip(body, "QEnvironmentReset"); ok && set.Has(ParseExtendedMode) {
		return ResetEnv{}, nil
	}
	if rest, ok := strip(body, "QStartupWithShell:"); ok && set.Has(ParseExtendedMode) {
		if len(rest) != 1 || (rest[0] != '0' && rest[0] != '1') {
			return nil, ErrMalformed
		}
		return StartupWithShell{Enable: rest[0] == '1'}, nil
	}
	if rest, ok := strip(body, "QSetWorkingDir:"); ok && set.Has(ParseExtendedMode) {
		dir, err := DecodeHexBuf(rest)
		if err != nil {
			return nil, err
		}
		return SetWorkingDir{Dir: dir}, nil
	}
	if rest, ok := strip(body, "vCont"); ok && set.Has(ParseResume) {
		if len(rest) == 1 && rest[0] == '?' {
			return ContQuery{}, nil
		}
		return parseCont(rest, set, ptrBits)
	}
	if rest, ok := strip(body, "vKill;"); ok {
		pid, err := DecodeUint(rest)
		if err != nil {
			return nil, err
		}
		return KillPid{PID: int(pid)}, nil
	}
	if rest, ok := strip(body, "vRun;"); ok && set.Has(ParseExtendedMode) {
		return parseRun(rest)
	}
	if rest, ok := strip(body, "vAttach;"); ok && set.Has(ParseExtendedMode) {
		pid, err := DecodeUint(rest)
		if err != nil {
			return nil, err
		}
		return AttachPid{PID: int(pid)}, nil
	}
	if rest, ok := strip(body, "vFile:"); ok && set.Has(ParseHostIO) {
		return parseHostIO(rest)
	}
	return Unknown{Raw: body}, nil
}

func parseCont(body []byte, set ParseSet, ptrBits int) (Command, error) {
	var actions []ResumeAction
	i := 0
	for i < len(body) {
		if body[i] != ';' {
			return nil, ErrMalformed
		}
		i++
		j := i
		for j < len(body) && body[j] != ';' {
			j++
		}
		act, err := parseContAction(body[i:j], set, ptrBits)
		if err != nil {
			return nil, err
		}
		actions = append(actions, act)
		i = j
	}
	if len(actions) == 0 {
		return nil, ErrMalformed
	}
	return Cont{Actions: actions}, nil
}

func parseContAction(field []byte, set ParseSet, ptrBits int) (ResumeAction, error) {
	var act ResumeAction
	if len(field) == 0 {
		return act, ErrMalformed
	}

	kindBuf, tidBuf, hasTID := splitByte(field, ':')
	if len(kindBuf) == 0 {
		return act, ErrMalformed
	}

	switch kindBuf[0] {
	case 'c', 'C':
		act.Kind = ResumeContinue
	case 's', 'S':
		act.Kind = ResumeStep
	case 't':
		act.Kind = ResumeStop
	case 'r':
		if !set.Has(ParseRangeStep) {
			return act, ErrMalformed
		}
		act.Kind = ResumeRangeStep
		startBuf, endBuf, found := splitByte(kindBuf[1:], ',')
		if !found {
			return act, ErrMalformed
		}
		start, err := DecodeUintWidth(startBuf, ptrBits)
		if err != nil {
			return act, err
		}
		end, err := DecodeUintWidth(endBuf, ptrBits)
		if err != nil {
			return act, err
		}
		act.Start, act.End = start, end
	default:
		return act, ErrMalformed
	}

	if kindBuf[0] == 'C' || kindBuf[0] == 'S' {
		sig, err := DecodeUint(kindBuf[1:])
		if err != nil || sig > 0xff {
			return act, ErrMalformed
		}
		act.Sig = common.Signal(sig)
	} else if act.Kind != ResumeRangeStep && len(kindBuf) != 1 {
		return act, ErrMalformed
	}

	if hasTID {
		tid, err := ParseThreadID(tidBuf)
		if err != nil {
			return act, err
		}
		act.TID = tid
		act.HasTID = true
	} else {
		act.Default = true
	}
	return act, nil
}

func parseRun(body []byte) (Command, error) {
	var run Run
	first := true
	for len(body) > 0 || first {
		var field []byte
		field, body, _ = splitByte(body, ';')
		decoded, err := DecodeHexBuf(field)
		if err != nil {
			return nil, err
		}
		if first {
			if len(decoded) > 0 {
				run.Filename = decoded
			}
			first = false
			continue
		}
		if len(decoded) > 0 {
			run.Args = append(run.Args, decoded)
		}
	}
	return run, nil
}

func parseCatchSyscalls(body []byte) (Command, error) {
	modeBuf, rest, hasFilter := splitByte(body, ';')
	if len(modeBuf) != 1 || (modeBuf[0] != '0' && modeBuf[0] != '1') {
		return nil, ErrMalformed
	}
	cs := CatchSyscalls{Enable: modeBuf[0] == '1'}
	if !cs.Enable {
		if hasFilter {
			return nil, ErrMalformed
		}
		return cs, nil
	}
	for hasFilter {
		var numBuf []byte
		numBuf, rest, hasFilter = splitByte(rest, ';')
		n, err := DecodeUint(numBuf)
		if err != nil {
			return nil, err
		}
		cs.Filter = append(cs.Filter, n)
	}
	return cs, nil
}

func parseHostIO(body []byte) (Command, error) {
	if rest, ok := strip(body, "open:"); ok {
		pathBuf, rest, found := splitByte(rest, ',')
		if !found {
			return nil, ErrMalformed
		}
		path, err := DecodeHexBuf(pathBuf)
		if err != nil {
			return nil, err
		}
		flagsBuf, modeBuf, found := splitByte(rest, ',')
		if !found {
			return nil, ErrMalformed
		}
		flags, err := DecodeUint(flagsBuf)
		if err != nil {
			return nil, err
		}
		mode, err := DecodeUint(modeBuf)
		if err != nil {
			return nil, err
		}
		return HostOpen{Path: path, Flags: flags, Mode: mode}, nil
	}
	if rest, ok := strip(body, "close:"); ok {
		fd, err := DecodeUint(rest)
		if err != nil || fd > 1<<31 {
			return nil, ErrMalformed
		}
		return HostClose{FD: int(fd)}, nil
	}
	if rest, ok := strip(body, "pread:"); ok {
		fdBuf, rest, found := splitByte(rest, ',')
		if !found {
			return nil, ErrMalformed
		}
		fd, err := DecodeUint(fdBuf)
		if err != nil || fd > 1<<31 {
			return nil, ErrMalformed
		}
		countBuf, offBuf, found := splitByte(rest, ',')
		if !found {
			return nil, ErrMalformed
		}
		count, err := DecodeUint(countBuf)
		if err != nil || count > 1<<24 {
			return nil, ErrMalformed
		}
		off, err := DecodeUint(offBuf)
		if err != nil {
			return nil, err
		}
		return HostPread{FD: int(fd), Count: int(count), Offset: off}, nil
	}
	if rest, ok := strip(body, "pwrite:"); ok {
		fdBuf, rest, found := splitByte(rest, ',')
		if !found {
			return nil, ErrMalformed
		}
		fd, err := DecodeUint(fdBuf)
		if err != nil || fd > 1<<31 {
			return nil, ErrMalformed
		}
		offBuf, payload, found := splitByte(rest, ',')
		if !found {
			return nil, ErrMalformed
		}
		off, err := DecodeUint(offBuf)
		if err != nil {
			return nil, err
		}
		return HostPwrite{FD: int(fd), Offset: off, Data: payload}, nil
	}
	if rest, ok := strip(body, "fstat:"); ok {
		fd, err := DecodeUint(rest)
		if err != nil || fd > 1<<31 {
			return nil, ErrMalformed
		}
		return HostFstat{FD: int(fd)}, nil
	}
	if rest, ok := strip(body, "unlink:"); ok {
		path, err := DecodeHexBuf(rest)
		if err != nil {
			return nil, err
		}
		return HostUnlink{Path: path}, nil
	}
	if rest, ok := strip(body, "readlink:"); ok {
		path, err := DecodeHexBuf(rest)
		if err != nil {
			return nil, err
		}
		return HostReadlink{Path: path}, nil
	}
	if rest, ok := strip(body, "setfs:"); ok {
		pid, err := DecodeUint(rest)
		if err != nil || pid > 1<<31 {
			return nil, ErrMalformed
		}
		return HostSetfs{PID: int(pid)}, nil
	}
	return Unknown{Raw: body}, nil
}

var xferObjects = []struct {
	prefix string
	object XferObject
	bit    ParseSet
}{
	{"features:read:", XferFeatures, ParseXferFeatures},
	{"memory-map:read:", XferMemoryMap, ParseXferMemoryMap},
	{"exec-file:read:", XferExecFile, ParseXferExecFile},
	{"auxv:read:", XferAuxv, ParseXferAuxv},
	{"libraries-svr4:read:", XferLibraries, ParseXferLibraries},
}

func parseXfer(body []byte, set ParseSet) (Command, error) {
	var obj XferObject
	var rest []byte
	matched := false
	for _, x := range xferObjects {
		if r, ok := strip(body, x.prefix); ok {
			if !set.Has(x.bit) {
				return Unknown{Raw: body}, nil
			}
			obj, rest, matched = x.object, r, true
			break
		}
	}
	if !matched {
		return Unknown{Raw: body}, nil
	}

	annex, offlen, found := splitByte(rest, ':')
	if !found {
		return nil, ErrMalformed
	}
	offBuf, lenBuf, found := splitByte(offlen, ',')
	if !found {
		return nil, ErrMalformed
	}
	off, err := DecodeUint(offBuf)
	if err != nil {
		return nil, err
	}
	n, err := DecodeUint(lenBuf)
	if err != nil || n > 1<<24 {
		return nil, ErrMalformed
	}
	return XferRead{Object: obj, Annex: annex, Offset: off, Length: int(n)}, nil
}

package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/proto"
)

// handleXfer serves every qXfer object through the shared chunked-read
// transport: the handler fills a sub-slice at the requested offset and the
// reply carries the 'm' (more data follows) or 'l' (last chunk) prefix.
func (s *Session) handleXfer(rw *proto.ResponseWriter, cmd proto.XferRead) (handlerResult, error) {
	// a binary-escaped reply may need two output bytes per payload byte,
	// plus the prefix and trailer
	max := (s.buf.Size() - 8) / 2
	n := cmd.Length
	if n > max {
		n = max
	}

	// the features object always serves the architecture description;
	// honor only its canonical annex
	if cmd.Object == proto.XferFeatures && string(cmd.Annex) != "target.xml" {
		return handled, rw.Str("E00")
	}

	scratch := s.buf.Scratch(0)
	if n > len(scratch) {
		n = len(scratch)
	}
	buf := scratch[:n]

	var read int
	var more bool
	var err error
	switch cmd.Object {
	case proto.XferFeatures:
		read, more = copyChunk(buf, s.caps.descriptionXML, cmd.Offset)
	case proto.XferMemoryMap:
		read, more, err = s.caps.memoryMap.MemoryMapXML(cmd.Offset, buf)
	case proto.XferExecFile:
		pid := s.curMemTID.PID
		read, more, err = s.caps.execFile.ExecFile(pid, cmd.Offset, buf)
	case proto.XferAuxv:
		read, more, err = s.caps.auxv.Auxv(cmd.Offset, buf)
	case proto.XferLibraries:
		read, more, err = s.caps.libraries.LibrariesSVR4XML(cmd.Offset, buf)
	}
	if err != nil {
		return handled, err
	}

	prefix := "l"
	if more {
		prefix = "m"
	}
	if werr := rw.Str(prefix); werr != nil {
		return handled, werr
	}
	return handled, rw.Binary(buf[:read])
}

// copyChunk implements the chunk contract over an in-memory string.
func copyChunk(buf []byte, src string, offset uint64) (int, bool) {
	if offset >= uint64(len(src)) {
		return 0, false
	}
	n := copy(buf, src[offset:])
	return n, offset+uint64(n) < uint64(len(src))
}

package stub

import (
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// hostIOErr writes the `F-1,errno` failure reply.
func hostIOErr(rw *proto.ResponseWriter, err error) error {
	if werr := rw.Str("F-1,"); werr != nil {
		return werr
	}
	return rw.Num(uint64(target.HostIOErrnoOf(err)))
}

// hostIOResult writes `F<n>` on success or the failure reply.
func hostIOResult(rw *proto.ResponseWriter, n int, err error) error {
	if err != nil {
		return hostIOErr(rw, err)
	}
	if werr := rw.Str("F"); werr != nil {
		return werr
	}
	return rw.Num(uint64(n))
}

func (s *Session) handleHostIO(rw *proto.ResponseWriter, cmd proto.Command) (handlerResult, error) {
	switch cmd := cmd.(type) {
	case proto.HostOpen:
		if s.caps.hostOpen == nil {
			return handled, nil
		}
		fd, err := s.caps.hostOpen.HostOpen(cmd.Path, cmd.Flags, cmd.Mode)
		return handled, hostIOResult(rw, fd, err)

	case proto.HostClose:
		if s.caps.hostClose == nil {
			return handled, nil
		}
		return handled, hostIOResult(rw, 0, s.caps.hostClose.HostClose(cmd.FD))

	case proto.HostPread:
		if s.caps.hostPread == nil {
			return handled, nil
		}
		// binary data may double in size when escaped
		max := (s.buf.Size() - 16) / 2
		count := cmd.Count
		if count > max {
			count = max
		}
		scratch := s.buf.Scratch(0)
		if count > len(scratch) {
			count = len(scratch)
		}
		n, err := s.caps.hostPread.HostPread(cmd.FD, cmd.Offset, scratch[:count])
		if err != nil {
			return handled, hostIOErr(rw, err)
		}
		if werr := rw.Str("F"); werr != nil {
			return handled, werr
		}
		if werr := rw.Num(uint64(n)); werr != nil {
			return handled, werr
		}
		if werr := rw.Str(";"); werr != nil {
			return handled, werr
		}
		return handled, rw.Binary(scratch[:n])

	case proto.HostPwrite:
		if s.caps.hostPwrite == nil {
			return handled, nil
		}
		n, err := s.caps.hostPwrite.HostPwrite(cmd.FD, cmd.Offset, cmd.Data)
		return handled, hostIOResult(rw, n, err)

	case proto.HostFstat:
		if s.caps.hostFstat == nil {
			return handled, nil
		}
		st, err := s.caps.hostFstat.HostFstat(cmd.FD)
		if err != nil {
			return handled, hostIOErr(rw, err)
		}
		var buf [64]byte
		encodeHostStat(&st, buf[:])
		if werr := rw.Str("F"); werr != nil {
			return handled, werr
		}
		if werr := rw.Num(uint64(len(buf))); werr != nil {
			return handled, werr
		}
		if werr := rw.Str(";"); werr != nil {
			return handled, werr
		}
		return handled, rw.Binary(buf[:])

	case proto.HostUnlink:
		if s.caps.hostUnlink == nil {
			return handled, nil
		}
		return handled, hostIOResult(rw, 0, s.caps.hostUnlink.HostUnlink(cmd.Path))

	case proto.HostReadlink:
		if s.caps.hostReadlink == nil {
			return handled, nil
		}
		// cmd.Path aliases the packet buffer, so the result cannot be
		// built there
		var link [512]byte
		scratch := link[:]
		n, err := s.caps.hostReadlink.HostReadlink(cmd.Path, scratch)
		if err != nil {
			return handled, hostIOErr(rw, err)
		}
		if werr := rw.Str("F"); werr != nil {
			return handled, werr
		}
		if werr := rw.Num(uint64(n)); werr != nil {
			return handled, werr
		}
		if werr := rw.Str(";"); werr != nil {
			return handled, werr
		}
		return handled, rw.Binary(scratch[:n])

	case proto.HostSetfs:
		if s.caps.hostSetfs == nil {
			return handled, nil
		}
		return handled, hostIOResult(rw, 0, s.caps.hostSetfs.HostSetfs(cmd.PID))
	}
	return handled, nil
}

// encodeHostStat lays out the vFile:fstat reply struct, all fields
// big-endian regardless of target byte order.
func encodeHostStat(st *target.HostStat, buf []byte) {
	be32 := func(off int, v uint32) {
		buf[off] = byte(v >> 24)
		buf[off+1] = byte(v >> 16)
		buf[off+2] = byte(v >> 8)
		buf[off+3] = byte(v)
	}
	be64 := func(off int, v uint64) {
		be32(off, uint32(v>>32))
		be32(off+4, uint32(v))
	}
	be32(0, st.Dev)
	be32(4, st.Ino)
	be32(8, st.Mode)
	be32(12, st.Nlink)
	be32(16, st.UID)
	be32(20, st.GID)
	be32(24, st.Rdev)
	be64(28, st.Size)
	be64(36, st.Blksize)
	be64(44, st.Blocks)
	be32(52, st.Atime)
	be32(56, st.Mtime)
	be32(60, st.Ctime)
}

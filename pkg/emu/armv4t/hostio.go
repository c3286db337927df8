package armv4t

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdbstub-go/gdbstub/pkg/target"
)

// hostIO serves vFile requests against a sandbox directory; paths are
// resolved inside root, with leading ".." components clamped at root, and
// a resolved path that does not lie under root fails with EACCES.
type hostIO struct {
	root   string
	fds    map[int]*os.File
	nextFD int
}

func newHostIO(root string) *hostIO {
	return &hostIO{root: root, fds: make(map[int]*os.File), nextFD: 3}
}

func (h *hostIO) resolve(path []byte) (string, error) {
	clean := filepath.Join(h.root, filepath.Clean("/"+string(path)))
	if clean != h.root && !strings.HasPrefix(clean, h.root+string(filepath.Separator)) {
		return "", &target.HostIOError{Errno: target.HostEACCES}
	}
	return clean, nil
}

func (h *hostIO) SupportOpen() target.HostIOOpenOps         { return h }
func (h *hostIO) SupportClose() target.HostIOCloseOps       { return h }
func (h *hostIO) SupportPread() target.HostIOPreadOps       { return h }
func (h *hostIO) SupportPwrite() target.HostIOPwriteOps     { return h }
func (h *hostIO) SupportFstat() target.HostIOFstatOps       { return h }
func (h *hostIO) SupportUnlink() target.HostIOUnlinkOps     { return h }
func (h *hostIO) SupportReadlink() target.HostIOReadlinkOps { return h }
func (h *hostIO) SupportSetfs() target.HostIOSetfsOps       { return h }

// openFlags translates protocol open flags to os.OpenFile flags.
func openFlags(flags uint64) int {
	var f int
	switch flags & 0x3 {
	case target.HostOpenRDONLY:
		f = os.O_RDONLY
	case target.HostOpenWRONLY:
		f = os.O_WRONLY
	case target.HostOpenRDWR:
		f = os.O_RDWR
	}
	if flags&target.HostOpenAppend != 0 {
		f |= os.O_APPEND
	}
	if flags&target.HostOpenCreat != 0 {
		f |= os.O_CREATE
	}
	if flags&target.HostOpenTrunc != 0 {
		f |= os.O_TRUNC
	}
	if flags&target.HostOpenExcl != 0 {
		f |= os.O_EXCL
	}
	return f
}

func (h *hostIO) HostOpen(path []byte, flags, mode uint64) (int, error) {
	name, err := h.resolve(path)
	if err != nil {
		return 0, err
	}
	f, err := os.OpenFile(name, openFlags(flags), os.FileMode(mode)&0777)
	if err != nil {
		return 0, err
	}
	fd := h.nextFD
	h.nextFD++
	h.fds[fd] = f
	return fd, nil
}

func (h *hostIO) HostClose(fd int) error {
	f := h.fds[fd]
	if f == nil {
		return &target.HostIOError{Errno: target.HostEBADF}
	}
	delete(h.fds, fd)
	return f.Close()
}

func (h *hostIO) HostPread(fd int, offset uint64, buf []byte) (int, error) {
	f := h.fds[fd]
	if f == nil {
		return 0, &target.HostIOError{Errno: target.HostEBADF}
	}
	n, err := f.ReadAt(buf, int64(offset))
	if n > 0 || err == nil || err == io.EOF {
		return n, nil
	}
	return 0, err
}

func (h *hostIO) HostPwrite(fd int, offset uint64, data []byte) (int, error) {
	f := h.fds[fd]
	if f == nil {
		return 0, &target.HostIOError{Errno: target.HostEBADF}
	}
	return f.WriteAt(data, int64(offset))
}

func (h *hostIO) HostFstat(fd int) (target.HostStat, error) {
	var st target.HostStat
	f := h.fds[fd]
	if f == nil {
		return st, &target.HostIOError{Errno: target.HostEBADF}
	}
	fi, err := f.Stat()
	if err != nil {
		return st, err
	}
	st.Mode = uint32(fi.Mode().Perm())
	if fi.IsDir() {
		st.Mode |= 0o40000
	} else {
		st.Mode |= 0o100000
	}
	st.Nlink = 1
	st.Size = uint64(fi.Size())
	st.Blksize = 512
	st.Blocks = (uint64(fi.Size()) + 511) / 512
	mtime := uint32(fi.ModTime().Unix())
	st.Atime, st.Mtime, st.Ctime = mtime, mtime, mtime
	return st, nil
}

func (h *hostIO) HostUnlink(path []byte) error {
	name, err := h.resolve(path)
	if err != nil {
		return err
	}
	return os.Remove(name)
}

func (h *hostIO) HostReadlink(path []byte, buf []byte) (int, error) {
	name, err := h.resolve(path)
	if err != nil {
		return 0, err
	}
	dest, err := os.Readlink(name)
	if err != nil {
		return 0, err
	}
	return copy(buf, dest), nil
}

func (h *hostIO) HostSetfs(pid int) error {
	// single filesystem; accept 0 (the stub's) and the fake pid
	if pid != 0 && pid != 1 {
		return &target.HostIOError{Errno: target.HostEINVAL}
	}
	return nil
}

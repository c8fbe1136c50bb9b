package fs

import (
	"xipfs/descriptor"
	"xipfs/mount"
	"xipfs/xerrno"

	"golang.org/x/sys/unix"
)

// Read copies up to len(dest) bytes from h's current position, which
// it advances by the number of bytes read. Reading the virtual
// .xipfs_infos descriptor streams the mount structure's bytes instead
// of routing through the record store.
func Read(m *mount.Mount, h descriptor.Handle, dest []byte) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	m.Lock()
	defer m.Unlock()

	fd, err := m.Descs.File(h)
	if err != nil {
		return 0, err
	}
	if !readable(OpenFlag(fd.Flags)) {
		return 0, xerrno.Posix(unix.EBADF)
	}

	if fd.Record == nil {
		data := m.Info()
		if fd.Pos >= uint32(len(data)) {
			return 0, nil
		}
		n := copy(dest, data[fd.Pos:])
		fd.Pos += uint32(n)
		return n, nil
	}

	maxPos := fd.Record.MaxPos()
	if fd.Pos >= maxPos {
		return 0, nil
	}
	n := uint32(len(dest))
	if remaining := maxPos - fd.Pos; n > remaining {
		n = remaining
	}
	if err := m.Store.ReadAt(fd.Record, fd.Pos, dest[:n]); err != nil {
		return 0, err
	}
	fd.Pos += n
	return int(n), nil
}

// Write writes len(src) bytes at h's current position, advancing it,
// and stops short at the record's capacity rather than erroring.
func Write(m *mount.Mount, h descriptor.Handle, src []byte) (int, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	m.Lock()
	defer m.Unlock()

	fd, err := m.Descs.File(h)
	if err != nil {
		return 0, err
	}
	if !writable(OpenFlag(fd.Flags)) {
		return 0, xerrno.Posix(unix.EBADF)
	}
	if fd.Record == nil {
		return 0, xerrno.Posix(unix.EBADF)
	}

	pos := fd.Pos
	if OpenFlag(fd.Flags)&OAppend != 0 {
		pos = fd.Record.Size()
	}
	n, err := m.Store.WriteAt(fd.Record, pos, src)
	if err != nil {
		return n, err
	}
	if err := m.Buf.Flush(); err != nil {
		return n, err
	}
	fd.Pos = pos + uint32(n)
	return n, nil
}

// Lseek recomputes h's position per whence, applying the lazy
// size-commit rule: if the descriptor's current position is past the
// committed size and the new position lands before it, the old
// position is committed as the new size before it moves.
func Lseek(m *mount.Mount, h descriptor.Handle, offset int64, whence Whence) (uint32, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	m.Lock()
	defer m.Unlock()

	fd, err := m.Descs.File(h)
	if err != nil {
		return 0, err
	}
	if fd.Record == nil {
		return 0, xerrno.Posix(unix.EBADF)
	}

	var base int64
	switch whence {
	case SeekSet:
		base = 0
	case SeekCur:
		base = int64(fd.Pos)
	case SeekEnd:
		base = int64(fd.Record.Size())
	default:
		return 0, xerrno.New(xerrno.EINVAL)
	}
	newPos := base + offset
	if newPos < 0 || uint32(newPos) > fd.Record.MaxPos() {
		return 0, xerrno.New(xerrno.EMAXOFF)
	}

	if fd.Pos > fd.Record.Size() && uint32(newPos) < fd.Pos {
		if err := m.Store.SetSize(fd.Record, fd.Pos); err != nil {
			return 0, err
		}
	}
	fd.Pos = uint32(newPos)
	return fd.Pos, nil
}

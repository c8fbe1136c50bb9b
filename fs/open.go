package fs

import (
	"xipfs/descriptor"
	"xipfs/mount"
	"xipfs/pathclassifier"
	"xipfs/record"
	"xipfs/xerrno"

	"golang.org/x/sys/unix"
)

// Open resolves path against m's record list and tracks a descriptor
// for it, per the flag-based policy of §4.7.
func Open(m *mount.Mount, path string, flags OpenFlag) (descriptor.Handle, error) {
	if err := m.Validate(); err != nil {
		return -1, err
	}
	if err := checkPathLen(path); err != nil {
		return -1, err
	}
	if flags&^OpenFlag(knownFlags) != 0 {
		return -1, xerrno.New(xerrno.EINVAL)
	}

	m.Lock()
	defer m.Unlock()

	if isVirtualInfos(path) {
		if writable(flags) {
			return -1, xerrno.Posix(unix.EACCES)
		}
		return m.Descs.TrackFile(&descriptor.FileDesc{Record: nil, Pos: 0, Flags: int(flags)})
	}

	res, err := classify(m, path)
	if err != nil {
		return -1, err
	}

	var rec *record.Record
	switch res.Tag {
	case pathclassifier.ExistsAsFile:
		if flags&OCreat != 0 && flags&OExcl != 0 {
			return -1, xerrno.Posix(unix.EEXIST)
		}
		rec = res.Witness
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		return -1, xerrno.Posix(unix.EISDIR)
	case pathclassifier.InvalidNotDirs:
		return -1, xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.InvalidNotFound:
		return -1, xerrno.Posix(unix.ENOENT)
	case pathclassifier.Creatable:
		if flags&OCreat == 0 {
			return -1, xerrno.Posix(unix.ENOENT)
		}
		if err := evictParentPlaceholder(m, res); err != nil {
			return -1, err
		}
		rec, err = m.Store.NewFile(path, 0, 0)
		if err != nil {
			return -1, err
		}
		invalidate(m)
		trace("created %q", path)
	default:
		return -1, xerrno.New(xerrno.EINVAL)
	}

	pos := uint32(0)
	if flags&OAppend != 0 {
		pos = rec.Size()
	}
	return m.Descs.TrackFile(&descriptor.FileDesc{Record: rec, Pos: pos, Flags: int(flags)})
}

// evictParentPlaceholder removes the empty-directory placeholder
// record occupying path's parent slot, if one exists, before a file is
// materialized there for the first time.
func evictParentPlaceholder(m *mount.Mount, res *pathclassifier.Result) error {
	all, err := m.Store.List()
	if err != nil {
		return err
	}
	for _, r := range all {
		if r.Path == res.Dirname {
			if err := m.Store.Remove(r, m.Descs); err != nil {
				return err
			}
			invalidate(m)
			return nil
		}
	}
	return nil
}

// Close commits the descriptor's position as the record's size if it
// advanced past the last committed size, then untracks it.
func Close(m *mount.Mount, h descriptor.Handle) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()

	fd, err := m.Descs.File(h)
	if err != nil {
		return err
	}
	if fd.Record != nil && fd.Pos > fd.Record.Size() {
		if err := m.Store.SetSize(fd.Record, fd.Pos); err != nil {
			return err
		}
	}
	m.Descs.Untrack(h)
	return nil
}

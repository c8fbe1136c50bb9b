package fs

import (
	"xipfs/descriptor"
	"xipfs/mount"
	"xipfs/pathclassifier"
	"xipfs/xerrno"

	"golang.org/x/sys/unix"
)

// StatInfo projects a record's metadata into a POSIX-like stat buffer.
type StatInfo struct {
	Size    uint32
	Blksize uint32
	Blocks  uint32
	IsDir   bool
	Exec    bool
}

// Stat classifies path and reports its metadata, without requiring an
// open descriptor.
func Stat(m *mount.Mount, path string) (*StatInfo, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := checkPathLen(path); err != nil {
		return nil, err
	}
	m.Lock()
	defer m.Unlock()

	if isVirtualInfos(path) {
		return &StatInfo{Size: uint32(len(m.Info())), Blksize: m.Geo.PageSize}, nil
	}

	res, err := classify(m, path)
	if err != nil {
		return nil, err
	}
	switch res.Tag {
	case pathclassifier.ExistsAsFile:
		r := res.Witness
		return &StatInfo{
			Size:    r.Size(),
			Blksize: m.Geo.PageSize,
			Blocks:  r.Reserved / m.Geo.PageSize,
			Exec:    r.Exec != 0,
		}, nil
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		st := &StatInfo{IsDir: true, Blksize: m.Geo.PageSize}
		if res.Witness != nil {
			st.Blocks = res.Witness.Reserved / m.Geo.PageSize
		}
		return st, nil
	default:
		return nil, xerrno.Posix(unix.ENOENT)
	}
}

// Fstat reports metadata for an already-open descriptor; st_size is
// max(committed size, descriptor position), matching a descriptor that
// has been seeked past its last committed size. The virtual
// .xipfs_infos descriptor yields EBADF here, though it remains
// readable.
func Fstat(m *mount.Mount, h descriptor.Handle) (*StatInfo, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.Lock()
	defer m.Unlock()

	fd, err := m.Descs.File(h)
	if err != nil {
		return nil, err
	}
	if fd.Record == nil {
		return nil, xerrno.Posix(unix.EBADF)
	}
	size := fd.Record.Size()
	if fd.Pos > size {
		size = fd.Pos
	}
	return &StatInfo{
		Size:    size,
		Blksize: m.Geo.PageSize,
		Blocks:  fd.Record.Reserved / m.Geo.PageSize,
		Exec:    fd.Record.Exec != 0,
	}, nil
}

// VFSStat reports mount-wide capacity metadata.
type VFSStat struct {
	Bsize      uint32
	Blocks     uint32
	BlocksFree uint32
}

// Statvfs reports the mount's overall page accounting.
func Statvfs(m *mount.Mount) (*VFSStat, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.Lock()
	defer m.Unlock()
	free, err := m.Store.FreePages()
	if err != nil {
		return nil, err
	}
	return &VFSStat{
		Bsize:      m.Geo.PageSize,
		Blocks:     m.Geo.NumPages,
		BlocksFree: free,
	}, nil
}

package fs

import (
	"xipfs/mount"
	"xipfs/pathclassifier"
	"xipfs/record"
	"xipfs/xerrno"

	"golang.org/x/sys/unix"
)

// LookupExecutable resolves path to its record, requiring it exist as
// a plain file with its exec bit set — the check exec performs before
// ever touching the execution context (§4.8 step 1).
func LookupExecutable(m *mount.Mount, path string) (*record.Record, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.Lock()
	defer m.Unlock()

	res, err := classify(m, path)
	if err != nil {
		return nil, err
	}
	switch res.Tag {
	case pathclassifier.ExistsAsFile:
		if res.Witness.Exec == 0 {
			return nil, xerrno.Posix(unix.EACCES)
		}
		return res.Witness, nil
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		return nil, xerrno.Posix(unix.EISDIR)
	case pathclassifier.InvalidNotDirs:
		return nil, xerrno.Posix(unix.ENOTDIR)
	default: // InvalidNotFound, Creatable
		return nil, xerrno.Posix(unix.ENOENT)
	}
}

// ReadPayload reads rec's full committed payload through the record
// store, under the mount's lock.
func ReadPayload(m *mount.Mount, rec *record.Record) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.Lock()
	defer m.Unlock()
	buf := make([]byte, rec.Size())
	if err := m.Store.ReadAt(rec, 0, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

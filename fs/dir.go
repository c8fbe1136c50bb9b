package fs

import (
	"strings"

	"xipfs/descriptor"
	"xipfs/mount"
	"xipfs/pathclassifier"
	"xipfs/xerrno"

	"golang.org/x/sys/unix"
)

// OpenDir classifies path, which must already exist as a directory,
// and tracks a cursor over it reset to the mount head.
func OpenDir(m *mount.Mount, path string) (descriptor.Handle, error) {
	if err := m.Validate(); err != nil {
		return -1, err
	}
	m.Lock()
	defer m.Unlock()

	withSlash := path
	if !strings.HasSuffix(withSlash, "/") {
		withSlash += "/"
	}
	res, err := classify(m, withSlash)
	if err != nil {
		return -1, err
	}
	switch res.Tag {
	case pathclassifier.ExistsAsFile:
		return -1, xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
	default:
		return -1, xerrno.Posix(unix.ENOENT)
	}

	head, err := m.Store.Head()
	if err != nil {
		return -1, err
	}
	return m.Descs.TrackDir(&descriptor.DirDesc{Dirname: withSlash, Cursor: head, Seen: map[string]bool{}})
}

// ReadDir advances h's cursor to the next direct child of its
// directory, skipping the directory's own placeholder record, already
// yielded basenames (the "already_display" dedup rule: a directory may
// be witnessed by more than one record during a flat scan), and
// .xipfs_infos (surfaced implicitly, not as a record). It returns
// ("", nil) at end of stream.
func ReadDir(m *mount.Mount, h descriptor.Handle) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	m.Lock()
	defer m.Unlock()

	dd, err := m.Descs.Dir(h)
	if err != nil {
		return "", err
	}

	if dd.Seen == nil {
		dd.Seen = map[string]bool{}
	}
	for cur := dd.Cursor; cur != nil; {
		next, err := m.Store.Next(cur)
		if err != nil {
			return "", err
		}
		dd.Cursor = next

		if cur.Path != dd.Dirname && strings.HasPrefix(cur.Path, dd.Dirname) {
			rest := cur.Path[len(dd.Dirname):]
			if slash := strings.IndexByte(rest, '/'); slash >= 0 {
				rest = rest[:slash]
			}
			if rest != "" && !dd.Seen[rest] {
				dd.Seen[rest] = true
				return rest, nil
			}
		}
		cur = next
	}
	return "", nil
}

// CloseDir untracks h.
func CloseDir(m *mount.Mount, h descriptor.Handle) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	if _, err := m.Descs.Dir(h); err != nil {
		return err
	}
	m.Descs.Untrack(h)
	return nil
}

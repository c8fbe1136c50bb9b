package fs

import (
	"strings"

	"xipfs/mount"
	"xipfs/pathclassifier"
	"xipfs/xerrno"

	"golang.org/x/sys/unix"
)

// NewFile allocates a new, empty file at path, failing if it already
// exists or its parent directory doesn't. It is the public new_file
// verb of §6; O_CREAT opens allocate through the record store directly.
func NewFile(m *mount.Mount, path string, size uint32, exec uint32) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := checkPathLen(path); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()

	res, err := classify(m, path)
	if err != nil {
		return err
	}
	switch res.Tag {
	case pathclassifier.ExistsAsFile, pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		return xerrno.Posix(unix.EEXIST)
	case pathclassifier.InvalidNotDirs:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.InvalidNotFound:
		return xerrno.Posix(unix.ENOENT)
	}
	if err := evictParentPlaceholder(m, res); err != nil {
		return err
	}
	if _, err := m.Store.NewFile(path, size, exec); err != nil {
		return err
	}
	invalidate(m)
	return nil
}

// Unlink removes a file, materializing an empty-directory placeholder
// for its parent if that parent (not root) now has no other children.
func Unlink(m *mount.Mount, path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()

	if isVirtualInfos(path) {
		return xerrno.Posix(unix.ENOENT)
	}

	res, err := classify(m, path)
	if err != nil {
		return err
	}
	switch res.Tag {
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		return xerrno.Posix(unix.EISDIR)
	case pathclassifier.InvalidNotDirs:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.InvalidNotFound, pathclassifier.Creatable:
		return xerrno.Posix(unix.ENOENT)
	}

	if err := m.Store.Remove(res.Witness, m.Descs); err != nil {
		return err
	}
	invalidate(m)

	if res.Parent == 1 && res.Dirname != "/" {
		if _, err := m.Store.NewFile(res.Dirname, 0, 0); err != nil {
			return err
		}
		invalidate(m)
	}
	return nil
}

// Mkdir materializes an empty-directory placeholder record at path,
// which must classify as Creatable.
func Mkdir(m *mount.Mount, path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()

	withSlash := path
	if !strings.HasSuffix(withSlash, "/") {
		withSlash += "/"
	}
	res, err := classify(m, withSlash)
	if err != nil {
		return err
	}
	switch res.Tag {
	case pathclassifier.ExistsAsFile:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		return xerrno.Posix(unix.EEXIST)
	case pathclassifier.InvalidNotDirs:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.InvalidNotFound:
		return xerrno.Posix(unix.ENOENT)
	}

	if err := evictParentPlaceholder(m, res); err != nil {
		return err
	}
	if _, err := m.Store.NewFile(withSlash, 0, 0); err != nil {
		return err
	}
	invalidate(m)
	return nil
}

// Rmdir removes an empty directory, re-materializing its own parent's
// placeholder if that parent becomes empty as a result.
func Rmdir(m *mount.Mount, path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()

	withSlash := path
	if !strings.HasSuffix(withSlash, "/") {
		withSlash += "/"
	}
	res, err := classify(m, withSlash)
	if err != nil {
		return err
	}
	switch res.Tag {
	case pathclassifier.ExistsAsFile:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.ExistsAsNonemptyDir:
		return xerrno.Posix(unix.ENOTEMPTY)
	case pathclassifier.InvalidNotDirs:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.InvalidNotFound, pathclassifier.Creatable:
		return xerrno.Posix(unix.ENOENT)
	}

	if err := m.Store.Remove(res.Witness, m.Descs); err != nil {
		return err
	}
	invalidate(m)

	if res.Parent == 1 && res.Dirname != "/" {
		if _, err := m.Store.NewFile(res.Dirname, 0, 0); err != nil {
			return err
		}
		invalidate(m)
	}
	return nil
}

// Rename moves from to to, applying the kind matrix of §4.7: a file
// may replace a file or a Creatable slot; a directory may rename onto
// an empty directory or a Creatable slot, or prefix-rename all its
// children; renaming a directory into its own subtree is rejected.
func Rename(m *mount.Mount, from, to string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()

	fromRes, err := classify(m, from)
	if err != nil {
		return err
	}
	toRes, err := classify(m, to)
	if err != nil {
		return err
	}

	switch fromRes.Tag {
	case pathclassifier.ExistsAsFile:
		return renameFile(m, fromRes, toRes)
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		return renameDir(m, fromRes, toRes)
	case pathclassifier.InvalidNotDirs:
		return xerrno.Posix(unix.ENOTDIR)
	default:
		return xerrno.Posix(unix.ENOENT)
	}
}

func renameFile(m *mount.Mount, fromRes, toRes *pathclassifier.Result) error {
	switch toRes.Tag {
	case pathclassifier.ExistsAsEmptyDir, pathclassifier.ExistsAsNonemptyDir:
		return xerrno.Posix(unix.EISDIR)
	case pathclassifier.InvalidNotDirs:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.InvalidNotFound:
		return xerrno.Posix(unix.ENOENT)
	case pathclassifier.ExistsAsFile:
		if err := m.Store.Remove(toRes.Witness, m.Descs); err != nil {
			return err
		}
		invalidate(m)
	case pathclassifier.Creatable:
		if err := evictParentPlaceholder(m, toRes); err != nil {
			return err
		}
	}

	// Removing the target (or its parent placeholder) may have
	// compacted the chain and shifted fromRes.Witness's on-flash
	// address without updating this already-captured copy: reclassify
	// from's path fresh rather than reuse a possibly stale Witness.
	fresh, err := classify(m, fromRes.Path)
	if err != nil {
		return err
	}
	if fresh.Tag != pathclassifier.ExistsAsFile {
		return xerrno.Wrap(xerrno.ELINK, "rename source vanished during compaction")
	}

	if err := m.Store.Rename(fresh.Witness, toRes.Path); err != nil {
		return err
	}
	invalidate(m)
	return reclaimOrphanedParent(m, fresh)
}

func renameDir(m *mount.Mount, fromRes, toRes *pathclassifier.Result) error {
	fromPrefix := fromRes.Path
	if !strings.HasSuffix(fromPrefix, "/") {
		fromPrefix += "/"
	}
	toPrefix := toRes.Path
	if !strings.HasSuffix(toPrefix, "/") {
		toPrefix += "/"
	}
	if strings.HasPrefix(toPrefix, fromPrefix) {
		return xerrno.New(xerrno.EINVAL)
	}

	switch toRes.Tag {
	case pathclassifier.ExistsAsFile:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.ExistsAsNonemptyDir:
		return xerrno.Posix(unix.ENOTEMPTY)
	case pathclassifier.InvalidNotDirs:
		return xerrno.Posix(unix.ENOTDIR)
	case pathclassifier.InvalidNotFound:
		return xerrno.Posix(unix.ENOENT)
	case pathclassifier.ExistsAsEmptyDir:
		if err := m.Store.Remove(toRes.Witness, m.Descs); err != nil {
			return err
		}
	case pathclassifier.Creatable:
		if err := evictParentPlaceholder(m, toRes); err != nil {
			return err
		}
	}

	if _, err := m.Store.RenamePrefix(fromPrefix, toPrefix); err != nil {
		return err
	}
	invalidate(m)
	return reclaimOrphanedParent(m, fromRes)
}

// reclaimOrphanedParent re-materializes fromRes's parent directory
// placeholder if the moved entry was its only remaining child, the
// same parent==1 rule unlink and rmdir apply.
func reclaimOrphanedParent(m *mount.Mount, fromRes *pathclassifier.Result) error {
	if fromRes.Dirname == "/" || fromRes.Parent != 1 {
		return nil
	}
	if _, err := m.Store.NewFile(fromRes.Dirname, 0, 0); err != nil {
		return err
	}
	invalidate(m)
	return nil
}

// Format erases the whole mount window, untracks every descriptor and
// invalidates the classification cache.
func Format(m *mount.Mount) error {
	if err := m.Format(); err != nil {
		return err
	}
	invalidate(m)
	return nil
}

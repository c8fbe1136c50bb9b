package fs

import (
	"testing"

	"xipfs/flash"
	"xipfs/mount"
)

func newTestMount(t *testing.T) *mount.Mount {
	t.Helper()
	geo := flash.Geometry{
		Base:           0x08000000,
		PageSize:       512,
		NumPages:       8,
		WriteBlockSize: 4,
		EraseState:     0xFF,
	}
	dev := flash.NewMemDevice(geo)
	m := mount.New("test", geo, dev)
	if err := Format(m); err != nil {
		t.Fatalf("format: %v", err)
	}
	if err := m.Mount(); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return m
}

func TestOpenCreateWriteReadClose(t *testing.T) {
	m := newTestMount(t)
	h, err := Open(m, "/a", OCreat|ORdwr)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := Write(m, h, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Close(m, h); err != nil {
		t.Fatalf("close: %v", err)
	}

	h2, err := Open(m, "/a", ORdonly)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	dest := make([]byte, 5)
	n, err := Read(m, h2, dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != 5 || string(dest) != "hello" {
		t.Fatalf("expected hello, got %q (%d)", dest, n)
	}
	if err := Close(m, h2); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpenExclOnExistingFileFails(t *testing.T) {
	m := newTestMount(t)
	if _, err := Open(m, "/a", OCreat|ORdwr); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := Open(m, "/a", OCreat|OExcl|ORdwr); err == nil {
		t.Fatalf("expected EEXIST opening with O_CREAT|O_EXCL on existing file")
	}
}

func TestMkdirRmdir(t *testing.T) {
	m := newTestMount(t)
	if err := Mkdir(m, "/dir"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	st, err := Stat(m, "/dir")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !st.IsDir {
		t.Fatalf("expected directory")
	}
	if err := Rmdir(m, "/dir"); err != nil {
		t.Fatalf("rmdir: %v", err)
	}
	if _, err := Stat(m, "/dir"); err == nil {
		t.Fatalf("expected stat to fail after rmdir")
	}
}

func TestUnlinkRematerializesEmptyParent(t *testing.T) {
	m := newTestMount(t)
	if err := Mkdir(m, "/dir"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := NewFile(m, "/dir/f", 10, 0); err != nil {
		t.Fatalf("new file: %v", err)
	}
	if err := Unlink(m, "/dir/f"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	st, err := Stat(m, "/dir")
	if err != nil {
		t.Fatalf("expected /dir to still exist as empty dir: %v", err)
	}
	if !st.IsDir {
		t.Fatalf("expected directory")
	}
}

func TestRenameFileToCreatable(t *testing.T) {
	m := newTestMount(t)
	if err := NewFile(m, "/a", 10, 0); err != nil {
		t.Fatalf("new file: %v", err)
	}
	if err := Rename(m, "/a", "/b"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := Stat(m, "/a"); err == nil {
		t.Fatalf("expected /a gone after rename")
	}
	if _, err := Stat(m, "/b"); err != nil {
		t.Fatalf("expected /b to exist after rename: %v", err)
	}
}

func TestRenameFileOntoExistingFileSurvivesCompaction(t *testing.T) {
	m := newTestMount(t)
	// /b is allocated first (lower address), /a second (higher
	// address), so removing /b's record during the rename compacts
	// the chain and shifts /a's on-flash address down.
	if err := NewFile(m, "/b", 10, 0); err != nil {
		t.Fatalf("new file /b: %v", err)
	}
	if err := NewFile(m, "/a", 10, 0); err != nil {
		t.Fatalf("new file /a: %v", err)
	}
	h, err := Open(m, "/a", OWronly)
	if err != nil {
		t.Fatalf("open /a: %v", err)
	}
	if _, err := Write(m, h, []byte("hello")); err != nil {
		t.Fatalf("write /a: %v", err)
	}
	if err := Close(m, h); err != nil {
		t.Fatalf("close /a: %v", err)
	}

	if err := Rename(m, "/a", "/b"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := Stat(m, "/a"); err == nil {
		t.Fatalf("expected /a gone after rename")
	}
	st, err := Stat(m, "/b")
	if err != nil {
		t.Fatalf("expected /b to exist after rename: %v", err)
	}
	if st.Size != 5 {
		t.Fatalf("expected renamed file to keep its size 5, got %d", st.Size)
	}

	rh, err := Open(m, "/b", ORdonly)
	if err != nil {
		t.Fatalf("open /b: %v", err)
	}
	defer Close(m, rh)
	buf := make([]byte, 5)
	if _, err := Read(m, rh, buf); err != nil {
		t.Fatalf("read /b: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("expected contents %q, got %q", "hello", buf)
	}
}

func TestRenameDirRejectsIntoOwnSubtree(t *testing.T) {
	m := newTestMount(t)
	if err := Mkdir(m, "/dir"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := Rename(m, "/dir", "/dir/sub"); err == nil {
		t.Fatalf("expected rejection renaming directory into its own subtree")
	}
}

func TestOpenDirReadDirListsChildrenOnce(t *testing.T) {
	m := newTestMount(t)
	if err := Mkdir(m, "/dir"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := NewFile(m, "/dir/a", 10, 0); err != nil {
		t.Fatalf("new file a: %v", err)
	}
	if err := NewFile(m, "/dir/b", 10, 0); err != nil {
		t.Fatalf("new file b: %v", err)
	}

	h, err := OpenDir(m, "/dir")
	if err != nil {
		t.Fatalf("opendir: %v", err)
	}
	names := map[string]bool{}
	for {
		name, err := ReadDir(m, h)
		if err != nil {
			t.Fatalf("readdir: %v", err)
		}
		if name == "" {
			break
		}
		if names[name] {
			t.Fatalf("duplicate entry %q from readdir", name)
		}
		names[name] = true
	}
	if !names["a"] || !names["b"] {
		t.Fatalf("expected a and b, got %v", names)
	}
	if err := CloseDir(m, h); err != nil {
		t.Fatalf("closedir: %v", err)
	}
}

func TestVirtualInfosFileIsReadOnly(t *testing.T) {
	m := newTestMount(t)
	if _, err := Open(m, "/.xipfs_infos", OWronly); err == nil {
		t.Fatalf("expected write-open of virtual file to fail")
	}
	h, err := Open(m, "/.xipfs_infos", ORdonly)
	if err != nil {
		t.Fatalf("open virtual file: %v", err)
	}
	dest := make([]byte, 4096)
	n, err := Read(m, h, dest)
	if err != nil {
		t.Fatalf("read virtual file: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected non-empty virtual file contents")
	}
	if err := Unlink(m, "/.xipfs_infos"); err == nil {
		t.Fatalf("expected unlink of virtual file to fail")
	}
}

func TestFillMountThenUnlinkHeadFreesSpace(t *testing.T) {
	m := newTestMount(t)
	var err error
	for i := 0; ; i++ {
		name := "/" + string(rune('a'+i))
		err = NewFile(m, name, 1900, 0)
		if err != nil {
			break
		}
	}
	if err := Unlink(m, "/a"); err != nil {
		t.Fatalf("unlink head: %v", err)
	}
	if err := NewFile(m, "/z", 1900, 0); err != nil {
		t.Fatalf("expected space freed by unlink: %v", err)
	}
}

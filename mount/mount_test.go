package mount

import (
	"testing"

	"xipfs/flash"
	"xipfs/xerrno"
)

func testGeo() flash.Geometry {
	return flash.Geometry{
		Base:           0x08000000,
		PageSize:       512,
		NumPages:       8,
		WriteBlockSize: 4,
		EraseState:     0xFF,
	}
}

func newTestMount(t *testing.T) *Mount {
	t.Helper()
	geo := testGeo()
	dev := flash.NewMemDevice(geo)
	m := New("test", geo, dev)
	if err := m.Format(); err != nil {
		t.Fatalf("format: %v", err)
	}
	if err := m.Mount(); err != nil {
		t.Fatalf("mount: %v", err)
	}
	return m
}

func TestMountOnFreshlyFormattedImageSucceeds(t *testing.T) {
	m := newTestMount(t)
	if err := m.Validate(); err != nil {
		t.Fatalf("expected valid mount: %v", err)
	}
}

func TestValidateRejectsUnmounted(t *testing.T) {
	geo := testGeo()
	dev := flash.NewMemDevice(geo)
	m := New("test", geo, dev)
	if err := m.Validate(); err == nil {
		t.Fatalf("expected error validating unmounted mount")
	}
}

func TestUmountThenValidateFails(t *testing.T) {
	m := newTestMount(t)
	if err := m.Umount(); err != nil {
		t.Fatalf("umount: %v", err)
	}
	if err := m.Validate(); err == nil {
		t.Fatalf("expected validate to fail after umount")
	}
}

func TestMountFailsOnDirtyTail(t *testing.T) {
	geo := testGeo()
	dev := flash.NewMemDevice(geo)
	m := New("test", geo, dev)
	if _, err := m.Store.NewFile("/a", 10, 0); err != nil {
		t.Fatalf("new file: %v", err)
	}
	if err := dev.ProgramAligned(geo.Base+uint32(geo.PageSize*4), []byte{0x00, 0x00, 0x00, 0x00}); err != nil {
		t.Fatalf("dirty a page past tail: %v", err)
	}
	if err := m.Mount(); !xerrno.Is(err, xerrno.ENVMC) {
		t.Fatalf("expected ENVMC for dirty tail, got %v", err)
	}
}

package flash

import (
	"bytes"
	"testing"
)

func testGeometry() Geometry {
	return Geometry{
		Base:           0x08000000,
		PageSize:       256,
		NumPages:       8,
		WriteBlockSize: 4,
		EraseState:     0xFF,
	}
}

func TestErasePageIsIdempotent(t *testing.T) {
	geo := testGeometry()
	dev := NewMemDevice(geo)
	p := New(geo, dev)

	if err := p.ErasePage(0); err != nil {
		t.Fatalf("erase clean page: %v", err)
	}
	erased, err := p.IsErasedPage(0)
	if err != nil {
		t.Fatalf("check erased: %v", err)
	}
	if !erased {
		t.Fatalf("expected page 0 to be erased")
	}

	// Programming then re-erasing must fully restore the erased state.
	if err := p.ProgramWordAligned(geo.PageStart(0), []byte{0x00, 0x00, 0x00, 0x00}); err != nil {
		t.Fatalf("program: %v", err)
	}
	if err := p.ErasePage(0); err != nil {
		t.Fatalf("re-erase: %v", err)
	}
	got, err := dev.ReadAt(geo.PageStart(0), 4)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected erased bytes %v, got %v", want, got)
	}
}

func TestProgramAlignedOnlyClearsBits(t *testing.T) {
	geo := testGeometry()
	dev := NewMemDevice(geo)
	p := New(geo, dev)

	addr := geo.PageStart(1)
	if err := p.ProgramWordAligned(addr, []byte{0x0F, 0xFF, 0xFF, 0xFF}); err != nil {
		t.Fatalf("first program: %v", err)
	}
	// Attempting to set a bit that is already clear must fail verify.
	err := p.ProgramWordAligned(addr, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	if err == nil {
		t.Fatalf("expected verify failure when trying to set a cleared bit")
	}
}

func TestProgramAlignedRejectsMisalignment(t *testing.T) {
	geo := testGeometry()
	dev := NewMemDevice(geo)
	p := New(geo, dev)

	if err := p.ProgramWordAligned(geo.PageStart(0)+1, []byte{0x00, 0x00, 0x00, 0x00}); err == nil {
		t.Fatalf("expected alignment error for unaligned address")
	}
	if err := p.ProgramWordAligned(geo.PageStart(0), []byte{0x00, 0x00, 0x00}); err == nil {
		t.Fatalf("expected alignment error for unaligned length")
	}
}

func TestWriteUnalignedClearsOnlyTargetByte(t *testing.T) {
	geo := testGeometry()
	dev := NewMemDevice(geo)
	p := New(geo, dev)

	base := geo.PageStart(2)
	if err := p.WriteUnaligned(base+1, []byte{0x00}); err != nil {
		t.Fatalf("write unaligned: %v", err)
	}
	word, err := dev.ReadAt(base, 4)
	if err != nil {
		t.Fatalf("read word: %v", err)
	}
	want := []byte{0xFF, 0x00, 0xFF, 0xFF}
	if !bytes.Equal(word, want) {
		t.Fatalf("expected %v, got %v", want, word)
	}
}

func TestWriteUnalignedRejectsPageOverflow(t *testing.T) {
	geo := testGeometry()
	dev := NewMemDevice(geo)
	p := New(geo, dev)

	last := geo.PageStart(0) + geo.PageSize - 2
	err := p.WriteUnaligned(last, []byte{0x01, 0x02, 0x03, 0x04})
	if err == nil {
		t.Fatalf("expected page overflow error")
	}
}

func TestGeometryPredicates(t *testing.T) {
	geo := testGeometry()

	if !geo.In(geo.Base) {
		t.Errorf("base address should be in flash")
	}
	if geo.In(geo.EndAddr()) {
		t.Errorf("end address should not be in flash")
	}
	if !geo.PageAligned(geo.PageStart(3)) {
		t.Errorf("page start should be page aligned")
	}
	if geo.PageAligned(geo.PageStart(3) + 1) {
		t.Errorf("page start + 1 should not be page aligned")
	}
	if geo.PageOf(geo.PageStart(5)) != 5 {
		t.Errorf("expected page 5")
	}
}

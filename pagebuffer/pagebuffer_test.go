package pagebuffer

import (
	"bytes"
	"testing"

	"xipfs/flash"
)

func testPrim() *flash.Primitives {
	geo := flash.Geometry{
		Base:           0x1000,
		PageSize:       64,
		NumPages:       4,
		WriteBlockSize: 4,
		EraseState:     0xFF,
	}
	return flash.New(geo, flash.NewMemDevice(geo))
}

func TestWriteThenFlushPersists(t *testing.T) {
	prim := testPrim()
	buf := New(prim)

	addr := prim.Geo.PageStart(1) + 8
	if err := buf.Write(addr, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := buf.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got, err := prim.ReadAt(addr, 5)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestReadFlushesPriorDifferentPage(t *testing.T) {
	prim := testPrim()
	buf := New(prim)

	if err := buf.Write(prim.Geo.PageStart(0), []byte("AAAA")); err != nil {
		t.Fatalf("write page 0: %v", err)
	}
	dest := make([]byte, 4)
	if err := buf.Read(dest, prim.Geo.PageStart(2)); err != nil {
		t.Fatalf("read page 2: %v", err)
	}

	got, err := prim.ReadAt(prim.Geo.PageStart(0), 4)
	if err != nil {
		t.Fatalf("read back page 0: %v", err)
	}
	if !bytes.Equal(got, []byte("AAAA")) {
		t.Fatalf("expected page 0 to have been flushed before loading page 2, got %q", got)
	}
}

func TestFlushIsNoOpWhenUnchanged(t *testing.T) {
	prim := testPrim()
	buf := New(prim)

	dest := make([]byte, 4)
	if err := buf.Read(dest, prim.Geo.PageStart(0)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := buf.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	erased, err := prim.IsErasedPage(0)
	if err != nil {
		t.Fatalf("check erased: %v", err)
	}
	if !erased {
		t.Fatalf("page should remain erased when buffer content was never modified")
	}
}

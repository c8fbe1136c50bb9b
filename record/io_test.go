package record

import (
	"bytes"
	"testing"
)

func TestSetSizeAppendsAndReports(t *testing.T) {
	s := newTestStore(t, 4)
	rec, err := s.NewFile("/a", 200, 0)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	if rec.Size() != 0 {
		t.Fatalf("expected fresh record to report size 0, got %d", rec.Size())
	}
	if err := s.SetSize(rec, 5); err != nil {
		t.Fatalf("set size: %v", err)
	}
	if rec.Size() != 5 {
		t.Fatalf("expected size 5, got %d", rec.Size())
	}
	if err := s.SetSize(rec, 1000); err != nil {
		t.Fatalf("set size again: %v", err)
	}
	if rec.Size() != 1000 {
		t.Fatalf("expected size 1000 after second append, got %d", rec.Size())
	}
}

func TestSetSizeExhaustsLog(t *testing.T) {
	s := newTestStore(t, 4)
	rec, err := s.NewFile("/a", 200, 0)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	for i := 0; i < FSlotMax; i++ {
		if err := s.SetSize(rec, uint32(i)); err != nil {
			t.Fatalf("set size slot %d: %v", i, err)
		}
	}
	if err := s.SetSize(rec, 999); err == nil {
		t.Fatalf("expected exhausted size log to error")
	}
}

func TestWriteAtThenReadAtRoundTrips(t *testing.T) {
	s := newTestStore(t, 4)
	rec, err := s.NewFile("/a", 200, 0)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	n, err := s.WriteAt(rec, 0, []byte("hello"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes written, got %d", n)
	}
	if err := s.Buf.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	dest := make([]byte, 5)
	if err := s.ReadAt(rec, 0, dest); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(dest, []byte("hello")) {
		t.Fatalf("expected hello, got %q", dest)
	}
}

func TestWriteAtShortWriteAtMaxPos(t *testing.T) {
	s := newTestStore(t, 4)
	rec, err := s.NewFile("/a", 0, 0)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	big := bytes.Repeat([]byte("x"), int(rec.MaxPos())+50)
	n, err := s.WriteAt(rec, 0, big)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if uint32(n) != rec.MaxPos() {
		t.Fatalf("expected short write capped at max pos %d, got %d", rec.MaxPos(), n)
	}
}

func TestReadAtUnwrittenRegionReadsErased(t *testing.T) {
	s := newTestStore(t, 4)
	rec, err := s.NewFile("/a", 700, 0)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	if _, err := s.WriteAt(rec, 0, []byte("hi")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Buf.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	dest := make([]byte, 10)
	if err := s.ReadAt(rec, 5, dest); err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, b := range dest {
		if b != 0xFF {
			t.Fatalf("expected erased bytes beyond written region, got %v", dest)
		}
	}
}

package descriptor

import (
	"testing"

	"xipfs/record"
)

func TestTrackUntrackFile(t *testing.T) {
	tbl := New()
	rec := &record.Record{Addr: 0x1000, Reserved: 0x100, Next: 0x1100}
	h, err := tbl.TrackFile(&FileDesc{Record: rec})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if _, err := tbl.File(h); err != nil {
		t.Fatalf("expected tracked file descriptor: %v", err)
	}
	tbl.Untrack(h)
	if _, err := tbl.File(h); err == nil {
		t.Fatalf("expected untracked descriptor to be gone")
	}
}

func TestTableFillsUpToCapacity(t *testing.T) {
	tbl := New()
	for i := 0; i < Capacity; i++ {
		if _, err := tbl.TrackFile(&FileDesc{}); err != nil {
			t.Fatalf("track %d: %v", i, err)
		}
	}
	if _, err := tbl.TrackFile(&FileDesc{}); err == nil {
		t.Fatalf("expected table full error past capacity")
	}
}

func TestPatchShiftsSurvivorsAndUntracksRemoved(t *testing.T) {
	tbl := New()
	removed := &record.Record{Addr: 0x1000, Reserved: 0x100, Next: 0x1100}
	survivor := &record.Record{Addr: 0x1100, Reserved: 0x100, Next: 0x1200}
	hRemoved, _ := tbl.TrackFile(&FileDesc{Record: removed})
	hSurvivor, _ := tbl.TrackFile(&FileDesc{Record: survivor})

	tbl.Patch(0x1000, 0x100)

	if _, err := tbl.File(hRemoved); err == nil {
		t.Fatalf("expected descriptor at the removed record to be untracked")
	}
	fd, err := tbl.File(hSurvivor)
	if err != nil {
		t.Fatalf("survivor descriptor: %v", err)
	}
	if fd.Record.Addr != 0x1000 {
		t.Fatalf("expected survivor address shifted to 0x1000, got 0x%x", fd.Record.Addr)
	}
	if fd.Record.Next != 0x1100 {
		t.Fatalf("expected survivor next shifted to 0x1100, got 0x%x", fd.Record.Next)
	}
}

func TestUntrackAllClearsOnlyInRangeDescriptors(t *testing.T) {
	tbl := New()
	inRange := &record.Record{Addr: 0x1000}
	h, _ := tbl.TrackFile(&FileDesc{Record: inRange})
	virtual, _ := tbl.TrackFile(&FileDesc{Record: nil})

	tbl.UntrackAll(0x1000, 0x2000)

	if _, err := tbl.File(h); err == nil {
		t.Fatalf("expected in-range descriptor untracked")
	}
	if _, err := tbl.File(virtual); err != nil {
		t.Fatalf("expected virtual descriptor to survive UntrackAll: %v", err)
	}
}

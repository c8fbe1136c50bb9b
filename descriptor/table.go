// Package descriptor implements the process-wide table of open file and
// directory descriptors, and the pointer patch-up compaction triggers
// on every record it shifts.
package descriptor

import (
	"fmt"
	"sync"

	"xipfs/record"
	"xipfs/xerrno"
)

// Capacity is the maximum number of descriptors that may be open at
// once across the whole process, matching XIPFS_MAX_OPEN_DESC.
const Capacity = 16

// Kind tags which union member a slot holds.
type Kind int

const (
	Free Kind = iota
	KindFile
	KindDir
)

// FileDesc is an open file's cursor state. Record is nil for the
// virtual .xipfs_infos descriptor, which streams bytes from the mount
// structure rather than a flash record.
type FileDesc struct {
	Record *record.Record
	Pos    uint32
	Flags  int
}

// DirDesc is an open directory's cursor: the prefix being enumerated,
// the record currently reached by the scan, and the set of basenames
// already yielded (a directory may be witnessed by more than one
// record during a single scan of the flat list, so readdir must not
// repeat a basename it already returned).
type DirDesc struct {
	Dirname string
	Cursor  *record.Record
	Seen    map[string]bool
}

type entry struct {
	used bool
	kind Kind
	file *FileDesc
	dir  *DirDesc
}

// Handle is an opaque index into the table, the Go analogue of the
// original's int file descriptor.
type Handle int

// Table is the process-wide (per-mount, in this rendition — see
// SPEC_FULL.md §5) descriptor table.
type Table struct {
	mu    sync.Mutex
	slots [Capacity]entry
}

// New returns an empty descriptor table.
func New() *Table {
	return &Table{}
}

// TrackFile finds a free slot and tracks fd, returning its handle. It
// fails with EMFILE-shaped ENOSPACE if the table is full.
func (t *Table) TrackFile(fd *FileDesc) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if !t.slots[i].used {
			t.slots[i] = entry{used: true, kind: KindFile, file: fd}
			return Handle(i), nil
		}
	}
	return -1, xerrno.Wrap(xerrno.ENOSPACE, "descriptor table is full")
}

// TrackDir finds a free slot and tracks dd, returning its handle.
func (t *Table) TrackDir(dd *DirDesc) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if !t.slots[i].used {
			t.slots[i] = entry{used: true, kind: KindDir, dir: dd}
			return Handle(i), nil
		}
	}
	return -1, xerrno.Wrap(xerrno.ENOSPACE, "descriptor table is full")
}

// Untrack frees h's slot. It is not an error to untrack an already-free
// handle.
func (t *Table) Untrack(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h < 0 || int(h) >= Capacity {
		return
	}
	t.slots[h] = entry{}
}

// File returns the FileDesc tracked at h, or an error if h does not
// hold a file descriptor.
func (t *Table) File(h Handle) (*FileDesc, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h < 0 || int(h) >= Capacity || !t.slots[h].used || t.slots[h].kind != KindFile {
		return nil, xerrno.Wrap(xerrno.ENULLF, fmt.Sprintf("handle %d is not an open file descriptor", h))
	}
	return t.slots[h].file, nil
}

// Dir returns the DirDesc tracked at h, or an error if h does not hold
// a directory descriptor.
func (t *Table) Dir(h Handle) (*DirDesc, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h < 0 || int(h) >= Capacity || !t.slots[h].used || t.slots[h].kind != KindDir {
		return nil, xerrno.Wrap(xerrno.ENULLF, fmt.Sprintf("handle %d is not an open directory descriptor", h))
	}
	return t.slots[h].dir, nil
}

// UntrackAll clears every descriptor whose record lies within [base,
// end), used by umount and format. The virtual .xipfs_infos descriptor
// (Record == nil) is always out of range and is never cleared by this.
func (t *Table) UntrackAll(base, end uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		e := &t.slots[i]
		if !e.used {
			continue
		}
		var addr uint32
		switch e.kind {
		case KindFile:
			if e.file.Record == nil {
				continue
			}
			addr = e.file.Record.Addr
		case KindDir:
			if e.dir.Cursor == nil {
				continue
			}
			addr = e.dir.Cursor.Addr
		}
		if addr >= base && addr < end {
			*e = entry{}
		}
	}
}

// Patch implements record.CompactionPatcher: every descriptor whose
// record address was at or after removed is rewritten by compaction.
// Descriptors pointing exactly at the removed record are untracked;
// descriptors pointing past it have their cached record address (and
// next pointer, preserving the full-sentinel self-loop) shifted down
// by reserved, so they keep addressing the same logical record at its
// new location without re-reading it from flash.
func (t *Table) Patch(removed, reserved uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		e := &t.slots[i]
		if !e.used {
			continue
		}
		switch e.kind {
		case KindFile:
			if e.file.Record == nil {
				continue
			}
			if !patchRecord(e.file.Record, removed, reserved) {
				*e = entry{}
			}
		case KindDir:
			if e.dir.Cursor == nil {
				continue
			}
			if !patchRecord(e.dir.Cursor, removed, reserved) {
				*e = entry{}
			}
		}
	}
}

// patchRecord adjusts rec in place for a compaction that removed the
// record at removed, shifting every following record down by reserved.
// It returns false if rec was the removed record itself (the caller
// must untrack its descriptor).
func patchRecord(rec *record.Record, removed, reserved uint32) bool {
	if rec.Addr == removed {
		return false
	}
	if rec.Addr < removed {
		return true
	}
	wasFull := rec.IsFull()
	rec.Addr -= reserved
	if wasFull {
		rec.Next = rec.Addr
	} else {
		rec.Next -= reserved
	}
	return true
}

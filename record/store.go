package record

import (
	"fmt"
	"strings"

	"xipfs/flash"
	"xipfs/pagebuffer"
	"xipfs/xerrno"

	"github.com/cespare/xxhash/v2"
)

// roundUp rounds n up to the next multiple of unit.
func roundUp(n, unit uint32) uint32 {
	if n%unit == 0 {
		return n
	}
	return (n/unit + 1) * unit
}

// CompactionPatcher is notified after Remove has shifted every record
// following the victim down by victim's reserved span. It rewrites any
// open descriptor whose record pointer was at or after the victim: to
// victim's own address, it is untracked; past it, its pointer is
// decremented by reserved. Implemented by the descriptor table; kept
// as an interface here so this package never imports it.
type CompactionPatcher interface {
	Patch(removed uint32, reserved uint32)
}

// Store is the record-store layer: head/next/tail traversal, structural
// validation, allocation at tail, removal-plus-compaction and bulk
// prefix rename, all routed through a single shared page buffer.
type Store struct {
	Geo  flash.Geometry
	Prim *flash.Primitives
	Buf  *pagebuffer.Buffer
}

// New binds a Store to the given flash geometry, primitives and page
// buffer. All three must agree on the same underlying device.
func New(geo flash.Geometry, prim *flash.Primitives, buf *pagebuffer.Buffer) *Store {
	return &Store{Geo: geo, Prim: prim, Buf: buf}
}

// readRaw reads n raw bytes at addr directly from flash, bypassing the
// page buffer. Used by traversal (read-only structural checks) and by
// compaction (which manages its own erase/program sequence).
func (s *Store) readRaw(addr uint32, n int) ([]byte, error) {
	return s.Prim.ReadAt(addr, n)
}

// recordOrNil reads and decodes the record at addr, returning (nil,
// nil) if that address holds no record at all (an erased, free tail
// region rather than a real header).
func (s *Store) recordOrNil(addr uint32) (*Record, error) {
	if !s.Geo.In(addr) {
		return nil, xerrno.Wrap(xerrno.EOUTNVM, fmt.Sprintf("record address 0x%x outside mount window", addr))
	}
	hdr, err := s.readRaw(addr, HeaderSize)
	if err != nil {
		return nil, fmt.Errorf("read record header at 0x%x: %w", addr, err)
	}
	if byteOrder.Uint32(hdr[:4]) == erasedWord {
		return nil, nil
	}
	r, err := unmarshalHeader(addr, hdr)
	if err != nil {
		return nil, err
	}
	if err := s.validateLink(r); err != nil {
		return nil, err
	}
	return r, nil
}

// validateLink checks the structural invariants every traversed record
// must satisfy: page alignment, a reserved span that is a positive
// multiple of the page size, and a next pointer that is either the
// full-sentinel self-loop or exactly addr+reserved.
func (s *Store) validateLink(r *Record) error {
	if !s.Geo.PageAligned(r.Addr) {
		return xerrno.Wrap(xerrno.EALIGN, fmt.Sprintf("record at 0x%x is not page-aligned", r.Addr))
	}
	if r.Reserved == 0 || r.Reserved%s.Geo.PageSize != 0 {
		return xerrno.Wrap(xerrno.EALIGN, fmt.Sprintf("record at 0x%x has invalid reserved size %d", r.Addr, r.Reserved))
	}
	if r.Next != r.Addr && r.Next != r.Addr+r.Reserved {
		return xerrno.Wrap(xerrno.ELINK, fmt.Sprintf("record at 0x%x has a malformed next pointer", r.Addr))
	}
	return nil
}

// Head returns the first record in the chain, or (nil, nil) if the
// mount has no files at all.
func (s *Store) Head() (*Record, error) {
	return s.recordOrNil(s.Geo.Base)
}

// Next returns the record following r, or (nil, nil) if r is the last
// record in the chain (whether because it is the full sentinel or
// because the following area is unallocated erased space).
func (s *Store) Next(r *Record) (*Record, error) {
	if r.IsFull() {
		return nil, nil
	}
	return s.recordOrNil(r.Next)
}

// List returns every record in the mount, head to tail, in address
// order.
func (s *Store) List() ([]*Record, error) {
	var out []*Record
	r, err := s.Head()
	if err != nil {
		return nil, err
	}
	for r != nil {
		out = append(out, r)
		r, err = s.Next(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Tail returns the last record in the chain, or (nil, nil) if empty.
func (s *Store) Tail() (*Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// FreePages returns the number of whole pages not yet claimed by any
// record.
func (s *Store) FreePages() (uint32, error) {
	tail, err := s.Tail()
	if err != nil {
		return 0, err
	}
	if tail == nil {
		return s.Geo.NumPages, nil
	}
	used := (tail.Addr + tail.Reserved - s.Geo.Base) / s.Geo.PageSize
	return s.Geo.NumPages - used, nil
}

// Fingerprint hashes every byte from the start of the mount window
// through the end of the last record's reserved span: a cheap, stable
// identifier for the chain's current content, used by the virtual
// .xipfs_infos file and by xipfs-fsck's image summary.
func (s *Store) Fingerprint() (uint64, error) {
	tail, err := s.Tail()
	if err != nil {
		return 0, err
	}
	end := s.Geo.Base
	if tail != nil {
		end = tail.Addr + tail.Reserved
	}
	data, err := s.readRaw(s.Geo.Base, int(end-s.Geo.Base))
	if err != nil {
		return 0, fmt.Errorf("fingerprint used region: %w", err)
	}
	return xxhash.Sum64(data), nil
}

// NewFile allocates a record at the tail of the chain for path,
// reserving enough whole pages for payloadSize bytes (defaulting to
// one page when payloadSize is 0), and writes its header through the
// page buffer. It fails with ENOSPACE if the mount has no room, and
// marks the new record as the full sentinel if this allocation exactly
// exhausts the remaining free pages.
func (s *Store) NewFile(path string, payloadSize uint32, exec uint32) (*Record, error) {
	tail, err := s.Tail()
	if err != nil {
		return nil, err
	}
	if tail != nil && tail.IsFull() {
		return nil, xerrno.New(xerrno.ENOSPACE)
	}

	newAddr := s.Geo.Base
	if tail != nil {
		newAddr = tail.Addr + tail.Reserved
	}

	reserved := roundUp(HeaderSize+payloadSize, s.Geo.PageSize)
	reservedPages := reserved / s.Geo.PageSize
	freePages := s.Geo.NumPages - (newAddr-s.Geo.Base)/s.Geo.PageSize

	if reservedPages > freePages {
		return nil, xerrno.New(xerrno.ENOSPACE)
	}

	next := newAddr + reserved
	if reservedPages == freePages {
		next = newAddr
	}

	rec := newBlankHeader(newAddr, next, reserved, path, exec)
	if err := s.writeHeader(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// writeHeader stages rec's header through the page buffer and flushes
// it, splitting the write across page boundaries when HeaderSize spans
// more than one page (it never does at realistic page sizes, but the
// split keeps this correct for any geometry).
func (s *Store) writeHeader(rec *Record) error {
	buf := marshalHeader(rec)
	if err := s.writeSpanPaged(rec.Addr, buf); err != nil {
		return err
	}
	return s.Buf.Flush()
}

// writeSpanPaged writes data starting at addr through the page buffer,
// splitting at page boundaries so no single Buffer.Write call is asked
// to cross one.
func (s *Store) writeSpanPaged(addr uint32, data []byte) error {
	off := 0
	for off < len(data) {
		pageEnd := s.Geo.PageStart(s.Geo.PageOf(addr)) + s.Geo.PageSize
		chunk := int(pageEnd - addr)
		if chunk > len(data)-off {
			chunk = len(data) - off
		}
		if err := s.Buf.Write(addr, data[off:off+chunk]); err != nil {
			return err
		}
		addr += uint32(chunk)
		off += chunk
	}
	return nil
}

// Remove deletes victim and compacts the chain: every record after it
// is shifted down by victim.Reserved bytes, victim's own pages are
// freed, and patcher is notified so open descriptors can be rewritten
// or invalidated. A suffix page that already reads as erased is
// skipped rather than copied.
func (s *Store) Remove(victim *Record, patcher CompactionPatcher) error {
	if err := s.Buf.Flush(); err != nil {
		return err
	}

	tail, err := s.Tail()
	if err != nil {
		return err
	}
	suffixStart := victim.Addr + victim.Reserved
	tailEnd := suffixStart
	if tail != nil {
		tailEnd = tail.Addr + tail.Reserved
	}
	suffixLen := tailEnd - suffixStart

	survivors, err := s.List()
	if err != nil {
		return err
	}
	patch := make(map[uint32]uint32) // page offset within suffix -> new Next value
	for _, r := range survivors {
		if r.Addr < suffixStart {
			continue
		}
		newAddr := r.Addr - victim.Reserved
		newNext := newAddr + r.Reserved
		if r.IsFull() {
			newNext = newAddr
		}
		patch[r.Addr-suffixStart] = newNext
	}

	victimPages := victim.Reserved / s.Geo.PageSize
	for p := uint32(0); p < victimPages; p++ {
		if err := s.Prim.ErasePage(s.Geo.PageOf(victim.Addr) + p); err != nil {
			return fmt.Errorf("erase victim page: %w", err)
		}
	}
	s.Buf.Discard()

	totalPages := suffixLen / s.Geo.PageSize
	for p := uint32(0); p < totalPages; p++ {
		srcAddr := suffixStart + p*s.Geo.PageSize
		dstAddr := victim.Addr + p*s.Geo.PageSize

		// An erased source page has nothing to move, and its destination
		// is already erased: one of victim's pages, or a suffix page
		// vacated earlier in this loop.
		erased, err := s.Prim.IsErasedPage(s.Geo.PageOf(srcAddr))
		if err != nil {
			return fmt.Errorf("check suffix page during compaction: %w", err)
		}
		if erased {
			continue
		}

		data, err := s.readRaw(srcAddr, int(s.Geo.PageSize))
		if err != nil {
			return fmt.Errorf("read suffix page during compaction: %w", err)
		}
		if newNext, ok := patch[p*s.Geo.PageSize]; ok {
			byteOrder.PutUint32(data[:4], newNext)
		}

		if err := s.Prim.ErasePage(s.Geo.PageOf(dstAddr)); err != nil {
			return fmt.Errorf("erase destination page during compaction: %w", err)
		}
		if err := s.Prim.ProgramWordAligned(dstAddr, data); err != nil {
			return fmt.Errorf("program destination page during compaction: %w", err)
		}
		if err := s.Prim.ErasePage(s.Geo.PageOf(srcAddr)); err != nil {
			return fmt.Errorf("erase vacated source page during compaction: %w", err)
		}
	}

	if patcher != nil {
		patcher.Patch(victim.Addr, victim.Reserved)
	}
	return nil
}

// Rename rewrites rec's path field in place to newPath, which must
// satisfy the same charset and length rules as any other path. Because
// NOR flash can only clear bits, and the new path's byte pattern is not
// guaranteed to be a bitwise subset of the old one, this rewrites the
// record's whole page through the buffer (erase + reprogram on flush):
// crash-unsafe only during that one page-program, matching the
// original's documented behavior.
func (s *Store) Rename(rec *Record, newPath string) error {
	if err := validateCharset(newPath); err != nil {
		return err
	}
	rec.Path = newPath
	return s.writeHeader(rec)
}

// RenamePrefix renames every record whose path starts with from to
// have to as its new prefix, truncating at PathMax-1 if necessary. It
// returns the number of records renamed.
func (s *Store) RenamePrefix(from, to string) (int, error) {
	all, err := s.List()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, r := range all {
		if !strings.HasPrefix(r.Path, from) {
			continue
		}
		newPath := to + r.Path[len(from):]
		if len(newPath) >= PathMax {
			newPath = newPath[:PathMax-1]
		}
		if err := s.Rename(r, newPath); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Format erases every page of the mount window, discarding all
// records.
func (s *Store) Format() error {
	s.Buf.Discard()
	for p := uint32(0); p < s.Geo.NumPages; p++ {
		if err := s.Prim.ErasePage(p); err != nil {
			return fmt.Errorf("format page %d: %w", p, err)
		}
	}
	return nil
}

// VerifyTail confirms that every byte from the end of the last record
// (or the start of the window, if empty) through the end of the mount
// window reads as the erased pattern. mount calls this to detect a
// chain broken by power loss mid-compaction.
func (s *Store) VerifyTail() error {
	tail, err := s.Tail()
	if err != nil {
		return err
	}
	start := s.Geo.Base
	if tail != nil {
		start = tail.Addr + tail.Reserved
	}
	end := s.Geo.EndAddr()
	const chunk = 256
	for addr := start; addr < end; {
		n := chunk
		if remaining := end - addr; uint32(n) > remaining {
			n = int(remaining)
		}
		data, err := s.readRaw(addr, n)
		if err != nil {
			return fmt.Errorf("verify tail at 0x%x: %w", addr, err)
		}
		for _, b := range data {
			if b != s.Geo.EraseState {
				return xerrno.Wrap(xerrno.ENVMC, "dirty bytes past tail: mount requires format")
			}
		}
		addr += uint32(n)
	}
	return nil
}

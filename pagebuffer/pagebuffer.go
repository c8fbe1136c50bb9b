// Package pagebuffer implements the single RAM staging page that every
// flash mutation above the primitives layer goes through. It holds at
// most one loaded page at a time and is the central crash-consistency
// boundary: between an explicit Flush, an update lives only in RAM.
package pagebuffer

import (
	"bytes"
	"fmt"
	"sync"

	"xipfs/flash"
)

type state int

const (
	clean state = iota
	loaded
)

// Buffer is the process-global (per-mount, in this rendition — see
// SPEC_FULL.md §5) single-slot page cache sitting between the record
// store and the flash primitives.
type Buffer struct {
	mu    sync.Mutex
	prim  *flash.Primitives
	st    state
	page  uint32
	bytes []byte
}

// New returns an empty buffer bound to prim.
func New(prim *flash.Primitives) *Buffer {
	return &Buffer{
		prim:  prim,
		st:    clean,
		bytes: make([]byte, prim.Geo.PageSize),
	}
}

// ensureLoaded flushes whatever page is currently staged if it differs
// from the one addr falls in, then loads addr's page if needed. Caller
// must hold b.mu.
func (b *Buffer) ensureLoaded(addr uint32) error {
	page := b.prim.Geo.PageOf(addr)
	if b.st == loaded && b.page == page {
		return nil
	}
	if b.st == loaded {
		if err := b.flushLocked(); err != nil {
			return err
		}
	}
	data, err := b.prim.ReadAt(b.prim.Geo.PageStart(page), int(b.prim.Geo.PageSize))
	if err != nil {
		return fmt.Errorf("load page %d into buffer: %w", page, err)
	}
	copy(b.bytes, data)
	b.page = page
	b.st = loaded
	return nil
}

// Read copies n bytes starting at the flash address addr into dest,
// loading the enclosing page first if it is not already staged.
func (b *Buffer) Read(dest []byte, addr uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(dest)
	if n == 0 {
		return nil
	}
	if b.prim.Geo.PageOverflow(addr, uint32(n)) {
		return fmt.Errorf("read of %d bytes at 0x%x crosses a page boundary", n, addr)
	}
	if err := b.ensureLoaded(addr); err != nil {
		return err
	}
	off := (addr - b.prim.Geo.PageStart(b.page))
	copy(dest, b.bytes[off:int(off)+n])
	return nil
}

// Write stages n bytes of src at the flash address dst. It modifies
// only the in-memory buffer; the change is not durable until Flush.
func (b *Buffer) Write(dst uint32, src []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(src)
	if n == 0 {
		return nil
	}
	if b.prim.Geo.PageOverflow(dst, uint32(n)) {
		return fmt.Errorf("write of %d bytes at 0x%x crosses a page boundary", n, dst)
	}
	if err := b.ensureLoaded(dst); err != nil {
		return err
	}
	off := (dst - b.prim.Geo.PageStart(b.page))
	copy(b.bytes[off:int(off)+n], src)
	return nil
}

// Flush erases and reprograms the currently staged page if its
// contents differ from what is in flash, then marks the buffer clean.
// It is a no-op if nothing is loaded or the buffer already agrees with
// flash. Callers must invoke Flush at every user-visible commit point
// (record creation, rename, size-log append, close-with-size-update).
func (b *Buffer) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *Buffer) flushLocked() error {
	if b.st != loaded {
		return nil
	}
	cur, err := b.prim.ReadAt(b.prim.Geo.PageStart(b.page), int(b.prim.Geo.PageSize))
	if err != nil {
		return fmt.Errorf("read flash for flush compare: %w", err)
	}
	if bytes.Equal(cur, b.bytes) {
		b.st = clean
		return nil
	}
	if err := b.prim.ErasePage(b.page); err != nil {
		return fmt.Errorf("erase page %d on flush: %w", b.page, err)
	}
	if err := b.prim.ProgramWordAligned(b.prim.Geo.PageStart(b.page), b.bytes); err != nil {
		return fmt.Errorf("program page %d on flush: %w", b.page, err)
	}
	b.st = clean
	return nil
}

// Discard drops any staged page without flushing it, used when a
// caller has already erased or overwritten the underlying flash out
// from under the buffer (compaction's per-page shuffle) and the staged
// copy would otherwise be flushed back over the new contents.
func (b *Buffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.st = clean
}

// Package mount ties together a flash window, its page buffer, record
// store, and descriptor table into one lockable filesystem instance.
package mount

import (
	"fmt"
	"sync"

	"xipfs/descriptor"
	"xipfs/flash"
	"xipfs/pagebuffer"
	"xipfs/record"
	"xipfs/xerrno"
)

// Magic is the RAM-only sanity value every Mount carries, matching the
// original's sentinel — it is never persisted to flash.
const Magic uint32 = 0xf9d3b6cb

// Mount bundles one mounted flash window: its geometry-bound record
// store, page buffer, descriptor table, and the two locks serializing
// access to it. Unlike the original, these are fields on a value a
// process can have many of, not package-level globals (SPEC_FULL.md §5).
type Mount struct {
	magic uint32
	path  string

	mu     sync.Mutex // serializes every façade entry point
	execMu sync.Mutex // additionally serializes exec; nested exec is forbidden

	Geo   flash.Geometry
	Store *record.Store
	Buf   *pagebuffer.Buffer
	Descs *descriptor.Table

	mounted bool
}

// New constructs an unmounted Mount over dev, addressed by path (a
// caller-chosen label, not a host filesystem path — matching the
// original's "mount path" field which only ever names the target, it
// is never resolved against a host VFS).
func New(path string, geo flash.Geometry, dev flash.Programmer) *Mount {
	prim := flash.New(geo, dev)
	buf := pagebuffer.New(prim)
	return &Mount{
		magic: Magic,
		path:  path,
		Geo:   geo,
		Store: record.New(geo, prim, buf),
		Buf:   buf,
		Descs: descriptor.New(),
	}
}

// Path returns the mount's label.
func (m *Mount) Path() string { return m.path }

// Lock acquires the mount's global lock. Every façade entry point calls
// this before touching the record store or descriptor table.
func (m *Mount) Lock() { m.mu.Lock() }

// Unlock releases the mount's global lock.
func (m *Mount) Unlock() { m.mu.Unlock() }

// LockExec acquires the execution lock, in addition to (never instead
// of) the global lock; nested exec is forbidden by construction since
// this is a plain, non-reentrant mutex.
func (m *Mount) LockExec() { m.execMu.Lock() }

// UnlockExec releases the execution lock.
func (m *Mount) UnlockExec() { m.execMu.Unlock() }

// Validate reports whether m looks like a live, correctly tagged mount,
// the check every façade entry point performs first.
func (m *Mount) Validate() error {
	if m == nil {
		return xerrno.New(xerrno.ENULLM)
	}
	if m.magic != Magic {
		return xerrno.New(xerrno.EMAGIC)
	}
	if !m.mounted {
		return xerrno.Wrap(xerrno.ENULLM, "mount point is not mounted")
	}
	return nil
}

// Mount validates tail integrity — every byte past the last record must
// read as the erased state — and marks the mount live. It fails with
// ENVMC (surfaced as EIO) if the tail is dirty, matching the mount
// entry point's contract in SPEC_FULL.md §4.7.
func (m *Mount) Mount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Store.VerifyTail(); err != nil {
		return err
	}
	m.mounted = true
	return nil
}

// Umount untracks every descriptor in this mount's flash range and
// marks the mount no longer live.
func (m *Mount) Umount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Validate(); err != nil {
		return err
	}
	m.Descs.UntrackAll(m.Geo.Base, m.Geo.EndAddr())
	m.mounted = false
	return nil
}

// Info renders the bytes of the virtual .xipfs_infos file: a plain
// textual dump of the mount structure, matching the teacher's
// fmt.Printf-based diagnostic style rather than a binary struct dump.
func (m *Mount) Info() []byte {
	free, _ := m.Store.FreePages()
	fingerprint, _ := m.Store.Fingerprint()
	return []byte(fmt.Sprintf(
		"magic=0x%x\npath=%s\nbase=0x%x\npage_size=%d\nnum_pages=%d\nfree_pages=%d\nmounted=%t\nfingerprint=%016x\n",
		m.magic, m.path, m.Geo.Base, m.Geo.PageSize, m.Geo.NumPages, free, m.mounted, fingerprint,
	))
}

// Format erases every page of the mount window and untracks every
// descriptor in range. The mount need not be currently mounted.
func (m *Mount) Format() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Store.Format(); err != nil {
		return err
	}
	m.Descs.UntrackAll(m.Geo.Base, m.Geo.EndAddr())
	return nil
}

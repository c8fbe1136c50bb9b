package flash

import (
	"bytes"
	"fmt"

	"xipfs/xerrno"
)

// Primitives binds a Geometry to a concrete Programmer, exposing the
// erase/program protocol the rest of xipfs is built on: byte-scan
// verified erase, aligned programming, and unaligned read-modify-write
// for the odd bytes that do not fall on a write-block boundary.
type Primitives struct {
	Geo Geometry
	Dev Programmer
}

// New binds geo to dev.
func New(geo Geometry, dev Programmer) *Primitives {
	return &Primitives{Geo: geo, Dev: dev}
}

// IsErasedPage reports whether every byte of page currently reads as
// the device's erased state.
func (p *Primitives) IsErasedPage(page uint32) (bool, error) {
	buf, err := p.Dev.ReadAt(p.Geo.PageStart(page), int(p.Geo.PageSize))
	if err != nil {
		return false, fmt.Errorf("read page %d for erase check: %w", page, err)
	}
	erased := make([]byte, len(buf))
	for i := range erased {
		erased[i] = p.Geo.EraseState
	}
	return bytes.Equal(buf, erased), nil
}

// ErasePage erases page if it is not already erased, then verifies the
// erase took effect. A verify failure surfaces ENVMC: a hardware fault
// or pre-existing corruption the caller cannot recover from locally.
func (p *Primitives) ErasePage(page uint32) error {
	erased, err := p.IsErasedPage(page)
	if err != nil {
		return err
	}
	if erased {
		return nil
	}
	if err := p.Dev.ErasePage(page); err != nil {
		return fmt.Errorf("erase page %d: %w", page, err)
	}
	erased, err = p.IsErasedPage(page)
	if err != nil {
		return err
	}
	if !erased {
		return xerrno.Wrap(xerrno.ENVMC, fmt.Sprintf("page %d did not verify erased", page))
	}
	return nil
}

// ProgramWordAligned delegates to the board's program-and-verify
// primitive. addr and len(buf) must both be write-block aligned.
func (p *Primitives) ProgramWordAligned(addr uint32, buf []byte) error {
	if !p.Geo.WriteBlockAligned(addr) || uint32(len(buf))%p.Geo.WriteBlockSize != 0 {
		return xerrno.Wrap(xerrno.EALIGN, fmt.Sprintf("program at 0x%x len %d", addr, len(buf)))
	}
	if err := p.Dev.ProgramAligned(addr, buf); err != nil {
		return fmt.Errorf("program aligned at 0x%x: %w", addr, err)
	}
	got, err := p.Dev.ReadAt(addr, len(buf))
	if err != nil {
		return fmt.Errorf("verify program at 0x%x: %w", addr, err)
	}
	if !bytes.Equal(got, buf) {
		return xerrno.Wrap(xerrno.ENVMC, fmt.Sprintf("program at 0x%x failed verify", addr))
	}
	return nil
}

// WriteUnaligned copies n bytes from src into the flash at dst, one
// write-block at a time, clearing only the bits required for each
// target byte (never attempting to set a bit flash cannot set). dst
// need not be write-block aligned; n may straddle several write
// blocks. It fails if the post-write readback disagrees with what was
// requested, which can only happen if a target bit needed to be set
// rather than cleared.
func (p *Primitives) WriteUnaligned(dst uint32, src []byte) error {
	n := uint32(len(src))
	if p.Geo.Overflow(dst, n) {
		return xerrno.Wrap(xerrno.EOUTNVM, fmt.Sprintf("write %d bytes at 0x%x overflows flash", n, dst))
	}
	if p.Geo.PageOverflow(dst, n) {
		return xerrno.Wrap(xerrno.EOUTNVM, fmt.Sprintf("write %d bytes at 0x%x overflows page", n, dst))
	}
	wb := p.Geo.WriteBlockSize
	for i := uint32(0); i < n; i++ {
		addr := dst + i
		mod := addr % wb
		addr4 := addr - mod

		word, err := p.Dev.ReadAt(addr4, int(wb))
		if err != nil {
			return fmt.Errorf("read write-block at 0x%x: %w", addr4, err)
		}
		word[mod] = src[i]
		if err := p.Dev.ProgramAligned(addr4, word); err != nil {
			return fmt.Errorf("program write-block at 0x%x: %w", addr4, err)
		}

		got, err := p.Dev.ReadAt(addr, 1)
		if err != nil {
			return fmt.Errorf("verify byte at 0x%x: %w", addr, err)
		}
		if got[0] != src[i] {
			return xerrno.Wrap(xerrno.ENVMC, fmt.Sprintf("byte at 0x%x failed verify", addr))
		}
	}
	return nil
}

// ReadAt is a thin passthrough to the device, used by callers above the
// page buffer that need a raw, uncached view of flash (mount-time tail
// integrity checks, for instance).
func (p *Primitives) ReadAt(addr uint32, n int) ([]byte, error) {
	return p.Dev.ReadAt(addr, n)
}

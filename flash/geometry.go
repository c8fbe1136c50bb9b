// Package flash implements the address/range predicates, alignment
// rules and erase/program protocol of a word-addressable NOR flash
// device, against an external Programmer collaborator.
package flash

// Geometry groups the build-time constants the original xipfs_config.h
// supplies as preprocessor defines: base address, page layout and
// write-block alignment of the flash window a mount is carved from.
type Geometry struct {
	// Base is the flash memory base address of this window.
	Base uint32
	// PageSize is the erase granularity, typically 4096.
	PageSize uint32
	// NumPages is the total number of pages in the window.
	NumPages uint32
	// WriteBlockSize is the program alignment and granularity,
	// typically 4 bytes (one word).
	WriteBlockSize uint32
	// EraseState is the byte value flash reads as after an erase
	// (0xFF on essentially every NOR part).
	EraseState byte
}

// EndAddr returns the first address past this geometry's flash window.
func (g Geometry) EndAddr() uint32 {
	return g.Base + g.NumPages*g.PageSize
}

// In reports whether addr lies within [Base, EndAddr()). A Base of 0
// elides the lower-bound check by construction (addr is unsigned), which
// mirrors the original's documented fragility: it is a sanity guard, not
// a security boundary.
func (g Geometry) In(addr uint32) bool {
	return addr < g.EndAddr() && addr >= g.Base
}

// PageAligned reports whether addr falls exactly on a page boundary.
func (g Geometry) PageAligned(addr uint32) bool {
	return addr%g.PageSize == 0
}

// PageOf returns the page number containing addr.
func (g Geometry) PageOf(addr uint32) uint32 {
	return (addr - g.Base) / g.PageSize
}

// PageStart returns the starting address of the given page number.
func (g Geometry) PageStart(page uint32) uint32 {
	return g.Base + page*g.PageSize
}

// Overflow reports whether copying n bytes starting at addr would run
// past the end of the flash window.
func (g Geometry) Overflow(addr uint32, n uint32) bool {
	return !g.In(addr) || addr+n > g.EndAddr()
}

// PageOverflow reports whether copying n bytes starting at addr would
// run past the end of the flash page containing addr.
func (g Geometry) PageOverflow(addr uint32, n uint32) bool {
	off := (addr - g.Base) % g.PageSize
	return off+n > g.PageSize
}

// WriteBlockAligned reports whether addr is aligned to WriteBlockSize.
func (g Geometry) WriteBlockAligned(addr uint32) bool {
	return addr%g.WriteBlockSize == 0
}

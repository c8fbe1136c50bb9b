package flash

import "fmt"

// MemDevice is the one concrete Programmer this module ships: an
// in-process NOR flash simulator over a byte slice. It enforces true
// flash semantics in software — erase sets every byte to EraseState,
// and ProgramAligned only ever clears bits (a plain overwrite would
// silently hide bugs a real write-unaligned caller must not get away
// with). It plays the same role the teacher's disk_manager/disk_pager
// play for a B+Tree page store: a small, direct, swappable backing
// store behind the Programmer interface, used by the library's own
// tests and by the CLI tools when no real hardware is present.
type MemDevice struct {
	geo Geometry
	mem []byte
}

// NewMemDevice allocates a simulated flash window already in the
// erased state.
func NewMemDevice(geo Geometry) *MemDevice {
	mem := make([]byte, geo.NumPages*geo.PageSize)
	for i := range mem {
		mem[i] = geo.EraseState
	}
	return &MemDevice{geo: geo, mem: mem}
}

func (d *MemDevice) offset(addr uint32) (int, error) {
	if !d.geo.In(addr) {
		return 0, fmt.Errorf("address 0x%x outside flash window", addr)
	}
	return int(addr - d.geo.Base), nil
}

// ErasePage implements Programmer.
func (d *MemDevice) ErasePage(page uint32) error {
	if page >= d.geo.NumPages {
		return fmt.Errorf("page %d out of range", page)
	}
	start := page * d.geo.PageSize
	for i := uint32(0); i < d.geo.PageSize; i++ {
		d.mem[start+i] = d.geo.EraseState
	}
	return nil
}

// ProgramAligned implements Programmer. It only clears bits: any bit
// set in data that is not already set in the backing store stays
// cleared in the result, matching real NOR flash.
func (d *MemDevice) ProgramAligned(addr uint32, data []byte) error {
	off, err := d.offset(addr)
	if err != nil {
		return err
	}
	if off+len(data) > len(d.mem) {
		return fmt.Errorf("program at 0x%x overflows device", addr)
	}
	for i, b := range data {
		d.mem[off+i] &= b
	}
	return nil
}

// ReadAt implements Programmer.
func (d *MemDevice) ReadAt(addr uint32, n int) ([]byte, error) {
	off, err := d.offset(addr)
	if err != nil {
		return nil, err
	}
	if off+n > len(d.mem) {
		return nil, fmt.Errorf("read at 0x%x len %d overflows device", addr, n)
	}
	out := make([]byte, n)
	copy(out, d.mem[off:off+n])
	return out, nil
}

// Bytes returns a copy of the device's entire backing memory, letting
// a CLI tool persist a simulated flash image to a host file.
func (d *MemDevice) Bytes() []byte {
	out := make([]byte, len(d.mem))
	copy(out, d.mem)
	return out
}

// LoadBytes overwrites the device's backing memory with data, which
// must be exactly len(d.mem) bytes.
func (d *MemDevice) LoadBytes(data []byte) error {
	if len(data) != len(d.mem) {
		return fmt.Errorf("image size %d does not match device size %d", len(data), len(d.mem))
	}
	copy(d.mem, data)
	return nil
}

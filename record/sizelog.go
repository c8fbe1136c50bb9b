package record

import (
	"fmt"

	"xipfs/xerrno"
)

// SetSize appends size as the next entry in rec's size log and flushes
// it to flash. The log is append-only by design (see SPEC_FULL.md §9):
// once every slot is used the record cannot accept further size
// updates until it is removed and recreated.
func (s *Store) SetSize(rec *Record, size uint32) error {
	idx := rec.nextFreeSlot()
	if idx < 0 {
		return xerrno.Wrap(xerrno.ENOSPACE, fmt.Sprintf("size log of %q is exhausted", rec.Path))
	}
	addr := rec.Addr + 4 + PathMax + 4 + uint32(idx)*4
	word := make([]byte, 4)
	byteOrder.PutUint32(word, size)
	if err := s.writeSpanPaged(addr, word); err != nil {
		return err
	}
	if err := s.Buf.Flush(); err != nil {
		return err
	}
	rec.SizeLog[idx] = size
	return nil
}

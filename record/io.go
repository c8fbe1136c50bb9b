package record

import (
	"fmt"

	"xipfs/xerrno"
)

// payloadAddr returns the flash address of byte pos within rec's
// payload.
func payloadAddr(rec *Record, pos uint32) uint32 {
	return rec.Addr + HeaderSize + pos
}

// ReadAt copies len(dest) bytes of rec's payload starting at pos
// through the page buffer. Positions beyond the committed size but
// within MaxPos read back as the flash erased pattern, which is the
// intended behavior for a file whose size was extended by lseek
// without ever being written (testable property S6).
func (s *Store) ReadAt(rec *Record, pos uint32, dest []byte) error {
	if pos > rec.MaxPos() || uint32(len(dest)) > rec.MaxPos()-pos {
		return xerrno.Wrap(xerrno.EMAXOFF, fmt.Sprintf("read past max position of %q", rec.Path))
	}
	off := uint32(0)
	for off < uint32(len(dest)) {
		addr := payloadAddr(rec, pos+off)
		pageEnd := s.Geo.PageStart(s.Geo.PageOf(addr)) + s.Geo.PageSize
		n := pageEnd - addr
		if remaining := uint32(len(dest)) - off; n > remaining {
			n = remaining
		}
		if err := s.Buf.Read(dest[off:off+n], addr); err != nil {
			return err
		}
		off += n
	}
	return nil
}

// WriteAt writes src into rec's payload starting at pos, stopping at
// MaxPos rather than failing: a write that would overrun the record's
// reserved span is truncated to a short write, matching §4.7's "write
// stops at max_pos" rule. It returns the number of bytes actually
// written. The page buffer is not flushed here; the caller commits
// (the façade's Write flushes as soon as this returns).
func (s *Store) WriteAt(rec *Record, pos uint32, src []byte) (int, error) {
	if pos >= rec.MaxPos() {
		return 0, nil
	}
	n := uint32(len(src))
	if max := rec.MaxPos() - pos; n > max {
		n = max
	}
	off := uint32(0)
	for off < n {
		addr := payloadAddr(rec, pos+off)
		pageEnd := s.Geo.PageStart(s.Geo.PageOf(addr)) + s.Geo.PageSize
		chunk := pageEnd - addr
		if remaining := n - off; chunk > remaining {
			chunk = remaining
		}
		if err := s.Buf.Write(addr, src[off:off+chunk]); err != nil {
			return int(off), err
		}
		off += chunk
	}
	return int(n), nil
}

// Package record implements the on-flash file record: its wire layout,
// the singly-linked chain traversal, allocation at tail, removal with
// compaction, and bulk prefix rename.
package record

import (
	"encoding/binary"
	"fmt"

	"xipfs/xerrno"
)

const (
	// PathMax is the maximum length, including the terminating null
	// byte, of a record's path.
	PathMax = 64
	// FSlotMax is the capacity of a record's size log.
	FSlotMax = 86
	// HeaderSize is the fixed size, in bytes, of a record's header:
	// next (4) + path (PathMax) + reserved (4) + size log
	// (FSlotMax*4) + exec (4).
	HeaderSize = 4 + PathMax + 4 + FSlotMax*4 + 4

	// erasedWord is the size-log sentinel meaning "slot never
	// programmed": all bits set, matching the flash erased state.
	erasedWord uint32 = 0xFFFFFFFF
)

var byteOrder = binary.LittleEndian

// Record is the in-RAM decoding of an on-flash file record. Addr is not
// part of the wire format; it is the flash address this record was read
// from (or will be written to), carried alongside for convenience the
// same way the original identifies records by pointer (see
// SPEC_FULL.md §9's "raw pointers as record identifiers" note).
type Record struct {
	Addr     uint32
	Next     uint32
	Path     string
	Reserved uint32
	SizeLog  [FSlotMax]uint32
	Exec     uint32
}

// IsFull reports whether this record is the tail-of-chain sentinel: no
// free page remains after it.
func (r *Record) IsFull() bool {
	return r.Next == r.Addr
}

// MaxPos returns the highest valid payload offset plus one, i.e. the
// file's storage capacity in bytes.
func (r *Record) MaxPos() uint32 {
	return r.Reserved - HeaderSize
}

// Size returns the record's current committed file size: the value of
// the last non-erased size-log slot, or 0 if the log is empty.
func (r *Record) Size() uint32 {
	size := uint32(0)
	for _, s := range r.SizeLog {
		if s == erasedWord {
			break
		}
		size = s
	}
	return size
}

// nextFreeSlot returns the index of the first erased size-log slot, or
// -1 if the log is full.
func (r *Record) nextFreeSlot() int {
	for i, s := range r.SizeLog {
		if s == erasedWord {
			return i
		}
	}
	return -1
}

// marshalHeader encodes r's header (everything but the payload) into a
// HeaderSize-byte buffer, ready to be written through the page buffer.
func marshalHeader(r *Record) []byte {
	buf := make([]byte, HeaderSize)
	off := 0

	byteOrder.PutUint32(buf[off:], r.Next)
	off += 4

	pathBytes := []byte(r.Path)
	if len(pathBytes) >= PathMax {
		pathBytes = pathBytes[:PathMax-1]
	}
	copy(buf[off:off+PathMax], pathBytes)
	// Remaining path bytes stay at 0x00 (not 0xFF): unlike the size
	// log, an unused path tail is read as a null terminator, not as
	// "erased means absent" sentinel data.
	off += PathMax

	byteOrder.PutUint32(buf[off:], r.Reserved)
	off += 4

	for _, s := range r.SizeLog {
		byteOrder.PutUint32(buf[off:], s)
		off += 4
	}

	byteOrder.PutUint32(buf[off:], r.Exec)
	off += 4

	return buf
}

// newBlankHeader returns a HeaderSize-byte image of a record with all
// size-log slots erased and the path field zero-filled, the starting
// point for constructing a brand-new record in RAM before programming
// it to flash.
func newBlankHeader(addr, next, reserved uint32, path string, exec uint32) *Record {
	r := &Record{
		Addr:     addr,
		Next:     next,
		Path:     path,
		Reserved: reserved,
		Exec:     exec,
	}
	for i := range r.SizeLog {
		r.SizeLog[i] = erasedWord
	}
	return r
}

// unmarshalHeader decodes a HeaderSize-byte buffer read from addr into
// a Record, performing only structural (not path-classification)
// validation: charset and null-termination of the path.
func unmarshalHeader(addr uint32, buf []byte) (*Record, error) {
	if len(buf) < HeaderSize {
		return nil, xerrno.Wrap(xerrno.ELINK, "truncated record header")
	}
	off := 0
	r := &Record{Addr: addr}

	r.Next = byteOrder.Uint32(buf[off:])
	off += 4

	pathField := buf[off : off+PathMax]
	off += PathMax
	nul := indexByte(pathField, 0)
	if nul < 0 {
		return nil, xerrno.Wrap(xerrno.ENULTER, fmt.Sprintf("record at 0x%x has no null-terminated path", addr))
	}
	r.Path = string(pathField[:nul])
	if err := validateCharset(r.Path); err != nil {
		return nil, err
	}

	r.Reserved = byteOrder.Uint32(buf[off:])
	off += 4

	for i := range r.SizeLog {
		r.SizeLog[i] = byteOrder.Uint32(buf[off:])
		off += 4
	}

	r.Exec = byteOrder.Uint32(buf[off:])
	off += 4

	return r, nil
}

// ValidatePath exposes the path charset/length validation every stored
// record is subject to, for reuse by the path classifier before it
// ever touches the record list.
func ValidatePath(path string) error {
	return validateCharset(path)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// validateCharset enforces the path charset and leading-slash rule of
// the data model: must begin with '/', charset [0-9A-Za-z/._-], and be
// shorter than PathMax including its terminator.
func validateCharset(path string) error {
	if path == "" {
		return xerrno.New(xerrno.EEMPTY)
	}
	if len(path) >= PathMax {
		return xerrno.New(xerrno.ENULTER)
	}
	if path[0] != '/' {
		return xerrno.New(xerrno.EINVAL)
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c == '/' || c == '.' || c == '_' || c == '-':
		default:
			return xerrno.New(xerrno.EINVAL)
		}
	}
	return nil
}

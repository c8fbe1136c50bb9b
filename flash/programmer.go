package flash

// Programmer is the board-specific collaborator this layer consumes.
// It is explicitly out of scope for the filesystem core: a real target
// implements it over its flash controller, driving the page-erase and
// program-and-verify hardware sequence.
type Programmer interface {
	// ErasePage sets every byte of the given page to the erased
	// state. Implementations must be idempotent: erasing an already
	// erased page is not an error.
	ErasePage(page uint32) error
	// ProgramAligned writes data, whose length must be a multiple of
	// the write-block size, to addr, which must itself be
	// write-block aligned. Flash semantics mean this can only clear
	// bits that are currently set; callers are responsible for
	// ensuring the target region was erased (or already agrees with
	// data) beforehand.
	ProgramAligned(addr uint32, data []byte) error
	// ReadAt reads n bytes starting at addr directly from the
	// device, bypassing any RAM staging layer above this one.
	ReadAt(addr uint32, n int) ([]byte, error)
}

package xexec

import (
	"encoding/binary"
	"fmt"

	"xipfs/fs"
	"xipfs/mount"
	"xipfs/xerrno"

	"golang.org/x/sys/unix"
)

var byteOrder = binary.LittleEndian

// ExitOpcode is the payload instruction that ends execution and
// returns its argument as the binary's result, the trampoline's exit
// entry.
const ExitOpcode = 0

// Exec launches the binary at path under m's execution lock (nested
// exec is forbidden by construction: this is a plain, non-reentrant
// mutex). As a non-embedded rendition of §4.8's stack-switch-and-branch
// design, the payload is copied into an anonymous mmap'd region and,
// when safeExec is set, that region is mprotected read+execute before
// the trampoline interprets it — the closest non-embedded analogue to
// configuring the original's MPU TEXT region.
func Exec(m *mount.Mount, path string, argv []string, table map[uint32]Syscall, safeExec bool) (uint32, error) {
	m.LockExec()
	defer m.UnlockExec()

	rec, err := fs.LookupExecutable(m, path)
	if err != nil {
		return 0, err
	}
	payload, err := fs.ReadPayload(m, rec)
	if err != nil {
		return 0, err
	}
	ctx, err := NewContext(rec, argv, table)
	if err != nil {
		return 0, err
	}

	region, cleanup, err := mapRegion(payload, safeExec)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	return run(region, ctx)
}

// mapRegion copies payload into a fresh anonymous mapping sized up to
// a whole number of pages, and — when safeExec is set — flips it to
// PROT_READ|PROT_EXEC, the TEXT region of §4.8's memory-protection
// step. The returned cleanup restores write access (or fails with
// EDISABLEMPU) and unmaps the region.
func mapRegion(payload []byte, safeExec bool) ([]byte, func() error, error) {
	pageSize := unix.Getpagesize()
	size := len(payload)
	if size == 0 {
		size = pageSize
	} else {
		size = ((size + pageSize - 1) / pageSize) * pageSize
	}

	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, nil, xerrno.Wrap(xerrno.ETEXTREGION, fmt.Sprintf("mmap payload region: %v", err))
	}
	copy(region, payload)

	if safeExec {
		if err := unix.Mprotect(region, unix.PROT_READ|unix.PROT_EXEC); err != nil {
			_ = unix.Munmap(region)
			return nil, nil, xerrno.Wrap(xerrno.ETEXTREGION, fmt.Sprintf("mprotect text region: %v", err))
		}
	}

	cleanup := func() error {
		if safeExec {
			if err := unix.Mprotect(region, unix.PROT_READ|unix.PROT_WRITE); err != nil {
				return xerrno.Wrap(xerrno.EDISABLEMPU, fmt.Sprintf("restore text region: %v", err))
			}
		}
		return unix.Munmap(region)
	}
	return region, cleanup, nil
}

// run interprets region as a sequence of 8-byte [opcode, arg]
// instructions: the "binary issues controlled outbound calls through
// the syscall table" of §4.8, stopping at ExitOpcode.
func run(region []byte, ctx *Context) (uint32, error) {
	ip := 0
	for {
		if ip+8 > len(region) {
			return 0, xerrno.Wrap(xerrno.EOUTNVM, "payload ran past its mapped region without exiting")
		}
		opcode := byteOrder.Uint32(region[ip:])
		arg := byteOrder.Uint32(region[ip+4:])
		ip += 8

		if opcode == ExitOpcode {
			return arg, nil
		}
		fn, ok := ctx.Table[opcode]
		if !ok {
			return 0, xerrno.Wrap(xerrno.EPERM, fmt.Sprintf("payload invoked unknown syscall opcode %d", opcode))
		}
		if _, err := fn([]uint32{arg}); err != nil {
			return 0, err
		}
	}
}

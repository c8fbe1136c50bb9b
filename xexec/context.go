// Package xexec implements the in-place binary executor: a fixed
// execution context, a syscall trampoline table, and (optionally) the
// memory-protection regions a safe-exec configuration sets up before
// branching into a payload.
package xexec

import (
	"xipfs/record"
	"xipfs/xerrno"
)

// ArgcMax bounds the number of argv pointers the execution context
// carries, matching EXEC_ARGC_MAX.
const ArgcMax = 64

// StackSize is the fixed stack the execution context reserves for the
// binary, matching the original's 1020-byte on-context stack.
const StackSize = 1020

// FreeRAMSize is the scratch DATA region handed to the binary.
const FreeRAMSize = 512

// CRT0 mirrors the addresses the original's startup code receives:
// the binary's own base, the bounds of its writable RAM window, and
// the bounds of whatever free NVM remains after it.
type CRT0 struct {
	BinaryBase  uint32
	RAMStart    uint32
	RAMEnd      uint32
	NVMFreeBase uint32
	NVMFreeEnd  uint32
}

// Syscall is one trampoline table entry: a fixed-signature Go function
// value standing in for a real machine-code service routine. The
// payload invokes entries by opcode, never by address.
type Syscall func(args []uint32) (uint32, error)

// Context is the fixed-layout execution context §4.8 describes: CRT0
// info, a stack (modeled as a byte slice rather than an actual SP
// register), argv, and the syscall table the running payload may call
// into.
type Context struct {
	CRT0    CRT0
	Stack   [StackSize]byte
	Argv    []string
	Table   map[uint32]Syscall
	FreeRAM [FreeRAMSize]byte
}

// NewContext builds a zeroed execution context for rec, populating
// CRT0 from the record's flash placement and binding table as the set
// of permitted outbound calls.
func NewContext(rec *record.Record, argv []string, table map[uint32]Syscall) (*Context, error) {
	if len(argv) > ArgcMax {
		return nil, xerrno.New(xerrno.EINVAL)
	}
	ctx := &Context{
		CRT0: CRT0{
			BinaryBase: rec.Addr + record.HeaderSize,
			NVMFreeEnd: rec.Addr + rec.Reserved,
		},
		Argv:  argv,
		Table: table,
	}
	return ctx, nil
}

// Package xerrno defines the internal error taxonomy of xipfs and its
// mapping onto POSIX errno values at the filesystem façade boundary.
package xerrno

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Code is the internal xipfs error number, mirroring the xipfs_errno_e
// enumeration: a positive code describing precisely what went wrong
// inside the filesystem, independent of how the façade later reports it
// to a POSIX caller.
type Code int

const (
	OK Code = iota
	ENULLP
	EEMPTY
	EINVAL
	ENULTER
	ENULLF
	EALIGN
	EOUTNVM
	ELINK
	EMAXOFF
	ENVMC
	ENULLM
	EMAGIC
	EPAGNUM
	EFULL
	EEXIST
	EPERM
	ENOSPACE
	ETEXTREGION
	EDATAREGION
	ESTACKREGION
	EENABLEMPU
	EDISABLEMPU
)

var names = map[Code]string{
	OK:           "no error",
	ENULLP:       "path is null",
	EEMPTY:       "path is empty",
	EINVAL:       "invalid character in path",
	ENULTER:      "path is not null-terminated",
	ENULLF:       "file pointer is null",
	EALIGN:       "file is not page-aligned",
	EOUTNVM:      "file is outside NVM space",
	ELINK:        "file improperly linked to others",
	EMAXOFF:      "offset exceeds max position",
	ENVMC:        "NVM controller error",
	ENULLM:       "mount point is null",
	EMAGIC:       "bad magic number",
	EPAGNUM:      "bad page number",
	EFULL:        "file system full",
	EEXIST:       "file already exists",
	EPERM:        "file has wrong permissions",
	ENOSPACE:     "insufficient space to create the file",
	ETEXTREGION:  "failed to set text MPU region",
	EDATAREGION:  "failed to set data MPU region",
	ESTACKREGION: "failed to set stack MPU region",
	EENABLEMPU:   "failed to enable MPU",
	EDISABLEMPU:  "failed to disable MPU",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return fmt.Sprintf("xerrno(%d)", int(c))
}

// Errno is the error type returned by every internal xipfs operation. It
// carries the internal Code plus the POSIX errno the façade should
// surface for it, so a caller that only wants a syscall-shaped error
// never has to re-derive the mapping.
type Errno struct {
	Code  Code
	Errno unix.Errno
}

func (e *Errno) Error() string {
	return e.Code.String()
}

// New builds an *Errno for the given internal code, mapped to its
// canonical POSIX errno.
func New(code Code) *Errno {
	return &Errno{Code: code, Errno: toUnix(code)}
}

// Wrap attaches ctx to the errno's message without losing the ability to
// recover the *Errno via errors.As, matching the teacher's
// fmt.Errorf("...: %w", err) convention.
func Wrap(code Code, ctx string) error {
	return fmt.Errorf("%s: %w", ctx, New(code))
}

// toUnix implements the "mapped to system errno on the boundary" rule of
// the errno taxonomy. Validation errors generally map to EINVAL, storage
// errors to EIO, and capacity errors to EDQUOT, per the error-handling
// design's three classes.
func toUnix(code Code) unix.Errno {
	switch code {
	case OK:
		return 0
	case ENULLP, ENULLF, ENULLM:
		return unix.EFAULT
	case EEMPTY, EINVAL, ENULTER, EMAGIC:
		return unix.EINVAL
	case EALIGN, EOUTNVM, ELINK, EMAXOFF, ENVMC, EPAGNUM:
		return unix.EIO
	case EFULL, ENOSPACE:
		return unix.EDQUOT
	case EEXIST:
		return unix.EEXIST
	case EPERM:
		return unix.EACCES
	case ETEXTREGION, EDATAREGION, ESTACKREGION, EENABLEMPU, EDISABLEMPU:
		return unix.EIO
	default:
		return unix.EINVAL
	}
}

// PosixErr is a façade-level error that carries a POSIX errno with no
// corresponding internal Code: the façade's own policies (ENOENT,
// EISDIR, ENOTDIR, ENOTEMPTY, EBADF, ENAMETOOLONG, EACCES for the
// virtual file) sit one layer above the internal taxonomy in §6's
// errno table and are reported directly in these terms rather than
// forced through an internal Code that doesn't exist for them.
type PosixErr struct {
	Errno unix.Errno
}

func (e *PosixErr) Error() string {
	return e.Errno.Error()
}

// Posix builds a bare façade-level POSIX error.
func Posix(errno unix.Errno) error {
	return &PosixErr{Errno: errno}
}

// WrapPosix attaches ctx to a façade-level POSIX error, matching Wrap's
// convention for internal Codes.
func WrapPosix(errno unix.Errno, ctx string) error {
	return fmt.Errorf("%s: %w", ctx, Posix(errno))
}

// ToSyscallErrno strips any wrapping context down to the bare POSIX
// errno a syscall-shaped caller (a FUSE-style shim, for instance) can
// return directly. The second value is false if err wraps neither an
// *Errno nor a *PosixErr.
func ToSyscallErrno(err error) (unix.Errno, bool) {
	if err == nil {
		return 0, false
	}
	var e *Errno
	if errors.As(err, &e) {
		return e.Errno, true
	}
	var p *PosixErr
	if errors.As(err, &p) {
		return p.Errno, true
	}
	return 0, false
}

// Is reports whether err wraps an *Errno with the given code, the
// idiomatic way callers test for a specific failure (errors.Is-style)
// instead of comparing strings.
func Is(err error, code Code) bool {
	var e *Errno
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

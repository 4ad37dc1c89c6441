package lfsbd

import (
	"errors"
	"fmt"
)

// Error codes understood by littlefs.
const (
	ErrnoOK    = 0
	ErrnoIO    = -5  // LFS_ERR_IO
	ErrnoInval = -22 // LFS_ERR_INVAL
)

// ErrClosed is returned by operations on a destroyed device.
var ErrClosed = errors.New("block device is closed")

// Kind classifies the failure of a block device operation.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindOpen
	KindGeometryQuery
	KindSeek
	KindRead
	KindWrite
	KindShortIO
	KindFlush
	KindInvalidAddress
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "open"
	case KindGeometryQuery:
		return "geometry query"
	case KindSeek:
		return "seek"
	case KindRead:
		return "read"
	case KindWrite:
		return "write"
	case KindShortIO:
		return "short I/O"
	case KindFlush:
		return "flush"
	case KindInvalidAddress:
		return "invalid address"
	case KindClosed:
		return "closed"
	default:
		return "invalid/unknown"
	}
}

// Error lets a Kind be matched with errors.Is.
func (k Kind) Error() string {
	return "lfsbd: " + k.String()
}

// Error is returned by every fallible operation of this package.
type Error struct {
	Op     string
	Kind   Kind
	Path   string
	Block  uint32
	Offset uint32
	Length int
	Err    error
}

func (e *Error) Error() string {
	var where string
	switch {
	case e.Path != "":
		where = " " + e.Path
	case e.Op == "read" || e.Op == "prog" || e.Op == "erase" || e.Op == "check":
		where = fmt.Sprintf(" block %d off %d size %d", e.Block, e.Offset, e.Length)
	}
	if e.Err == nil {
		return fmt.Sprintf("lfsbd: %s%s: %s", e.Op, where, e.Kind.String())
	}
	return fmt.Sprintf("lfsbd: %s%s: %s: %v", e.Op, where, e.Kind.String(), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind against the kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Errno converts err into the negative littlefs return convention.
func Errno(err error) int {
	if err == nil {
		return ErrnoOK
	}
	if KindOf(err) == KindInvalidAddress {
		return ErrnoInval
	}
	return ErrnoIO
}

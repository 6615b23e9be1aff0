package memview

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange   = errors.New("range out of bounds")
	ErrSizeMismatch = errors.New("size is not a multiple of the element size")
	ErrClosed       = errors.New("view is closed")
)

// RangeError reports a request for [Begin, End) against something that only holds Size bytes.
type RangeError struct {
	Op    string
	Begin int64
	End   int64
	Size  int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: range [%d, %d) out of bounds (size: %d)", e.Op, e.Begin, e.End, e.Size)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

type SizeMismatchError struct {
	Size     int64
	ElemSize int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("view size %d is not a multiple of element size %d", e.Size, e.ElemSize)
}

func (e *SizeMismatchError) Unwrap() error {
	return ErrSizeMismatch
}

// UnsupportedTypeError is returned when a typed accessor is asked for a value that has no fixed encoded size.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("type %s has no fixed size", e.Type)
}

// CheckRange validates that 0 <= begin <= end <= size.
func CheckRange(op string, begin, end, size int64) error {
	if begin < 0 || begin > end || end > size {
		return &RangeError{Op: op, Begin: begin, End: end, Size: size}
	}

	return nil
}

// Package memview provides sliceable, lazily resolved views over byte sources
// such as in-memory buffers, memory-mapped files and streams.
//
// Slicing a View never touches the source. Bytes are fetched on the first read
// and memoized on that View instance only; views produced by slicing resolve
// their own, narrower range independently.
//
// A View is not safe for concurrent use by multiple goroutines.
package memview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
)

type View struct {
	src   *sharedSource
	begin int64
	end   int64

	resolved bool
	data     []byte
	handle   *Handle

	closed bool
}

// New returns a view spanning the whole source. The view takes ownership of src.
// A nil source yields an empty view.
func New(src Source) *View {
	if src == nil {
		return &View{}
	}

	shared := newSharedSource(src)

	return &View{
		src: shared,
		end: shared.size,
	}
}

// Slice returns a view over [first, last) relative to the beginning of v.
func (v *View) Slice(first, last int64) (*View, error) {
	return v.slice("slice", first, last)
}

// SliceFrom returns a view from first to the end of v.
func (v *View) SliceFrom(first int64) (*View, error) {
	return v.slice("slice from", first, v.Size())
}

// SliceTo returns a view from the beginning of v up to last (exclusive).
func (v *View) SliceTo(last int64) (*View, error) {
	return v.slice("slice to", 0, last)
}

func (v *View) slice(op string, first, last int64) (*View, error) {
	if v.closed {
		return nil, ErrClosed
	}

	size := v.sourceSize()

	// Compared before adding so that huge offsets cannot wrap around.
	if first < -v.begin || last < first || last > size-v.begin {
		return nil, &RangeError{Op: op, Begin: saturatingAdd(v.begin, first), End: saturatingAdd(v.begin, last), Size: size}
	}

	out := &View{
		begin: v.begin + first,
		end:   v.begin + last,
	}

	if v.src != nil {
		out.src = v.src.acquire()
	}

	return out, nil
}

// saturatingAdd adds two offsets, pinning the result at the int64 limits. Used for error reports only.
func saturatingAdd(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	default:
		return a + b
	}
}

func (v *View) sourceSize() int64 {
	if v.src == nil {
		return 0
	}

	return v.src.size
}

func (v *View) Size() int64 {
	return v.end - v.begin
}

func (v *View) IsEmpty() bool {
	return v.Size() == 0
}

// Offset returns the absolute position of the view's first byte within its source.
func (v *View) Offset() int64 {
	return v.begin
}

// Resolved reports whether the view's bytes have already been fetched.
func (v *View) Resolved() bool {
	return v.resolved
}

// Resolve fetches the view's bytes from the source on the first call and returns the memoized result afterwards.
//
// The returned handle is borrowed from the view and stays valid until Close.
// Callers that keep the bytes longer than the view must Retain the handle and Release it when done.
func (v *View) Resolve() ([]byte, *Handle, error) {
	if v.closed {
		return nil, nil, ErrClosed
	}

	if v.resolved {
		return v.data, v.handle, nil
	}

	if v.src == nil {
		v.resolved = true

		return nil, nil, nil
	}

	data, handle, err := v.src.src.Resolve(v.begin, v.end)
	if err != nil {
		return nil, nil, err
	}

	if int64(len(data)) != v.Size() {
		handle.Release()

		return nil, nil, fmt.Errorf("source returned %d bytes for range [%d, %d): %w", len(data), v.begin, v.end, io.ErrUnexpectedEOF)
	}

	v.data = data
	v.handle = handle
	v.resolved = true

	return v.data, v.handle, nil
}

// Bytes returns the resolved bytes. They are valid until the view is closed.
func (v *View) Bytes() ([]byte, error) {
	data, _, err := v.Resolve()

	return data, err
}

// NewReader returns a reader over the resolved bytes.
func (v *View) NewReader() (*bytes.Reader, error) {
	data, err := v.Bytes()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(data), nil
}

// Close drops the view's handle and its reference to the source.
// The source is closed once no view references it anymore.
func (v *View) Close() error {
	if v.closed {
		return nil
	}

	v.closed = true

	v.handle.Release()
	v.handle = nil
	v.data = nil

	if v.src == nil {
		return nil
	}

	err := v.src.release()
	v.src = nil

	return err
}

var _ io.Closer = (*View)(nil)

// IsOutOfRange reports whether err is a bounds violation.
func IsOutOfRange(err error) bool {
	return errors.Is(err, ErrOutOfRange)
}

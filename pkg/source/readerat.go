package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/e2b-dev/memview/pkg/memview"
)

// ReaderAt reads the requested range with positional reads on every Resolve.
// Like Stream it materializes a fresh buffer per call, but it has no cursor,
// so it is safe for concurrent use whenever the underlying reader is.
type ReaderAt struct {
	r    io.ReaderAt
	size int64
}

var _ memview.Source = (*ReaderAt)(nil)

// NewReaderAt serves size bytes of r. If r is an io.Closer it is closed together with the source.
func NewReaderAt(r io.ReaderAt, size int64) *ReaderAt {
	return &ReaderAt{
		r:    r,
		size: size,
	}
}

func (s *ReaderAt) Size() int64 {
	return s.size
}

func (s *ReaderAt) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	if err := memview.CheckRange("reader resolve", begin, end, s.size); err != nil {
		return nil, nil, err
	}

	buf, handle := buffers.get(end - begin)

	n, err := s.r.ReadAt(buf, begin)
	// ReadAt may return io.EOF together with a full read at the end of the input.
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		handle.Release()

		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, nil, fmt.Errorf("failed to read range %d-%d: %w", begin, end, err)
	}

	if n != len(buf) {
		handle.Release()

		return nil, nil, fmt.Errorf("failed to read range %d-%d: short read of %d bytes: %w", begin, end, n, io.ErrUnexpectedEOF)
	}

	return buf, handle, nil
}

func (s *ReaderAt) Close() error {
	closer, ok := s.r.(io.Closer)
	if !ok {
		return nil
	}

	return closer.Close()
}

package source

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/e2b-dev/memview/pkg/memview"
)

// Stream reads the requested range from a seekable stream on every Resolve.
// Each call materializes a fresh buffer owned by the returned handle, nothing is cached.
//
// The stream has a single seek cursor, so resolutions are serialized.
type Stream struct {
	mu   sync.Mutex
	r    io.ReadSeeker
	size int64
}

var _ memview.Source = (*Stream)(nil)

// NewStream serves size bytes of r. If r is an io.Closer it is closed together with the source.
func NewStream(r io.ReadSeeker, size int64) *Stream {
	return &Stream{
		r:    r,
		size: size,
	}
}

// NewStreamFromSeeker determines the size by seeking to the end of r.
func NewStreamFromSeeker(r io.ReadSeeker) (*Stream, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to determine stream size: %w", err)
	}

	return NewStream(r, size), nil
}

func (s *Stream) Size() int64 {
	return s.size
}

func (s *Stream) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	if err := memview.CheckRange("stream resolve", begin, end, s.size); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.r.Seek(begin, io.SeekStart)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to seek to %d: %w", begin, err)
	}

	buf, handle := buffers.get(end - begin)

	_, err = io.ReadFull(s.r, buf)
	if err != nil {
		handle.Release()

		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return nil, nil, fmt.Errorf("failed to read range %d-%d: %w", begin, end, err)
	}

	return buf, handle, nil
}

func (s *Stream) Close() error {
	closer, ok := s.r.(io.Closer)
	if !ok {
		return nil
	}

	return closer.Close()
}

package memview

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Source provides the raw bytes behind a View.
//
// Resolve must return exactly end-begin bytes for 0 <= begin <= end <= Size(), or an error.
// A nil handle means the bytes stay valid for as long as the source itself.
// Sources that implement io.Closer are closed when the last View referencing them is closed.
type Source interface {
	Size() int64
	Resolve(begin, end int64) ([]byte, *Handle, error)
}

type sharedSource struct {
	src  Source
	size int64
	refs atomic.Int64
}

func newSharedSource(src Source) *sharedSource {
	s := &sharedSource{
		src:  src,
		size: src.Size(),
	}
	s.refs.Store(1)

	return s
}

func (s *sharedSource) acquire() *sharedSource {
	s.refs.Add(1)

	return s
}

func (s *sharedSource) release() error {
	refs := s.refs.Add(-1)
	if refs > 0 {
		return nil
	}

	if refs < 0 {
		panic("memview: source released more times than acquired")
	}

	closer, ok := s.src.(io.Closer)
	if !ok {
		return nil
	}

	err := closer.Close()
	if err != nil {
		return fmt.Errorf("failed to close source: %w", err)
	}

	return nil
}

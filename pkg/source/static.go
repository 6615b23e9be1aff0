// Package source contains memview.Source implementations: memory, memory-mapped
// files, streams and positional readers, plus opt-in decorators for caching,
// retrying and instrumenting another source.
package source

import (
	"encoding/binary"
	"fmt"

	"github.com/e2b-dev/memview/pkg/memview"
)

// Static serves bytes that are already resident and outlive every view built on them.
// It never allocates and is safe for concurrent use.
type Static struct {
	b []byte
}

var _ memview.Source = (*Static)(nil)

func NewStatic(b []byte) *Static {
	return &Static{b: b}
}

// FromValues encodes fixed-size values in the host byte order and serves the result.
func FromValues[T any](values []T) (*Static, error) {
	b, err := binary.Append(nil, binary.NativeEndian, values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", values, err)
	}

	return NewStatic(b), nil
}

func (s *Static) Size() int64 {
	return int64(len(s.b))
}

func (s *Static) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	if err := memview.CheckRange("static resolve", begin, end, s.Size()); err != nil {
		return nil, nil, err
	}

	return s.b[begin:end:end], nil, nil
}

package source

import (
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/e2b-dev/memview/pkg/memview"
)

// Advice is a hint to the kernel about the expected access pattern of a mapping.
type Advice int

const (
	AdviceNormal Advice = iota
	AdviceRandom
	AdviceSequential
	AdviceWillNeed
)

// Mmap serves a read-only memory mapping of a file.
// Slices returned by Resolve point directly into the mapping and stay valid until Close.
type Mmap struct {
	path   string
	size   int64
	mmap   mmap.MMap
	closed atomic.Bool
}

var _ memview.Source = (*Mmap)(nil)

func OpenMmap(path string) (*Mmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	// The mapping stays valid after the descriptor is closed.
	defer f.Close()

	return NewMmap(f)
}

// NewMmap maps the whole file. The caller keeps ownership of f.
func NewMmap(f *os.File) (*Mmap, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	size := info.Size()
	if size > math.MaxInt {
		return nil, fmt.Errorf("size too big: %d > %d", size, math.MaxInt)
	}

	m := &Mmap{
		path: f.Name(),
		size: size,
	}

	// Zero-length mappings are rejected by the kernel, there is nothing to map anyway.
	if size == 0 {
		return m, nil
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("error mapping file: %w", err)
	}

	m.mmap = mm

	return m, nil
}

func (m *Mmap) Size() int64 {
	return m.size
}

func (m *Mmap) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	if m.closed.Load() {
		return nil, nil, NewErrClosed(m.path)
	}

	if err := memview.CheckRange("mmap resolve", begin, end, m.size); err != nil {
		return nil, nil, err
	}

	if m.mmap == nil {
		return []byte{}, nil, nil
	}

	return m.mmap[begin:end:end], nil, nil
}

// Advise passes an access pattern hint for the whole mapping to the kernel.
func (m *Mmap) Advise(advice Advice) error {
	if m.closed.Load() {
		return NewErrClosed(m.path)
	}

	if m.mmap == nil {
		return nil
	}

	return madvise(m.mmap, advice)
}

func (m *Mmap) Path() string {
	return m.path
}

func (m *Mmap) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return NewErrClosed(m.path)
	}

	if m.mmap == nil {
		return nil
	}

	err := m.mmap.Unmap()
	if err != nil {
		return fmt.Errorf("error unmapping mmap: %w", err)
	}

	return nil
}

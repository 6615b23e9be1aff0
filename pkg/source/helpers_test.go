package source

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/e2b-dev/memview/pkg/memview"
)

var errFlaky = errors.New("flaky read")

// countingSource wraps a source, counts resolutions and fails the first failures calls.
type countingSource struct {
	base memview.Source

	mu       sync.Mutex
	ranges   [][2]int64
	failures int

	resolves atomic.Int64
	closed   atomic.Int64
}

func newCountingSource(data []byte) *countingSource {
	return &countingSource{base: NewStatic(data)}
}

func (c *countingSource) Size() int64 {
	return c.base.Size()
}

func (c *countingSource) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	c.resolves.Add(1)

	c.mu.Lock()
	c.ranges = append(c.ranges, [2]int64{begin, end})
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	c.mu.Unlock()

	if fail {
		return nil, nil, errFlaky
	}

	return c.base.Resolve(begin, end)
}

func (c *countingSource) Close() error {
	c.closed.Add(1)

	return nil
}

func (c *countingSource) resolvedRanges() [][2]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([][2]int64(nil), c.ranges...)
}

package source

import (
	"math/bits"
	"sync"

	"github.com/e2b-dev/memview/pkg/memview"
)

const (
	minPooledSize = 4 * 1024        // 4 KB
	maxPooledSize = 4 * 1024 * 1024 // 4 MB
)

// bufferPool hands out buffers in power-of-two size classes.
// We don't need to clean up the buffers' content, because they are always overwritten fully by a read.
type bufferPool struct {
	classes []*sync.Pool
}

func newBufferPool() *bufferPool {
	p := &bufferPool{}

	for size := minPooledSize; size <= maxPooledSize; size <<= 1 {
		classSize := size

		p.classes = append(p.classes, &sync.Pool{
			New: func() any {
				b := make([]byte, classSize)

				return &b
			},
		})
	}

	return p
}

func classIndex(n int64) int {
	if n <= minPooledSize {
		return 0
	}

	return bits.Len64(uint64(n-1)) - bits.Len64(minPooledSize-1)
}

// get returns a buffer of exactly n bytes and a handle that gives the buffer back to the pool once released.
func (p *bufferPool) get(n int64) ([]byte, *memview.Handle) {
	if n > maxPooledSize {
		return make([]byte, n), memview.NewHandle(nil)
	}

	class := p.classes[classIndex(n)]
	buf := class.Get().(*[]byte)

	return (*buf)[:n:n], memview.NewHandle(func() {
		class.Put(buf)
	})
}

var buffers = newBufferPool()

package source

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Marker tracks which chunks have been fetched.
type Marker struct {
	bitset *bitset.BitSet
	mu     sync.RWMutex
}

func NewMarker(size uint) *Marker {
	return &Marker{
		bitset: bitset.New(size),
	}
}

func (b *Marker) Mark(idx int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bitset.Set(uint(idx))
}

func (b *Marker) IsMarked(idx int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.bitset.Test(uint(idx))
}

// Count returns the number of marked chunks.
func (b *Marker) Count() uint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.bitset.Count()
}

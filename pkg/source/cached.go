package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/e2b-dev/memview/pkg/logger"
	"github.com/e2b-dev/memview/pkg/memview"
)

const (
	// DefaultChunkSize is the granularity in which Cached fetches from its base source.
	DefaultChunkSize  = 2 * 1024 * 1024 // 2 MB
	concurrentFetches = 32
)

var tracer = otel.Tracer("github.com/e2b-dev/memview/pkg/source")

// Cached keeps a local, memory-mapped copy of a slower base source.
//
// Data is fetched from the base in whole chunks on first access. Resolve returns slices that
// point directly into the mapping, so they carry no handle and stay valid until Close.
// Cached is safe for concurrent use if the base source is.
type Cached struct {
	ctx context.Context

	base      memview.Source
	size      int64
	chunkSize int64

	filePath string
	mmap     mmap.MMap
	marker   *Marker

	fetchSemaphore *semaphore.Weighted
	fetchGroup     singleflight.Group

	// Close must not unmap while a Resolve is still copying into or slicing the mapping.
	mu     sync.RWMutex
	closed atomic.Bool
}

var _ memview.Source = (*Cached)(nil)

// NewCached creates a sparse cache file in cacheDir sized like base. The returned source owns base.
func NewCached(ctx context.Context, base memview.Source, cacheDir string, chunkSize int64) (*Cached, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	size := base.Size()
	if size > math.MaxInt {
		return nil, fmt.Errorf("size too big: %d > %d", size, math.MaxInt)
	}

	filePath := filepath.Join(cacheDir, fmt.Sprintf("memview-%s.cache", uuid.NewString()))

	f, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	// This should create a sparse file on Linux.
	err = f.Truncate(size)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error allocating file: %w", err), os.Remove(filePath))
	}

	var mm mmap.MMap
	if size > 0 {
		mm, err = mmap.MapRegion(f, int(size), mmap.RDWR, 0, 0)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("error mapping file: %w", err), os.Remove(filePath))
		}
	}

	chunks := (size + chunkSize - 1) / chunkSize

	return &Cached{
		ctx:            ctx,
		base:           base,
		size:           size,
		chunkSize:      chunkSize,
		filePath:       filePath,
		mmap:           mm,
		marker:         NewMarker(uint(chunks)),
		fetchSemaphore: semaphore.NewWeighted(concurrentFetches),
	}, nil
}

func (c *Cached) Size() int64 {
	return c.size
}

func (c *Cached) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed.Load() {
		return nil, nil, NewErrClosed(c.filePath)
	}

	if err := memview.CheckRange("cached resolve", begin, end, c.size); err != nil {
		return nil, nil, err
	}

	if begin == end {
		return []byte{}, nil, nil
	}

	err := c.ensureData(begin, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to ensure data at %d-%d: %w", begin, end, err)
	}

	return c.mmap[begin:end:end], nil, nil
}

func (c *Cached) chunkRange(begin, end int64) (first, last int64) {
	return begin / c.chunkSize, (end - 1) / c.chunkSize
}

// isCached reports whether all chunks overlapping [begin, end) were fetched.
func (c *Cached) isCached(begin, end int64) bool {
	first, last := c.chunkRange(begin, end)

	for idx := first; idx <= last; idx++ {
		if !c.marker.IsMarked(idx) {
			return false
		}
	}

	return true
}

func (c *Cached) ensureData(begin, end int64) error {
	if c.isCached(begin, end) {
		return nil
	}

	first, last := c.chunkRange(begin, end)

	var eg errgroup.Group

	for idx := first; idx <= last; idx++ {
		if c.marker.IsMarked(idx) {
			continue
		}

		eg.Go(func() error {
			_, err, _ := c.fetchGroup.Do(strconv.FormatInt(idx, 10), func() (any, error) {
				if c.marker.IsMarked(idx) {
					return nil, nil
				}

				err := c.fetchSemaphore.Acquire(c.ctx, 1)
				if err != nil {
					return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
				}

				defer c.fetchSemaphore.Release(1)

				return nil, c.fetchChunk(idx)
			})

			return err
		})
	}

	return eg.Wait()
}

func (c *Cached) fetchChunk(idx int64) error {
	start := idx * c.chunkSize
	stop := min(start+c.chunkSize, c.size)

	_, span := tracer.Start(c.ctx, "fetch-chunk")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("chunk.index", idx),
		attribute.Int64("chunk.start", start),
		attribute.Int64("chunk.end", stop),
	)

	select {
	case <-c.ctx.Done():
		return fmt.Errorf("error fetching chunk %d: %w", idx, c.ctx.Err())
	default:
	}

	data, handle, err := c.base.Resolve(start, stop)
	if err != nil {
		span.RecordError(err)

		return fmt.Errorf("failed to fetch chunk %d (%d-%d): %w", idx, start, stop, err)
	}

	copy(c.mmap[start:stop], data)
	handle.Release()

	c.marker.Mark(idx)

	zap.L().Debug("fetched chunk",
		zap.String("cache", c.filePath),
		zap.Int64("chunk", idx),
		logger.WithRange(start, stop),
	)

	return nil
}

// CachedChunks returns the number of chunks present locally.
func (c *Cached) CachedChunks() uint {
	return c.marker.Count()
}

func (c *Cached) Path() string {
	return c.filePath
}

func (c *Cached) Close() (e error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return NewErrClosed(c.filePath)
	}

	if c.mmap != nil {
		err := c.mmap.Unmap()
		if err != nil {
			e = errors.Join(e, fmt.Errorf("error unmapping mmap: %w", err))
		}
	}

	e = errors.Join(e, os.RemoveAll(c.filePath))

	if closer, ok := c.base.(io.Closer); ok {
		err := closer.Close()
		if err != nil {
			e = errors.Join(e, fmt.Errorf("error closing base source: %w", err))
		}
	}

	return e
}

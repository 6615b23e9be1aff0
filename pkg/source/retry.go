package source

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"

	"github.com/e2b-dev/memview/pkg/logger"
	"github.com/e2b-dev/memview/pkg/memview"
)

const (
	DefaultFetchRetries = 3
)

// DefaultBackoff is the backoff used between attempts when none is configured.
var DefaultBackoff = gax.Backoff{
	Initial:    10 * time.Millisecond,
	Max:        time.Second,
	Multiplier: 2,
}

// Retrier retries failed resolutions of its base source.
// Range errors are caller mistakes and are returned immediately.
type Retrier struct {
	base        memview.Source
	maxAttempts int
	backoff     gax.Backoff
}

var _ memview.Source = (*Retrier)(nil)

func NewRetrier(base memview.Source, maxAttempts int, backoff gax.Backoff) *Retrier {
	return &Retrier{
		base:        base,
		maxAttempts: max(maxAttempts, 1),
		backoff:     backoff,
	}
}

func (r *Retrier) Size() int64 {
	return r.base.Size()
}

func (r *Retrier) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	// Every call gets its own backoff state.
	backoff := gax.Backoff{
		Initial:    r.backoff.Initial,
		Max:        r.backoff.Max,
		Multiplier: r.backoff.Multiplier,
	}

	for attempt := 1; ; attempt++ {
		data, handle, err := r.base.Resolve(begin, end)
		if err == nil {
			return data, handle, nil
		}

		if errors.Is(err, memview.ErrOutOfRange) {
			return nil, nil, err
		}

		if attempt >= r.maxAttempts {
			return nil, nil, fmt.Errorf("failed to resolve %d-%d after %d attempts: %w", begin, end, attempt, err)
		}

		zap.L().Warn("retrying resolve after error",
			logger.WithRange(begin, end),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		time.Sleep(backoff.Pause())
	}
}

func (r *Retrier) Close() error {
	closer, ok := r.base.(io.Closer)
	if !ok {
		return nil
	}

	return closer.Close()
}

package source

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/metric"

	"github.com/e2b-dev/memview/pkg/memview"
	"github.com/e2b-dev/memview/pkg/source/metrics"
)

type result string

const (
	resultSuccess result = "success"
	resultFailure result = "failure"
)

// Instrumented records latency and volume of its base source's resolutions.
type Instrumented struct {
	base    memview.Source
	metrics metrics.Metrics
	name    string
}

var _ memview.Source = (*Instrumented)(nil)

func NewInstrumented(base memview.Source, m metrics.Metrics, name string) *Instrumented {
	return &Instrumented{
		base:    base,
		metrics: m,
		name:    name,
	}
}

func (i *Instrumented) Size() int64 {
	return i.base.Size()
}

func (i *Instrumented) Resolve(begin, end int64) ([]byte, *memview.Handle, error) {
	ctx := context.Background()
	name := metrics.KV("source", i.name)

	timer := i.metrics.Begin(i.metrics.ResolveMetric)

	data, handle, err := i.base.Resolve(begin, end)
	if err != nil {
		timer.End(ctx, name, metrics.KV("result", resultFailure))

		return nil, nil, err
	}

	timer.End(ctx, name, metrics.KV("result", resultSuccess))
	i.metrics.ResolvedBytesMetric.Add(ctx, int64(len(data)), metric.WithAttributes(name))

	return data, handle, nil
}

func (i *Instrumented) Close() error {
	closer, ok := i.base.(io.Closer)
	if !ok {
		return nil
	}

	return closer.Close()
}

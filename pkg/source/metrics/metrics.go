package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ResolveMetric       metric.Int64Histogram
	ResolvedBytesMetric metric.Int64Counter
}

func NewMetrics(meterProvider metric.MeterProvider) (Metrics, error) {
	sourceMeter := meterProvider.Meter("pkg.source.metrics")

	resolves, err := sourceMeter.Int64Histogram("memview.source.resolve",
		metric.WithDescription("Duration of source resolutions"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get resolve metric: %w", err)
	}

	resolvedBytes, err := sourceMeter.Int64Counter("memview.source.resolve.bytes",
		metric.WithDescription("Total bytes resolved"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to get resolved bytes metric: %w", err)
	}

	return Metrics{
		ResolveMetric:       resolves,
		ResolvedBytesMetric: resolvedBytes,
	}, nil
}

func (c Metrics) Begin(metric metric.Int64Histogram) Stopwatch {
	return Stopwatch{metric: metric, start: time.Now()}
}

func KV[T ~string](key string, value T) attribute.KeyValue {
	return attribute.String(key, string(value))
}

type Stopwatch struct {
	metric metric.Int64Histogram
	start  time.Time
}

func (t Stopwatch) End(ctx context.Context, kv ...attribute.KeyValue) {
	amount := time.Since(t.start).Milliseconds()
	t.metric.Record(ctx, amount, metric.WithAttributes(kv...))
}

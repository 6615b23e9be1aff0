package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/e2b-dev/memview/internal/cfg"
	"github.com/e2b-dev/memview/internal/layout"
	"github.com/e2b-dev/memview/pkg/logger"
	"github.com/e2b-dev/memview/pkg/memview"
	"github.com/e2b-dev/memview/pkg/objstore"
	"github.com/e2b-dev/memview/pkg/source"
	"github.com/e2b-dev/memview/pkg/source/metrics"
)

const (
	modeMmap   = "mmap"
	modeStream = "stream"
)

type options struct {
	path      string
	mode      string
	layout    string
	offset    int64
	length    int64
	blockSize int64
}

// openSource builds the source chain for path: the backing source, then retries for remote
// objects, then the local chunk cache when configured, then instrumentation.
func openSource(ctx context.Context, config cfg.Config, opts options) (memview.Source, string, error) {
	var (
		base    memview.Source
		details string
		name    = opts.mode
	)

	if objstore.IsObjectURL(opts.path) {
		obj, err := objstore.Open(ctx, opts.path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open object: %w", err)
		}

		src, err := objstore.NewSource(obj)
		if err != nil {
			return nil, "", err
		}

		base = source.NewRetrier(src, config.FetchRetries, config.Backoff())
		details = obj.Details()
		name = "object"
	} else {
		switch opts.mode {
		case modeMmap:
			m, err := source.OpenMmap(opts.path)
			if err != nil {
				return nil, "", err
			}

			if err := m.Advise(source.AdviceSequential); err != nil {
				zap.L().Warn("failed to advise mapping", logger.WithSource(opts.path), zap.Error(err))
			}

			base = m
		case modeStream:
			f, err := os.Open(opts.path)
			if err != nil {
				return nil, "", fmt.Errorf("failed to open file: %w", err)
			}

			s, err := source.NewStreamFromSeeker(f)
			if err != nil {
				return nil, "", errors.Join(err, f.Close())
			}

			base = s
		default:
			return nil, "", fmt.Errorf("invalid mode: %s", opts.mode)
		}

		details = fmt.Sprintf("[Local file, mode=%s] %s", opts.mode, opts.path)
	}

	if config.CacheDir != "" {
		cached, err := source.NewCached(ctx, base, config.CacheDir, config.ChunkSize)
		if err != nil {
			return nil, "", errors.Join(fmt.Errorf("failed to create cache: %w", err), closeSource(base))
		}

		zap.L().Debug("caching source", logger.WithSource(opts.path), zap.String("cache", cached.Path()))

		base = cached
	}

	m, err := metrics.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return nil, "", errors.Join(err, closeSource(base))
	}

	return source.NewInstrumented(base, m, name), details, nil
}

func closeSource(src memview.Source) error {
	if closer, ok := src.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

func run(ctx context.Context, config cfg.Config, opts options, out io.Writer) error {
	if opts.path == "" {
		return errors.New("path is required")
	}

	if opts.blockSize <= 0 {
		return fmt.Errorf("invalid block size: %d", opts.blockSize)
	}

	fields, err := layout.Parse(opts.layout)
	if err != nil {
		return fmt.Errorf("failed to parse layout: %w", err)
	}

	src, details, err := openSource(ctx, config, opts)
	if err != nil {
		return err
	}

	root := memview.New(src)
	defer root.Close()

	var selected *memview.View
	if opts.length == 0 {
		selected, err = root.SliceFrom(opts.offset)
	} else {
		selected, err = root.Slice(opts.offset, opts.offset+opts.length)
	}
	if err != nil {
		return fmt.Errorf("failed to select range: %w", err)
	}
	defer selected.Close()

	fmt.Fprintf(out, "\nMETADATA\n")
	fmt.Fprintf(out, "========\n")
	fmt.Fprintf(out, "Source             %s\n", details)
	fmt.Fprintf(out, "Size               %d B (%s)\n", root.Size(), humanize.IBytes(uint64(root.Size())))
	fmt.Fprintf(out, "Range              [%d, %d)\n", selected.Offset(), selected.Offset()+selected.Size())
	fmt.Fprintf(out, "Block size         %d B\n", opts.blockSize)

	values, tail, err := layout.Decode(selected, fields)
	if err != nil {
		return fmt.Errorf("failed to unpack fields: %w", err)
	}
	defer tail.Close()

	if len(fields) > 0 {
		fmt.Fprintf(out, "\nFIELDS\n")
		fmt.Fprintf(out, "======\n")

		var off int64
		for i, f := range fields {
			fmt.Fprintf(out, "%-4d %-10s @%-11d %s\n", i, f.String(), selected.Offset()+off, f.Format(values[i]))
			off += f.Size()
		}
	}

	fmt.Fprintf(out, "\nDATA\n")
	fmt.Fprintf(out, "====\n")

	emptyCount := 0
	nonEmptyCount := 0

	for start := int64(0); start < tail.Size(); start += opts.blockSize {
		end := min(start+opts.blockSize, tail.Size())

		nonZero, err := countNonZero(tail, start, end)
		if err != nil {
			return err
		}

		absStart := tail.Offset() + start
		absEnd := tail.Offset() + end

		if nonZero > 0 {
			nonEmptyCount++
			fmt.Fprintf(out, "%-10d [%11d,%11d) %d non-zero bytes\n", start/opts.blockSize, absStart, absEnd, nonZero)
		} else {
			emptyCount++
			fmt.Fprintf(out, "%-10d [%11d,%11d) EMPTY\n", start/opts.blockSize, absStart, absEnd)
		}
	}

	fmt.Fprintf(out, "\nSUMMARY\n")
	fmt.Fprintf(out, "=======\n")
	fmt.Fprintf(out, "Unpacked fields: %d (%d B)\n", len(fields), layout.Size(fields))
	fmt.Fprintf(out, "Empty inspected blocks: %d\n", emptyCount)
	fmt.Fprintf(out, "Non-empty inspected blocks: %d\n", nonEmptyCount)
	fmt.Fprintf(out, "Total inspected blocks: %d\n", emptyCount+nonEmptyCount)
	fmt.Fprintf(out, "Total inspected size: %s\n", humanize.IBytes(uint64(tail.Size())))

	return nil
}

func countNonZero(v *memview.View, start, end int64) (int64, error) {
	block, err := v.Slice(start, end)
	if err != nil {
		return 0, err
	}
	defer block.Close()

	data, err := block.Bytes()
	if err != nil {
		return 0, fmt.Errorf("failed to read block [%d, %d): %w", start, end, err)
	}

	return int64(len(data) - bytes.Count(data, []byte{0})), nil
}

package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2"
)

const (
	googleOperationTimeout = 5 * time.Second
	googleReadTimeout      = 10 * time.Second
)

type GCSObject struct {
	ctx    context.Context
	handle *storage.ObjectHandle
	bucket string
	path   string

	// client is set only when the object owns it and must close it.
	client *storage.Client
}

var (
	_ Object    = (*GCSObject)(nil)
	_ io.Closer = (*GCSObject)(nil)
)

// NewGCSObject reads path from bucket. The caller keeps ownership of client.
func NewGCSObject(ctx context.Context, client *storage.Client, bucket, path string) *GCSObject {
	obj := client.Bucket(bucket).Object(path).Retryer(
		storage.WithBackoff(gax.Backoff{
			Initial:    10 * time.Millisecond,
			Max:        10 * time.Second,
			Multiplier: 2,
		}),
		storage.WithPolicy(storage.RetryAlways),
	)

	return &GCSObject{
		ctx:    ctx,
		handle: obj,
		bucket: bucket,
		path:   path,
	}
}

func (g *GCSObject) ReadAt(buff []byte, off int64) (n int, err error) {
	ctx, cancel := context.WithTimeout(g.ctx, googleReadTimeout)
	defer cancel()

	// The file should not be gzip compressed
	reader, err := g.handle.NewRangeReader(ctx, off, int64(len(buff)))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, ErrObjectNotExist
		}

		return 0, fmt.Errorf("failed to create GCS reader: %w", err)
	}

	defer reader.Close()

	for reader.Remain() > 0 {
		nr, readErr := reader.Read(buff[n:])
		n += nr

		if readErr == nil {
			continue
		}

		if errors.Is(readErr, io.EOF) {
			break
		}

		return n, fmt.Errorf("failed to read from GCS object: %w", readErr)
	}

	if n < len(buff) {
		return n, io.EOF
	}

	return n, nil
}

func (g *GCSObject) Size() (int64, error) {
	ctx, cancel := context.WithTimeout(g.ctx, googleOperationTimeout)
	defer cancel()

	attrs, err := g.handle.Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return 0, ErrObjectNotExist
		}

		return 0, fmt.Errorf("failed to get GCS object (%s) attributes: %w", g.path, err)
	}

	return attrs.Size, nil
}

func (g *GCSObject) Details() string {
	return fmt.Sprintf("[GCS Storage, bucket set to %s]/%s", g.bucket, g.path)
}

// Close releases the client if the object was opened with its own one.
func (g *GCSObject) Close() error {
	if g.client == nil {
		return nil
	}

	err := g.client.Close()
	g.client = nil
	if err != nil {
		return fmt.Errorf("failed to close GCS client: %w", err)
	}

	return nil
}

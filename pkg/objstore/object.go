// Package objstore reads ranges of objects stored in GCS or S3.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/e2b-dev/memview/pkg/source"
)

var ErrObjectNotExist = errors.New("object does not exist")

// Object is a remote object that supports ranged reads.
type Object interface {
	io.ReaderAt
	Size() (int64, error)
	Details() string
}

// NewSource returns a source that reads obj on demand, one ranged request per resolution.
func NewSource(obj Object) (*source.ReaderAt, error) {
	size, err := obj.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to get object size: %w", err)
	}

	return source.NewReaderAt(obj, size), nil
}

// Open resolves gs://bucket/path and s3://bucket/key URLs using default credentials.
// Clients created here are owned by the returned object and released by its Close, if it has one.
func Open(ctx context.Context, rawURL string) (Object, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object URL %q: %w", rawURL, err)
	}

	bucket := u.Host
	path := strings.TrimPrefix(u.Path, "/")

	if bucket == "" || path == "" {
		return nil, fmt.Errorf("object URL %q must contain a bucket and a path", rawURL)
	}

	switch u.Scheme {
	case "gs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}

		obj := NewGCSObject(ctx, client, bucket, path)
		obj.client = client

		return obj, nil
	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		return NewS3Object(ctx, s3.NewFromConfig(cfg), bucket, path), nil
	default:
		return nil, fmt.Errorf("unsupported object URL scheme %q", u.Scheme)
	}
}

// IsObjectURL reports whether path names a remote object rather than a local file.
func IsObjectURL(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://")
}

package objstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e2b-dev/memview/pkg/memview"
)

const (
	testBucket = "bucket"
	testKey    = "builds/memfile"
)

// newTestS3 serves data under /bucket/builds/memfile, the path-style location of the test object.
func newTestS3(t *testing.T, data []byte) (*s3.Client, *atomic.Int64) {
	t.Helper()

	var gets atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/") != testBucket+"/"+testKey {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			}

			return
		}

		if r.Method == http.MethodGet {
			gets.Add(1)
		}

		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String(srv.URL),
		UsePathStyle:     true,
		Credentials:      aws.AnonymousCredentials{},
		RetryMaxAttempts: 1,
	})

	return client, &gets
}

func TestS3Object_SizeAndReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("0123456789abcdef")
	client, _ := newTestS3(t, data)

	obj := NewS3Object(context.Background(), client, testBucket, testKey)

	size, err := obj.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	buf := make([]byte, 4)
	n, err := obj.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("6789"), buf)

	// Reading past the end returns what is there and io.EOF.
	buf = make([]byte, 8)
	n, err = obj.ReadAt(buf, 12)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("cdef"), buf[:n])
}

func TestS3Object_Missing(t *testing.T) {
	t.Parallel()

	client, _ := newTestS3(t, nil)

	obj := NewS3Object(context.Background(), client, testBucket, "missing")

	_, err := obj.Size()
	require.ErrorIs(t, err, ErrObjectNotExist)

	_, err = obj.ReadAt(make([]byte, 1), 0)
	require.ErrorIs(t, err, ErrObjectNotExist)
}

func TestS3Object_View(t *testing.T) {
	t.Parallel()

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	client, gets := newTestS3(t, data)

	src, err := NewSource(NewS3Object(context.Background(), client, testBucket, testKey))
	require.NoError(t, err)

	v := memview.New(src)
	defer v.Close()

	tail, err := v.SliceFrom(4)
	require.NoError(t, err)
	defer tail.Close()

	assert.Zero(t, gets.Load())

	seq, err := memview.AsSlice[uint8](tail)
	require.NoError(t, err)
	assert.Equal(t, []uint8{5, 6, 7, 8}, seq)
	assert.Equal(t, int64(1), gets.Load())
}

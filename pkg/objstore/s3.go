package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	awsOperationTimeout = 5 * time.Second
	awsReadTimeout      = 15 * time.Second
)

type S3Object struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
}

var _ Object = (*S3Object)(nil)

func NewS3Object(ctx context.Context, client *s3.Client, bucket, key string) *S3Object {
	return &S3Object{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
	}
}

func (o *S3Object) ReadAt(buff []byte, off int64) (n int, err error) {
	if len(buff) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(o.ctx, awsReadTimeout)
	defer cancel()

	readRange := aws.String(fmt.Sprintf("bytes=%d-%d", off, off+int64(len(buff))-1))
	resp, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  readRange,
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return 0, ErrObjectNotExist
		}

		return 0, fmt.Errorf("failed to get S3 object range: %w", err)
	}

	defer resp.Body.Close()

	// When the object is smaller than requested range there will be unexpected EOF,
	// but io.ReaderAt expects EOF in this case.
	n, err = io.ReadFull(resp.Body, buff)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	return n, err
}

func (o *S3Object) Size() (int64, error) {
	ctx, cancel := context.WithTimeout(o.ctx, awsOperationTimeout)
	defer cancel()

	resp, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &o.bucket, Key: &o.key})
	if err != nil {
		var nsk *types.NotFound
		if errors.As(err, &nsk) {
			return 0, ErrObjectNotExist
		}

		return 0, fmt.Errorf("failed to head S3 object: %w", err)
	}

	return aws.ToInt64(resp.ContentLength), nil
}

func (o *S3Object) Details() string {
	return fmt.Sprintf("[S3 Storage, bucket set to %s]/%s", o.bucket, o.key)
}

// Package download handles S3 object download operations.
// Bodies are streamed into a caller-supplied seekable sink, optionally limited
// to a single byte range, and the sink is rewound once the body is written.
package download

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// Downloader handles S3 download operations.
type Downloader struct {
	s3Client s3api.S3API
}

// New creates a new Downloader instance.
func New(s3Client s3api.S3API) *Downloader {
	return &Downloader{
		s3Client: s3Client,
	}
}

// Download writes the object (or the configured range of it) into w and then
// seeks w back to offset 0. SDK errors are returned wrapped, never translated.
func (d *Downloader) Download(
	ctx context.Context,
	bucket, key string,
	w io.WriteSeeker,
	config *s3types.DownloadConfig,
	startTime time.Time,
) (*s3types.DownloadResult, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if config != nil && config.RangeSpec != "" {
		input.Range = aws.String(config.RangeSpec)
	}

	output, err := d.s3Client.GetObject(ctx, input)
	if err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err)
	}
	defer output.Body.Close()

	sizeHint := aws.ToInt64(output.ContentLength)
	written, err := pool.Copy(w, output.Body, sizeHint)
	if err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err).WithMessage("write body")
	}

	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err).WithMessage("rewind sink")
	}

	return &s3types.DownloadResult{
		Key:          key,
		Size:         written,
		ContentType:  aws.ToString(output.ContentType),
		ContentRange: aws.ToString(output.ContentRange),
		ETag:         aws.ToString(output.ETag),
		VersionID:    aws.ToString(output.VersionId),
		Duration:     time.Since(startTime),
	}, nil
}

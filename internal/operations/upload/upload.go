// Package upload handles S3 object uploads through the SDK's managed uploader.
// The manager decides between a single PutObject and a multipart upload; this
// package fills in the request, sniffs a content type when none is given, and
// reports what was written.
package upload

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// sniffLimit is how many leading bytes are inspected for content detection.
const sniffLimit = 3072

// Uploader handles S3 upload operations.
type Uploader struct {
	uploader s3api.UploaderAPI
}

// New creates a new Uploader instance.
func New(uploader s3api.UploaderAPI) *Uploader {
	return &Uploader{
		uploader: uploader,
	}
}

// Upload writes everything read from r to bucket/key.
func (u *Uploader) Upload(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	config *s3types.UploadConfig,
	startTime time.Time,
) (*s3types.UploadResult, error) {
	if config == nil {
		config = &s3types.UploadConfig{}
	}

	body, size, err := measure(r)
	if err != nil {
		return nil, errors.NewObjectError("upload", bucket, key, err).WithMessage("measure body")
	}

	contentType := config.ContentType
	if contentType == "" {
		contentType, body, err = DetectContentType(body)
		if err != nil {
			return nil, errors.NewObjectError("upload", bucket, key, err).WithMessage("detect content type")
		}
	}

	var counter *countingReader
	if size < 0 {
		counter = &countingReader{r: body}
		body = counter
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if config.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(config.StorageClass)
	}
	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.uploader.Upload(ctx, input, func(m *manager.Uploader) {
		if config.PartSize > 0 {
			m.PartSize = config.PartSize
		}
		if config.Concurrency > 0 {
			m.Concurrency = config.Concurrency
		}
	})
	if err != nil {
		return nil, errors.NewObjectError("upload", bucket, key, err)
	}

	if counter != nil {
		size = counter.n
	}

	return &s3types.UploadResult{
		Key:       key,
		Size:      size,
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionID),
		Location:  output.Location,
		Duration:  time.Since(startTime),
	}, nil
}

// DetectContentType sniffs the leading bytes of r. The returned reader yields
// the full original stream; when r is seekable it is rewound and returned as is.
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	head = head[:n]
	contentType := mimetype.Detect(head).String()

	if seeker, ok := r.(io.Seeker); ok {
		if _, err := seeker.Seek(int64(-n), io.SeekCurrent); err != nil {
			return "", nil, err
		}
		return contentType, r, nil
	}
	return contentType, io.MultiReader(bytes.NewReader(head), r), nil
}

// measure returns the remaining length of a seekable body, or -1 otherwise.
func measure(r io.Reader) (io.Reader, int64, error) {
	seeker, ok := r.(io.Seeker)
	if !ok {
		return r, -1, nil
	}
	cur, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, err
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, err
	}
	if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
		return nil, 0, err
	}
	return r, end - cur, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

package s3role

import (
	"bytes"
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/metadata"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// Download streams an object into w and then seeks w back to offset 0.
// With WithRange or WithByteRange only that range is written.
//
// Returns:
//   - *DownloadResult: bytes written, content type, ETag and, for ranged reads, the content range
//   - error: validation errors, or the SDK error wrapped in *errors.Error
//
// Errors:
//   - ErrInvalidBucketName, ErrInvalidObjectKey, ErrInvalidRange: rejected before any request
//   - NoSuchKey, AccessDenied and other SDK errors: reachable with errors.As
//
// Example:
//
//	f, err := os.CreateTemp("", "part")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	_, err = client.Download(ctx, "my-bucket", "big.bin", f, s3role.WithByteRange(0, 1023))
func (c *Client) Download(
	ctx context.Context,
	bucket, key string,
	w io.WriteSeeker,
	opts ...s3types.DownloadOption,
) (*s3types.DownloadResult, error) {
	config := &s3types.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validateObject("download", bucket, key); err != nil {
		return nil, err
	}
	if err := validation.ValidateRange(config.RangeSpec); err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err)
	}
	if w == nil {
		return nil, errors.NewObjectError("download", bucket, key, errors.ErrInvalidInput).
			WithMessage("writer cannot be nil")
	}

	result, err := download.New(c.s3Client).Download(ctx, bucket, key, w,
		&s3types.DownloadConfig{RangeSpec: config.RangeSpec}, time.Now())
	if err != nil {
		c.logError(ctx, "download failed", bucket, key, err)
		return nil, err
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "object downloaded",
			"bucket", bucket,
			"key", key,
			"size", result.Size,
			"range", config.RangeSpec,
		)
	}
	return result, nil
}

// Get downloads an entire object (or a range of it) into memory.
// This is a convenience method for small objects.
func (c *Client) Get(ctx context.Context, bucket, key string, opts ...s3types.DownloadOption) ([]byte, error) {
	sink := &memorySink{}
	if _, err := c.Download(ctx, bucket, key, sink, opts...); err != nil {
		return nil, err
	}
	return sink.buf.Bytes(), nil
}

// DownloadFile downloads an object to path on the client's filesystem,
// creating parent directories. A partially written file is removed on failure.
func (c *Client) DownloadFile(
	ctx context.Context,
	bucket, key, path string,
	opts ...s3types.DownloadOption,
) (*s3types.DownloadResult, error) {
	if err := validateObject("downloadFile", bucket, key); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.NewObjectError("downloadFile", bucket, key, errors.ErrInvalidInput).
			WithMessage("path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewObjectError("downloadFile", bucket, key, err)
		}
	}

	file, err := c.fs.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.NewObjectError("downloadFile", bucket, key, err)
	}

	result, err := c.Download(ctx, bucket, key, file, opts...)
	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = errors.NewObjectError("downloadFile", bucket, key, closeErr)
	}
	if err != nil {
		_ = c.fs.Remove(path)
		return nil, err
	}
	return result, nil
}

// Upload writes everything read from r to bucket/key with the managed uploader.
// When no content type is given it is taken from the key's extension, or
// sniffed from the leading bytes of r.
func (c *Client) Upload(
	ctx context.Context,
	bucket, key string,
	r io.Reader,
	opts ...s3types.UploadOption,
) (*s3types.UploadResult, error) {
	config := &s3types.UploadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if err := validateObject("upload", bucket, key); err != nil {
		return nil, err
	}
	if r == nil {
		return nil, errors.NewObjectError("upload", bucket, key, errors.ErrInvalidInput).
			WithMessage("reader cannot be nil")
	}

	if config.ContentType == "" {
		config.ContentType = mime.TypeByExtension(filepath.Ext(key))
	}

	result, err := upload.New(c.uploader).Upload(ctx, bucket, key, r, &s3types.UploadConfig{
		ContentType:  config.ContentType,
		Metadata:     config.Metadata,
		StorageClass: config.StorageClass,
		PartSize:     config.PartSize,
		Concurrency:  config.Concurrency,
	}, time.Now())
	if err != nil {
		c.logError(ctx, "upload failed", bucket, key, err)
		return nil, err
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "object uploaded",
			"bucket", bucket,
			"key", key,
			"size", result.Size,
		)
	}
	return result, nil
}

// GetGlacierMetadata reports an object's size, storage class and restore state
// from a single HEAD request.
//
//   - No storage class reported: STANDARD, not restoring, no expiry.
//   - Archival class without a restore header: not restoring, no expiry.
//   - Restore in progress: RestoreOngoing true, no expiry.
//   - Restore complete: RestoreOngoing false, RestoreExpiry set.
//
// A restore header that cannot be parsed yields ErrMalformedResponse.
func (c *Client) GetGlacierMetadata(ctx context.Context, bucket, key string) (*s3types.GlacierMetadata, error) {
	if err := validateObject("getGlacierMetadata", bucket, key); err != nil {
		return nil, err
	}

	meta, err := metadata.New(c.s3Client).Glacier(ctx, bucket, key)
	if err != nil {
		c.logError(ctx, "glacier metadata failed", bucket, key, err)
		return nil, err
	}
	return meta, nil
}

// GetObjectSize returns an object's size in bytes from a HEAD request.
func (c *Client) GetObjectSize(ctx context.Context, bucket, key string) (int64, error) {
	if err := validateObject("getObjectSize", bucket, key); err != nil {
		return 0, err
	}

	size, err := metadata.New(c.s3Client).Size(ctx, bucket, key)
	if err != nil {
		c.logError(ctx, "object size failed", bucket, key, err)
		return 0, err
	}
	return size, nil
}

// ListObjects returns one tuple per object under prefix, holding the requested
// fields in request order. Pages are followed until the listing is complete and
// results keep service order. A field the service omitted is nil.
//
// Unknown or missing fields fail with ErrInvalidInput before any request.
//
// Example:
//
//	rows, err := client.ListObjects(ctx, "my-bucket", "logs/2024/",
//	    []s3types.ObjectField{s3types.FieldKey, s3types.FieldSize},
//	    s3role.WithMaxKeys(500),
//	)
//	for _, row := range rows {
//	    fmt.Println(row[0].(string), row[1].(int64))
//	}
func (c *Client) ListObjects(
	ctx context.Context,
	bucket, prefix string,
	fields []s3types.ObjectField,
	opts ...s3types.ListOption,
) ([]s3types.FieldTuple, error) {
	if err := validation.ValidateFields(fields); err != nil {
		return nil, errors.NewError("listObjects", err).WithBucket(bucket)
	}

	var rows []s3types.FieldTuple
	err := c.eachObject(ctx, "listObjects", bucket, prefix, opts, func(obj awstypes.Object) error {
		rows = append(rows, list.Project(obj, fields))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every object under prefix with its full descriptor.
func (c *Client) ListAll(
	ctx context.Context,
	bucket, prefix string,
	opts ...s3types.ListOption,
) ([]s3types.Object, error) {
	var objects []s3types.Object
	err := c.eachObject(ctx, "listAll", bucket, prefix, opts, func(obj awstypes.Object) error {
		objects = append(objects, list.Convert(obj))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (c *Client) eachObject(
	ctx context.Context,
	op, bucket, prefix string,
	opts []s3types.ListOption,
	fn func(awstypes.Object) error,
) error {
	config := &s3types.ListOptionConfig{MaxKeys: list.MaxPageSize}
	for _, opt := range opts {
		opt(config)
	}

	if err := validation.ValidateBucket(bucket); err != nil {
		return errors.NewError(op, err).WithBucket(bucket)
	}
	if config.MaxKeys < 1 || config.MaxKeys > list.MaxPageSize {
		return errors.NewError(op, errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("max keys must be between 1 and 1000")
	}

	stats, err := list.New(c.s3Client).Each(ctx, &list.Config{
		Bucket:     bucket,
		Prefix:     prefix,
		StartAfter: config.StartAfter,
		PageSize:   config.MaxKeys,
	}, fn)
	if err != nil {
		c.logError(ctx, "list failed", bucket, prefix, err)
		return err
	}

	if c.logger != nil {
		c.logger.DebugContext(ctx, "objects listed",
			"bucket", bucket,
			"prefix", prefix,
			"pages", stats.Pages,
			"objects", stats.Objects,
		)
	}
	return nil
}

func (c *Client) logError(ctx context.Context, msg, bucket, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.ErrorContext(ctx, msg,
		"role_arn", c.roleARN,
		"bucket", bucket,
		"key", key,
		"error", err,
	)
}

func validateObject(op, bucket, key string) error {
	if err := validation.ValidateBucket(bucket); err != nil {
		return errors.NewObjectError(op, bucket, key, err)
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return errors.NewObjectError(op, bucket, key, err)
	}
	return nil
}

// memorySink is a growable in-memory io.WriteSeeker for Get.
type memorySink struct {
	buf    bytes.Buffer
	offset int64
}

func (m *memorySink) Write(p []byte) (int, error) {
	if m.offset != int64(m.buf.Len()) {
		return 0, errors.NewError("get", errors.ErrInvalidInput).WithMessage("write after seek")
	}
	n, err := m.buf.Write(p)
	m.offset += int64(n)
	return n, err
}

func (m *memorySink) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart || offset != 0 {
		return 0, errors.NewError("get", errors.ErrInvalidInput).WithMessage("only rewinding is supported")
	}
	m.offset = 0
	return 0, nil
}

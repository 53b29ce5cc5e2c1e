package s3role

import (
	"context"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/transit"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// CopyCrossAccount copies srcBucket/srcKey, read with src's credentials, to
// dstBucket/dstKey, written with dst's credentials. Server-side copy is not
// possible when no single identity can read the source and write the
// destination, so the object passes through a temporary file on src's
// filesystem.
//
// The temporary file is closed and removed on every path. If removing it
// fails after the copy succeeded, the copy result is discarded and the
// removal error is returned.
//
// The destination receives the source content type unless WithCopyContentType
// is given; when the source has none, it is sniffed from the data.
func CopyCrossAccount(
	ctx context.Context,
	src *Client, srcBucket, srcKey string,
	dst *Client, dstBucket, dstKey string,
	opts ...s3types.CopyOption,
) (result *s3types.CopyResult, err error) {
	config := &s3types.CopyOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if src == nil || dst == nil {
		return nil, errors.NewError("copyCrossAccount", errors.ErrInvalidInput).
			WithMessage("source and destination clients are required")
	}
	if err := validateObject("copyCrossAccount", srcBucket, srcKey); err != nil {
		return nil, err
	}
	if err := validateObject("copyCrossAccount", dstBucket, dstKey); err != nil {
		return nil, err
	}
	if err := validation.ValidateRange(config.RangeSpec); err != nil {
		return nil, errors.NewObjectError("copyCrossAccount", srcBucket, srcKey, err)
	}

	startTime := time.Now()

	tmp, err := transit.Create(src.fs, src.tempDir)
	if err != nil {
		return nil, errors.NewObjectError("copyCrossAccount", srcBucket, srcKey, err)
	}
	defer func() {
		releaseErr := tmp.Release()
		if releaseErr == nil {
			return
		}
		if src.logger != nil {
			src.logger.ErrorContext(ctx, "failed to remove temp file",
				"temp_file", tmp.Name(),
				"error", releaseErr,
			)
		}
		if err == nil {
			result = nil
			err = releaseErr
		}
	}()

	if src.logger != nil {
		src.logger.DebugContext(ctx, "copying object across accounts",
			"bucket", srcBucket,
			"key", srcKey,
			"dst_bucket", dstBucket,
			"dst_key", dstKey,
			"temp_file", tmp.Name(),
		)
	}

	var downloadOpts []s3types.DownloadOption
	if config.RangeSpec != "" {
		downloadOpts = append(downloadOpts, WithRange(config.RangeSpec))
	}
	downloaded, err := src.Download(ctx, srcBucket, srcKey, tmp.Writer(), downloadOpts...)
	if err != nil {
		return nil, err
	}

	body, err := tmp.Reader()
	if err != nil {
		return nil, err
	}

	contentType := config.ContentType
	if contentType == "" {
		contentType = downloaded.ContentType
	}
	if contentType == "" {
		// body is seekable, so detection rewinds it in place
		if contentType, _, err = upload.DetectContentType(body); err != nil {
			return nil, errors.NewObjectError("copyCrossAccount", srcBucket, srcKey, err)
		}
	}

	uploadOpts := []s3types.UploadOption{WithContentType(contentType)}
	if len(config.Metadata) > 0 {
		uploadOpts = append(uploadOpts, WithMetadata(config.Metadata))
	}
	if config.StorageClass != "" {
		uploadOpts = append(uploadOpts, WithStorageClass(config.StorageClass))
	}

	uploaded, err := dst.Upload(ctx, dstBucket, dstKey, body, uploadOpts...)
	if err != nil {
		return nil, err
	}

	return &s3types.CopyResult{
		Download: downloaded,
		Upload:   uploaded,
		Duration: time.Since(startTime),
	}, nil
}

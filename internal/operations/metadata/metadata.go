// Package metadata reads object metadata with HEAD requests: object size and
// the archival restore state of Glacier and Deep Archive objects.
package metadata

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/restore"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// Inspector issues HEAD requests.
type Inspector struct {
	s3Client s3api.S3API
}

// New creates a new Inspector instance.
func New(s3Client s3api.S3API) *Inspector {
	return &Inspector{
		s3Client: s3Client,
	}
}

// Head returns the raw HEAD response.
func (i *Inspector) Head(ctx context.Context, bucket, key string) (*s3.HeadObjectOutput, error) {
	output, err := i.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewObjectError("headObject", bucket, key, err)
	}
	return output, nil
}

// Size returns the object's content length.
func (i *Inspector) Size(ctx context.Context, bucket, key string) (int64, error) {
	output, err := i.Head(ctx, bucket, key)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(output.ContentLength), nil
}

// Glacier returns size, storage class and restore state from a single HEAD.
// S3 omits the storage class header for STANDARD objects.
func (i *Inspector) Glacier(ctx context.Context, bucket, key string) (*s3types.GlacierMetadata, error) {
	output, err := i.Head(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	meta := &s3types.GlacierMetadata{
		Size:         aws.ToInt64(output.ContentLength),
		StorageClass: s3types.StorageClass(output.StorageClass),
	}
	if meta.StorageClass == "" {
		meta.StorageClass = s3types.StorageClassStandard
		return meta, nil
	}

	if output.Restore == nil {
		return meta, nil
	}

	status, err := restore.Parse(*output.Restore)
	if err != nil {
		return nil, errors.NewObjectError("getGlacierMetadata", bucket, key, err)
	}
	meta.RestoreOngoing = status.Ongoing
	meta.RestoreExpiry = status.Expiry
	return meta, nil
}

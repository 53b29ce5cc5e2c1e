// Package list handles S3 object listing.
// Listings follow continuation tokens until the service reports the result is
// complete, preserving service order, and can project each object onto a
// caller-chosen set of fields.
package list

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// MaxPageSize is the largest page ListObjectsV2 returns.
const MaxPageSize int32 = 1000

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	ListObjectsV2(
		ctx context.Context,
		input *s3.ListObjectsV2Input,
		opts ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
}

// Lister handles listing of S3 objects.
type Lister struct {
	client S3Interface
}

// New creates a new Lister.
func New(client S3Interface) *Lister {
	return &Lister{
		client: client,
	}
}

// Config holds configuration for list operations.
type Config struct {
	Bucket     string
	Prefix     string
	StartAfter string
	PageSize   int32
}

// Stats describes a completed listing.
type Stats struct {
	Pages   int
	Objects int
}

// Paginator walks ListObjectsV2 pages.
type Paginator struct {
	client            S3Interface
	config            *Config
	pageSize          int32
	continuationToken *string
	hasMorePages      bool
	firstPage         bool
}

// NewPaginator creates a paginator positioned before the first page.
func (l *Lister) NewPaginator(config *Config) *Paginator {
	return &Paginator{
		client:    l.client,
		config:    config,
		pageSize:  pageSize(config),
		firstPage: true,
	}
}

// HasMorePages returns true if there are more pages to fetch.
func (p *Paginator) HasMorePages() bool {
	return p.firstPage || p.hasMorePages
}

// NextPage fetches the next page of objects.
// A page that claims more results but carries no continuation token is
// reported as a malformed response rather than followed forever.
func (p *Paginator) NextPage(ctx context.Context) ([]awstypes.Object, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.config.Bucket),
		Prefix:  aws.String(p.config.Prefix),
		MaxKeys: aws.Int32(p.pageSize),
	}

	if !p.firstPage && p.continuationToken != nil {
		input.ContinuationToken = p.continuationToken
	} else if p.config.StartAfter != "" {
		input.StartAfter = aws.String(p.config.StartAfter)
	}

	output, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.NewError("listObjects", err).WithBucket(p.config.Bucket)
	}

	p.firstPage = false
	p.hasMorePages = aws.ToBool(output.IsTruncated)
	p.continuationToken = output.NextContinuationToken

	if p.hasMorePages && aws.ToString(p.continuationToken) == "" {
		p.hasMorePages = false
		return nil, errors.NewError("listObjects", errors.ErrMalformedResponse).
			WithBucket(p.config.Bucket).
			WithMessage("truncated page without continuation token")
	}

	return output.Contents, nil
}

// Each calls fn for every object under the configured prefix, in service order.
func (l *Lister) Each(ctx context.Context, config *Config, fn func(awstypes.Object) error) (Stats, error) {
	var stats Stats
	paginator := l.NewPaginator(config)

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return stats, err
		}
		stats.Pages++

		for _, obj := range page {
			if err := fn(obj); err != nil {
				return stats, err
			}
			stats.Objects++
		}
	}
	return stats, nil
}

// Project returns the requested fields of obj in request order.
// Fields the service left out are nil. Fields must already be validated.
func Project(obj awstypes.Object, fields []s3types.ObjectField) s3types.FieldTuple {
	tuple := make(s3types.FieldTuple, len(fields))
	for i, field := range fields {
		switch field {
		case s3types.FieldKey:
			if obj.Key != nil {
				tuple[i] = *obj.Key
			}
		case s3types.FieldSize:
			if obj.Size != nil {
				tuple[i] = *obj.Size
			}
		case s3types.FieldLastModified:
			if obj.LastModified != nil {
				tuple[i] = *obj.LastModified
			}
		case s3types.FieldETag:
			if obj.ETag != nil {
				tuple[i] = *obj.ETag
			}
		case s3types.FieldStorageClass:
			if obj.StorageClass != "" {
				tuple[i] = s3types.StorageClass(obj.StorageClass)
			}
		}
	}
	return tuple
}

// Convert maps a listed object onto the module's descriptor.
func Convert(obj awstypes.Object) s3types.Object {
	return s3types.Object{
		Key:          aws.ToString(obj.Key),
		Size:         aws.ToInt64(obj.Size),
		LastModified: aws.ToTime(obj.LastModified),
		ETag:         aws.ToString(obj.ETag),
		StorageClass: s3types.StorageClass(obj.StorageClass),
	}
}

func pageSize(config *Config) int32 {
	if config.PageSize > 0 && config.PageSize <= MaxPageSize {
		return config.PageSize
	}
	return MaxPageSize
}

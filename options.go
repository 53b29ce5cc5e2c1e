package s3role

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

// WithRegion sets the AWS region for STS and S3.
// If not specified, uses the region from the credential chain, then us-east-1.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Region = region
	}
}

// WithProfile selects a named profile from the shared AWS configuration files.
func WithProfile(profile string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Profile = profile
	}
}

// WithMaxRetries sets the SDK retryer's maximum attempts. Default is 3.
// This module performs no retries of its own.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.MaxRetries = maxRetries
	}
}

// WithTimeout sets the HTTP client timeout for every request.
// Default is no timeout. Ignored when WithHTTPClient is used.
func WithTimeout(timeout time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithHTTPClient supplies the HTTP client used by STS and S3.
func WithHTTPClient(client *http.Client) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.HTTPClient = client
	}
}

// WithConcurrency sets how many parts the managed uploader sends at once.
// Default is 1, so transfers stay sequential unless asked otherwise.
func WithConcurrency(concurrency int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithPartSize sets the part size for multipart uploads.
// Default is 8MB. Must be at least 5MB for S3 multipart uploads.
func WithPartSize(partSize int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
// This is required for S3-compatible services that don't support virtual hosting.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithEndpoint sets a custom endpoint URL for both S3 and STS requests.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithAWSConfig provides the base AWS configuration instead of loading one.
// The configuration is copied; the caller's value is not modified.
func WithAWSConfig(config *aws.Config) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.CustomAWSConfig = config
	}
}

// WithFilesystem sets the filesystem used for temporary copy files and DownloadFile.
// Defaults to the OS filesystem.
func WithFilesystem(filesystem billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// WithTempDir sets the directory for temporary copy files. Defaults to os.TempDir().
func WithTempDir(dir string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.TempDir = dir
	}
}

// WithLogger configures structured logging.
// If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithSessionName sets the STS role session name. Default is "assumed-role".
func WithSessionName(name string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if name != "" {
			c.SessionName = name
		}
	}
}

// WithSessionDuration requests a specific credential lifetime from STS.
// Zero leaves the role's default in place. Other values must lie between
// 15 minutes and 12 hours or AssumeRole fails with ErrInvalidInput.
func WithSessionDuration(d time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.SessionDuration = d
	}
}

// WithExternalID sets the external ID required by some cross-account trust policies.
func WithExternalID(id string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ExternalID = id
	}
}

// WithRenewalWindow sets how long before expiry a handle is renewed. Default is 5 minutes.
func WithRenewalWindow(window time.Duration) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if window > 0 {
			c.RenewalWindow = window
		}
	}
}

// WithClock replaces time.Now for renewal decisions.
func WithClock(clock func() time.Time) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithRange limits a download to one HTTP byte range, e.g. "bytes=0-1023",
// "bytes=1024-" or "bytes=-512".
func WithRange(spec string) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.RangeSpec = spec
	}
}

// WithByteRange limits a download to the inclusive byte offsets first..last.
// Negative or reversed offsets are rejected when the download starts.
func WithByteRange(first, last int64) s3types.DownloadOption {
	return func(c *s3types.DownloadOptionConfig) {
		c.RangeSpec = byteRange(first, last)
	}
}

// WithContentType sets the content type for upload operations.
func WithContentType(contentType string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata sets user metadata for upload operations.
func WithMetadata(metadata map[string]string) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.Metadata = mergeMetadata(c.Metadata, metadata)
	}
}

// WithStorageClass sets the storage class for upload operations.
func WithStorageClass(storageClass s3types.StorageClass) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		c.StorageClass = storageClass
	}
}

// WithUploadPartSize overrides the client part size for one upload.
func WithUploadPartSize(partSize int64) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if partSize > 0 {
			c.PartSize = partSize
		}
	}
}

// WithUploadConcurrency overrides the client upload concurrency for one upload.
func WithUploadConcurrency(concurrency int) s3types.UploadOption {
	return func(c *s3types.UploadOptionConfig) {
		if concurrency > 0 {
			c.Concurrency = concurrency
		}
	}
}

// WithMaxKeys sets the page size for list requests, between 1 and 1000.
// Default is the service maximum.
func WithMaxKeys(maxKeys int32) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.MaxKeys = maxKeys
	}
}

// WithStartAfter starts a listing after the given key.
func WithStartAfter(key string) s3types.ListOption {
	return func(c *s3types.ListOptionConfig) {
		c.StartAfter = key
	}
}

// WithCopyRange copies only one HTTP byte range of the source object.
func WithCopyRange(spec string) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.RangeSpec = spec
	}
}

// WithCopyContentType overrides the content type written to the destination.
func WithCopyContentType(contentType string) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.ContentType = contentType
	}
}

// WithCopyMetadata sets user metadata on the destination object.
func WithCopyMetadata(metadata map[string]string) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.Metadata = mergeMetadata(c.Metadata, metadata)
	}
}

// WithCopyStorageClass sets the destination object's storage class.
func WithCopyStorageClass(storageClass s3types.StorageClass) s3types.CopyOption {
	return func(c *s3types.CopyOptionConfig) {
		c.StorageClass = storageClass
	}
}

func mergeMetadata(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func byteRange(first, last int64) string {
	return fmt.Sprintf("bytes=%d-%d", first, last)
}

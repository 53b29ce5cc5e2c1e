// Package s3types provides shared type definitions for the s3role module.
package s3types

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-git/go-billy/v5"
)

// StorageClass represents the S3 storage class for objects.
type StorageClass string

// Predefined S3 storage classes
const (
	// StorageClassStandard is the default S3 storage class
	StorageClassStandard StorageClass = "STANDARD"

	// StorageClassReducedRedundancy provides reduced redundancy storage
	StorageClassReducedRedundancy StorageClass = "REDUCED_REDUNDANCY"

	// StorageClassStandardIA provides infrequent access storage
	StorageClassStandardIA StorageClass = "STANDARD_IA"

	// StorageClassOneZoneIA provides one zone infrequent access storage
	StorageClassOneZoneIA StorageClass = "ONEZONE_IA"

	// StorageClassIntelligentTiering provides intelligent tiering storage
	StorageClassIntelligentTiering StorageClass = "INTELLIGENT_TIERING"

	// StorageClassGlacier provides Glacier Flexible Retrieval archival storage
	StorageClassGlacier StorageClass = "GLACIER"

	// StorageClassDeepArchive provides Deep Archive storage
	StorageClassDeepArchive StorageClass = "DEEP_ARCHIVE"

	// StorageClassGlacierIR provides Glacier Instant Retrieval storage
	StorageClassGlacierIR StorageClass = "GLACIER_IR"
)

// ObjectField names one attribute of a listed object.
type ObjectField string

// Fields that can be projected by ListObjects.
const (
	FieldKey          ObjectField = "Key"
	FieldSize         ObjectField = "Size"
	FieldLastModified ObjectField = "LastModified"
	FieldETag         ObjectField = "ETag"
	FieldStorageClass ObjectField = "StorageClass"
)

// KnownFields lists every ObjectField accepted by ListObjects, in declaration order.
var KnownFields = []ObjectField{FieldKey, FieldSize, FieldLastModified, FieldETag, FieldStorageClass}

// FieldTuple holds one value per requested ObjectField, in request order.
//
// Value types are string (Key, ETag), int64 (Size), time.Time (LastModified)
// and StorageClass. A field the service omitted for an object is nil.
type FieldTuple []any

// Object represents an S3 object with its basic metadata.
type Object struct {
	// Key is the S3 object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string

	// StorageClass is the S3 storage class
	StorageClass StorageClass
}

// GlacierMetadata describes the archival state of an object as reported by a HEAD request.
type GlacierMetadata struct {
	// Size is the object size in bytes
	Size int64

	// StorageClass is STANDARD when the service reports no storage class
	StorageClass StorageClass

	// RestoreOngoing is true while a restore request is in progress
	RestoreOngoing bool

	// RestoreExpiry is when the restored copy expires. It is nil when no restore
	// has completed, including while one is in progress.
	RestoreExpiry *time.Time
}

// DownloadConfig holds configuration for download operations.
type DownloadConfig struct {
	RangeSpec string
}

// DownloadResult contains the result of a download operation.
type DownloadResult struct {
	// Key is the S3 object key that was downloaded
	Key string

	// Size is the number of bytes written to the sink
	Size int64

	// ContentType is the object's content type as reported by the service
	ContentType string

	// ContentRange is set when a byte range was requested
	ContentRange string

	// ETag is the S3 entity tag for the downloaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Duration is how long the download took
	Duration time.Duration
}

// UploadConfig holds configuration for upload operations.
type UploadConfig struct {
	ContentType  string
	Metadata     map[string]string
	StorageClass StorageClass
	PartSize     int64
	Concurrency  int
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	// Key is the S3 object key that was uploaded
	Key string

	// Size is the size of the uploaded object in bytes, when known
	Size int64

	// ETag is the S3 entity tag for the uploaded object
	ETag string

	// VersionID is the version ID if versioning is enabled
	VersionID string

	// Location is the URL of the uploaded object
	Location string

	// Duration is how long the upload took
	Duration time.Duration
}

// CopyResult contains the result of a cross-account copy.
type CopyResult struct {
	// Download describes the read from the source account
	Download *DownloadResult

	// Upload describes the write to the destination account
	Upload *UploadResult

	// Duration is how long the whole copy took
	Duration time.Duration
}

// Configuration types for functional options

// ClientConfig holds configuration shared by clients and the role assumer.
type ClientConfig struct {
	Region          string
	Profile         string
	Endpoint        string
	MaxRetries      int
	Timeout         time.Duration
	Concurrency     int
	PartSize        int64
	ForcePathStyle  bool
	CustomAWSConfig *aws.Config
	HTTPClient      *http.Client
	Filesystem      billy.Filesystem // Filesystem used for temporary and downloaded files
	TempDir         string
	Logger          *slog.Logger

	// Role assumption settings
	SessionName     string
	SessionDuration time.Duration
	ExternalID      string
	RenewalWindow   time.Duration
	Clock           func() time.Time
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType  string
	Metadata     map[string]string
	StorageClass StorageClass
	PartSize     int64
	Concurrency  int
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	RangeSpec string // named to avoid the range keyword
}

// ListOptionConfig holds configuration for list operations via functional options.
type ListOptionConfig struct {
	MaxKeys    int32
	StartAfter string
}

// CopyOptionConfig holds configuration for cross-account copies via functional options.
type CopyOptionConfig struct {
	RangeSpec    string
	ContentType  string
	Metadata     map[string]string
	StorageClass StorageClass
}

// Option is a functional option for configuring clients and the role assumer.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring upload operations.
	UploadOption func(*UploadOptionConfig)
	// DownloadOption is a functional option for configuring download operations.
	DownloadOption func(*DownloadOptionConfig)
	// ListOption is a functional option for configuring list operations.
	ListOption func(*ListOptionConfig)
	// CopyOption is a functional option for configuring cross-account copies.
	CopyOption func(*CopyOptionConfig)
)

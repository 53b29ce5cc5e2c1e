// Package errors provides error types and handling for role-assumed S3 operations.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Error represents an operation error with context about the operation that failed.
// It wraps the underlying AWS SDK error without translating it, so callers can still
// reach the SDK error with errors.As.
type Error struct {
	// Op is the operation that failed (e.g., "download", "assumeRole", "listObjects")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3role.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3role.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("s3role.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3role.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for local failure modes.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3role: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3role: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3role: invalid object key")

	// ErrInvalidRange indicates that the requested byte range is not valid HTTP range syntax
	ErrInvalidRange = errors.New("s3role: invalid range")

	// ErrInvalidRoleARN indicates that the role identifier is not an IAM role ARN
	ErrInvalidRoleARN = errors.New("s3role: invalid role arn")

	// ErrMalformedResponse indicates the service returned a header or body this
	// package could not interpret, such as an unparseable x-amz-restore value
	ErrMalformedResponse = errors.New("s3role: malformed response")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3role: object not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3role: access denied")

	// ErrNoCredentials indicates that role assumption returned no credentials
	ErrNoCredentials = errors.New("s3role: no credentials returned")
)

// AWS error codes recognized by the classification helpers.
const (
	codeNoSuchKey             = "NoSuchKey"
	codeNotFound              = "NotFound"
	codeAccessDenied          = "AccessDenied"
	codeAccessDeniedException = "AccessDeniedException"
	codeForbidden             = "Forbidden"
)

// IsObjectNotFound checks if an error indicates that an object was not found.
// It recognizes the sentinel, S3 API error codes, and bare 404 responses from HEAD.
func IsObjectNotFound(err error) bool {
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	switch apiErrorCode(err) {
	case codeNoSuchKey, codeNotFound:
		return true
	}
	return httpStatusCode(err) == http.StatusNotFound
}

// IsAccessDenied checks if an error indicates access was denied, either by S3
// or by STS while assuming a role.
func IsAccessDenied(err error) bool {
	if errors.Is(err, ErrAccessDenied) {
		return true
	}
	switch apiErrorCode(err) {
	case codeAccessDenied, codeAccessDeniedException, codeForbidden:
		return true
	}
	return httpStatusCode(err) == http.StatusForbidden
}

// IsInvalidInput checks if an error was caused by local input validation.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidBucketName) ||
		errors.Is(err, ErrInvalidObjectKey) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidRoleARN)
}

// IsMalformedResponse checks if an error indicates an uninterpretable service response.
func IsMalformedResponse(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func httpStatusCode(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

// Package validation provides centralized input validation logic.
// This includes bucket and key checks, HTTP byte-range syntax, role ARNs and
// list field names.
//
// All inputs are validated before being sent to AWS so that malformed requests
// fail locally with a sentinel error instead of a service round trip.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws/arn"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

const (
	// MaxKeyLength is the maximum S3 object key length in bytes
	MaxKeyLength = 1024

	// MaxBucketLength is the longest bucket name accepted, including legacy names
	MaxBucketLength = 255

	// MinSessionDuration and MaxSessionDuration bound the credential lifetime STS accepts
	MinSessionDuration = 15 * time.Minute
	MaxSessionDuration = 12 * time.Hour

	rangeUnitPrefix = "bytes="
)

// ValidateBucket checks that a bucket name is usable in a request path.
// Legacy us-east-1 bucket names are allowed, so only structural checks apply.
func ValidateBucket(bucket string) error {
	if bucket == "" {
		return errors.NewError("validateBucket", errors.ErrInvalidBucketName).
			WithMessage("bucket name cannot be empty")
	}
	if len(bucket) > MaxBucketLength {
		return errors.NewError("validateBucket", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage(fmt.Sprintf("bucket name cannot exceed %d characters", MaxBucketLength))
	}
	if strings.ContainsAny(bucket, "/\\") || hasControlCharacters(bucket) {
		return errors.NewError("validateBucket", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage("bucket name cannot contain slashes or control characters")
	}
	return nil
}

// ValidateObjectKey validates that an object key is valid according to AWS S3 rules.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithMessage("object key cannot be empty")
	}

	// S3 supports up to 1024 bytes of UTF-8
	if len(key) > MaxKeyLength {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage(fmt.Sprintf("object key cannot exceed %d bytes", MaxKeyLength))
	}

	if !utf8.ValidString(key) {
		return errors.NewError("validateObjectKey", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage("object key must be valid UTF-8")
	}

	return nil
}

// ValidateRange checks that spec is a single HTTP byte range: "bytes=first-last",
// "bytes=first-" or "bytes=-suffix". An empty spec means the whole object.
func ValidateRange(spec string) error {
	if spec == "" {
		return nil
	}
	if _, _, err := ParseRange(spec); err != nil {
		return err
	}
	return nil
}

// ParseRange parses a single HTTP byte range. A negative first offset means a
// suffix range ("bytes=-n" yields first=-n, last=-1); an open-ended range
// ("bytes=a-") yields last=-1.
func ParseRange(spec string) (first, last int64, err error) {
	invalid := func(msg string) error {
		return errors.NewError("validateRange", errors.ErrInvalidRange).
			WithMessage(fmt.Sprintf("%q: %s", spec, msg))
	}

	if !strings.HasPrefix(spec, rangeUnitPrefix) {
		return 0, 0, invalid("range must start with bytes=")
	}
	body := strings.TrimPrefix(spec, rangeUnitPrefix)
	if strings.Contains(body, ",") {
		return 0, 0, invalid("multiple ranges are not supported")
	}

	startStr, endStr, found := strings.Cut(body, "-")
	if !found {
		return 0, 0, invalid("range must contain '-'")
	}

	switch {
	case startStr == "" && endStr == "":
		return 0, 0, invalid("range is empty")

	case startStr == "":
		suffix, perr := parseOffset(endStr)
		if perr != nil || suffix == 0 {
			return 0, 0, invalid("suffix length must be a positive integer")
		}
		return -suffix, -1, nil

	default:
		start, perr := parseOffset(startStr)
		if perr != nil {
			return 0, 0, invalid("first byte position must be a non-negative integer")
		}
		if endStr == "" {
			return start, -1, nil
		}
		end, perr := parseOffset(endStr)
		if perr != nil {
			return 0, 0, invalid("last byte position must be a non-negative integer")
		}
		if end < start {
			return 0, 0, invalid("last byte position is before first byte position")
		}
		return start, end, nil
	}
}

// ValidateRoleARN checks that roleARN names an IAM role.
func ValidateRoleARN(roleARN string) error {
	if roleARN == "" {
		return errors.NewError("validateRoleARN", errors.ErrInvalidRoleARN).
			WithMessage("role arn cannot be empty")
	}

	parsed, err := arn.Parse(roleARN)
	if err != nil {
		return errors.NewError("validateRoleARN", errors.ErrInvalidRoleARN).
			WithMessage(err.Error())
	}
	if parsed.Service != "iam" || !strings.HasPrefix(parsed.Resource, "role/") {
		return errors.NewError("validateRoleARN", errors.ErrInvalidRoleARN).
			WithMessage(fmt.Sprintf("%q is not an IAM role", roleARN))
	}
	return nil
}

// ValidateSessionDuration checks a requested credential lifetime. Zero means
// the role's default and is always accepted.
func ValidateSessionDuration(d time.Duration) error {
	if d == 0 {
		return nil
	}
	if d < MinSessionDuration || d > MaxSessionDuration {
		return errors.NewError("validateSessionDuration", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("session duration %s must be between %s and %s",
				d, MinSessionDuration, MaxSessionDuration))
	}
	return nil
}

// ValidateFields checks that every requested list field is known.
func ValidateFields(fields []s3types.ObjectField) error {
	if len(fields) == 0 {
		return errors.NewError("validateFields", errors.ErrInvalidInput).
			WithMessage("at least one field is required")
	}
	for _, field := range fields {
		if !isKnownField(field) {
			return errors.NewError("validateFields", errors.ErrInvalidInput).
				WithMessage(fmt.Sprintf("unknown field %q", field))
		}
	}
	return nil
}

func isKnownField(field s3types.ObjectField) bool {
	for _, known := range s3types.KnownFields {
		if field == known {
			return true
		}
	}
	return false
}

func parseOffset(s string) (int64, error) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a digit: %q", c)
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// hasControlCharacters checks for control characters in a name
func hasControlCharacters(s string) bool {
	for _, char := range s {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}

package testutil

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// TestRoleARN is a syntactically valid IAM role used across tests.
const TestRoleARN = "arn:aws:iam::123456789012:role/test-reader"

// GenerateRandomData generates random bytes of the specified size.
func GenerateRandomData(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// GenerateTestKey generates a unique object key under prefix.
func GenerateTestKey(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + "test-object-" + uuid.NewString()
}

// GenerateTestBucketName generates a DNS-compliant unique bucket name.
func GenerateTestBucketName(prefix string) string {
	name := strings.ToLower(fmt.Sprintf("%s-%s", prefix, uuid.NewString()))
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	return name
}

// CreateListObjectsV2Output creates a ListObjectsV2 page for mocking list operations.
func CreateListObjectsV2Output(objects []types.Object, nextToken string) *s3.ListObjectsV2Output {
	output := &s3.ListObjectsV2Output{
		Contents:    objects,
		KeyCount:    aws.Int32(int32(len(objects))),
		MaxKeys:     aws.Int32(1000),
		IsTruncated: aws.Bool(nextToken != ""),
	}
	if nextToken != "" {
		output.NextContinuationToken = aws.String(nextToken)
	}
	return output
}

// CreateTestObject creates a listed object with a standard storage class.
func CreateTestObject(key string, size int64, lastModified time.Time) types.Object {
	return types.Object{
		Key:          aws.String(key),
		Size:         aws.Int64(size),
		LastModified: aws.Time(lastModified),
		ETag:         aws.String(etag([]byte(key))),
		StorageClass: types.ObjectStorageClassStandard,
	}
}

// CreateGetObjectOutput creates a GetObject response carrying data.
func CreateGetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		ETag:          aws.String(etag(data)),
		LastModified:  aws.Time(time.Now()),
	}
}

// CreateHeadObjectOutput creates a HeadObject response for glacier metadata tests.
// An empty class leaves the storage class header out, as S3 does for STANDARD.
func CreateHeadObjectOutput(size int64, class types.StorageClass, restore string) *s3.HeadObjectOutput {
	out := &s3.HeadObjectOutput{
		ContentLength: aws.Int64(size),
		StorageClass:  class,
		LastModified:  aws.Time(time.Now()),
	}
	if restore != "" {
		out.Restore = aws.String(restore)
	}
	return out
}

// MemorySink is an io.WriteSeeker backed by a byte slice.
// It records whether Seek was called so tests can check rewinds.
type MemorySink struct {
	buf    []byte
	offset int64
	Seeks  int
}

// Write writes p at the current offset, growing the buffer as needed.
func (m *MemorySink) Write(p []byte) (int, error) {
	end := m.offset + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.offset:], p)
	m.offset = end
	return len(p), nil
}

// Seek moves the offset.
func (m *MemorySink) Seek(offset int64, whence int) (int64, error) {
	m.Seeks++
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = m.offset + offset
	case io.SeekEnd:
		next = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("negative position %d", next)
	}
	m.offset = next
	return next, nil
}

// Bytes returns everything written so far.
func (m *MemorySink) Bytes() []byte { return m.buf }

// Offset returns the current position.
func (m *MemorySink) Offset() int64 { return m.offset }

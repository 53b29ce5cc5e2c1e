package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/validation"
)

const (
	defaultMaxKeys     = 1000
	continuationPrefix = "after:"
)

// FakeObject is one object held by a FakeS3.
type FakeObject struct {
	Data         []byte
	ContentType  string
	Metadata     map[string]string
	StorageClass types.StorageClass // empty means the service omits the header
	Restore      *string
	LastModified time.Time
	ETag         string
}

// FakeS3 is an in-memory S3API that honors ranges, continuation tokens and
// multipart uploads closely enough to drive the managed uploader.
type FakeS3 struct {
	mu       sync.Mutex
	buckets  map[string]map[string]*FakeObject
	uploads  map[string]*fakeUpload
	uploadID int

	// PutErr, when set, fails every write
	PutErr error

	// ListCalls counts ListObjectsV2 requests
	ListCalls int
}

type fakeUpload struct {
	bucket      string
	key         string
	contentType string
	metadata    map[string]string
	class       types.StorageClass
	parts       map[int32][]byte
}

// NewFakeS3 creates an empty fake with the given buckets.
func NewFakeS3(buckets ...string) *FakeS3 {
	f := &FakeS3{
		buckets: make(map[string]map[string]*FakeObject),
		uploads: make(map[string]*fakeUpload),
	}
	for _, b := range buckets {
		f.buckets[b] = make(map[string]*FakeObject)
	}
	return f
}

// Put stores an object directly, bypassing the API.
func (f *FakeS3) Put(bucket, key string, obj FakeObject) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.buckets[bucket]; !ok {
		f.buckets[bucket] = make(map[string]*FakeObject)
	}
	if obj.LastModified.IsZero() {
		obj.LastModified = time.Now().UTC().Truncate(time.Second)
	}
	if obj.ETag == "" {
		obj.ETag = etag(obj.Data)
	}
	f.buckets[bucket][key] = &obj
}

// Object returns a stored object, or nil.
func (f *FakeS3) Object(bucket, key string) *FakeObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buckets[bucket][key]
}

// PutObject stores the request body.
func (f *FakeS3) PutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if f.PutErr != nil {
		return nil, f.PutErr
	}
	data, err := readBody(params.Body)
	if err != nil {
		return nil, err
	}
	if err := f.requireBucket(aws.ToString(params.Bucket)); err != nil {
		return nil, err
	}

	obj := FakeObject{
		Data:         data,
		ContentType:  aws.ToString(params.ContentType),
		Metadata:     params.Metadata,
		StorageClass: params.StorageClass,
	}
	f.Put(aws.ToString(params.Bucket), aws.ToString(params.Key), obj)
	stored := f.Object(aws.ToString(params.Bucket), aws.ToString(params.Key))

	return &s3.PutObjectOutput{ETag: aws.String(stored.ETag)}, nil
}

// GetObject returns the object body, or the requested byte range of it.
func (f *FakeS3) GetObject(
	_ context.Context,
	params *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	obj, err := f.lookup(aws.ToString(params.Bucket), aws.ToString(params.Key))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}

	out := &s3.GetObjectOutput{
		ETag:         aws.String(obj.ETag),
		LastModified: aws.Time(obj.LastModified),
		Metadata:     obj.Metadata,
		StorageClass: obj.StorageClass,
	}
	if obj.ContentType != "" {
		out.ContentType = aws.String(obj.ContentType)
	}

	body := obj.Data
	if spec := aws.ToString(params.Range); spec != "" {
		first, last, err := resolveRange(spec, int64(len(obj.Data)))
		if err != nil {
			return nil, err
		}
		body = obj.Data[first : last+1]
		out.ContentRange = aws.String(fmt.Sprintf("bytes %d-%d/%d", first, last, len(obj.Data)))
	}

	out.ContentLength = aws.Int64(int64(len(body)))
	out.Body = io.NopCloser(bytes.NewReader(body))
	return out, nil
}

// HeadObject returns object metadata without a body.
func (f *FakeS3) HeadObject(
	_ context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	obj, err := f.lookup(aws.ToString(params.Bucket), aws.ToString(params.Key))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}

	out := &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ETag:          aws.String(obj.ETag),
		LastModified:  aws.Time(obj.LastModified),
		Metadata:      obj.Metadata,
		StorageClass:  obj.StorageClass,
		Restore:       obj.Restore,
	}
	if obj.ContentType != "" {
		out.ContentType = aws.String(obj.ContentType)
	}
	return out, nil
}

// ListObjectsV2 lists keys in ascending order, one page per call.
// Continuation tokens are opaque to callers.
func (f *FakeS3) ListObjectsV2(
	_ context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++

	bucket := aws.ToString(params.Bucket)
	objects, ok := f.buckets[bucket]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}

	prefix := aws.ToString(params.Prefix)
	after := aws.ToString(params.StartAfter)
	if token := aws.ToString(params.ContinuationToken); token != "" {
		if !strings.HasPrefix(token, continuationPrefix) {
			return nil, &smithy.GenericAPIError{Code: "InvalidArgument", Message: "The continuation token provided is incorrect"}
		}
		after = strings.TrimPrefix(token, continuationPrefix)
	}

	maxKeys := int(aws.ToInt32(params.MaxKeys))
	if maxKeys <= 0 || maxKeys > defaultMaxKeys {
		maxKeys = defaultMaxKeys
	}

	keys := make([]string, 0, len(objects))
	for key := range objects {
		if strings.HasPrefix(key, prefix) && key > after {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	truncated := len(keys) > maxKeys
	if truncated {
		keys = keys[:maxKeys]
	}

	out := &s3.ListObjectsV2Output{
		Name:        aws.String(bucket),
		Prefix:      params.Prefix,
		MaxKeys:     aws.Int32(int32(maxKeys)),
		KeyCount:    aws.Int32(int32(len(keys))),
		IsTruncated: aws.Bool(truncated),
	}
	for _, key := range keys {
		obj := objects[key]
		class := types.ObjectStorageClass(obj.StorageClass)
		if class == "" {
			class = types.ObjectStorageClassStandard
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.Data))),
			LastModified: aws.Time(obj.LastModified),
			ETag:         aws.String(obj.ETag),
			StorageClass: class,
		})
	}
	if truncated {
		out.NextContinuationToken = aws.String(continuationPrefix + keys[len(keys)-1])
	}
	return out, nil
}

// CreateMultipartUpload starts a multipart upload.
func (f *FakeS3) CreateMultipartUpload(
	_ context.Context,
	params *s3.CreateMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	if f.PutErr != nil {
		return nil, f.PutErr
	}
	if err := f.requireBucket(aws.ToString(params.Bucket)); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadID++
	id := "upload-" + strconv.Itoa(f.uploadID)
	f.uploads[id] = &fakeUpload{
		bucket:      aws.ToString(params.Bucket),
		key:         aws.ToString(params.Key),
		contentType: aws.ToString(params.ContentType),
		metadata:    params.Metadata,
		class:       params.StorageClass,
		parts:       make(map[int32][]byte),
	}
	return &s3.CreateMultipartUploadOutput{
		Bucket:   params.Bucket,
		Key:      params.Key,
		UploadId: aws.String(id),
	}, nil
}

// UploadPart stores one part of a multipart upload.
func (f *FakeS3) UploadPart(
	_ context.Context,
	params *s3.UploadPartInput,
	_ ...func(*s3.Options),
) (*s3.UploadPartOutput, error) {
	data, err := readBody(params.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	upload, ok := f.uploads[aws.ToString(params.UploadId)]
	if !ok {
		return nil, &types.NoSuchUpload{Message: aws.String("The specified upload does not exist")}
	}
	upload.parts[aws.ToInt32(params.PartNumber)] = data
	return &s3.UploadPartOutput{ETag: aws.String(etag(data))}, nil
}

// CompleteMultipartUpload joins the uploaded parts in part-number order.
func (f *FakeS3) CompleteMultipartUpload(
	_ context.Context,
	params *s3.CompleteMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	f.mu.Lock()
	upload, ok := f.uploads[aws.ToString(params.UploadId)]
	delete(f.uploads, aws.ToString(params.UploadId))
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchUpload{Message: aws.String("The specified upload does not exist")}
	}

	numbers := make([]int, 0, len(upload.parts))
	for n := range upload.parts {
		numbers = append(numbers, int(n))
	}
	sort.Ints(numbers)

	var data []byte
	for _, n := range numbers {
		data = append(data, upload.parts[int32(n)]...)
	}

	f.Put(upload.bucket, upload.key, FakeObject{
		Data:         data,
		ContentType:  upload.contentType,
		Metadata:     upload.metadata,
		StorageClass: upload.class,
	})
	stored := f.Object(upload.bucket, upload.key)

	return &s3.CompleteMultipartUploadOutput{
		Bucket: aws.String(upload.bucket),
		Key:    aws.String(upload.key),
		ETag:   aws.String(stored.ETag),
	}, nil
}

// AbortMultipartUpload discards a multipart upload.
func (f *FakeS3) AbortMultipartUpload(
	_ context.Context,
	params *s3.AbortMultipartUploadInput,
	_ ...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.uploads, aws.ToString(params.UploadId))
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *FakeS3) lookup(bucket, key string) (*FakeObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	objects, ok := f.buckets[bucket]
	if !ok {
		return nil, &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}
	return objects[key], nil
}

func (f *FakeS3) requireBucket(bucket string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.buckets[bucket]; !ok {
		return &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
	}
	return nil
}

// resolveRange applies an HTTP range to an object of the given size,
// returning inclusive offsets.
func resolveRange(spec string, size int64) (first, last int64, err error) {
	first, last, err = validation.ParseRange(spec)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case first < 0:
		first += size
		if first < 0 {
			first = 0
		}
		last = size - 1
	case last < 0 || last >= size:
		last = size - 1
	}

	if size == 0 || first >= size {
		return 0, 0, &smithy.GenericAPIError{Code: "InvalidRange", Message: "The requested range is not satisfiable"}
	}
	return first, last, nil
}

func readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return io.ReadAll(body)
}

func etag(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

var _ s3api.S3API = (*FakeS3)(nil)

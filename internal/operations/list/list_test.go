package list

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

func TestLister_Each_FollowsContinuationTokens(t *testing.T) {
	now := time.Now()
	pages := map[string]*s3.ListObjectsV2Output{
		"": testutil.CreateListObjectsV2Output([]awstypes.Object{
			testutil.CreateTestObject("logs/a", 1, now),
			testutil.CreateTestObject("logs/b", 2, now),
		}, "token-1"),
		"token-1": testutil.CreateListObjectsV2Output([]awstypes.Object{
			testutil.CreateTestObject("logs/c", 3, now),
		}, "token-2"),
		"token-2": testutil.CreateListObjectsV2Output(nil, ""),
	}

	var calls int
	mockClient := &testutil.MockS3Client{
		ListObjectsV2Func: func(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			calls++
			assert.Equal(t, "bucket", aws.ToString(input.Bucket))
			assert.Equal(t, "logs/", aws.ToString(input.Prefix))
			assert.Equal(t, MaxPageSize, aws.ToInt32(input.MaxKeys))
			return pages[aws.ToString(input.ContinuationToken)], nil
		},
	}

	var keys []string
	stats, err := New(mockClient).Each(context.Background(), &Config{Bucket: "bucket", Prefix: "logs/"},
		func(obj awstypes.Object) error {
			keys = append(keys, aws.ToString(obj.Key))
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, []string{"logs/a", "logs/b", "logs/c"}, keys)
	assert.Equal(t, Stats{Pages: 3, Objects: 3}, stats)
	assert.Equal(t, 3, calls)
}

func TestLister_Each_FakePagination(t *testing.T) {
	tests := []struct {
		name      string
		objects   int
		pageSize  int32
		wantPages int
	}{
		{"empty", 0, 10, 1},
		{"single partial page", 7, 10, 1},
		{"exact multiple", 30, 10, 3},
		{"several pages", 25, 10, 3},
		{"service default", 2500, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeS3("bucket")
			for i := 0; i < tt.objects; i++ {
				fake.Put("bucket", fmt.Sprintf("data/%05d", i), testutil.FakeObject{Data: []byte{byte(i)}})
			}
			fake.Put("bucket", "other/skip", testutil.FakeObject{Data: []byte("x")})

			seen := make(map[string]bool)
			var keys []string
			stats, err := New(fake).Each(context.Background(),
				&Config{Bucket: "bucket", Prefix: "data/", PageSize: tt.pageSize},
				func(obj awstypes.Object) error {
					key := aws.ToString(obj.Key)
					assert.False(t, seen[key], "duplicate key %s", key)
					seen[key] = true
					keys = append(keys, key)
					return nil
				})
			require.NoError(t, err)

			assert.Len(t, keys, tt.objects)
			assert.IsIncreasing(t, keys)
			assert.Equal(t, tt.wantPages, stats.Pages)
			assert.Equal(t, tt.wantPages, fake.ListCalls)
		})
	}
}

func TestLister_Each_StartAfter(t *testing.T) {
	fake := testutil.NewFakeS3("bucket")
	for _, key := range []string{"a", "b", "c", "d"} {
		fake.Put("bucket", key, testutil.FakeObject{})
	}

	var keys []string
	_, err := New(fake).Each(context.Background(), &Config{Bucket: "bucket", StartAfter: "b", PageSize: 1},
		func(obj awstypes.Object) error {
			keys = append(keys, aws.ToString(obj.Key))
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, keys)
}

func TestLister_Each_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		boom := errors.New("throttled")
		mockClient := &testutil.MockS3Client{
			ListObjectsV2Func: func(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
				return nil, boom
			},
		}
		_, err := New(mockClient).Each(context.Background(), &Config{Bucket: "bucket"}, func(awstypes.Object) error { return nil })
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "s3role.listObjects bucket bucket")
	})

	t.Run("truncated without token", func(t *testing.T) {
		mockClient := &testutil.MockS3Client{
			ListObjectsV2Func: func(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
				return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(true)}, nil
			},
		}
		_, err := New(mockClient).Each(context.Background(), &Config{Bucket: "bucket"}, func(awstypes.Object) error { return nil })
		require.Error(t, err)
		assert.True(t, s3errors.IsMalformedResponse(err))
	})

	t.Run("callback error stops listing", func(t *testing.T) {
		fake := testutil.NewFakeS3("bucket")
		fake.Put("bucket", "a", testutil.FakeObject{})
		fake.Put("bucket", "b", testutil.FakeObject{})

		stop := errors.New("stop")
		stats, err := New(fake).Each(context.Background(), &Config{Bucket: "bucket"}, func(awstypes.Object) error { return stop })
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 0, stats.Objects)
	})
}

func TestProject(t *testing.T) {
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	full := awstypes.Object{
		Key:          aws.String("k"),
		Size:         aws.Int64(10),
		LastModified: aws.Time(modified),
		ETag:         aws.String(`"abc"`),
		StorageClass: awstypes.ObjectStorageClassGlacier,
	}

	tests := []struct {
		name   string
		obj    awstypes.Object
		fields []s3types.ObjectField
		want   s3types.FieldTuple
	}{
		{
			name:   "request order preserved",
			obj:    full,
			fields: []s3types.ObjectField{s3types.FieldSize, s3types.FieldKey},
			want:   s3types.FieldTuple{int64(10), "k"},
		},
		{
			name:   "all fields",
			obj:    full,
			fields: s3types.KnownFields,
			want:   s3types.FieldTuple{"k", int64(10), modified, `"abc"`, s3types.StorageClassGlacier},
		},
		{
			name:   "absent fields are nil",
			obj:    awstypes.Object{Key: aws.String("k")},
			fields: []s3types.ObjectField{s3types.FieldKey, s3types.FieldETag, s3types.FieldStorageClass, s3types.FieldSize},
			want:   s3types.FieldTuple{"k", nil, nil, nil},
		},
		{
			name:   "repeated field",
			obj:    full,
			fields: []s3types.ObjectField{s3types.FieldKey, s3types.FieldKey},
			want:   s3types.FieldTuple{"k", "k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.obj, tt.fields))
		})
	}
}

func TestConvert(t *testing.T) {
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := Convert(testutil.CreateTestObject("key", 12, modified))

	assert.Equal(t, "key", got.Key)
	assert.Equal(t, int64(12), got.Size)
	assert.Equal(t, modified, got.LastModified)
	assert.Equal(t, s3types.StorageClassStandard, got.StorageClass)
}

//go:build integration
// +build integration

package s3role_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

type integrationEnv struct {
	raw     *s3.Client
	assumer *s3role.Assumer
}

func setupIntegration(t *testing.T) (context.Context, *integrationEnv) {
	t.Helper()

	container := testutil.SetupLocalStackTest(t)
	ctx := context.Background()

	awsCfg, err := container.AWSConfig(ctx)
	require.NoError(t, err)

	raw, err := container.GetS3Client(ctx)
	require.NoError(t, err)

	assumer, err := s3role.NewAssumer(ctx,
		s3role.WithAWSConfig(&awsCfg),
		s3role.WithRegion(container.Region()),
		s3role.WithEndpoint(container.Endpoint()),
		s3role.WithForcePathStyle(true),
		s3role.WithFilesystem(memfs.New()),
		s3role.WithTempDir("/transit"),
	)
	require.NoError(t, err)

	return ctx, &integrationEnv{raw: raw, assumer: assumer}
}

func (e *integrationEnv) bucket(ctx context.Context, t *testing.T, prefix string) string {
	t.Helper()
	name := testutil.GenerateTestBucketName(prefix)
	require.NoError(t, testutil.CreateTestBucketInLocalStack(ctx, e.raw, name))
	return name
}

// TestIntegrationAssumeAndRead assumes a role through LocalStack STS and reads with it.
func TestIntegrationAssumeAndRead(t *testing.T) {
	ctx, env := setupIntegration(t)
	bucket := env.bucket(ctx, t, "read")

	data := testutil.GenerateRandomData(256 * 1024)
	_, err := env.raw.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String("data/blob.bin"),
		Body:   bytes.NewReader(data),
	})
	require.NoError(t, err)

	client, err := env.assumer.AssumeRole(ctx, testutil.TestRoleARN)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestRoleARN, client.RoleARN())
	assert.False(t, client.Expiration().IsZero())

	got, err := client.Get(ctx, bucket, "data/blob.bin")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	part, err := client.Get(ctx, bucket, "data/blob.bin", s3role.WithByteRange(100, 199))
	require.NoError(t, err)
	assert.Equal(t, data[100:200], part)

	size, err := client.GetObjectSize(ctx, bucket, "data/blob.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	_, err = client.Get(ctx, bucket, "data/missing.bin")
	require.Error(t, err)
	assert.True(t, errors.IsObjectNotFound(err))
}

// TestIntegrationListPagination lists more objects than fit in one page.
func TestIntegrationListPagination(t *testing.T) {
	ctx, env := setupIntegration(t)
	bucket := env.bucket(ctx, t, "list")

	client, err := env.assumer.AssumeRole(ctx, testutil.TestRoleARN)
	require.NoError(t, err)

	const count = 25
	for i := 0; i < count; i++ {
		_, err := client.Upload(ctx, bucket, testutil.GenerateTestKey("logs"), bytes.NewReader([]byte("line\n")))
		require.NoError(t, err)
	}

	rows, err := client.ListObjects(ctx, bucket, "logs/",
		[]s3types.ObjectField{s3types.FieldKey, s3types.FieldSize},
		s3role.WithMaxKeys(7))
	require.NoError(t, err)
	require.Len(t, rows, count)

	seen := make(map[string]bool, count)
	for _, row := range rows {
		key := row[0].(string)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
		assert.Equal(t, int64(5), row[1])
	}
}

// TestIntegrationGlacierMetadata reads the archival state of a GLACIER object.
func TestIntegrationGlacierMetadata(t *testing.T) {
	ctx, env := setupIntegration(t)
	bucket := env.bucket(ctx, t, "glacier")

	require.NoError(t, testutil.PutGlacierObject(ctx, env.raw, bucket, "archive/2019.tar", []byte("frozen")))
	_, err := env.raw.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String("hot.txt"),
		Body:   bytes.NewReader([]byte("hot")),
	})
	require.NoError(t, err)

	client, err := env.assumer.AssumeRole(ctx, testutil.TestRoleARN)
	require.NoError(t, err)

	meta, err := client.GetGlacierMetadata(ctx, bucket, "archive/2019.tar")
	require.NoError(t, err)
	assert.Equal(t, s3types.StorageClassGlacier, meta.StorageClass)
	assert.Equal(t, int64(6), meta.Size)
	assert.False(t, meta.RestoreOngoing)
	assert.Nil(t, meta.RestoreExpiry)

	meta, err = client.GetGlacierMetadata(ctx, bucket, "hot.txt")
	require.NoError(t, err)
	assert.Equal(t, s3types.StorageClassStandard, meta.StorageClass)
}

// TestIntegrationCopyCrossAccount copies between two assumed-role clients.
func TestIntegrationCopyCrossAccount(t *testing.T) {
	ctx, env := setupIntegration(t)
	srcBucket := env.bucket(ctx, t, "src")
	dstBucket := env.bucket(ctx, t, "dst")

	data := testutil.GenerateRandomData(6 * 1024 * 1024)
	_, err := env.raw.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(srcBucket),
		Key:         aws.String("exports/table.parquet"),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/vnd.apache.parquet"),
	})
	require.NoError(t, err)

	src, err := env.assumer.AssumeRole(ctx, "arn:aws:iam::111111111111:role/source-reader")
	require.NoError(t, err)
	dst, err := env.assumer.AssumeRole(ctx, "arn:aws:iam::222222222222:role/destination-writer")
	require.NoError(t, err)

	result, err := s3role.CopyCrossAccount(ctx,
		src, srcBucket, "exports/table.parquet",
		dst, dstBucket, "imports/table.parquet",
	)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), result.Download.Size)

	out, err := env.raw.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(dstBucket),
		Key:    aws.String("imports/table.parquet"),
	})
	require.NoError(t, err)
	defer out.Body.Close()

	var copied bytes.Buffer
	_, err = copied.ReadFrom(out.Body)
	require.NoError(t, err)
	assert.Equal(t, data, copied.Bytes())
	assert.Equal(t, "application/vnd.apache.parquet", aws.ToString(out.ContentType))
}

// TestIntegrationValidateKeepsFreshClient checks that a fresh client is reused.
func TestIntegrationValidateKeepsFreshClient(t *testing.T) {
	ctx, env := setupIntegration(t)

	client, err := env.assumer.AssumeRole(ctx, testutil.TestRoleARN)
	require.NoError(t, err)

	same, err := env.assumer.Validate(ctx, client)
	require.NoError(t, err)
	assert.Same(t, client, same)
}

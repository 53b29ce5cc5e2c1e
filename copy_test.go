package s3role

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/aws/s3role/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3role/s3types"
)

const copyTempDir = "/scratch"

type copyFixture struct {
	fs     billy.Filesystem
	srcS3  *testutil.FakeS3
	dstS3  *testutil.FakeS3
	src    *Client
	dst    *Client
	logBuf *bytes.Buffer
}

func newCopyFixture(t *testing.T, fs billy.Filesystem) *copyFixture {
	t.Helper()

	if fs == nil {
		fs = memfs.New()
	}
	logBuf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	srcS3 := testutil.NewFakeS3("source")
	dstS3 := testutil.NewFakeS3("destination")
	return &copyFixture{
		fs:     fs,
		srcS3:  srcS3,
		dstS3:  dstS3,
		src:    NewWithClient(srcS3, WithFilesystem(fs), WithTempDir(copyTempDir), WithLogger(logger)),
		dst:    NewWithClient(dstS3, WithLogger(logger)),
		logBuf: logBuf,
	}
}

func (f *copyFixture) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := f.fs.ReadDir(copyTempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files must not outlive the copy")
}

func TestCopyCrossAccount_Success(t *testing.T) {
	data := testutil.GenerateRandomData(64 * 1024)

	tests := []struct {
		name            string
		source          testutil.FakeObject
		opts            []s3types.CopyOption
		wantData        []byte
		wantContentType string
	}{
		{
			name:            "source content type propagates",
			source:          testutil.FakeObject{Data: data, ContentType: "application/x-parquet"},
			wantData:        data,
			wantContentType: "application/x-parquet",
		},
		{
			name:            "missing content type is sniffed",
			source:          testutil.FakeObject{Data: []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")},
			wantData:        []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"),
			wantContentType: "application/pdf",
		},
		{
			name:            "explicit content type wins",
			source:          testutil.FakeObject{Data: data, ContentType: "application/octet-stream"},
			opts:            []s3types.CopyOption{WithCopyContentType("application/gzip")},
			wantData:        data,
			wantContentType: "application/gzip",
		},
		{
			name:            "range copies a slice",
			source:          testutil.FakeObject{Data: data, ContentType: "application/octet-stream"},
			opts:            []s3types.CopyOption{WithCopyRange("bytes=1024-2047")},
			wantData:        data[1024:2048],
			wantContentType: "application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCopyFixture(t, nil)
			f.srcS3.Put("source", "in/object", tt.source)

			result, err := CopyCrossAccount(context.Background(),
				f.src, "source", "in/object",
				f.dst, "destination", "out/object",
				tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, result)

			stored := f.dstS3.Object("destination", "out/object")
			require.NotNil(t, stored)
			assert.Equal(t, tt.wantData, stored.Data)
			assert.Equal(t, tt.wantContentType, stored.ContentType)
			assert.Equal(t, int64(len(tt.wantData)), result.Download.Size)
			assert.Equal(t, int64(len(tt.wantData)), result.Upload.Size)

			f.assertNoTempFiles(t)
		})
	}
}

func TestCopyCrossAccount_MetadataAndStorageClass(t *testing.T) {
	f := newCopyFixture(t, nil)
	f.srcS3.Put("source", "k", testutil.FakeObject{Data: []byte("abc"), ContentType: "text/plain"})

	_, err := CopyCrossAccount(context.Background(),
		f.src, "source", "k",
		f.dst, "destination", "k",
		WithCopyMetadata(map[string]string{"origin": "source-account"}),
		WithCopyStorageClass(s3types.StorageClassStandardIA),
	)
	require.NoError(t, err)

	stored := f.dstS3.Object("destination", "k")
	require.NotNil(t, stored)
	assert.Equal(t, map[string]string{"origin": "source-account"}, stored.Metadata)
	assert.Equal(t, awstypes.StorageClassStandardIa, stored.StorageClass)
}

func TestCopyCrossAccount_DownloadFailure(t *testing.T) {
	f := newCopyFixture(t, nil)

	_, err := CopyCrossAccount(context.Background(),
		f.src, "source", "missing",
		f.dst, "destination", "out",
	)
	require.Error(t, err)
	assert.True(t, s3errors.IsObjectNotFound(err))
	assert.Nil(t, f.dstS3.Object("destination", "out"))

	f.assertNoTempFiles(t)
}

func TestCopyCrossAccount_UploadFailure(t *testing.T) {
	f := newCopyFixture(t, nil)
	f.srcS3.Put("source", "k", testutil.FakeObject{Data: []byte("payload"), ContentType: "text/plain"})
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}
	f.dstS3.PutErr = denied

	_, err := CopyCrossAccount(context.Background(),
		f.src, "source", "k",
		f.dst, "destination", "k",
	)
	require.Error(t, err)
	assert.True(t, s3errors.IsAccessDenied(err))

	var apiErr smithy.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "AccessDenied", apiErr.ErrorCode())

	f.assertNoTempFiles(t)
}

func TestCopyCrossAccount_RemoveFailureIsReported(t *testing.T) {
	removeErr := errors.New("device busy")
	fs := &failingRemoveFS{Filesystem: memfs.New(), err: removeErr}
	f := newCopyFixture(t, fs)
	f.srcS3.Put("source", "k", testutil.FakeObject{Data: []byte("payload"), ContentType: "text/plain"})

	result, err := CopyCrossAccount(context.Background(),
		f.src, "source", "k",
		f.dst, "destination", "k",
	)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, removeErr)
	assert.Contains(t, f.logBuf.String(), "failed to remove temp file")
	assert.Contains(t, f.logBuf.String(), "temp_file=")

	// the upload itself completed
	assert.NotNil(t, f.dstS3.Object("destination", "k"))
}

func TestCopyCrossAccount_DownloadFailureKeepsOriginalError(t *testing.T) {
	fs := &failingRemoveFS{Filesystem: memfs.New(), err: errors.New("device busy")}
	f := newCopyFixture(t, fs)

	_, err := CopyCrossAccount(context.Background(),
		f.src, "source", "missing",
		f.dst, "destination", "k",
	)
	require.Error(t, err)
	assert.True(t, s3errors.IsObjectNotFound(err), "the first failure is reported")
}

func TestCopyCrossAccount_Validation(t *testing.T) {
	f := newCopyFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name: "nil source client",
			call: func() error {
				_, err := CopyCrossAccount(ctx, nil, "source", "k", f.dst, "destination", "k")
				return err
			},
			wantErr: s3errors.ErrInvalidInput,
		},
		{
			name: "empty destination key",
			call: func() error {
				_, err := CopyCrossAccount(ctx, f.src, "source", "k", f.dst, "destination", "")
				return err
			},
			wantErr: s3errors.ErrInvalidObjectKey,
		},
		{
			name: "bad range",
			call: func() error {
				_, err := CopyCrossAccount(ctx, f.src, "source", "k", f.dst, "destination", "k",
					WithCopyRange("bytes=9-1"))
				return err
			},
			wantErr: s3errors.ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.wantErr)
		})
	}

	_, err := f.fs.Stat(copyTempDir)
	assert.Error(t, err, "no temp directory is created for rejected copies")
}

type failingRemoveFS struct {
	billy.Filesystem
	err error
}

func (f *failingRemoveFS) Remove(string) error { return f.err }

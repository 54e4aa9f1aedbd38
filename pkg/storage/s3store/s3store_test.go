package s3store_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/storage/s3store"
	"github.com/materials-commons/depot/pkg/tutil"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/stretchr/testify/require"
)

// These run against a live S3 endpoint (eg a local minio) when
// DEPOT_TEST=integration. Configure with S3_ENDPOINT, S3_ACCESS_KEY,
// S3_SECRET_KEY and S3_BUCKET; the bucket must already exist.

func makeS3Storage(t *testing.T) *storage.Storage {
	t.Helper()
	tutil.SkipUnlessIntegration(t)

	endpoint := os.Getenv("S3_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}

	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		bucket = "depot-test"
	}

	prefix := fmt.Sprintf("depot-test/%s/%d/", t.Name(), time.Now().UnixNano())
	settings := storage.Settings{
		Name:    "s3",
		Adapter: s3store.AdapterName,
		Options: map[string]string{
			"endpoint":   endpoint,
			"access_key": os.Getenv("S3_ACCESS_KEY"),
			"secret_key": os.Getenv("S3_SECRET_KEY"),
			"bucket":     bucket,
			"use_ssl":    "false",
			"prefix":     prefix,
		},
	}

	uploader, reader, manager, err := s3store.Factory{}.New(settings)
	require.NoErrorf(t, err, "Failed creating s3 adapter: %s", err)

	st := storage.New(settings, uploader, reader, manager)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = st.Scan(ctx, func(location string) error {
			_, _ = st.Remove(ctx, &storage.FileData{Location: location})
			return nil
		})
	})

	return st
}

func TestS3UploadStreamRange(t *testing.T) {
	st := makeS3Storage(t)
	ctx := context.Background()

	up, err := upload.MakeUpload([]byte("hello world"))
	require.NoError(t, err)

	data, err := st.Upload(ctx, up, nil)
	require.NoErrorf(t, err, "Failed uploading: %s", err)
	require.Equal(t, int64(11), data.Size)
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", data.Hash)

	content, err := st.Content(ctx, data)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(content))

	it, err := st.Range(ctx, data, 6, 10)
	require.NoError(t, err)
	window, err := it.ReadAll()
	require.NoError(t, err)
	require.Equal(t, "world", string(window))
}

func TestS3CopyAndMove(t *testing.T) {
	st := makeS3Storage(t)
	ctx := context.Background()

	up, err := upload.MakeUpload([]byte("abc"))
	require.NoError(t, err)
	data, err := st.Upload(ctx, up, nil)
	require.NoError(t, err)

	copied, err := st.Copy(ctx, data, "copies/first")
	require.NoErrorf(t, err, "Failed copying: %s", err)
	require.Equal(t, "copies/first", copied.Location)

	content, err := st.Content(ctx, copied)
	require.NoError(t, err)
	require.Equal(t, "abc", string(content))

	moved, err := st.Move(ctx, copied, "copies/second")
	require.NoErrorf(t, err, "Failed moving: %s", err)

	exists, err := st.Exists(ctx, copied)
	require.NoError(t, err)
	require.False(t, exists)

	content, err = st.Content(ctx, moved)
	require.NoError(t, err)
	require.Equal(t, "abc", string(content))
}

func TestS3Links(t *testing.T) {
	st := makeS3Storage(t)
	ctx := context.Background()

	up, err := upload.MakeUpload([]byte("linked"))
	require.NoError(t, err)
	data, err := st.Upload(ctx, up, nil)
	require.NoError(t, err)

	link, err := st.DownloadLink(ctx, data)
	require.NoErrorf(t, err, "Failed presigning: %s", err)
	require.Contains(t, link, data.Location)
	require.True(t, strings.Contains(link, "X-Amz-Signature"))
}

func TestS3RemoveAndAnalyze(t *testing.T) {
	st := makeS3Storage(t)
	ctx := context.Background()

	up, err := upload.MakeUpload([]byte("hello world"))
	require.NoError(t, err)
	data, err := st.Upload(ctx, up, nil)
	require.NoError(t, err)

	analyzed, err := st.Analyze(ctx, data.Location)
	require.NoErrorf(t, err, "Failed analyzing: %s", err)
	require.Equal(t, int64(11), analyzed.Size)

	removed, err := st.Remove(ctx, data)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = st.Remove(ctx, data)
	require.NoError(t, err)
	require.False(t, removed)

	_, err = st.Analyze(ctx, data.Location)
	var missingErr *errs.MissingFileError
	require.ErrorAs(t, err, &missingErr)
}

package redisstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/storage/redisstore"
	"github.com/materials-commons/depot/pkg/tutil"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// These run against a live redis (REDIS_ADDR, default localhost:6379)
// when DEPOT_TEST=integration.

func makeRedisStorage(t *testing.T) *storage.Storage {
	t.Helper()
	tutil.SkipUnlessIntegration(t)

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	prefix := fmt.Sprintf("depot:test:%s:%d:", t.Name(), time.Now().UnixNano())
	settings := storage.Settings{
		Name:    "redis",
		Adapter: redisstore.AdapterName,
		Options: map[string]string{"prefix": prefix},
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})

	uploader, reader, manager := redisstore.NewWithClient(settings, client)

	return storage.New(settings, uploader, reader, manager)
}

func TestRedisUploadStreamRange(t *testing.T) {
	st := makeRedisStorage(t)
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

func TestRedisMultipartSetRange(t *testing.T) {
	st := makeRedisStorage(t)
	ctx := context.Background()

	data, err := st.MultipartInitialize(ctx, 11, "", "", nil)
	require.NoErrorf(t, err, "Failed initializing multipart: %s", err)

	chunk, err := upload.MakeUpload([]byte("hello "))
	require.NoError(t, err)
	data, err = st.MultipartUpdate(ctx, data, chunk, nil)
	require.NoError(t, err)
	require.Equal(t, int64(6), data.Uploaded)

	chunk, err = upload.MakeUpload([]byte("world"))
	require.NoError(t, err)
	data, err = st.MultipartUpdate(ctx, data, chunk, nil)
	require.NoError(t, err)

	fileData, err := st.MultipartComplete(ctx, data, "")
	require.NoErrorf(t, err, "Failed completing multipart: %s", err)
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", fileData.Hash)
}

func TestRedisRemoveAndScan(t *testing.T) {
	st := makeRedisStorage(t)
	ctx := context.Background()

	up, err := upload.MakeUpload([]byte("abc"))
	require.NoError(t, err)
	data, err := st.Upload(ctx, up, nil)
	require.NoError(t, err)

	var found []string
	err = st.Scan(ctx, func(location string) error {
		found = append(found, location)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{data.Location}, found)

	removed, err := st.Remove(ctx, data)
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = st.Remove(ctx, data)
	require.NoError(t, err)
	require.False(t, removed)

	_, err = st.Stream(ctx, data, nil)
	var missingErr *errs.MissingFileError
	require.ErrorAs(t, err, &missingErr)
}

package storage_test

import (
	"context"
	"testing"

	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/stretchr/testify/require"
)

func mustChunk(t *testing.T, content string) *upload.Upload {
	t.Helper()

	up, err := upload.MakeUpload([]byte(content))
	require.NoError(t, err)

	return up
}

func TestMultipartResume(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage(t, storage.Settings{})

	data, err := st.MultipartInitialize(ctx, 11, "text/plain", "greeting.txt", nil)
	require.NoErrorf(t, err, "Failed initializing multipart: %s", err)
	require.Equal(t, int64(0), data.Uploaded)
	require.Equal(t, int64(11), data.Size)

	data, err = st.MultipartUpdate(ctx, data, mustChunk(t, "hello "), nil)
	require.NoError(t, err)
	require.Equal(t, int64(6), data.Uploaded)

	data, err = st.MultipartUpdate(ctx, data, mustChunk(t, "world"), nil)
	require.NoError(t, err)
	require.Equal(t, int64(11), data.Uploaded)

	completed, err := st.MultipartComplete(ctx, data, "")
	require.NoErrorf(t, err, "Failed completing multipart: %s", err)
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", completed.Hash)

	content, err := st.Content(ctx, completed)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(content))
}

func TestMultipartCompleteRefusesWhileIncomplete(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage(t, storage.Settings{})

	data, err := st.MultipartInitialize(ctx, 11, "", "", nil)
	require.NoError(t, err)

	data, err = st.MultipartUpdate(ctx, data, mustChunk(t, "hello "), nil)
	require.NoError(t, err)

	_, err = st.MultipartComplete(ctx, data, "")
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestMultipartUpdateOutOfBounds(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage(t, storage.Settings{})

	data, err := st.MultipartInitialize(ctx, 5, "", "", nil)
	require.NoError(t, err)

	var boundErr *errs.UploadOutOfBoundError

	// A chunk extending past the declared size fails without advancing
	// the cursor.
	_, err = st.MultipartUpdate(ctx, data, mustChunk(t, "toolong"), nil)
	require.ErrorAs(t, err, &boundErr)
	require.Equal(t, int64(0), data.Uploaded)

	// A write position past the cursor fails too.
	_, err = st.MultipartUpdate(ctx, data, mustChunk(t, "ab"), storage.Extras{"position": int64(3)})
	require.ErrorAs(t, err, &boundErr)

	// Negative positions are rejected.
	_, err = st.MultipartUpdate(ctx, data, mustChunk(t, "ab"), storage.Extras{"position": int64(-1)})
	require.ErrorAs(t, err, &boundErr)
}

func TestMultipartRewriteWithinUploadedWindow(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage(t, storage.Settings{})

	data, err := st.MultipartInitialize(ctx, 5, "", "", nil)
	require.NoError(t, err)

	data, err = st.MultipartUpdate(ctx, data, mustChunk(t, "abcde"), nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), data.Uploaded)

	// Resending at an already uploaded position is allowed; the cursor
	// follows the rewrite's end.
	data, err = st.MultipartUpdate(ctx, data, mustChunk(t, "ABCDE"), storage.Extras{"position": int64(0)})
	require.NoError(t, err)
	require.Equal(t, int64(5), data.Uploaded)

	completed, err := st.MultipartComplete(ctx, data, "")
	require.NoError(t, err)

	content, err := st.Content(ctx, completed)
	require.NoError(t, err)
	require.Equal(t, "ABCDE", string(content))
}

func TestMultipartCompleteHashMismatch(t *testing.T) {
	ctx := context.Background()
	st := newMemStorage(t, storage.Settings{})

	data, err := st.MultipartInitialize(ctx, 2, "", "", nil)
	require.NoError(t, err)

	data, err = st.MultipartUpdate(ctx, data, mustChunk(t, "hi"), nil)
	require.NoError(t, err)

	_, err = st.MultipartComplete(ctx, data, "not-the-right-hash")
	var contentErr *errs.ContentError
	require.ErrorAs(t, err, &contentErr)

	// The refused complete leaves the upload open; retrying with the
	// right hash assembles it.
	completed, err := st.MultipartComplete(ctx, data, "49f68a5c8493ec2c0bf489821c21fc3b")
	require.NoErrorf(t, err, "Failed completing after refused hash: %s", err)

	content, err := st.Content(ctx, completed)
	require.NoError(t, err)
	require.Equal(t, "hi", string(content))
}

func TestMultipartInitializeValidation(t *testing.T) {
	ctx := context.Background()

	st := newMemStorage(t, storage.Settings{MaxSize: 10})

	_, err := st.MultipartInitialize(ctx, -1, "", "", nil)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = st.MultipartInitialize(ctx, 11, "", "", nil)
	var largeErr *errs.LargeUploadError
	require.ErrorAs(t, err, &largeErr)
}

package actions_test

import (
	"context"
	"testing"

	"github.com/materials-commons/depot/pkg/actions"
	"github.com/materials-commons/depot/pkg/depotdb/model"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUploadLifecyclePromotesToFile(t *testing.T) {
	service, _ := newTestService(t)
	st := registerMemStorage(t, "mem")
	ctx := context.Background()

	initialized, err := service.UploadInitialize(ctx, userOne, actions.UploadInitializeParams{
		Storage: "mem",
		Size:    11,
		Name:    "greeting.txt",
	})
	require.NoErrorf(t, err, "Failed initializing upload: %s", err)
	uploadID, _ := initialized["id"].(string)
	require.NotEmpty(t, uploadID)
	require.Equal(t, int64(0), initialized["uploaded"])

	updated, err := service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "hello ", ""), nil)
	require.NoErrorf(t, err, "Failed sending first chunk: %s", err)
	require.Equal(t, int64(6), updated["uploaded"])

	shown, err := service.UploadShow(ctx, userOne, uploadID)
	require.NoError(t, err)
	require.Equal(t, int64(6), shown["uploaded"])

	updated, err = service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "world", ""), nil)
	require.NoError(t, err)
	require.Equal(t, int64(11), updated["uploaded"])

	completed, err := service.UploadComplete(ctx, userOne, uploadID, "")
	require.NoErrorf(t, err, "Failed completing upload: %s", err)
	require.Equal(t, uploadID, completed["id"])
	require.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", completed["hash"])

	// The multipart row is gone; the file resolves under the same id.
	_, err = service.UploadShow(ctx, userOne, uploadID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	file, err := service.FileShow(ctx, userOne, uploadID)
	require.NoError(t, err)
	require.Equal(t, "greeting.txt", file["name"])

	location, _ := file["location"].(string)
	content, err := st.Content(ctx, &storage.FileData{Location: location})
	require.NoError(t, err)
	require.Equal(t, "hello world", string(content))
}

func TestUploadInitializeValidation(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.UploadInitialize(context.Background(), userOne, actions.UploadInitializeParams{Size: -1})

	var validationErr *errs.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestUploadUpdateOutOfBounds(t *testing.T) {
	service, _ := newTestService(t)
	registerMemStorage(t, "mem")
	ctx := context.Background()

	initialized, err := service.UploadInitialize(ctx, userOne, actions.UploadInitializeParams{
		Storage: "mem",
		Size:    5,
	})
	require.NoError(t, err)
	uploadID, _ := initialized["id"].(string)

	_, err = service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "way too long", ""), nil)

	var outOfBoundErr *errs.UploadOutOfBoundError
	require.ErrorAs(t, err, &outOfBoundErr)

	// The cursor did not move; a fitting chunk still lands.
	updated, err := service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "hello", ""), nil)
	require.NoError(t, err)
	require.Equal(t, int64(5), updated["uploaded"])
}

func TestUploadCompleteRefusesIncomplete(t *testing.T) {
	service, _ := newTestService(t)
	registerMemStorage(t, "mem")
	ctx := context.Background()

	initialized, err := service.UploadInitialize(ctx, userOne, actions.UploadInitializeParams{
		Storage: "mem",
		Size:    11,
	})
	require.NoError(t, err)
	uploadID, _ := initialized["id"].(string)

	_, err = service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "hello ", ""), nil)
	require.NoError(t, err)

	_, err = service.UploadComplete(ctx, userOne, uploadID, "")
	var validationErr *errs.ValidationError
	require.ErrorAs(t, err, &validationErr)

	// Resumption is still possible after the refused completion.
	_, err = service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "world", ""), nil)
	require.NoError(t, err)

	_, err = service.UploadComplete(ctx, userOne, uploadID, "")
	require.NoErrorf(t, err, "Failed completing upload: %s", err)
}

func TestUploadCompleteHashMismatch(t *testing.T) {
	service, _ := newTestService(t)
	registerMemStorage(t, "mem")
	ctx := context.Background()

	initialized, err := service.UploadInitialize(ctx, userOne, actions.UploadInitializeParams{
		Storage: "mem",
		Size:    2,
	})
	require.NoError(t, err)
	uploadID, _ := initialized["id"].(string)

	_, err = service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "hi", ""), nil)
	require.NoError(t, err)

	_, err = service.UploadComplete(ctx, userOne, uploadID, "0000000000000000000000000000dead")

	var contentErr *errs.ContentError
	require.ErrorAs(t, err, &contentErr)
}

func TestUploadAuthorization(t *testing.T) {
	service, stors := newTestService(t)
	registerMemStorage(t, "mem")
	ctx := context.Background()

	initialized, err := service.UploadInitialize(ctx, userOne, actions.UploadInitializeParams{
		Storage: "mem",
		Size:    5,
	})
	require.NoError(t, err)
	uploadID, _ := initialized["id"].(string)

	_, err = stors.OwnerStor.AssignOwner(uploadID, model.ItemTypeMultipart, "user", "u1", "u1")
	require.NoError(t, err)

	_, err = service.UploadUpdate(ctx, userTwo, uploadID, mustMakeUpload(t, "x", ""), nil)
	var notAuthorizedErr *errs.NotAuthorizedError
	require.ErrorAs(t, err, &notAuthorizedErr)

	_, err = service.UploadComplete(ctx, userTwo, uploadID, "")
	require.ErrorAs(t, err, &notAuthorizedErr)

	_, err = service.UploadUpdate(ctx, userOne, uploadID, mustMakeUpload(t, "hello", ""), nil)
	require.NoErrorf(t, err, "Owner update failed: %s", err)
}

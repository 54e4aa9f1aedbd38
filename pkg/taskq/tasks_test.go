package taskq_test

import (
	"context"
	"testing"

	"github.com/materials-commons/depot/pkg/taskq"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/stretchr/testify/require"
)

// fakeHost records the calls the built-in tasks make against the action
// layer.
type fakeHost struct {
	createdStorage string
	createdName    string
	createdBytes   []byte

	transferredFileID  string
	transferredOwnerTo string
	transferredType    string

	invokedAction string
	invokedParams map[string]interface{}
}

func (h *fakeHost) CreateFile(_ context.Context, storageName, name string, up *upload.Upload) (map[string]interface{}, error) {
	h.createdStorage = storageName
	h.createdName = name

	if err := up.Reset(); err != nil {
		return nil, err
	}
	buf := make([]byte, up.Size())
	_, _ = up.Stream().Read(buf)
	h.createdBytes = buf

	return map[string]interface{}{
		"id":  "file-1",
		"url": "https://cdn.example.com/files/file-1",
	}, nil
}

func (h *fakeHost) TransferFileOwnership(_ context.Context, fileID, ownerType, ownerID, _ string, _ bool) error {
	h.transferredFileID = fileID
	h.transferredType = ownerType
	h.transferredOwnerTo = ownerID
	return nil
}

func (h *fakeHost) Invoke(_ context.Context, action string, params map[string]interface{}) (map[string]interface{}, error) {
	h.invokedAction = action
	h.invokedParams = params
	return nil, nil
}

func TestOwnershipTransferTask(t *testing.T) {
	host := &fakeHost{}

	_, err := taskq.Run(context.Background(), func(ctx context.Context) (map[string]interface{}, error) {
		err := taskq.Add(ctx, &taskq.OwnershipTransferTask{
			Host:      host,
			FileID:    "file-1",
			OwnerType: "user",
			IDPath:    []string{"id"},
		})
		require.NoError(t, err)

		return map[string]interface{}{"id": "u1"}, nil
	})
	require.NoErrorf(t, err, "Run failed: %s", err)
	require.Equal(t, "file-1", host.transferredFileID)
	require.Equal(t, "user", host.transferredType)
	require.Equal(t, "u1", host.transferredOwnerTo)
}

func TestUploadAndAttachTask(t *testing.T) {
	host := &fakeHost{}

	up, err := upload.MakeUpload([]byte("image bytes"))
	require.NoError(t, err)

	result, err := taskq.Run(context.Background(), func(ctx context.Context) (map[string]interface{}, error) {
		err := taskq.Add(ctx, &taskq.UploadAndAttachTask{
			Host:             host,
			Storage:          "public",
			Upload:           up,
			Name:             "avatar.png",
			OwnerType:        "user",
			IDPath:           []string{"id"},
			AttachAs:         taskq.AttachAsPublicURL,
			Action:           "user_patch",
			DestinationField: "image_url",
		})
		require.NoError(t, err)

		return map[string]interface{}{"id": "u1", "name": "A User"}, nil
	})
	require.NoErrorf(t, err, "Run failed: %s", err)
	require.Equal(t, "u1", result["id"])

	require.Equal(t, "public", host.createdStorage)
	require.Equal(t, "avatar.png", host.createdName)
	require.Equal(t, "image bytes", string(host.createdBytes))

	require.Equal(t, "file-1", host.transferredFileID)
	require.Equal(t, "u1", host.transferredOwnerTo)

	require.Equal(t, "user_patch", host.invokedAction)
	require.Equal(t, "u1", host.invokedParams["id"])
	require.Equal(t, "https://cdn.example.com/files/file-1", host.invokedParams["image_url"])
}

func TestUploadAndAttachTaskAttachesID(t *testing.T) {
	host := &fakeHost{}

	up, err := upload.MakeUpload([]byte("doc"))
	require.NoError(t, err)

	_, err = taskq.Run(context.Background(), func(ctx context.Context) (map[string]interface{}, error) {
		err := taskq.Add(ctx, &taskq.UploadAndAttachTask{
			Host:             host,
			Storage:          "docs",
			Upload:           up,
			Name:             "contract.pdf",
			OwnerType:        "org",
			IDPath:           []string{"org", "id"},
			AttachAs:         taskq.AttachAsID,
			Action:           "org_patch",
			DestinationField: "contract_file_id",
		})
		require.NoError(t, err)

		return map[string]interface{}{"org": map[string]interface{}{"id": "acme"}}, nil
	})
	require.NoErrorf(t, err, "Run failed: %s", err)
	require.Equal(t, "acme", host.transferredOwnerTo)
	require.Equal(t, "file-1", host.invokedParams["contract_file_id"])
}

func TestOwnershipTransferTaskBadIDPath(t *testing.T) {
	host := &fakeHost{}

	_, err := taskq.Run(context.Background(), func(ctx context.Context) (map[string]interface{}, error) {
		err := taskq.Add(ctx, &taskq.OwnershipTransferTask{
			Host:      host,
			FileID:    "file-1",
			OwnerType: "user",
			IDPath:    []string{"missing"},
		})
		require.NoError(t, err)

		return map[string]interface{}{"id": "u1"}, nil
	})
	require.Error(t, err)
	require.Empty(t, host.transferredFileID)
}

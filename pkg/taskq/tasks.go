package taskq

import (
	"context"
	"fmt"

	"github.com/materials-commons/depot/pkg/upload"
	"github.com/pkg/errors"
)

// Host is the surface the built-in tasks need from the action layer.
type Host interface {
	// CreateFile uploads bytes into the named storage and returns the
	// dictized file record (including "id" and "url").
	CreateFile(ctx context.Context, storageName, name string, up *upload.Upload) (map[string]interface{}, error)

	// TransferFileOwnership assigns or reassigns the file's owner.
	TransferFileOwnership(ctx context.Context, fileID, ownerType, ownerID, actor string, force bool) error

	// Invoke runs a named host action with the given params.
	Invoke(ctx context.Context, action string, params map[string]interface{}) (map[string]interface{}, error)
}

// Values AttachAs accepts on UploadAndAttachTask.
const (
	AttachAsID        = "id"
	AttachAsPublicURL = "public_url"
)

// OwnershipTransferTask transfers ownership of a file to the entity
// whose id sits at IDPath in the outer action's result.
type OwnershipTransferTask struct {
	Host      Host
	FileID    string
	OwnerType string
	IDPath    []string
}

func (t *OwnershipTransferTask) Run(ctx context.Context, result map[string]interface{}) error {
	ownerID, err := valueAtPath(result, t.IDPath)
	if err != nil {
		return err
	}

	return t.Host.TransferFileOwnership(ctx, t.FileID, t.OwnerType, ownerID, "system", true)
}

// UploadAndAttachTask uploads bytes, hands the new file to the entity
// the outer action produced, and optionally invokes a host action to
// write the file's id or public URL into one of the entity's fields.
type UploadAndAttachTask struct {
	Host             Host
	Storage          string
	Upload           *upload.Upload
	Name             string
	OwnerType        string
	IDPath           []string
	AttachAs         string
	Action           string
	DestinationField string
}

func (t *UploadAndAttachTask) Run(ctx context.Context, result map[string]interface{}) error {
	ownerID, err := valueAtPath(result, t.IDPath)
	if err != nil {
		return err
	}

	file, err := t.Host.CreateFile(ctx, t.Storage, t.Name, t.Upload)
	if err != nil {
		return err
	}

	fileID, _ := file["id"].(string)

	if err := t.Host.TransferFileOwnership(ctx, fileID, t.OwnerType, ownerID, "system", true); err != nil {
		return err
	}

	if t.Action == "" {
		return nil
	}

	value := file["id"]
	if t.AttachAs == AttachAsPublicURL {
		value = file["url"]
	}

	_, err = t.Host.Invoke(ctx, t.Action, map[string]interface{}{
		"id":               ownerID,
		t.DestinationField: value,
	})

	return err
}

func valueAtPath(result map[string]interface{}, path []string) (string, error) {
	if len(path) == 0 {
		return "", errors.New("empty id path")
	}

	var current interface{} = result
	for _, key := range path {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", errors.Errorf("id path %v does not resolve in result", path)
		}
		if current, ok = m[key]; !ok {
			return "", errors.Errorf("id path %v does not resolve in result", path)
		}
	}

	switch v := current.(type) {
	case string:
		return v, nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

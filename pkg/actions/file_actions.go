package actions

import (
	"context"

	"github.com/materials-commons/depot/pkg/clog"
	"github.com/materials-commons/depot/pkg/depotdb/model"
	"github.com/materials-commons/depot/pkg/depotdb/stor"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
	"gorm.io/gorm"
)

type FileCreateParams struct {
	Storage    string
	Name       string
	Upload     *upload.Upload
	Extras     storage.Extras
	PluginData map[string]interface{}
}

// FileCreate uploads bytes into the named storage and records the result
// in the catalog.
func (s *Service) FileCreate(ctx context.Context, p Principal, params FileCreateParams) (map[string]interface{}, error) {
	verr := &errs.ValidationError{}
	if params.Storage == "" {
		verr.Add("storage", "storage is required")
	}
	if params.Upload == nil {
		verr.Add("upload", "upload is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	st, err := storage.GetStorage(params.Storage)
	if err != nil {
		return nil, err
	}

	name := params.Name
	if name == "" {
		name = params.Upload.Filename()
	}

	data, err := st.Upload(ctx, params.Upload, params.Extras)
	if err != nil {
		return nil, err
	}

	file := &model.File{
		Name:        name,
		Storage:     params.Storage,
		Location:    data.Location,
		ContentType: data.ContentType,
		Size:        data.Size,
		Hash:        data.Hash,
		StorageData: model.EncodeJSONMap(data.StorageData),
		PluginData:  model.EncodeJSONMap(params.PluginData),
	}

	if file, err = s.stors.FileStor.CreateFile(file); err != nil {
		// The bytes are in the back-end but the catalog refused the row;
		// remove them so nothing leaks.
		if _, rmErr := st.Remove(ctx, data); rmErr != nil {
			clog.UsingStorage(params.Storage).
				WithField("location", data.Location).
				Errorf("Failed removing bytes after catalog failure: %s", rmErr)
		}
		return nil, err
	}

	return s.dictizeFile(ctx, file), nil
}

func (s *Service) FileShow(ctx context.Context, p Principal, fileID string) (map[string]interface{}, error) {
	file, err := s.stors.FileStor.GetFileByUUID(fileID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizeItem(ctx, p, "file_show", file.UUID, model.ItemTypeFile); err != nil {
		return nil, err
	}

	return s.dictizeFile(ctx, file), nil
}

func (s *Service) FileRename(ctx context.Context, p Principal, fileID, name string) (map[string]interface{}, error) {
	if name == "" {
		return nil, errs.NewValidationError("name", "name is required")
	}

	file, err := s.stors.FileStor.GetFileByUUID(fileID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizeItem(ctx, p, "file_rename", file.UUID, model.ItemTypeFile); err != nil {
		return nil, err
	}

	if file, err = s.stors.FileStor.RenameFile(file, name); err != nil {
		return nil, err
	}

	return s.dictizeFile(ctx, file), nil
}

// FileTouch refreshes the record's access and modification times.
func (s *Service) FileTouch(ctx context.Context, p Principal, fileID string) (map[string]interface{}, error) {
	file, err := s.stors.FileStor.GetFileByUUID(fileID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizeItem(ctx, p, "file_touch", file.UUID, model.ItemTypeFile); err != nil {
		return nil, err
	}

	if file, err = s.stors.FileStor.TouchFile(file); err != nil {
		return nil, err
	}

	return s.dictizeFile(ctx, file), nil
}

// FileDelete removes the bytes from the back-end and deletes the catalog
// row together with its owner row. It also deletes abandoned multiparts
// when given a multipart id.
func (s *Service) FileDelete(ctx context.Context, p Principal, fileID string) error {
	file, err := s.stors.FileStor.GetFileByUUID(fileID)
	if err == gorm.ErrRecordNotFound {
		return s.deleteMultipart(ctx, p, fileID)
	}
	if err != nil {
		return err
	}

	if _, err := s.authorizeItem(ctx, p, "file_delete", file.UUID, model.ItemTypeFile); err != nil {
		return err
	}

	s.removeBytes(ctx, file.Storage, fileDataFromModel(file))

	return s.stors.FileStor.DeleteFileAndOwner(file)
}

func (s *Service) deleteMultipart(ctx context.Context, p Principal, mpID string) error {
	mp, err := s.stors.MultipartStor.GetMultipartByUUID(mpID)
	if err != nil {
		return err
	}

	if _, err := s.authorizeItem(ctx, p, "file_delete", mp.UUID, model.ItemTypeMultipart); err != nil {
		return err
	}

	s.removeBytes(ctx, mp.Storage, &multipartDataFromModel(mp).FileData)

	return s.stors.MultipartStor.DeleteMultipartAndOwner(mp)
}

// removeBytes is best effort: a dangling record whose storage was
// deregistered still gets deleted from the catalog.
func (s *Service) removeBytes(ctx context.Context, storageName string, data *storage.FileData) {
	st, err := storage.GetStorage(storageName)
	if err != nil {
		clog.Global().WithField("storage", storageName).
			Debugf("Removing catalog record for unregistered storage: %s", err)
		return
	}

	if _, err := st.Remove(ctx, data); err != nil {
		clog.UsingStorage(storageName).
			WithField("location", data.Location).
			Errorf("Failed removing bytes: %s", err)
	}
}

// FileMove relocates a file's bytes onto another storage and repoints
// the catalog record at the new home. Cross-storage moves go through
// the synthetic stream-then-upload pipeline.
func (s *Service) FileMove(ctx context.Context, p Principal, fileID, dstStorageName string) (map[string]interface{}, error) {
	if dstStorageName == "" {
		return nil, errs.NewValidationError("storage", "storage is required")
	}

	file, err := s.stors.FileStor.GetFileByUUID(fileID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizeItem(ctx, p, "file_move", file.UUID, model.ItemTypeFile); err != nil {
		return nil, err
	}

	if file.Storage == dstStorageName {
		return s.dictizeFile(ctx, file), nil
	}

	srcSt, err := storage.GetStorage(file.Storage)
	if err != nil {
		return nil, err
	}

	dstSt, err := storage.GetStorage(dstStorageName)
	if err != nil {
		return nil, err
	}

	moved, err := srcSt.MoveSynthetic(ctx, fileDataFromModel(file), dstSt, nil)
	if err != nil {
		return nil, err
	}

	file, err = s.stors.FileStor.UpdateFileStorage(file, dstStorageName, moved.Location,
		model.EncodeJSONMap(moved.StorageData))
	if err != nil {
		return nil, err
	}

	return s.dictizeFile(ctx, file), nil
}

// FileSearch searches across all owners. Requires manage_files.
func (s *Service) FileSearch(ctx context.Context, p Principal, params stor.FileSearchParams) ([]map[string]interface{}, error) {
	if err := s.requireManageFiles(p, "file_search"); err != nil {
		return nil, err
	}

	return s.searchAndDictize(ctx, params)
}

// FileSearchByUser searches the files owned by the principal.
func (s *Service) FileSearchByUser(ctx context.Context, p Principal, params stor.FileSearchParams) ([]map[string]interface{}, error) {
	params.OwnerType = p.Type
	params.OwnerID = p.ID

	return s.searchAndDictize(ctx, params)
}

func (s *Service) searchAndDictize(ctx context.Context, params stor.FileSearchParams) ([]map[string]interface{}, error) {
	files, err := s.stors.FileStor.SearchFiles(params)
	if err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, 0, len(files))
	for i := range files {
		results = append(results, s.dictizeFile(ctx, &files[i]))
	}

	return results, nil
}

// FileScan lists the locations present in a back-end, flagging the ones
// the catalog doesn't know about. Requires manage_files.
func (s *Service) FileScan(ctx context.Context, p Principal, storageName string) (map[string]interface{}, error) {
	if err := s.requireManageFiles(p, "file_scan"); err != nil {
		return nil, err
	}

	st, err := storage.GetStorage(storageName)
	if err != nil {
		return nil, err
	}

	var (
		locations    []string
		uncatalogued []string
	)

	err = st.Scan(ctx, func(location string) error {
		locations = append(locations, location)

		_, err := s.stors.FileStor.GetFileByStorageAndLocation(storageName, location)
		switch {
		case err == gorm.ErrRecordNotFound:
			uncatalogued = append(uncatalogued, location)
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"storage":      storageName,
		"locations":    locations,
		"uncatalogued": uncatalogued,
	}, nil
}

// FileRegister materializes a back-end object into the catalog. Requires
// manage_files.
func (s *Service) FileRegister(ctx context.Context, p Principal, storageName, location, name string) (map[string]interface{}, error) {
	if err := s.requireManageFiles(p, "file_register"); err != nil {
		return nil, err
	}

	st, err := storage.GetStorage(storageName)
	if err != nil {
		return nil, err
	}

	data, err := st.Analyze(ctx, location)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = location
	}

	file := &model.File{
		Name:        name,
		Storage:     storageName,
		Location:    data.Location,
		ContentType: data.ContentType,
		Size:        data.Size,
		Hash:        data.Hash,
		StorageData: model.EncodeJSONMap(data.StorageData),
	}

	if file, err = s.stors.FileStor.CreateFile(file); err != nil {
		return nil, err
	}

	return s.dictizeFile(ctx, file), nil
}

// TransferOwnership assigns or reassigns a file's owner. The caller must
// be authorized over the current owner; a pinned owner is only released
// with force. Every change appends a transfer history row.
func (s *Service) TransferOwnership(ctx context.Context, p Principal, fileID, ownerType, ownerID string, force bool) (map[string]interface{}, error) {
	verr := &errs.ValidationError{}
	if ownerType == "" {
		verr.Add("owner_type", "owner_type is required")
	}
	if ownerID == "" {
		verr.Add("owner_id", "owner_id is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	file, err := s.stors.FileStor.GetFileByUUID(fileID)
	if err != nil {
		return nil, err
	}

	owner, err := s.authorizeItem(ctx, p, "transfer_ownership", file.UUID, model.ItemTypeFile)
	if err != nil {
		return nil, err
	}

	actor := p.ID
	if actor == "" {
		actor = "system"
	}

	if owner == nil {
		if owner, err = s.stors.OwnerStor.AssignOwner(file.UUID, model.ItemTypeFile, ownerType, ownerID, actor); err != nil {
			return nil, err
		}
		return owner.ToMap(), nil
	}

	if owner.Pinned && !force {
		return nil, &errs.NotAuthorizedError{Action: "transfer_ownership: owner is pinned"}
	}

	if owner, err = s.stors.OwnerStor.TransferOwner(owner, ownerType, ownerID, actor); err != nil {
		return nil, err
	}

	return owner.ToMap(), nil
}

func (s *Service) FilePin(ctx context.Context, p Principal, fileID string) (map[string]interface{}, error) {
	return s.setPinned(ctx, p, fileID, true)
}

func (s *Service) FileUnpin(ctx context.Context, p Principal, fileID string) (map[string]interface{}, error) {
	return s.setPinned(ctx, p, fileID, false)
}

func (s *Service) setPinned(ctx context.Context, p Principal, fileID string, pinned bool) (map[string]interface{}, error) {
	file, err := s.stors.FileStor.GetFileByUUID(fileID)
	if err != nil {
		return nil, err
	}

	owner, err := s.authorizeItem(ctx, p, "file_pin", file.UUID, model.ItemTypeFile)
	if err != nil {
		return nil, err
	}

	if owner == nil {
		return nil, errs.NewValidationError("owner", "file has no owner to pin")
	}

	if owner, err = s.stors.OwnerStor.SetPinned(owner, pinned); err != nil {
		return nil, err
	}

	return owner.ToMap(), nil
}

package actions

import (
	"context"

	"github.com/materials-commons/depot/pkg/depotdb/model"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
)

type UploadInitializeParams struct {
	Storage     string
	Size        int64
	ContentType string
	Name        string
	Extras      storage.Extras
}

// UploadInitialize opens a resumable upload: the back-end reserves the
// location and the catalog records a Multipart row at uploaded == 0.
func (s *Service) UploadInitialize(ctx context.Context, p Principal, params UploadInitializeParams) (map[string]interface{}, error) {
	verr := &errs.ValidationError{}
	if params.Storage == "" {
		verr.Add("storage", "storage is required")
	}
	if params.Size < 0 {
		verr.Add("size", "size cannot be negative")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	st, err := storage.GetStorage(params.Storage)
	if err != nil {
		return nil, err
	}

	data, err := st.MultipartInitialize(ctx, params.Size, params.ContentType, params.Name, params.Extras)
	if err != nil {
		return nil, err
	}

	mp := &model.Multipart{
		Name:        params.Name,
		Storage:     params.Storage,
		Location:    data.Location,
		ContentType: data.ContentType,
		Size:        data.Size,
		StorageData: model.EncodeJSONMap(data.StorageData),
	}

	if mp, err = s.stors.MultipartStor.CreateMultipart(mp); err != nil {
		return nil, err
	}

	return mp.ToMap(), nil
}

func (s *Service) UploadShow(ctx context.Context, p Principal, uploadID string) (map[string]interface{}, error) {
	mp, err := s.stors.MultipartStor.GetMultipartByUUID(uploadID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizeItem(ctx, p, "upload_show", mp.UUID, model.ItemTypeMultipart); err != nil {
		return nil, err
	}

	return mp.ToMap(), nil
}

// UploadUpdate writes a chunk at the current cursor, or at the explicit
// "position" extra when resuming. The catalog row's uploaded count and
// resumption cursor advance with the back-end's.
func (s *Service) UploadUpdate(ctx context.Context, p Principal, uploadID string, chunk *upload.Upload, extras storage.Extras) (map[string]interface{}, error) {
	if chunk == nil {
		return nil, errs.NewValidationError("upload", "upload is required")
	}

	mp, err := s.stors.MultipartStor.GetMultipartByUUID(uploadID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizeItem(ctx, p, "upload_update", mp.UUID, model.ItemTypeMultipart); err != nil {
		return nil, err
	}

	st, err := storage.GetStorage(mp.Storage)
	if err != nil {
		return nil, err
	}

	updated, err := st.MultipartUpdate(ctx, multipartDataFromModel(mp), chunk, extras)
	if err != nil {
		return nil, err
	}

	mp, err = s.stors.MultipartStor.UpdateMultipartProgress(mp, updated.Uploaded,
		model.EncodeJSONMap(updated.StorageData))
	if err != nil {
		return nil, err
	}

	return mp.ToMap(), nil
}

// UploadComplete assembles the upload and promotes the Multipart row
// into a File row with the same id.
func (s *Service) UploadComplete(ctx context.Context, p Principal, uploadID, expectedHash string) (map[string]interface{}, error) {
	mp, err := s.stors.MultipartStor.GetMultipartByUUID(uploadID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizeItem(ctx, p, "upload_complete", mp.UUID, model.ItemTypeMultipart); err != nil {
		return nil, err
	}

	st, err := storage.GetStorage(mp.Storage)
	if err != nil {
		return nil, err
	}

	completed, err := st.MultipartComplete(ctx, multipartDataFromModel(mp), expectedHash)
	if err != nil {
		return nil, err
	}

	file, err := s.stors.MultipartStor.PromoteMultipart(mp, completed.Hash,
		model.EncodeJSONMap(completed.StorageData))
	if err != nil {
		return nil, err
	}

	return s.dictizeFile(ctx, file), nil
}

package stor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-uuid"
	"github.com/materials-commons/depot/pkg/depotdb/model"
	"github.com/materials-commons/depot/pkg/errs"
	"gorm.io/gorm"
)

type GormFileStor struct {
	db *gorm.DB
}

func NewGormFileStor(db *gorm.DB) *GormFileStor {
	return &GormFileStor{db: db}
}

func (s *GormFileStor) CreateFile(file *model.File) (*model.File, error) {
	var err error

	if file.UUID == "" {
		if file.UUID, err = uuid.GenerateUUID(); err != nil {
			return nil, err
		}
	}

	if file.ContentType == "" {
		file.ContentType = "application/octet-stream"
	}

	if file.StorageData == "" {
		file.StorageData = "{}"
	}

	if file.PluginData == "" {
		file.PluginData = "{}"
	}

	file.AccessedAt = time.Now()

	err = WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Create(file).Error
	})

	return file, err
}

func (s *GormFileStor) GetFileByUUID(fileUUID string) (*model.File, error) {
	var file model.File
	if err := s.db.Where("uuid = ?", fileUUID).First(&file).Error; err != nil {
		return nil, err
	}

	return &file, nil
}

func (s *GormFileStor) GetFileByStorageAndLocation(storage, location string) (*model.File, error) {
	var file model.File
	err := s.db.Where("storage = ?", storage).
		Where("location = ?", location).
		First(&file).Error
	if err != nil {
		return nil, err
	}

	return &file, nil
}

func (s *GormFileStor) RenameFile(file *model.File, name string) (*model.File, error) {
	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(file).Update("name", name).Error
	})
	if err != nil {
		return nil, err
	}

	file.Name = name

	return file, nil
}

// TouchFile refreshes the access and modification times without
// changing anything else on the record.
func (s *GormFileStor) TouchFile(file *model.File) (*model.File, error) {
	now := time.Now()
	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(file).Updates(map[string]interface{}{
			"accessed_at": now,
			"updated_at":  now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	file.AccessedAt = now
	file.UpdatedAt = now

	return file, nil
}

func (s *GormFileStor) UpdateFileMetadata(file *model.File, size int64, hash, contentType string) (*model.File, error) {
	updates := map[string]interface{}{
		"size": size,
		"hash": hash,
	}

	if contentType != "" {
		updates["content_type"] = contentType
	}

	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(file).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	file.Size = size
	file.Hash = hash
	if contentType != "" {
		file.ContentType = contentType
	}

	return file, nil
}

// UpdateFileStorage repoints the record at a new back-end home after the
// bytes were moved there.
func (s *GormFileStor) UpdateFileStorage(file *model.File, storage, location, storageData string) (*model.File, error) {
	if storageData == "" {
		storageData = "{}"
	}

	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(file).Updates(map[string]interface{}{
			"storage":      storage,
			"location":     location,
			"storage_data": storageData,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	file.Storage = storage
	file.Location = location
	file.StorageData = storageData

	return file, nil
}

// DeleteFileAndOwner removes the catalog row and its owner row in a
// single transaction.
func (s *GormFileStor) DeleteFileAndOwner(file *model.File) error {
	return WithTxRetry(s.db, func(tx *gorm.DB) error {
		err := tx.Where("item_id = ?", file.UUID).
			Where("item_type = ?", model.ItemTypeFile).
			Delete(&model.Owner{}).Error
		if err != nil {
			return err
		}

		return tx.Delete(file).Error
	})
}

// FileSearchParams is the filter set file_search_by_user accepts.
// StorageData/PluginData map JSON paths under the corresponding column
// to required values, eg {"bucket": "b1"} or {"meta.kind": "avatar"}.
type FileSearchParams struct {
	Storage     string
	OwnerType   string
	OwnerID     string
	StorageData map[string]string
	PluginData  map[string]string
	SortBy      string
	SortDesc    bool
	Offset      int
	Limit       int
}

const defaultSearchLimit = 100

var sortableColumns = map[string]bool{
	"id":           true,
	"uuid":         true,
	"name":         true,
	"storage":      true,
	"location":     true,
	"content_type": true,
	"size":         true,
	"hash":         true,
	"created_at":   true,
	"updated_at":   true,
	"accessed_at":  true,
}

var jsonPathRE = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

func (s *GormFileStor) SearchFiles(params FileSearchParams) ([]model.File, error) {
	q := s.db.Model(&model.File{})

	if params.Storage != "" {
		q = q.Where("storage = ?", params.Storage)
	}

	if params.OwnerType != "" || params.OwnerID != "" {
		owned := s.db.Model(&model.Owner{}).
			Select("item_id").
			Where("item_type = ?", model.ItemTypeFile)
		if params.OwnerType != "" {
			owned = owned.Where("owner_type = ?", params.OwnerType)
		}
		if params.OwnerID != "" {
			owned = owned.Where("owner_id = ?", params.OwnerID)
		}
		q = q.Where("uuid IN (?)", owned)
	}

	var err error
	if q, err = applyJSONFilters(q, "storage_data", params.StorageData); err != nil {
		return nil, err
	}
	if q, err = applyJSONFilters(q, "plugin_data", params.PluginData); err != nil {
		return nil, err
	}

	if q, err = applySort(q, params.SortBy, params.SortDesc); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var files []model.File
	if err := q.Offset(params.Offset).Limit(limit).Find(&files).Error; err != nil {
		return nil, err
	}

	return files, nil
}

func applyJSONFilters(q *gorm.DB, column string, filters map[string]string) (*gorm.DB, error) {
	for path, value := range filters {
		if !jsonPathRE.MatchString(path) {
			return nil, errs.NewValidationError(column, fmt.Sprintf("invalid JSON path %q", path))
		}
		q = q.Where(fmt.Sprintf("json_extract(%s, '$.%s') = ?", column, path), value)
	}

	return q, nil
}

func applySort(q *gorm.DB, sortBy string, desc bool) (*gorm.DB, error) {
	if sortBy == "" {
		return q.Order("id"), nil
	}

	var expr string

	switch {
	case sortableColumns[sortBy]:
		expr = sortBy
	case strings.HasPrefix(sortBy, "storage_data."):
		path := strings.TrimPrefix(sortBy, "storage_data.")
		if !jsonPathRE.MatchString(path) {
			return nil, errs.NewValidationError("sort", fmt.Sprintf("invalid sort path %q", sortBy))
		}
		expr = fmt.Sprintf("json_extract(storage_data, '$.%s')", path)
	default:
		return nil, errs.NewValidationError("sort", fmt.Sprintf("unknown sort column %q", sortBy))
	}

	if desc {
		expr += " DESC"
	}

	return q.Order(expr), nil
}

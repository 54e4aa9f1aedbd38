package stor

import (
	"time"

	"github.com/hashicorp/go-uuid"
	"github.com/materials-commons/depot/pkg/depotdb/model"
	"gorm.io/gorm"
)

type GormMultipartStor struct {
	db *gorm.DB
}

func NewGormMultipartStor(db *gorm.DB) *GormMultipartStor {
	return &GormMultipartStor{db: db}
}

func (s *GormMultipartStor) CreateMultipart(mp *model.Multipart) (*model.Multipart, error) {
	var err error

	if mp.UUID == "" {
		if mp.UUID, err = uuid.GenerateUUID(); err != nil {
			return nil, err
		}
	}

	if mp.ContentType == "" {
		mp.ContentType = "application/octet-stream"
	}

	if mp.StorageData == "" {
		mp.StorageData = "{}"
	}

	if mp.PluginData == "" {
		mp.PluginData = "{}"
	}

	err = WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Create(mp).Error
	})

	return mp, err
}

func (s *GormMultipartStor) GetMultipartByUUID(mpUUID string) (*model.Multipart, error) {
	var mp model.Multipart
	if err := s.db.Where("uuid = ?", mpUUID).First(&mp).Error; err != nil {
		return nil, err
	}

	return &mp, nil
}

func (s *GormMultipartStor) UpdateMultipartProgress(mp *model.Multipart, uploaded int64, storageData string) (*model.Multipart, error) {
	updates := map[string]interface{}{
		"uploaded": uploaded,
	}

	if storageData != "" {
		updates["storage_data"] = storageData
	}

	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		return tx.Model(mp).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	mp.Uploaded = uploaded
	if storageData != "" {
		mp.StorageData = storageData
	}

	return mp, nil
}

// PromoteMultipart turns a completed multipart into a File row. The
// File keeps the multipart's UUID; the multipart row is deleted and the
// owner row (if any) is repointed at the file, all in one transaction.
func (s *GormMultipartStor) PromoteMultipart(mp *model.Multipart, hash, storageData string) (*model.File, error) {
	file := mp.ToFile()
	file.Hash = hash
	file.AccessedAt = time.Now()
	if storageData != "" {
		file.StorageData = storageData
	}

	err := WithTxRetry(s.db, func(tx *gorm.DB) error {
		if err := tx.Delete(mp).Error; err != nil {
			return err
		}

		if err := tx.Create(file).Error; err != nil {
			return err
		}

		return tx.Model(&model.Owner{}).
			Where("item_id = ?", mp.UUID).
			Where("item_type = ?", model.ItemTypeMultipart).
			Update("item_type", model.ItemTypeFile).Error
	})
	if err != nil {
		return nil, err
	}

	return file, nil
}

func (s *GormMultipartStor) DeleteMultipartAndOwner(mp *model.Multipart) error {
	return WithTxRetry(s.db, func(tx *gorm.DB) error {
		err := tx.Where("item_id = ?", mp.UUID).
			Where("item_type = ?", model.ItemTypeMultipart).
			Delete(&model.Owner{}).Error
		if err != nil {
			return err
		}

		return tx.Delete(mp).Error
	})
}

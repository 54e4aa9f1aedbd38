package stor

import (
	"github.com/materials-commons/depot/pkg/depotdb/model"
	"gorm.io/gorm"
)

type FileStor interface {
	CreateFile(file *model.File) (*model.File, error)
	GetFileByUUID(fileUUID string) (*model.File, error)
	GetFileByStorageAndLocation(storage, location string) (*model.File, error)
	RenameFile(file *model.File, name string) (*model.File, error)
	TouchFile(file *model.File) (*model.File, error)
	UpdateFileMetadata(file *model.File, size int64, hash, contentType string) (*model.File, error)
	UpdateFileStorage(file *model.File, storage, location, storageData string) (*model.File, error)
	DeleteFileAndOwner(file *model.File) error
	SearchFiles(params FileSearchParams) ([]model.File, error)
}

type MultipartStor interface {
	CreateMultipart(mp *model.Multipart) (*model.Multipart, error)
	GetMultipartByUUID(mpUUID string) (*model.Multipart, error)
	UpdateMultipartProgress(mp *model.Multipart, uploaded int64, storageData string) (*model.Multipart, error)
	PromoteMultipart(mp *model.Multipart, hash, storageData string) (*model.File, error)
	DeleteMultipartAndOwner(mp *model.Multipart) error
}

type OwnerStor interface {
	GetOwner(itemID, itemType string) (*model.Owner, error)
	AssignOwner(itemID, itemType, ownerType, ownerID, actor string) (*model.Owner, error)
	TransferOwner(owner *model.Owner, ownerType, ownerID, actor string) (*model.Owner, error)
	SetPinned(owner *model.Owner, pinned bool) (*model.Owner, error)
	GetTransferHistory(itemID, itemType string) ([]model.TransferHistory, error)
}

type Stors struct {
	FileStor      FileStor
	MultipartStor MultipartStor
	OwnerStor     OwnerStor
}

func NewGormStors(db *gorm.DB) *Stors {
	return &Stors{
		FileStor:      NewGormFileStor(db),
		MultipartStor: NewGormMultipartStor(db),
		OwnerStor:     NewGormOwnerStor(db),
	}
}

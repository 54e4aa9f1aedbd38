package model

import (
	"time"
)

// Multipart is an in-progress resumable upload. It mirrors File plus the
// bookkeeping needed to resume: the declared total Size and the
// cumulative Uploaded byte count. On completion the row is promoted into
// a File (keeping its UUID) and deleted.
type Multipart struct {
	ID          int       `json:"-"`
	UUID        string    `json:"id" gorm:"uniqueIndex"`
	Name        string    `json:"name"`
	Storage     string    `json:"storage" gorm:"uniqueIndex:idx_multiparts_storage_location"`
	Location    string    `json:"location" gorm:"uniqueIndex:idx_multiparts_storage_location"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Uploaded    int64     `json:"uploaded"`
	Hash        string    `json:"hash"`
	StorageData string    `json:"-" gorm:"type:json"`
	PluginData  string    `json:"-" gorm:"type:json"`
	CreatedAt   time.Time `json:"ctime"`
	UpdatedAt   time.Time `json:"mtime"`
}

func (Multipart) TableName() string {
	return "depot_multiparts"
}

func (m Multipart) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":           m.UUID,
		"name":         m.Name,
		"storage":      m.Storage,
		"location":     m.Location,
		"content_type": m.ContentType,
		"size":         m.Size,
		"uploaded":     m.Uploaded,
		"hash":         m.Hash,
		"storage_data": DecodeJSONMap(m.StorageData),
		"plugin_data":  DecodeJSONMap(m.PluginData),
		"ctime":        m.CreatedAt,
		"mtime":        m.UpdatedAt,
	}
}

// ToFile builds the File row the multipart promotes into. The UUID
// carries over so the id the host saw during upload keeps resolving.
func (m Multipart) ToFile() *File {
	return &File{
		UUID:        m.UUID,
		Name:        m.Name,
		Storage:     m.Storage,
		Location:    m.Location,
		ContentType: m.ContentType,
		Size:        m.Size,
		Hash:        m.Hash,
		StorageData: m.StorageData,
		PluginData:  m.PluginData,
	}
}

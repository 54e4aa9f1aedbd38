package model

import (
	"encoding/json"
	"time"
)

// File is a catalog record for bytes that live in one of the registered
// storages. (Storage, Location) is unique across the table; UUID is the
// id exposed outside the catalog.
type File struct {
	ID          int       `json:"-"`
	UUID        string    `json:"id" gorm:"uniqueIndex"`
	Name        string    `json:"name"`
	Storage     string    `json:"storage" gorm:"uniqueIndex:idx_files_storage_location"`
	Location    string    `json:"location" gorm:"uniqueIndex:idx_files_storage_location"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	StorageData string    `json:"-" gorm:"type:json"`
	PluginData  string    `json:"-" gorm:"type:json"`
	CreatedAt   time.Time `json:"ctime"`
	UpdatedAt   time.Time `json:"mtime"`
	AccessedAt  time.Time `json:"atime"`
}

func (File) TableName() string {
	return "depot_files"
}

// ToMap dictizes the record for the action surface. JSON columns come
// back as deep-copied maps so callers can't alias catalog state.
func (f File) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":           f.UUID,
		"name":         f.Name,
		"storage":      f.Storage,
		"location":     f.Location,
		"content_type": f.ContentType,
		"size":         f.Size,
		"hash":         f.Hash,
		"storage_data": DecodeJSONMap(f.StorageData),
		"plugin_data":  DecodeJSONMap(f.PluginData),
		"ctime":        f.CreatedAt,
		"mtime":        f.UpdatedAt,
		"atime":        f.AccessedAt,
	}
}

// DecodeJSONMap turns a JSON column's text into a map. Empty or broken
// text decodes to an empty map rather than an error; the column default
// is "{}" and the catalog never stores anything but objects in it.
func DecodeJSONMap(s string) map[string]interface{} {
	m := map[string]interface{}{}
	if s == "" {
		return m
	}

	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]interface{}{}
	}

	return m
}

// EncodeJSONMap is the inverse of DecodeJSONMap. A nil map encodes to
// "{}" so JSON columns never hold SQL NULL.
func EncodeJSONMap(m map[string]interface{}) string {
	if len(m) == 0 {
		return "{}"
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}

	return string(b)
}

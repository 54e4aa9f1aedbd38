// Package dbstore stores object bytes in a relational table, one row per
// location. It is meant for small artifacts that should live next to the
// catalog rather than on a separate back-end.
package dbstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	AdapterName = "files:db"

	optDSN    = "dsn"
	optDriver = "driver"
)

// Object is one stored blob.
type Object struct {
	Location    string `gorm:"primaryKey"`
	Content     []byte
	ContentType string
	Size        int64
	Hash        string
	CreatedAt   time.Time
}

func (Object) TableName() string {
	return "depot_objects"
}

type Factory struct{}

func (Factory) Name() string {
	return AdapterName
}

func (Factory) RequiredOptions() []string {
	return []string{optDSN}
}

func (Factory) SettingsKeys() []string {
	return []string{optDSN, optDriver}
}

func (Factory) PrepareSettings(s *storage.Settings) {
	if s.Options[optDriver] == "" {
		s.Options[optDriver] = "mysql"
	}
}

func (Factory) New(s storage.Settings) (storage.Uploader, storage.Reader, storage.Manager, error) {
	var dialector gorm.Dialector
	switch s.OptionWithDefault(optDriver, "mysql") {
	case "sqlite":
		dialector = sqlite.Open(s.Option(optDSN))
	default:
		dialector = mysql.Open(s.Option(optDSN))
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, nil, nil, err
	}

	return NewWithDB(s, db)
}

// NewWithDB builds the trio on an existing gorm connection. The catalog's
// connection can be shared this way.
func NewWithDB(s storage.Settings, db *gorm.DB) (storage.Uploader, storage.Reader, storage.Manager, error) {
	if err := db.AutoMigrate(&Object{}); err != nil {
		return nil, nil, nil, err
	}

	st := &store{name: s.Name, db: db}

	return &uploader{st}, &reader{st}, &manager{st}, nil
}

func Register() {
	storage.RegisterAdapter(Factory{})
}

type store struct {
	name string
	db   *gorm.DB
}

func (s *store) get(location string) (*Object, error) {
	var obj Object
	if err := s.db.Where("location = ?", location).First(&obj).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &errs.MissingFileError{Storage: s.name, Location: location}
		}
		return nil, err
	}

	return &obj, nil
}

type uploader struct {
	*store
}

func (u *uploader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Create, capability.Copy)
}

func (u *uploader) Upload(_ context.Context, location string, up *upload.Upload, _ storage.Extras) (*storage.FileData, error) {
	hr, err := up.HashingReader()
	if err != nil {
		return nil, err
	}

	content, err := io.ReadAll(hr)
	if err != nil {
		return nil, &errs.ContentError{Reason: err.Error()}
	}

	obj := Object{
		Location:    location,
		Content:     content,
		ContentType: up.ContentType(),
		Size:        hr.BytesRead(),
		Hash:        hr.Hash(),
	}

	if err := u.db.Save(&obj).Error; err != nil {
		return nil, err
	}

	return &storage.FileData{
		Location:    location,
		Size:        obj.Size,
		ContentType: obj.ContentType,
		Hash:        obj.Hash,
	}, nil
}

func (u *uploader) MultipartInitialize(context.Context, string, *storage.MultipartData, storage.Extras) (*storage.MultipartData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: storage.OpMultipartInitialize, Adapter: AdapterName}
}

func (u *uploader) MultipartUpdate(context.Context, *storage.MultipartData, int64, *upload.Upload) (*storage.MultipartData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: storage.OpMultipartUpdate, Adapter: AdapterName}
}

func (u *uploader) MultipartComplete(context.Context, *storage.MultipartData) (*storage.FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: storage.OpMultipartComplete, Adapter: AdapterName}
}

func (u *uploader) Copy(_ context.Context, data *storage.FileData, dstLocation string) (*storage.FileData, error) {
	obj, err := u.get(data.Location)
	if err != nil {
		return nil, err
	}

	copied := Object{
		Location:    dstLocation,
		Content:     append([]byte(nil), obj.Content...),
		ContentType: obj.ContentType,
		Size:        obj.Size,
		Hash:        obj.Hash,
	}

	if err := u.db.Save(&copied).Error; err != nil {
		return nil, err
	}

	return &storage.FileData{
		Location:    dstLocation,
		Size:        copied.Size,
		ContentType: copied.ContentType,
		Hash:        copied.Hash,
	}, nil
}

func (u *uploader) Move(context.Context, *storage.FileData, string) (*storage.FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: storage.OpMove, Adapter: AdapterName}
}

type reader struct {
	*store
}

func (r *reader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Stream, capability.Range)
}

func (r *reader) Stream(_ context.Context, data *storage.FileData, _ storage.Extras) (io.ReadCloser, error) {
	obj, err := r.get(data.Location)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(obj.Content)), nil
}

func (r *reader) Range(_ context.Context, data *storage.FileData, start, end int64) (io.ReadCloser, error) {
	obj, err := r.get(data.Location)
	if err != nil {
		return nil, err
	}

	size := int64(len(obj.Content))
	if start > size {
		start = size
	}
	if end < 0 || end >= size {
		end = size - 1
	}

	if start > end {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	return io.NopCloser(bytes.NewReader(obj.Content[start : end+1])), nil
}

func (r *reader) DownloadLink(context.Context, *storage.FileData) (string, error) {
	return "", &errs.UnsupportedOperationError{Operation: storage.OpDownloadLink, Adapter: AdapterName}
}

func (r *reader) PermanentLink(context.Context, *storage.FileData) (string, error) {
	return "", &errs.UnsupportedOperationError{Operation: storage.OpPermanentLink, Adapter: AdapterName}
}

type manager struct {
	*store
}

func (m *manager) Capabilities() capability.Cluster {
	return capability.Combine(capability.Remove, capability.Exists, capability.Scan, capability.Analyze)
}

func (m *manager) Remove(_ context.Context, data *storage.FileData) (bool, error) {
	result := m.db.Where("location = ?", data.Location).Delete(&Object{})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (m *manager) Exists(_ context.Context, data *storage.FileData) (bool, error) {
	var count int64
	if err := m.db.Model(&Object{}).Where("location = ?", data.Location).Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (m *manager) Scan(_ context.Context, fn func(location string) error) error {
	// Page through locations so large tables stay in bounded memory.
	var lastLocation string
	for {
		var locations []string
		err := m.db.Model(&Object{}).
			Where("location > ?", lastLocation).
			Order("location").
			Limit(100).
			Pluck("location", &locations).Error
		if err != nil {
			return err
		}

		if len(locations) == 0 {
			return nil
		}

		for _, location := range locations {
			if err := fn(location); err != nil {
				return err
			}
		}

		lastLocation = locations[len(locations)-1]
	}
}

func (m *manager) Analyze(_ context.Context, location string) (*storage.FileData, error) {
	obj, err := m.get(location)
	if err != nil {
		return nil, err
	}

	hash := obj.Hash
	if hash == "" {
		sum := md5.Sum(obj.Content)
		hash = hex.EncodeToString(sum[:])
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = upload.DefaultContentType
	}

	return &storage.FileData{
		Location:    location,
		Size:        int64(len(obj.Content)),
		ContentType: contentType,
		Hash:        hash,
	}, nil
}

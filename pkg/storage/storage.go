package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/clog"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/lock"
	"github.com/materials-commons/depot/pkg/upload"
)

// Storage is the façade over one configured back-end. It composes the
// three service roles, guards every operation with a capability check,
// applies the size cap and naming strategy on uploads, serializes
// multipart updates per location, and synthesizes cross-storage copy,
// move and range when the primitives allow it.
type Storage struct {
	settings Settings
	uploader Uploader
	reader   Reader
	manager  Manager
	locker   *lock.KeyLocker
}

// New builds a Storage. Nil services default to their Unsupported
// counterparts.
func New(settings Settings, uploader Uploader, reader Reader, manager Manager) *Storage {
	if uploader == nil {
		uploader = UnsupportedUploader{Adapter: settings.Adapter}
	}
	if reader == nil {
		reader = UnsupportedReader{Adapter: settings.Adapter}
	}
	if manager == nil {
		manager = UnsupportedManager{Adapter: settings.Adapter}
	}

	return &Storage{
		settings: settings,
		uploader: uploader,
		reader:   reader,
		manager:  manager,
		locker:   lock.NewKeyLocker(),
	}
}

func (s *Storage) Name() string {
	return s.settings.Name
}

func (s *Storage) AdapterName() string {
	return s.settings.Adapter
}

func (s *Storage) Settings() Settings {
	return s.settings
}

// Capabilities is the union of the three services' clusters.
func (s *Storage) Capabilities() capability.Cluster {
	return capability.Combine(s.uploader.Capabilities(), s.reader.Capabilities(), s.manager.Capabilities())
}

func (s *Storage) Supports(c capability.Cluster) bool {
	return capability.Can(s.Capabilities(), c)
}

func (s *Storage) ensure(op string, c capability.Cluster) error {
	if !s.Supports(c) {
		return &errs.UnsupportedOperationError{Operation: op, Adapter: s.settings.Adapter}
	}

	return nil
}

// Upload writes up into the back-end. The location comes from the
// configured naming strategy unless extras carries an explicit
// "location"; colliding locations fail unless override_existing is set.
func (s *Storage) Upload(ctx context.Context, up *upload.Upload, extras Extras) (*FileData, error) {
	if err := s.ensure(OpUpload, capability.Create); err != nil {
		return nil, err
	}

	if s.settings.MaxSize > 0 && up.Size() > s.settings.MaxSize {
		return nil, &errs.LargeUploadError{Size: up.Size(), MaxSize: s.settings.MaxSize}
	}

	if !s.settings.AllowsContentType(up.ContentType()) {
		return nil, &errs.ContentError{Reason: fmt.Sprintf("content type %s is not allowed on storage %s", up.ContentType(), s.settings.Name)}
	}

	location := extras.GetString("location")
	if location == "" {
		made, err := MakeLocation(s.settings.NameStrategy, up.Filename())
		if err != nil {
			return nil, err
		}
		location = made
	} else if !s.settings.OverrideExisting && s.Supports(capability.Exists) {
		exists, err := s.manager.Exists(ctx, &FileData{Location: location})
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, &errs.ContentError{Reason: fmt.Sprintf("location %s already exists on storage %s", location, s.settings.Name)}
		}
	}

	data, err := s.uploader.Upload(ctx, location, up, extras.Copy())
	if err != nil {
		return nil, err
	}

	clog.UsingStorage(s.settings.Name).
		WithField("location", data.Location).
		WithField("size", data.Size).
		Debug("Uploaded file")

	return data, nil
}

// Stream yields the object's bytes in chunks of the configured size.
func (s *Storage) Stream(ctx context.Context, data *FileData, extras Extras) (*ChunkIterator, error) {
	if err := s.ensure(OpStream, capability.Stream); err != nil {
		return nil, err
	}

	rc, err := s.reader.Stream(ctx, data.Copy(), extras.Copy())
	if err != nil {
		return nil, err
	}

	return NewChunkIterator(rc, s.settings.EffectiveChunkSize()), nil
}

// Content reads the whole object into memory.
func (s *Storage) Content(ctx context.Context, data *FileData) ([]byte, error) {
	it, err := s.Stream(ctx, data, nil)
	if err != nil {
		return nil, err
	}

	return it.ReadAll()
}

// Range yields bytes start through end inclusive; end < 0 means to the
// end of the object.
func (s *Storage) Range(ctx context.Context, data *FileData, start, end int64) (*ChunkIterator, error) {
	if err := s.ensure(OpRange, capability.Range); err != nil {
		return nil, err
	}

	if err := checkRangeWindow(start, end); err != nil {
		return nil, err
	}

	rc, err := s.reader.Range(ctx, data.Copy(), start, end)
	if err != nil {
		return nil, err
	}

	return NewChunkIterator(rc, s.settings.EffectiveChunkSize()), nil
}

func (s *Storage) Remove(ctx context.Context, data *FileData) (bool, error) {
	if err := s.ensure(OpRemove, capability.Remove); err != nil {
		return false, err
	}

	return s.manager.Remove(ctx, data.Copy())
}

func (s *Storage) Exists(ctx context.Context, data *FileData) (bool, error) {
	if err := s.ensure(OpExists, capability.Exists); err != nil {
		return false, err
	}

	return s.manager.Exists(ctx, data.Copy())
}

func (s *Storage) Scan(ctx context.Context, fn func(location string) error) error {
	if err := s.ensure(OpScan, capability.Scan); err != nil {
		return err
	}

	return s.manager.Scan(ctx, fn)
}

func (s *Storage) Analyze(ctx context.Context, location string) (*FileData, error) {
	if err := s.ensure(OpAnalyze, capability.Analyze); err != nil {
		return nil, err
	}

	return s.manager.Analyze(ctx, location)
}

func (s *Storage) DownloadLink(ctx context.Context, data *FileData) (string, error) {
	if err := s.ensure(OpDownloadLink, capability.Download); err != nil {
		return "", err
	}

	return s.reader.DownloadLink(ctx, data.Copy())
}

func (s *Storage) PermanentLink(ctx context.Context, data *FileData) (string, error) {
	if err := s.ensure(OpPermanentLink, capability.PublicLink); err != nil {
		return "", err
	}

	return s.reader.PermanentLink(ctx, data.Copy())
}

// Copy duplicates an object natively within this back-end. An empty
// dstLocation gets one from the naming strategy.
func (s *Storage) Copy(ctx context.Context, data *FileData, dstLocation string) (*FileData, error) {
	if err := s.ensure(OpCopy, capability.Copy); err != nil {
		return nil, err
	}

	dstLocation, err := s.locationOrMake(dstLocation)
	if err != nil {
		return nil, err
	}

	return s.uploader.Copy(ctx, data.Copy(), dstLocation)
}

// Move relocates an object natively within this back-end.
func (s *Storage) Move(ctx context.Context, data *FileData, dstLocation string) (*FileData, error) {
	if err := s.ensure(OpMove, capability.Move); err != nil {
		return nil, err
	}

	dstLocation, err := s.locationOrMake(dstLocation)
	if err != nil {
		return nil, err
	}

	return s.uploader.Move(ctx, data.Copy(), dstLocation)
}

func (s *Storage) locationOrMake(location string) (string, error) {
	if location != "" {
		return location, nil
	}

	return MakeLocation(s.settings.NameStrategy, "")
}

// SupportsSynthetic reports whether the named capability can be emulated
// against dst by composing primitives the two storages support natively.
func (s *Storage) SupportsSynthetic(c capability.Capability, dst *Storage) bool {
	switch c {
	case capability.Copy:
		return s.Supports(capability.Stream) && dst != nil && dst.Supports(capability.Create)
	case capability.Move:
		return s.SupportsSynthetic(capability.Copy, dst) && s.Supports(capability.Remove)
	case capability.Range:
		return s.Supports(capability.Stream)
	default:
		return false
	}
}

// CopySynthetic streams the object out of this storage and uploads it
// into dst, returning the FileData dst reports. The source is untouched.
func (s *Storage) CopySynthetic(ctx context.Context, data *FileData, dst *Storage, extras Extras) (*FileData, error) {
	if !s.SupportsSynthetic(capability.Copy, dst) {
		return nil, &errs.UnsupportedOperationError{Operation: OpCopy, Adapter: s.settings.Adapter}
	}

	rc, err := s.reader.Stream(ctx, data.Copy(), nil)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	up := upload.FromReader(rc, data.Size, upload.WithContentType(data.ContentType))

	return dst.Upload(ctx, up, extras)
}

// MoveSynthetic is CopySynthetic followed by removing the source object.
func (s *Storage) MoveSynthetic(ctx context.Context, data *FileData, dst *Storage, extras Extras) (*FileData, error) {
	if !s.SupportsSynthetic(capability.Move, dst) {
		return nil, &errs.UnsupportedOperationError{Operation: OpMove, Adapter: s.settings.Adapter}
	}

	copied, err := s.CopySynthetic(ctx, data, dst, extras)
	if err != nil {
		return nil, err
	}

	if _, err := s.Remove(ctx, data); err != nil {
		clog.UsingStorage(s.settings.Name).
			WithField("location", data.Location).
			Errorf("Failed removing source after synthetic move: %s", err)
		return nil, err
	}

	return copied, nil
}

// RangeSynthetic streams the whole object and slices the requested window
// on the reader side.
func (s *Storage) RangeSynthetic(ctx context.Context, data *FileData, start, end int64) (*ChunkIterator, error) {
	if !s.SupportsSynthetic(capability.Range, nil) && !s.Supports(capability.Stream) {
		return nil, &errs.UnsupportedOperationError{Operation: OpRange, Adapter: s.settings.Adapter}
	}

	if err := checkRangeWindow(start, end); err != nil {
		return nil, err
	}

	rc, err := s.reader.Stream(ctx, data.Copy(), nil)
	if err != nil {
		return nil, err
	}

	if _, err := io.CopyN(io.Discard, rc, start); err != nil {
		_ = rc.Close()
		if err == io.EOF {
			return nil, &errs.ContentError{Reason: fmt.Sprintf("range start %d is past the end of the content", start)}
		}
		return nil, err
	}

	var window io.Reader = rc
	if end >= 0 {
		window = io.LimitReader(rc, end-start+1)
	}

	return NewChunkIterator(readCloser{Reader: window, Closer: rc}, s.settings.EffectiveChunkSize()), nil
}

func checkRangeWindow(start, end int64) error {
	if start < 0 || (end >= 0 && end < start) {
		return errs.NewValidationError("range", fmt.Sprintf("invalid range window [%d, %d]", start, end))
	}

	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// Package memstore is an in-memory storage adapter. It supports the full
// operation set including multipart uploads, which makes it the reference
// adapter for tests of the façade, the catalog and the action layer.
package memstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
)

const AdapterName = "files:memory"

type Factory struct{}

func (Factory) Name() string {
	return AdapterName
}

func (Factory) RequiredOptions() []string {
	return nil
}

func (Factory) SettingsKeys() []string {
	return nil
}

func (Factory) PrepareSettings(*storage.Settings) {
}

func (Factory) New(s storage.Settings) (storage.Uploader, storage.Reader, storage.Manager, error) {
	store := &store{
		name:       s.Name,
		objects:    map[string]object{},
		multiparts: map[string][]byte{},
	}

	return &uploader{store}, &reader{store}, &manager{store}, nil
}

// Register adds the adapter to the process-wide registry.
func Register() {
	storage.RegisterAdapter(Factory{})
}

type object struct {
	content     []byte
	contentType string
	hash        string
}

type store struct {
	mu         sync.RWMutex
	name       string
	objects    map[string]object
	multiparts map[string][]byte
}

func hashOf(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

type uploader struct {
	*store
}

func (u *uploader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Create, capability.Copy, capability.Move, capability.MultipartUpload)
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

	u.mu.Lock()
	u.objects[location] = object{content: content, contentType: up.ContentType(), hash: hr.Hash()}
	u.mu.Unlock()

	return &storage.FileData{
		Location:    location,
		Size:        hr.BytesRead(),
		ContentType: up.ContentType(),
		Hash:        hr.Hash(),
	}, nil
}

func (u *uploader) MultipartInitialize(_ context.Context, location string, data *storage.MultipartData, _ storage.Extras) (*storage.MultipartData, error) {
	u.mu.Lock()
	u.multiparts[location] = make([]byte, data.Size)
	u.mu.Unlock()

	data.Uploaded = 0

	return data, nil
}

func (u *uploader) MultipartUpdate(_ context.Context, data *storage.MultipartData, position int64, chunk *upload.Upload) (*storage.MultipartData, error) {
	content, err := io.ReadAll(chunk.Stream())
	if err != nil {
		return nil, &errs.ContentError{Reason: err.Error()}
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	buf, ok := u.multiparts[data.Location]
	if !ok {
		return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
	}

	copy(buf[position:], content)
	data.Uploaded = position + int64(len(content))

	return data, nil
}

func (u *uploader) MultipartComplete(_ context.Context, data *storage.MultipartData) (*storage.FileData, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	buf, ok := u.multiparts[data.Location]
	if !ok {
		return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
	}

	// A refused complete must leave the buffer in place so the upload
	// stays resumable; verify the expected hash before committing.
	hash := hashOf(buf)
	if data.Hash != "" && hash != data.Hash {
		return nil, &errs.ContentError{Reason: "content hash does not match the expected hash"}
	}

	delete(u.multiparts, data.Location)
	u.objects[data.Location] = object{content: buf, contentType: data.ContentType, hash: hash}

	return &storage.FileData{
		Location:    data.Location,
		Size:        int64(len(buf)),
		ContentType: data.ContentType,
		Hash:        hash,
	}, nil
}

func (u *uploader) Copy(_ context.Context, data *storage.FileData, dstLocation string) (*storage.FileData, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	obj, ok := u.objects[data.Location]
	if !ok {
		return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
	}

	copied := object{content: append([]byte(nil), obj.content...), contentType: obj.contentType, hash: obj.hash}
	u.objects[dstLocation] = copied

	return &storage.FileData{
		Location:    dstLocation,
		Size:        int64(len(copied.content)),
		ContentType: copied.contentType,
		Hash:        copied.hash,
	}, nil
}

func (u *uploader) Move(ctx context.Context, data *storage.FileData, dstLocation string) (*storage.FileData, error) {
	moved, err := u.Copy(ctx, data, dstLocation)
	if err != nil {
		return nil, err
	}

	u.mu.Lock()
	delete(u.objects, data.Location)
	u.mu.Unlock()

	return moved, nil
}

type reader struct {
	*store
}

func (r *reader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Stream, capability.Range)
}

func (r *reader) Stream(_ context.Context, data *storage.FileData, _ storage.Extras) (io.ReadCloser, error) {
	r.mu.RLock()
	obj, ok := r.objects[data.Location]
	r.mu.RUnlock()

	if !ok {
		return nil, &errs.MissingFileError{Storage: r.name, Location: data.Location}
	}

	return io.NopCloser(bytes.NewReader(obj.content)), nil
}

func (r *reader) Range(_ context.Context, data *storage.FileData, start, end int64) (io.ReadCloser, error) {
	r.mu.RLock()
	obj, ok := r.objects[data.Location]
	r.mu.RUnlock()

	if !ok {
		return nil, &errs.MissingFileError{Storage: r.name, Location: data.Location}
	}

	size := int64(len(obj.content))
	if start > size {
		start = size
	}
	if end < 0 || end >= size {
		end = size - 1
	}

	if start > end {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	return io.NopCloser(bytes.NewReader(obj.content[start : end+1])), nil
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
	m.mu.Lock()
	defer m.mu.Unlock()

	_, hadObject := m.objects[data.Location]
	_, hadMultipart := m.multiparts[data.Location]
	delete(m.objects, data.Location)
	delete(m.multiparts, data.Location)

	return hadObject || hadMultipart, nil
}

func (m *manager) Exists(_ context.Context, data *storage.FileData) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[data.Location]

	return ok, nil
}

func (m *manager) Scan(_ context.Context, fn func(location string) error) error {
	m.mu.RLock()
	locations := make([]string, 0, len(m.objects))
	for location := range m.objects {
		locations = append(locations, location)
	}
	m.mu.RUnlock()

	sort.Strings(locations)
	for _, location := range locations {
		if err := fn(location); err != nil {
			return err
		}
	}

	return nil
}

func (m *manager) Analyze(_ context.Context, location string) (*storage.FileData, error) {
	m.mu.RLock()
	obj, ok := m.objects[location]
	m.mu.RUnlock()

	if !ok {
		return nil, &errs.MissingFileError{Storage: m.name, Location: location}
	}

	contentType := obj.contentType
	if contentType == "" {
		contentType = http.DetectContentType(obj.content)
	}

	return &storage.FileData{
		Location:    location,
		Size:        int64(len(obj.content)),
		ContentType: contentType,
		Hash:        obj.hash,
	}, nil
}

// Package fsstore stores objects as files under a configured root
// directory. Locations never contain path separators, so the layout is
// flat. The public variant additionally serves permanent links below a
// configured URL prefix.
package fsstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/saracen/walker"
)

const (
	AdapterName       = "files:fs"
	PublicAdapterName = "files:public_fs"

	optPath = "path"
)

type Factory struct{}

func (Factory) Name() string {
	return AdapterName
}

func (Factory) RequiredOptions() []string {
	return []string{optPath}
}

func (Factory) SettingsKeys() []string {
	return []string{optPath}
}

func (Factory) PrepareSettings(*storage.Settings) {
}

func (Factory) New(s storage.Settings) (storage.Uploader, storage.Reader, storage.Manager, error) {
	root := s.Option(optPath)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, nil, nil, err
	}

	st := &store{name: s.Name, root: root}

	return &uploader{st}, &reader{st}, &manager{st}, nil
}

// PublicFactory is the files:public_fs adapter: the filesystem trio with
// download and permanent links synthesized from the storage's
// public_prefix.
type PublicFactory struct{}

func (PublicFactory) Name() string {
	return PublicAdapterName
}

func (PublicFactory) RequiredOptions() []string {
	return []string{optPath}
}

func (PublicFactory) SettingsKeys() []string {
	return []string{optPath}
}

func (PublicFactory) PrepareSettings(*storage.Settings) {
}

func (PublicFactory) New(s storage.Settings) (storage.Uploader, storage.Reader, storage.Manager, error) {
	u, r, m, err := Factory{}.New(s)
	if err != nil {
		return nil, nil, nil, err
	}

	return u, &publicReader{reader: r.(*reader), prefix: strings.TrimSuffix(s.PublicPrefix, "/")}, m, nil
}

func Register() {
	storage.RegisterAdapter(Factory{})
	storage.RegisterAdapter(PublicFactory{})
}

type store struct {
	name string
	root string
}

// pathFor rejects locations that would escape the root.
func (s *store) pathFor(location string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(location))
	if !strings.HasPrefix(path, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", &errs.ContentError{Reason: "location escapes the storage root"}
	}

	return path, nil
}

type uploader struct {
	*store
}

func (u *uploader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Create, capability.Copy, capability.Move, capability.MultipartUpload)
}

func (u *uploader) Upload(_ context.Context, location string, up *upload.Upload, _ storage.Extras) (*storage.FileData, error) {
	path, err := u.pathFor(location)
	if err != nil {
		return nil, err
	}

	hr, err := up.HashingReader()
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(f, hr); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}

	if err := f.Close(); err != nil {
		return nil, err
	}

	return &storage.FileData{
		Location:    location,
		Size:        hr.BytesRead(),
		ContentType: up.ContentType(),
		Hash:        hr.Hash(),
	}, nil
}

func (u *uploader) MultipartInitialize(_ context.Context, location string, data *storage.MultipartData, _ storage.Extras) (*storage.MultipartData, error) {
	path, err := u.pathFor(location)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	if err := f.Truncate(data.Size); err != nil {
		_ = f.Close()
		return nil, err
	}

	data.Uploaded = 0

	return data, f.Close()
}

func (u *uploader) MultipartUpdate(_ context.Context, data *storage.MultipartData, position int64, chunk *upload.Upload) (*storage.MultipartData, error) {
	path, err := u.pathFor(data.Location)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
		}
		return nil, err
	}
	defer f.Close()

	written, err := io.Copy(io.NewOffsetWriter(f, position), chunk.Stream())
	if err != nil {
		return nil, err
	}

	data.Uploaded = position + written

	return data, nil
}

func (u *uploader) MultipartComplete(_ context.Context, data *storage.MultipartData) (*storage.FileData, error) {
	path, err := u.pathFor(data.Location)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
		}
		return nil, err
	}
	defer f.Close()

	hasher := md5.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return nil, err
	}

	return &storage.FileData{
		Location:    data.Location,
		Size:        size,
		ContentType: data.ContentType,
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (u *uploader) Copy(_ context.Context, data *storage.FileData, dstLocation string) (*storage.FileData, error) {
	srcPath, err := u.pathFor(data.Location)
	if err != nil {
		return nil, err
	}

	dstPath, err := u.pathFor(dstLocation)
	if err != nil {
		return nil, err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
		}
		return nil, err
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		return nil, err
	}

	if err := dst.Close(); err != nil {
		return nil, err
	}

	copied := data.Copy()
	copied.Location = dstLocation

	return copied, nil
}

func (u *uploader) Move(_ context.Context, data *storage.FileData, dstLocation string) (*storage.FileData, error) {
	srcPath, err := u.pathFor(data.Location)
	if err != nil {
		return nil, err
	}

	dstPath, err := u.pathFor(dstLocation)
	if err != nil {
		return nil, err
	}

	if err := os.Rename(srcPath, dstPath); err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
		}
		return nil, err
	}

	moved := data.Copy()
	moved.Location = dstLocation

	return moved, nil
}

type reader struct {
	*store
}

func (r *reader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Stream, capability.Range)
}

func (r *reader) open(location string) (*os.File, error) {
	path, err := r.pathFor(location)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.MissingFileError{Storage: r.name, Location: location}
		}
		return nil, err
	}

	return f, nil
}

func (r *reader) Stream(_ context.Context, data *storage.FileData, _ storage.Extras) (io.ReadCloser, error) {
	return r.open(data.Location)
}

func (r *reader) Range(_ context.Context, data *storage.FileData, start, end int64) (io.ReadCloser, error) {
	f, err := r.open(data.Location)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}

	if end < 0 {
		return f, nil
	}

	return &limitedFile{Reader: io.LimitReader(f, end-start+1), f: f}, nil
}

func (r *reader) DownloadLink(context.Context, *storage.FileData) (string, error) {
	return "", &errs.UnsupportedOperationError{Operation: storage.OpDownloadLink, Adapter: AdapterName}
}

func (r *reader) PermanentLink(context.Context, *storage.FileData) (string, error) {
	return "", &errs.UnsupportedOperationError{Operation: storage.OpPermanentLink, Adapter: AdapterName}
}

type limitedFile struct {
	io.Reader
	f *os.File
}

func (l *limitedFile) Close() error {
	return l.f.Close()
}

type publicReader struct {
	*reader
	prefix string
}

func (r *publicReader) Capabilities() capability.Cluster {
	return capability.Combine(r.reader.Capabilities(), capability.Download, capability.PublicLink)
}

func (r *publicReader) DownloadLink(ctx context.Context, data *storage.FileData) (string, error) {
	return r.PermanentLink(ctx, data)
}

func (r *publicReader) PermanentLink(_ context.Context, data *storage.FileData) (string, error) {
	return r.prefix + "/" + data.Location, nil
}

type manager struct {
	*store
}

func (m *manager) Capabilities() capability.Cluster {
	return capability.Combine(capability.Remove, capability.Exists, capability.Scan, capability.Analyze)
}

func (m *manager) Remove(_ context.Context, data *storage.FileData) (bool, error) {
	path, err := m.pathFor(data.Location)
	if err != nil {
		return false, err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (m *manager) Exists(_ context.Context, data *storage.FileData) (bool, error) {
	path, err := m.pathFor(data.Location)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// Scan walks the root concurrently and reports each regular file's
// location. fn runs serialized.
func (m *manager) Scan(_ context.Context, fn func(location string) error) error {
	var mu sync.Mutex

	return walker.Walk(m.root, func(pathname string, fi os.FileInfo) error {
		if fi.IsDir() {
			return nil
		}

		location, err := filepath.Rel(m.root, pathname)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()

		return fn(filepath.ToSlash(location))
	})
}

func (m *manager) Analyze(_ context.Context, location string) (*storage.FileData, error) {
	path, err := m.pathFor(location)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errs.MissingFileError{Storage: m.name, Location: location}
		}
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	hasher := md5.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return nil, err
	}

	return &storage.FileData{
		Location:    location,
		Size:        size,
		ContentType: http.DetectContentType(head[:n]),
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

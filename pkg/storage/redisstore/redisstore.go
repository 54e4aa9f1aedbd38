// Package redisstore stores objects in Redis string keys. The key is the
// configured prefix plus the location. Multipart uploads build the value
// incrementally with SETRANGE, so partial uploads survive process
// restarts as long as Redis keeps the key.
package redisstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/redis/go-redis/v9"
)

const (
	AdapterName = "files:redis"

	optAddr     = "addr"
	optPassword = "password"
	optDB       = "db"
	optPrefix   = "prefix"
)

type Factory struct{}

func (Factory) Name() string {
	return AdapterName
}

func (Factory) RequiredOptions() []string {
	return []string{optAddr}
}

func (Factory) SettingsKeys() []string {
	return []string{optAddr, optPassword, optDB, optPrefix}
}

func (Factory) PrepareSettings(s *storage.Settings) {
	if s.Options[optPrefix] == "" {
		s.Options[optPrefix] = "depot:" + s.Name + ":"
	}
}

func (Factory) New(s storage.Settings) (storage.Uploader, storage.Reader, storage.Manager, error) {
	db, err := strconv.Atoi(s.OptionWithDefault(optDB, "0"))
	if err != nil {
		return nil, nil, nil, err
	}

	opts := &redis.Options{
		Addr:     s.Option(optAddr),
		Password: s.Option(optPassword),
		DB:       db,
	}

	if s.Timeout > 0 {
		opts.DialTimeout = s.Timeout
		opts.ReadTimeout = s.Timeout
		opts.WriteTimeout = s.Timeout
	}

	st := &store{
		name:   s.Name,
		client: redis.NewClient(opts),
		prefix: s.Option(optPrefix),
	}

	return &uploader{st}, &reader{st}, &manager{st}, nil
}

// NewWithClient builds the trio around an existing client. Tests use it
// with a miniredis-style or real client.
func NewWithClient(s storage.Settings, client *redis.Client) (storage.Uploader, storage.Reader, storage.Manager) {
	prefix := s.Option(optPrefix)
	if prefix == "" {
		prefix = "depot:" + s.Name + ":"
	}

	st := &store{name: s.Name, client: client, prefix: prefix}

	return &uploader{st}, &reader{st}, &manager{st}
}

func Register() {
	storage.RegisterAdapter(Factory{})
}

type store struct {
	name   string
	client *redis.Client
	prefix string
}

func (s *store) key(location string) string {
	return s.prefix + location
}

type uploader struct {
	*store
}

func (u *uploader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Create, capability.MultipartUpload)
}

func (u *uploader) Upload(ctx context.Context, location string, up *upload.Upload, _ storage.Extras) (*storage.FileData, error) {
	hr, err := up.HashingReader()
	if err != nil {
		return nil, err
	}

	content, err := io.ReadAll(hr)
	if err != nil {
		return nil, &errs.ContentError{Reason: err.Error()}
	}

	if err := u.client.Set(ctx, u.key(location), content, 0).Err(); err != nil {
		return nil, err
	}

	return &storage.FileData{
		Location:    location,
		Size:        hr.BytesRead(),
		ContentType: up.ContentType(),
		Hash:        hr.Hash(),
	}, nil
}

func (u *uploader) MultipartInitialize(ctx context.Context, location string, data *storage.MultipartData, _ storage.Extras) (*storage.MultipartData, error) {
	key := u.key(location)
	if err := u.client.Set(ctx, key, "", 0).Err(); err != nil {
		return nil, err
	}

	if data.Size > 0 {
		// Presize the value so sparse SETRANGE writes don't reallocate.
		if err := u.client.SetRange(ctx, key, data.Size-1, "\x00").Err(); err != nil {
			return nil, err
		}
	}

	data.Uploaded = 0

	return data, nil
}

func (u *uploader) MultipartUpdate(ctx context.Context, data *storage.MultipartData, position int64, chunk *upload.Upload) (*storage.MultipartData, error) {
	content, err := io.ReadAll(chunk.Stream())
	if err != nil {
		return nil, &errs.ContentError{Reason: err.Error()}
	}

	if err := u.client.SetRange(ctx, u.key(data.Location), position, string(content)).Err(); err != nil {
		return nil, err
	}

	data.Uploaded = position + int64(len(content))

	return data, nil
}

func (u *uploader) MultipartComplete(ctx context.Context, data *storage.MultipartData) (*storage.FileData, error) {
	content, err := u.client.Get(ctx, u.key(data.Location)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
		}
		return nil, err
	}

	sum := md5.Sum(content)

	return &storage.FileData{
		Location:    data.Location,
		Size:        int64(len(content)),
		ContentType: data.ContentType,
		Hash:        hex.EncodeToString(sum[:]),
	}, nil
}

func (u *uploader) Copy(context.Context, *storage.FileData, string) (*storage.FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: storage.OpCopy, Adapter: AdapterName}
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

func (r *reader) Stream(ctx context.Context, data *storage.FileData, _ storage.Extras) (io.ReadCloser, error) {
	content, err := r.client.Get(ctx, r.key(data.Location)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, &errs.MissingFileError{Storage: r.name, Location: data.Location}
		}
		return nil, err
	}

	return io.NopCloser(strings.NewReader(content)), nil
}

func (r *reader) Range(ctx context.Context, data *storage.FileData, start, end int64) (io.ReadCloser, error) {
	exists, err := r.client.Exists(ctx, r.key(data.Location)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, &errs.MissingFileError{Storage: r.name, Location: data.Location}
	}

	content, err := r.client.GetRange(ctx, r.key(data.Location), start, end).Result()
	if err != nil {
		return nil, err
	}

	return io.NopCloser(strings.NewReader(content)), nil
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

func (m *manager) Remove(ctx context.Context, data *storage.FileData) (bool, error) {
	removed, err := m.client.Del(ctx, m.key(data.Location)).Result()
	if err != nil {
		return false, err
	}

	return removed > 0, nil
}

func (m *manager) Exists(ctx context.Context, data *storage.FileData) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(data.Location)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (m *manager) Scan(ctx context.Context, fn func(location string) error) error {
	var cursor uint64
	for {
		keys, next, err := m.client.Scan(ctx, cursor, m.prefix+"*", 100).Result()
		if err != nil {
			return err
		}

		for _, key := range keys {
			if err := fn(strings.TrimPrefix(key, m.prefix)); err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (m *manager) Analyze(ctx context.Context, location string) (*storage.FileData, error) {
	content, err := m.client.Get(ctx, m.key(location)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, &errs.MissingFileError{Storage: m.name, Location: location}
		}
		return nil, err
	}

	sum := md5.Sum(content)

	return &storage.FileData{
		Location:    location,
		Size:        int64(len(content)),
		ContentType: upload.DefaultContentType,
		Hash:        hex.EncodeToString(sum[:]),
	}, nil
}

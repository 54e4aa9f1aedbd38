// Package s3store stores objects in an S3 compatible bucket through the
// MinIO client. Download links are presigned GETs; a configured
// public_prefix turns permanent links into plain bucket URLs instead.
package s3store

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	AdapterName = "files:s3"

	optEndpoint  = "endpoint"
	optAccessKey = "access_key"
	optSecretKey = "secret_key"
	optBucket    = "bucket"
	optRegion    = "region"
	optUseSSL    = "use_ssl"
	optPrefix    = "prefix"

	defaultLinkExpiry = 15 * time.Minute
)

type Factory struct{}

func (Factory) Name() string {
	return AdapterName
}

func (Factory) RequiredOptions() []string {
	return []string{optEndpoint, optAccessKey, optSecretKey, optBucket}
}

func (Factory) SettingsKeys() []string {
	return []string{optEndpoint, optAccessKey, optSecretKey, optBucket, optRegion, optUseSSL, optPrefix}
}

func (Factory) PrepareSettings(s *storage.Settings) {
	if s.Options[optUseSSL] == "" {
		s.Options[optUseSSL] = "true"
	}
}

func (Factory) New(s storage.Settings) (storage.Uploader, storage.Reader, storage.Manager, error) {
	useSSL, err := strconv.ParseBool(s.OptionWithDefault(optUseSSL, "true"))
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := minio.New(s.Option(optEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(s.Option(optAccessKey), s.Option(optSecretKey), ""),
		Secure: useSSL,
		Region: s.Option(optRegion),
	})
	if err != nil {
		return nil, nil, nil, err
	}

	st := NewWithClient(s, client)

	return &uploader{st}, &reader{st}, &manager{st}, nil
}

func Register() {
	storage.RegisterAdapter(Factory{})
}

type store struct {
	name         string
	client       *minio.Client
	bucket       string
	prefix       string
	publicPrefix string
	linkExpiry   time.Duration
}

// NewWithClient wires the adapter state around an existing MinIO client.
func NewWithClient(s storage.Settings, client *minio.Client) *store {
	expiry := defaultLinkExpiry
	if s.Timeout > 0 {
		expiry = s.Timeout
	}

	return &store{
		name:         s.Name,
		client:       client,
		bucket:       s.Option(optBucket),
		prefix:       s.Option(optPrefix),
		publicPrefix: strings.TrimSuffix(s.PublicPrefix, "/"),
		linkExpiry:   expiry,
	}
}

func (s *store) key(location string) string {
	return s.prefix + location
}

func (s *store) isMissing(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

type uploader struct {
	*store
}

func (u *uploader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Create, capability.Copy, capability.Move)
}

func (u *uploader) Upload(ctx context.Context, location string, up *upload.Upload, _ storage.Extras) (*storage.FileData, error) {
	hr, err := up.HashingReader()
	if err != nil {
		return nil, err
	}

	if _, err := u.client.PutObject(ctx, u.bucket, u.key(location), hr, up.Size(), minio.PutObjectOptions{
		ContentType: up.ContentType(),
	}); err != nil {
		return nil, err
	}

	return &storage.FileData{
		Location:    location,
		Size:        hr.BytesRead(),
		ContentType: up.ContentType(),
		Hash:        hr.Hash(),
		StorageData: storage.StorageData{"bucket": u.bucket, "key": u.key(location)},
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

func (u *uploader) Copy(ctx context.Context, data *storage.FileData, dstLocation string) (*storage.FileData, error) {
	_, err := u.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: u.bucket, Object: u.key(dstLocation)},
		minio.CopySrcOptions{Bucket: u.bucket, Object: u.key(data.Location)})
	if err != nil {
		if u.isMissing(err) {
			return nil, &errs.MissingFileError{Storage: u.name, Location: data.Location}
		}
		return nil, err
	}

	copied := data.Copy()
	copied.Location = dstLocation
	copied.StorageData = storage.StorageData{"bucket": u.bucket, "key": u.key(dstLocation)}

	return copied, nil
}

func (u *uploader) Move(ctx context.Context, data *storage.FileData, dstLocation string) (*storage.FileData, error) {
	moved, err := u.Copy(ctx, data, dstLocation)
	if err != nil {
		return nil, err
	}

	if err := u.client.RemoveObject(ctx, u.bucket, u.key(data.Location), minio.RemoveObjectOptions{}); err != nil {
		return nil, err
	}

	return moved, nil
}

type reader struct {
	*store
}

func (r *reader) Capabilities() capability.Cluster {
	return capability.Combine(capability.Stream, capability.Range, capability.Download, capability.PublicLink)
}

func (r *reader) Stream(ctx context.Context, data *storage.FileData, _ storage.Extras) (io.ReadCloser, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, r.key(data.Location), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}

	// GetObject is lazy; Stat forces the first request so a missing key
	// surfaces here instead of on the first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if r.isMissing(err) {
			return nil, &errs.MissingFileError{Storage: r.name, Location: data.Location}
		}
		return nil, err
	}

	return obj, nil
}

func (r *reader) Range(ctx context.Context, data *storage.FileData, start, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, err
	}

	obj, err := r.client.GetObject(ctx, r.bucket, r.key(data.Location), opts)
	if err != nil {
		return nil, err
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if r.isMissing(err) {
			return nil, &errs.MissingFileError{Storage: r.name, Location: data.Location}
		}
		return nil, err
	}

	return obj, nil
}

func (r *reader) DownloadLink(ctx context.Context, data *storage.FileData) (string, error) {
	u, err := r.client.PresignedGetObject(ctx, r.bucket, r.key(data.Location), r.linkExpiry, nil)
	if err != nil {
		return "", err
	}

	return u.String(), nil
}

func (r *reader) PermanentLink(ctx context.Context, data *storage.FileData) (string, error) {
	if r.publicPrefix != "" {
		return r.publicPrefix + "/" + r.key(data.Location), nil
	}

	return r.DownloadLink(ctx, data)
}

type manager struct {
	*store
}

func (m *manager) Capabilities() capability.Cluster {
	return capability.Combine(capability.Remove, capability.Exists, capability.Scan, capability.Analyze)
}

func (m *manager) Remove(ctx context.Context, data *storage.FileData) (bool, error) {
	if _, err := m.client.StatObject(ctx, m.bucket, m.key(data.Location), minio.StatObjectOptions{}); err != nil {
		if m.isMissing(err) {
			return false, nil
		}
		return false, err
	}

	if err := m.client.RemoveObject(ctx, m.bucket, m.key(data.Location), minio.RemoveObjectOptions{}); err != nil {
		return false, err
	}

	return true, nil
}

func (m *manager) Exists(ctx context.Context, data *storage.FileData) (bool, error) {
	if _, err := m.client.StatObject(ctx, m.bucket, m.key(data.Location), minio.StatObjectOptions{}); err != nil {
		if m.isMissing(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (m *manager) Scan(ctx context.Context, fn func(location string) error) error {
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: m.prefix, Recursive: true}) {
		if obj.Err != nil {
			return obj.Err
		}

		if err := fn(strings.TrimPrefix(obj.Key, m.prefix)); err != nil {
			return err
		}
	}

	return nil
}

func (m *manager) Analyze(ctx context.Context, location string) (*storage.FileData, error) {
	info, err := m.client.StatObject(ctx, m.bucket, m.key(location), minio.StatObjectOptions{})
	if err != nil {
		if m.isMissing(err) {
			return nil, &errs.MissingFileError{Storage: m.name, Location: location}
		}
		return nil, err
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = upload.DefaultContentType
	}

	return &storage.FileData{
		Location:    location,
		Size:        info.Size,
		ContentType: contentType,
		Hash:        strings.Trim(info.ETag, `"`),
		StorageData: storage.StorageData{"bucket": m.bucket, "key": m.key(location)},
	}, nil
}

// Package linkstore is the adapter for files that live behind plain HTTP
// URLs. Nothing is stored; an upload's payload must be an absolute URL,
// which becomes the location. Size and content type come from a HEAD
// request against the URL.
package linkstore

import (
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/upload"
)

const (
	AdapterName = "files:link"

	defaultTimeout = 10 * time.Second
)

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
	timeout := defaultTimeout
	if s.Timeout > 0 {
		timeout = s.Timeout
	}

	st := &store{
		name:   s.Name,
		client: resty.New().SetTimeout(timeout),
	}

	unsupported := storage.UnsupportedUploader{Adapter: AdapterName}

	return &uploader{UnsupportedUploader: unsupported, store: st},
		&reader{UnsupportedReader: storage.UnsupportedReader{Adapter: AdapterName}, store: st},
		&manager{UnsupportedManager: storage.UnsupportedManager{Adapter: AdapterName}, store: st},
		nil
}

func Register() {
	storage.RegisterAdapter(Factory{})
}

type store struct {
	name   string
	client *resty.Client
}

func (s *store) head(ctx context.Context, location string) (*resty.Response, error) {
	return s.client.R().SetContext(ctx).Head(location)
}

// parseURL validates that the payload is an absolute http(s) URL.
func parseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &errs.ContentError{Reason: "payload is not an absolute URL"}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &errs.ContentError{Reason: "only http and https links are supported"}
	}

	return u.String(), nil
}

type uploader struct {
	storage.UnsupportedUploader
	*store
}

func (u *uploader) Capabilities() capability.Cluster {
	return capability.Create
}

func (u *uploader) Upload(ctx context.Context, _ string, up *upload.Upload, _ storage.Extras) (*storage.FileData, error) {
	if err := up.Reset(); err != nil {
		return nil, err
	}

	payload, err := io.ReadAll(up.Stream())
	if err != nil {
		return nil, &errs.ContentError{Reason: err.Error()}
	}

	link, err := parseURL(string(payload))
	if err != nil {
		return nil, err
	}

	data := &storage.FileData{
		Location:    link,
		ContentType: upload.DefaultContentType,
		StorageData: storage.StorageData{"url": link},
	}

	resp, err := u.head(ctx, link)
	if err != nil {
		// The link is kept even when the target is unreachable right now;
		// Analyze can fill the details in later.
		return data, nil
	}

	fillFromResponse(data, resp)

	return data, nil
}

type reader struct {
	storage.UnsupportedReader
	*store
}

func (r *reader) Capabilities() capability.Cluster {
	return capability.PublicLink
}

func (r *reader) PermanentLink(_ context.Context, data *storage.FileData) (string, error) {
	return data.Location, nil
}

type manager struct {
	storage.UnsupportedManager
	*store
}

func (m *manager) Capabilities() capability.Cluster {
	return capability.Combine(capability.Remove, capability.Exists, capability.Analyze)
}

// Remove has nothing to delete; the link simply stops being tracked.
func (m *manager) Remove(context.Context, *storage.FileData) (bool, error) {
	return true, nil
}

func (m *manager) Exists(ctx context.Context, data *storage.FileData) (bool, error) {
	resp, err := m.head(ctx, data.Location)
	if err != nil {
		return false, nil
	}

	return resp.IsSuccess(), nil
}

func (m *manager) Analyze(ctx context.Context, location string) (*storage.FileData, error) {
	link, err := parseURL(location)
	if err != nil {
		return nil, err
	}

	resp, err := m.head(ctx, link)
	if err != nil {
		return nil, err
	}

	if !resp.IsSuccess() {
		return nil, &errs.MissingFileError{Storage: m.name, Location: location}
	}

	data := &storage.FileData{
		Location:    link,
		ContentType: upload.DefaultContentType,
		StorageData: storage.StorageData{"url": link},
	}
	fillFromResponse(data, resp)

	return data, nil
}

func fillFromResponse(data *storage.FileData, resp *resty.Response) {
	if contentType := resp.Header().Get("Content-Type"); contentType != "" {
		data.ContentType = contentType
	}

	if resp.RawResponse != nil && resp.RawResponse.ContentLength > 0 {
		data.Size = resp.RawResponse.ContentLength
	}
}

package storage

import (
	"context"
	"io"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/upload"
)

// The three service roles a back-end implements. An adapter supplies one
// implementation of each; the Storage façade owns guard checks so the
// services only see requests they declared a capability for. Embed
// UnsupportedUploader, UnsupportedReader or UnsupportedManager to get
// "not supported" behavior for the methods a back-end doesn't provide.

// Uploader writes bytes into a back-end.
type Uploader interface {
	Capabilities() capability.Cluster

	Upload(ctx context.Context, location string, up *upload.Upload, extras Extras) (*FileData, error)

	// Multipart lifecycle. Initialize receives the declared total size in
	// data.Size and must return a record with Uploaded == 0. Update is
	// append-only at data.Uploaded; Complete assembles the final object.
	// On Complete, a non-empty data.Hash is the caller's expected hash:
	// back-ends that discard resumption state while assembling must
	// verify it first and refuse with a ContentError on mismatch.
	MultipartInitialize(ctx context.Context, location string, data *MultipartData, extras Extras) (*MultipartData, error)
	MultipartUpdate(ctx context.Context, data *MultipartData, position int64, chunk *upload.Upload) (*MultipartData, error)
	MultipartComplete(ctx context.Context, data *MultipartData) (*FileData, error)

	// Copy and Move duplicate or relocate an object natively within the
	// same back-end.
	Copy(ctx context.Context, data *FileData, dstLocation string) (*FileData, error)
	Move(ctx context.Context, data *FileData, dstLocation string) (*FileData, error)
}

// Reader produces bytes and links for stored objects.
type Reader interface {
	Capabilities() capability.Cluster

	Stream(ctx context.Context, data *FileData, extras Extras) (io.ReadCloser, error)
	Range(ctx context.Context, data *FileData, start, end int64) (io.ReadCloser, error)

	// DownloadLink is a direct end-user URL; PermanentLink never expires.
	DownloadLink(ctx context.Context, data *FileData) (string, error)
	PermanentLink(ctx context.Context, data *FileData) (string, error)
}

// Manager inspects and removes stored objects.
type Manager interface {
	Capabilities() capability.Cluster

	Remove(ctx context.Context, data *FileData) (bool, error)
	Exists(ctx context.Context, data *FileData) (bool, error)

	// Scan calls fn for every location present in the back-end, stopping
	// on the first error fn returns.
	Scan(ctx context.Context, fn func(location string) error) error

	// Analyze builds a FileData for an object that is already present in
	// the back-end but unknown to the catalog.
	Analyze(ctx context.Context, location string) (*FileData, error)
}

type UnsupportedUploader struct {
	Adapter string
}

func (u UnsupportedUploader) Capabilities() capability.Cluster {
	return capability.None
}

func (u UnsupportedUploader) Upload(context.Context, string, *upload.Upload, Extras) (*FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpUpload, Adapter: u.Adapter}
}

func (u UnsupportedUploader) MultipartInitialize(context.Context, string, *MultipartData, Extras) (*MultipartData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpMultipartInitialize, Adapter: u.Adapter}
}

func (u UnsupportedUploader) MultipartUpdate(context.Context, *MultipartData, int64, *upload.Upload) (*MultipartData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpMultipartUpdate, Adapter: u.Adapter}
}

func (u UnsupportedUploader) MultipartComplete(context.Context, *MultipartData) (*FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpMultipartComplete, Adapter: u.Adapter}
}

func (u UnsupportedUploader) Copy(context.Context, *FileData, string) (*FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpCopy, Adapter: u.Adapter}
}

func (u UnsupportedUploader) Move(context.Context, *FileData, string) (*FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpMove, Adapter: u.Adapter}
}

type UnsupportedReader struct {
	Adapter string
}

func (r UnsupportedReader) Capabilities() capability.Cluster {
	return capability.None
}

func (r UnsupportedReader) Stream(context.Context, *FileData, Extras) (io.ReadCloser, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpStream, Adapter: r.Adapter}
}

func (r UnsupportedReader) Range(context.Context, *FileData, int64, int64) (io.ReadCloser, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpRange, Adapter: r.Adapter}
}

func (r UnsupportedReader) DownloadLink(context.Context, *FileData) (string, error) {
	return "", &errs.UnsupportedOperationError{Operation: OpDownloadLink, Adapter: r.Adapter}
}

func (r UnsupportedReader) PermanentLink(context.Context, *FileData) (string, error) {
	return "", &errs.UnsupportedOperationError{Operation: OpPermanentLink, Adapter: r.Adapter}
}

type UnsupportedManager struct {
	Adapter string
}

func (m UnsupportedManager) Capabilities() capability.Cluster {
	return capability.None
}

func (m UnsupportedManager) Remove(context.Context, *FileData) (bool, error) {
	return false, &errs.UnsupportedOperationError{Operation: OpRemove, Adapter: m.Adapter}
}

func (m UnsupportedManager) Exists(context.Context, *FileData) (bool, error) {
	return false, &errs.UnsupportedOperationError{Operation: OpExists, Adapter: m.Adapter}
}

func (m UnsupportedManager) Scan(context.Context, func(string) error) error {
	return &errs.UnsupportedOperationError{Operation: OpScan, Adapter: m.Adapter}
}

func (m UnsupportedManager) Analyze(context.Context, string) (*FileData, error) {
	return nil, &errs.UnsupportedOperationError{Operation: OpAnalyze, Adapter: m.Adapter}
}

// Operation names used in errors and logs.
const (
	OpUpload              = "upload"
	OpStream              = "stream"
	OpRange               = "range"
	OpRemove              = "remove"
	OpExists              = "exists"
	OpScan                = "scan"
	OpAnalyze             = "analyze"
	OpCopy                = "copy"
	OpMove                = "move"
	OpDownloadLink        = "download_link"
	OpPermanentLink       = "permanent_link"
	OpMultipartInitialize = "multipart_initialize"
	OpMultipartUpdate     = "multipart_update"
	OpMultipartComplete   = "multipart_complete"
)

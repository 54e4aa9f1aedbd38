package storage

import (
	"context"
	"fmt"

	"github.com/materials-commons/depot/pkg/capability"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/upload"
)

// Multipart protocol. A multipart upload is OPEN from MultipartInitialize
// until MultipartComplete assembles it into a file. Updates are
// append-only at the current cursor unless the caller requests a seek
// within the already declared window with the "position" extra. All
// mutations against one location are serialized through the per-key
// locker; cross-process serialization is the host's responsibility.

// MultipartInitialize opens a multipart upload of size total bytes. The
// returned record carries Uploaded == 0 and whatever resumption cursor
// the back-end needs in StorageData.
func (s *Storage) MultipartInitialize(ctx context.Context, size int64, contentType, filename string, extras Extras) (*MultipartData, error) {
	if err := s.ensure(OpMultipartInitialize, capability.MultipartUpload); err != nil {
		return nil, err
	}

	if size < 0 {
		return nil, errs.NewValidationError("size", "size cannot be negative")
	}

	if s.settings.MaxSize > 0 && size > s.settings.MaxSize {
		return nil, &errs.LargeUploadError{Size: size, MaxSize: s.settings.MaxSize}
	}

	if contentType == "" {
		contentType = upload.DefaultContentType
	}

	if !s.settings.AllowsContentType(contentType) {
		return nil, &errs.ContentError{Reason: fmt.Sprintf("content type %s is not allowed on storage %s", contentType, s.settings.Name)}
	}

	location := extras.GetString("location")
	if location == "" {
		made, err := MakeLocation(s.settings.NameStrategy, filename)
		if err != nil {
			return nil, err
		}
		location = made
	}

	data := &MultipartData{
		FileData: FileData{
			Location:    location,
			Size:        size,
			ContentType: contentType,
		},
	}

	return s.uploader.MultipartInitialize(ctx, location, data, extras.Copy())
}

// MultipartUpdate appends the chunk at the current cursor, or at the
// explicit "position" extra when the back-end accepts seeks. Writes that
// would extend past the declared size fail without moving the cursor.
func (s *Storage) MultipartUpdate(ctx context.Context, data *MultipartData, chunk *upload.Upload, extras Extras) (*MultipartData, error) {
	if err := s.ensure(OpMultipartUpdate, capability.MultipartUpload); err != nil {
		return nil, err
	}

	var (
		updated *MultipartData
		err     error
	)

	lockErr := s.locker.WithLock(data.Location, func() error {
		position := data.Uploaded
		if explicit, ok := extras.GetInt64("position"); ok {
			position = explicit
		}

		if position < 0 || position > data.Uploaded {
			err = &errs.UploadOutOfBoundError{Position: position, Size: data.Size}
			return nil
		}

		if position+chunk.Size() > data.Size {
			err = &errs.UploadOutOfBoundError{Position: position + chunk.Size(), Size: data.Size}
			return nil
		}

		updated, err = s.uploader.MultipartUpdate(ctx, data.Copy(), position, chunk)
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	return updated, err
}

// MultipartComplete assembles the upload into a finished object. It
// refuses while fewer bytes than declared have arrived, and when
// expectedHash is non-empty it must match the assembled content.
func (s *Storage) MultipartComplete(ctx context.Context, data *MultipartData, expectedHash string) (*FileData, error) {
	if err := s.ensure(OpMultipartComplete, capability.MultipartUpload); err != nil {
		return nil, err
	}

	var (
		completed *FileData
		err       error
	)

	lockErr := s.locker.WithLock(data.Location, func() error {
		if data.Uploaded < data.Size {
			err = errs.NewValidationError("uploaded",
				fmt.Sprintf("upload is incomplete: %d of %d bytes received", data.Uploaded, data.Size))
			return nil
		}

		// The expected hash rides down on the record's Hash field so
		// back-ends whose complete commits destructively can verify
		// before throwing away their resumption state.
		attempt := data.Copy()
		attempt.Hash = expectedHash

		completed, err = s.uploader.MultipartComplete(ctx, attempt)
		if err != nil {
			return nil
		}

		if expectedHash != "" && completed.Hash != expectedHash {
			completed = nil
			err = &errs.ContentError{Reason: "content hash does not match the expected hash"}
		}

		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	return completed, err
}

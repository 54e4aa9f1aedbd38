// Package upload normalizes the different shapes of incoming file content
// into a single Upload value carrying a rewindable stream, a declared size,
// a content type and an optional filename.
package upload

import (
	"bytes"
	"io"
	"mime/multipart"
	"strings"

	"github.com/materials-commons/depot/pkg/errs"
	"github.com/pkg/errors"
)

const DefaultContentType = "application/octet-stream"

type Upload struct {
	reader      io.Reader
	size        int64
	contentType string
	filename    string
	consumed    bool
}

type Option func(u *Upload)

func WithContentType(contentType string) Option {
	return func(u *Upload) {
		if contentType != "" {
			u.contentType = contentType
		}
	}
}

func WithFilename(filename string) Option {
	return func(u *Upload) {
		u.filename = filename
	}
}

// MakeUpload builds an Upload from src. Accepted kinds are raw bytes, a
// string, any io.ReadSeeker (spooled temp files included), a plain
// io.Reader (buffered in memory so the upload stays rewindable), and a
// *multipart.FileHeader from an incoming HTTP request. Unreadable sources
// return a ContentError; any other kind is a caller bug.
func MakeUpload(src interface{}, opts ...Option) (*Upload, error) {
	u := &Upload{contentType: DefaultContentType}

	switch v := src.(type) {
	case *Upload:
		return v, nil

	case []byte:
		u.reader = bytes.NewReader(v)
		u.size = int64(len(v))

	case string:
		u.reader = strings.NewReader(v)
		u.size = int64(len(v))
		u.contentType = "text/plain"

	case *multipart.FileHeader:
		f, err := v.Open()
		if err != nil {
			return nil, &errs.ContentError{Reason: err.Error()}
		}

		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, &errs.ContentError{Reason: err.Error()}
		}

		u.reader = bytes.NewReader(data)
		u.size = int64(len(data))
		u.filename = v.Filename
		if contentType := v.Header.Get("Content-Type"); contentType != "" {
			u.contentType = contentType
		}

	case io.ReadSeeker:
		size, err := sizeOf(v)
		if err != nil {
			return nil, &errs.ContentError{Reason: err.Error()}
		}

		u.reader = v
		u.size = size

	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return nil, &errs.ContentError{Reason: err.Error()}
		}

		u.reader = bytes.NewReader(data)
		u.size = int64(len(data))

	default:
		return nil, errors.Errorf("unsupported upload source type %T", src)
	}

	for _, opt := range opts {
		opt(u)
	}

	return u, nil
}

// FromReader wraps a plain reader with a declared size without buffering
// it. Synthetic cross-storage copies use it to pipe one back-end's stream
// into another's uploader. The result is not rewindable, so its
// HashingReader can only be taken once.
func FromReader(r io.Reader, size int64, opts ...Option) *Upload {
	u := &Upload{reader: r, size: size, contentType: DefaultContentType}
	for _, opt := range opts {
		opt(u)
	}

	return u
}

// sizeOf determines the remaining length of a seekable stream and rewinds
// it to the start.
func sizeOf(r io.ReadSeeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	return size, nil
}

// Stream returns the underlying reader positioned wherever the last
// consumer left it. Call Reset first for a fresh read.
func (u *Upload) Stream() io.Reader {
	u.consumed = true
	return u.reader
}

func (u *Upload) Size() int64 {
	return u.size
}

func (u *Upload) ContentType() string {
	return u.contentType
}

func (u *Upload) Filename() string {
	return u.filename
}

// Reset rewinds the upload so it can be consumed again. Uploads built
// with FromReader cannot rewind once read.
func (u *Upload) Reset() error {
	seeker, ok := u.reader.(io.Seeker)
	if !ok {
		if u.consumed {
			return &errs.ContentError{Reason: "upload stream cannot be rewound"}
		}
		return nil
	}

	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return err
	}

	u.consumed = false

	return nil
}

// HashingReader rewinds the upload and returns a reader that hashes and
// counts the bytes as they flow through.
func (u *Upload) HashingReader() (*HashingReader, error) {
	if err := u.Reset(); err != nil {
		return nil, &errs.ContentError{Reason: err.Error()}
	}

	u.consumed = true

	return NewHashingReader(u.reader), nil
}

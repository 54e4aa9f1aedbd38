// Package errs defines the error taxonomy shared by the storage engine,
// the uploader and the action layer. Every error belongs to one of the
// category sentinels (ErrAdapter, ErrStorage, ErrUpload, ErrQueue), which
// all unwrap to ErrFiles, so callers can classify failures with errors.Is
// while still getting typed details with errors.As.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrFiles is the root of the taxonomy.
	ErrFiles = errors.New("files error")

	ErrAdapter = &category{msg: "adapter error"}
	ErrStorage = &category{msg: "storage error"}
	ErrUpload  = &category{msg: "upload error"}
	ErrQueue   = &category{msg: "queue error"}
)

type category struct {
	msg string
}

func (c *category) Error() string {
	return c.msg
}

func (c *category) Unwrap() error {
	return ErrFiles
}

// UnknownAdapterError is returned when a storage definition names an
// adapter type that was never registered.
type UnknownAdapterError struct {
	Adapter string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown storage adapter: %s", e.Adapter)
}

func (e *UnknownAdapterError) Unwrap() error {
	return ErrAdapter
}

// MissingAdapterConfigurationError is returned when a required adapter
// option is absent.
type MissingAdapterConfigurationError struct {
	Adapter string
	Option  string
}

func (e *MissingAdapterConfigurationError) Error() string {
	return fmt.Sprintf("adapter %s requires option %s", e.Adapter, e.Option)
}

func (e *MissingAdapterConfigurationError) Unwrap() error {
	return ErrAdapter
}

// InvalidAdapterConfigurationError is returned when adapter construction
// fails for any reason other than a missing option.
type InvalidAdapterConfigurationError struct {
	Adapter string
	Reason  string
}

func (e *InvalidAdapterConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for adapter %s: %s", e.Adapter, e.Reason)
}

func (e *InvalidAdapterConfigurationError) Unwrap() error {
	return ErrAdapter
}

// UnknownStorageError is returned when looking up a storage name that was
// never configured.
type UnknownStorageError struct {
	Storage string
}

func (e *UnknownStorageError) Error() string {
	return fmt.Sprintf("unknown storage: %s", e.Storage)
}

func (e *UnknownStorageError) Unwrap() error {
	return ErrStorage
}

// MissingStorageConfigurationError is returned when no storage definitions
// are present at all.
type MissingStorageConfigurationError struct{}

func (e *MissingStorageConfigurationError) Error() string {
	return "no storages configured"
}

func (e *MissingStorageConfigurationError) Unwrap() error {
	return ErrStorage
}

// UnsupportedOperationError is returned when an operation's capability bit
// is absent from the storage's cluster.
type UnsupportedOperationError struct {
	Operation string
	Adapter   string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation %s is not supported by adapter %s", e.Operation, e.Adapter)
}

func (e *UnsupportedOperationError) Unwrap() error {
	return ErrStorage
}

// MissingFileError is returned when the bytes for a location are gone from
// the back-end.
type MissingFileError struct {
	Storage  string
	Location string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("no file at %s in storage %s", e.Location, e.Storage)
}

func (e *MissingFileError) Unwrap() error {
	return ErrStorage
}

// ContentError is returned when upload content cannot be read or fails a
// content check (unreadable source, hash mismatch, non-URL payload for the
// link adapter).
type ContentError struct {
	Reason string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("invalid content: %s", e.Reason)
}

func (e *ContentError) Unwrap() error {
	return ErrStorage
}

// LargeUploadError is returned when an upload exceeds the storage's
// max_size cap.
type LargeUploadError struct {
	Size    int64
	MaxSize int64
}

func (e *LargeUploadError) Error() string {
	return fmt.Sprintf("upload of %d bytes exceeds the %d byte limit", e.Size, e.MaxSize)
}

func (e *LargeUploadError) Unwrap() error {
	return ErrUpload
}

// UploadOutOfBoundError is returned when a multipart update writes outside
// the declared window.
type UploadOutOfBoundError struct {
	Position int64
	Size     int64
}

func (e *UploadOutOfBoundError) Error() string {
	return fmt.Sprintf("upload position %d is out of bounds for a %d byte upload", e.Position, e.Size)
}

func (e *UploadOutOfBoundError) Unwrap() error {
	return ErrUpload
}

// NameStrategyError is returned for unknown location naming strategies.
type NameStrategyError struct {
	Strategy string
}

func (e *NameStrategyError) Error() string {
	return fmt.Sprintf("unknown name strategy: %s", e.Strategy)
}

func (e *NameStrategyError) Unwrap() error {
	return ErrUpload
}

// NotAuthorizedError is returned when the caller fails the permission
// check for an action, including forced-transfer refusals on pinned
// owners.
type NotAuthorizedError struct {
	Action string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Action)
}

func (e *NotAuthorizedError) Unwrap() error {
	return ErrFiles
}

// OutOfQueueError is returned when a task is enqueued outside of any task
// queue scope.
type OutOfQueueError struct{}

func (e *OutOfQueueError) Error() string {
	return "no active task queue in context"
}

func (e *OutOfQueueError) Unwrap() error {
	return ErrQueue
}

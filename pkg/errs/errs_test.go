package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaxonomyUnwrapsToCategories(t *testing.T) {
	tests := []struct {
		err      error
		category error
	}{
		{&UnknownAdapterError{Adapter: "files:bogus"}, ErrAdapter},
		{&MissingAdapterConfigurationError{Adapter: "files:s3", Option: "bucket"}, ErrAdapter},
		{&InvalidAdapterConfigurationError{Adapter: "files:fs", Reason: "bad path"}, ErrAdapter},
		{&UnknownStorageError{Storage: "nope"}, ErrStorage},
		{&UnsupportedOperationError{Operation: "stream", Adapter: "files:link"}, ErrStorage},
		{&MissingFileError{Storage: "default", Location: "abc"}, ErrStorage},
		{&ContentError{Reason: "unreadable"}, ErrStorage},
		{&MissingStorageConfigurationError{}, ErrStorage},
		{&LargeUploadError{Size: 10, MaxSize: 5}, ErrUpload},
		{&UploadOutOfBoundError{Position: 20, Size: 10}, ErrUpload},
		{&NameStrategyError{Strategy: "nope"}, ErrUpload},
		{&OutOfQueueError{}, ErrQueue},
	}

	for _, test := range tests {
		require.ErrorIsf(t, test.err, test.category, "%T should be in its category", test.err)
		require.ErrorIsf(t, test.err, ErrFiles, "%T should be a files error", test.err)
	}
}

func TestErrorsAsRecoversDetails(t *testing.T) {
	var unsupported *UnsupportedOperationError

	err := error(&UnsupportedOperationError{Operation: "stream", Adapter: "files:link"})
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "stream", unsupported.Operation)
	require.Equal(t, "files:link", unsupported.Adapter)
}

package storage_test

import (
	"testing"

	"github.com/materials-commons/depot/pkg/config"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/storage/memstore"
	"github.com/stretchr/testify/require"
)

func resetRegistries(t *testing.T) {
	t.Helper()
	storage.ResetAdapters()
	storage.ResetStorages()
	t.Cleanup(func() {
		storage.ResetAdapters()
		storage.ResetStorages()
	})
}

func TestStorageFromSettingsUnknownAdapter(t *testing.T) {
	resetRegistries(t)

	_, err := storage.StorageFromSettings(storage.Settings{Name: "x", Adapter: "files:nope"})

	var unknownErr *errs.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	require.Equal(t, "files:nope", unknownErr.Adapter)
}

func TestGetStorageUnknown(t *testing.T) {
	resetRegistries(t)

	_, err := storage.GetStorage("nope")

	var unknownErr *errs.UnknownStorageError
	require.ErrorAs(t, err, &unknownErr)
}

func TestSetupFromConfig(t *testing.T) {
	resetRegistries(t)
	memstore.Register()

	cfg := config.NewMapConfig(map[string]string{
		"DEPOT_STORAGES":            "scratch, archive",
		"DEPOT_STORAGE_SCRATCH_TYPE": "files:memory",
		"DEPOT_STORAGE_ARCHIVE_TYPE": "files:memory",
		"DEPOT_STORAGE_ARCHIVE_MAX_SIZE": "1kib",
	})

	err := storage.SetupFromConfig(cfg)
	require.NoErrorf(t, err, "Failed setting up storages: %s", err)

	st, err := storage.GetStorage("scratch")
	require.NoError(t, err)
	require.Equal(t, memstore.AdapterName, st.AdapterName())

	st, err = storage.GetStorage("archive")
	require.NoError(t, err)
	require.Equal(t, int64(1024), st.Settings().MaxSize)

	require.ElementsMatch(t, []string{"scratch", "archive"}, storage.StorageNames())
}

func TestSetupFromConfigNoStorages(t *testing.T) {
	resetRegistries(t)

	err := storage.SetupFromConfig(config.NewMapConfig(nil))

	var missingErr *errs.MissingStorageConfigurationError
	require.ErrorAs(t, err, &missingErr)
}

func TestSetupFromConfigUnknownAdapter(t *testing.T) {
	resetRegistries(t)

	cfg := config.NewMapConfig(map[string]string{
		"DEPOT_STORAGES":        "bad",
		"DEPOT_STORAGE_BAD_TYPE": "files:unheard-of",
	})

	err := storage.SetupFromConfig(cfg)

	var unknownErr *errs.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
}

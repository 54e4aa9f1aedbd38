package actions_test

import (
	"fmt"
	"testing"

	"github.com/materials-commons/depot/pkg/actions"
	"github.com/materials-commons/depot/pkg/depotdb"
	"github.com/materials-commons/depot/pkg/depotdb/stor"
	"github.com/materials-commons/depot/pkg/storage"
	"github.com/materials-commons/depot/pkg/storage/fsstore"
	"github.com/materials-commons/depot/pkg/storage/memstore"
	"github.com/materials-commons/depot/pkg/upload"
	"github.com/stretchr/testify/require"
)

var (
	userOne = actions.Principal{ID: "u1", Type: "user"}
	userTwo = actions.Principal{ID: "u2", Type: "user"}
	admin   = actions.SystemPrincipal
)

func newTestService(t *testing.T) (*actions.Service, *stor.Stors) {
	t.Helper()

	db, err := depotdb.OpenSqlite(fmt.Sprintf("file:actions_%s?mode=memory&cache=shared", t.Name()))
	require.NoErrorf(t, err, "Failed opening sqlite: %s", err)

	err = depotdb.RunMigrations(db)
	require.NoErrorf(t, err, "Failed running migrations: %s", err)

	stors := stor.NewGormStors(db)

	storage.ResetStorages()
	t.Cleanup(storage.ResetStorages)

	return actions.NewService(stors), stors
}

func registerMemStorage(t *testing.T, name string) *storage.Storage {
	t.Helper()

	settings := storage.Settings{Name: name, Adapter: memstore.AdapterName}
	uploader, reader, manager, err := memstore.Factory{}.New(settings)
	require.NoErrorf(t, err, "Failed constructing memory storage: %s", err)

	st := storage.New(settings, uploader, reader, manager)
	storage.RegisterStorage(st)

	return st
}

func registerFsStorage(t *testing.T, name string) (*storage.Storage, string) {
	t.Helper()

	root := t.TempDir()
	settings := storage.Settings{
		Name:    name,
		Adapter: fsstore.AdapterName,
		Options: map[string]string{"path": root},
	}

	uploader, reader, manager, err := fsstore.Factory{}.New(settings)
	require.NoErrorf(t, err, "Failed constructing fs storage: %s", err)

	st := storage.New(settings, uploader, reader, manager)
	storage.RegisterStorage(st)

	return st, root
}

func registerPublicFsStorage(t *testing.T, name, prefix string) *storage.Storage {
	t.Helper()

	settings := storage.Settings{
		Name:         name,
		Adapter:      fsstore.PublicAdapterName,
		PublicPrefix: prefix,
		Options:      map[string]string{"path": t.TempDir()},
	}

	uploader, reader, manager, err := fsstore.PublicFactory{}.New(settings)
	require.NoErrorf(t, err, "Failed constructing public fs storage: %s", err)

	st := storage.New(settings, uploader, reader, manager)
	storage.RegisterStorage(st)

	return st
}

func mustMakeUpload(t *testing.T, content, filename string) *upload.Upload {
	t.Helper()

	up, err := upload.MakeUpload([]byte(content), upload.WithFilename(filename))
	require.NoErrorf(t, err, "Failed making upload: %s", err)

	return up
}

package storage

import (
	"strings"
	"sync"

	"github.com/materials-commons/depot/pkg/clog"
	"github.com/materials-commons/depot/pkg/config"
	"github.com/materials-commons/depot/pkg/errs"
)

// AdapterFactory builds the service trio for one adapter type. Adapters
// register a factory at startup; storage definitions then reference the
// factory by its Name.
type AdapterFactory interface {
	// Name is the adapter type, eg "files:fs".
	Name() string

	// RequiredOptions lists adapter options that must be present.
	RequiredOptions() []string

	// SettingsKeys lists every adapter option, required or not, so
	// SettingsFromConfig knows which namespaced keys to read.
	SettingsKeys() []string

	// PrepareSettings may fill defaults before construction.
	PrepareSettings(s *Settings)

	// New constructs the service trio from validated settings.
	New(s Settings) (Uploader, Reader, Manager, error)
}

var (
	adaptersMu sync.Mutex
	adapters   = map[string]AdapterFactory{}

	storagesMu sync.Mutex
	storages   = map[string]*Storage{}
)

// RegisterAdapter adds a factory to the process-wide adapter registry,
// replacing any previous factory with the same name.
func RegisterAdapter(f AdapterFactory) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters[f.Name()] = f
}

func GetAdapter(name string) (AdapterFactory, error) {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()

	f, ok := adapters[name]
	if !ok {
		return nil, &errs.UnknownAdapterError{Adapter: name}
	}

	return f, nil
}

func ResetAdapters() {
	adaptersMu.Lock()
	defer adaptersMu.Unlock()
	adapters = map[string]AdapterFactory{}
}

// StorageFromSettings instantiates a configured storage: it looks the
// adapter up, runs its PrepareSettings hook, checks required options and
// builds the service trio.
func StorageFromSettings(s Settings) (*Storage, error) {
	factory, err := GetAdapter(s.Adapter)
	if err != nil {
		return nil, err
	}

	factory.PrepareSettings(&s)

	if err := s.RequireOptions(factory.RequiredOptions()...); err != nil {
		return nil, err
	}

	uploader, reader, manager, err := factory.New(s)
	if err != nil {
		if _, ok := err.(*errs.MissingAdapterConfigurationError); ok {
			return nil, err
		}
		return nil, &errs.InvalidAdapterConfigurationError{Adapter: s.Adapter, Reason: err.Error()}
	}

	return New(s, uploader, reader, manager), nil
}

// RegisterStorage adds a live storage instance to the process-wide
// storage registry.
func RegisterStorage(st *Storage) {
	storagesMu.Lock()
	defer storagesMu.Unlock()
	storages[st.Name()] = st
}

func GetStorage(name string) (*Storage, error) {
	storagesMu.Lock()
	defer storagesMu.Unlock()

	st, ok := storages[name]
	if !ok {
		return nil, &errs.UnknownStorageError{Storage: name}
	}

	return st, nil
}

func StorageNames() []string {
	storagesMu.Lock()
	defer storagesMu.Unlock()

	names := make([]string, 0, len(storages))
	for name := range storages {
		names = append(names, name)
	}

	return names
}

func ResetStorages() {
	storagesMu.Lock()
	defer storagesMu.Unlock()
	storages = map[string]*Storage{}
}

// SetupFromConfig builds and registers every storage listed in the
// DEPOT_STORAGES key (comma separated names). Each storage reads its
// options from DEPOT_STORAGE_<NAME>_* keys.
func SetupFromConfig(cfg config.Configer) error {
	namesKey := cfg.GetKey("DEPOT_STORAGES")
	if namesKey == "" {
		return &errs.MissingStorageConfigurationError{}
	}

	for _, name := range strings.Split(namesKey, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		adapterName := cfg.GetKey(config.StorageKey(name, "type"))
		factory, err := GetAdapter(adapterName)
		if err != nil {
			return err
		}

		settings, err := SettingsFromConfig(cfg, name, factory.SettingsKeys())
		if err != nil {
			return err
		}

		st, err := StorageFromSettings(settings)
		if err != nil {
			return err
		}

		RegisterStorage(st)
		clog.Global().WithField("storage", name).WithField("adapter", adapterName).Info("Registered storage")
	}

	return nil
}

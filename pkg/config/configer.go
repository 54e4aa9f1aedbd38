// Package config provides depot's configuration access. Storage definitions
// are namespaced keys of the form DEPOT_STORAGE_<NAME>_<OPTION>, eg
// DEPOT_STORAGE_DEFAULT_TYPE=files:fs. Two implementations exist, one
// backed by dotenv/environment and one backed by a map (used in tests).
package config

import "strings"

type Configer interface {
	LoadFromPath(path string) error
	Load() error
	GetKey(key string) string
	MustGetKey(key string) string
	GetKeyWithDefault(key, defaultValue string) string
	GetIntKey(key string) int
	GetIntKeyWithDefault(key string, defaultValue int) int
	GetInt64KeyWithDefault(key string, defaultValue int64) int64
	GetBoolKeyWithDefault(key string, defaultValue bool) bool
}

const storageKeyPrefix = "DEPOT_STORAGE"

// StorageKey builds the config key for a per-storage option, eg
// StorageKey("default", "type") == "DEPOT_STORAGE_DEFAULT_TYPE".
func StorageKey(storageName, option string) string {
	return storageKeyPrefix + "_" + strings.ToUpper(storageName) + "_" + strings.ToUpper(option)
}

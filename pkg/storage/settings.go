package storage

import (
	"strings"
	"time"

	"github.com/materials-commons/depot/pkg/config"
	"github.com/materials-commons/depot/pkg/errs"
	"github.com/materials-commons/depot/pkg/filesize"
	"github.com/materials-commons/depot/pkg/upload"
)

// Settings holds the per-storage options the core recognizes plus the
// adapter specific options in Options. A zero MaxSize disables the size
// cap.
type Settings struct {
	// Name is the configured storage name, eg "default".
	Name string

	// Adapter is the adapter type, eg "files:fs".
	Adapter string

	MaxSize          int64
	NameStrategy     string
	OverrideExisting bool
	SupportedTypes   []string
	PublicPrefix     string
	Timeout          time.Duration
	ChunkSize        int

	Options map[string]string
}

func (s Settings) Option(key string) string {
	return s.Options[key]
}

func (s Settings) OptionWithDefault(key, defaultValue string) string {
	if v, ok := s.Options[key]; ok && v != "" {
		return v
	}

	return defaultValue
}

// RequireOptions verifies every listed adapter option is present.
func (s Settings) RequireOptions(keys ...string) error {
	for _, key := range keys {
		if s.Options[key] == "" {
			return &errs.MissingAdapterConfigurationError{Adapter: s.Adapter, Option: key}
		}
	}

	return nil
}

func (s Settings) EffectiveChunkSize() int {
	if s.ChunkSize > 0 {
		return s.ChunkSize
	}

	return upload.DefaultChunkSize
}

// AllowsContentType checks the content type against the SupportedTypes
// patterns. Patterns are either exact types ("image/png"), globs
// ("image/*", "*") or prefixes ("image"). An empty list allows everything.
func (s Settings) AllowsContentType(contentType string) bool {
	if len(s.SupportedTypes) == 0 {
		return true
	}

	for _, pattern := range s.SupportedTypes {
		switch {
		case pattern == "*":
			return true
		case strings.HasSuffix(pattern, "/*"):
			if strings.HasPrefix(contentType, strings.TrimSuffix(pattern, "*")) {
				return true
			}
		case pattern == contentType:
			return true
		case strings.HasPrefix(contentType, pattern):
			return true
		}
	}

	return false
}

// SettingsFromConfig reads the namespaced options for storageName. The
// extraOptionKeys are the adapter specific keys to pull into Options; the
// adapter factory supplies them through its SettingsKeys.
func SettingsFromConfig(cfg config.Configer, storageName string, extraOptionKeys []string) (Settings, error) {
	s := Settings{
		Name:             storageName,
		Adapter:          cfg.GetKey(config.StorageKey(storageName, "type")),
		NameStrategy:     cfg.GetKeyWithDefault(config.StorageKey(storageName, "name_strategy"), NameStrategyUUID),
		OverrideExisting: cfg.GetBoolKeyWithDefault(config.StorageKey(storageName, "override_existing"), false),
		PublicPrefix:     cfg.GetKey(config.StorageKey(storageName, "public_prefix")),
		ChunkSize:        cfg.GetIntKeyWithDefault(config.StorageKey(storageName, "chunk_size"), 0),
		Options:          map[string]string{},
	}

	if maxSize := cfg.GetKey(config.StorageKey(storageName, "max_size")); maxSize != "" {
		parsed, err := filesize.Parse(maxSize)
		if err != nil {
			return s, &errs.InvalidAdapterConfigurationError{Adapter: s.Adapter, Reason: err.Error()}
		}
		s.MaxSize = parsed
	}

	if timeout := cfg.GetIntKeyWithDefault(config.StorageKey(storageName, "timeout"), 0); timeout > 0 {
		s.Timeout = time.Duration(timeout) * time.Second
	}

	if types := cfg.GetKey(config.StorageKey(storageName, "supported_types")); types != "" {
		for _, t := range strings.Split(types, ",") {
			if t = strings.TrimSpace(t); t != "" {
				s.SupportedTypes = append(s.SupportedTypes, t)
			}
		}
	}

	for _, key := range extraOptionKeys {
		if v := cfg.GetKey(config.StorageKey(storageName, key)); v != "" {
			s.Options[key] = v
		}
	}

	return s, nil
}

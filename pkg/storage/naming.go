package storage

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/hashicorp/go-uuid"
	"github.com/materials-commons/depot/pkg/errs"
)

// Location naming strategies. Every strategy yields names that are safe on
// all back-ends: generated parts contain no path separators and the
// original name is slugged before use.
const (
	NameStrategyUUID                  = "uuid"
	NameStrategyUUIDPrefix            = "uuid_prefix"
	NameStrategyUUIDWithExtension     = "uuid_with_extension"
	NameStrategyDatetimePrefix        = "datetime_prefix"
	NameStrategyDatetimeWithExtension = "datetime_with_extension"
)

// datetimeFormat is ISO-8601 basic format. The extended format has colons,
// which some back-ends reject in keys.
const datetimeFormat = "20060102T150405Z"

// MakeLocation produces the back-end key for a new upload from the
// configured strategy and the upload's original filename.
func MakeLocation(strategy, filename string) (string, error) {
	switch strategy {
	case NameStrategyUUID, "":
		return uuid.GenerateUUID()

	case NameStrategyUUIDPrefix:
		id, err := uuid.GenerateUUID()
		if err != nil {
			return "", err
		}
		return id + "-" + SanitizeName(filename), nil

	case NameStrategyUUIDWithExtension:
		id, err := uuid.GenerateUUID()
		if err != nil {
			return "", err
		}
		return id + extensionOf(filename), nil

	case NameStrategyDatetimePrefix:
		return time.Now().UTC().Format(datetimeFormat) + "-" + SanitizeName(filename), nil

	case NameStrategyDatetimeWithExtension:
		return time.Now().UTC().Format(datetimeFormat) + extensionOf(filename), nil

	default:
		return "", &errs.NameStrategyError{Strategy: strategy}
	}
}

// SanitizeName slugs the base of name while keeping its extension, so
// "My Report.PDF" becomes "my-report.pdf". Path separators never survive.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	ext := extensionOf(name)
	base := slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
	if base == "" {
		base = "file"
	}

	return base + ext
}

// extensionOf returns the lower cased extension including the dot, or ""
// when name has none.
func extensionOf(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "." {
		return ""
	}

	return ext
}

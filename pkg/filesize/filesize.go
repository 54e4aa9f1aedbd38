// Package filesize parses and formats human readable byte sizes as they
// appear in storage configuration, e.g. "1 KiB", "5mb", "0.7 mib". SI units
// are powers of 10, IEC units powers of 2, a bare number is bytes.
package filesize

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

var knownUnits = map[string]bool{
	"":    true,
	"b":   true,
	"kb":  true,
	"mb":  true,
	"gb":  true,
	"tb":  true,
	"kib": true,
	"mib": true,
	"gib": true,
	"tib": true,
}

// Parse converts a human readable size into a byte count. Sizes larger than
// tebibytes and units not in the grammar are rejected.
func Parse(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("cannot parse empty filesize")
	}

	unit := unitOf(trimmed)
	if !knownUnits[unit] {
		return 0, fmt.Errorf("unknown filesize unit %q in %q", unit, s)
	}

	n, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("cannot parse filesize %q: %s", s, err)
	}

	return int64(n), nil
}

// Format renders n using IEC units, so Parse(Format(n)) stays within one
// unit of n.
func Format(n int64) string {
	if n < 0 {
		n = 0
	}

	return humanize.IBytes(uint64(n))
}

// FormatSI renders n using SI units (powers of 10).
func FormatSI(n int64) string {
	if n < 0 {
		n = 0
	}

	return humanize.Bytes(uint64(n))
}

// unitOf returns the trailing non-numeric portion of s, lower cased.
func unitOf(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= '0' && c <= '9' || c == '.' {
			break
		}
		i--
	}

	return strings.ToLower(strings.TrimSpace(s[i:]))
}

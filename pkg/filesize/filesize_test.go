package filesize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1b", 1},
		{"1 KiB", 1024},
		{"5mb", 5 * 1000 * 1000},
		{"0.7 mib", 734003},
		{"10", 10},
		{"1 tb", 1000 * 1000 * 1000 * 1000},
		{"2 GIB", 2 * 1024 * 1024 * 1024},
	}

	for _, test := range tests {
		got, err := Parse(test.in)
		require.NoErrorf(t, err, "Parse(%q) failed: %s", test.in, err)
		require.Equalf(t, test.want, got, "Parse(%q)", test.in)
	}
}

func TestParseRejectsUnknownUnits(t *testing.T) {
	for _, in := range []string{"1 flop", "1 pb", "1 eib", "12 kbs", "abc", ""} {
		_, err := Parse(in)
		require.Errorf(t, err, "Parse(%q) should have failed", in)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 1024, 16 * 1024, 5 * 1024 * 1024, 3 * 1024 * 1024 * 1024} {
		got, err := Parse(Format(n))
		require.NoErrorf(t, err, "round trip of %d failed: %s", n, err)
		require.Equalf(t, n, got, "round trip of %d", n)
	}
}

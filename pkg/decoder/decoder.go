// Package decoder converts the plain key/value maps that cross the
// action surface into typed values. Decoding is strict: keys the target
// type doesn't declare are an error, so callers find out about a
// misspelled param instead of silently losing it.
package decoder

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeMapStrict decodes params into T, refusing keys T does not
// declare.
func DecodeMapStrict[T any](params map[string]any) (T, error) {
	var out T

	b, err := json.Marshal(params)
	if err != nil {
		return out, fmt.Errorf("failed to encode params: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode params: %w", err)
	}

	return out, nil
}

package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tmlink/internal/ir"
)

// marshalList stores a string list as canonical JSON TEXT.
func marshalList(ss []string) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(ss))
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

// unmarshalList reads a list written by marshalList. Empty lists come back
// as empty, non-nil slices.
func unmarshalList(s string) ([]string, error) {
	out := []string{}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}

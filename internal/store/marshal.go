package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/liverange/internal/ir"
)

// marshalWarnings converts warnings to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalWarnings(warnings []string) (string, error) {
	if warnings == nil {
		warnings = []string{}
	}
	data, err := ir.MarshalCanonical(warnings)
	if err != nil {
		return "", fmt.Errorf("marshal warnings: %w", err)
	}
	return string(data), nil
}

// unmarshalWarnings parses a stored warnings column. Empty input yields an
// empty, non-nil slice.
func unmarshalWarnings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var warnings []string
	if err := json.Unmarshal([]byte(data), &warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	return warnings, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package testutil

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// volatileFields differ between two loads of the same document.
var volatileFields = map[string]bool{
	"generated":  true,
	"loadedAt":   true,
	"startedAt":  true,
	"duration":   true,
	"durationMs": true,
	"timestamp":  true,
	"uptime":     true,
	"requestId":  true,
}

// Normalize converts data to generic JSON values, drops volatile fields and
// replaces root in strings with "<root>". Element order is kept.
func Normalize(t *testing.T, data any, root string) any {
	t.Helper()

	// Deep copy via JSON round-trip to avoid modifying the original
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}
	return normalizeValue(generic, root)
}

// MarshalNormalized normalizes data and marshals it to stable, indented JSON
// with a trailing newline. encoding/json sorts map keys; HTML characters are
// written as-is so the "<root>" placeholder stays readable.
func MarshalNormalized(t *testing.T, data any, root string) []byte {
	t.Helper()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Normalize(t, data, root)); err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return buf.Bytes()
}

func normalizeValue(v any, root string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if volatileFields[k] {
				continue
			}
			out[k] = normalizeValue(item, root)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item, root)
		}
		return out
	case string:
		if root != "" {
			val = strings.ReplaceAll(val, root, "<root>")
		}
		return strings.ReplaceAll(val, "\\", "/")
	default:
		return v
	}
}

package instrument

import (
	"encoding/json"
	"strings"
)

// Masked replaces a sensitive value in logs.
const Masked = "***"

// MaskKeys normalises field names into a lookup set.
func MaskKeys(fields []string) map[string]struct{} {
	keys := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(strings.ToLower(field))
		if field != "" {
			keys[field] = struct{}{}
		}
	}

	return keys
}

// IsMasked reports whether key (case-insensitive) is in keys.
func IsMasked(key string, keys map[string]struct{}) bool {
	_, ok := keys[strings.ToLower(key)]
	return ok
}

// MaskValue walks decoded JSON (maps and slices) and masks values under
// sensitive keys. Other values are returned unchanged.
func MaskValue(v any, keys map[string]struct{}) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if IsMasked(k, keys) {
				out[k] = Masked
				continue
			}
			out[k] = MaskValue(inner, keys)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if IsMasked(k, keys) {
				out[k] = Masked
				continue
			}
			out[k] = inner
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = MaskValue(inner, keys)
		}
		return out
	default:
		return v
	}
}

// MaskJSON masks a JSON document. ok is false when payload is not a JSON
// object or array.
func MaskJSON(payload []byte, keys map[string]struct{}) (string, bool) {
	if len(payload) == 0 || (payload[0] != '{' && payload[0] != '[') {
		return "", false
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", false
	}

	out, err := json.Marshal(MaskValue(doc, keys))
	if err != nil {
		return "", false
	}

	return string(out), true
}

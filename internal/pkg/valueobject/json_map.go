// Package valueobject holds small value types shared by persistence adapters.
package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ErrUnsupportedScan is returned when a driver hands JSONMap a value it
// cannot decode.
var ErrUnsupportedScan = errors.New("valueobject: unsupported JSONMap scan source")

// JSONMap is a free-form JSON object stored in a jsonb column.
type JSONMap map[string]any

// Value encodes a nil map as an empty object so the column never holds null.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(map[string]any(j))
}

func (j *JSONMap) Scan(src any) error {
	var raw []byte

	switch v := src.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case map[string]any:
		*j = JSONMap(v)
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrUnsupportedScan
	}

	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}

	*j = out
	return nil
}

// String returns the string at key, or "".
func (j JSONMap) String(key string) string {
	s, _ := j[key].(string)
	return s
}

// Int64 returns the number at key, accepting the float64 JSON decoding yields.
func (j JSONMap) Int64(key string) int64 {
	switch v := j[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

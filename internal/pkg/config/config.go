// Package config exposes typed access to the service configuration.
package config

import (
	"io"
	"time"
)

// DurationConfig reads integer values and scales them into durations.
type DurationConfig interface {
	// GetSecond reads key as a number of seconds. Missing keys yield zero.
	GetSecond(key string) time.Duration

	// GetMinute reads key as a number of minutes. Missing keys yield zero.
	GetMinute(key string) time.Duration
}

// NumberConfig reads numeric values.
type NumberConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetFloat64(key string) float64
}

// Config is the read side of the loaded configuration.
//
// Implementations return the zero value for missing or malformed keys; callers
// that need a fallback apply it themselves (see IntOr and DurationOr).
type Config interface {
	io.Closer
	DurationConfig
	NumberConfig

	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte

	// GetArray reads a list, or splits a comma separated string. Elements are
	// trimmed and blanks dropped.
	GetArray(key string) []string

	// GetMap parses "k1:v1,k2:v2" pairs.
	GetMap(key string) map[string]string

	// IsSet reports whether key has a value from the file or the environment.
	IsSet(key string) bool
}

// IntOr returns the int at key, or def when the key is unset or not positive.
func IntOr(c Config, key string, def int) int {
	if !c.IsSet(key) {
		return def
	}
	if v := c.GetInt(key); v > 0 {
		return v
	}

	return def
}

// DurationOr applies unit to the int at key, or returns def when unset or not positive.
func DurationOr(c Config, key string, unit, def time.Duration) time.Duration {
	if !c.IsSet(key) {
		return def
	}
	if v := c.GetInt64(key); v > 0 {
		return time.Duration(v) * unit
	}

	return def
}

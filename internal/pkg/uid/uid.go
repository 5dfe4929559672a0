// Package uid generates identifiers: UUIDv7 strings for correlation and
// record ids, and snowflake int64 ids for relational primary keys.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates int64 identifiers.
type NumberID interface {
	Generate() int64
}

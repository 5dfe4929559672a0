// Package migrations embeds the Postgres schema.
package migrations

import "embed"

// Dir is the directory inside FS holding the SQL files.
const Dir = "sql"

//go:embed sql/*.sql
var FS embed.FS

// Package migrations embeds the goose migrations for every ledger backend.
package migrations

import "embed"

//go:embed sqlite/*.sql clickhouse/*.sql
var FS embed.FS

// Directories inside FS, one per goose dialect
const (
	SQLiteDir     = "sqlite"
	ClickHouseDir = "clickhouse"
)

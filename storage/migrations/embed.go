// Package migrations embeds the goose schema migrations of the SQL session stores.
package migrations

import "embed"

// Postgres holds the migrations applied by the PostgreSQL store, rooted at "postgres".
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the migrations applied by the SQLite store, rooted at "sqlite".
//
//go:embed sqlite/*.sql
var SQLite embed.FS

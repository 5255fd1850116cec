// ABOUTME: Embedded Postgres migration files for the menu cache.
// ABOUTME: Mirrors the SQLite migrations with Postgres column types.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

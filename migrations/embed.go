// Package migrations embeds the SQL migrations of the Postgres tag store.
package migrations

import "embed"

// FS holds all *.sql migration files.
//
//go:embed *.sql
var FS embed.FS

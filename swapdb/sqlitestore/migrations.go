package sqlitestore

import "embed"

// migrationsFS embeds the schema migrations applied by New, following the
// golang-migrate iofs source convention.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

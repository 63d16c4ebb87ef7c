package db

import "embed"

// MigrationFS holds the schema migrations compiled into the binary, so
// cmd/migrate needs no filesystem access to the repo at run time.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS

package migrations

import "embed"

// FS embeds the goose migrations for the PostgreSQL storage layer.
//
//go:embed *.sql
var FS embed.FS

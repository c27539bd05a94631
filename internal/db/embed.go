package db

import "embed"

// EmbedMigrations contains the metadata schema migrations.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS

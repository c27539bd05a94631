package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"trackerql/internal/metadata"
)

// SeedMetadataFile loads a YAML metadata fixture into the metadata database.
// An empty path is a no-op.
func SeedMetadataFile(ctx context.Context, db *sql.DB, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return fmt.Errorf("read metadata file: %w", err)
	}
	if err := metadata.Seed(ctx, db, data); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	return nil
}

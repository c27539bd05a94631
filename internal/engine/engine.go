// Package engine connects to the analytics database and runs compiled
// queries and EXPLAIN ANALYZE requests against it.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverDuckDB   = "duckdb"
)

// Open opens and pings the analytics database. An empty DuckDB dsn opens
// an in-memory database.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres requires a connection string")
		}
	case DriverDuckDB:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

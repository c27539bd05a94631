// Package db opens the SQLite metadata database and applies its schema.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// Mode selects how a SQLite pool is configured.
type Mode string

// Pool modes. A write pool holds a single connection and takes the write
// lock when a transaction begins; a read pool allows concurrent readers.
const (
	ModeWrite Mode = "write"
	ModeRead  Mode = "read"
)

const (
	defaultBusyTimeout = "5000" // ms
	defaultReadConns   = 4
)

// OpenSQLite opens a pool for the SQLite file at path. maxOpen sizes a read
// pool; 0 selects the default of 4. WAL journaling, a 5s busy timeout and
// foreign keys are enabled in both modes.
func OpenSQLite(path string, mode Mode, maxOpen int) (*sql.DB, error) {
	switch mode {
	case ModeWrite:
		maxOpen = 1
	case ModeRead:
		if maxOpen <= 0 {
			maxOpen = defaultReadConns
		}
	default:
		return nil, fmt.Errorf("invalid SQLite mode %q: must be %q or %q", mode, ModeRead, ModeWrite)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return db, nil
}

// OpenSQLitePair opens a write pool and a read pool on the same file.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, ModeWrite, 0)
	if err != nil {
		return nil, nil, err
	}
	readDB, err = OpenSQLite(path, ModeRead, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func buildDSN(path string, mode Mode) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", defaultBusyTimeout)
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}

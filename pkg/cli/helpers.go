package cli

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trackerql/internal/app"
	"trackerql/internal/config"
	"trackerql/internal/db"
	"trackerql/internal/service/analytics"
)

// readInput reads path, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// readRequest decodes a YAML (or JSON) request file.
func readRequest(cmd *cobra.Command, path string) (analytics.QueryRequest, error) {
	var req analytics.QueryRequest
	data, err := readInput(cmd, path)
	if err != nil {
		return req, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("parse request: %w", err)
	}
	return req, nil
}

// newLogger logs to stderr so that stdout carries only command output.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// metadataDB is an open, migrated metadata database.
type metadataDB struct {
	write, read *sql.DB
	tmpDir      string
}

func (m *metadataDB) Close() {
	_ = m.read.Close()
	_ = m.write.Close()
	if m.tmpDir != "" {
		_ = os.RemoveAll(m.tmpDir)
	}
}

// openMetadata opens and migrates the metadata database and loads the
// fixture at seedFile into it. With a seed file and no explicit database
// path the catalog lives in a temporary file for the command's lifetime.
func openMetadata(ctx context.Context, path, seedFile string) (*metadataDB, error) {
	m := &metadataDB{}
	if path == "" {
		dir, err := os.MkdirTemp("", "trackerql-meta-*")
		if err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
		m.tmpDir = dir
		path = filepath.Join(dir, "meta.sqlite")
	}

	var err error
	m.write, m.read, err = db.OpenSQLitePair(path, 0)
	if err != nil {
		if m.tmpDir != "" {
			_ = os.RemoveAll(m.tmpDir)
		}
		return nil, err
	}
	if err := db.RunMigrations(m.write); err != nil {
		m.Close()
		return nil, err
	}
	if err := app.SeedMetadataFile(ctx, m.write, seedFile); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// metadataPath picks the metadata database for a command: a temporary one
// when a fixture is given, otherwise the configured file.
func metadataPath(cfg *config.Config, seedFile string) string {
	if seedFile != "" {
		return ""
	}
	return cfg.MetaDBPath
}

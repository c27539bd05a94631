package engine

import (
	"context"
	"database/sql"
	"fmt"

	"trackerql/internal/domain"
)

// Compile-time check.
var _ domain.QueryExecutor = (*Executor)(nil)

// Executor runs compiled queries and collects their rows.
type Executor struct {
	db *sql.DB
}

// NewExecutor creates an Executor on db.
func NewExecutor(db *sql.DB) *Executor {
	return &Executor{db: db}
}

// Query executes sql with positional parameters. Byte values are returned
// as strings so results encode as JSON text.
func (e *Executor) Query(ctx context.Context, query string, args ...any) (*domain.QueryResult, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) (*domain.QueryResult, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	result := &domain.QueryResult{Columns: cols, Rows: [][]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	result.RowCount = len(result.Rows)
	return result, nil
}

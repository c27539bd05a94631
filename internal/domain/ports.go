package domain

import "context"

// MetadataCatalog resolves request identifiers against program metadata.
// Implemented by metadata.Store.
type MetadataCatalog interface {
	ResolveDimension(ctx context.Context, id DimensionIdentifier) (ResolvedDimension, error)
	TrackedEntityType(ctx context.Context, uid string) (*TrackedEntityType, error)
}

// QueryExecutor runs compiled SQL with positional bind parameters.
// Implemented by engine.Executor.
type QueryExecutor interface {
	Query(ctx context.Context, sql string, args ...any) (*QueryResult, error)
}

// QueryResult holds the rows of an executed query.
type QueryResult struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}

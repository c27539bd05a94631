package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"trackerql/internal/planstore"
)

// ExplainAnalyzeJSON prefixes a statement to get its executed plan as JSON.
const ExplainAnalyzeJSON = "EXPLAIN (ANALYZE, FORMAT JSON) "

// Compile-time check.
var _ planstore.Analyzer = (*Analyzer)(nil)

// Analyzer runs EXPLAIN ANALYZE and returns the plan document. It imposes
// no timeout; callers bound latency through ctx.
type Analyzer struct {
	db      *sql.DB
	prefix  string
	limiter *rate.Limiter
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithRateLimit allows at most perSecond analyze calls per second. Zero
// or less disables throttling.
func WithRateLimit(perSecond float64) AnalyzerOption {
	return func(a *Analyzer) {
		if perSecond > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithExplainPrefix replaces the EXPLAIN prefix for engines with a
// different syntax.
func WithExplainPrefix(prefix string) AnalyzerOption {
	return func(a *Analyzer) { a.prefix = prefix }
}

// NewAnalyzer creates an Analyzer on db.
func NewAnalyzer(db *sql.DB, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{db: db, prefix: ExplainAnalyzeJSON}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Explain executes the statement under EXPLAIN and returns the first column
// of the first row.
func (a *Analyzer) Explain(ctx context.Context, query string, args ...any) ([]byte, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("explain throttled: %w", err)
		}
	}

	var plan []byte
	err := a.db.QueryRowContext(ctx, a.prefix+query, args...).Scan(&plan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("explain analyze: %w", err)
	}
	return plan, nil
}

// Package sqlrewrite optimizes generated analytics SQL by turning
// correlated scalar subqueries over event and relationship tables into
// CTEs that are computed once and joined on the correlation key.
//
// Statements are parsed with sqlparse, rewritten in place and formatted
// back. Anything the patterns do not fully recognize is left untouched.
package sqlrewrite

import (
	"fmt"
	"log/slog"
	"strings"

	"trackerql/internal/sqlparse"
)

// Optimizer applies the CTE rewrite to SQL text.
type Optimizer struct {
	rewriter *Rewriter
	logger   *slog.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithLogger sets the logger used for rewrite diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) { o.logger = logger }
}

// WithRegistry replaces the default pattern registry.
func WithRegistry(registry *Registry) Option {
	return func(o *Optimizer) { o.rewriter = NewRewriter(registry) }
}

// NewOptimizer returns an Optimizer with the default patterns.
func NewOptimizer(opts ...Option) *Optimizer {
	o := &Optimizer{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.rewriter == nil {
		o.rewriter = NewRewriter(NewRegistry())
	}
	return o
}

// Patterns returns the names of the patterns tried, in match order.
func (o *Optimizer) Patterns() []string {
	patterns := o.rewriter.registry.Patterns()
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.Name()
	}
	return names
}

// Optimize returns the rewritten SQL, or sql unchanged when it cannot be
// parsed or contains nothing to rewrite.
func (o *Optimizer) Optimize(sql string) string {
	res, ok := o.Rewrite(sql)
	if !ok {
		return sql
	}
	return res.SQL
}

// Rewrite is Optimize with the generated CTEs. ok is false when the input
// was returned unchanged.
func (o *Optimizer) Rewrite(sql string) (res Result, ok bool) {
	// Never fail the query path.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("cte rewrite panic", "panic", fmt.Sprint(r))
			res, ok = Result{SQL: sql}, false
		}
	}()

	if strings.TrimSpace(sql) == "" {
		return Result{SQL: sql}, false
	}
	stmt, err := sqlparse.ParseSelect(sql)
	if err != nil {
		o.logger.Debug("cte rewrite skipped", "error", err)
		return Result{SQL: sql}, false
	}
	res, err = o.rewriter.Rewrite(stmt)
	if err != nil {
		o.logger.Debug("cte rewrite skipped", "error", err)
		return Result{SQL: sql}, false
	}
	if len(res.CTEs) == 0 {
		return Result{SQL: sql}, false
	}

	names := make([]string, len(res.CTEs))
	for i, c := range res.CTEs {
		names[i] = c.CanonicalName
	}
	o.logger.Debug("cte rewrite applied", "ctes", names, "tables", sqlparse.CollectTableNames(stmt))
	return res, true
}

package sqlrewrite

import (
	"trackerql/internal/sqlparse"
)

// DefaultOuterAlias is the alias program indicator subqueries correlate to.
const DefaultOuterAlias = "subax"

// Pattern recognizes one family of correlated scalar subqueries that can
// be computed once per correlation key in a CTE. Match is read-only and
// reports false for any shape it does not fully recognize.
type Pattern interface {
	Name() string
	Match(sel *sqlparse.SelectStmt) (FoundSubSelect, bool)
}

// FoundSubSelect describes a recognized subquery and the CTE replacing it.
type FoundSubSelect struct {
	// CanonicalName is the CTE name, e.g. de_count_fCXKBdc27Bt.
	CanonicalName string
	// CTEColumnReference is the CTE column that holds the subquery's value.
	CTEColumnReference string
	Metadata           map[string]string

	// Definition is the CTE body.
	Definition *sqlparse.SelectStmt
	// JoinAlias is the alias the CTE is joined under.
	JoinAlias string
	// OuterColumn is the correlated column of the outer alias.
	OuterColumn string
	// CTEJoinColumn is the CTE column joined against OuterColumn.
	CTEJoinColumn string
	// CoalesceZero replaces a missing CTE row with 0, as a count over no rows would.
	CoalesceZero bool

	valueColumn sqlparse.Ident
}

// ValueColumn returns the CTE column holding the value as an identifier.
func (f FoundSubSelect) ValueColumn() sqlparse.Ident {
	if f.valueColumn.IsZero() {
		return sqlparse.Plain(f.CTEColumnReference)
	}
	return f.valueColumn
}

// OutputColumns returns the columns the CTE exposes.
func (f FoundSubSelect) OutputColumns() []sqlparse.Ident {
	return []sqlparse.Ident{sqlparse.Plain(f.CTEJoinColumn), f.ValueColumn()}
}

// Registry is the ordered list of patterns tried against each subquery.
type Registry struct {
	outer    string
	patterns []Pattern
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithOuterAlias sets the alias subqueries must correlate to.
func WithOuterAlias(alias string) RegistryOption {
	return func(r *Registry) { r.outer = alias }
}

// WithPatterns replaces the default patterns.
func WithPatterns(patterns ...Pattern) RegistryOption {
	return func(r *Registry) { r.patterns = patterns }
}

// NewRegistry returns a registry with the data element count, last event
// value and relationship count patterns.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{outer: DefaultOuterAlias}
	for _, opt := range opts {
		opt(r)
	}
	if r.patterns == nil {
		r.patterns = []Pattern{
			DataElementCountPattern{OuterAlias: r.outer},
			LastEventValuePattern{OuterAlias: r.outer},
			RelationshipCountPattern{OuterAlias: r.outer},
		}
	}
	return r
}

// OuterAlias returns the correlation alias.
func (r *Registry) OuterAlias() string { return r.outer }

// Patterns returns the patterns in match order.
func (r *Registry) Patterns() []Pattern { return r.patterns }

// Match returns the first pattern match for sel.
func (r *Registry) Match(sel *sqlparse.SelectStmt) (FoundSubSelect, bool) {
	for _, p := range r.patterns {
		if found, ok := p.Match(sel); ok {
			return found, true
		}
	}
	return FoundSubSelect{}, false
}

package sqlrewrite

import (
	"errors"
	"fmt"
	"strings"

	"trackerql/internal/sqlparse"
)

// Result is a rewritten statement and the CTEs that were added to it.
type Result struct {
	SQL  string
	CTEs []FoundSubSelect
}

// Rewriter replaces matched correlated subqueries with joins against CTEs.
type Rewriter struct {
	registry *Registry
}

// NewRewriter returns a Rewriter using the registry's patterns.
func NewRewriter(registry *Registry) *Rewriter {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Rewriter{registry: registry}
}

// Rewrite mutates stmt in place. Scalar subqueries in cores selecting from
// the outer alias are replaced by a column of a generated CTE that is
// LEFT JOINed on the correlation key. The CTEs are prepended to the
// statement's WITH clause. Subqueries no pattern recognizes are kept as is.
func (r *Rewriter) Rewrite(stmt *sqlparse.SelectStmt) (Result, error) {
	if stmt == nil || stmt.Body == nil {
		return Result{}, errors.New("rewrite: empty statement")
	}
	outer := r.registry.OuterAlias()
	ctes := newCTESet(stmt)

	for _, sc := range sqlparse.Cores(stmt) {
		if !selectsFrom(sc, outer) {
			continue
		}
		var joined []*generatedCTE
		seen := map[*generatedCTE]bool{}
		sqlparse.RewriteCoreExprs(sc, func(e sqlparse.Expr) (sqlparse.Expr, bool) {
			sub, ok := e.(*sqlparse.SubqueryExpr)
			if !ok {
				return nil, false
			}
			found, ok := r.registry.Match(sub.Select)
			if !ok {
				return nil, false
			}
			g := ctes.add(found)
			if !seen[g] {
				seen[g] = true
				joined = append(joined, g)
			}
			return g.found.replacement(), true
		})
		if len(joined) == 0 {
			continue
		}
		addJoins(sc, outer, joined)
		qualifyAmbiguous(sc, outer, joined)
	}

	if len(ctes.ordered) == 0 {
		return Result{SQL: sqlparse.Format(stmt)}, nil
	}

	generated := make([]*sqlparse.CTE, 0, len(ctes.ordered))
	found := make([]FoundSubSelect, 0, len(ctes.ordered))
	for _, g := range ctes.ordered {
		generated = append(generated, &sqlparse.CTE{Name: sqlparse.Plain(g.found.CanonicalName), Select: g.found.Definition})
		found = append(found, g.found)
	}
	if stmt.With == nil {
		stmt.With = &sqlparse.WithClause{}
	}
	stmt.With.CTEs = append(generated, stmt.With.CTEs...)

	return Result{SQL: sqlparse.Format(stmt), CTEs: found}, nil
}

// selectsFrom reports whether the core's primary FROM source is the alias.
func selectsFrom(sc *sqlparse.SelectCore, alias string) bool {
	if sc.From == nil {
		return false
	}
	switch src := sc.From.Source.(type) {
	case *sqlparse.TableName:
		return src.RefName().Is(alias)
	case *sqlparse.DerivedTable:
		return src.Alias.Is(alias)
	}
	return false
}

// replacement is the expression standing in for the subquery.
func (f FoundSubSelect) replacement() sqlparse.Expr {
	ref := qualified(f.JoinAlias, f.ValueColumn())
	if !f.CoalesceZero {
		return ref
	}
	return &sqlparse.FuncCall{
		Name: "coalesce",
		Args: []sqlparse.Expr{ref, &sqlparse.Literal{Type: sqlparse.LiteralNumber, Value: "0"}},
	}
}

// addJoins places the CTE joins directly after the outer source so the
// outer alias is in scope for their ON conditions.
func addJoins(sc *sqlparse.SelectCore, outer string, joined []*generatedCTE) {
	joins := make([]*sqlparse.Join, 0, len(joined)+len(sc.From.Joins))
	for _, g := range joined {
		f := g.found
		joins = append(joins, &sqlparse.Join{
			Type:  sqlparse.JoinLeft,
			Right: &sqlparse.TableName{Name: sqlparse.Plain(f.CanonicalName), Alias: sqlparse.Plain(f.JoinAlias)},
			Condition: eq(
				qualified(outer, sqlparse.Plain(f.OuterColumn)),
				qualified(f.JoinAlias, sqlparse.Plain(f.CTEJoinColumn)),
			),
		})
	}
	sc.From.Joins = append(joins, sc.From.Joins...)
}

// qualifyAmbiguous prefixes bare column references that a joined CTE also
// exposes with the outer alias, which is what they resolved to before.
func qualifyAmbiguous(sc *sqlparse.SelectCore, outer string, joined []*generatedCTE) {
	exposed := map[string]bool{}
	for _, g := range joined {
		for _, c := range g.found.OutputColumns() {
			exposed[c.Folded()] = true
		}
	}
	sqlparse.RewriteCoreExprs(sc, func(e sqlparse.Expr) (sqlparse.Expr, bool) {
		ref, ok := e.(*sqlparse.ColumnRef)
		if !ok || !ref.Table.IsZero() || !exposed[ref.Column.Folded()] {
			return nil, false
		}
		return qualified(outer, ref.Column), true
	})
}

// === CTE naming ===

// cteSet assigns CTE names across one statement. Identical definitions
// share a CTE; different definitions under the same canonical name get a
// numeric suffix starting at _2.
type cteSet struct {
	taken   map[string]bool
	byBase  map[string][]*generatedCTE
	ordered []*generatedCTE
}

type generatedCTE struct {
	found      FoundSubSelect
	definition string
}

func newCTESet(stmt *sqlparse.SelectStmt) *cteSet {
	s := &cteSet{taken: map[string]bool{}, byBase: map[string][]*generatedCTE{}}
	sqlparse.Walk(stmt, func(n sqlparse.Node) bool {
		switch v := n.(type) {
		case *sqlparse.SelectStmt:
			if v.With != nil {
				for _, cte := range v.With.CTEs {
					s.taken[cte.Name.Folded()] = true
				}
			}
		case *sqlparse.TableName:
			s.taken[v.RefName().Folded()] = true
		case *sqlparse.DerivedTable:
			s.taken[v.Alias.Folded()] = true
		}
		return true
	})
	return s
}

func (s *cteSet) add(found FoundSubSelect) *generatedCTE {
	base := found.CanonicalName
	def := sqlparse.Format(found.Definition)
	for _, g := range s.byBase[base] {
		if g.definition == def {
			return g
		}
	}

	name, alias := base, found.JoinAlias
	for n := 2; s.taken[strings.ToLower(name)] || s.taken[strings.ToLower(alias)]; n++ {
		name = fmt.Sprintf("%s_%d", base, n)
		alias = fmt.Sprintf("%s_%d", found.JoinAlias, n)
	}
	s.taken[strings.ToLower(name)] = true
	s.taken[strings.ToLower(alias)] = true

	found.CanonicalName, found.JoinAlias = name, alias
	g := &generatedCTE{found: found, definition: def}
	s.byBase[base] = append(s.byBase[base], g)
	s.ordered = append(s.ordered, g)
	return g
}

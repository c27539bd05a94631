package sqlrewrite

import (
	"strings"

	"trackerql/internal/sqlparse"
)

// === Shape helpers ===

// plainCore returns the only core of a single-column SELECT with one FROM
// table and no CTEs, set operations, grouping or offset.
func plainCore(sel *sqlparse.SelectStmt) (*sqlparse.SelectCore, *sqlparse.TableName, bool) {
	if sel == nil || sel.Body == nil || sel.Body.Left == nil || sel.Body.Op != sqlparse.SetOpNone {
		return nil, nil, false
	}
	if sel.With != nil && len(sel.With.CTEs) > 0 {
		return nil, nil, false
	}
	sc := sel.Body.Left
	if sc.Distinct || len(sc.GroupBy) > 0 || sc.Having != nil || sc.Offset != nil {
		return nil, nil, false
	}
	if len(sc.Columns) != 1 || sc.From == nil || len(sc.From.Joins) > 0 {
		return nil, nil, false
	}
	table, ok := sc.From.Source.(*sqlparse.TableName)
	if !ok || table.Name.IsZero() {
		return nil, nil, false
	}
	return sc, table, true
}

func isEventTable(t *sqlparse.TableName) bool {
	return strings.HasPrefix(t.Name.Folded(), "analytics_event_")
}

// ownColumn returns the column of e when e references a column of table t.
// Unqualified references are accepted when allowBare is set.
func ownColumn(e sqlparse.Expr, t *sqlparse.TableName, allowBare bool) (sqlparse.Ident, bool) {
	ref, ok := sqlparse.Unparen(e).(*sqlparse.ColumnRef)
	if !ok {
		return sqlparse.Ident{}, false
	}
	if ref.Table.IsZero() {
		return ref.Column, allowBare
	}
	if ref.Table.Equal(t.RefName()) || ref.Table.Equal(t.Name) {
		return ref.Column, true
	}
	return sqlparse.Ident{}, false
}

func isOwnColumn(e sqlparse.Expr, t *sqlparse.TableName, name sqlparse.Ident) bool {
	c, ok := ownColumn(e, t, true)
	return ok && c.Equal(name)
}

func isOuterColumn(e sqlparse.Expr, outer, column string) bool {
	ref, ok := sqlparse.Unparen(e).(*sqlparse.ColumnRef)
	return ok && ref.Table.Is(outer) && ref.Column.Is(column)
}

// isCorrelation matches <t>.<inner> = <outer>.<outerCol> in either order.
// The inner side must be qualified so it cannot resolve to the outer row.
func isCorrelation(e sqlparse.Expr, t *sqlparse.TableName, inner, outer, outerCol string) bool {
	bin, ok := sqlparse.Unparen(e).(*sqlparse.BinaryExpr)
	if !ok || bin.Op != sqlparse.TOKEN_EQ {
		return false
	}
	check := func(l, r sqlparse.Expr) bool {
		c, ok := ownColumn(l, t, false)
		return ok && c.Is(inner) && isOuterColumn(r, outer, outerCol)
	}
	return check(bin.Left, bin.Right) || check(bin.Right, bin.Left)
}

// isNotNullOf matches <col> IS NOT NULL.
func isNotNullOf(e sqlparse.Expr, t *sqlparse.TableName, col sqlparse.Ident) bool {
	n, ok := sqlparse.Unparen(e).(*sqlparse.IsNullExpr)
	return ok && n.Not && isOwnColumn(n.Expr, t, col)
}

// constant returns e when it is a string or number literal or a bind
// parameter, with its text for metadata.
func constant(e sqlparse.Expr) (sqlparse.Expr, string, bool) {
	switch v := sqlparse.Unparen(e).(type) {
	case *sqlparse.Literal:
		if v.Type == sqlparse.LiteralString || v.Type == sqlparse.LiteralNumber {
			return v, v.Value, true
		}
	case *sqlparse.ParamExpr:
		return v, v.Name, true
	case *sqlparse.UnaryExpr:
		if lit, ok := v.Expr.(*sqlparse.Literal); ok && v.Op == sqlparse.TOKEN_MINUS && lit.Type == sqlparse.LiteralNumber {
			return v, "-" + lit.Value, true
		}
	}
	return nil, "", false
}

// equalsConstant matches <col> = <constant> in either order.
func equalsConstant(e sqlparse.Expr, t *sqlparse.TableName, col sqlparse.Ident) (sqlparse.Expr, string, bool) {
	bin, ok := sqlparse.Unparen(e).(*sqlparse.BinaryExpr)
	if !ok || bin.Op != sqlparse.TOKEN_EQ {
		return nil, "", false
	}
	if isOwnColumn(bin.Left, t, col) {
		return constant(bin.Right)
	}
	if isOwnColumn(bin.Right, t, col) {
		return constant(bin.Left)
	}
	return nil, "", false
}

// isLimitOne matches LIMIT 1.
func isLimitOne(e sqlparse.Expr) bool {
	lit, ok := e.(*sqlparse.Literal)
	return ok && lit.Type == sqlparse.LiteralNumber && lit.Value == "1"
}

// === AST builders ===

func bare(name string) *sqlparse.ColumnRef {
	return &sqlparse.ColumnRef{Column: sqlparse.Plain(name)}
}

func bareIdent(id sqlparse.Ident) *sqlparse.ColumnRef {
	return &sqlparse.ColumnRef{Column: id}
}

func qualified(table string, column sqlparse.Ident) *sqlparse.ColumnRef {
	return &sqlparse.ColumnRef{Table: sqlparse.Plain(table), Column: column}
}

func eq(l, r sqlparse.Expr) *sqlparse.BinaryExpr {
	return &sqlparse.BinaryExpr{Left: l, Op: sqlparse.TOKEN_EQ, Right: r}
}

func notNull(e sqlparse.Expr) *sqlparse.IsNullExpr {
	return &sqlparse.IsNullExpr{Expr: e, Not: true}
}

func fromTable(t *sqlparse.TableName) *sqlparse.FromClause {
	return &sqlparse.FromClause{Source: &sqlparse.TableName{Schema: t.Schema, Name: t.Name}}
}

func selectOf(sc *sqlparse.SelectCore) *sqlparse.SelectStmt {
	return &sqlparse.SelectStmt{Body: &sqlparse.SelectBody{Left: sc}}
}

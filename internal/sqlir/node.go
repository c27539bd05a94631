// Package sqlir is a small intermediate representation for the SQL the
// tracker compiler emits. Nodes are plain values; Render is pure, so the
// same tree always produces the same text. Bind placeholders are allocated
// from Params when a node is built, never when it is rendered.
package sqlir

import (
	"strconv"
	"strings"
)

// Renderable is any node that renders to SQL text.
type Renderable interface {
	Render() string
}

// ColumnDataType is the SQL type a column produces.
type ColumnDataType string

// Column data types.
const (
	TypeText    ColumnDataType = "TEXT"
	TypeNumeric ColumnDataType = "NUMERIC"
	TypeDate    ColumnDataType = "DATE"
	TypeBoolean ColumnDataType = "BOOLEAN"
)

// Column is one entry of a select list.
type Column struct {
	Expression string
	DataType   ColumnDataType
	Alias      string
	// Virtual columns are computed by Expression and have no backing table
	// column, so ordering refers to them by alias.
	Virtual bool
	// SkipInSelect keeps the column in the result headers without rendering it.
	SkipInSelect bool
}

// Render returns the select list entry.
func (c Column) Render() string {
	if c.Alias == "" {
		return c.Expression
	}
	return c.Expression + " AS " + QuoteIdent(c.Alias)
}

// OrderExpression returns what ORDER BY uses to refer to the column.
func (c Column) OrderExpression() string {
	if c.Virtual && c.Alias != "" {
		return QuoteIdent(c.Alias)
	}
	return c.Expression
}

// Select is the select list.
type Select struct {
	Columns  []Column
	Distinct bool
}

func (s Select) rendered() []string {
	out := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		if !c.SkipInSelect {
			out = append(out, c.Render())
		}
	}
	return out
}

// Render returns the SELECT clause. An empty list renders as *.
func (s Select) Render() string {
	cols := s.rendered()
	list := "*"
	if len(cols) > 0 {
		list = strings.Join(cols, ", ")
	}
	if s.Distinct {
		return "SELECT DISTINCT " + list
	}
	return "SELECT " + list
}

// JoinType is the kind of join.
type JoinType string

// Join types.
const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
)

// Join adds a table or subquery to a FROM clause.
type Join struct {
	Type     JoinType
	Table    string
	Subquery *Query
	Alias    string
	On       Condition
}

// Render returns the join clause.
func (j Join) Render() string {
	var b strings.Builder
	b.WriteString(string(j.Type))
	b.WriteByte(' ')
	b.WriteString(source(j.Table, j.Subquery, j.Alias))
	if j.On != nil {
		b.WriteString(" ON ")
		b.WriteString(renderTop(j.On))
	}
	return b.String()
}

// From is the FROM clause: a table or a derived table, plus joins.
type From struct {
	Table    string
	Subquery *Query
	Alias    string
	Joins    []Join
}

// Render returns the FROM clause.
func (f From) Render() string {
	var b strings.Builder
	b.WriteString("FROM ")
	b.WriteString(source(f.Table, f.Subquery, f.Alias))
	for _, j := range f.Joins {
		b.WriteByte(' ')
		b.WriteString(j.Render())
	}
	return b.String()
}

func source(table string, sub *Query, alias string) string {
	s := table
	if sub != nil {
		s = ScalarSubquery(sub)
	}
	if alias != "" {
		s += " " + alias
	}
	return s
}

// Where is the WHERE clause.
type Where struct {
	Condition Condition
}

// Render returns the WHERE clause.
func (w Where) Render() string {
	return "WHERE " + renderTop(w.Condition)
}

// renderTop renders a condition in clause position, where a conjunction
// needs no enclosing parentheses.
func renderTop(c Condition) string {
	if a, ok := c.(And); ok && len(a.Conditions) > 1 {
		parts := make([]string, len(a.Conditions))
		for i, sub := range a.Conditions {
			parts[i] = sub.Render()
		}
		return strings.Join(parts, " AND ")
	}
	return c.Render()
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Expression string
	Descending bool
	NullsLast  bool
}

// Render returns the ORDER BY key.
func (o OrderItem) Render() string {
	s := o.Expression
	if o.Descending {
		s += " DESC"
	}
	if o.NullsLast {
		s += " NULLS LAST"
	}
	return s
}

// Order is the ORDER BY clause.
type Order struct {
	Items []OrderItem
}

// Render returns the ORDER BY clause.
func (o Order) Render() string {
	items := make([]string, len(o.Items))
	for i, it := range o.Items {
		items[i] = it.Render()
	}
	return "ORDER BY " + strings.Join(items, ", ")
}

// LimitOffset is the LIMIT / OFFSET pair. A zero offset is omitted.
type LimitOffset struct {
	Limit  int
	Offset int
}

// Render returns the LIMIT clause.
func (l LimitOffset) Render() string {
	s := "LIMIT " + strconv.Itoa(l.Limit)
	if l.Offset > 0 {
		s += " OFFSET " + strconv.Itoa(l.Offset)
	}
	return s
}

// Query is a complete SELECT. Where, Order and Limit are optional.
type Query struct {
	Select Select
	From   *From
	Where  *Where
	Order  *Order
	Limit  *LimitOffset
}

// Render returns the query text. It panics when the query has neither a
// FROM clause nor a select list, which is a construction bug.
func (q *Query) Render() string {
	if q.From == nil && len(q.Select.rendered()) == 0 {
		panic("sqlir: query has neither FROM nor a select list")
	}

	parts := []string{q.Select.Render()}
	if q.From != nil {
		parts = append(parts, q.From.Render())
	}
	if q.Where != nil && q.Where.Condition != nil {
		parts = append(parts, q.Where.Render())
	}
	if q.Order != nil && len(q.Order.Items) > 0 {
		parts = append(parts, q.Order.Render())
	}
	if q.Limit != nil {
		parts = append(parts, q.Limit.Render())
	}
	return strings.Join(parts, " ")
}

// ScalarSubquery wraps a query so it can stand where an expression or a
// table is expected.
func ScalarSubquery(q *Query) string {
	return "(" + q.Render() + ")"
}

// QuoteIdent double-quotes an identifier, doubling embedded quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

package sqlir

import "strings"

// Condition is a boolean SQL expression. The set of implementations is closed.
type Condition interface {
	Renderable
	condition()
}

// And is a conjunction. No operands render TRUE, one renders the operand.
type And struct {
	Conditions []Condition
}

// Or is a disjunction. No operands render FALSE, one renders the operand.
type Or struct {
	Conditions []Condition
}

// Not negates a condition.
type Not struct {
	Condition Condition
}

// Exists tests whether a subquery returns any row. Correlated subqueries
// nest through Exists.
type Exists struct {
	Query *Query
}

// Compare is a binary comparison between two expressions.
type Compare struct {
	Left  string
	Op    string
	Right string
}

// IsNull tests an expression for NULL.
type IsNull struct {
	Expression string
	Not        bool
}

// In tests membership in a list of expressions, usually placeholders.
type In struct {
	Expression string
	Values     []string
}

// Raw is a condition given as SQL text.
type Raw struct {
	SQL string
}

func (And) condition()     {}
func (Or) condition()      {}
func (Not) condition()     {}
func (Exists) condition()  {}
func (Compare) condition() {}
func (IsNull) condition()  {}
func (In) condition()      {}
func (Raw) condition()     {}

// AndOf joins conditions, dropping nils.
func AndOf(conds ...Condition) Condition {
	return And{Conditions: compact(conds)}
}

// OrOf joins conditions, dropping nils.
func OrOf(conds ...Condition) Condition {
	return Or{Conditions: compact(conds)}
}

// Eq compares two expressions for equality.
func Eq(left, right string) Compare {
	return Compare{Left: left, Op: "=", Right: right}
}

func compact(conds []Condition) []Condition {
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (a And) Render() string { return junction(a.Conditions, " AND ", "TRUE") }

func (o Or) Render() string { return junction(o.Conditions, " OR ", "FALSE") }

func junction(conds []Condition, sep, empty string) string {
	switch len(conds) {
	case 0:
		return empty
	case 1:
		return conds[0].Render()
	}
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.Render()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (n Not) Render() string { return "NOT (" + n.Condition.Render() + ")" }

func (e Exists) Render() string { return "EXISTS " + ScalarSubquery(e.Query) }

func (c Compare) Render() string { return c.Left + " " + c.Op + " " + c.Right }

func (n IsNull) Render() string {
	if n.Not {
		return n.Expression + " IS NOT NULL"
	}
	return n.Expression + " IS NULL"
}

func (in In) Render() string {
	return in.Expression + " IN (" + strings.Join(in.Values, ", ") + ")"
}

func (r Raw) Render() string { return r.SQL }

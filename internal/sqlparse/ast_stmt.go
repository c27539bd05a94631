package sqlparse

// === Statement Nodes ===

// SelectStmt represents a complete SELECT statement with optional WITH clause.
type SelectStmt struct {
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) node()     {}
func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	Name   Ident
	Select *SelectStmt
}

// SelectBody represents the body of a SELECT with possible set operations.
type SelectBody struct {
	Left  *SelectCore
	Op    SetOpType
	Right *SelectBody
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpNone and friends classify set operations.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpUnionAll  SetOpType = "UNION ALL"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents a single SELECT ... FROM ... block.
type SelectCore struct {
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Expr  Expr
	Alias Ident
}

// OrderByItem represents an ORDER BY element.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool
}

// FromClause represents the FROM clause.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// Join represents a JOIN clause.
type Join struct {
	Type      JoinType
	Right     TableRef
	Condition Expr
}

// JoinType represents the type of join.
type JoinType string

// JoinInner and friends classify joins.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	JoinComma JoinType = ","
)

// TableName represents a (possibly schema-qualified) table.
type TableName struct {
	Schema Ident
	Name   Ident
	Alias  Ident
}

// DerivedTable represents a subquery in FROM.
type DerivedTable struct {
	Select *SelectStmt
	Alias  Ident
}

func (*TableName) node()            {}
func (*TableName) tableRefNode()    {}
func (*DerivedTable) node()         {}
func (*DerivedTable) tableRefNode() {}

// RefName returns the name a table is referenced by in expressions:
// the alias when present, otherwise the table name.
func (t *TableName) RefName() Ident {
	if !t.Alias.IsZero() {
		return t.Alias
	}
	return t.Name
}

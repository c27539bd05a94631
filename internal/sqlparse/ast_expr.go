package sqlparse

// === Expression Nodes ===

// LiteralType classifies literal values.
type LiteralType int

// LiteralNumber and friends classify literals.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal represents a constant value.
type Literal struct {
	Type  LiteralType
	Value string
}

// ParamExpr represents a positional bind parameter ($1).
type ParamExpr struct {
	Name string
}

// ColumnRef represents a possibly qualified column reference.
type ColumnRef struct {
	Table  Ident
	Column Ident
}

// StarExpr represents * or t.*.
type StarExpr struct {
	Table Ident
}

// BinaryExpr represents a binary operation.
type BinaryExpr struct {
	Left  Expr
	Op    TokenType
	Right Expr
}

// UnaryExpr represents a prefix operation (NOT, -, +).
type UnaryExpr struct {
	Op   TokenType
	Expr Expr
}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

// FuncCall represents a function call, optionally windowed.
type FuncCall struct {
	Name     string
	Args     []Expr
	Star     bool // count(*)
	Distinct bool
	Window   *WindowSpec
}

// WindowSpec represents an OVER (...) clause.
type WindowSpec struct {
	PartitionBy []Expr
	OrderBy     []OrderByItem
}

// CaseExpr represents CASE [operand] WHEN ... THEN ... [ELSE ...] END.
type CaseExpr struct {
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

// WhenClause is a single WHEN/THEN branch.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents CAST(expr AS type).
type CastExpr struct {
	Expr     Expr
	TypeName string
}

// TypeCastExpr represents expr::type.
type TypeCastExpr struct {
	Expr     Expr
	TypeName string
}

// InExpr represents expr [NOT] IN (values | subquery).
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

// BetweenExpr represents expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

// IsNullExpr represents expr IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

// IsBoolExpr represents expr IS [NOT] TRUE/FALSE.
type IsBoolExpr struct {
	Expr  Expr
	Not   bool
	Value bool
}

// LikeExpr represents expr [NOT] LIKE/ILIKE pattern.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	ILike   bool
	Pattern Expr
}

// ExtractExpr represents EXTRACT(field FROM expr).
type ExtractExpr struct {
	Field string
	Expr  Expr
}

// ExistsExpr represents [NOT] EXISTS (subquery).
type ExistsExpr struct {
	Not    bool
	Select *SelectStmt
}

// SubqueryExpr represents a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

// IntervalExpr represents INTERVAL 'literal'.
type IntervalExpr struct {
	Value string
}

func (*Literal) node()      {}
func (*ParamExpr) node()    {}
func (*ColumnRef) node()    {}
func (*StarExpr) node()     {}
func (*BinaryExpr) node()   {}
func (*UnaryExpr) node()    {}
func (*ParenExpr) node()    {}
func (*FuncCall) node()     {}
func (*CaseExpr) node()     {}
func (*CastExpr) node()     {}
func (*TypeCastExpr) node() {}
func (*InExpr) node()       {}
func (*BetweenExpr) node()  {}
func (*IsNullExpr) node()   {}
func (*IsBoolExpr) node()   {}
func (*LikeExpr) node()     {}
func (*ExtractExpr) node()  {}
func (*ExistsExpr) node()   {}
func (*SubqueryExpr) node() {}
func (*IntervalExpr) node() {}

func (*Literal) exprNode()      {}
func (*ParamExpr) exprNode()    {}
func (*ColumnRef) exprNode()    {}
func (*StarExpr) exprNode()     {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*ParenExpr) exprNode()    {}
func (*FuncCall) exprNode()     {}
func (*CaseExpr) exprNode()     {}
func (*CastExpr) exprNode()     {}
func (*TypeCastExpr) exprNode() {}
func (*InExpr) exprNode()       {}
func (*BetweenExpr) exprNode()  {}
func (*IsNullExpr) exprNode()   {}
func (*IsBoolExpr) exprNode()   {}
func (*LikeExpr) exprNode()     {}
func (*ExtractExpr) exprNode()  {}
func (*ExistsExpr) exprNode()   {}
func (*SubqueryExpr) exprNode() {}
func (*IntervalExpr) exprNode() {}

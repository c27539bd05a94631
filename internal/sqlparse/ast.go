package sqlparse

import "strings"

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// TableRef is a marker interface for table reference nodes.
type TableRef interface {
	Node
	tableRefNode()
}

// Ident is an identifier together with the quoting it was written with.
// PostgreSQL folds unquoted identifiers to lower case, so the flag is part
// of the identifier's meaning and survives formatting.
type Ident struct {
	Name   string
	Quoted bool
}

// Plain returns an unquoted identifier.
func Plain(name string) Ident { return Ident{Name: name} }

// Quoted returns a double-quoted identifier.
func Quoted(name string) Ident { return Ident{Name: name, Quoted: true} }

// IsZero reports whether the identifier is absent.
func (i Ident) IsZero() bool { return i.Name == "" }

// Folded returns the name as PostgreSQL resolves it.
func (i Ident) Folded() string {
	if i.Quoted {
		return i.Name
	}
	return strings.ToLower(i.Name)
}

// Is reports whether the identifier resolves to name. An unquoted name is
// compared case-insensitively.
func (i Ident) Is(name string) bool {
	if i.Quoted {
		return i.Name == name
	}
	return strings.EqualFold(i.Name, name)
}

// Equal reports whether two identifiers resolve to the same name.
func (i Ident) Equal(o Ident) bool {
	return i.Folded() == o.Folded()
}

// String renders the identifier as SQL.
func (i Ident) String() string {
	if i.Quoted {
		return `"` + strings.ReplaceAll(i.Name, `"`, `""`) + `"`
	}
	return i.Name
}

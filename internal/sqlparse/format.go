package sqlparse

import "strings"

// Format formats a statement AST back to a SQL string.
// The output is flat (no pretty-printing), keywords are upper case and
// identifiers keep the quoting they were parsed or built with.
func Format(stmt Stmt) string {
	f := &formatter{}
	f.formatStmt(stmt)
	return strings.TrimSpace(f.buf.String())
}

// FormatExpr formats an expression AST back to a SQL string.
func FormatExpr(expr Expr) string {
	f := &formatter{}
	f.formatExpr(expr)
	return strings.TrimSpace(f.buf.String())
}

type formatter struct {
	buf strings.Builder
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

func (f *formatter) space() {
	f.buf.WriteByte(' ')
}

func (f *formatter) writeIdent(id Ident) {
	f.write(id.String())
}

// commaSep writes items separated by ", ".
func (f *formatter) commaSep(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(", ")
		}
		fn(i)
	}
}

func (f *formatter) formatStmt(stmt Stmt) {
	if s, ok := stmt.(*SelectStmt); ok {
		f.formatSelectStmt(s)
	}
}

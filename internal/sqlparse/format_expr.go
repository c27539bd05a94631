package sqlparse

import "strings"

func (f *formatter) formatExpr(e Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *Literal:
		f.formatLiteral(expr)
	case *ParamExpr:
		f.write(expr.Name)
	case *ColumnRef:
		if !expr.Table.IsZero() {
			f.writeIdent(expr.Table)
			f.write(".")
		}
		f.writeIdent(expr.Column)
	case *StarExpr:
		if !expr.Table.IsZero() {
			f.writeIdent(expr.Table)
			f.write(".")
		}
		f.write("*")
	case *BinaryExpr:
		f.formatExpr(expr.Left)
		f.space()
		f.write(operatorString(expr.Op))
		f.space()
		f.formatExpr(expr.Right)
	case *UnaryExpr:
		if expr.Op == TOKEN_NOT {
			f.write("NOT ")
		} else {
			f.write(operatorString(expr.Op))
		}
		f.formatExpr(expr.Expr)
	case *ParenExpr:
		f.write("(")
		f.formatExpr(expr.Expr)
		f.write(")")
	case *FuncCall:
		f.formatFuncCall(expr)
	case *CaseExpr:
		f.formatCaseExpr(expr)
	case *CastExpr:
		f.write("CAST(")
		f.formatExpr(expr.Expr)
		f.write(" AS ")
		f.write(expr.TypeName)
		f.write(")")
	case *TypeCastExpr:
		f.formatExpr(expr.Expr)
		f.write("::")
		f.write(expr.TypeName)
	case *InExpr:
		f.formatInExpr(expr)
	case *BetweenExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		f.write(" BETWEEN ")
		f.formatExpr(expr.Low)
		f.write(" AND ")
		f.formatExpr(expr.High)
	case *IsNullExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" IS NOT NULL")
		} else {
			f.write(" IS NULL")
		}
	case *IsBoolExpr:
		f.formatExpr(expr.Expr)
		f.write(" IS ")
		if expr.Not {
			f.write("NOT ")
		}
		if expr.Value {
			f.write("TRUE")
		} else {
			f.write("FALSE")
		}
	case *LikeExpr:
		f.formatExpr(expr.Expr)
		if expr.Not {
			f.write(" NOT")
		}
		if expr.ILike {
			f.write(" ILIKE ")
		} else {
			f.write(" LIKE ")
		}
		f.formatExpr(expr.Pattern)
	case *ExtractExpr:
		f.write("EXTRACT(")
		f.write(expr.Field)
		f.write(" FROM ")
		f.formatExpr(expr.Expr)
		f.write(")")
	case *ExistsExpr:
		if expr.Not {
			f.write("NOT ")
		}
		f.write("EXISTS (")
		f.formatSelectStmt(expr.Select)
		f.write(")")
	case *SubqueryExpr:
		f.write("(")
		f.formatSelectStmt(expr.Select)
		f.write(")")
	case *IntervalExpr:
		f.write("INTERVAL '")
		f.write(strings.ReplaceAll(expr.Value, "'", "''"))
		f.write("'")
	}
}

func (f *formatter) formatLiteral(lit *Literal) {
	switch lit.Type {
	case LiteralString:
		f.write("'")
		f.write(strings.ReplaceAll(lit.Value, "'", "''"))
		f.write("'")
	case LiteralBool:
		f.write(strings.ToUpper(lit.Value))
	case LiteralNull:
		f.write("NULL")
	default:
		f.write(lit.Value)
	}
}

// operatorString returns the SQL string for a token type used as an operator.
func operatorString(op TokenType) string {
	if name, ok := tokenNames[op]; ok {
		return name
	}
	return "?"
}

func (f *formatter) formatFuncCall(fn *FuncCall) {
	// Function names are written unquoted in original case
	f.write(fn.Name)
	f.write("(")
	if fn.Distinct {
		f.write("DISTINCT ")
	}
	if fn.Star {
		f.write("*")
	} else {
		f.commaSep(len(fn.Args), func(i int) {
			f.formatExpr(fn.Args[i])
		})
	}
	f.write(")")

	if fn.Window != nil {
		f.write(" OVER (")
		w := fn.Window
		if len(w.PartitionBy) > 0 {
			f.write("PARTITION BY ")
			f.commaSep(len(w.PartitionBy), func(i int) {
				f.formatExpr(w.PartitionBy[i])
			})
		}
		if len(w.OrderBy) > 0 {
			if len(w.PartitionBy) > 0 {
				f.space()
			}
			f.write("ORDER BY ")
			f.commaSep(len(w.OrderBy), func(i int) {
				f.formatOrderByItem(w.OrderBy[i])
			})
		}
		f.write(")")
	}
}

func (f *formatter) formatCaseExpr(c *CaseExpr) {
	f.write("CASE")
	if c.Operand != nil {
		f.space()
		f.formatExpr(c.Operand)
	}
	for _, w := range c.Whens {
		f.write(" WHEN ")
		f.formatExpr(w.Condition)
		f.write(" THEN ")
		f.formatExpr(w.Result)
	}
	if c.Else != nil {
		f.write(" ELSE ")
		f.formatExpr(c.Else)
	}
	f.write(" END")
}

func (f *formatter) formatInExpr(in *InExpr) {
	f.formatExpr(in.Expr)
	if in.Not {
		f.write(" NOT")
	}
	f.write(" IN (")
	if in.Query != nil {
		f.formatSelectStmt(in.Query)
	} else {
		f.commaSep(len(in.Values), func(i int) {
			f.formatExpr(in.Values[i])
		})
	}
	f.write(")")
}

func (f *formatter) formatOrderByItem(item OrderByItem) {
	f.formatExpr(item.Expr)
	if item.Desc {
		f.write(" DESC")
	}
	if item.NullsFirst != nil {
		if *item.NullsFirst {
			f.write(" NULLS FIRST")
		} else {
			f.write(" NULLS LAST")
		}
	}
}

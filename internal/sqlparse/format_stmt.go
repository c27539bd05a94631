package sqlparse

// === SELECT ===

func (f *formatter) formatSelectStmt(stmt *SelectStmt) {
	if stmt == nil {
		return
	}
	if stmt.With != nil && len(stmt.With.CTEs) > 0 {
		f.formatWithClause(stmt.With)
	}
	f.formatSelectBody(stmt.Body)
}

func (f *formatter) formatWithClause(with *WithClause) {
	f.write("WITH ")
	if with.Recursive {
		f.write("RECURSIVE ")
	}
	f.commaSep(len(with.CTEs), func(i int) {
		cte := with.CTEs[i]
		f.writeIdent(cte.Name)
		f.write(" AS (")
		f.formatSelectStmt(cte.Select)
		f.write(")")
	})
	f.space()
}

func (f *formatter) formatSelectBody(body *SelectBody) {
	if body == nil {
		return
	}
	f.formatSelectCore(body.Left)

	if body.Op != SetOpNone {
		f.space()
		f.write(string(body.Op))
		f.space()
		f.formatSelectBody(body.Right)
	}
}

func (f *formatter) formatSelectCore(sc *SelectCore) {
	if sc == nil {
		return
	}

	f.write("SELECT ")
	if sc.Distinct {
		f.write("DISTINCT ")
	}
	f.commaSep(len(sc.Columns), func(i int) {
		item := sc.Columns[i]
		f.formatExpr(item.Expr)
		if !item.Alias.IsZero() {
			f.write(" AS ")
			f.writeIdent(item.Alias)
		}
	})

	if sc.From != nil {
		f.write(" FROM ")
		f.formatFromClause(sc.From)
	}
	if sc.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(sc.Where)
	}
	if len(sc.GroupBy) > 0 {
		f.write(" GROUP BY ")
		f.commaSep(len(sc.GroupBy), func(i int) {
			f.formatExpr(sc.GroupBy[i])
		})
	}
	if sc.Having != nil {
		f.write(" HAVING ")
		f.formatExpr(sc.Having)
	}
	if len(sc.OrderBy) > 0 {
		f.write(" ORDER BY ")
		f.commaSep(len(sc.OrderBy), func(i int) {
			f.formatOrderByItem(sc.OrderBy[i])
		})
	}
	if sc.Limit != nil {
		f.write(" LIMIT ")
		f.formatExpr(sc.Limit)
	}
	if sc.Offset != nil {
		f.write(" OFFSET ")
		f.formatExpr(sc.Offset)
	}
}

// === FROM ===

func (f *formatter) formatFromClause(from *FromClause) {
	f.formatTableRef(from.Source)
	for _, j := range from.Joins {
		if j.Type == JoinComma {
			f.write(", ")
			f.formatTableRef(j.Right)
			continue
		}
		f.space()
		f.write(string(j.Type))
		f.write(" JOIN ")
		f.formatTableRef(j.Right)
		if j.Condition != nil {
			f.write(" ON ")
			f.formatExpr(j.Condition)
		}
	}
}

func (f *formatter) formatTableRef(ref TableRef) {
	switch t := ref.(type) {
	case *TableName:
		if !t.Schema.IsZero() {
			f.writeIdent(t.Schema)
			f.write(".")
		}
		f.writeIdent(t.Name)
		if !t.Alias.IsZero() {
			f.write(" AS ")
			f.writeIdent(t.Alias)
		}
	case *DerivedTable:
		f.write("(")
		f.formatSelectStmt(t.Select)
		f.write(")")
		if !t.Alias.IsZero() {
			f.write(" AS ")
			f.writeIdent(t.Alias)
		}
	}
}

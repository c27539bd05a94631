package sqlparse

// === Traversal ===

// Walk visits n and every node below it depth first, including nested
// statements. Returning false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}

	switch v := n.(type) {
	case *SelectStmt:
		if v.With != nil {
			for _, cte := range v.With.CTEs {
				Walk(cte.Select, fn)
			}
		}
		for body := v.Body; body != nil; body = body.Right {
			walkCore(body.Left, fn)
		}
	case *TableName:
	case *DerivedTable:
		Walk(v.Select, fn)
	case *BinaryExpr:
		walkExprs(fn, v.Left, v.Right)
	case *UnaryExpr:
		walkExprs(fn, v.Expr)
	case *ParenExpr:
		walkExprs(fn, v.Expr)
	case *FuncCall:
		walkExprs(fn, v.Args...)
		if v.Window != nil {
			walkExprs(fn, v.Window.PartitionBy...)
			for _, o := range v.Window.OrderBy {
				walkExprs(fn, o.Expr)
			}
		}
	case *CaseExpr:
		walkExprs(fn, v.Operand, v.Else)
		for _, w := range v.Whens {
			walkExprs(fn, w.Condition, w.Result)
		}
	case *CastExpr:
		walkExprs(fn, v.Expr)
	case *TypeCastExpr:
		walkExprs(fn, v.Expr)
	case *InExpr:
		walkExprs(fn, v.Expr)
		walkExprs(fn, v.Values...)
		if v.Query != nil {
			Walk(v.Query, fn)
		}
	case *BetweenExpr:
		walkExprs(fn, v.Expr, v.Low, v.High)
	case *IsNullExpr:
		walkExprs(fn, v.Expr)
	case *IsBoolExpr:
		walkExprs(fn, v.Expr)
	case *LikeExpr:
		walkExprs(fn, v.Expr, v.Pattern)
	case *ExtractExpr:
		walkExprs(fn, v.Expr)
	case *ExistsExpr:
		Walk(v.Select, fn)
	case *SubqueryExpr:
		Walk(v.Select, fn)
	}
}

func walkExprs(fn func(Node) bool, exprs ...Expr) {
	for _, e := range exprs {
		if e != nil {
			Walk(e, fn)
		}
	}
}

func walkCore(sc *SelectCore, fn func(Node) bool) {
	if sc == nil {
		return
	}
	for _, item := range sc.Columns {
		walkExprs(fn, item.Expr)
	}
	if sc.From != nil {
		Walk(sc.From.Source, fn)
		for _, j := range sc.From.Joins {
			Walk(j.Right, fn)
			walkExprs(fn, j.Condition)
		}
	}
	walkExprs(fn, sc.Where, sc.Having, sc.Limit, sc.Offset)
	walkExprs(fn, sc.GroupBy...)
	for _, o := range sc.OrderBy {
		walkExprs(fn, o.Expr)
	}
}

// Cores returns every SELECT core in the statement, outermost first,
// including CTE bodies, derived tables and subqueries in expressions.
func Cores(stmt *SelectStmt) []*SelectCore {
	var cores []*SelectCore
	Walk(stmt, func(n Node) bool {
		if sel, ok := n.(*SelectStmt); ok {
			for body := sel.Body; body != nil; body = body.Right {
				if body.Left != nil {
					cores = append(cores, body.Left)
				}
			}
		}
		return true
	})
	return cores
}

// === Table Name Collection ===

// CollectTableNames returns a deduplicated list of table names referenced in
// the statement, including subqueries. CTE names are excluded.
func CollectTableNames(stmt *SelectStmt) []string {
	ctes := make(map[string]bool)
	Walk(stmt, func(n Node) bool {
		if sel, ok := n.(*SelectStmt); ok && sel.With != nil {
			for _, cte := range sel.With.CTEs {
				ctes[cte.Name.Folded()] = true
			}
		}
		return true
	})

	seen := make(map[string]bool)
	var tables []string
	Walk(stmt, func(n Node) bool {
		t, ok := n.(*TableName)
		if !ok {
			return true
		}
		name := t.Name.Folded()
		if !t.Schema.IsZero() {
			name = t.Schema.Folded() + "." + name
		} else if ctes[name] {
			return true
		}
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
		return true
	})
	return tables
}

// === Expression Rewriting ===

// RewriteCoreExprs applies fn to every expression position of the core:
// select items, join conditions, WHERE, GROUP BY, HAVING and ORDER BY.
// fn is tried on each node top down; when it reports a replacement the
// replaced subtree is not descended into. Nested statements are left alone,
// their cores are rewritten separately.
func RewriteCoreExprs(sc *SelectCore, fn func(Expr) (Expr, bool)) {
	for i := range sc.Columns {
		sc.Columns[i].Expr = rewriteExpr(sc.Columns[i].Expr, fn)
	}
	if sc.From != nil {
		for _, j := range sc.From.Joins {
			j.Condition = rewriteExpr(j.Condition, fn)
		}
	}
	sc.Where = rewriteExpr(sc.Where, fn)
	for i := range sc.GroupBy {
		sc.GroupBy[i] = rewriteExpr(sc.GroupBy[i], fn)
	}
	sc.Having = rewriteExpr(sc.Having, fn)
	for i := range sc.OrderBy {
		sc.OrderBy[i].Expr = rewriteExpr(sc.OrderBy[i].Expr, fn)
	}
}

func rewriteExpr(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if repl, ok := fn(e); ok {
		return repl
	}

	switch v := e.(type) {
	case *BinaryExpr:
		v.Left = rewriteExpr(v.Left, fn)
		v.Right = rewriteExpr(v.Right, fn)
	case *UnaryExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
	case *ParenExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
	case *FuncCall:
		for i := range v.Args {
			v.Args[i] = rewriteExpr(v.Args[i], fn)
		}
	case *CaseExpr:
		v.Operand = rewriteExpr(v.Operand, fn)
		v.Else = rewriteExpr(v.Else, fn)
		for i := range v.Whens {
			v.Whens[i].Condition = rewriteExpr(v.Whens[i].Condition, fn)
			v.Whens[i].Result = rewriteExpr(v.Whens[i].Result, fn)
		}
	case *CastExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
	case *TypeCastExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
	case *InExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
		for i := range v.Values {
			v.Values[i] = rewriteExpr(v.Values[i], fn)
		}
	case *BetweenExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
		v.Low = rewriteExpr(v.Low, fn)
		v.High = rewriteExpr(v.High, fn)
	case *IsNullExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
	case *IsBoolExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
	case *LikeExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
		v.Pattern = rewriteExpr(v.Pattern, fn)
	case *ExtractExpr:
		v.Expr = rewriteExpr(v.Expr, fn)
	}
	return e
}

// === Predicate Helpers ===

// Conjuncts flattens a tree of AND operations into its operands, looking
// through redundant parentheses. A nil expression has no conjuncts.
func Conjuncts(e Expr) []Expr {
	switch v := e.(type) {
	case nil:
		return nil
	case *ParenExpr:
		if _, ok := v.Expr.(*BinaryExpr); ok && v.Expr.(*BinaryExpr).Op == TOKEN_AND {
			return Conjuncts(v.Expr)
		}
		if inner, ok := v.Expr.(*ParenExpr); ok {
			return Conjuncts(inner)
		}
		return []Expr{v}
	case *BinaryExpr:
		if v.Op == TOKEN_AND {
			return append(Conjuncts(v.Left), Conjuncts(v.Right)...)
		}
	}
	return []Expr{e}
}

// AndAll joins predicates with AND. OR operands are parenthesized so the
// result formats with the original meaning. Returns nil for no predicates.
func AndAll(preds ...Expr) Expr {
	var out Expr
	for _, p := range preds {
		if p == nil {
			continue
		}
		if b, ok := p.(*BinaryExpr); ok && b.Op == TOKEN_OR {
			p = &ParenExpr{Expr: p}
		}
		if out == nil {
			out = p
			continue
		}
		out = &BinaryExpr{Left: out, Op: TOKEN_AND, Right: p}
	}
	return out
}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

package sqlparse

import "fmt"

// === SELECT ===

func (p *Parser) parseSelectStatement() *SelectStmt {
	stmt := &SelectStmt{}
	if p.check(TOKEN_WITH) {
		stmt.With = p.parseWithClause()
	}
	stmt.Body = p.parseSelectBody()
	return stmt
}

func (p *Parser) parseWithClause() *WithClause {
	p.expect(TOKEN_WITH)
	with := &WithClause{Recursive: p.match(TOKEN_RECURSIVE)}

	for {
		with.CTEs = append(with.CTEs, p.parseCTE())
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	return with
}

func (p *Parser) parseCTE() *CTE {
	cte := &CTE{}
	if !p.check(TOKEN_IDENT) {
		p.addError("expected CTE name")
		return cte
	}
	cte.Name = p.ident()
	p.expect(TOKEN_AS)
	p.expect(TOKEN_LPAREN)
	cte.Select = p.parseSelectStatement()
	p.expect(TOKEN_RPAREN)
	return cte
}

func (p *Parser) parseSelectBody() *SelectBody {
	body := &SelectBody{Left: p.parseSelectCore()}

	switch p.token.Type {
	case TOKEN_UNION:
		p.nextToken()
		if p.match(TOKEN_ALL) {
			body.Op = SetOpUnionAll
		} else {
			body.Op = SetOpUnion
			p.match(TOKEN_DISTINCT)
		}
	case TOKEN_INTERSECT:
		p.nextToken()
		body.Op = SetOpIntersect
	case TOKEN_EXCEPT:
		p.nextToken()
		body.Op = SetOpExcept
	default:
		return body
	}

	body.Right = p.parseSelectBody()
	return body
}

func (p *Parser) parseSelectCore() *SelectCore {
	p.expect(TOKEN_SELECT)
	sc := &SelectCore{}

	if p.match(TOKEN_DISTINCT) {
		sc.Distinct = true
	} else {
		p.match(TOKEN_ALL)
	}

	sc.Columns = p.parseSelectList()

	if p.match(TOKEN_FROM) {
		sc.From = p.parseFromClause()
	}
	if p.match(TOKEN_WHERE) {
		sc.Where = p.parseExpression()
	}
	if p.match(TOKEN_GROUP) {
		p.expect(TOKEN_BY)
		sc.GroupBy = p.parseExpressionList()
	}
	if p.match(TOKEN_HAVING) {
		sc.Having = p.parseExpression()
	}
	if p.match(TOKEN_ORDER) {
		p.expect(TOKEN_BY)
		sc.OrderBy = p.parseOrderByList()
	}
	if p.match(TOKEN_LIMIT) {
		sc.Limit = p.parseExpression()
	}
	if p.match(TOKEN_OFFSET) {
		sc.Offset = p.parseExpression()
	}
	return sc
}

func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem
	for {
		item := SelectItem{Expr: p.parseExpression()}
		if item.Expr == nil {
			return items
		}
		if p.match(TOKEN_AS) {
			if !p.check(TOKEN_IDENT) {
				p.addError(fmt.Sprintf("expected alias after AS, got %s", p.token.Type))
				return items
			}
			item.Alias = p.ident()
		} else if p.check(TOKEN_IDENT) {
			item.Alias = p.ident()
		}
		items = append(items, item)
		if !p.match(TOKEN_COMMA) {
			return items
		}
	}
}

// === FROM ===

func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{Source: p.parseTableRef()}
	for p.isJoinStart() {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}
	return from
}

func (p *Parser) parseTableRef() TableRef {
	if p.check(TOKEN_LPAREN) {
		p.nextToken()
		derived := &DerivedTable{Select: p.parseSelectStatement()}
		p.expect(TOKEN_RPAREN)
		derived.Alias = p.parseOptionalAlias()
		return derived
	}

	if !p.check(TOKEN_IDENT) {
		p.addError(fmt.Sprintf("expected table name, got %s", p.token.Type))
		return &TableName{}
	}

	table := &TableName{Name: p.ident()}
	if p.match(TOKEN_DOT) {
		if !p.check(TOKEN_IDENT) {
			p.addError("expected table name after schema")
			return table
		}
		table.Schema = table.Name
		table.Name = p.ident()
	}
	table.Alias = p.parseOptionalAlias()
	return table
}

func (p *Parser) parseOptionalAlias() Ident {
	if p.match(TOKEN_AS) {
		if !p.check(TOKEN_IDENT) {
			p.addError("expected alias after AS")
			return Ident{}
		}
		return p.ident()
	}
	if p.check(TOKEN_IDENT) {
		return p.ident()
	}
	return Ident{}
}

func (p *Parser) parseJoin() *Join {
	join := &Join{}

	switch {
	case p.match(TOKEN_COMMA):
		join.Type = JoinComma
		join.Right = p.parseTableRef()
		return join
	case p.match(TOKEN_CROSS):
		join.Type = JoinCross
	case p.match(TOKEN_INNER):
		join.Type = JoinInner
	case p.match(TOKEN_LEFT):
		join.Type = JoinLeft
		p.match(TOKEN_OUTER)
	case p.match(TOKEN_RIGHT):
		join.Type = JoinRight
		p.match(TOKEN_OUTER)
	case p.match(TOKEN_FULL):
		join.Type = JoinFull
		p.match(TOKEN_OUTER)
	default:
		join.Type = JoinInner
	}

	if !p.expect(TOKEN_JOIN) {
		return nil
	}
	join.Right = p.parseTableRef()

	if join.Type != JoinCross {
		if !p.expect(TOKEN_ON) {
			return nil
		}
		join.Condition = p.parseExpression()
	}
	return join
}

package sqlparse

import (
	"fmt"
	"strings"
)

// Primary expression parsing: literals, params, column refs, function calls,
// CASE, CAST, EXTRACT, INTERVAL, EXISTS and parenthesized subqueries.

func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case TOKEN_NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_TRUE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "true"}

	case TOKEN_FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "false"}

	case TOKEN_NULL:
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "NULL"}

	case TOKEN_PARAM:
		param := &ParamExpr{Name: p.token.Literal}
		p.nextToken()
		return param

	case TOKEN_CASE:
		return p.parseCaseExpr()

	case TOKEN_CAST:
		return p.parseCastExpr()

	case TOKEN_EXTRACT:
		return p.parseExtractExpr()

	case TOKEN_EXISTS:
		return p.parseExistsExpr(false)

	case TOKEN_INTERVAL:
		p.nextToken()
		if !p.check(TOKEN_STRING) {
			p.addError("expected string literal after INTERVAL")
			return nil
		}
		iv := &IntervalExpr{Value: p.token.Literal}
		p.nextToken()
		return iv

	case TOKEN_IDENT:
		return p.parseIdentifierExpr()

	case TOKEN_LPAREN:
		return p.parseParenExpr()

	case TOKEN_STAR:
		p.nextToken()
		return &StarExpr{}

	case TOKEN_LEFT, TOKEN_RIGHT:
		// left(...) and right(...) are functions when followed by (
		if p.checkPeek(TOKEN_LPAREN) {
			name := p.token.Literal
			p.nextToken()
			return p.parseFuncCall(name)
		}
	}

	p.addError(fmt.Sprintf("unexpected token in expression: %s (%q)", p.token.Type, p.token.Literal))
	p.nextToken()
	return nil
}

// parseIdentifierExpr parses a column reference or a function call.
func (p *Parser) parseIdentifierExpr() Expr {
	quoted := p.token.Quoted
	first := p.ident()

	if p.check(TOKEN_LPAREN) && !quoted {
		return p.parseFuncCall(first.Name)
	}

	if !p.match(TOKEN_DOT) {
		return &ColumnRef{Column: first}
	}

	if p.match(TOKEN_STAR) {
		return &StarExpr{Table: first}
	}
	if !p.check(TOKEN_IDENT) {
		p.addError(fmt.Sprintf("expected column name after %s.", first))
		return nil
	}
	second := p.ident()

	// schema.table.column is referenced as table.column
	if p.match(TOKEN_DOT) {
		if !p.check(TOKEN_IDENT) {
			p.addError(fmt.Sprintf("expected column name after %s.%s.", first, second))
			return nil
		}
		return &ColumnRef{Table: second, Column: p.ident()}
	}
	return &ColumnRef{Table: first, Column: second}
}

// parseFuncCall parses name([DISTINCT] args | *) [OVER (...)].
func (p *Parser) parseFuncCall(name string) Expr {
	fn := &FuncCall{Name: name}
	p.expect(TOKEN_LPAREN)

	if p.check(TOKEN_STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(TOKEN_RPAREN) {
		fn.Distinct = p.match(TOKEN_DISTINCT)
		fn.Args = p.parseExpressionList()
	}
	p.expect(TOKEN_RPAREN)

	if p.match(TOKEN_OVER) {
		fn.Window = p.parseWindowSpec()
	}
	return fn
}

func (p *Parser) parseWindowSpec() *WindowSpec {
	spec := &WindowSpec{}
	p.expect(TOKEN_LPAREN)

	if p.match(TOKEN_PARTITION) {
		p.expect(TOKEN_BY)
		spec.PartitionBy = p.parseExpressionList()
	}
	if p.match(TOKEN_ORDER) {
		p.expect(TOKEN_BY)
		spec.OrderBy = p.parseOrderByList()
	}

	p.expect(TOKEN_RPAREN)
	return spec
}

func (p *Parser) parseCaseExpr() Expr {
	p.expect(TOKEN_CASE)
	caseExpr := &CaseExpr{}

	if !p.check(TOKEN_WHEN) {
		caseExpr.Operand = p.parseExpression()
	}
	for p.match(TOKEN_WHEN) {
		when := WhenClause{Condition: p.parseExpression()}
		p.expect(TOKEN_THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}
	if len(caseExpr.Whens) == 0 {
		p.addError("CASE without WHEN")
	}
	if p.match(TOKEN_ELSE) {
		caseExpr.Else = p.parseExpression()
	}
	p.expect(TOKEN_END)
	return caseExpr
}

func (p *Parser) parseCastExpr() Expr {
	p.expect(TOKEN_CAST)
	p.expect(TOKEN_LPAREN)
	cast := &CastExpr{Expr: p.parseExpression()}
	p.expect(TOKEN_AS)
	cast.TypeName = p.parseTypeName()
	p.expect(TOKEN_RPAREN)
	return cast
}

func (p *Parser) parseExtractExpr() Expr {
	p.nextToken() // consume EXTRACT
	p.expect(TOKEN_LPAREN)
	if !p.check(TOKEN_IDENT) {
		p.addError("expected field name in EXTRACT")
		return nil
	}
	field := strings.ToLower(p.token.Literal)
	p.nextToken()
	p.expect(TOKEN_FROM)
	expr := p.parseExpression()
	p.expect(TOKEN_RPAREN)
	return &ExtractExpr{Field: field, Expr: expr}
}

// parseTypeName parses a type name such as numeric, double precision,
// timestamp without time zone or varchar(11). Type names are lowercased.
func (p *Parser) parseTypeName() string {
	if !p.check(TOKEN_IDENT) {
		p.addError("expected type name")
		return ""
	}
	parts := []string{strings.ToLower(p.token.Literal)}
	p.nextToken()

	for p.check(TOKEN_IDENT) || p.check(TOKEN_WITH) {
		lower := strings.ToLower(p.token.Literal)
		switch lower {
		case "precision", "varying", "zone", "without", "with", "time":
			parts = append(parts, lower)
			p.nextToken()
			continue
		}
		break
	}
	typeName := strings.Join(parts, " ")

	if p.match(TOKEN_LPAREN) {
		var args []string
		for !p.check(TOKEN_RPAREN) && !p.check(TOKEN_EOF) {
			if !p.check(TOKEN_COMMA) {
				args = append(args, p.token.Literal)
			}
			p.nextToken()
		}
		p.expect(TOKEN_RPAREN)
		typeName += "(" + strings.Join(args, ",") + ")"
	}
	return typeName
}

func (p *Parser) parseExistsExpr(not bool) Expr {
	p.nextToken() // consume EXISTS
	p.expect(TOKEN_LPAREN)
	exists := &ExistsExpr{Not: not, Select: p.parseSelectStatement()}
	p.expect(TOKEN_RPAREN)
	return exists
}

func (p *Parser) parseParenExpr() Expr {
	p.expect(TOKEN_LPAREN)

	if p.check(TOKEN_SELECT) || p.check(TOKEN_WITH) {
		subquery := &SubqueryExpr{Select: p.parseSelectStatement()}
		p.expect(TOKEN_RPAREN)
		return subquery
	}

	expr := p.parseExpression()
	p.expect(TOKEN_RPAREN)
	return &ParenExpr{Expr: expr}
}

func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem
	for {
		items = append(items, p.parseOrderByItem())
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	return items
}

func (p *Parser) parseOrderByItem() OrderByItem {
	item := OrderByItem{Expr: p.parseExpression()}

	if p.match(TOKEN_DESC) {
		item.Desc = true
	} else {
		p.match(TOKEN_ASC)
	}

	if p.match(TOKEN_NULLS) {
		switch {
		case p.match(TOKEN_FIRST):
			b := true
			item.NullsFirst = &b
		case p.match(TOKEN_LAST):
			b := false
			item.NullsFirst = &b
		default:
			p.addError("expected FIRST or LAST after NULLS")
		}
	}
	return item
}

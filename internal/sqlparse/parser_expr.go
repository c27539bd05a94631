package sqlparse

import "fmt"

// Expression parsing using a Pratt parser (precedence climbing).

func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(PrecedenceNone + 1)
}

func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.getInfixPrecedence()
		if prec < minPrecedence || prec == PrecedenceNone {
			break
		}
		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		if p.checkPeek(TOKEN_EXISTS) {
			p.nextToken()
			return p.parseExistsExpr(true)
		}
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceNot)
		return &UnaryExpr{Op: TOKEN_NOT, Expr: expr}

	case TOKEN_MINUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceUnary)
		return &UnaryExpr{Op: TOKEN_MINUS, Expr: expr}

	case TOKEN_PLUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceUnary)
		return &UnaryExpr{Op: TOKEN_PLUS, Expr: expr}

	default:
		return p.parsePrimary()
	}
}

func (p *Parser) getInfixPrecedence() int {
	switch p.token.Type {
	case TOKEN_OR:
		return PrecedenceOr
	case TOKEN_AND:
		return PrecedenceAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		return PrecedenceComparison
	case TOKEN_IS, TOKEN_IN, TOKEN_BETWEEN, TOKEN_LIKE, TOKEN_ILIKE:
		return PrecedenceComparison
	case TOKEN_NOT:
		// NOT IN / NOT LIKE / NOT BETWEEN
		return PrecedenceComparison
	case TOKEN_DPIPE, TOKEN_ARROW, TOKEN_DARROW:
		return PrecedenceOther
	case TOKEN_PLUS, TOKEN_MINUS:
		return PrecedenceAddition
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_MOD:
		return PrecedenceMultiply
	case TOKEN_DCOLON:
		return PrecedencePostfix
	default:
		return PrecedenceNone
	}
}

func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		return p.parseNotInfixExpr(left)
	case TOKEN_IS:
		return p.parseIsExpr(left)
	case TOKEN_IN:
		p.nextToken()
		return p.parseInExpr(left, false)
	case TOKEN_BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, false)
	case TOKEN_LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, false, false)
	case TOKEN_ILIKE:
		p.nextToken()
		return p.parseLikeExpr(left, false, true)
	case TOKEN_DCOLON:
		p.nextToken()
		return &TypeCastExpr{Expr: left, TypeName: p.parseTypeName()}
	default:
		op := p.token.Type
		p.nextToken()
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			p.addError(fmt.Sprintf("missing right operand for %s", op))
			return nil
		}
		return &BinaryExpr{Left: left, Op: op, Right: right}
	}
}

// parseNotInfixExpr handles NOT IN, NOT BETWEEN, NOT LIKE and NOT ILIKE.
func (p *Parser) parseNotInfixExpr(left Expr) Expr {
	p.nextToken() // consume NOT

	switch p.token.Type {
	case TOKEN_IN:
		p.nextToken()
		return p.parseInExpr(left, true)
	case TOKEN_BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, true)
	case TOKEN_LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, true, false)
	case TOKEN_ILIKE:
		p.nextToken()
		return p.parseLikeExpr(left, true, true)
	default:
		p.addError("expected IN, BETWEEN, LIKE, or ILIKE after NOT")
		return nil
	}
}

// parseIsExpr parses IS [NOT] NULL / IS [NOT] TRUE / IS [NOT] FALSE.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.nextToken() // consume IS
	isNot := p.match(TOKEN_NOT)

	switch p.token.Type {
	case TOKEN_NULL:
		p.nextToken()
		return &IsNullExpr{Expr: left, Not: isNot}
	case TOKEN_TRUE:
		p.nextToken()
		return &IsBoolExpr{Expr: left, Not: isNot, Value: true}
	case TOKEN_FALSE:
		p.nextToken()
		return &IsBoolExpr{Expr: left, Not: isNot, Value: false}
	default:
		p.addError("expected NULL, TRUE, or FALSE after IS")
		return nil
	}
}

func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	in := &InExpr{Expr: left, Not: not}
	if !p.expect(TOKEN_LPAREN) {
		return nil
	}
	if p.check(TOKEN_SELECT) || p.check(TOKEN_WITH) {
		in.Query = p.parseSelectStatement()
	} else {
		in.Values = p.parseExpressionList()
	}
	p.expect(TOKEN_RPAREN)
	return in
}

func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	between := &BetweenExpr{Expr: left, Not: not}
	between.Low = p.parseExpressionWithPrecedence(PrecedenceOther)
	p.expect(TOKEN_AND)
	between.High = p.parseExpressionWithPrecedence(PrecedenceOther)
	return between
}

func (p *Parser) parseLikeExpr(left Expr, not bool, ilike bool) Expr {
	return &LikeExpr{
		Expr:    left,
		Not:     not,
		ILike:   ilike,
		Pattern: p.parseExpressionWithPrecedence(PrecedenceOther),
	}
}

func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr
	for {
		if expr := p.parseExpression(); expr != nil {
			exprs = append(exprs, expr)
		}
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	return exprs
}

package sqlparse

import (
	"fmt"
	"strings"
)

// ParseError reports a syntax error or a construct outside the supported subset.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

// Parser parses PostgreSQL SELECT statements into an AST.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql)}
	// Initialize two-token lookahead
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the SQL and returns the top-level statement.
// Only SELECT statements (optionally with WITH) are accepted; a single
// trailing semicolon is allowed.
func Parse(sql string) (Stmt, error) {
	sel, err := ParseSelect(sql)
	if err != nil {
		return nil, err
	}
	return sel, nil
}

// ParseSelect is Parse for callers that need the concrete statement.
func ParseSelect(sql string) (*SelectStmt, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, &ParseError{Message: "empty SQL"}
	}

	p := NewParser(sql)
	if !p.check(TOKEN_SELECT) && !p.check(TOKEN_WITH) {
		return nil, &ParseError{Pos: p.token.Pos, Message: fmt.Sprintf("unsupported statement starting with %s", p.token.Type)}
	}
	stmt := p.parseSelectStatement()
	p.match(TOKEN_SEMICOLON)
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if !p.check(TOKEN_EOF) {
		return nil, &ParseError{Pos: p.token.Pos, Message: fmt.Sprintf("unexpected %q after statement", p.token.Literal)}
	}
	return stmt, nil
}

// ParseExpr parses a standalone expression from SQL text.
func ParseExpr(sql string) (Expr, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, &ParseError{Message: "empty expression"}
	}

	p := NewParser(sql)
	expr := p.parseExpression()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if !p.check(TOKEN_EOF) {
		return nil, &ParseError{Pos: p.token.Pos, Message: fmt.Sprintf("unexpected token after expression: %q", p.token.Literal)}
	}
	return expr, nil
}

// === Token Helpers ===

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("unexpected token %s, expected %s", p.token.Type, t))
	return false
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{Pos: p.token.Pos, Message: msg})
}

// ident consumes the current identifier token.
func (p *Parser) ident() Ident {
	id := Ident{Name: p.token.Literal, Quoted: p.token.Quoted}
	p.nextToken()
	return id
}

// isJoinStart reports whether the current token begins a JOIN clause.
func (p *Parser) isJoinStart() bool {
	switch p.token.Type {
	case TOKEN_JOIN, TOKEN_INNER, TOKEN_LEFT, TOKEN_RIGHT, TOKEN_FULL, TOKEN_CROSS, TOKEN_COMMA:
		return true
	}
	return false
}

// Package sqlparse provides a small PostgreSQL SELECT parser, AST, and formatter.
//
// It understands the statement shapes the analytics compiler emits: CTEs,
// correlated scalar and EXISTS subqueries, joins, window functions, casts and
// the jsonb -> / ->> operators. The subquery optimizer parses generated SQL
// with it, rewrites the tree and formats it back.
package sqlparse

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// TOKEN_EOF and friends enumerate all token types produced by the lexer.
const (
	TOKEN_EOF     TokenType = iota // end of input
	TOKEN_ILLEGAL                  // unexpected character

	TOKEN_IDENT  // identifier, quoted or not
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_STRING // 'hello'
	TOKEN_PARAM  // $1

	TOKEN_PLUS      // +
	TOKEN_MINUS     // -
	TOKEN_STAR      // *
	TOKEN_SLASH     // /
	TOKEN_MOD       // %
	TOKEN_DPIPE     // ||
	TOKEN_EQ        // =
	TOKEN_NE        // != or <>
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_LE        // <=
	TOKEN_GE        // >=
	TOKEN_DOT       // .
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_DCOLON    // ::
	TOKEN_ARROW     // -> (jsonb field)
	TOKEN_DARROW    // ->> (jsonb field as text)

	// TOKEN_ALL and below are SQL keywords (alphabetical).
	TOKEN_ALL
	TOKEN_AND
	TOKEN_AS
	TOKEN_ASC
	TOKEN_BETWEEN
	TOKEN_BY
	TOKEN_CASE
	TOKEN_CAST
	TOKEN_CROSS
	TOKEN_DESC
	TOKEN_DISTINCT
	TOKEN_ELSE
	TOKEN_END
	TOKEN_EXCEPT
	TOKEN_EXISTS
	TOKEN_EXTRACT
	TOKEN_FALSE
	TOKEN_FIRST
	TOKEN_FROM
	TOKEN_FULL
	TOKEN_GROUP
	TOKEN_HAVING
	TOKEN_ILIKE
	TOKEN_IN
	TOKEN_INNER
	TOKEN_INTERSECT
	TOKEN_INTERVAL
	TOKEN_IS
	TOKEN_JOIN
	TOKEN_LAST
	TOKEN_LEFT
	TOKEN_LIKE
	TOKEN_LIMIT
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_NULLS
	TOKEN_OFFSET
	TOKEN_ON
	TOKEN_OR
	TOKEN_ORDER
	TOKEN_OUTER
	TOKEN_OVER
	TOKEN_PARTITION
	TOKEN_RECURSIVE
	TOKEN_RIGHT
	TOKEN_SELECT
	TOKEN_THEN
	TOKEN_TRUE
	TOKEN_UNION
	TOKEN_WHEN
	TOKEN_WHERE
	TOKEN_WITH
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// tokenNames maps token types to their string representations.
var tokenNames = map[TokenType]string{
	TOKEN_EOF:     "EOF",
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_IDENT:   "IDENT",
	TOKEN_NUMBER:  "NUMBER",
	TOKEN_STRING:  "STRING",
	TOKEN_PARAM:   "PARAM",

	TOKEN_PLUS:      "+",
	TOKEN_MINUS:     "-",
	TOKEN_STAR:      "*",
	TOKEN_SLASH:     "/",
	TOKEN_MOD:       "%",
	TOKEN_DPIPE:     "||",
	TOKEN_EQ:        "=",
	TOKEN_NE:        "<>",
	TOKEN_LT:        "<",
	TOKEN_GT:        ">",
	TOKEN_LE:        "<=",
	TOKEN_GE:        ">=",
	TOKEN_DOT:       ".",
	TOKEN_COMMA:     ",",
	TOKEN_SEMICOLON: ";",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_DCOLON:    "::",
	TOKEN_ARROW:     "->",
	TOKEN_DARROW:    "->>",

	TOKEN_ALL:       "ALL",
	TOKEN_AND:       "AND",
	TOKEN_AS:        "AS",
	TOKEN_ASC:       "ASC",
	TOKEN_BETWEEN:   "BETWEEN",
	TOKEN_BY:        "BY",
	TOKEN_CASE:      "CASE",
	TOKEN_CAST:      "CAST",
	TOKEN_CROSS:     "CROSS",
	TOKEN_DESC:      "DESC",
	TOKEN_DISTINCT:  "DISTINCT",
	TOKEN_ELSE:      "ELSE",
	TOKEN_END:       "END",
	TOKEN_EXCEPT:    "EXCEPT",
	TOKEN_EXISTS:    "EXISTS",
	TOKEN_EXTRACT:   "EXTRACT",
	TOKEN_FALSE:     "FALSE",
	TOKEN_FIRST:     "FIRST",
	TOKEN_FROM:      "FROM",
	TOKEN_FULL:      "FULL",
	TOKEN_GROUP:     "GROUP",
	TOKEN_HAVING:    "HAVING",
	TOKEN_ILIKE:     "ILIKE",
	TOKEN_IN:        "IN",
	TOKEN_INNER:     "INNER",
	TOKEN_INTERSECT: "INTERSECT",
	TOKEN_INTERVAL:  "INTERVAL",
	TOKEN_IS:        "IS",
	TOKEN_JOIN:      "JOIN",
	TOKEN_LAST:      "LAST",
	TOKEN_LEFT:      "LEFT",
	TOKEN_LIKE:      "LIKE",
	TOKEN_LIMIT:     "LIMIT",
	TOKEN_NOT:       "NOT",
	TOKEN_NULL:      "NULL",
	TOKEN_NULLS:     "NULLS",
	TOKEN_OFFSET:    "OFFSET",
	TOKEN_ON:        "ON",
	TOKEN_OR:        "OR",
	TOKEN_ORDER:     "ORDER",
	TOKEN_OUTER:     "OUTER",
	TOKEN_OVER:      "OVER",
	TOKEN_PARTITION: "PARTITION",
	TOKEN_RECURSIVE: "RECURSIVE",
	TOKEN_RIGHT:     "RIGHT",
	TOKEN_SELECT:    "SELECT",
	TOKEN_THEN:      "THEN",
	TOKEN_TRUE:      "TRUE",
	TOKEN_UNION:     "UNION",
	TOKEN_WHEN:      "WHEN",
	TOKEN_WHERE:     "WHERE",
	TOKEN_WITH:      "WITH",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"all":       TOKEN_ALL,
	"and":       TOKEN_AND,
	"as":        TOKEN_AS,
	"asc":       TOKEN_ASC,
	"between":   TOKEN_BETWEEN,
	"by":        TOKEN_BY,
	"case":      TOKEN_CASE,
	"cast":      TOKEN_CAST,
	"cross":     TOKEN_CROSS,
	"desc":      TOKEN_DESC,
	"distinct":  TOKEN_DISTINCT,
	"else":      TOKEN_ELSE,
	"end":       TOKEN_END,
	"except":    TOKEN_EXCEPT,
	"exists":    TOKEN_EXISTS,
	"extract":   TOKEN_EXTRACT,
	"false":     TOKEN_FALSE,
	"first":     TOKEN_FIRST,
	"from":      TOKEN_FROM,
	"full":      TOKEN_FULL,
	"group":     TOKEN_GROUP,
	"having":    TOKEN_HAVING,
	"ilike":     TOKEN_ILIKE,
	"in":        TOKEN_IN,
	"inner":     TOKEN_INNER,
	"intersect": TOKEN_INTERSECT,
	"interval":  TOKEN_INTERVAL,
	"is":        TOKEN_IS,
	"join":      TOKEN_JOIN,
	"last":      TOKEN_LAST,
	"left":      TOKEN_LEFT,
	"like":      TOKEN_LIKE,
	"limit":     TOKEN_LIMIT,
	"not":       TOKEN_NOT,
	"null":      TOKEN_NULL,
	"nulls":     TOKEN_NULLS,
	"offset":    TOKEN_OFFSET,
	"on":        TOKEN_ON,
	"or":        TOKEN_OR,
	"order":     TOKEN_ORDER,
	"outer":     TOKEN_OUTER,
	"over":      TOKEN_OVER,
	"partition": TOKEN_PARTITION,
	"recursive": TOKEN_RECURSIVE,
	"right":     TOKEN_RIGHT,
	"select":    TOKEN_SELECT,
	"then":      TOKEN_THEN,
	"true":      TOKEN_TRUE,
	"union":     TOKEN_UNION,
	"when":      TOKEN_WHEN,
	"where":     TOKEN_WHERE,
	"with":      TOKEN_WITH,
}

// lookupKeyword returns the token type for the given lowercase identifier.
// Returns TOKEN_IDENT if it's not a keyword.
func lookupKeyword(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}

// isKeywordName reports whether s would lex as a keyword when written unquoted.
func isKeywordName(s string) bool {
	_, ok := keywords[s]
	return ok
}

// Token represents a lexical token with its literal value.
type Token struct {
	Type    TokenType
	Literal string
	Quoted  bool // identifier was written in double quotes
	Pos     int  // byte offset of the token start
}

// Precedence constants for operator precedence parsing (Pratt parser).
// The ordering follows PostgreSQL: user operators (||, ->, ->>) bind tighter
// than comparisons and looser than arithmetic.
const (
	PrecedenceNone       = 0
	PrecedenceOr         = 1
	PrecedenceAnd        = 2
	PrecedenceNot        = 3
	PrecedenceComparison = 4 // =, <>, <, >, <=, >=, LIKE, ILIKE, IN, BETWEEN, IS
	PrecedenceOther      = 5 // ||, ->, ->>
	PrecedenceAddition   = 6 // +, -
	PrecedenceMultiply   = 7 // *, /, %
	PrecedenceUnary      = 8 // -, + (prefix)
	PrecedencePostfix    = 9 // ::
)

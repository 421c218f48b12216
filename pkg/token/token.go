// Package token defines the token types of the table query language.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	QIDENT // "quoted identifier" or `quoted identifier`
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello'

	// Operators
	PLUS     // +
	MINUS    // -
	STAR     // *
	SLASH    // /
	PERCENT  // %
	EQ       // =
	NE       // != or <>
	LT       // <
	GT       // >
	LE       // <=
	GE       // >=
	DOT      // .
	COMMA    // ,
	LPAREN   // (
	RPAREN   // )

	// Keywords (alphabetical)
	AND
	AS
	ASC
	BETWEEN
	BY
	DESC
	DISTINCT
	DIV
	ESCAPE
	FALSE
	FROM
	GROUP
	HAS
	HAVING
	IN
	INNER
	IS
	JOIN
	LEFT
	LIKE
	LIMIT
	NOT
	NULL
	OFFSET
	ON
	OR
	ORDER
	OUTER
	RIGHT
	SELECT
	TRUE
	WHERE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	QIDENT: "QIDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	EQ:      "=",
	NE:      "<>",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	DOT:     ".",
	COMMA:   ",",
	LPAREN:  "(",
	RPAREN:  ")",

	AND:      "AND",
	AS:       "AS",
	ASC:      "ASC",
	BETWEEN:  "BETWEEN",
	BY:       "BY",
	DESC:     "DESC",
	DISTINCT: "DISTINCT",
	DIV:      "DIV",
	ESCAPE:   "ESCAPE",
	FALSE:    "FALSE",
	FROM:     "FROM",
	GROUP:    "GROUP",
	HAS:      "HAS",
	HAVING:   "HAVING",
	IN:       "IN",
	INNER:    "INNER",
	IS:       "IS",
	JOIN:     "JOIN",
	LEFT:     "LEFT",
	LIKE:     "LIKE",
	LIMIT:    "LIMIT",
	NOT:      "NOT",
	NULL:     "NULL",
	OFFSET:   "OFFSET",
	ON:       "ON",
	OR:       "OR",
	ORDER:    "ORDER",
	OUTER:    "OUTER",
	RIGHT:    "RIGHT",
	SELECT:   "SELECT",
	TRUE:     "TRUE",
	WHERE:    "WHERE",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"and":      AND,
	"as":       AS,
	"asc":      ASC,
	"between":  BETWEEN,
	"by":       BY,
	"desc":     DESC,
	"distinct": DISTINCT,
	"div":      DIV,
	"escape":   ESCAPE,
	"false":    FALSE,
	"from":     FROM,
	"group":    GROUP,
	"has":      HAS,
	"having":   HAVING,
	"in":       IN,
	"inner":    INNER,
	"is":       IS,
	"join":     JOIN,
	"left":     LEFT,
	"like":     LIKE,
	"limit":    LIMIT,
	"not":      NOT,
	"null":     NULL,
	"offset":   OFFSET,
	"on":       ON,
	"or":       OR,
	"order":    ORDER,
	"outer":    OUTER,
	"right":    RIGHT,
	"select":   SELECT,
	"true":     TRUE,
	"where":    WHERE,
}

// LookupIdent returns the token type for the given lowercase identifier.
// If the identifier is a keyword, the keyword token type is returned.
// Otherwise, IDENT is returned.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= AND && t <= WHERE
}

// IsOperator returns true if the token type is an operator.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RPAREN
}

// IsComparison returns true for the binary comparison operators.
func IsComparison(t TokenType) bool {
	return t >= EQ && t <= GE
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// Package parser provides parsing for the table query language.
//
// # Usage
//
//	q, err := parser.Parse("select foo, count(*) from syn123 group by foo")
//	if err != nil {
//	    // handle error
//	}
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for a single query
// specification over one or more virtual tables:
//
//	query         → SELECT [DISTINCT] select_list FROM from_clause
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	                [ORDER BY order_list] [LIMIT expr [OFFSET expr]]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Parser parses query text into an AST.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // lookahead token
	peek2  Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given query text.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a complete query specification.
func Parse(sql string) (*core.QuerySpecification, error) {
	p := NewParser(sql)
	q := p.parseQuery()
	if !p.check(TOKEN_EOF) {
		p.addError(fmt.Sprintf(ErrTrailingInput, p.token.Type))
	}
	if err := p.firstError(); err != nil {
		return nil, err
	}
	return q, nil
}

// ParseExpression parses a standalone expression such as a search condition.
func ParseExpression(sql string) (core.Expr, error) {
	p := NewParser(sql)
	expr := p.parseExpression()
	if !p.check(TOKEN_EOF) {
		p.addError(fmt.Sprintf(ErrTrailingInput, p.token.Type))
	}
	if err := p.firstError(); err != nil {
		return nil, err
	}
	return expr, nil
}

// firstError returns the first lexer error, then the first parse error.
func (p *Parser) firstError() error {
	if len(p.lexer.Errors) > 0 {
		return p.lexer.Errors[0]
	}
	if len(p.errors) > 0 {
		return p.errors[0]
	}
	return nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, t))
	return false
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// failed reports whether any error has been recorded so loops can stop early.
func (p *Parser) failed() bool {
	return len(p.errors) > 0 || len(p.lexer.Errors) > 0
}

// isIdentifier returns true for plain and quoted identifiers.
func (p *Parser) isIdentifier(tok Token) bool {
	return tok.Type == TOKEN_IDENT || tok.Type == TOKEN_QIDENT
}

package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Primary expression parsing: literals, column refs, function calls.
//
// Grammar:
//
//	primary       → literal | column_ref | func_call | paren_expr
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL
//	column_ref    → [alias "."] column
//	column        → identifier | quoted_identifier
//	func_call     → identifier "(" [DISTINCT] [expr_list | "*"] ")"
//	paren_expr    → "(" expr ")"

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() core.Expr {
	info := core.NodeInfo{Start: p.token.Pos}

	switch p.token.Type {
	case TOKEN_NUMBER:
		lit := &core.Literal{NodeInfo: info, Type: core.LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_STRING:
		lit := &core.Literal{NodeInfo: info, Type: core.LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_TRUE:
		p.nextToken()
		return &core.Literal{NodeInfo: info, Type: core.LiteralBool, Value: "true"}

	case TOKEN_FALSE:
		p.nextToken()
		return &core.Literal{NodeInfo: info, Type: core.LiteralBool, Value: "false"}

	case TOKEN_NULL:
		p.nextToken()
		return &core.Literal{NodeInfo: info, Type: core.LiteralNull, Value: "null"}

	case TOKEN_IDENT, TOKEN_QIDENT:
		return p.parseIdentifierExpr()

	case TOKEN_LPAREN:
		p.nextToken()
		inner := p.parseExpression()
		p.expect(TOKEN_RPAREN)
		if inner == nil {
			return nil
		}
		return &core.ParenExpr{NodeInfo: info, Expr: inner}

	default:
		if p.check(TOKEN_EOF) {
			p.addError("unexpected end of input in expression")
		} else {
			p.addError(fmt.Sprintf("unexpected token in expression: %s", p.token.Type))
		}
		return nil
	}
}

// parseIdentifierExpr parses an identifier which could be a column ref or function call.
func (p *Parser) parseIdentifierExpr() core.Expr {
	info := core.NodeInfo{Start: p.token.Pos}
	name := p.token.Literal
	quoted := p.check(TOKEN_QIDENT)
	p.nextToken()

	// Function call
	if !quoted && p.check(TOKEN_LPAREN) {
		return p.parseFuncCall(info, name)
	}

	// Qualified column reference: alias.column
	if p.match(TOKEN_DOT) {
		if !p.isIdentifier(p.token) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, TOKEN_IDENT))
			return nil
		}
		ref := &core.ColumnRef{
			NodeInfo: info,
			Table:    name,
			Column:   p.token.Literal,
			Quoted:   p.check(TOKEN_QIDENT),
		}
		p.nextToken()
		return ref
	}

	return &core.ColumnRef{NodeInfo: info, Column: name, Quoted: quoted}
}

// parseFuncCall parses a function call.
func (p *Parser) parseFuncCall(info core.NodeInfo, name string) core.Expr {
	fn := &core.FuncCall{NodeInfo: info, Name: strings.ToUpper(name)}

	p.expect(TOKEN_LPAREN)

	// COUNT(*)
	if p.check(TOKEN_STAR) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(TOKEN_RPAREN) {
		if p.match(TOKEN_DISTINCT) {
			fn.Distinct = true
		}
		fn.Args = p.parseExpressionList()
	}

	p.expect(TOKEN_RPAREN)
	return fn
}

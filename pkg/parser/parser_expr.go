package parser

import (
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/token"
)

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels:
//
//	precedenceNone       = 0
//	precedenceOr         = 1
//	precedenceAnd        = 2
//	precedenceNot        = 3
//	precedenceComparison = 4  (=, <>, <, >, <=, >=, IS, IN, HAS, BETWEEN, LIKE)
//	precedenceAddition   = 5  (+, -)
//	precedenceMultiply   = 6  (*, /, %, DIV)
//	precedenceUnary      = 7  (-, +)
const (
	precedenceNone = iota
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceComparison
	precedenceAddition
	precedenceMultiply
	precedenceUnary
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() core.Expr {
	return p.parseExpressionWithPrecedence(precedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) core.Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.infixPrecedence(p.token.Type)
		if prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil || p.failed() {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() core.Expr {
	pos := p.token.Pos

	switch p.token.Type {
	case TOKEN_NOT:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceNot)
		return &core.UnaryExpr{NodeInfo: core.NodeInfo{Start: pos}, Op: token.NOT, Expr: expr}

	case TOKEN_MINUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		return &core.UnaryExpr{NodeInfo: core.NodeInfo{Start: pos}, Op: token.MINUS, Expr: expr}

	case TOKEN_PLUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		return &core.UnaryExpr{NodeInfo: core.NodeInfo{Start: pos}, Op: token.PLUS, Expr: expr}

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of a token used as an infix operator,
// or precedenceNone if it is not one.
func (p *Parser) infixPrecedence(t TokenType) int {
	switch t {
	case TOKEN_OR:
		return precedenceOr
	case TOKEN_AND:
		return precedenceAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE:
		return precedenceComparison
	case TOKEN_IS, TOKEN_IN, TOKEN_HAS, TOKEN_BETWEEN, TOKEN_LIKE:
		return precedenceComparison
	case TOKEN_NOT:
		// NOT IN, NOT HAS, NOT BETWEEN, NOT LIKE
		return precedenceComparison
	case TOKEN_PLUS, TOKEN_MINUS:
		return precedenceAddition
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_PERCENT, TOKEN_DIV:
		return precedenceMultiply
	default:
		return precedenceNone
	}
}

// parseInfixExpr parses an infix expression given the left operand and current precedence.
func (p *Parser) parseInfixExpr(left core.Expr, prec int) core.Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		return p.parseNotInfixExpr(left)

	case TOKEN_IS:
		return p.parseIsExpr(left)

	case TOKEN_IN:
		p.nextToken()
		return p.parseInExpr(left, false)

	case TOKEN_HAS:
		p.nextToken()
		return p.parseHasExpr(left, false)

	case TOKEN_BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, false)

	case TOKEN_LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, false)
	}

	// Standard binary operators
	op := p.token
	p.nextToken()

	// Parse right operand with higher precedence (left-associative)
	right := p.parseExpressionWithPrecedence(prec + 1)
	if right == nil {
		return nil
	}

	return &core.BinaryExpr{NodeInfo: core.NodeInfo{Start: left.Pos()}, Left: left, Op: op.Type, Right: right}
}

// parseNotInfixExpr handles NOT as an infix modifier (NOT IN, NOT HAS, NOT BETWEEN, NOT LIKE).
func (p *Parser) parseNotInfixExpr(left core.Expr) core.Expr {
	p.nextToken() // consume NOT

	switch p.token.Type {
	case TOKEN_IN:
		p.nextToken()
		return p.parseInExpr(left, true)

	case TOKEN_HAS:
		p.nextToken()
		return p.parseHasExpr(left, true)

	case TOKEN_BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, true)

	case TOKEN_LIKE:
		p.nextToken()
		return p.parseLikeExpr(left, true)

	default:
		p.addError("expected IN, HAS, BETWEEN, or LIKE after NOT")
		return nil
	}
}

// parseIsExpr parses IS [NOT] NULL / IS [NOT] TRUE / IS [NOT] FALSE.
func (p *Parser) parseIsExpr(left core.Expr) core.Expr {
	p.nextToken() // consume IS

	isNot := p.match(TOKEN_NOT)
	info := core.NodeInfo{Start: left.Pos()}

	switch p.token.Type {
	case TOKEN_NULL:
		p.nextToken()
		return &core.IsNullExpr{NodeInfo: info, Expr: left, Not: isNot}

	case TOKEN_TRUE:
		p.nextToken()
		return &core.IsBoolExpr{NodeInfo: info, Expr: left, Not: isNot, Value: true}

	case TOKEN_FALSE:
		p.nextToken()
		return &core.IsBoolExpr{NodeInfo: info, Expr: left, Not: isNot, Value: false}

	default:
		p.addError("expected NULL, TRUE, or FALSE after IS")
		return nil
	}
}

// parseValueList parses "(" expr_list ")".
func (p *Parser) parseValueList() []core.Expr {
	if !p.expect(TOKEN_LPAREN) {
		return nil
	}
	values := p.parseExpressionList()
	p.expect(TOKEN_RPAREN)
	return values
}

// parseInExpr parses an IN list.
func (p *Parser) parseInExpr(left core.Expr, not bool) core.Expr {
	return &core.InExpr{
		NodeInfo: core.NodeInfo{Start: left.Pos()},
		Expr:     left,
		Not:      not,
		Values:   p.parseValueList(),
	}
}

// parseHasExpr parses a list-column HAS list.
func (p *Parser) parseHasExpr(left core.Expr, not bool) core.Expr {
	return &core.HasExpr{
		NodeInfo: core.NodeInfo{Start: left.Pos()},
		Expr:     left,
		Not:      not,
		Values:   p.parseValueList(),
	}
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(left core.Expr, not bool) core.Expr {
	between := &core.BetweenExpr{NodeInfo: core.NodeInfo{Start: left.Pos()}, Expr: left, Not: not}
	// Parse low bound at addition precedence to avoid capturing AND
	between.Low = p.parseExpressionWithPrecedence(precedenceAddition)
	p.expect(TOKEN_AND)
	between.High = p.parseExpressionWithPrecedence(precedenceAddition)
	return between
}

// parseLikeExpr parses a LIKE expression with an optional ESCAPE.
func (p *Parser) parseLikeExpr(left core.Expr, not bool) core.Expr {
	like := &core.LikeExpr{NodeInfo: core.NodeInfo{Start: left.Pos()}, Expr: left, Not: not}
	like.Pattern = p.parseExpressionWithPrecedence(precedenceAddition)
	if p.match(TOKEN_ESCAPE) {
		like.Escape = p.parseExpressionWithPrecedence(precedenceAddition)
	}
	return like
}

package parser

import (
	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Statement parsing: SELECT list, clauses, ORDER BY.
//
// Grammar:
//
//	select_list   → select_item ("," select_item)*
//	select_item   → "*" | table "." "*" | expr [[AS] alias]
//	alias         → identifier | quoted_identifier
//	group_list    → expr ("," expr)*
//	order_list    → order_item ("," order_item)*
//	order_item    → expr [ASC|DESC]

// parseQuery parses a complete query specification.
func (p *Parser) parseQuery() *core.QuerySpecification {
	q := &core.QuerySpecification{}
	q.Start = p.token.Pos

	if !p.expect(TOKEN_SELECT) {
		return q
	}

	q.Distinct = p.match(TOKEN_DISTINCT)
	q.SelectList = p.parseSelectList()

	if !p.expect(TOKEN_FROM) {
		return q
	}
	q.From = p.parseFromClause()

	if p.match(TOKEN_WHERE) {
		q.Where = p.parseExpression()
	}

	if p.match(TOKEN_GROUP) {
		p.expect(TOKEN_BY)
		q.GroupBy = p.parseExpressionList()
	}

	if p.match(TOKEN_HAVING) {
		q.Having = p.parseExpression()
	}

	if p.match(TOKEN_ORDER) {
		p.expect(TOKEN_BY)
		q.OrderBy = p.parseOrderByList()
	}

	if p.match(TOKEN_LIMIT) {
		q.Limit = p.parseExpression()
		if p.match(TOKEN_OFFSET) {
			q.Offset = p.parseExpression()
		}
	}

	return q
}

// parseSelectList parses the select list.
func (p *Parser) parseSelectList() []*core.SelectItem {
	var items []*core.SelectItem

	for {
		items = append(items, p.parseSelectItem())
		if p.failed() || !p.match(TOKEN_COMMA) {
			break
		}
	}

	return items
}

// parseSelectItem parses a single select item.
func (p *Parser) parseSelectItem() *core.SelectItem {
	item := &core.SelectItem{}

	// SELECT *
	if p.check(TOKEN_STAR) {
		item.Expr = &core.StarExpr{NodeInfo: core.NodeInfo{Start: p.token.Pos}}
		p.nextToken()
		return item
	}

	// SELECT t.*
	if p.check(TOKEN_IDENT) && p.checkPeek(TOKEN_DOT) && p.peek2.Type == TOKEN_STAR {
		item.Expr = &core.StarExpr{NodeInfo: core.NodeInfo{Start: p.token.Pos}, Table: p.token.Literal}
		p.nextToken() // table
		p.nextToken() // .
		p.nextToken() // *
		return item
	}

	item.Expr = p.parseExpression()

	// Optional alias, with or without AS
	explicit := p.match(TOKEN_AS)
	if p.isIdentifier(p.token) {
		item.Alias = p.token.Literal
		item.AliasQuoted = p.check(TOKEN_QIDENT)
		p.nextToken()
	} else if explicit {
		p.addError("expected alias after AS")
	}

	return item
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []core.Expr {
	var exprs []core.Expr

	for {
		exprs = append(exprs, p.parseExpression())
		if p.failed() || !p.match(TOKEN_COMMA) {
			break
		}
	}

	return exprs
}

// parseOrderByList parses an ORDER BY list.
func (p *Parser) parseOrderByList() []*core.OrderByItem {
	var items []*core.OrderByItem

	for {
		item := &core.OrderByItem{Expr: p.parseExpression()}
		switch {
		case p.match(TOKEN_ASC):
			item.Direction = core.OrderAsc
		case p.match(TOKEN_DESC):
			item.Direction = core.OrderDesc
		}
		items = append(items, item)

		if p.failed() || !p.match(TOKEN_COMMA) {
			break
		}
	}

	return items
}

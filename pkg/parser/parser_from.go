package parser

import (
	"fmt"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// FROM clause parsing: table references and JOINs.
//
// Grammar:
//
//	from_clause   → table_name (join)*
//	table_name    → table_id [[AS] alias]
//	table_id      → (identifier | NUMBER) ["." NUMBER]      e.g. syn123, syn123.4, 123
//	join          → join_type JOIN table_name [ON expr]
//	join_type     → [INNER] | LEFT [OUTER] | RIGHT [OUTER]

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *core.FromClause {
	from := &core.FromClause{NodeInfo: core.NodeInfo{Start: p.token.Pos}}
	from.Source = p.parseTableName()

	for !p.failed() {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}

	return from
}

// parseTableName parses a table id with an optional version and alias.
func (p *Parser) parseTableName() *core.TableName {
	table := &core.TableName{NodeInfo: core.NodeInfo{Start: p.token.Pos}}

	if !p.isIdentifier(p.token) && !p.check(TOKEN_NUMBER) {
		p.addError("expected table name")
		return table
	}

	name := p.token.Literal
	p.nextToken()

	// syn123.4 lexes as IDENT DOT NUMBER
	if p.check(TOKEN_DOT) && p.checkPeek(TOKEN_NUMBER) {
		p.nextToken()
		name += "." + p.token.Literal
		p.nextToken()
	}

	id, err := core.ParseIdAndVersion(name)
	if err != nil {
		p.addError(fmt.Sprintf(ErrInvalidTableName, name))
		return table
	}
	table.Name = name
	table.ID = id

	// Optional alias
	explicit := p.match(TOKEN_AS)
	if p.isIdentifier(p.token) {
		table.Alias = p.token.Literal
		p.nextToken()
	} else if explicit {
		p.addError("expected alias after AS")
	}

	return table
}

// parseJoin parses a single JOIN step. Returns nil when no join follows.
func (p *Parser) parseJoin() *core.Join {
	join := &core.Join{NodeInfo: core.NodeInfo{Start: p.token.Pos}}

	switch p.token.Type {
	case TOKEN_JOIN:
		join.Type = core.JoinPlain
	case TOKEN_INNER:
		join.Type = core.JoinInner
		p.nextToken()
	case TOKEN_LEFT:
		join.Type = core.JoinLeft
		p.nextToken()
		join.Outer = p.match(TOKEN_OUTER)
	case TOKEN_RIGHT:
		join.Type = core.JoinRight
		p.nextToken()
		join.Outer = p.match(TOKEN_OUTER)
	default:
		return nil
	}

	if !p.expect(TOKEN_JOIN) {
		return nil
	}

	join.Right = p.parseTableName()

	if p.match(TOKEN_ON) {
		join.On = p.parseExpression()
	}

	return join
}

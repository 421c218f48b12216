package parser

import (
	"strings"

	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/token"
)

// Logical SQL rendering. The output parses back to an equivalent AST and is
// used for result column names and for assembling derived queries.

// FormatQuery renders a query specification as logical SQL.
func FormatQuery(q *core.QuerySpecification) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.Distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, item := range q.SelectList {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatExpr(item.Expr))
		if item.Alias != "" {
			sb.WriteString(" AS ")
			if item.AliasQuoted {
				sb.WriteString(QuoteIdentifier(item.Alias))
			} else {
				sb.WriteString(item.Alias)
			}
		}
	}
	sb.WriteString(" ")
	sb.WriteString(FormatFrom(q.From))
	if q.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(FormatExpr(q.Where))
	}
	if len(q.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(formatList(q.GroupBy))
	}
	if q.Having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(FormatExpr(q.Having))
	}
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, item := range q.OrderBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(FormatExpr(item.Expr))
			if item.Direction != core.OrderDefault {
				sb.WriteString(" ")
				sb.WriteString(string(item.Direction))
			}
		}
	}
	if q.Limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(FormatExpr(q.Limit))
		if q.Offset != nil {
			sb.WriteString(" OFFSET ")
			sb.WriteString(FormatExpr(q.Offset))
		}
	}
	return sb.String()
}

// FormatFrom renders a FROM clause including the FROM keyword.
func FormatFrom(f *core.FromClause) string {
	var sb strings.Builder
	sb.WriteString("FROM ")
	sb.WriteString(formatTableName(f.Source))
	for _, j := range f.Joins {
		sb.WriteString(" ")
		sb.WriteString(j.Keyword())
		sb.WriteString(" ")
		sb.WriteString(formatTableName(j.Right))
		if j.On != nil {
			sb.WriteString(" ON ")
			sb.WriteString(FormatExpr(j.On))
		}
	}
	return sb.String()
}

func formatTableName(t *core.TableName) string {
	name := t.Name
	if name == "" {
		name = t.ID.String()
	}
	if t.Alias != "" {
		return name + " " + t.Alias
	}
	return name
}

// FormatExpr renders an expression as logical SQL.
func FormatExpr(expr core.Expr) string {
	var sb strings.Builder
	writeExpr(&sb, expr)
	return sb.String()
}

func writeExpr(sb *strings.Builder, expr core.Expr) {
	switch e := expr.(type) {
	case nil:
		return
	case *core.ColumnRef:
		if e.Table != "" {
			sb.WriteString(e.Table)
			sb.WriteString(".")
		}
		if e.Quoted {
			sb.WriteString(QuoteIdentifier(e.Column))
		} else {
			sb.WriteString(e.Column)
		}
	case *core.Literal:
		writeLiteral(sb, e)
	case *core.StarExpr:
		if e.Table != "" {
			sb.WriteString(e.Table)
			sb.WriteString(".")
		}
		sb.WriteString("*")
	case *core.BinaryExpr:
		writeExpr(sb, e.Left)
		sb.WriteString(BinaryOperator(e.Op))
		writeExpr(sb, e.Right)
	case *core.UnaryExpr:
		if e.Op == token.NOT {
			sb.WriteString("NOT ")
		} else {
			sb.WriteString(e.Op.String())
		}
		writeExpr(sb, e.Expr)
	case *core.ParenExpr:
		sb.WriteString("( ")
		writeExpr(sb, e.Expr)
		sb.WriteString(" )")
	case *core.FuncCall:
		sb.WriteString(e.Name)
		sb.WriteString("(")
		if e.Star {
			sb.WriteString("*")
		} else {
			if e.Distinct {
				sb.WriteString("DISTINCT ")
			}
			sb.WriteString(formatList(e.Args))
		}
		sb.WriteString(")")
	case *core.InExpr:
		writeExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN ( ")
		sb.WriteString(formatList(e.Values))
		sb.WriteString(" )")
	case *core.HasExpr:
		writeExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" HAS ( ")
		sb.WriteString(formatList(e.Values))
		sb.WriteString(" )")
	case *core.BetweenExpr:
		writeExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" BETWEEN ")
		writeExpr(sb, e.Low)
		sb.WriteString(" AND ")
		writeExpr(sb, e.High)
	case *core.IsNullExpr:
		writeExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" IS NOT NULL")
		} else {
			sb.WriteString(" IS NULL")
		}
	case *core.IsBoolExpr:
		writeExpr(sb, e.Expr)
		sb.WriteString(" IS ")
		if e.Not {
			sb.WriteString("NOT ")
		}
		if e.Value {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
	case *core.LikeExpr:
		writeExpr(sb, e.Expr)
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" LIKE ")
		writeExpr(sb, e.Pattern)
		if e.Escape != nil {
			sb.WriteString(" ESCAPE ")
			writeExpr(sb, e.Escape)
		}
	}
}

func writeLiteral(sb *strings.Builder, lit *core.Literal) {
	switch lit.Type {
	case core.LiteralString:
		sb.WriteString(QuoteString(lit.Value))
	case core.LiteralBool:
		sb.WriteString(strings.ToUpper(lit.Value))
	case core.LiteralNull:
		sb.WriteString("NULL")
	default:
		sb.WriteString(lit.Value)
	}
}

func formatList(exprs []core.Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = FormatExpr(e)
	}
	return strings.Join(parts, ", ")
}

// BinaryOperator returns the operator text with its surrounding spacing.
// Multiplicative operators are written without spaces, e.g. a*b.
func BinaryOperator(op TokenType) string {
	switch op {
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_PERCENT:
		return op.String()
	default:
		return " " + op.String() + " "
	}
}

// QuoteIdentifier wraps name in double quotes, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString wraps s in single quotes, doubling embedded quotes.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

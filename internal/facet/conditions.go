package facet

import (
	"strings"

	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// column is a faceted column of the base table with the caller's request for
// it, if any.
type column struct {
	model   core.ColumnModel
	request Request
}

func (c column) name() string { return c.model.Name }

// condition renders the search condition the request contributes, or "" when
// it filters nothing.
func (c column) condition() string {
	switch r := c.request.(type) {
	case ValuesRequest:
		return valuesCondition(c.model, r.Values)
	case RangeRequest:
		return rangeCondition(c.model, r.Min, r.Max)
	}
	return ""
}

func valuesCondition(col core.ColumnModel, values []string) string {
	if len(values) == 0 {
		return ""
	}
	name := parser.QuoteIdentifier(col.Name)

	var terms []string
	var listValues []string
	for _, v := range values {
		switch {
		case v == NullValueKeyword:
			terms = append(terms, name+" IS NULL")
		case col.IsList:
			listValues = append(listValues, parser.QuoteString(v))
		default:
			terms = append(terms, name+" = "+parser.QuoteString(v))
		}
	}
	if len(listValues) > 0 {
		has := name + " HAS (" + strings.Join(listValues, ", ") + ")"
		terms = append([]string{has}, terms...)
	}
	return strings.Join(terms, " OR ")
}

func rangeCondition(col core.ColumnModel, lo, hi string) string {
	name := parser.QuoteIdentifier(col.Name)
	if lo == NullValueKeyword || hi == NullValueKeyword {
		return name + " IS NULL"
	}
	switch {
	case lo != "" && hi != "":
		return name + " BETWEEN " + parser.QuoteString(lo) + " AND " + parser.QuoteString(hi)
	case lo != "":
		return name + " >= " + parser.QuoteString(lo)
	case hi != "":
		return name + " <= " + parser.QuoteString(hi)
	}
	return ""
}

// otherConditions joins the conditions of every facet except exclude.
func otherConditions(facets []column, exclude string) string {
	var parts []string
	for _, f := range facets {
		if f.name() == exclude {
			continue
		}
		if cond := f.condition(); cond != "" {
			parts = append(parts, "("+cond+")")
		}
	}
	return strings.Join(parts, " AND ")
}

// whereClause combines the base query's WHERE with facet conditions.
func whereClause(base core.Expr, facets string) string {
	switch {
	case base == nil && facets == "":
		return ""
	case base == nil:
		return " WHERE (" + facets + ")"
	case facets == "":
		return " WHERE " + parser.FormatExpr(base)
	}
	return " WHERE (" + parser.FormatExpr(base) + ") AND (" + facets + ")"
}

package facet

import (
	"context"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// Result column aliases of the facet queries.
const (
	ValueAlias = "value"
	CountAlias = "frequency"
	MinAlias   = "minimum"
	MaxAlias   = "maximum"
)

// DefaultMaxValues caps the buckets of a value count query.
const DefaultMaxValues = 100

// Transformer holds the compiled query of one facet and turns its rows into
// a Result.
type Transformer interface {
	ColumnName() string
	FacetType() core.FacetType
	// SQL is the logical query the compiled query was built from.
	SQL() string
	Query() *translator.CompiledQuery
	Translate(rs *RowSet) (*Result, error)
}

// ValueCounts counts rows per distinct value of an enumeration column.
type ValueCounts struct {
	column   string
	selected map[string]struct{}
	sql      string
	query    *translator.CompiledQuery
}

func newValueCounts(ctx context.Context, c compiler, f column, facets []column, maxValues int) (*ValueCounts, error) {
	target := parser.QuoteIdentifier(f.name())
	if f.model.IsList {
		target = "UNNEST(" + target + ")"
	}
	sql := fmt.Sprintf("SELECT %s AS %s, COUNT(*) AS %s %s%s GROUP BY %s ORDER BY %s DESC, %s ASC LIMIT %d",
		target, ValueAlias, CountAlias,
		parser.FormatFrom(c.base.From), whereClause(c.base.Where, otherConditions(facets, f.name())),
		target, CountAlias, ValueAlias, maxValues)

	query, err := c.compile(ctx, sql)
	if err != nil {
		return nil, err
	}

	vc := &ValueCounts{column: f.name(), sql: sql, query: query}
	if r, ok := f.request.(ValuesRequest); ok {
		vc.selected = make(map[string]struct{}, len(r.Values))
		for _, v := range r.Values {
			vc.selected[v] = struct{}{}
		}
	}
	return vc, nil
}

func (v *ValueCounts) ColumnName() string               { return v.column }
func (v *ValueCounts) FacetType() core.FacetType        { return core.FacetEnumeration }
func (v *ValueCounts) SQL() string                      { return v.sql }
func (v *ValueCounts) Query() *translator.CompiledQuery { return v.query }

// Translate maps each row to a bucket. NULL values are reported under
// NullValueKeyword.
func (v *ValueCounts) Translate(rs *RowSet) (*Result, error) {
	if err := checkHeaders(rs, ValueAlias, CountAlias); err != nil {
		return nil, err
	}

	values := make([]ValueCount, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		if len(row) != 2 {
			return nil, core.Errorf(core.KindMalformedResultShape, "Row %d has %d values, expected 2", i, len(row))
		}
		value := NullValueKeyword
		if row[0] != nil {
			value = *row[0]
		}
		if row[1] == nil {
			return nil, core.Errorf(core.KindMalformedResultShape, "Row %d has no count", i)
		}
		count, err := strconv.ParseInt(*row[1], 10, 64)
		if err != nil {
			return nil, core.WrapError(core.KindMalformedResultShape, fmt.Errorf("row %d count: %w", i, err))
		}
		_, selected := v.selected[value]
		values = append(values, ValueCount{Value: value, IsSelected: selected, Count: count})
	}

	return &Result{ColumnName: v.column, FacetType: core.FacetEnumeration, Values: values}, nil
}

// Range finds the bounds of a range column.
type Range struct {
	column      string
	selectedMin *string
	selectedMax *string
	sql         string
	query       *translator.CompiledQuery
}

func newRange(ctx context.Context, c compiler, f column, facets []column) (*Range, error) {
	name := parser.QuoteIdentifier(f.name())
	sql := fmt.Sprintf("SELECT MIN(%s) AS %s, MAX(%s) AS %s %s%s",
		name, MinAlias, name, MaxAlias,
		parser.FormatFrom(c.base.From), whereClause(c.base.Where, otherConditions(facets, f.name())))

	query, err := c.compile(ctx, sql)
	if err != nil {
		return nil, err
	}

	r := &Range{column: f.name(), sql: sql, query: query}
	if req, ok := f.request.(RangeRequest); ok {
		r.selectedMin = optional(req.Min)
		r.selectedMax = optional(req.Max)
	}
	return r, nil
}

func (r *Range) ColumnName() string               { return r.column }
func (r *Range) FacetType() core.FacetType        { return core.FacetRange }
func (r *Range) SQL() string                      { return r.sql }
func (r *Range) Query() *translator.CompiledQuery { return r.query }

// Translate reads the single minimum/maximum row.
func (r *Range) Translate(rs *RowSet) (*Result, error) {
	if err := checkHeaders(rs, MinAlias, MaxAlias); err != nil {
		return nil, err
	}
	if len(rs.Rows) != 1 {
		return nil, core.Errorf(core.KindMalformedResultShape, "Expected the row set to have exactly one row, got %d", len(rs.Rows))
	}
	row := rs.Rows[0]
	if len(row) != 2 {
		return nil, core.Errorf(core.KindMalformedResultShape, "Row 0 has %d values, expected 2", len(row))
	}

	return &Result{
		ColumnName:  r.column,
		FacetType:   core.FacetRange,
		ColumnMin:   row[0],
		ColumnMax:   row[1],
		SelectedMin: r.selectedMin,
		SelectedMax: r.selectedMax,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

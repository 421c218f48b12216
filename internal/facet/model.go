// Package facet builds the summary queries behind faceted search: value counts
// for enumeration columns and bounds for range columns, each filtered by the
// base query and by every other facet's selection.
package facet

import (
	"context"
	"slices"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/schema"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// Dependencies are what facet queries are compiled with.
type Dependencies struct {
	Schemas     schema.Provider
	Translator  *translator.Translator
	Description core.IndexDescription
	// UserID binds CURRENT_USER() in the base query's WHERE.
	UserID int64
	// MaxValues caps value count buckets. Zero means DefaultMaxValues.
	MaxValues int
}

// Model is the set of facets of one query, in schema order.
type Model struct {
	transformers []Transformer
}

// compiler compiles facet sub-queries for one base query.
type compiler struct {
	deps Dependencies
	base *core.QuerySpecification
}

func (c compiler) compile(ctx context.Context, sql string) (*translator.CompiledQuery, error) {
	return c.deps.Translator.CompileSQL(ctx, sql, c.deps.Description, translator.Options{
		SqlContext: core.SqlContextQuery,
		UserID:     c.deps.UserID,
	})
}

// NewModel validates requests against the faceted columns of the base query's
// table and compiles one transformer per included facet. A faceted column is
// included when returnAll is set or when it has a request.
func NewModel(ctx context.Context, deps Dependencies, requests []Request, base *core.QuerySpecification, returnAll bool) (*Model, error) {
	if base == nil || base.From == nil {
		return nil, core.Errorf(core.KindValidation, "A base query is required")
	}
	byName, err := requestsByName(requests)
	if err != nil {
		return nil, err
	}

	id := base.From.Source.ID
	columns, err := deps.Schemas.TableSchema(ctx, id)
	if err != nil {
		return nil, err
	}

	facets, err := validate(columns, byName, returnAll)
	if err != nil {
		return nil, err
	}

	maxValues := deps.MaxValues
	if maxValues <= 0 {
		maxValues = DefaultMaxValues
	}
	c := compiler{deps: deps, base: base}

	m := &Model{transformers: make([]Transformer, 0, len(facets))}
	for _, f := range facets {
		var t Transformer
		switch *f.model.FacetType {
		case core.FacetEnumeration:
			if _, ok := f.request.(RangeRequest); ok {
				return nil, core.Errorf(core.KindFacetValidation, "Facet %s is an enumeration and cannot take a range", f.name())
			}
			t, err = newValueCounts(ctx, c, f, facets, maxValues)
		case core.FacetRange:
			if _, ok := f.request.(ValuesRequest); ok {
				return nil, core.Errorf(core.KindFacetValidation, "Facet %s is a range and cannot take values", f.name())
			}
			t, err = newRange(ctx, c, f, facets)
		default:
			return nil, core.Errorf(core.KindUnexpectedFacetType, "Found unexpected facet type: %s", *f.model.FacetType)
		}
		if err != nil {
			return nil, err
		}
		m.transformers = append(m.transformers, t)
	}
	return m, nil
}

// NewModelSQL parses the base query and builds its model.
func NewModelSQL(ctx context.Context, deps Dependencies, requests []Request, baseSQL string, returnAll bool) (*Model, error) {
	base, err := parser.Parse(baseSQL)
	if err != nil {
		return nil, core.WrapError(core.KindValidation, err)
	}
	return NewModel(ctx, deps, requests, base, returnAll)
}

// Transformers returns the facet transformers in schema order.
func (m *Model) Transformers() []Transformer {
	return m.transformers
}

func requestsByName(requests []Request) (map[string]Request, error) {
	byName := make(map[string]Request, len(requests))
	for _, r := range requests {
		if r == nil {
			continue
		}
		if _, dup := byName[r.ColumnName()]; dup {
			return nil, core.Errorf(core.KindFacetValidation,
				"Request contains a facet column request with a duplicate column name: %s", r.ColumnName())
		}
		byName[r.ColumnName()] = r
	}
	return byName, nil
}

func validate(columns []core.ColumnModel, byName map[string]Request, returnAll bool) ([]column, error) {
	faceted := schema.Faceted(columns)

	names := make([]string, len(faceted))
	var out []column
	for i, c := range faceted {
		names[i] = c.Name
		req, ok := byName[c.Name]
		if returnAll || ok {
			out = append(out, column{model: c, request: req})
		}
	}

	for name := range byName {
		if !slices.Contains(names, name) {
			return nil, core.Errorf(core.KindFacetValidation,
				"Requested facet column names must all be in the set: [%s]", strings.Join(names, ", "))
		}
	}
	return out, nil
}

package engine

import (
	"context"

	"github.com/leapstack-labs/tablequery/internal/facet"
	"github.com/leapstack-labs/tablequery/internal/schema"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// FacetRequest asks for the facets of a base query.
type FacetRequest struct {
	SQL      string
	Requests []facet.Request
	// ReturnAll includes every faceted column, not only requested ones.
	ReturnAll bool
	UserID    int64
}

// Facets builds the facet model of a base query in query context.
func (e *Engine) Facets(ctx context.Context, req FacetRequest) (*facet.Model, error) {
	q, err := parser.Parse(req.SQL)
	if err != nil {
		return nil, err
	}
	desc, err := e.describeFor(ctx, q, Request{})
	if err != nil {
		return nil, err
	}

	return facet.NewModel(ctx, facet.Dependencies{
		Schemas:     e.store,
		Translator:  e.translator,
		Description: desc,
		UserID:      req.UserID,
		MaxValues:   e.maxValues,
	}, req.Requests, q, req.ReturnAll)
}

// FacetColumns returns the faceted columns of a table.
func (e *Engine) FacetColumns(ctx context.Context, id core.IdAndVersion) ([]core.ColumnModel, error) {
	columns, err := e.store.TableSchema(ctx, id)
	if err != nil {
		return nil, err
	}
	return schema.Faceted(columns), nil
}

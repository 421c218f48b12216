// Package schema resolves the ordered column metadata of virtual tables.
package schema

import (
	"context"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Provider returns the ordered column models of a table. Unknown ids yield a
// *core.Error of kind KindSchemaNotFound.
type Provider interface {
	TableSchema(ctx context.Context, id core.IdAndVersion) ([]core.ColumnModel, error)
}

// NotFound returns the error raised for an unknown table id.
func NotFound(id core.IdAndVersion) error {
	return core.Errorf(core.KindSchemaNotFound, "Schema not found for table: %s", id)
}

// MapProvider is an in-memory Provider keyed by exact id and version.
type MapProvider map[core.IdAndVersion][]core.ColumnModel

// TableSchema implements Provider.
func (m MapProvider) TableSchema(_ context.Context, id core.IdAndVersion) ([]core.ColumnModel, error) {
	columns, ok := m[id]
	if !ok {
		return nil, NotFound(id)
	}
	return columns, nil
}

// Memo caches one lookup per distinct id in front of a Provider. A Memo is
// owned by a single compile and is not safe for concurrent use.
type Memo struct {
	provider Provider
	cache    map[core.IdAndVersion][]core.ColumnModel
}

// NewMemo wraps p.
func NewMemo(p Provider) *Memo {
	return &Memo{provider: p, cache: make(map[core.IdAndVersion][]core.ColumnModel)}
}

// TableSchema implements Provider. Failures are not cached.
func (m *Memo) TableSchema(ctx context.Context, id core.IdAndVersion) ([]core.ColumnModel, error) {
	if columns, ok := m.cache[id]; ok {
		return columns, nil
	}
	columns, err := m.provider.TableSchema(ctx, id)
	if err != nil {
		return nil, err
	}
	m.cache[id] = columns
	return columns, nil
}

// Lookup finds a column by exact name.
func Lookup(columns []core.ColumnModel, name string) (core.ColumnModel, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c, true
		}
	}
	return core.ColumnModel{}, false
}

// Faceted returns the faceted columns in schema order.
func Faceted(columns []core.ColumnModel) []core.ColumnModel {
	var out []core.ColumnModel
	for _, c := range columns {
		if c.IsFaceted() {
			out = append(out, c)
		}
	}
	return out
}

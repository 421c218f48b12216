package translator

import "github.com/leapstack-labs/tablequery/pkg/core"

// CompiledQuery is the immutable result of a successful compile.
type CompiledQuery struct {
	SQL                     string
	Parameters              map[string]any
	SelectColumns           []core.SelectColumn
	IsAggregated            bool
	IncludesRowIDAndVersion bool
	IncludeEntityEtag       bool
	IncludesSearch          bool
	MaxRowSizeBytes         int64
	MaxRowsPerPage          *int64
	IndexDescription        core.IndexDescription
	SqlContext              core.SqlContext //nolint:revive // see core.SqlContext
	TableType               core.TableType

	selectModels []core.ColumnModel
	viewModels   []core.ColumnModel
}

// SchemaOfSelect describes the result columns as column models. The models
// never carry an ID, since a result column is not a stored column.
func (c *CompiledQuery) SchemaOfSelect() []core.ColumnModel {
	out := make([]core.ColumnModel, len(c.selectModels))
	copy(out, c.selectModels)
	return out
}

// ViewSchema describes the result columns as the stored schema of a
// materialized view built from this query. Direct column references carry the
// ID of the column they read; computed columns carry no ID.
func (c *CompiledQuery) ViewSchema() []core.ColumnModel {
	out := make([]core.ColumnModel, len(c.viewModels))
	copy(out, c.viewModels)
	return out
}

// Parameter returns the bound value for a placeholder name such as "b0".
func (c *CompiledQuery) Parameter(name string) (any, bool) {
	v, ok := c.Parameters[name]
	return v, ok
}

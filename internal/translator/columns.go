package translator

import (
	"fmt"

	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// Reserved index columns.
const (
	RowIDColumn         = "ROW_ID"
	RowVersionColumn    = "ROW_VERSION"
	RowEtagColumn       = "ROW_ETAG"
	SearchContentColumn = "ROW_SEARCH_CONTENT"
)

// PhysicalColumnName returns the index column of c, e.g. _C123_.
func PhysicalColumnName(c core.ColumnModel) string {
	return fmt.Sprintf("_C%s_", c.ID)
}

// ShadowColumnName returns the column holding the NaN/Infinity sentinels of
// a double column, e.g. _DBL_C123_.
func ShadowColumnName(c core.ColumnModel) string {
	return fmt.Sprintf("_DBL_C%s_", c.ID)
}

func hasShadow(c core.ColumnModel) bool {
	return c.Type == core.ColumnTypeDouble && !c.IsList
}

// selectedColumn is one rendered select list entry.
type selectedColumn struct {
	name    string
	typ     core.ColumnType
	source   *core.ColumnModel // set for direct column references
	keepName bool              // name stays as written in a view schema
}

func (s selectedColumn) selectColumn(aggregated bool) core.SelectColumn {
	out := core.SelectColumn{Name: s.name, Type: s.typ}
	if !aggregated && s.source != nil {
		out.ID = s.source.ID
	}
	return out
}

func (s selectedColumn) model() core.ColumnModel {
	m := core.ColumnModel{Name: s.name, Type: s.typ}
	if s.source != nil {
		m.MaxSize = s.source.MaxSize
		m.IsList = s.source.IsList
		m.MaxListLength = s.source.MaxListLength
	}
	return m
}

// viewModel is the column a materialized view stores for s. A direct column
// reference keeps the ID and facet of the column it reads, and its name
// unless the select item renames it or a star qualified it.
func (s selectedColumn) viewModel() core.ColumnModel {
	m := s.model()
	if s.source != nil {
		m.ID = s.source.ID
		m.FacetType = s.source.FacetType
		if !s.keepName {
			m.Name = s.source.Name
		}
	}
	return m
}

// sizeModel is the model used for row size accounting.
func (s selectedColumn) sizeModel() core.ColumnModel {
	if s.source != nil {
		return *s.source
	}
	return core.ColumnModel{Type: s.typ}
}

// selectName is the result column name of a non-star select item.
func selectName(item *core.SelectItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	switch e := item.Expr.(type) {
	case *core.ColumnRef:
		return e.Qualified()
	case *core.Literal:
		if e.Type == core.LiteralString {
			return e.Value
		}
	}
	return parser.FormatExpr(item.Expr)
}

// aliasSQL renders a select alias. Quoted aliases are backticked with
// embedded backticks doubled.
func aliasSQL(item *core.SelectItem) string {
	if !item.AliasQuoted {
		return item.Alias
	}
	return quoteBacktick(item.Alias)
}

func quoteBacktick(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '`')
	for i := 0; i < len(name); i++ {
		if name[i] == '`' {
			out = append(out, '`')
		}
		out = append(out, name[i])
	}
	return string(append(out, '`'))
}

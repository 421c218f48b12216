package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/schema"
	"github.com/leapstack-labs/tablequery/pkg/core"
)

// clause is the position of the expression being rendered. It decides
// literal binding and the double column rewrite.
type clause int

const (
	clauseSelect clause = iota
	clauseOn
	clauseWhere
	clauseGroupBy
	clauseHaving
	clauseOrderBy
)

// predicate reports whether literals in this clause are bound.
func (c clause) predicate() bool {
	return c == clauseOn || c == clauseWhere || c == clauseHaving
}

// aliasable reports whether select aliases are visible in this clause.
func (c clause) aliasable() bool {
	return c == clauseGroupBy || c == clauseHaving || c == clauseOrderBy
}

// tableRef is one table reference of the FROM clause.
type tableRef struct {
	table   *core.TableName
	alias   string
	columns []core.ColumnModel
	desc    core.IndexDescription
}

// matches reports whether qualifier names this reference.
func (r *tableRef) matches(qualifier string) bool {
	if r.table.Alias != "" && r.table.Alias == qualifier {
		return true
	}
	return r.table.Name == qualifier || strings.EqualFold(r.table.ID.String(), qualifier)
}

// TranslationContext is the per-compile state. It is owned by one compile
// and discarded afterwards.
type TranslationContext struct {
	opts    Options
	desc    core.IndexDescription
	schemas *schema.Memo

	tables  []*tableRef
	joined  bool
	aliases int

	params    map[string]any
	nextParam int

	includesSearch bool
	selectAliases  map[string]*core.SelectItem

	clause    clause
	funcDepth int
	aggDepth  int
}

func newTranslationContext(provider schema.Provider, desc core.IndexDescription, opts Options) *TranslationContext {
	return &TranslationContext{
		opts:          opts,
		desc:          desc,
		schemas:       schema.NewMemo(provider),
		params:        make(map[string]any),
		selectAliases: make(map[string]*core.SelectItem),
	}
}

func (tc *TranslationContext) nextAlias() string {
	alias := fmt.Sprintf("_A%d", tc.aliases)
	tc.aliases++
	return alias
}

// bind records a parameter value and returns its placeholder.
func (tc *TranslationContext) bind(value any) string {
	name := fmt.Sprintf("b%d", tc.nextParam)
	tc.nextParam++
	tc.params[name] = value
	return ":" + name
}

// binding reports whether a literal at the current position becomes a parameter.
func (tc *TranslationContext) binding() bool {
	return tc.clause.predicate() && tc.funcDepth == 0
}

// resolveFrom assigns aliases and loads the schema of every table reference.
func (tc *TranslationContext) resolveFrom(ctx context.Context, from *core.FromClause) error {
	tables := from.Tables()
	if len(tables) == 0 {
		return core.Errorf(core.KindValidation, "A query must reference a table")
	}
	if len(tables) > 1 && !tc.opts.isBuild() {
		return core.Errorf(core.KindJoinNotSupportedInContext, "JOIN is not supported in this context")
	}

	for _, t := range tables {
		desc := tc.describe(t.ID)
		columns, err := tc.schemas.TableSchema(ctx, t.ID)
		if err != nil {
			return err
		}
		tc.tables = append(tc.tables, &tableRef{
			table:   t,
			alias:   tc.nextAlias(),
			columns: columns,
			desc:    desc,
		})
	}
	tc.joined = len(tc.tables) > 1
	return nil
}

// describe finds the description of a referenced table in the compile's
// description tree. An id outside the tree is treated as a plain table.
func (tc *TranslationContext) describe(id core.IdAndVersion) core.IndexDescription {
	if desc, ok := core.FindDescription(tc.desc, id); ok {
		return desc
	}
	return core.NewTableIndexDescription(id)
}

// prefix is the alias qualifier of a column of r. Single table queries are
// rendered without aliases.
func (tc *TranslationContext) prefix(r *tableRef) string {
	if !tc.joined {
		return ""
	}
	return r.alias + "."
}

// resolve finds the table and column a reference names.
func (tc *TranslationContext) resolve(ref *core.ColumnRef) (*tableRef, core.ColumnModel, error) {
	if ref.Table != "" {
		for _, t := range tc.tables {
			if !t.matches(ref.Table) {
				continue
			}
			if col, ok := schema.Lookup(t.columns, ref.Column); ok {
				return t, col, nil
			}
			break
		}
		return nil, core.ColumnModel{}, columnNotFound(ref)
	}

	var (
		found    *tableRef
		foundCol core.ColumnModel
	)
	for _, t := range tc.tables {
		col, ok := schema.Lookup(t.columns, ref.Column)
		if !ok {
			continue
		}
		if found != nil {
			return nil, core.ColumnModel{}, core.Errorf(core.KindValidation,
				"Column reference is ambiguous: %s", ref.Column)
		}
		found, foundCol = t, col
	}
	if found == nil {
		return nil, core.ColumnModel{}, columnNotFound(ref)
	}
	return found, foundCol, nil
}

// columnHint returns the column model of e when e is a plain column reference.
func (tc *TranslationContext) columnHint(e core.Expr) *core.ColumnModel {
	for {
		p, ok := e.(*core.ParenExpr)
		if !ok {
			break
		}
		e = p.Expr
	}
	ref, ok := e.(*core.ColumnRef)
	if !ok {
		return nil
	}
	if _, col, err := tc.resolve(ref); err == nil {
		return &col
	}
	return nil
}

func columnNotFound(ref *core.ColumnRef) error {
	return core.Errorf(core.KindColumnNotFound, "Column does not exist: %s", ref.Qualified())
}

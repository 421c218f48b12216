// Package translator compiles parsed table queries into physical SQL against
// the index store, with bound parameters and result metadata.
//
// A compile runs in fixed stages and is all or nothing:
//
//  1. FROM resolution: one alias per table reference, schemas loaded once per id
//  2. select list, WHERE, GROUP BY, HAVING and ORDER BY rewritten to physical columns
//  3. aggregation classification and row identity columns
//  4. build context benefactor columns
//  5. pagination
//
// The input AST is never modified.
package translator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/schema"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// Translator compiles queries against a schema provider. It holds no
// per-compile state and is safe for concurrent use when the provider is.
type Translator struct {
	provider schema.Provider
	logger   *slog.Logger
}

// New creates a Translator. A nil logger discards output.
func New(provider schema.Provider, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Translator{provider: provider, logger: logger}
}

// CompileSQL parses sql and compiles it.
func (t *Translator) CompileSQL(ctx context.Context, sql string, desc core.IndexDescription, opts Options) (*CompiledQuery, error) {
	q, err := parser.Parse(sql)
	if err != nil {
		return nil, core.WrapError(core.KindValidation, err)
	}
	return t.Compile(ctx, q, desc, opts)
}

// Compile translates q against desc, the description of the queried table
// (query context) or of the materialized view being built (build context).
func (t *Translator) Compile(ctx context.Context, q *core.QuerySpecification, desc core.IndexDescription, opts Options) (*CompiledQuery, error) {
	if q == nil || q.From == nil {
		return nil, core.Errorf(core.KindValidation, "A query is required")
	}
	if desc == nil {
		return nil, core.Errorf(core.KindValidation, "An index description is required")
	}
	opts = opts.withDefaults()

	tc := newTranslationContext(t.provider, desc, opts)
	c := &compilation{tc: tc, q: q}
	out, err := c.run(ctx)
	if err != nil {
		t.logger.Debug("compile failed", slog.String("table", desc.IdAndVersion().String()), slog.String("error", err.Error()))
		return nil, err
	}

	t.logger.Debug("compiled query",
		slog.String("table", desc.IdAndVersion().String()),
		slog.String("context", string(opts.SqlContext)),
		slog.Int("params", len(out.Parameters)),
		slog.Bool("aggregated", out.IsAggregated))
	return out, nil
}

// compilation holds the output of one compile while stages run.
type compilation struct {
	tc *TranslationContext
	q  *core.QuerySpecification

	sb         strings.Builder
	aggregated bool
	columns    []selectedColumn
	rowIDs     bool
	etag       bool
}

func (c *compilation) run(ctx context.Context) (*CompiledQuery, error) {
	tc, q := c.tc, c.q

	if err := tc.resolveFrom(ctx, q.From); err != nil {
		return nil, err
	}

	c.aggregated = isAggregated(q)
	benefactors := core.BenefactorDependencies(tc.desc)
	if tc.opts.isBuild() && len(q.GroupBy) > 0 && len(benefactors) > 0 {
		return nil, core.Errorf(core.KindDefiningSQLWithGroupBy,
			"The defining SQL of a materialized view with a view dependency cannot include GROUP BY")
	}

	for _, item := range q.SelectList {
		if item.Alias != "" {
			tc.selectAliases[item.Alias] = item
		}
	}

	c.sb.WriteString("SELECT ")
	if q.Distinct {
		c.sb.WriteString("DISTINCT ")
	}
	if err := c.writeSelectList(); err != nil {
		return nil, err
	}

	if tc.opts.isBuild() {
		c.writeBenefactors(benefactors)
	} else if !c.aggregated {
		c.rowIDs = true
		c.sb.WriteString(", " + RowIDColumn + ", " + RowVersionColumn)
		if tc.opts.IncludeEntityEtag && tc.tables[0].desc.TableType().IsView() {
			c.etag = true
			c.sb.WriteString(", " + RowEtagColumn)
		}
	}

	c.sb.WriteString(" ")
	if err := c.writeFrom(); err != nil {
		return nil, err
	}
	if err := c.writeClauses(); err != nil {
		return nil, err
	}

	models := make([]core.ColumnModel, len(c.columns))
	viewModels := make([]core.ColumnModel, len(c.columns))
	sizes := make([]core.ColumnModel, len(c.columns))
	selectColumns := make([]core.SelectColumn, len(c.columns))
	for i, col := range c.columns {
		models[i] = col.model()
		viewModels[i] = col.viewModel()
		sizes[i] = col.sizeModel()
		selectColumns[i] = col.selectColumn(c.aggregated)
	}
	rowSize := MaxRowSizeBytes(sizes)
	pageSize := maxRowsPerPage(tc.opts.MaxBytesPerPage, rowSize)

	if err := tc.writePagination(&c.sb, q, pageSize); err != nil {
		return nil, err
	}

	return &CompiledQuery{
		SQL:                     c.sb.String(),
		Parameters:              tc.params,
		SelectColumns:           selectColumns,
		IsAggregated:            c.aggregated,
		IncludesRowIDAndVersion: c.rowIDs,
		IncludeEntityEtag:       c.etag,
		IncludesSearch:          tc.includesSearch,
		MaxRowSizeBytes:         rowSize,
		MaxRowsPerPage:          pageSize,
		IndexDescription:        tc.desc,
		SqlContext:              tc.opts.SqlContext,
		TableType:               tc.desc.TableType(),
		selectModels:            models,
		viewModels:              viewModels,
	}, nil
}

func (c *compilation) writeSelectList() error {
	tc := c.tc
	tc.clause = clauseSelect

	first := true
	sep := func() {
		if !first {
			c.sb.WriteString(", ")
		}
		first = false
	}

	for _, item := range c.q.SelectList {
		if star, ok := item.Expr.(*core.StarExpr); ok {
			tables, err := c.starTables(star)
			if err != nil {
				return err
			}
			for _, t := range tables {
				if len(t.columns) == 0 {
					return core.Errorf(core.KindValidation, "cannot select star from table with no columns")
				}
				for i := range t.columns {
					col := t.columns[i]
					sep()
					tc.writeColumn(&c.sb, t, col)
					c.columns = append(c.columns, selectedColumn{
						name:     c.starName(t, col),
						typ:      col.Type,
						source:   &t.columns[i],
						keepName: true,
					})
				}
			}
			continue
		}

		sep()
		if err := tc.writeExpr(&c.sb, item.Expr, nil); err != nil {
			return err
		}
		if item.Alias != "" {
			c.sb.WriteString(" AS ")
			c.sb.WriteString(aliasSQL(item))
		}

		selected := selectedColumn{name: selectName(item), typ: tc.inferType(item.Expr), keepName: item.Alias != ""}
		if ref, ok := item.Expr.(*core.ColumnRef); ok {
			if t, col, err := tc.resolve(ref); err == nil {
				selected.source = columnOf(t, col)
			}
		}
		c.columns = append(c.columns, selected)
	}
	return nil
}

// starTables returns the tables a star expands over, in FROM order.
func (c *compilation) starTables(star *core.StarExpr) ([]*tableRef, error) {
	if star.Table == "" {
		return c.tc.tables, nil
	}
	for _, t := range c.tc.tables {
		if t.matches(star.Table) {
			return []*tableRef{t}, nil
		}
	}
	return nil, core.Errorf(core.KindColumnNotFound, "Column does not exist: %s.*", star.Table)
}

// starName names a star-expanded column, qualified when the table was
// aliased or joined.
func (c *compilation) starName(t *tableRef, col core.ColumnModel) string {
	switch {
	case t.table.Alias != "":
		return t.table.Alias + "." + col.Name
	case c.tc.joined:
		return t.table.Name + "." + col.Name
	}
	return col.Name
}

// columnOf returns a pointer to the schema entry of col.
func columnOf(t *tableRef, col core.ColumnModel) *core.ColumnModel {
	for i := range t.columns {
		if t.columns[i].Name == col.Name {
			return &t.columns[i]
		}
	}
	return nil
}

// writeBenefactors appends the benefactor of each view dependency once, using
// the first reference to that view.
func (c *compilation) writeBenefactors(views []core.IdAndVersion) {
	for _, id := range views {
		for _, t := range c.tc.tables {
			if t.table.ID != id {
				continue
			}
			fmt.Fprintf(&c.sb, ", IFNULL(%s%s,-1)", c.tc.prefix(t), core.BenefactorColumn)
			break
		}
	}
}

func (c *compilation) writeFrom() error {
	tc := c.tc
	c.sb.WriteString("FROM ")
	c.writeTable(tc.tables[0])
	for i, j := range c.q.From.Joins {
		c.sb.WriteString(" ")
		c.sb.WriteString(j.Keyword())
		c.sb.WriteString(" ")
		c.writeTable(tc.tables[i+1])
		if j.On != nil {
			c.sb.WriteString(" ON ")
			tc.clause = clauseOn
			if err := tc.writeExpr(&c.sb, j.On, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *compilation) writeTable(t *tableRef) {
	c.sb.WriteString(t.table.ID.PhysicalTableName())
	if c.tc.joined {
		c.sb.WriteString(" ")
		c.sb.WriteString(t.alias)
	}
}

func (c *compilation) writeClauses() error {
	tc, q := c.tc, c.q

	if q.Where != nil {
		tc.clause = clauseWhere
		c.sb.WriteString(" WHERE ")
		if err := tc.writeExpr(&c.sb, q.Where, nil); err != nil {
			return err
		}
	}

	if len(q.GroupBy) > 0 {
		tc.clause = clauseGroupBy
		c.sb.WriteString(" GROUP BY ")
		if err := tc.writeList(&c.sb, q.GroupBy, nil); err != nil {
			return err
		}
	}

	if q.Having != nil {
		tc.clause = clauseHaving
		c.sb.WriteString(" HAVING ")
		if err := tc.writeExpr(&c.sb, q.Having, nil); err != nil {
			return err
		}
	}

	if len(q.OrderBy) > 0 {
		tc.clause = clauseOrderBy
		c.sb.WriteString(" ORDER BY ")
		for i, item := range q.OrderBy {
			if i > 0 {
				c.sb.WriteString(", ")
			}
			if err := tc.writeExpr(&c.sb, item.Expr, nil); err != nil {
				return err
			}
			if item.Direction != core.OrderDefault {
				c.sb.WriteString(" ")
				c.sb.WriteString(string(item.Direction))
			}
		}
	}
	return nil
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/catalog"
	"github.com/leapstack-labs/tablequery/internal/dag"
	"github.com/leapstack-labs/tablequery/internal/mview"
	"github.com/leapstack-labs/tablequery/internal/state"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
)

// LoadCatalog stores every table, then registers each materialized view,
// binding its schema. Views are registered after all tables, and a view after
// the views it reads, so a view may read from a table listed after it.
func (e *Engine) LoadCatalog(ctx context.Context, tables []*state.Table) ([]*mview.Registration, error) {
	if err := e.store.LoadTables(ctx, tables); err != nil {
		return nil, err
	}

	views, err := viewOrder(tables)
	if err != nil {
		return nil, err
	}

	regs := make([]*mview.Registration, 0, len(views))
	for _, t := range views {
		reg, err := e.views.RegisterSourceTables(ctx, t.ID, t.DefiningSQL)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", t.ID, err)
		}
		regs = append(regs, reg)
	}

	e.logger.Info("loaded catalog", slog.Int("tables", len(tables)), slog.Int("views", len(regs)))
	return regs, nil
}

// viewOrder returns the materialized views of tables with every view after
// the views it reads from.
func viewOrder(tables []*state.Table) ([]*state.Table, error) {
	g := dag.NewGraph()
	byID := make(map[core.IdAndVersion]*state.Table)
	for _, t := range tables {
		if t.Type == core.TableTypeMaterializedView {
			g.AddNode(t.ID, t.Type)
			byID[t.ID] = t
		}
	}
	for _, t := range byID {
		q, err := mview.ValidateDefiningSQL(t.DefiningSQL)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", t.ID, err)
		}
		for _, src := range mview.SourceTableIDs(q) {
			if _, ok := byID[src]; !ok {
				continue
			}
			if err := g.AddEdge(src, t.ID); err != nil {
				return nil, core.WrapError(core.KindDependencyCycle, err)
			}
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, core.WrapError(core.KindDependencyCycle, err)
	}
	out := make([]*state.Table, len(order))
	for i, id := range order {
		out[i] = byID[id]
	}
	return out, nil
}

// LoadCatalogFile parses a YAML catalog document and loads it.
func (e *Engine) LoadCatalogFile(ctx context.Context, path string) ([]*mview.Registration, error) {
	tables, err := state.ParseCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return e.LoadCatalog(ctx, tables)
}

// RegisterView stores the defining SQL of a materialized view and updates
// its source tables.
func (e *Engine) RegisterView(ctx context.Context, id core.IdAndVersion, sql string) (*mview.Registration, error) {
	return e.views.RegisterSourceTables(ctx, id, sql)
}

// DependentViews lists the materialized views that read from id, directly
// or through another view, in build order.
func (e *Engine) DependentViews(ctx context.Context, id core.IdAndVersion) ([]core.IdAndVersion, error) {
	return e.views.DependentViews(ctx, id)
}

// RefreshDependentViews rebinds the schema of every materialized view that
// reads from id. Call it after the columns of id change.
func (e *Engine) RefreshDependentViews(ctx context.Context, id core.IdAndVersion) ([]*mview.Registration, error) {
	if _, err := e.store.TableType(ctx, id); err != nil {
		return nil, err
	}
	return e.views.RefreshDependentViews(ctx, id)
}

// Registrations returns the source table history of a materialized view.
func (e *Engine) Registrations(ctx context.Context, id core.IdAndVersion) ([]state.Registration, error) {
	return e.store.Registrations(ctx, id)
}

// DeleteTable removes a table from the catalog. A table that a materialized
// view reads from cannot be deleted.
func (e *Engine) DeleteTable(ctx context.Context, id core.IdAndVersion) error {
	views, err := e.views.DependentViews(ctx, id)
	if err != nil {
		return err
	}
	if len(views) > 0 {
		names := make([]string, len(views))
		for i, v := range views {
			names[i] = v.String()
		}
		return core.Errorf(core.KindValidation, "Cannot delete %s: read by materialized views %s", id, strings.Join(names, ", "))
	}
	if err := e.store.DeleteTable(ctx, id); err != nil {
		return err
	}
	e.logger.Info("deleted table", slog.String("table", id.String()))
	return nil
}

// CompileView compiles the stored defining SQL of a materialized view in
// build context.
func (e *Engine) CompileView(ctx context.Context, id core.IdAndVersion, userID int64) (*translator.CompiledQuery, error) {
	desc, err := e.resolver.Describe(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := catalog.ValidateReadAccess(ctx, e.access, desc); err != nil {
		return nil, err
	}
	return e.views.CompileDefiningSQL(ctx, id, userID)
}

// Tables lists the catalog.
func (e *Engine) Tables(ctx context.Context) ([]state.TableSummary, error) {
	return e.store.ListTables(ctx)
}

// TableSchema returns the ordered columns of a table.
func (e *Engine) TableSchema(ctx context.Context, id core.IdAndVersion) ([]core.ColumnModel, error) {
	return e.store.TableSchema(ctx, id)
}

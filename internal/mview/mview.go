// Package mview manages materialized views: validating their defining SQL,
// tracking the tables they read, and compiling the SQL that builds them.
package mview

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/leapstack-labs/tablequery/internal/catalog"
	"github.com/leapstack-labs/tablequery/internal/dag"
	"github.com/leapstack-labs/tablequery/internal/state"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

// Store persists materialized view definitions and their source tables.
type Store interface {
	catalog.Source
	// DefiningSQL returns the stored defining SQL of id, or "" when none is stored.
	DefiningSQL(ctx context.Context, id core.IdAndVersion) (string, error)
	// AllSourceTables returns the source tables of every materialized view.
	AllSourceTables(ctx context.Context) (map[core.IdAndVersion][]core.IdAndVersion, error)
	// SaveView writes the defining SQL, schema and source table change of a
	// view atomically, filling in missing column IDs.
	SaveView(ctx context.Context, v *state.ViewDefinition) error
}

// ValidateDefiningSQL checks that sql is present and parses.
func ValidateDefiningSQL(sql string) (*core.QuerySpecification, error) {
	if sql == "" {
		return nil, core.Errorf(core.KindValidation,
			"The definingSQL of the materialized view is required and must not be the empty string.")
	}
	if strings.TrimSpace(sql) == "" {
		return nil, core.Errorf(core.KindValidation,
			"The definingSQL of the materialized view is required and must not be a blank string.")
	}
	q, err := parser.Parse(sql)
	if err != nil {
		return nil, core.WrapError(core.KindValidation, err)
	}
	return q, nil
}

// SourceTableIDs returns the distinct tables q reads, in FROM order.
func SourceTableIDs(q *core.QuerySpecification) []core.IdAndVersion {
	var out []core.IdAndVersion
	for _, t := range q.From.Tables() {
		if !slices.Contains(out, t.ID) {
			out = append(out, t.ID)
		}
	}
	return out
}

// Manager registers materialized views and compiles their defining SQL.
type Manager struct {
	store      Store
	resolver   *catalog.Resolver
	translator *translator.Translator
	logger     *slog.Logger
}

// NewManager creates a Manager. A nil logger discards output.
func NewManager(store Store, tr *translator.Translator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		store:      store,
		resolver:   catalog.NewResolver(store),
		translator: tr,
		logger:     logger,
	}
}

// Registration describes the outcome of RegisterSourceTables.
type Registration struct {
	ID       core.IdAndVersion
	Sources  []core.IdAndVersion
	Added    []core.IdAndVersion
	Removed  []core.IdAndVersion
	Columns  []core.ColumnModel
	Revision string // empty when nothing changed
}

// Changed reports whether the source set was updated.
func (r *Registration) Changed() bool {
	return r.Revision != ""
}

// RegisterSourceTables stores the defining SQL of id, binds the schema of its
// result to the view and brings its source tables in line with it. Stale
// sources are removed and new ones added. A registration that would make a
// view read from itself is rejected. Nothing is stored unless every step
// succeeds.
func (m *Manager) RegisterSourceTables(ctx context.Context, id core.IdAndVersion, sql string) (*Registration, error) {
	if id.ID == 0 {
		return nil, core.Errorf(core.KindValidation, "The id of the materialized view is required.")
	}
	q, err := ValidateDefiningSQL(sql)
	if err != nil {
		return nil, err
	}
	sources := SourceTableIDs(q)

	all, err := m.store.AllSourceTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load source tables: %w", err)
	}
	current := all[id]
	all[id] = sources
	if _, err := buildGraph(all); err != nil {
		return nil, err
	}

	columns, err := m.bindSchema(ctx, id, q, sources)
	if err != nil {
		return nil, err
	}

	reg := &Registration{
		ID:      id,
		Sources: sources,
		Added:   difference(sources, current),
		Removed: difference(current, sources),
	}
	if len(reg.Added) > 0 || len(reg.Removed) > 0 {
		reg.Revision = uuid.NewString()
	}

	def := &state.ViewDefinition{
		ID:          id,
		DefiningSQL: sql,
		Columns:     columns,
		Add:         reg.Added,
		Remove:      reg.Removed,
		Revision:    reg.Revision,
	}
	if err := m.store.SaveView(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", id, err)
	}
	reg.Columns = def.Columns

	if !reg.Changed() {
		m.logger.Debug("source tables unchanged", slog.String("view", id.String()))
		return reg, nil
	}
	m.logger.Info("registered source tables",
		slog.String("view", id.String()),
		slog.Int("added", len(reg.Added)),
		slog.Int("removed", len(reg.Removed)),
		slog.String("revision", reg.Revision))
	return reg, nil
}

// bindSchema compiles q in build context against sources and returns the
// schema the view stores for its result.
func (m *Manager) bindSchema(ctx context.Context, id core.IdAndVersion, q *core.QuerySpecification, sources []core.IdAndVersion) ([]core.ColumnModel, error) {
	deps := make([]core.IndexDescription, 0, len(sources))
	for _, src := range sources {
		dep, err := m.resolver.Describe(ctx, src)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	desc, err := core.NewMaterializedViewIndexDescription(id, deps)
	if err != nil {
		return nil, core.WrapError(core.KindValidation, err)
	}

	compiled, err := m.translator.Compile(ctx, q, desc, translator.Options{SqlContext: core.SqlContextBuild})
	if err != nil {
		return nil, err
	}

	columns := compiled.ViewSchema()
	names := make(map[string]bool, len(columns))
	ids := make(map[string]bool, len(columns))
	for i := range columns {
		if names[columns[i].Name] {
			return nil, core.Errorf(core.KindValidation,
				"Duplicate column name in the defining SQL of %s: %s", id, columns[i].Name)
		}
		names[columns[i].Name] = true
		// a column read twice gets a second id
		if ids[columns[i].ID] {
			columns[i].ID = ""
		}
		if columns[i].ID != "" {
			ids[columns[i].ID] = true
		}
	}
	return columns, nil
}

// DependentViews returns every materialized view that transitively reads
// from id, sources before the views that read them.
func (m *Manager) DependentViews(ctx context.Context, id core.IdAndVersion) ([]core.IdAndVersion, error) {
	all, err := m.store.AllSourceTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load source tables: %w", err)
	}
	g, err := buildGraph(all)
	if err != nil {
		return nil, err
	}
	if _, ok := g.GetNode(id); !ok {
		return nil, nil
	}

	downstream := g.Downstream(id)
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, core.WrapError(core.KindDependencyCycle, err)
	}
	out := make([]core.IdAndVersion, 0, len(downstream))
	for _, v := range order {
		if slices.Contains(downstream, v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// RefreshDependentViews registers every view that reads from id again, so
// each rebinds its schema after the schema of id changed. Views are refreshed
// before the views that read them.
func (m *Manager) RefreshDependentViews(ctx context.Context, id core.IdAndVersion) ([]*Registration, error) {
	views, err := m.DependentViews(ctx, id)
	if err != nil {
		return nil, err
	}

	regs := make([]*Registration, 0, len(views))
	for _, v := range views {
		sql, err := m.store.DefiningSQL(ctx, v)
		if err != nil {
			return regs, fmt.Errorf("failed to load defining SQL of %s: %w", v, err)
		}
		reg, err := m.RegisterSourceTables(ctx, v, sql)
		if err != nil {
			return regs, fmt.Errorf("failed to refresh %s: %w", v, err)
		}
		regs = append(regs, reg)
	}
	m.logger.Debug("refreshed dependent views", slog.String("table", id.String()), slog.Int("views", len(regs)))
	return regs, nil
}

// CompileDefiningSQL compiles the stored defining SQL of id in build context.
func (m *Manager) CompileDefiningSQL(ctx context.Context, id core.IdAndVersion, userID int64) (*translator.CompiledQuery, error) {
	sql, err := m.store.DefiningSQL(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load defining SQL of %s: %w", id, err)
	}
	if sql == "" {
		return nil, core.Errorf(core.KindValidation, "No defining SQL for: %s", id)
	}

	desc, err := m.resolver.Describe(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.translator.CompileSQL(ctx, sql, desc, translator.Options{
		SqlContext: core.SqlContextBuild,
		UserID:     userID,
	})
}

// buildGraph builds the source relation as a graph, an edge from each source
// to the view reading it. It fails when the relation has a cycle.
func buildGraph(sources map[core.IdAndVersion][]core.IdAndVersion) (*dag.Graph, error) {
	g := dag.NewGraph()
	for view, deps := range sources {
		g.AddNode(view, core.TableTypeMaterializedView)
		for _, dep := range deps {
			if _, ok := g.GetNode(dep); !ok {
				g.AddNode(dep, "")
			}
		}
	}
	for view, deps := range sources {
		for _, dep := range deps {
			if dep == view {
				return nil, core.Errorf(core.KindDependencyCycle, "Dependency cycle detected: %s -> %s", view, view)
			}
			if err := g.AddEdge(dep, view); err != nil {
				return nil, fmt.Errorf("failed to build dependency graph: %w", err)
			}
		}
	}
	if hasCycle, cycle := g.HasCycle(); hasCycle {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = id.String()
		}
		return nil, core.Errorf(core.KindDependencyCycle, "Dependency cycle detected: %s", strings.Join(names, " -> "))
	}
	return g, nil
}

// difference returns the members of a missing from b, in a's order.
func difference(a, b []core.IdAndVersion) []core.IdAndVersion {
	var out []core.IdAndVersion
	for _, id := range a {
		if !slices.Contains(b, id) {
			out = append(out, id)
		}
	}
	return out
}

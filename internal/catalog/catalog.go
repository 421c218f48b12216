// Package catalog resolves index descriptions: the physical shape of a
// virtual table together with the tree of tables a materialized view reads.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/dag"
	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Source supplies the committed metadata the resolver walks.
type Source interface {
	// TableType returns the type of a table. Unknown ids yield a
	// *core.Error of kind KindSchemaNotFound.
	TableType(ctx context.Context, id core.IdAndVersion) (core.TableType, error)
	// SourceTables returns the ordered tables a materialized view reads.
	SourceTables(ctx context.Context, id core.IdAndVersion) ([]core.IdAndVersion, error)
}

// MapSource is an in-memory Source.
type MapSource struct {
	Types   map[core.IdAndVersion]core.TableType
	Sources map[core.IdAndVersion][]core.IdAndVersion
}

// NewMapSource returns an empty MapSource.
func NewMapSource() *MapSource {
	return &MapSource{
		Types:   make(map[core.IdAndVersion]core.TableType),
		Sources: make(map[core.IdAndVersion][]core.IdAndVersion),
	}
}

// TableType implements Source.
func (m *MapSource) TableType(_ context.Context, id core.IdAndVersion) (core.TableType, error) {
	t, ok := m.Types[id]
	if !ok {
		return "", core.Errorf(core.KindSchemaNotFound, "Table not found: %s", id)
	}
	return t, nil
}

// SourceTables implements Source.
func (m *MapSource) SourceTables(_ context.Context, id core.IdAndVersion) ([]core.IdAndVersion, error) {
	return m.Sources[id], nil
}

// Resolver builds index descriptions from a Source.
type Resolver struct {
	source Source
}

// NewResolver creates a resolver over source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// frame is one pending materialized view on the work-list.
type frame struct {
	id   core.IdAndVersion
	deps []core.IdAndVersion
	next int
}

// Describe returns the index description of id with its full dependency tree.
//
// The walk uses an explicit stack keyed by table id. Each id is expanded once;
// a table reached through two paths shares one description node. Revisiting an
// id that is still on the stack is a dependency cycle.
func (r *Resolver) Describe(ctx context.Context, id core.IdAndVersion) (core.IndexDescription, error) {
	built := make(map[core.IdAndVersion]core.IndexDescription)
	onPath := make(map[core.IdAndVersion]bool)
	graph := dag.NewGraph()

	var stack []*frame

	addEdge := func(source, dependent core.IdAndVersion) error {
		if err := graph.AddEdge(source, dependent); err != nil {
			return fmt.Errorf("failed to record dependency of %s: %w", dependent, err)
		}
		return nil
	}

	// push expands id: leaves are built immediately, views are stacked.
	push := func(id core.IdAndVersion) error {
		tableType, err := r.source.TableType(ctx, id)
		if err != nil {
			return err
		}
		graph.AddNode(id, tableType)

		switch tableType {
		case core.TableTypeTable:
			built[id] = core.NewTableIndexDescription(id)
			return nil
		case core.TableTypeEntityView, core.TableTypeSubmissionView,
			core.TableTypeDataset, core.TableTypeDatasetCollection:
			view, err := core.NewViewIndexDescription(id, tableType)
			if err != nil {
				return err
			}
			built[id] = view
			return nil
		case core.TableTypeMaterializedView:
			deps, err := r.source.SourceTables(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load source tables of %s: %w", id, err)
			}
			if len(deps) == 0 {
				return core.Errorf(core.KindValidation, "Materialized view %s has no source tables", id)
			}
			onPath[id] = true
			stack = append(stack, &frame{id: id, deps: deps})
			return nil
		default:
			return core.Errorf(core.KindUnexpectedTableType, "Unexpected table type %q for %s", tableType, id)
		}
	}

	if err := push(id); err != nil {
		return nil, err
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next < len(top.deps) {
			dep := top.deps[top.next]
			top.next++

			if onPath[dep] {
				// a view reading itself is never an edge of the graph
				if dep != top.id {
					if err := addEdge(dep, top.id); err != nil {
						return nil, err
					}
				}
				return nil, cycleError(graph, top.id, dep)
			}
			if _, ok := built[dep]; ok {
				if err := addEdge(dep, top.id); err != nil {
					return nil, err
				}
				continue
			}
			if err := push(dep); err != nil {
				return nil, err
			}
			if err := addEdge(dep, top.id); err != nil {
				return nil, err
			}
			continue
		}

		deps := make([]core.IndexDescription, len(top.deps))
		for i, dep := range top.deps {
			deps[i] = built[dep]
		}
		mv, err := core.NewMaterializedViewIndexDescription(top.id, deps)
		if err != nil {
			return nil, core.WrapError(core.KindValidation, err)
		}
		built[top.id] = mv
		delete(onPath, top.id)
		stack = stack[:len(stack)-1]
	}

	return built[id], nil
}

// cycleError reports the cycle closed by dependent reading source.
func cycleError(graph *dag.Graph, dependent, source core.IdAndVersion) error {
	path := []core.IdAndVersion{source, dependent}
	if hasCycle, cycle := graph.HasCycle(); hasCycle {
		path = cycle
	}
	names := make([]string, len(path))
	for i, id := range path {
		names[i] = id.String()
	}
	return core.Errorf(core.KindDependencyCycle, "Dependency cycle detected: %s", strings.Join(names, " -> "))
}

// Flatten returns the distinct ids of the tree, root first, then each
// dependency depth-first in listed order.
func Flatten(desc core.IndexDescription) []core.IdAndVersion {
	var out []core.IdAndVersion
	seen := make(map[core.IdAndVersion]bool)
	stack := []core.IndexDescription{desc}
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[d.IdAndVersion()] {
			continue
		}
		seen[d.IdAndVersion()] = true
		out = append(out, d.IdAndVersion())

		deps := d.Dependencies()
		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, deps[i])
		}
	}
	return out
}

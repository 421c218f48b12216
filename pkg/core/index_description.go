package core

import (
	"errors"
	"fmt"
)

// BenefactorColumn is the index column holding the permission benefactor of a view row.
const BenefactorColumn = "ROW_BENEFACTOR"

// IndexDescription describes the physical shape of a virtual table and its
// dependency tree. It is a closed sum type: the only implementations are
// *TableIndexDescription, *ViewIndexDescription and *MaterializedViewIndexDescription.
// Consumers switch over all three.
type IndexDescription interface {
	IdAndVersion() IdAndVersion
	TableType() TableType
	// Dependencies is empty for tables and views.
	Dependencies() []IndexDescription
	indexDescription()
}

// TableIndexDescription describes a plain table.
type TableIndexDescription struct {
	ID IdAndVersion
}

// NewTableIndexDescription returns the description of a plain table.
func NewTableIndexDescription(id IdAndVersion) *TableIndexDescription {
	return &TableIndexDescription{ID: id}
}

func (*TableIndexDescription) indexDescription() {}

// IdAndVersion implements IndexDescription.
func (d *TableIndexDescription) IdAndVersion() IdAndVersion { return d.ID }

// TableType implements IndexDescription.
func (d *TableIndexDescription) TableType() TableType { return TableTypeTable }

// Dependencies implements IndexDescription.
func (d *TableIndexDescription) Dependencies() []IndexDescription { return nil }

// ViewIndexDescription describes an entity/submission/dataset view.
type ViewIndexDescription struct {
	ID       IdAndVersion
	ViewType TableType
}

// NewViewIndexDescription returns the description of a view of the given type.
func NewViewIndexDescription(id IdAndVersion, viewType TableType) (*ViewIndexDescription, error) {
	if !viewType.IsView() {
		return nil, fmt.Errorf("%s is not a view type", viewType)
	}
	return &ViewIndexDescription{ID: id, ViewType: viewType}, nil
}

func (*ViewIndexDescription) indexDescription() {}

// IdAndVersion implements IndexDescription.
func (d *ViewIndexDescription) IdAndVersion() IdAndVersion { return d.ID }

// TableType implements IndexDescription.
func (d *ViewIndexDescription) TableType() TableType { return d.ViewType }

// Dependencies implements IndexDescription.
func (d *ViewIndexDescription) Dependencies() []IndexDescription { return nil }

// ErrNoDependencies is returned when a materialized view is built without sources.
var ErrNoDependencies = errors.New("a materialized view must have at least one dependency")

// MaterializedViewIndexDescription describes a materialized view and its
// ordered source dependencies.
type MaterializedViewIndexDescription struct {
	ID   IdAndVersion
	deps []IndexDescription
}

// NewMaterializedViewIndexDescription returns the description of a
// materialized view. The dependency list must not be empty.
func NewMaterializedViewIndexDescription(id IdAndVersion, deps []IndexDescription) (*MaterializedViewIndexDescription, error) {
	if len(deps) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrNoDependencies)
	}
	copied := make([]IndexDescription, len(deps))
	copy(copied, deps)
	return &MaterializedViewIndexDescription{ID: id, deps: copied}, nil
}

func (*MaterializedViewIndexDescription) indexDescription() {}

// IdAndVersion implements IndexDescription.
func (d *MaterializedViewIndexDescription) IdAndVersion() IdAndVersion { return d.ID }

// TableType implements IndexDescription.
func (d *MaterializedViewIndexDescription) TableType() TableType { return TableTypeMaterializedView }

// Dependencies implements IndexDescription.
func (d *MaterializedViewIndexDescription) Dependencies() []IndexDescription {
	out := make([]IndexDescription, len(d.deps))
	copy(out, d.deps)
	return out
}

// BenefactorDependencies returns the distinct view dependencies, in
// dependency order, whose benefactor column must be carried by a build query.
// Only direct dependencies are considered.
func BenefactorDependencies(desc IndexDescription) []IdAndVersion {
	var out []IdAndVersion
	seen := make(map[IdAndVersion]bool)
	for _, dep := range desc.Dependencies() {
		switch d := dep.(type) {
		case *ViewIndexDescription:
			if !seen[d.ID] {
				seen[d.ID] = true
				out = append(out, d.ID)
			}
		case *TableIndexDescription, *MaterializedViewIndexDescription:
			// no benefactor column
		default:
			panic(fmt.Sprintf("unexpected index description %T", dep))
		}
	}
	return out
}

// FindDescription returns the description for id: desc itself or one of its
// direct dependencies.
func FindDescription(desc IndexDescription, id IdAndVersion) (IndexDescription, bool) {
	if desc.IdAndVersion() == id {
		return desc, true
	}
	for _, dep := range desc.Dependencies() {
		if dep.IdAndVersion() == id {
			return dep, true
		}
	}
	return nil, false
}

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustView(t *testing.T, id string, viewType TableType) *ViewIndexDescription {
	t.Helper()
	v, err := NewViewIndexDescription(MustParseIdAndVersion(id), viewType)
	require.NoError(t, err)
	return v
}

func TestNewMaterializedViewIndexDescriptionRequiresDependencies(t *testing.T) {
	_, err := NewMaterializedViewIndexDescription(NewID(3), nil)
	require.ErrorIs(t, err, ErrNoDependencies)
}

func TestNewViewIndexDescriptionRejectsNonView(t *testing.T) {
	_, err := NewViewIndexDescription(NewID(1), TableTypeTable)
	require.Error(t, err)
}

func TestIndexDescriptionVariants(t *testing.T) {
	table := NewTableIndexDescription(NewID(2))
	view := mustView(t, "syn1", TableTypeEntityView)
	mv, err := NewMaterializedViewIndexDescription(NewID(3), []IndexDescription{table, view})
	require.NoError(t, err)

	assert.Equal(t, TableTypeTable, table.TableType())
	assert.Empty(t, table.Dependencies())
	assert.Equal(t, TableTypeEntityView, view.TableType())
	assert.Empty(t, view.Dependencies())
	assert.Equal(t, TableTypeMaterializedView, mv.TableType())
	assert.Equal(t, []IndexDescription{table, view}, mv.Dependencies())
}

func TestBenefactorDependencies(t *testing.T) {
	view := mustView(t, "syn1", TableTypeEntityView)
	dataset := mustView(t, "syn5", TableTypeDataset)
	mv, err := NewMaterializedViewIndexDescription(NewID(3), []IndexDescription{
		NewTableIndexDescription(NewID(2)),
		view,
		dataset,
		view,
	})
	require.NoError(t, err)

	assert.Equal(t, []IdAndVersion{NewID(1), NewID(5)}, BenefactorDependencies(mv))
	assert.Empty(t, BenefactorDependencies(NewTableIndexDescription(NewID(2))))
}

func TestFindDescription(t *testing.T) {
	table := NewTableIndexDescription(NewID(2))
	mv, err := NewMaterializedViewIndexDescription(NewID(3), []IndexDescription{table})
	require.NoError(t, err)

	got, ok := FindDescription(mv, NewID(3))
	require.True(t, ok)
	assert.Same(t, mv, got)

	got, ok = FindDescription(mv, NewID(2))
	require.True(t, ok)
	assert.Same(t, table, got)

	_, ok = FindDescription(mv, NewID(9))
	assert.False(t, ok)
}

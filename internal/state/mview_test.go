package state_test

import (
	"context"
	"testing"

	"github.com/leapstack-labs/tablequery/internal/mview"
	"github.com/leapstack-labs/tablequery/internal/state"
	"github.com/leapstack-labs/tablequery/internal/testutil"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializedViewOverStore(t *testing.T) {
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	store, err := state.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tables, err := state.ParseCatalogFile("testdata/catalog.yaml")
	require.NoError(t, err)
	require.NoError(t, store.LoadTables(ctx, tables))

	view := core.NewID(300)
	manager := mview.NewManager(store, translator.New(store, logger), logger)

	reg, err := manager.RegisterSourceTables(ctx, view, tables[2].DefiningSQL)
	require.NoError(t, err)
	assert.True(t, reg.Changed())
	assert.Equal(t, []core.IdAndVersion{core.NewID(123), core.NewID(2)}, reg.Added)

	sources, err := store.SourceTables(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, []core.IdAndVersion{core.NewID(123), core.NewID(2)}, sources)

	columns, err := store.TableSchema(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, reg.Columns, columns)

	again, err := manager.RegisterSourceTables(ctx, view, tables[2].DefiningSQL)
	require.NoError(t, err)
	assert.False(t, again.Changed())

	regs, err := store.Registrations(ctx, view)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, reg.Revision, regs[0].Revision)

	out, err := manager.CompileDefiningSQL(ctx, view, 1)
	require.NoError(t, err)
	assert.Equal(t, "SELECT _A0._C111_, _A1._C888_, IFNULL(_A1.ROW_BENEFACTOR,-1) "+
		"FROM T123 _A0 JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ )", out.SQL)
	assert.Equal(t, core.SqlContextBuild, out.SqlContext)
}

package state

import (
	"context"
	"strings"
	"testing"

	"github.com/leapstack-labs/tablequery/internal/testutil"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Migrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	for _, table := range []string{"tables", "table_columns", "view_sources", "view_registrations"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.TableType(ctx, core.NewID(1))
	assert.ErrorIs(t, err, errNotOpened)
	_, err = store.TableSchema(ctx, core.NewID(1))
	assert.ErrorIs(t, err, errNotOpened)
	assert.ErrorIs(t, store.Migrate(), errNotOpened)
}

func TestSQLiteStore_Tables(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	enum := core.FacetEnumeration
	columns := []core.ColumnModel{
		{ID: "111", Name: "foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50), FacetType: &enum},
		{ID: "1000", Name: "tags", Type: core.ColumnTypeInteger, IsList: true, MaxListLength: core.Int64Ptr(3)},
		{ID: "777", Name: "doubletype", Type: core.ColumnTypeDouble},
	}
	require.NoError(t, store.PutTable(ctx, &Table{ID: core.NewID(123), Type: core.TableTypeTable, Columns: columns}))

	t.Run("schema keeps stored order", func(t *testing.T) {
		got, err := store.TableSchema(ctx, core.NewID(123))
		require.NoError(t, err)
		assert.Equal(t, columns, got)
	})

	t.Run("table type", func(t *testing.T) {
		got, err := store.TableType(ctx, core.NewID(123))
		require.NoError(t, err)
		assert.Equal(t, core.TableTypeTable, got)
	})

	t.Run("versions are separate tables", func(t *testing.T) {
		_, err := store.TableSchema(ctx, core.NewIDWithVersion(123, 2))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrSchemaNotFound)

		_, err = store.TableType(ctx, core.NewIDWithVersion(123, 2))
		assert.ErrorIs(t, err, core.ErrSchemaNotFound)
	})

	t.Run("put replaces columns", func(t *testing.T) {
		require.NoError(t, store.PutTable(ctx, &Table{ID: core.NewID(123), Type: core.TableTypeTable, Columns: columns[:1]}))
		got, err := store.TableSchema(ctx, core.NewID(123))
		require.NoError(t, err)
		assert.Equal(t, columns[:1], got)
	})

	t.Run("table without columns", func(t *testing.T) {
		require.NoError(t, store.PutTable(ctx, &Table{ID: core.NewID(5), Type: core.TableTypeEntityView}))
		got, err := store.TableSchema(ctx, core.NewID(5))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("list", func(t *testing.T) {
		got, err := store.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []TableSummary{
			{ID: core.NewID(5), Type: core.TableTypeEntityView, ColumnCount: 0},
			{ID: core.NewID(123), Type: core.TableTypeTable, ColumnCount: 1},
		}, got)
	})

	t.Run("unknown type", func(t *testing.T) {
		err := store.PutTable(ctx, &Table{ID: core.NewID(6), Type: "spreadsheet"})
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteTable(ctx, core.NewID(5)))
		_, err := store.TableType(ctx, core.NewID(5))
		assert.ErrorIs(t, err, core.ErrSchemaNotFound)
		assert.ErrorIs(t, store.DeleteTable(ctx, core.NewID(5)), core.ErrSchemaNotFound)
	})
}

func TestSQLiteStore_MaterializedViews(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	view := core.NewID(300)
	syn1, syn2, syn3 := core.NewID(1), core.NewID(2), core.NewID(3)

	sql, err := store.DefiningSQL(ctx, view)
	require.NoError(t, err)
	assert.Empty(t, sql)

	require.NoError(t, store.PutTable(ctx, &Table{ID: syn1, Type: core.TableTypeTable, Columns: []core.ColumnModel{
		{ID: "111", Name: "foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50)},
	}}))

	first := &ViewDefinition{
		ID:          view,
		DefiningSQL: "select foo, count(*) as n from syn1 group by foo",
		Columns: []core.ColumnModel{
			{ID: "111", Name: "foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50)},
			{Name: "n", Type: core.ColumnTypeInteger},
		},
		Add:      []core.IdAndVersion{syn1, syn2},
		Revision: "rev-1",
	}
	require.NoError(t, store.SaveView(ctx, first))
	assert.Equal(t, "112", first.Columns[1].ID, "new ids start above every stored column id")

	sql, err = store.DefiningSQL(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, "select foo, count(*) as n from syn1 group by foo", sql)

	tableType, err := store.TableType(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, core.TableTypeMaterializedView, tableType)

	second := &ViewDefinition{
		ID:          view,
		DefiningSQL: "select count(*) as n from syn2 join syn3",
		Columns:     []core.ColumnModel{{Name: "n", Type: core.ColumnTypeInteger}},
		Add:         []core.IdAndVersion{syn3},
		Remove:      []core.IdAndVersion{syn1},
		Revision:    "rev-2",
	}
	require.NoError(t, store.SaveView(ctx, second))
	assert.Equal(t, "112", second.Columns[0].ID, "a column of the same name and type keeps its id")

	columns, err := store.TableSchema(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, []core.ColumnModel{{ID: "112", Name: "n", Type: core.ColumnTypeInteger}}, columns)

	sources, err := store.SourceTables(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, []core.IdAndVersion{syn2, syn3}, sources)

	all, err := store.AllSourceTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[core.IdAndVersion][]core.IdAndVersion{view: {syn2, syn3}}, all)

	regs, err := store.Registrations(ctx, view)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "rev-1", regs[0].Revision)
	assert.Equal(t, 2, regs[0].Added)
	assert.Equal(t, "rev-2", regs[1].Revision)
	assert.Equal(t, 1, regs[1].Removed)

	t.Run("unchanged sources record no registration", func(t *testing.T) {
		require.NoError(t, store.SaveView(ctx, &ViewDefinition{
			ID:          view,
			DefiningSQL: "select count(*) as n from syn2 join syn3 where 1 = 1",
			Columns:     []core.ColumnModel{{Name: "n", Type: core.ColumnTypeInteger}},
		}))
		regs, err := store.Registrations(ctx, view)
		require.NoError(t, err)
		assert.Len(t, regs, 2)
	})

	t.Run("failed registration leaves the view untouched", func(t *testing.T) {
		before, err := store.DefiningSQL(ctx, view)
		require.NoError(t, err)

		err = store.SaveView(ctx, &ViewDefinition{
			ID:          view,
			DefiningSQL: "select foo from syn1",
			Columns:     []core.ColumnModel{{ID: "111", Name: "foo", Type: core.ColumnTypeString}},
			Add:         []core.IdAndVersion{syn1},
			Remove:      []core.IdAndVersion{syn2, syn3},
			Revision:    "rev-2",
		})
		require.Error(t, err)

		sql, err := store.DefiningSQL(ctx, view)
		require.NoError(t, err)
		assert.Equal(t, before, sql)
		columns, err := store.TableSchema(ctx, view)
		require.NoError(t, err)
		assert.Equal(t, []core.ColumnModel{{ID: "112", Name: "n", Type: core.ColumnTypeInteger}}, columns)
		sources, err := store.SourceTables(ctx, view)
		require.NoError(t, err)
		assert.Equal(t, []core.IdAndVersion{syn2, syn3}, sources)
	})
}

func TestParseCatalog(t *testing.T) {
	tables, err := ParseCatalogFile("testdata/catalog.yaml")
	require.NoError(t, err)
	require.Len(t, tables, 3)

	assert.Equal(t, core.NewID(123), tables[0].ID)
	assert.Equal(t, core.TableTypeTable, tables[0].Type)
	require.Len(t, tables[0].Columns, 5)
	tags := tables[0].Columns[4]
	assert.True(t, tags.IsList)
	assert.Equal(t, core.Int64Ptr(5), tags.MaxListLength)
	require.NotNil(t, tags.FacetType)
	assert.Equal(t, core.FacetEnumeration, *tags.FacetType)

	assert.Equal(t, core.TableTypeMaterializedView, tables[2].Type)
	assert.Contains(t, tables[2].DefiningSQL, "join syn2")

	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.LoadTables(ctx, tables))
	listed, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad id", "tables:\n  - {id: abc, type: table}\n", "invalid table id"},
		{"bad type", "tables:\n  - {id: syn1, type: sheet}\n", "unknown table type"},
		{"view without sql", "tables:\n  - {id: syn1, type: materializedview}\n", "needs definingSql"},
		{"duplicate table", "tables:\n  - {id: syn1, type: table}\n  - {id: syn1, type: table}\n", "duplicate table"},
		{"bad column type", "tables:\n  - id: syn1\n    type: table\n    columns:\n      - {id: '1', name: a, type: BLOB}\n", "unknown column type"},
		{"duplicate column", "tables:\n  - id: syn1\n    type: table\n    columns:\n      - {id: '1', name: a, type: STRING}\n      - {id: '2', name: a, type: STRING}\n", "duplicate column"},
		{"unknown field", "tables:\n  - {id: syn1, type: table, color: red}\n", "color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/tablequery/internal/catalog"
	"github.com/leapstack-labs/tablequery/internal/facet"
	"github.com/leapstack-labs/tablequery/internal/state"
	"github.com/leapstack-labs/tablequery/internal/testutil"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	syn2   = core.NewID(2)
	syn123 = core.NewID(123)
	syn300 = core.NewID(300)
)

func newTestEngine(t *testing.T, access catalog.AccessChecker) *Engine {
	t.Helper()
	e, err := New(Config{Access: access, Concurrency: 2, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	regs, err := e.LoadCatalogFile(context.Background(), "testdata/catalog.yaml")
	require.NoError(t, err)
	require.Len(t, regs, 1)
	return e
}

func TestNew_StatePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	e, err := New(Config{StatePath: path})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, path, e.Store().Path())
	tables, err := e.Tables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestEngine_LoadCatalog(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	tables, err := e.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, core.TableTypeEntityView, tables[0].Type)

	sources, err := e.Store().SourceTables(ctx, syn300)
	require.NoError(t, err)
	assert.Equal(t, []core.IdAndVersion{syn123, syn2}, sources)

	desc, err := e.Describe(ctx, syn300)
	require.NoError(t, err)
	assert.Equal(t, []core.IdAndVersion{syn300, syn123, syn2}, catalog.Flatten(desc))

	t.Run("reloading leaves sources unchanged", func(t *testing.T) {
		regs, err := e.LoadCatalogFile(ctx, "testdata/catalog.yaml")
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.False(t, regs[0].Changed())
	})
}

func TestEngine_Compile(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		name   string
		req    Request
		want   string
		params map[string]any
	}{
		{
			name:   "table in query context",
			req:    Request{SQL: "select foo from syn123 where inttype > 3"},
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C888_ > :b0",
			params: map[string]any{"b0": int64(3)},
		},
		{
			name: "materialized view in query context",
			req:  Request{SQL: "select foo from syn300"},
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T300",
		},
		{
			name: "defining sql in build context",
			req: Request{
				SQL:     "select a.foo, b.inttype from syn123 a join syn2 b on (a.foo = b.foo)",
				Options: translator.Options{SqlContext: core.SqlContextBuild},
				Table:   syn300,
			},
			want: "SELECT _A0._C111_, _A1._C888_, IFNULL(_A1.ROW_BENEFACTOR,-1) " +
				"FROM T123 _A0 JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ )",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Compile(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.SQL)
			if tt.params == nil {
				assert.Empty(t, out.Parameters)
			} else {
				assert.Equal(t, tt.params, out.Parameters)
			}
		})
	}
}

func TestEngine_CompileErrors(t *testing.T) {
	e := newTestEngine(t, nil)

	tests := []struct {
		name string
		req  Request
		kind error
		msg  string
	}{
		{
			name: "unknown table",
			req:  Request{SQL: "select * from syn999"},
			kind: core.ErrSchemaNotFound,
		},
		{
			name: "unknown column",
			req:  Request{SQL: "select nope from syn123"},
			kind: core.ErrColumnNotFound,
		},
		{
			name: "build context without a view",
			req:  Request{SQL: "select foo from syn123", Options: translator.Options{SqlContext: core.SqlContextBuild}},
			kind: core.ErrValidation,
			msg:  "A materialized view id is required to compile in build context",
		},
		{
			name: "join in query context",
			req:  Request{SQL: "select * from syn123 a join syn2 b on (a.foo = b.foo)"},
			kind: core.ErrJoinNotSupportedInContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compile(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}

	t.Run("parse error", func(t *testing.T) {
		_, err := e.Compile(context.Background(), Request{SQL: "select from"})
		require.Error(t, err)
	})
}

func TestEngine_Access(t *testing.T) {
	ctx := context.Background()

	t.Run("tables need download", func(t *testing.T) {
		e := newTestEngine(t, catalog.Grants{syn123: {catalog.PermissionRead}})
		_, err := e.Compile(ctx, Request{SQL: "select foo from syn123"})
		require.Error(t, err)
		assert.Equal(t, "You lack DOWNLOAD access to the requested entity: syn123", err.Error())
	})

	t.Run("views are checked through their sources", func(t *testing.T) {
		e := newTestEngine(t, catalog.Grants{
			syn300: {catalog.PermissionRead},
			syn123: {catalog.PermissionRead, catalog.PermissionDownload},
		})
		_, err := e.CompileView(ctx, syn300, 1)
		require.Error(t, err)
		var deny *catalog.DenyError
		require.ErrorAs(t, err, &deny)
		assert.Equal(t, syn2, deny.ID)
		assert.Equal(t, catalog.PermissionRead, deny.Permission)
	})

	t.Run("granted", func(t *testing.T) {
		e := newTestEngine(t, catalog.Grants{
			syn300: {catalog.PermissionRead},
			syn123: {catalog.PermissionRead, catalog.PermissionDownload},
			syn2:   {catalog.PermissionRead},
		})
		out, err := e.CompileView(ctx, syn300, 1)
		require.NoError(t, err)
		assert.Equal(t, core.SqlContextBuild, out.SqlContext)
	})
}

func TestEngine_CompileBatch(t *testing.T) {
	e := newTestEngine(t, nil)

	reqs := []Request{
		{SQL: "select foo from syn123"},
		{SQL: "select missing from syn123"},
		{SQL: "select inttype from syn2"},
		{SQL: "select bar from syn123 where foo = 'x'"},
	}
	results, err := e.CompileBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123", results[0].Query.SQL)
	assert.ErrorIs(t, results[1].Err, core.ErrColumnNotFound)
	assert.Nil(t, results[1].Query)
	require.NoError(t, results[2].Err)
	assert.Equal(t, core.TableTypeEntityView, results[2].Query.TableType)
	require.NoError(t, results[3].Err)
	assert.Equal(t, map[string]any{"b0": "x"}, results[3].Query.Parameters)
}

func TestEngine_CompileBatchCanceled(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.CompileBatch(ctx, []Request{{SQL: "select foo from syn123"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Facets(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	columns, err := e.FacetColumns(ctx, syn123)
	require.NoError(t, err)
	require.Len(t, columns, 3)

	model, err := e.Facets(ctx, FacetRequest{
		SQL:       "select * from syn123 where bar = 'x'",
		Requests:  []facet.Request{facet.ValuesRequest{Column: "foo", Values: []string{"a"}}},
		ReturnAll: true,
		UserID:    1,
	})
	require.NoError(t, err)

	var names []string
	var types []core.FacetType
	for _, tr := range model.Transformers() {
		names = append(names, tr.ColumnName())
		types = append(types, tr.FacetType())
	}
	assert.Equal(t, []string{"foo", "inttype", "tags"}, names)
	assert.Equal(t, []core.FacetType{core.FacetEnumeration, core.FacetRange, core.FacetEnumeration}, types)

	t.Run("only requested facets", func(t *testing.T) {
		model, err := e.Facets(ctx, FacetRequest{
			SQL:      "select * from syn123",
			Requests: []facet.Request{facet.RangeRequest{Column: "inttype", Min: "1"}},
		})
		require.NoError(t, err)
		require.Len(t, model.Transformers(), 1)
		assert.Equal(t, "inttype", model.Transformers()[0].ColumnName())
	})

	t.Run("unfaceted column", func(t *testing.T) {
		_, err := e.Facets(ctx, FacetRequest{
			SQL:      "select * from syn123",
			Requests: []facet.Request{facet.ValuesRequest{Column: "bar"}},
		})
		assert.ErrorIs(t, err, core.ErrFacetValidation)
	})
}

func TestEngine_RegisterView(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	_, err := e.RegisterView(ctx, syn123, "select * from syn300")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDependencyCycle)

	reg, err := e.RegisterView(ctx, syn300, "select foo from syn123")
	require.NoError(t, err)
	assert.Equal(t, []core.IdAndVersion{syn2}, reg.Removed)
	assert.Empty(t, reg.Added)

	out, err := e.CompileView(ctx, syn300, 1)
	require.NoError(t, err)
	assert.Equal(t, "SELECT _C111_ FROM T123", out.SQL)
}

func TestEngine_RegisteredViewIsQueryable(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	syn400 := core.NewID(400)

	reg, err := e.RegisterView(ctx, syn400, "select foo, inttype from syn123")
	require.NoError(t, err)
	require.Len(t, reg.Columns, 2)

	columns, err := e.TableSchema(ctx, syn400)
	require.NoError(t, err)
	assert.Equal(t, reg.Columns, columns)

	out, err := e.Compile(ctx, Request{SQL: "select * from syn400 where inttype > 1"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT _C111_, _C888_, ROW_ID, ROW_VERSION FROM T400 WHERE _C888_ > :b0", out.SQL)
}

func TestEngine_DependentViews(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)
	syn400 := core.NewID(400)

	_, err := e.RegisterView(ctx, syn400, "select foo from syn300")
	require.NoError(t, err)

	tests := []struct {
		name string
		id   core.IdAndVersion
		want []core.IdAndVersion
	}{
		{"table read through a view", syn123, []core.IdAndVersion{syn300, syn400}},
		{"view read by a view", syn300, []core.IdAndVersion{syn400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.DependentViews(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("refresh rebinds after a column change", func(t *testing.T) {
		tables, err := state.ParseCatalogFile("testdata/catalog.yaml")
		require.NoError(t, err)
		table := tables[0]
		require.Equal(t, syn123, table.ID)
		table.Columns[0].MaxSize = core.Int64Ptr(250)
		require.NoError(t, e.Store().PutTable(ctx, table))

		regs, err := e.RefreshDependentViews(ctx, syn123)
		require.NoError(t, err)
		require.Len(t, regs, 2)
		for _, reg := range regs {
			assert.Equal(t, core.Int64Ptr(250), reg.Columns[0].MaxSize, reg.ID.String())
		}
	})

	t.Run("refresh of an unknown table", func(t *testing.T) {
		_, err := e.RefreshDependentViews(ctx, core.NewID(999))
		assert.ErrorIs(t, err, core.ErrSchemaNotFound)
	})
}

func TestEngine_DeleteTable(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	err := e.DeleteTable(ctx, syn2)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "syn300")

	require.NoError(t, e.DeleteTable(ctx, syn300))
	require.NoError(t, e.DeleteTable(ctx, syn2))

	tables, err := e.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, syn123, tables[0].ID)

	regs, err := e.Registrations(ctx, syn300)
	require.NoError(t, err)
	assert.Len(t, regs, 1, "history outlives the view")
}

func TestEngine_LoadCatalog_ViewOrder(t *testing.T) {
	ctx := context.Background()
	e, err := New(Config{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	syn500, syn501 := core.NewID(500), core.NewID(501)
	tables := []*state.Table{
		{ID: syn500, Type: core.TableTypeMaterializedView, DefiningSQL: "select n from syn501"},
		{ID: syn501, Type: core.TableTypeMaterializedView, DefiningSQL: "select inttype as n from syn1"},
		{ID: core.NewID(1), Type: core.TableTypeTable, Columns: []core.ColumnModel{
			{ID: "888", Name: "inttype", Type: core.ColumnTypeInteger},
		}},
	}

	regs, err := e.LoadCatalog(ctx, tables)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, syn501, regs[0].ID)
	assert.Equal(t, syn500, regs[1].ID)
	assert.Equal(t, []core.ColumnModel{{ID: "888", Name: "n", Type: core.ColumnTypeInteger}}, regs[1].Columns)

	t.Run("cycle between views", func(t *testing.T) {
		_, err := e.LoadCatalog(ctx, []*state.Table{
			{ID: syn500, Type: core.TableTypeMaterializedView, DefiningSQL: "select n from syn501"},
			{ID: syn501, Type: core.TableTypeMaterializedView, DefiningSQL: "select n from syn500"},
		})
		assert.ErrorIs(t, err, core.ErrDependencyCycle)
	})
}

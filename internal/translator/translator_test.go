package translator

import (
	"context"
	"testing"

	"github.com/leapstack-labs/tablequery/internal/schema"
	"github.com/leapstack-labs/tablequery/internal/testutil"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID int64 = 1

var syn123 = core.NewID(123)

const starColumns = "_C111_, _C222_, _C333_, _C444_, _C555_, _C666_, " +
	"CASE WHEN _DBL_C777_ IS NULL THEN _C777_ ELSE _DBL_C777_ END, _C888_, _C999_, _C4242_"

func stringColumn(id, name string) core.ColumnModel {
	return core.ColumnModel{ID: id, Name: name, Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50)}
}

var columnsByName = map[string]core.ColumnModel{
	"foo":        stringColumn("111", "foo"),
	"has space":  stringColumn("222", "has space"),
	"bar":        stringColumn("333", "bar"),
	"foo_bar":    stringColumn("444", "foo_bar"),
	"Foo":        stringColumn("555", "Foo"),
	"datetype":   {ID: "666", Name: "datetype", Type: core.ColumnTypeDate},
	"doubletype": {ID: "777", Name: "doubletype", Type: core.ColumnTypeDouble},
	"inttype":    {ID: "888", Name: "inttype", Type: core.ColumnTypeInteger},
	"has-hyphen": stringColumn("999", "has-hyphen"),
	`has"quote`:  stringColumn("4242", `has"quote`),
	"tags": {
		ID: "1000", Name: "tags", Type: core.ColumnTypeString, IsList: true,
		MaxSize: core.Int64Ptr(10), MaxListLength: core.Int64Ptr(5),
	},
}

func columns(names ...string) []core.ColumnModel {
	out := make([]core.ColumnModel, len(names))
	for i, name := range names {
		out[i] = columnsByName[name]
	}
	return out
}

func tableSchema() []core.ColumnModel {
	return columns("foo", "has space", "bar", "foo_bar", "Foo", "datetype", "doubletype", "inttype", "has-hyphen", `has"quote`)
}

func newTranslator(t *testing.T, schemas schema.MapProvider) *Translator {
	t.Helper()
	return New(schemas, testutil.NewTestLogger(t))
}

func compileTable(t *testing.T, sql string, opts Options) (*CompiledQuery, error) {
	t.Helper()
	tr := newTranslator(t, schema.MapProvider{syn123: tableSchema()})
	if opts.UserID == 0 {
		opts.UserID = userID
	}
	return tr.CompileSQL(context.Background(), sql, core.NewTableIndexDescription(syn123), opts)
}

func mustView(t *testing.T, id core.IdAndVersion, viewType core.TableType) *core.ViewIndexDescription {
	t.Helper()
	v, err := core.NewViewIndexDescription(id, viewType)
	require.NoError(t, err)
	return v
}

func mustMaterialized(t *testing.T, id core.IdAndVersion, deps ...core.IndexDescription) *core.MaterializedViewIndexDescription {
	t.Helper()
	mv, err := core.NewMaterializedViewIndexDescription(id, deps)
	require.NoError(t, err)
	return mv
}

func TestCompile_QueryContext(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		want   string
		params map[string]any
	}{
		{
			name: "select star expands in schema order",
			sql:  "select * from syn123",
			want: "SELECT " + starColumns + ", ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name: "single column",
			sql:  "select foo from syn123",
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name:   "string column binds text",
			sql:    "select * from syn123 where foo = 1 or bar = 2",
			want:   "SELECT " + starColumns + ", ROW_ID, ROW_VERSION FROM T123 WHERE _C111_ = :b0 OR _C333_ = :b1",
			params: map[string]any{"b0": "1", "b1": "2"},
		},
		{
			name:   "approximate number against text column",
			sql:    "select foo from syn123 where foo_bar >= 1.89e4",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C444_ >= :b0",
			params: map[string]any{"b0": "18900.0"},
		},
		{
			name:   "double between uses the physical column",
			sql:    "select foo from syn123 where doubletype between 1.0 and 2.0",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C777_ BETWEEN :b0 AND :b1",
			params: map[string]any{"b0": 1.0, "b1": 2.0},
		},
		{
			name:   "nested predicates keep parentheses",
			sql:    "select foo from syn123 where (foo = 1 and bar = 2) or foo_bar = 3",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE ( _C111_ = :b0 AND _C333_ = :b1 ) OR _C444_ = :b2",
			params: map[string]any{"b0": "1", "b1": "2", "b2": "3"},
		},
		{
			name:   "integer IN list",
			sql:    "select foo from syn123 where inttype in (1, 2)",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C888_ IN ( :b0, :b1 )",
			params: map[string]any{"b0": int64(1), "b1": int64(2)},
		},
		{
			name:   "negative number",
			sql:    "select foo from syn123 where inttype > -1",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C888_ > :b0",
			params: map[string]any{"b0": int64(-1)},
		},
		{
			name:   "date string becomes epoch millis",
			sql:    "select foo from syn123 where datetype > '2021-06-20'",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C666_ > :b0",
			params: map[string]any{"b0": int64(1624147200000)},
		},
		{
			name:   "like pattern",
			sql:    "select foo from syn123 where bar not like 'a%'",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C333_ NOT LIKE :b0",
			params: map[string]any{"b0": "a%"},
		},
		{
			name: "is null",
			sql:  "select foo from syn123 where bar is not null",
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C333_ IS NOT NULL",
		},
		{
			name: "isNaN",
			sql:  "select foo from syn123 where isNaN(doubletype)",
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE ( _DBL_C777_ IS NOT NULL AND _DBL_C777_ = 'NaN' )",
		},
		{
			name: "not isNaN negates the guarded test",
			sql:  "select foo from syn123 where not isNaN(doubletype)",
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE NOT ( _DBL_C777_ IS NOT NULL AND _DBL_C777_ = 'NaN' )",
		},
		{
			name: "isInfinity",
			sql:  "select foo from syn123 where isInfinity(doubletype)",
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE ( _DBL_C777_ IS NOT NULL AND _DBL_C777_ IN ( '-Infinity', 'Infinity' ) )",
		},
		{
			name: "group by",
			sql:  "select foo, bar from syn123 group by foo, bar",
			want: "SELECT _C111_, _C333_ FROM T123 GROUP BY _C111_, _C333_",
		},
		{
			name: "order by",
			sql:  "select foo from syn123 order by foo asc, bar desc",
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 ORDER BY _C111_ ASC, _C333_ DESC",
		},
		{
			name: "order by double uses the physical column",
			sql:  "select foo from syn123 order by doubletype",
			want: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 ORDER BY _C777_",
		},
		{
			name:   "limit",
			sql:    "select foo from syn123 limit 100",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 LIMIT :b0",
			params: map[string]any{"b0": int64(100)},
		},
		{
			name:   "limit and offset after where",
			sql:    "select foo from syn123 where bar = 'x' limit 100 offset 2",
			want:   "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE _C333_ = :b0 LIMIT :b1 OFFSET :b2",
			params: map[string]any{"b0": "x", "b1": int64(100), "b2": int64(2)},
		},
		{
			name: "count star",
			sql:  "select count(*) from syn123",
			want: "SELECT COUNT(*) FROM T123",
		},
		{
			name: "aggregate over double uses the physical column",
			sql:  "select sum(doubletype) from syn123",
			want: "SELECT SUM(_C777_) FROM T123",
		},
		{
			name: "distinct",
			sql:  "select distinct foo from syn123",
			want: "SELECT DISTINCT _C111_ FROM T123",
		},
		{
			name: "select alias referenced by order by",
			sql:  "select doubletype as f1 from syn123 order by f1",
			want: "SELECT CASE WHEN _DBL_C777_ IS NULL THEN _C777_ ELSE _DBL_C777_ END AS f1, ROW_ID, ROW_VERSION FROM T123 ORDER BY f1",
		},
		{
			name: "aggregate aliases",
			sql:  "select max(doubletype) as f1, min(doubletype) as f2 from syn123 order by f2",
			want: "SELECT MAX(_C777_) AS f1, MIN(_C777_) AS f2 FROM T123 ORDER BY f2",
		},
		{
			name: "quoted aliases are backticked",
			sql:  "select \"foo\" as \"f\", sum(inttype) as \"i` sum\" from syn123 group by \"f\" order by \"i` sum\" DESC",
			want: "SELECT _C111_ AS `f`, SUM(_C888_) AS `i`` sum` FROM T123 GROUP BY `f` ORDER BY `i`` sum` DESC",
		},
		{
			name: "quoted identifier with an escaped quote",
			sql:  `select "has""quote" from syn123`,
			want: "SELECT _C4242_, ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name: "string constant stays inline",
			sql:  "select 'not a foo' from syn123",
			want: "SELECT 'not a foo', ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name: "scalar function keeps row ids",
			sql:  "select concat('a', foo) from syn123",
			want: "SELECT CONCAT('a', _C111_), ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name: "integer division",
			sql:  "select 5 div 2 from syn123",
			want: "SELECT 5 DIV 2, ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name:   "current user in a predicate is bound",
			sql:    "select inttype from syn123 where inttype = CURRENT_USER()",
			want:   "SELECT _C888_, ROW_ID, ROW_VERSION FROM T123 WHERE _C888_ = :b0",
			params: map[string]any{"b0": userID},
		},
		{
			name: "current user in an aggregate is a constant",
			sql:  "select COUNT(CURRENT_USER()) from syn123",
			want: "SELECT COUNT(1) FROM T123",
		},
		{
			name: "current user in the select list is a constant",
			sql:  "select CURRENT_USER() from syn123",
			want: "SELECT 1, ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name:   "having binds literals",
			sql:    "select foo, count(*) from syn123 group by foo having count(*) > 5",
			want:   "SELECT _C111_, COUNT(*) FROM T123 GROUP BY _C111_ HAVING COUNT(*) > :b0",
			params: map[string]any{"b0": int64(5)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := compileTable(t, tt.sql, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.SQL)
			if tt.params == nil {
				tt.params = map[string]any{}
			}
			assert.Equal(t, tt.params, out.Parameters)
		})
	}
}

func TestCompile_TextMatches(t *testing.T) {
	out, err := compileTable(t, "select foo from syn123 WHERE TEXT_MATCHES('some text')", Options{})
	require.NoError(t, err)

	assert.Equal(t, "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE MATCH(ROW_SEARCH_CONTENT) AGAINST(:b0)", out.SQL)
	assert.Equal(t, map[string]any{"b0": "some text"}, out.Parameters)
	assert.True(t, out.IncludesSearch)
}

func TestCompile_FunctionArgumentsStayInline(t *testing.T) {
	tr := newTranslator(t, schema.MapProvider{syn123: {{ID: "1", Name: "createdOn", Type: core.ColumnTypeDate}}})
	sql := "select createdOn, UNIX_TIMESTAMP('2021-06-20 00:00:00')*1000 from syn123 " +
		"where createdOn > UNIX_TIMESTAMP('2021-06-20 00:00:00')*1000"

	out, err := tr.CompileSQL(context.Background(), sql, core.NewTableIndexDescription(syn123), Options{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, "SELECT _C1_, UNIX_TIMESTAMP('2021-06-20 00:00:00')*1000, ROW_ID, ROW_VERSION FROM T123 "+
		"WHERE _C1_ > UNIX_TIMESTAMP('2021-06-20 00:00:00')*:b0", out.SQL)
	assert.Equal(t, map[string]any{"b0": int64(1000)}, out.Parameters)
}

func TestCompile_ListColumns(t *testing.T) {
	tr := newTranslator(t, schema.MapProvider{syn123: columns("foo", "tags")})
	desc := core.NewTableIndexDescription(syn123)

	t.Run("has binds element values", func(t *testing.T) {
		out, err := tr.CompileSQL(context.Background(), "select foo from syn123 where tags has ('a', 'b')", desc, Options{})
		require.NoError(t, err)
		assert.Equal(t, "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 WHERE JSON_OVERLAPS(_C1000_, JSON_ARRAY(:b0, :b1))", out.SQL)
		assert.Equal(t, map[string]any{"b0": "a", "b1": "b"}, out.Parameters)
	})

	t.Run("unnest", func(t *testing.T) {
		out, err := tr.CompileSQL(context.Background(),
			"select unnest(tags) as value, count(*) as frequency from syn123 group by unnest(tags) order by frequency desc, value asc",
			desc, Options{})
		require.NoError(t, err)
		assert.Equal(t, "SELECT UNNEST(_C1000_) AS value, COUNT(*) AS frequency FROM T123 "+
			"GROUP BY UNNEST(_C1000_) ORDER BY frequency DESC, value ASC", out.SQL)
	})

	t.Run("has on a scalar column", func(t *testing.T) {
		_, err := tr.CompileSQL(context.Background(), "select foo from syn123 where foo has ('a')", desc, Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrValidation)
	})

	t.Run("list size accounting", func(t *testing.T) {
		out, err := tr.CompileSQL(context.Background(), "select tags from syn123", desc, Options{})
		require.NoError(t, err)
		// 10 chars * 4 bytes * 5 elements
		assert.Equal(t, int64(200), out.MaxRowSizeBytes)
	})
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		kind    error
		message string
	}{
		{
			name:    "unknown column",
			sql:     "select nope from syn123",
			kind:    core.ErrColumnNotFound,
			message: "Column does not exist: nope",
		},
		{
			name:    "double quoted value is an identifier",
			sql:     `select foo from syn123 where foo = "a"`,
			kind:    core.ErrColumnNotFound,
			message: "Column does not exist: a",
		},
		{
			name:    "double quoted IN value is an identifier",
			sql:     `select foo from syn123 where foo in ("a")`,
			kind:    core.ErrColumnNotFound,
			message: "Column does not exist: a",
		},
		{
			name:    "unknown table",
			sql:     "select foo from syn999",
			kind:    core.ErrSchemaNotFound,
			message: "Schema not found for table: syn999",
		},
		{
			name:    "join outside build context",
			sql:     "select * from syn1 join syn2 on (syn1.id = syn2.id) WHERE syn1.foo is not null",
			kind:    core.ErrJoinNotSupportedInContext,
			message: "JOIN is not supported in this context",
		},
		{
			name:    "unknown function",
			sql:     "select sleep(10) from syn123",
			kind:    core.ErrValidation,
			message: "Unknown function: SLEEP",
		},
		{
			name: "isNaN on a string column",
			sql:  "select foo from syn123 where isNaN(foo)",
			kind: core.ErrValidation,
		},
		{
			name: "integer column with text",
			sql:  "select foo from syn123 where inttype = 'abc'",
			kind: core.ErrValidation,
		},
		{
			name: "parse error",
			sql:  "select from syn123",
			kind: core.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := compileTable(t, tt.sql, Options{})
			require.Error(t, err)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestCompile_EmptySchemaStar(t *testing.T) {
	tr := newTranslator(t, schema.MapProvider{syn123: {}})
	_, err := tr.CompileSQL(context.Background(), "select * from syn123", core.NewTableIndexDescription(syn123), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, "cannot select star from table with no columns", err.Error())
}

func TestCompile_SelectColumns(t *testing.T) {
	tests := []struct {
		name       string
		sql        string
		aggregated bool
		want       []core.SelectColumn
	}{
		{
			name: "direct column keeps its id",
			sql:  "select foo from syn123",
			want: []core.SelectColumn{{Name: "foo", Type: core.ColumnTypeString, ID: "111"}},
		},
		{
			name: "aliased column",
			sql:  `select foo as "cats" from syn123`,
			want: []core.SelectColumn{{Name: "cats", Type: core.ColumnTypeString, ID: "111"}},
		},
		{
			name: "string constant",
			sql:  "select 'not a foo' from syn123",
			want: []core.SelectColumn{{Name: "not a foo", Type: core.ColumnTypeString}},
		},
		{
			name:       "count star",
			sql:        "select count(*) from syn123",
			aggregated: true,
			want:       []core.SelectColumn{{Name: "COUNT(*)", Type: core.ColumnTypeInteger}},
		},
		{
			name:       "avg is always double",
			sql:        "select avg(inttype) from syn123",
			aggregated: true,
			want:       []core.SelectColumn{{Name: "AVG(inttype)", Type: core.ColumnTypeDouble}},
		},
		{
			name:       "count distinct",
			sql:        "select count(distinct foo) from syn123",
			aggregated: true,
			want:       []core.SelectColumn{{Name: "COUNT(DISTINCT foo)", Type: core.ColumnTypeInteger}},
		},
		{
			name:       "sum follows the input type",
			sql:        "select sum(inttype), sum(doubletype) from syn123",
			aggregated: true,
			want: []core.SelectColumn{
				{Name: "SUM(inttype)", Type: core.ColumnTypeInteger},
				{Name: "SUM(doubletype)", Type: core.ColumnTypeDouble},
			},
		},
		{
			name:       "min and max keep the input type",
			sql:        "select min(datetype), max(foo) from syn123",
			aggregated: true,
			want: []core.SelectColumn{
				{Name: "MIN(datetype)", Type: core.ColumnTypeDate},
				{Name: "MAX(foo)", Type: core.ColumnTypeString},
			},
		},
		{
			name:       "aggregated queries drop column ids",
			sql:        "select foo, max(bar) from syn123",
			aggregated: true,
			want: []core.SelectColumn{
				{Name: "foo", Type: core.ColumnTypeString},
				{Name: "MAX(bar)", Type: core.ColumnTypeString},
			},
		},
		{
			name: "scalar function",
			sql:  "select DAYOFMONTH(datetype) from syn123",
			want: []core.SelectColumn{{Name: "DAYOFMONTH(datetype)", Type: core.ColumnTypeInteger}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := compileTable(t, tt.sql, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.SelectColumns)
			assert.Equal(t, tt.aggregated, out.IsAggregated)
			assert.Equal(t, !tt.aggregated, out.IncludesRowIDAndVersion)
		})
	}
}

func TestCompile_SelectStarColumns(t *testing.T) {
	out, err := compileTable(t, "select * from syn123", Options{})
	require.NoError(t, err)

	require.Len(t, out.SelectColumns, 10)
	for i, col := range tableSchema() {
		assert.Equal(t, core.SelectColumn{Name: col.Name, Type: col.Type, ID: col.ID}, out.SelectColumns[i])
	}
	assert.False(t, out.IsAggregated)
	assert.Equal(t, core.TableTypeTable, out.TableType)
	assert.Equal(t, core.SqlContextQuery, out.SqlContext)
}

func TestCompile_Pagination(t *testing.T) {
	rowSize := MaxRowSizeBytes(tableSchema())
	require.Equal(t, int64(1463), rowSize)

	tests := []struct {
		name     string
		sql      string
		budget   *int64
		wantRows *int64
		wantSQL  string
		params   map[string]any
	}{
		{
			name:     "two rows per page",
			sql:      "select * from syn123",
			budget:   core.Int64Ptr(rowSize * 2),
			wantRows: core.Int64Ptr(2),
			wantSQL:  "SELECT " + starColumns + ", ROW_ID, ROW_VERSION FROM T123 LIMIT :b0 OFFSET :b1",
			params:   map[string]any{"b0": int64(2), "b1": int64(0)},
		},
		{
			name:     "budget smaller than a row",
			sql:      "select * from syn123",
			budget:   core.Int64Ptr(3),
			wantRows: core.Int64Ptr(1),
			wantSQL:  "SELECT " + starColumns + ", ROW_ID, ROW_VERSION FROM T123 LIMIT :b0 OFFSET :b1",
			params:   map[string]any{"b0": int64(1), "b1": int64(0)},
		},
		{
			name:    "no budget",
			sql:     "select foo from syn123",
			wantSQL: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123",
			params:  map[string]any{},
		},
		{
			name:     "explicit limit under the page size",
			sql:      "select foo from syn123 limit 10 offset 1",
			budget:   core.Int64Ptr(10000),
			wantRows: core.Int64Ptr(50),
			wantSQL:  "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 LIMIT :b0 OFFSET :b1",
			params:   map[string]any{"b0": int64(10), "b1": int64(1)},
		},
		{
			name:     "explicit limit over the page size",
			sql:      "select foo from syn123 limit 1000",
			budget:   core.Int64Ptr(1000),
			wantRows: core.Int64Ptr(5),
			wantSQL:  "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123 LIMIT :b0 OFFSET :b1",
			params:   map[string]any{"b0": int64(5), "b1": int64(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := compileTable(t, tt.sql, Options{MaxBytesPerPage: tt.budget})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, out.SQL)
			assert.Equal(t, tt.wantRows, out.MaxRowsPerPage)
			assert.Equal(t, tt.params, out.Parameters)
		})
	}

	t.Run("count star row size", func(t *testing.T) {
		out, err := compileTable(t, "select count(*) from syn123", Options{})
		require.NoError(t, err)
		assert.Equal(t, int64(20), out.MaxRowSizeBytes)
	})
}

func TestCompile_EntityEtag(t *testing.T) {
	view := mustView(t, syn123, core.TableTypeEntityView)
	tr := newTranslator(t, schema.MapProvider{syn123: columns("foo")})

	tests := []struct {
		name     string
		sql      string
		desc     core.IndexDescription
		etag     bool
		wantSQL  string
		wantEtag bool
	}{
		{
			name:    "table ignores the flag",
			sql:     "select * from syn123",
			desc:    core.NewTableIndexDescription(syn123),
			etag:    true,
			wantSQL: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name:    "view without the flag",
			sql:     "select * from syn123",
			desc:    view,
			wantSQL: "SELECT _C111_, ROW_ID, ROW_VERSION FROM T123",
		},
		{
			name:     "view with the flag",
			sql:      "select * from syn123",
			desc:     view,
			etag:     true,
			wantSQL:  "SELECT _C111_, ROW_ID, ROW_VERSION, ROW_ETAG FROM T123",
			wantEtag: true,
		},
		{
			name:    "aggregated view query",
			sql:     "select count(*) from syn123",
			desc:    view,
			etag:    true,
			wantSQL: "SELECT COUNT(*) FROM T123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tr.CompileSQL(context.Background(), tt.sql, tt.desc, Options{IncludeEntityEtag: tt.etag})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, out.SQL)
			assert.Equal(t, tt.wantEtag, out.IncludeEntityEtag)
		})
	}
}

func TestCompile_BuildContext(t *testing.T) {
	syn1, syn2, syn3 := core.NewID(1), core.NewID(2), core.NewID(3)
	build := Options{SqlContext: core.SqlContextBuild, UserID: userID}

	tests := []struct {
		name    string
		schemas schema.MapProvider
		desc    core.IndexDescription
		sql     string
		want    string
		params  map[string]any
	}{
		{
			name:    "single table without dependencies",
			schemas: schema.MapProvider{syn123: tableSchema()},
			desc:    mustMaterialized(t, syn3, core.NewTableIndexDescription(syn123)),
			sql:     "select foo from syn123",
			want:    "SELECT _C111_ FROM T123",
		},
		{
			name:    "join of two tables",
			schemas: schema.MapProvider{syn1: columns("foo", "bar"), syn2: columns("foo", `has"quote`)},
			desc:    mustMaterialized(t, syn123, core.NewTableIndexDescription(syn1), core.NewTableIndexDescription(syn2)),
			sql:     "select * from syn1 join syn2 on (syn1.foo = syn2.foo) WHERE syn1.bar = 'some text' order by syn1.bar",
			want: "SELECT _A0._C111_, _A0._C333_, _A1._C111_, _A1._C4242_ " +
				"FROM T1 _A0 JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ ) WHERE _A0._C333_ = :b0 ORDER BY _A0._C333_",
			params: map[string]any{"b0": "some text"},
		},
		{
			name:    "join with a view dependency",
			schemas: schema.MapProvider{syn1: columns("foo", "bar"), syn2: columns("foo", `has"quote`)},
			desc: mustMaterialized(t, syn123, core.NewTableIndexDescription(syn1),
				mustView(t, syn2, core.TableTypeEntityView)),
			sql: "select * from syn1 join syn2 on (syn1.foo = syn2.foo) WHERE syn1.bar = 'some text' order by syn1.bar",
			want: "SELECT _A0._C111_, _A0._C333_, _A1._C111_, _A1._C4242_, IFNULL(_A1.ROW_BENEFACTOR,-1) " +
				"FROM T1 _A0 JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ ) WHERE _A0._C333_ = :b0 ORDER BY _A0._C333_",
			params: map[string]any{"b0": "some text"},
		},
		{
			name:    "join with aliases",
			schemas: schema.MapProvider{syn1: columns("foo", "bar"), syn2: columns("foo", `has"quote`)},
			desc:    mustMaterialized(t, syn123, core.NewTableIndexDescription(syn1), core.NewTableIndexDescription(syn2)),
			sql:     "select * from syn1 a join syn2 b on (a.foo = b.foo) WHERE a.bar = 'some text' order by a.bar",
			want: "SELECT _A0._C111_, _A0._C333_, _A1._C111_, _A1._C4242_ " +
				"FROM T1 _A0 JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ ) WHERE _A0._C333_ = :b0 ORDER BY _A0._C333_",
			params: map[string]any{"b0": "some text"},
		},
		{
			name:    "self join gets one alias per reference",
			schemas: schema.MapProvider{syn1: columns("foo", "bar")},
			desc:    mustMaterialized(t, syn123, core.NewTableIndexDescription(syn1), core.NewTableIndexDescription(syn1)),
			sql:     "select * from syn1 a join syn1 b on (a.foo = b.foo) WHERE a.bar = 'some text' order by b.bar",
			want: "SELECT _A0._C111_, _A0._C333_, _A1._C111_, _A1._C333_ " +
				"FROM T1 _A0 JOIN T1 _A1 ON ( _A0._C111_ = _A1._C111_ ) WHERE _A0._C333_ = :b0 ORDER BY _A1._C333_",
			params: map[string]any{"b0": "some text"},
		},
		{
			name:    "self join of a view adds one benefactor",
			schemas: schema.MapProvider{syn1: columns("foo", "bar")},
			desc:    mustMaterialized(t, syn123, mustView(t, syn1, core.TableTypeEntityView)),
			sql:     "select * from syn1 a join syn1 b on (a.foo = b.foo) WHERE a.bar = 'some text' order by b.bar",
			want: "SELECT _A0._C111_, _A0._C333_, _A1._C111_, _A1._C333_, IFNULL(_A0.ROW_BENEFACTOR,-1) " +
				"FROM T1 _A0 JOIN T1 _A1 ON ( _A0._C111_ = _A1._C111_ ) WHERE _A0._C333_ = :b0 ORDER BY _A1._C333_",
			params: map[string]any{"b0": "some text"},
		},
		{
			name:    "left join with group by",
			schemas: schema.MapProvider{syn1: columns("foo", "bar"), syn2: columns("foo", "has space")},
			desc:    mustMaterialized(t, syn123, core.NewTableIndexDescription(syn1), core.NewTableIndexDescription(syn2)),
			sql:     "select b.`has space`, sum(a.foo) from syn1 a left join syn2 b on (a.foo = b.foo) group by b.`has space`",
			want:    "SELECT _A1._C222_, SUM(_A0._C111_) FROM T1 _A0 LEFT JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ ) GROUP BY _A1._C222_",
		},
		{
			name:    "left outer join",
			schemas: schema.MapProvider{syn1: columns("foo", "bar"), syn2: columns("foo", "has space")},
			desc:    mustMaterialized(t, syn123, core.NewTableIndexDescription(syn1), core.NewTableIndexDescription(syn2)),
			sql:     "select * from syn1 a left outer join syn2 b on (a.foo = b.foo)",
			want:    "SELECT _A0._C111_, _A0._C333_, _A1._C111_, _A1._C222_ FROM T1 _A0 LEFT OUTER JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ )",
		},
		{
			name:    "right outer join",
			schemas: schema.MapProvider{syn1: columns("foo", "bar"), syn2: columns("foo", "has space")},
			desc:    mustMaterialized(t, syn123, core.NewTableIndexDescription(syn1), core.NewTableIndexDescription(syn2)),
			sql:     "select * from syn1 a right outer join syn2 b on (a.foo = b.foo)",
			want:    "SELECT _A0._C111_, _A0._C333_, _A1._C111_, _A1._C222_ FROM T1 _A0 RIGHT OUTER JOIN T2 _A1 ON ( _A0._C111_ = _A1._C111_ )",
		},
		{
			name:    "double column is selected physically",
			schemas: schema.MapProvider{syn1: columns("doubletype")},
			desc:    mustMaterialized(t, syn123, mustView(t, syn1, core.TableTypeDataset)),
			sql:     "select doubletype from syn1",
			want:    "SELECT _C777_, IFNULL(ROW_BENEFACTOR,-1) FROM T1",
		},
		{
			name:    "dependencies out of FROM order",
			schemas: schema.MapProvider{syn1: columns("inttype"), syn2: columns("inttype")},
			desc: mustMaterialized(t, syn3, core.NewTableIndexDescription(syn2),
				mustView(t, syn1, core.TableTypeEntityView)),
			sql:  "select * from syn1 a join syn2 b on a.inttype = b.inttype",
			want: "SELECT _A0._C888_, _A1._C888_, IFNULL(_A0.ROW_BENEFACTOR,-1) FROM T1 _A0 JOIN T2 _A1 ON _A0._C888_ = _A1._C888_",
		},
		{
			name:    "same view joined twice",
			schemas: schema.MapProvider{syn1: columns("inttype"), syn2: columns("inttype")},
			desc: mustMaterialized(t, syn3, core.NewTableIndexDescription(syn2),
				mustView(t, syn1, core.TableTypeEntityView)),
			sql: "select * from syn1 a join syn2 b on (a.inttype = b.inttype) join syn1 c on (b.inttype = c.inttype)",
			want: "SELECT _A0._C888_, _A1._C888_, _A2._C888_, IFNULL(_A0.ROW_BENEFACTOR,-1) " +
				"FROM T1 _A0 JOIN T2 _A1 ON ( _A0._C888_ = _A1._C888_ ) JOIN T1 _A2 ON ( _A1._C888_ = _A2._C888_ )",
		},
		{
			name:    "join condition binds literals",
			schemas: schema.MapProvider{syn1: columns("inttype"), syn2: columns("inttype")},
			desc: mustMaterialized(t, syn3, core.NewTableIndexDescription(syn2),
				mustView(t, syn1, core.TableTypeEntityView)),
			sql: "select * from syn1 a join syn2 b on (a.inttype = b.inttype and a.inttype > 12)",
			want: "SELECT _A0._C888_, _A1._C888_, IFNULL(_A0.ROW_BENEFACTOR,-1) FROM T1 _A0 " +
				"JOIN T2 _A1 ON ( _A0._C888_ = _A1._C888_ AND _A0._C888_ > :b0 )",
			params: map[string]any{"b0": int64(12)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newTranslator(t, tt.schemas).CompileSQL(context.Background(), tt.sql, tt.desc, build)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.SQL)
			if tt.params == nil {
				tt.params = map[string]any{}
			}
			assert.Equal(t, tt.params, out.Parameters)
			assert.False(t, out.IncludesRowIDAndVersion)
			assert.Equal(t, core.SqlContextBuild, out.SqlContext)
		})
	}
}

func TestCompile_BuildContextErrors(t *testing.T) {
	syn1, syn2, syn3 := core.NewID(1), core.NewID(2), core.NewID(3)
	build := Options{SqlContext: core.SqlContextBuild}

	t.Run("group by over a view dependency", func(t *testing.T) {
		tr := newTranslator(t, schema.MapProvider{syn1: columns("foo", "bar")})
		desc := mustMaterialized(t, syn3, mustView(t, syn1, core.TableTypeEntityView))

		_, err := tr.CompileSQL(context.Background(), "select foo, sum(bar) from syn1 group by foo", desc, build)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrDefiningSQLWithGroupBy)
	})

	for _, sql := range []string{
		"select * from syn1 a join syn2 b on (a.inttype = b.inttype) where a.inttypeWrong = 123",
		"select * from syn1 a join syn2 b on (a.inttypeWrong = b.inttype)",
	} {
		t.Run(sql, func(t *testing.T) {
			tr := newTranslator(t, schema.MapProvider{syn1: columns("inttype"), syn2: columns("inttype")})
			desc := mustMaterialized(t, syn3, core.NewTableIndexDescription(syn2), mustView(t, syn1, core.TableTypeEntityView))

			_, err := tr.CompileSQL(context.Background(), sql, desc, build)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrColumnNotFound)
			assert.Equal(t, "Column does not exist: a.inttypeWrong", err.Error())
		})
	}
}

func TestCompile_MaterializedViewQueryContext(t *testing.T) {
	desc := mustMaterialized(t, syn123, core.NewTableIndexDescription(core.NewID(1)),
		mustView(t, core.NewID(2), core.TableTypeEntityView))
	tr := newTranslator(t, schema.MapProvider{syn123: columns("foo", "bar", "doubletype")})

	out, err := tr.CompileSQL(context.Background(), "select * from syn123 WHERE bar = 'some text'", desc, Options{})
	require.NoError(t, err)

	assert.Equal(t, "SELECT _C111_, _C333_, CASE WHEN _DBL_C777_ IS NULL THEN _C777_ ELSE _DBL_C777_ END, "+
		"ROW_ID, ROW_VERSION FROM T123 WHERE _C333_ = :b0", out.SQL)
	assert.Equal(t, core.TableTypeMaterializedView, out.TableType)
}

func TestCompiledQuery_SchemaOfSelect(t *testing.T) {
	syn1 := core.NewID(1)
	tr := newTranslator(t, schema.MapProvider{syn1: columns("foo", "doubletype")})

	out, err := tr.CompileSQL(context.Background(), "select * from syn1 a where isNaN(doubletype)",
		core.NewTableIndexDescription(syn1), Options{})
	require.NoError(t, err)

	assert.Equal(t, "SELECT _C111_, CASE WHEN _DBL_C777_ IS NULL THEN _C777_ ELSE _DBL_C777_ END, ROW_ID, ROW_VERSION "+
		"FROM T1 WHERE ( _DBL_C777_ IS NOT NULL AND _DBL_C777_ = 'NaN' )", out.SQL)
	assert.Equal(t, []core.ColumnModel{
		{Name: "a.foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50)},
		{Name: "a.doubletype", Type: core.ColumnTypeDouble},
	}, out.SchemaOfSelect())
}

func TestCompiledQuery_ViewSchema(t *testing.T) {
	syn1, syn2 := core.NewID(1), core.NewID(2)
	enumeration := core.FacetEnumeration
	faceted := stringColumn("111", "foo")
	faceted.FacetType = &enumeration
	tr := newTranslator(t, schema.MapProvider{
		syn1: {faceted, columnsByName["inttype"]},
		syn2: columns("foo", "doubletype"),
	})
	desc := mustMaterialized(t, core.NewID(400), core.NewTableIndexDescription(syn1), core.NewTableIndexDescription(syn2))

	tests := []struct {
		name string
		sql  string
		want []core.ColumnModel
	}{
		{
			name: "qualified references keep the column name",
			sql:  "select a.foo, b.doubletype from syn1 a join syn2 b on (a.foo = b.foo)",
			want: []core.ColumnModel{
				{ID: "111", Name: "foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50), FacetType: &enumeration},
				{ID: "777", Name: "doubletype", Type: core.ColumnTypeDouble},
			},
		},
		{
			name: "star over a join keeps qualified names",
			sql:  "select * from syn1 a join syn2 b on (a.foo = b.foo)",
			want: []core.ColumnModel{
				{ID: "111", Name: "a.foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50), FacetType: &enumeration},
				{ID: "888", Name: "a.inttype", Type: core.ColumnTypeInteger},
				{ID: "111", Name: "b.foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50)},
				{ID: "777", Name: "b.doubletype", Type: core.ColumnTypeDouble},
			},
		},
		{
			name: "alias renames a reference",
			sql:  "select inttype as n from syn1",
			want: []core.ColumnModel{{ID: "888", Name: "n", Type: core.ColumnTypeInteger}},
		},
		{
			name: "computed column has no id",
			sql:  "select foo, count(*) as total from syn1 group by foo",
			want: []core.ColumnModel{
				{ID: "111", Name: "foo", Type: core.ColumnTypeString, MaxSize: core.Int64Ptr(50), FacetType: &enumeration},
				{Name: "total", Type: core.ColumnTypeInteger},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tr.CompileSQL(context.Background(), tt.sql, desc, Options{SqlContext: core.SqlContextBuild})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.ViewSchema())
		})
	}
}

func TestCompile_SchemaLookedUpOncePerTable(t *testing.T) {
	syn1, syn3 := core.NewID(1), core.NewID(3)
	provider := &countingProvider{inner: schema.MapProvider{syn1: columns("foo", "bar")}, calls: map[core.IdAndVersion]int{}}
	tr := New(provider, nil)
	desc := mustMaterialized(t, syn3, core.NewTableIndexDescription(syn1))

	_, err := tr.CompileSQL(context.Background(),
		"select * from syn1 a join syn1 b on (a.foo = b.foo) join syn1 c on (b.foo = c.foo)",
		desc, Options{SqlContext: core.SqlContextBuild})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls[syn1])
}

func TestCompile_DoesNotModifyInput(t *testing.T) {
	q, err := parser.Parse("select foo from syn123 where bar = 'x' limit 500")
	require.NoError(t, err)
	before := parser.FormatQuery(q)

	tr := newTranslator(t, schema.MapProvider{syn123: tableSchema()})
	out, err := tr.Compile(context.Background(), q, core.NewTableIndexDescription(syn123),
		Options{MaxBytesPerPage: core.Int64Ptr(2000)})
	require.NoError(t, err)

	assert.Equal(t, int64(10), out.Parameters["b1"])
	assert.Equal(t, before, parser.FormatQuery(q))
}

type countingProvider struct {
	inner schema.MapProvider
	calls map[core.IdAndVersion]int
}

func (c *countingProvider) TableSchema(ctx context.Context, id core.IdAndVersion) ([]core.ColumnModel, error) {
	c.calls[id]++
	return c.inner.TableSchema(ctx, id)
}

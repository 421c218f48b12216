package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/cli/output"
	"github.com/leapstack-labs/tablequery/internal/engine"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
)

// ColumnOutput is a result column in JSON output.
type ColumnOutput struct {
	Name string `json:"name"`
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// CompiledOutput is a compiled query in JSON output.
type CompiledOutput struct {
	SQL                     string         `json:"sql"`
	Parameters              map[string]any `json:"parameters"`
	Columns                 []ColumnOutput `json:"columns"`
	SqlContext              string         `json:"sqlContext"` //nolint:revive // see core.SqlContext
	TableType               string         `json:"tableType"`
	IsAggregated            bool           `json:"isAggregated"`
	IncludesRowIDAndVersion bool           `json:"includesRowIdAndVersion"`
	IncludeEntityEtag       bool           `json:"includeEntityEtag"`
	IncludesSearch          bool           `json:"includesSearch"`
	MaxRowSizeBytes         int64          `json:"maxRowSizeBytes"`
	MaxRowsPerPage          *int64         `json:"maxRowsPerPage,omitempty"`
}

// BatchOutput is one batch entry in JSON output.
type BatchOutput struct {
	Query    string          `json:"query"`
	Compiled *CompiledOutput `json:"compiled,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func toCompiledOutput(q *translator.CompiledQuery) *CompiledOutput {
	out := &CompiledOutput{
		SQL:                     q.SQL,
		Parameters:              q.Parameters,
		SqlContext:              string(q.SqlContext),
		TableType:               string(q.TableType),
		IsAggregated:            q.IsAggregated,
		IncludesRowIDAndVersion: q.IncludesRowIDAndVersion,
		IncludeEntityEtag:       q.IncludeEntityEtag,
		IncludesSearch:          q.IncludesSearch,
		MaxRowSizeBytes:         q.MaxRowSizeBytes,
		MaxRowsPerPage:          q.MaxRowsPerPage,
	}
	if out.Parameters == nil {
		out.Parameters = map[string]any{}
	}
	for _, c := range q.SelectColumns {
		out.Columns = append(out.Columns, ColumnOutput{Name: c.Name, Type: string(c.Type), ID: c.ID})
	}
	return out
}

func renderCompiled(r *output.Renderer, q *translator.CompiledQuery) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(toCompiledOutput(q))
	case output.ModeMarkdown:
		compiledMarkdown(r, q)
	default:
		compiledText(r, q)
	}
	return nil
}

func compiledText(r *output.Renderer, q *translator.CompiledQuery) {
	styles := r.Styles()

	r.Println(styles.Header1.Render("SQL"))
	r.Println(styles.Code.Render(q.SQL))
	r.Println("")

	if len(q.Parameters) > 0 {
		r.Println(styles.Header2.Render("Parameters"))
		r.Table([]string{"Name", "Value", "Type"}, parameterRows(q.Parameters))
		r.Println("")
	}

	r.Println(styles.Header2.Render("Columns"))
	r.Table([]string{"Name", "Type", "ID"}, columnRows(q.SelectColumns))
	r.Println("")

	for _, kv := range metadata(q) {
		r.Printf("%s %s\n", styles.Muted.Render(kv[0]+":"), kv[1])
	}
}

func compiledMarkdown(r *output.Renderer, q *translator.CompiledQuery) {
	r.Println(output.FormatHeader(2, "SQL"))
	r.Println("")
	r.Println(output.FormatCodeBlock("sql", q.SQL))
	r.Println("")

	if len(q.Parameters) > 0 {
		r.Println(output.FormatHeader(3, "Parameters"))
		r.Println("")
		r.Table([]string{"Name", "Value", "Type"}, parameterRows(q.Parameters))
	}

	r.Println(output.FormatHeader(3, "Columns"))
	r.Println("")
	r.Table([]string{"Name", "Type", "ID"}, columnRows(q.SelectColumns))

	for _, kv := range metadata(q) {
		r.Println(output.FormatKeyValue(kv[0], kv[1]))
	}
}

func parameterRows(params map[string]any) [][]string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	// b2 before b10
	sort.Slice(names, func(i, j int) bool {
		ni, _ := strconv.Atoi(strings.TrimPrefix(names[i], "b"))
		nj, _ := strconv.Atoi(strings.TrimPrefix(names[j], "b"))
		return ni < nj
	})

	rows := make([][]string, len(names))
	for i, name := range names {
		v := params[name]
		rows[i] = []string{":" + name, fmt.Sprintf("%v", v), fmt.Sprintf("%T", v)}
	}
	return rows
}

func columnRows(columns []core.SelectColumn) [][]string {
	rows := make([][]string, len(columns))
	for i, c := range columns {
		rows[i] = []string{c.Name, string(c.Type), c.ID}
	}
	return rows
}

func metadata(q *translator.CompiledQuery) [][2]string {
	kv := [][2]string{
		{"SQL context", string(q.SqlContext)},
		{"Table type", string(q.TableType)},
		{"Aggregated", strconv.FormatBool(q.IsAggregated)},
		{"Row id and version", strconv.FormatBool(q.IncludesRowIDAndVersion)},
		{"Entity etag", strconv.FormatBool(q.IncludeEntityEtag)},
		{"Search", strconv.FormatBool(q.IncludesSearch)},
		{"Max row size", fmt.Sprintf("%d bytes", q.MaxRowSizeBytes)},
	}
	if q.MaxRowsPerPage != nil {
		kv = append(kv, [2]string{"Rows per page", strconv.FormatInt(*q.MaxRowsPerPage, 10)})
	}
	return kv
}

func renderBatch(r *output.Renderer, queries []string, results []engine.BatchResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]BatchOutput, len(results))
		for i, res := range results {
			out[i] = BatchOutput{Query: queries[i]}
			if res.Err != nil {
				out[i].Error = res.Err.Error()
			} else {
				out[i].Compiled = toCompiledOutput(res.Query)
			}
		}
		return r.JSON(out)
	}

	rows := make([][]string, len(results))
	for i, res := range results {
		status, detail := "ok", ""
		if res.Err != nil {
			status, detail = "error", res.Err.Error()
		} else {
			detail = res.Query.SQL
		}
		rows[i] = []string{strconv.Itoa(i + 1), status, queries[i], detail}
	}
	r.Header(1, fmt.Sprintf("Batch (%d queries)", len(queries)))
	r.Table([]string{"#", "Status", "Query", "SQL / Error"}, rows)
	return nil
}

package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/cli/output"
	"github.com/leapstack-labs/tablequery/internal/engine"
	"github.com/leapstack-labs/tablequery/internal/facet"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/spf13/cobra"
)

// FacetsOptions holds options for the facets command.
type FacetsOptions struct {
	File   string
	Facets []string
	All    bool
}

// NewFacetsCommand creates the facets command.
func NewFacetsCommand() *cobra.Command {
	opts := &FacetsOptions{}
	cmd := &cobra.Command{
		Use:   "facets [sql]",
		Short: "Compile the facet queries of a base query",
		Long: `Compile one summary query per facet of a base query.

Enumeration facets count rows per value; range facets find the minimum and
maximum. Each facet query is filtered by the base query's WHERE clause and
by every other facet's selection, but not by its own.

A selection is name=v1,v2 for enumeration facets and name=min..max for
range facets (either bound may be empty). Use ` + facet.NullValueKeyword + `
to select rows where the column is null. Without any selection every
faceted column is included.`,
		Example: `  # Facets of every faceted column
  tablequery facets --all "select * from syn123"

  # Select two values of foo and a range of inttype
  tablequery facets --facet foo=a,b --facet inttype=1..10 "select * from syn123"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacets(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the base query from a file")
	cmd.Flags().StringArrayVar(&opts.Facets, "facet", nil, "Facet selection, name=v1,v2 or name=min..max (repeatable)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Include every faceted column")

	return cmd
}

func runFacets(cmd *cobra.Command, args []string, opts *FacetsOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sql, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	requests := make([]facet.Request, 0, len(opts.Facets))
	for _, s := range opts.Facets {
		req, err := parseFacetSelection(s)
		if err != nil {
			return err
		}
		requests = append(requests, req)
	}

	model, err := cmdCtx.Engine.Facets(cmd.Context(), engine.FacetRequest{
		SQL:       sql,
		Requests:  requests,
		ReturnAll: opts.All || len(requests) == 0,
		UserID:    cmdCtx.Cfg.UserID,
	})
	if err != nil {
		return err
	}
	return renderFacets(cmdCtx.Renderer, model.Transformers())
}

// parseFacetSelection parses name=v1,v2 into a values request and
// name=min..max into a range request.
func parseFacetSelection(s string) (facet.Request, error) {
	name, selection, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, core.Errorf(core.KindValidation, "Invalid facet selection %q (expected name=v1,v2 or name=min..max)", s)
	}

	if lo, hi, isRange := strings.Cut(selection, ".."); isRange {
		return facet.RangeRequest{Column: name, Min: strings.TrimSpace(lo), Max: strings.TrimSpace(hi)}, nil
	}

	var values []string
	for _, v := range strings.Split(selection, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return facet.ValuesRequest{Column: name, Values: values}, nil
}

// FacetOutput is one facet query in JSON output.
type FacetOutput struct {
	Column     string          `json:"column"`
	FacetType  string          `json:"facetType"`
	SQL        string          `json:"sql"`
	Translated *CompiledOutput `json:"compiled"`
}

func renderFacets(r *output.Renderer, transformers []facet.Transformer) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		out := make([]FacetOutput, len(transformers))
		for i, t := range transformers {
			out[i] = FacetOutput{
				Column:     t.ColumnName(),
				FacetType:  string(t.FacetType()),
				SQL:        t.SQL(),
				Translated: toCompiledOutput(t.Query()),
			}
		}
		return r.JSON(out)

	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, fmt.Sprintf("Facets (%d)", len(transformers))))
		r.Println("")
		for _, t := range transformers {
			r.Println(output.FormatHeader(2, fmt.Sprintf("%s (%s)", t.ColumnName(), t.FacetType())))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", t.SQL()))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", t.Query().SQL))
			r.Println("")
		}

	default:
		styles := r.Styles()
		r.Println(styles.Header1.Render(fmt.Sprintf("Facets (%d)", len(transformers))))
		for _, t := range transformers {
			r.Println("")
			r.Println(styles.Header2.Render(t.ColumnName()) + " " + styles.Muted.Render(string(t.FacetType())))
			r.Println(t.SQL())
			r.Println(styles.Code.Render(t.Query().SQL))
			if len(t.Query().Parameters) > 0 {
				r.Table([]string{"Name", "Value", "Type"}, parameterRows(t.Query().Parameters))
			}
		}
	}
	return nil
}

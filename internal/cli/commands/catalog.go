package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/leapstack-labs/tablequery/internal/catalog"
	"github.com/leapstack-labs/tablequery/internal/cli/output"
	"github.com/leapstack-labs/tablequery/internal/engine"
	"github.com/leapstack-labs/tablequery/internal/mview"
	"github.com/leapstack-labs/tablequery/internal/state"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NewCatalogCommand creates the catalog command and its subcommands.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the table catalog",
		Long: `Load, list and inspect the tables queries are compiled against.

A catalog document is YAML:

  tables:
    - id: syn123
      type: table
      columns:
        - {id: "111", name: foo, type: STRING, maxSize: 50, facetType: enumeration}
    - id: syn300
      type: materializedview
      definingSql: select * from syn123`,
	}

	cmd.AddCommand(newCatalogLoadCommand(), newCatalogListCommand(), newCatalogShowCommand(), newCatalogDeleteCommand())
	return cmd
}

func newCatalogLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "load <file.yaml>",
		Short:   "Load tables from a catalog document",
		Example: `  tablequery catalog load tables.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			tables, err := state.ParseCatalogFile(args[0])
			if err != nil {
				return err
			}
			regs, err := cmdCtx.Engine.LoadCatalog(cmd.Context(), tables)
			if err != nil {
				return err
			}
			return renderLoad(cmdCtx.Renderer, args[0], tables, regs)
		},
	}
}

func newCatalogListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			tables, err := cmdCtx.Engine.Tables(cmd.Context())
			if err != nil {
				return err
			}
			return renderTableList(cmdCtx.Renderer, tables)
		},
	}
}

func newCatalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "show <id>",
		Short:   "Show a table's schema and dependency tree",
		Example: `  tablequery catalog show syn300`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := parseTableArg(args[0])
			if err != nil {
				return err
			}
			return showTable(cmd.Context(), cmdCtx.Engine, cmdCtx.Renderer, id)
		},
	}
}

func newCatalogDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a table from the catalog",
		Long: `Remove a table, its columns and its source tables from the catalog.
A table that a materialized view reads from is kept; delete the view first.`,
		Example: `  tablequery catalog delete syn300`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := parseTableArg(args[0])
			if err != nil {
				return err
			}
			if err := cmdCtx.Engine.DeleteTable(cmd.Context(), id); err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{"id": id.String(), "deleted": true})
			}
			r.Success(fmt.Sprintf("Deleted %s", id))
			return nil
		},
	}
}

// typeLabel renders a table type for people, e.g. "Materialized View".
func typeLabel(t core.TableType) string {
	spaced := map[core.TableType]string{
		core.TableTypeEntityView:        "entity view",
		core.TableTypeSubmissionView:    "submission view",
		core.TableTypeDatasetCollection: "dataset collection",
		core.TableTypeMaterializedView:  "materialized view",
	}
	label, ok := spaced[t]
	if !ok {
		label = string(t)
	}
	return cases.Title(language.English).String(label)
}

// TableOutput is a catalog listing row in JSON output.
type TableOutput struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Columns int    `json:"columns"`
}

func renderTableList(r *output.Renderer, tables []state.TableSummary) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]TableOutput, len(tables))
		for i, t := range tables {
			out[i] = TableOutput{ID: t.ID.String(), Type: string(t.Type), Columns: t.ColumnCount}
		}
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Tables (%d total)", len(tables)))
	rows := make([][]string, len(tables))
	for i, t := range tables {
		rows[i] = []string{t.ID.String(), typeLabel(t.Type), strconv.Itoa(t.ColumnCount)}
	}
	r.Table([]string{"ID", "Type", "Columns"}, rows)
	return nil
}

func renderLoad(r *output.Renderer, path string, tables []*state.Table, regs []*mview.Registration) error {
	if r.EffectiveMode() == output.ModeJSON {
		views := make([]RegistrationOutput, len(regs))
		for i, reg := range regs {
			views[i] = toRegistrationOutput(reg)
		}
		return r.JSON(map[string]any{"file": path, "tables": len(tables), "views": views})
	}

	r.Success(fmt.Sprintf("Loaded %d tables from %s", len(tables), path))
	for _, reg := range regs {
		renderRegistrationLine(r, reg)
	}
	return nil
}

// SchemaOutput is a table's schema and dependencies in JSON output.
type SchemaOutput struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Columns      []ColumnDetail  `json:"columns"`
	Dependencies []string        `json:"dependencies,omitempty"`
	Reads        []string        `json:"reads,omitempty"`
	Dependents   []string        `json:"dependents,omitempty"`
	History      []HistoryOutput `json:"history,omitempty"`
}

// ColumnDetail is a column model in JSON output.
type ColumnDetail struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	MaxSize       *int64 `json:"maxSize,omitempty"`
	IsList        bool   `json:"isList,omitempty"`
	MaxListLength *int64 `json:"maxListLength,omitempty"`
	FacetType     string `json:"facetType,omitempty"`
}

// HistoryOutput is one recorded source table change of a view.
type HistoryOutput struct {
	Revision  string    `json:"revision"`
	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
	CreatedAt time.Time `json:"createdAt"`
}

func showTable(ctx context.Context, eng *engine.Engine, r *output.Renderer, id core.IdAndVersion) error {
	desc, err := eng.Describe(ctx, id)
	if err != nil {
		return err
	}
	columns, err := eng.TableSchema(ctx, id)
	if err != nil {
		return err
	}
	dependents, err := eng.DependentViews(ctx, id)
	if err != nil {
		return err
	}
	var history []state.Registration
	if desc.TableType() == core.TableTypeMaterializedView {
		if history, err = eng.Registrations(ctx, id); err != nil {
			return err
		}
	}

	details := make([]ColumnDetail, len(columns))
	rows := make([][]string, len(columns))
	for i, c := range columns {
		d := ColumnDetail{
			ID: c.ID, Name: c.Name, Type: string(c.Type),
			MaxSize: c.MaxSize, IsList: c.IsList, MaxListLength: c.MaxListLength,
		}
		if c.FacetType != nil {
			d.FacetType = string(*c.FacetType)
		}
		details[i] = d
		rows[i] = []string{d.ID, d.Name, columnTypeLabel(c), optionalInt(c.MaxSize), d.FacetType}
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := SchemaOutput{
			ID:         id.String(),
			Type:       string(desc.TableType()),
			Columns:    details,
			Reads:      idStrings(catalog.Flatten(desc)[1:]),
			Dependents: idStrings(dependents),
		}
		for _, dep := range desc.Dependencies() {
			out.Dependencies = append(out.Dependencies, dep.IdAndVersion().String())
		}
		for _, h := range history {
			out.History = append(out.History, HistoryOutput{
				Revision: h.Revision, Added: h.Added, Removed: h.Removed, CreatedAt: h.CreatedAt,
			})
		}
		return r.JSON(out)
	}

	markdown := r.EffectiveMode() == output.ModeMarkdown
	section := func(title string) {
		if !markdown {
			r.Println("")
		}
		r.Header(2, title)
	}

	r.Header(1, fmt.Sprintf("%s: %s", typeLabel(desc.TableType()), id))
	r.Table([]string{"ID", "Name", "Type", "Max size", "Facet"}, rows)
	if len(desc.Dependencies()) > 0 {
		section("Dependencies")
		if markdown {
			r.Println(dependencyTree(desc).RenderMarkdown())
		} else {
			r.Println(dependencyTree(desc).Render())
		}
	}
	if len(dependents) > 0 {
		section("Read by")
		r.Println(strings.Join(idStrings(dependents), ", "))
	}
	if len(history) > 0 {
		section("Registrations")
		historyRows := make([][]string, len(history))
		for i, h := range history {
			historyRows[i] = []string{
				h.CreatedAt.Format(time.RFC3339), h.Revision, strconv.Itoa(h.Added), strconv.Itoa(h.Removed),
			}
		}
		r.Table([]string{"When", "Revision", "Added", "Removed"}, historyRows)
	}
	return nil
}

// dependencyTree lists the dependencies of desc, nested the way they are
// resolved.
func dependencyTree(desc core.IndexDescription) list.Writer {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)

	var walk func(d core.IndexDescription)
	walk = func(d core.IndexDescription) {
		for _, dep := range d.Dependencies() {
			l.AppendItem(fmt.Sprintf("%s (%s)", dep.IdAndVersion(), typeLabel(dep.TableType())))
			if len(dep.Dependencies()) > 0 {
				l.Indent()
				walk(dep)
				l.UnIndent()
			}
		}
	}
	walk(desc)
	return l
}

func columnTypeLabel(c core.ColumnModel) string {
	if c.IsList {
		return fmt.Sprintf("%s_LIST", c.Type)
	}
	return string(c.Type)
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}


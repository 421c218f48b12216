package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/cli/output"
	"github.com/leapstack-labs/tablequery/internal/mview"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/spf13/cobra"
)

// NewMviewCommand creates the mview command and its subcommands.
func NewMviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mview",
		Aliases: []string{"view"},
		Short:   "Register and compile materialized views",
	}
	cmd.AddCommand(newMviewRegisterCommand(), newMviewCompileCommand(),
		newMviewDependentsCommand(), newMviewRefreshCommand())
	return cmd
}

func newMviewRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register <id> <defining sql>",
		Short: "Set a materialized view's defining SQL and record its sources",
		Long: `Validate and compile the defining SQL of a materialized view, store it
with the schema of its result, and record which tables the view reads from.
Unchanged source sets are not recorded again.`,
		Example: `  tablequery mview register syn300 "select a.foo from syn123 a join syn2 b on (a.foo = b.foo)"`,
		Args:    cobra.ExactArgs(2),
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
			reg, err := cmdCtx.Engine.RegisterView(cmd.Context(), id, strings.TrimSuffix(strings.TrimSpace(args[1]), ";"))
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(toRegistrationOutput(reg))
			}
			renderRegistrationLine(r, reg)
			return nil
		},
	}
}

func newMviewCompileCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "compile <id>",
		Short:   "Compile a materialized view's defining SQL in build context",
		Example: `  tablequery mview compile syn300`,
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
			q, err := cmdCtx.Engine.CompileView(cmd.Context(), id, cmdCtx.Cfg.UserID)
			if err != nil {
				return err
			}
			return renderCompiled(cmdCtx.Renderer, q)
		},
	}
}

func newMviewDependentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "dependents <id>",
		Short:   "List the materialized views that read from a table",
		Long:    `List every materialized view reading from a table, directly or through another view, in build order.`,
		Example: `  tablequery mview dependents syn123`,
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
			views, err := cmdCtx.Engine.DependentViews(cmd.Context(), id)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(map[string]any{"id": id.String(), "dependents": idStrings(views)})
			}
			if len(views) == 0 {
				r.Muted(fmt.Sprintf("%s: no materialized view reads from it", id))
				return nil
			}
			r.Header(1, fmt.Sprintf("Views reading %s", id))
			for _, v := range views {
				r.Println(v.String())
			}
			return nil
		},
	}
}

func newMviewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id>",
		Short: "Rebind the schema of every view reading from a table",
		Long: `Register every materialized view that reads from a table again, so each
view picks up the table's current columns. Views are refreshed before the
views that read them.`,
		Example: `  tablequery mview refresh syn123`,
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
			regs, err := cmdCtx.Engine.RefreshDependentViews(cmd.Context(), id)
			if err != nil {
				return err
			}

			r := cmdCtx.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				out := make([]RegistrationOutput, len(regs))
				for i, reg := range regs {
					out[i] = toRegistrationOutput(reg)
				}
				return r.JSON(out)
			}
			if len(regs) == 0 {
				r.Muted(fmt.Sprintf("%s: no materialized view reads from it", id))
				return nil
			}
			for _, reg := range regs {
				renderRegistrationLine(r, reg)
			}
			return nil
		},
	}
}

// RegistrationOutput is a source table registration in JSON output.
type RegistrationOutput struct {
	ID       string   `json:"id"`
	Sources  []string `json:"sources"`
	Added    []string `json:"added,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Revision string   `json:"revision,omitempty"`
	Changed  bool     `json:"changed"`
}

func toRegistrationOutput(reg *mview.Registration) RegistrationOutput {
	return RegistrationOutput{
		ID:       reg.ID.String(),
		Sources:  idStrings(reg.Sources),
		Added:    idStrings(reg.Added),
		Removed:  idStrings(reg.Removed),
		Columns:  columnNames(reg.Columns),
		Revision: reg.Revision,
		Changed:  reg.Changed(),
	}
}

func renderRegistrationLine(r *output.Renderer, reg *mview.Registration) {
	sources := strings.Join(idStrings(reg.Sources), ", ")
	if !reg.Changed() {
		r.Muted(fmt.Sprintf("%s: sources unchanged (%s)", reg.ID, sources))
		return
	}
	r.Success(fmt.Sprintf("%s: sources %s", reg.ID, sources))
	if len(reg.Added) > 0 {
		r.Printf("  added: %s\n", strings.Join(idStrings(reg.Added), ", "))
	}
	if len(reg.Removed) > 0 {
		r.Printf("  removed: %s\n", strings.Join(idStrings(reg.Removed), ", "))
	}
	if len(reg.Columns) > 0 {
		r.Printf("  columns: %s\n", strings.Join(columnNames(reg.Columns), ", "))
	}
}

func columnNames(columns []core.ColumnModel) []string {
	if len(columns) == 0 {
		return nil
	}
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Name
	}
	return out
}

func idStrings(ids []core.IdAndVersion) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

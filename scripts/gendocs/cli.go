package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/cli"
	cliconfig "github.com/leapstack-labs/tablequery/internal/cli/config"
	intconfig "github.com/leapstack-labs/tablequery/internal/config"
	"github.com/leapstack-labs/tablequery/internal/facet"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// generateCLIDocs writes index.md plus one page per top-level command. A page
// documents the command and each of its subcommands in its own section.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := map[string]*MarkdownWriter{"index.md": indexPage(root)}
	for _, cmd := range visibleCommands(root) {
		pages[cmd.Name()+".md"] = commandPage(cmd)
	}

	names := make([]string, 0, len(pages))
	for name := range pages {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(outDir, name), pages[name].Bytes(), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

// visibleCommands returns the documented children of cmd.
func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, sub := range cmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "__complete" {
			continue
		}
		out = append(out, sub)
	}
	return out
}

func indexPage(root *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for tablequery")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/tablequery/cmd/tablequery@latest")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		var subs []string
		for _, sub := range visibleCommands(cmd) {
			subs = append(subs, InlineCode(sub.Name()))
		}
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, strings.Join(subs, " "), cleanDescription(cmd.Short)})
	}
	w.Table([]string{"Command", "Subcommands", "Description"}, rows)

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "SQL Contexts")
	w.Paragraph("`--context` picks how `compile` translates a query. `mview register` and `mview compile` always use build context.")
	w.Table([]string{"Context", "Translated for", "Extra columns", "Restrictions"}, [][]string{
		{
			InlineCode("query"), "Reading rows from a table or view",
			"`ROW_ID`, `ROW_VERSION`, and `ROW_ETAG` with `--etag` on views; none when aggregated",
			"Paging follows `--max-bytes-per-page`",
		},
		{
			InlineCode("build"), "Filling a materialized view named by `--table`",
			"`ROW_BENEFACTOR` of each view the query reads",
			"No `GROUP BY` when reading a view",
		},
	})

	w.Header(2, "Facet Selections")
	w.Paragraph("`facets --facet` takes one selection per faceted column. The facet type comes from the column.")
	w.Table([]string{"Selection", "Facet type", "Filters"}, [][]string{
		{InlineCode("foo=a,b"), "enumeration", "`foo` is `a` or `b`"},
		{InlineCode("foo=" + facet.NullValueKeyword), "enumeration", "`foo` is null"},
		{InlineCode("inttype=1..10"), "range", "`inttype` between 1 and 10"},
		{InlineCode("inttype=..10"), "range", "`inttype` at most 10"},
	})

	w.Header(2, "Environment Variables")
	w.Paragraph("Every setting can come from the environment. Flags override the environment, which overrides `" +
		intconfig.ConfigFileName + "`.")
	defaults := intconfig.Defaults()
	var envRows [][]string
	for _, f := range configFields() {
		def := "-"
		if v, ok := defaults[f.Key]; ok && fmt.Sprint(v) != "" && fmt.Sprint(v) != "[]" {
			def = InlineCode(fmt.Sprint(v))
		}
		envRows = append(envRows, []string{InlineCode(cliconfig.EnvVar(f.Key)), InlineCode(f.Key), def})
	}
	w.Table([]string{"Variable", "Setting", "Default"}, envRows)

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Any error; the message names its kind, e.g. `ColumnNotFound`"},
	})
	return w
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	writeCommand(w, cmd)

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, alias := range cmd.Aliases {
			aliases[i] = InlineCode(alias)
		}
		w.BulletList(aliases)
	}

	for _, sub := range visibleCommands(cmd) {
		w.Header(2, sub.CommandPath())
		writeCommand(w, sub)
	}

	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		writeFlagsTable(w, cmd.InheritedFlags())
	}
	return w
}

// writeCommand writes the description, usage, options and examples of cmd.
func writeCommand(w *MarkdownWriter, cmd *cobra.Command) {
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	usage := cmd.UseLine()
	if cmd.HasAvailableSubCommands() {
		usage = cmd.CommandPath() + " <subcommand> [options]"
	}
	w.CodeBlock("bash", strings.TrimSuffix(usage, " [flags]"))

	if cmd.HasAvailableLocalFlags() {
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.Example != "" {
		w.CodeBlock("bash", dedent(cmd.Example))
	}
}

// writeFlagsTable lists flags with the setting each one overrides.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		option := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			option = InlineCode("-"+f.Shorthand) + ", " + option
		}
		setting := ""
		if key, ok := cliconfig.FlagKey(f.Name); ok {
			setting = InlineCode(key)
		}
		def := f.DefValue
		if def != "" && def != "false" && def != "[]" && def != "0" {
			def = InlineCode(def)
		} else {
			def = ""
		}
		rows = append(rows, []string{option, def, setting, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Default", "Setting", "Description"}, rows)
}

// dedent strips the indentation shared by every non-blank line.
func dedent(text string) string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

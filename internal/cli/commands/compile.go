package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/tablequery/internal/engine"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/spf13/cobra"
)

// CompileOptions holds options for the compile command.
type CompileOptions struct {
	File  string
	Batch string
	Table string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	opts := &CompileOptions{}
	cmd := &cobra.Command{
		Use:   "compile [sql]",
		Short: "Compile a query into physical SQL",
		Long: `Compile a query over catalog tables into physical SQL, bound parameters
and result metadata.

The query comes from the argument, --file, or stdin. With --batch each
non-empty line of the file is compiled as its own query, concurrently.

Build context compiles the defining query of a materialized view; --table
names that view.`,
		Example: `  # Compile a query
  tablequery compile "select foo from syn123 where bar = 'x'"

  # Page results to fit 1MB per page
  tablequery compile --max-bytes-per-page 1048576 "select * from syn123"

  # Compile a materialized view definition
  tablequery compile --context build --table syn300 "select * from syn1 a join syn2 b on (a.id = b.id)"

  # Compile many queries
  tablequery compile --batch queries.sql -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the query from a file")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "Compile every line of a file")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Materialized view being built (build context)")

	return cmd
}

func runCompile(cmd *cobra.Command, args []string, opts *CompileOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	base, err := compileRequest(cmdCtx, opts.Table)
	if err != nil {
		return err
	}

	if opts.Batch != "" {
		queries, err := readBatch(opts.Batch)
		if err != nil {
			return err
		}
		return compileBatch(cmd, cmdCtx, base, queries)
	}

	sql, err := readQuery(cmd, args, opts.File)
	if err != nil {
		return err
	}
	base.SQL = sql
	q, err := cmdCtx.Engine.Compile(cmd.Context(), base)
	if err != nil {
		return err
	}
	return renderCompiled(cmdCtx.Renderer, q)
}

func compileRequest(cmdCtx *CommandContext, table string) (engine.Request, error) {
	opts, err := translatorOptions(cmdCtx.Cfg)
	if err != nil {
		return engine.Request{}, err
	}
	req := engine.Request{Options: opts}
	if table != "" {
		if req.Table, err = parseTableArg(table); err != nil {
			return engine.Request{}, err
		}
	}
	return req, nil
}

func compileBatch(cmd *cobra.Command, cmdCtx *CommandContext, base engine.Request, queries []string) error {
	reqs := make([]engine.Request, len(queries))
	for i, sql := range queries {
		reqs[i] = base
		reqs[i].SQL = sql
	}

	results, err := cmdCtx.Engine.CompileBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if err := renderBatch(cmdCtx.Renderer, queries, results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed to compile", failed, len(queries))
	}
	return nil
}

// readQuery returns the query from the argument, a file or stdin.
func readQuery(cmd *cobra.Command, args []string, file string) (string, error) {
	var sql string
	switch {
	case len(args) > 0:
		sql = args[0]
	case file != "":
		b, err := os.ReadFile(file) //nolint:gosec // user-provided query file
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		sql = string(b)
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read query from stdin: %w", err)
		}
		sql = string(b)
	}

	sql = strings.TrimSuffix(strings.TrimSpace(sql), ";")
	if sql == "" {
		return "", core.Errorf(core.KindValidation, "A query is required")
	}
	return sql, nil
}

// readBatch returns the non-empty lines of path. Lines starting with -- are
// comments.
func readBatch(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided batch file
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ";")
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return queries, nil
}

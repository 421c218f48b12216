package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/tablequery/internal/cli/output"
	"github.com/leapstack-labs/tablequery/internal/engine"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/spf13/cobra"
)

const (
	replPrompt         = "tablequery> "
	replContinuePrompt = "       ...> "
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "repl",
		Aliases: []string{"shell"},
		Short:   "Compile queries interactively",
		Long: `Start an interactive session that compiles each statement as it is entered.
Statements end with a semicolon and may span several lines.`,
		Args: cobra.NoArgs,
		RunE: runRepl,
	}
}

func runRepl(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	opts, err := translatorOptions(cmdCtx.Cfg)
	if err != nil {
		return err
	}
	session := &replSession{engine: cmdCtx.Engine, renderer: cmdCtx.Renderer, opts: opts}

	var historyFile string
	if cmdCtx.Cfg.StatePath != "" {
		historyFile = filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "repl_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    session.completer(ctx),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	cmdCtx.Renderer.Printf("tablequery (state: %s)\n", cmdCtx.Cfg.StatePath)
	cmdCtx.Renderer.Println("Type .help for commands, .quit to exit")
	cmdCtx.Renderer.Println("")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			session.pending.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if session.handleLine(ctx, line) {
			return nil
		}
		if session.pending.Len() > 0 {
			rl.SetPrompt(replContinuePrompt)
		} else {
			rl.SetPrompt(replPrompt)
		}
	}
}

// replSession is the state of one interactive session.
type replSession struct {
	engine   *engine.Engine
	renderer *output.Renderer
	opts     translator.Options
	// table roots build context compilation.
	table   core.IdAndVersion
	pending strings.Builder
}

// handleLine consumes one input line and reports whether the session ends.
func (s *replSession) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if s.pending.Len() == 0 && strings.HasPrefix(line, ".") {
		return s.handleDotCommand(ctx, line)
	}

	s.pending.WriteString(line)
	if !strings.HasSuffix(line, ";") {
		s.pending.WriteString(" ")
		return false
	}

	sql := strings.TrimSuffix(s.pending.String(), ";")
	s.pending.Reset()

	q, err := s.engine.Compile(ctx, engine.Request{SQL: sql, Options: s.opts, Table: s.table})
	if err != nil {
		s.renderer.Error(err)
		return false
	}
	if err := renderCompiled(s.renderer, q); err != nil {
		s.renderer.Error(err)
	}
	s.renderer.Println("")
	return false
}

func (s *replSession) handleDotCommand(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printReplHelp(s.renderer.Writer())

	case ".tables":
		tables, err := s.engine.Tables(ctx)
		if err != nil {
			s.renderer.Error(err)
			return false
		}
		if err := renderTableList(s.renderer, tables); err != nil {
			s.renderer.Error(err)
		}

	case ".schema":
		if len(parts) < 2 {
			s.renderer.Warning("Usage: .schema <id>")
			return false
		}
		id, err := parseTableArg(parts[1])
		if err != nil {
			s.renderer.Error(err)
			return false
		}
		if err := showTable(ctx, s.engine, s.renderer, id); err != nil {
			s.renderer.Error(err)
		}

	case ".context":
		s.setContext(parts[1:])

	default:
		s.renderer.Warning(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
	}
	return false
}

// setContext handles ".context <query|build> [id]".
func (s *replSession) setContext(args []string) {
	if len(args) == 0 {
		s.renderer.Printf("SQL context: %s\n", s.opts.SqlContext)
		return
	}
	sqlContext, err := core.ParseSqlContext(args[0])
	if err != nil {
		s.renderer.Error(err)
		return
	}

	var table core.IdAndVersion
	if sqlContext == core.SqlContextBuild {
		if len(args) < 2 {
			s.renderer.Warning("Usage: .context build <materialized view id>")
			return
		}
		table, err = parseTableArg(args[1])
		if err != nil {
			s.renderer.Error(err)
			return
		}
	}

	s.opts.SqlContext = sqlContext
	s.table = table
	s.renderer.Printf("SQL context: %s\n", sqlContext)
}

func (s *replSession) completer(ctx context.Context) *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".context", readline.PcItem("query"), readline.PcItem("build")),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	}

	// Completion is best effort.
	tables, err := s.engine.Tables(ctx)
	if err != nil {
		return readline.NewPrefixCompleter(items...)
	}
	schema := make([]readline.PrefixCompleterInterface, len(tables))
	for i, t := range tables {
		schema[i] = readline.PcItem(t.ID.String())
	}
	items = append(items, readline.PcItem(".schema", schema...))
	return readline.NewPrefixCompleter(items...)
}

func printReplHelp(w io.Writer) {
	help := `
Commands:
  .help                     Show this help message
  .tables                   List catalog tables
  .schema <id>              Show a table's schema and dependencies
  .context query            Compile as user queries (the default)
  .context build <id>       Compile as the defining SQL of a materialized view
  .quit / .exit             Exit the REPL

Statements end with a semicolon (;) and may span several lines.
`
	_, _ = fmt.Fprintln(w, help)
}

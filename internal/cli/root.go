// Package cli provides the command-line interface for tablequery.
package cli

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/tablequery/internal/cli/commands"
	"github.com/leapstack-labs/tablequery/internal/cli/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tablequery",
		Short: "tablequery - query translation for virtual tables",
		Long: `tablequery compiles SQL-like queries over virtual tables into physical SQL
against their index tables, with bound parameters and result metadata.

Tables, views and materialized views are described in a catalog that is
kept in a local SQLite state file.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger, err := config.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if used := config.GetConfigFileUsed(); used != "" {
				logger.Debug("using config file", "path", used)
			}
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: tablequery.yaml in the working directory or nearest parent)")
	flags.String("state", "", "Path to the catalog state database (default: "+config.DefaultStateFile+")")
	flags.StringSlice("catalog", nil, "Catalog YAML files to load before running")
	flags.Int64("user-id", 0, "User id bound to CURRENT_USER()")
	flags.Int64("max-bytes-per-page", 0, "Page budget used to derive the row limit")
	flags.String("context", "", "SQL context (query|build)")
	flags.Bool("etag", false, "Include the entity etag column for views")
	flags.Int("concurrency", 0, "Batch compilation workers (default: number of CPUs)")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.Int("max-values", 0, "Maximum value counts per enumeration facet")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("context", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"query", "build"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewCompileCommand())
	rootCmd.AddCommand(commands.NewFacetsCommand())
	rootCmd.AddCommand(commands.NewCatalogCommand())
	rootCmd.AddCommand(commands.NewMviewCommand())
	rootCmd.AddCommand(commands.NewReplCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for tablequery.

To load completions:

Bash:
  $ source <(tablequery completion bash)

Zsh:
  $ tablequery completion zsh > "${fpath[1]}/_tablequery"

Fish:
  $ tablequery completion fish | source

PowerShell:
  PS> tablequery completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}

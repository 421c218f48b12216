package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tablequery/internal/cli/config"
	"github.com/leapstack-labs/tablequery/internal/cli/output"
	intconfig "github.com/leapstack-labs/tablequery/internal/config"
	"github.com/leapstack-labs/tablequery/internal/engine"
	"github.com/leapstack-labs/tablequery/internal/translator"
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// getConfig returns the current configuration, or the defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg := &config.Config{}
	intconfig.ApplyDefaults(cfg)
	return cfg
}

func createEngine(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	eng, err := engine.New(engine.Config{
		StatePath:      cfg.StatePath,
		MaxFacetValues: cfg.Facets.MaxValues,
		Concurrency:    cfg.Concurrency,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	for _, path := range cfg.Catalog {
		if _, err := eng.LoadCatalogFile(cmd.Context(), path); err != nil {
			_ = eng.Close()
			return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
		}
	}
	return eng, nil
}

// translatorOptions builds compile options from the configuration.
func translatorOptions(cfg *config.Config) (translator.Options, error) {
	sqlContext, err := core.ParseSqlContext(cfg.SqlContext)
	if err != nil {
		return translator.Options{}, err
	}
	return translator.Options{
		SqlContext:        sqlContext,
		UserID:            cfg.UserID,
		MaxBytesPerPage:   cfg.PageBudget(),
		IncludeEntityEtag: cfg.IncludeEntityEtag,
	}, nil
}

// parseTableArg parses a table id argument such as syn123 or syn123.4.
func parseTableArg(s string) (core.IdAndVersion, error) {
	id, err := core.ParseIdAndVersion(s)
	if err != nil {
		return core.IdAndVersion{}, core.WrapError(core.KindValidation, err)
	}
	return id, nil
}

// Package config provides the shared configuration types for tablequery.
// It is independent of the CLI so the engine and tests can load settings
// from a project directory on their own.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// FacetsConfig holds facet settings.
type FacetsConfig struct {
	// MaxValues caps the buckets of each value count facet.
	MaxValues int `koanf:"max_values"`
}

// Config holds every tablequery setting.
type Config struct {
	StatePath string `koanf:"state_path"`
	// Catalog lists YAML catalog documents loaded before each command.
	Catalog           []string     `koanf:"catalog"`
	UserID            int64        `koanf:"user_id"`
	MaxBytesPerPage   int64        `koanf:"max_bytes_per_page"` // 0 disables paging
	SqlContext        string       `koanf:"sql_context"`        //nolint:revive // matches core.SqlContext
	IncludeEntityEtag bool         `koanf:"include_entity_etag"`
	Concurrency       int          `koanf:"concurrency"`
	OutputFormat      string       `koanf:"output"`
	LogLevel          string       `koanf:"log_level"`
	Facets            FacetsConfig `koanf:"facets"`
}

// Validate checks that enumerated settings hold known values.
func (c *Config) Validate() error {
	if _, err := core.ParseSqlContext(c.SqlContext); err != nil {
		return err
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (expected auto, text, markdown or json)", c.OutputFormat)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.UserID < 0 {
		return fmt.Errorf("user_id must not be negative")
	}
	if c.MaxBytesPerPage < 0 {
		return fmt.Errorf("max_bytes_per_page must not be negative")
	}
	if c.Facets.MaxValues < 0 {
		return fmt.Errorf("facets.max_values must not be negative")
	}
	return nil
}

// PageBudget returns MaxBytesPerPage as an optional budget.
func (c *Config) PageBudget() *int64 {
	if c.MaxBytesPerPage <= 0 {
		return nil
	}
	return core.Int64Ptr(c.MaxBytesPerPage)
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
// An empty string means warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

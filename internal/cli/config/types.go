// Package config provides configuration management for the tablequery CLI.
//
// The setting types live in internal/config and are re-exported here via a
// type alias so commands only import this package.
package config

import (
	"strings"

	intconfig "github.com/leapstack-labs/tablequery/internal/config"
)

// Config is an alias for the shared configuration.
type Config = intconfig.Config

// FacetsConfig is an alias for the shared facet settings.
type FacetsConfig = intconfig.FacetsConfig

// Default configuration values, re-exported for commands.
const (
	DefaultStateFile = intconfig.DefaultStateFile
	DefaultOutput    = intconfig.DefaultOutput
)

// envPrefix prefixes every environment variable read by LoadConfig.
const envPrefix = "TABLEQUERY_"

// flagKeys maps CLI flag names to config keys. Flags not listed here are
// command options, not settings.
var flagKeys = map[string]string{
	"state":              "state_path",
	"catalog":            "catalog",
	"user-id":            "user_id",
	"max-bytes-per-page": "max_bytes_per_page",
	"context":            "sql_context",
	"etag":               "include_entity_etag",
	"concurrency":        "concurrency",
	"output":             "output",
	"log-level":          "log_level",
	"max-values":         "facets.max_values",
}

// FlagKey returns the config key set by the named flag.
func FlagKey(flag string) (string, bool) {
	key, ok := flagKeys[flag]
	return key, ok
}

// EnvVar returns the environment variable LoadConfig reads for a config key,
// e.g. facets.max_values -> TABLEQUERY_FACETS__MAX_VALUES.
func EnvVar(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

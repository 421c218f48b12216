package config

// Default configuration values.
const (
	DefaultStateFile      = ".tablequery/catalog.db"
	DefaultSqlContext     = "query" //nolint:revive // matches core.SqlContext
	DefaultOutput         = "auto"  // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel       = "warn"
	DefaultMaxFacetValues = 100
)

// Defaults returns the default settings keyed the way koanf sees them.
func Defaults() map[string]any {
	return map[string]any{
		"state_path":          DefaultStateFile,
		"catalog":             []string{},
		"user_id":             0,
		"max_bytes_per_page":  0,
		"sql_context":         DefaultSqlContext,
		"include_entity_etag": false,
		"concurrency":         0,
		"output":              DefaultOutput,
		"log_level":           DefaultLogLevel,
		"facets.max_values":   DefaultMaxFacetValues,
	}
}

// ApplyDefaults fills unset values of c.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStateFile
	}
	if c.SqlContext == "" {
		c.SqlContext = DefaultSqlContext
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutput
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Facets.MaxValues == 0 {
		c.Facets.MaxValues = DefaultMaxFacetValues
	}
}

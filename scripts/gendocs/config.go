package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	intconfig "github.com/leapstack-labs/tablequery/internal/config"
)

// ConfigField describes one key of tablequery.yaml.
type ConfigField struct {
	Key         string
	Type        string
	Flag        string
	Description string
}

// configFields mirrors internal/config.Config.
func configFields() []ConfigField {
	return []ConfigField{
		{Key: "state_path", Type: "string", Flag: "--state", Description: "SQLite file holding the catalog. Relative paths resolve against the config file."},
		{Key: "catalog", Type: "[]string", Flag: "--catalog", Description: "Catalog YAML documents loaded before every command"},
		{Key: "user_id", Type: "int", Flag: "--user-id", Description: "User id bound to CURRENT_USER()"},
		{Key: "max_bytes_per_page", Type: "int", Flag: "--max-bytes-per-page", Description: "Page budget; the row limit is derived from the maximum row size"},
		{Key: "sql_context", Type: "string", Flag: "--context", Description: "query or build"},
		{Key: "include_entity_etag", Type: "bool", Flag: "--etag", Description: "Select ROW_ETAG for view queries"},
		{Key: "concurrency", Type: "int", Flag: "--concurrency", Description: "Batch compilation workers; 0 uses the number of CPUs"},
		{Key: "output", Type: "string", Flag: "--output", Description: "auto, text, markdown or json"},
		{Key: "log_level", Type: "string", Flag: "--log-level", Description: "debug, info, warn or error"},
		{Key: "facets.max_values", Type: "int", Flag: "--max-values", Description: "Maximum value counts per enumeration facet"},
	}
}

// generateConfigDocs writes the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "tablequery configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("tablequery reads `" + intconfig.ConfigFileName + "` from the working directory or its nearest parent, or the file named by `--config`.")

	defaults := intconfig.Defaults()
	headers := []string{"Key", "Type", "Default", "Flag", "Description"}
	var rows [][]string
	for _, f := range configFields() {
		def := "-"
		if v, ok := defaults[f.Key]; ok {
			def = InlineCode(fmt.Sprint(v))
		}
		rows = append(rows, []string{InlineCode(f.Key), f.Type, def, InlineCode(f.Flag), cleanDescription(f.Description)})
	}
	w.Table(headers, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `# tablequery.yaml
state_path: .tablequery/catalog.db
catalog:
  - tables.yaml
user_id: 42
max_bytes_per_page: 1048576
output: text
facets:
  max_values: 50`)

	filename := filepath.Join(outDir, "configuration.md")
	if err := os.WriteFile(filename, w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated configuration.md")
	return nil
}

// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/tablequery/internal/cli/output"
)

// CatalogYAML is a small catalog: a table, an entity view and a
// materialized view joining them.
const CatalogYAML = `tables:
  - id: syn123
    type: table
    columns:
      - {id: "111", name: foo, type: STRING, maxSize: 50, facetType: enumeration}
      - {id: "333", name: bar, type: STRING, maxSize: 50}
      - {id: "888", name: inttype, type: INTEGER, facetType: range}
  - id: syn2
    type: entityview
    columns:
      - {id: "111", name: foo, type: STRING, maxSize: 50}
      - {id: "888", name: inttype, type: INTEGER}
  - id: syn300
    type: materializedview
    definingSql: select a.foo, b.inttype from syn123 a join syn2 b on (a.foo = b.foo)
`

// TestProject is a temporary directory holding a catalog document and the
// path for a state database.
type TestProject struct {
	Dir       string
	Catalog   string
	StatePath string
}

// SetupTestProject writes CatalogYAML into a temporary directory.
func SetupTestProject(t *testing.T) *TestProject {
	t.Helper()

	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	if err := os.WriteFile(catalog, []byte(CatalogYAML), 0600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return &TestProject{
		Dir:       dir,
		Catalog:   catalog,
		StatePath: filepath.Join(dir, "state", "catalog.db"),
	}
}

// WriteFile writes content to name inside the project directory and returns
// its path.
func (p *TestProject) WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(p.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode without colors.
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, false)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}

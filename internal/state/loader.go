package state

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// CatalogDocument is the YAML form of a catalog:
//
//	tables:
//	  - id: syn123
//	    type: table
//	    columns:
//	      - {id: "111", name: foo, type: STRING, maxSize: 50, facetType: enumeration}
//	  - id: syn200
//	    type: materializedview
//	    definingSql: select * from syn123
type CatalogDocument struct {
	Tables []TableDocument `yaml:"tables"`
}

// TableDocument is one table of a CatalogDocument.
type TableDocument struct {
	ID          string           `yaml:"id"`
	Type        string           `yaml:"type"`
	DefiningSQL string           `yaml:"definingSql,omitempty"`
	Columns     []ColumnDocument `yaml:"columns,omitempty"`
}

// ColumnDocument is one column of a TableDocument.
type ColumnDocument struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	MaxSize       *int64 `yaml:"maxSize,omitempty"`
	IsList        bool   `yaml:"isList,omitempty"`
	MaxListLength *int64 `yaml:"maxListLength,omitempty"`
	FacetType     string `yaml:"facetType,omitempty"`
}

// ParseCatalog decodes and validates a catalog document.
func ParseCatalog(r io.Reader) ([]*Table, error) {
	var doc CatalogDocument
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[core.IdAndVersion]bool, len(doc.Tables))
	tables := make([]*Table, 0, len(doc.Tables))
	for i, td := range doc.Tables {
		t, err := td.table()
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("table %d: duplicate table %s", i, t.ID)
		}
		seen[t.ID] = true
		tables = append(tables, t)
	}
	return tables, nil
}

// ParseCatalogFile reads a catalog document from path.
func ParseCatalogFile(path string) ([]*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseCatalog(f)
}

func (td TableDocument) table() (*Table, error) {
	id, err := core.ParseIdAndVersion(td.ID)
	if err != nil {
		return nil, err
	}
	tableType, err := core.ParseTableType(td.Type)
	if err != nil {
		return nil, err
	}
	if tableType == core.TableTypeMaterializedView && td.DefiningSQL == "" {
		return nil, fmt.Errorf("materialized view %s needs definingSql", id)
	}

	t := &Table{ID: id, Type: tableType, DefiningSQL: td.DefiningSQL}
	names := make(map[string]bool, len(td.Columns))
	for _, cd := range td.Columns {
		c, err := cd.column()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		if names[c.Name] {
			return nil, fmt.Errorf("%s: duplicate column %q", id, c.Name)
		}
		names[c.Name] = true
		t.Columns = append(t.Columns, c)
	}
	return t, nil
}

func (cd ColumnDocument) column() (core.ColumnModel, error) {
	if cd.ID == "" || cd.Name == "" {
		return core.ColumnModel{}, fmt.Errorf("column needs an id and a name")
	}
	columnType, err := core.ParseColumnType(cd.Type)
	if err != nil {
		return core.ColumnModel{}, err
	}
	facet, err := core.ParseFacetType(cd.FacetType)
	if err != nil {
		return core.ColumnModel{}, err
	}
	return core.ColumnModel{
		ID:            cd.ID,
		Name:          cd.Name,
		Type:          columnType,
		MaxSize:       cd.MaxSize,
		IsList:        cd.IsList,
		MaxListLength: cd.MaxListLength,
		FacetType:     facet,
	}, nil
}

// LoadTables stores every table. Defining SQL is stored as is; registering
// source tables is left to the caller.
func (s *SQLiteStore) LoadTables(ctx context.Context, tables []*Table) error {
	for _, t := range tables {
		if err := s.PutTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

package core

import "fmt"

// TableType is the kind of virtual table.
type TableType string

// Table types.
const (
	TableTypeTable             TableType = "table"
	TableTypeEntityView        TableType = "entityview"
	TableTypeSubmissionView    TableType = "submissionview"
	TableTypeDataset           TableType = "dataset"
	TableTypeDatasetCollection TableType = "datasetcollection"
	TableTypeMaterializedView  TableType = "materializedview"
)

// ParseTableType parses a table type name.
func ParseTableType(s string) (TableType, error) {
	switch t := TableType(s); t {
	case TableTypeTable, TableTypeEntityView, TableTypeSubmissionView, TableTypeDataset,
		TableTypeDatasetCollection, TableTypeMaterializedView:
		return t, nil
	}
	return "", fmt.Errorf("unknown table type %q", s)
}

// IsView returns true for the view types that carry a benefactor column.
func (t TableType) IsView() bool {
	switch t {
	case TableTypeEntityView, TableTypeSubmissionView, TableTypeDataset, TableTypeDatasetCollection:
		return true
	}
	return false
}

// SqlContext selects the compilation mode.
//
//nolint:revive // SqlContext matches the configuration key sql_context
type SqlContext string

// Compilation modes.
const (
	// SqlContextQuery compiles a user query against a single table.
	SqlContextQuery SqlContext = "query"
	// SqlContextBuild compiles a materialized view's defining query.
	SqlContextBuild SqlContext = "build"
)

// ParseSqlContext parses a compilation mode. An empty string means query.
//
//nolint:revive // see SqlContext
func ParseSqlContext(s string) (SqlContext, error) {
	switch SqlContext(s) {
	case "", SqlContextQuery:
		return SqlContextQuery, nil
	case SqlContextBuild:
		return SqlContextBuild, nil
	}
	return "", fmt.Errorf("unknown sql context %q (expected query or build)", s)
}

package core

import (
	"fmt"
	"strings"
)

// ColumnType is the logical type of a table column.
type ColumnType string

// Column types.
const (
	ColumnTypeString       ColumnType = "STRING"
	ColumnTypeInteger      ColumnType = "INTEGER"
	ColumnTypeDouble       ColumnType = "DOUBLE"
	ColumnTypeDate         ColumnType = "DATE"
	ColumnTypeBoolean      ColumnType = "BOOLEAN"
	ColumnTypeEntityID     ColumnType = "ENTITYID"
	ColumnTypeFileHandleID ColumnType = "FILEHANDLEID"
	ColumnTypeUserID       ColumnType = "USERID"
	ColumnTypeLink         ColumnType = "LINK"
	ColumnTypeMediumText   ColumnType = "MEDIUMTEXT"
	ColumnTypeLargeText    ColumnType = "LARGETEXT"
	ColumnTypeJSON         ColumnType = "JSON"
)

var columnTypes = map[ColumnType]bool{
	ColumnTypeString:       true,
	ColumnTypeInteger:      true,
	ColumnTypeDouble:       true,
	ColumnTypeDate:         true,
	ColumnTypeBoolean:      true,
	ColumnTypeEntityID:     true,
	ColumnTypeFileHandleID: true,
	ColumnTypeUserID:       true,
	ColumnTypeLink:         true,
	ColumnTypeMediumText:   true,
	ColumnTypeLargeText:    true,
	ColumnTypeJSON:         true,
}

// ParseColumnType parses a case-insensitive column type name.
func ParseColumnType(s string) (ColumnType, error) {
	t := ColumnType(strings.ToUpper(strings.TrimSpace(s)))
	if !columnTypes[t] {
		return "", fmt.Errorf("unknown column type %q", s)
	}
	return t, nil
}

// IsNumeric is true for types stored as integers or doubles.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case ColumnTypeInteger, ColumnTypeDouble, ColumnTypeDate, ColumnTypeEntityID,
		ColumnTypeFileHandleID, ColumnTypeUserID:
		return true
	}
	return false
}

// IsText is true for types stored as character data.
func (t ColumnType) IsText() bool {
	switch t {
	case ColumnTypeString, ColumnTypeLink, ColumnTypeMediumText, ColumnTypeLargeText, ColumnTypeJSON:
		return true
	}
	return false
}

// FacetType describes how a column may be faceted.
type FacetType string

// Facet types.
const (
	FacetEnumeration FacetType = "enumeration"
	FacetRange       FacetType = "range"
)

// ParseFacetType parses a facet type name. An empty string yields nil.
func ParseFacetType(s string) (*FacetType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case string(FacetEnumeration):
		ft := FacetEnumeration
		return &ft, nil
	case string(FacetRange):
		ft := FacetRange
		return &ft, nil
	}
	return nil, fmt.Errorf("unknown facet type %q", s)
}

// ColumnModel is the metadata of one column of a virtual table.
// The ID is the physical identifier used to build _C<id>_ column names.
type ColumnModel struct {
	ID            string
	Name          string
	Type          ColumnType
	MaxSize       *int64
	IsList        bool
	MaxListLength *int64
	FacetType     *FacetType
}

// IsFaceted returns true if the column carries a facet type.
func (c ColumnModel) IsFaceted() bool {
	return c.FacetType != nil
}

// SelectColumn describes one column of a query result.
type SelectColumn struct {
	Name string
	Type ColumnType
	ID   string // set only when the column maps directly onto a schema column
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}

package core

import "strings"

// ---------- Table Reference Types ----------

// TableName represents a table reference such as syn123.4 AS a.
type TableName struct {
	NodeInfo
	Name  string // as written, e.g. "syn123.4"
	ID    IdAndVersion
	Alias string
}

// JoinType is the kind of join between two table references.
type JoinType string

// Join type values.
const (
	JoinPlain JoinType = ""
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
)

// Join represents one JOIN step in a FROM clause.
type Join struct {
	NodeInfo
	Type  JoinType
	Outer bool // LEFT OUTER / RIGHT OUTER
	Right *TableName
	On    Expr
}

// Keyword renders the join keywords as written, e.g. LEFT OUTER JOIN.
func (j *Join) Keyword() string {
	var parts []string
	if j.Type != JoinPlain {
		parts = append(parts, string(j.Type))
	}
	if j.Outer {
		parts = append(parts, "OUTER")
	}
	return strings.Join(append(parts, "JOIN"), " ")
}

// FromClause represents the FROM clause: a source table and zero or more joins.
type FromClause struct {
	NodeInfo
	Source *TableName
	Joins  []*Join
}

// Tables returns every table reference in appearance order.
func (f *FromClause) Tables() []*TableName {
	if f == nil || f.Source == nil {
		return nil
	}
	tables := []*TableName{f.Source}
	for _, j := range f.Joins {
		tables = append(tables, j.Right)
	}
	return tables
}

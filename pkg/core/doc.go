// Package core defines the shared language of the tablequery system.
//
// This package contains:
//   - The query AST produced by pkg/parser (QuerySpecification, Expr nodes)
//   - The table model (ColumnModel, ColumnType, FacetType, IdAndVersion, TableType)
//   - The IndexDescription sum type describing a virtual table and its dependencies
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core

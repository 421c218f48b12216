package facet

// NullValueKeyword stands for unset values, both in requests and in value
// count results.
const NullValueKeyword = "__UNDEFINED_NULL_NOTSET__"

// Request is a caller's filter on one faceted column.
type Request interface {
	ColumnName() string
}

// ValuesRequest selects rows whose column holds one of Values.
type ValuesRequest struct {
	Column string
	Values []string
}

// ColumnName implements Request.
func (r ValuesRequest) ColumnName() string { return r.Column }

// RangeRequest selects rows whose column lies within [Min, Max]. Either bound
// may be empty.
type RangeRequest struct {
	Column string
	Min    string
	Max    string
}

// ColumnName implements Request.
func (r RangeRequest) ColumnName() string { return r.Column }

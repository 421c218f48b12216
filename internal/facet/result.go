package facet

import (
	"github.com/leapstack-labs/tablequery/pkg/core"
)

// RowSet is the result of running a facet query, supplied by the caller.
// A nil value is SQL NULL.
type RowSet struct {
	Headers []core.SelectColumn
	Rows    [][]*string
}

// ValueCount is one enumeration bucket.
type ValueCount struct {
	Value      string `json:"value"`
	IsSelected bool   `json:"isSelected"`
	Count      int64  `json:"count"`
}

// Result is the facet summary of one column. Values is set for enumeration
// facets, the bounds for range facets.
type Result struct {
	ColumnName  string         `json:"columnName"`
	FacetType   core.FacetType `json:"facetType"`
	Values      []ValueCount   `json:"facetValues,omitempty"`
	ColumnMin   *string        `json:"columnMin,omitempty"`
	ColumnMax   *string        `json:"columnMax,omitempty"`
	SelectedMin *string        `json:"selectedMin,omitempty"`
	SelectedMax *string        `json:"selectedMax,omitempty"`
}

func checkHeaders(rs *RowSet, want ...string) error {
	if rs == nil {
		return core.Errorf(core.KindMalformedResultShape, "A row set is required")
	}
	ok := len(rs.Headers) == len(want)
	for i := 0; ok && i < len(want); i++ {
		ok = rs.Headers[i].Name == want[i]
	}
	if !ok {
		names := make([]string, len(rs.Headers))
		for i, h := range rs.Headers {
			names[i] = h.Name
		}
		return core.Errorf(core.KindMalformedResultShape,
			"The row set's headers did not contain the expected column names: %v", names)
	}
	return nil
}

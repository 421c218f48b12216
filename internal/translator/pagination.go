package translator

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/tablequery/pkg/core"
)

// Size accounting defaults.
const (
	DefaultMaxStringSize int64 = 50
	DefaultMaxListLength int64 = 100

	maxBytesPerChar    = 4
	maxBytesInteger    = 20
	maxBytesDouble     = 23
	maxBytesBoolean    = 5
	maxBytesLargeText  = 64 * 1024
	maxBytesUnknownCol = maxBytesInteger
)

// MaxColumnSizeBytes returns the largest encoded size of one value of c.
func MaxColumnSizeBytes(c core.ColumnModel) int64 {
	var size int64
	switch c.Type {
	case core.ColumnTypeString, core.ColumnTypeLink, core.ColumnTypeJSON:
		maxSize := DefaultMaxStringSize
		if c.MaxSize != nil {
			maxSize = *c.MaxSize
		}
		size = maxSize * maxBytesPerChar
	case core.ColumnTypeInteger, core.ColumnTypeDate, core.ColumnTypeEntityID,
		core.ColumnTypeFileHandleID, core.ColumnTypeUserID:
		size = maxBytesInteger
	case core.ColumnTypeDouble:
		size = maxBytesDouble
	case core.ColumnTypeBoolean:
		size = maxBytesBoolean
	case core.ColumnTypeMediumText, core.ColumnTypeLargeText:
		size = maxBytesLargeText
	default:
		size = maxBytesUnknownCol
	}
	if c.IsList {
		maxLength := DefaultMaxListLength
		if c.MaxListLength != nil {
			maxLength = *c.MaxListLength
		}
		size *= maxLength
	}
	return size
}

// MaxRowSizeBytes sums the maximum sizes of columns.
func MaxRowSizeBytes(columns []core.ColumnModel) int64 {
	var total int64
	for _, c := range columns {
		total += MaxColumnSizeBytes(c)
	}
	return total
}

// maxRowsPerPage is the number of rows of rowSize that fit in budget, at
// least one. A nil budget yields nil.
func maxRowsPerPage(budget *int64, rowSize int64) *int64 {
	if budget == nil {
		return nil
	}
	if rowSize < 1 {
		rowSize = 1
	}
	rows := *budget / rowSize
	if rows < 1 {
		rows = 1
	}
	return &rows
}

// writePagination renders LIMIT/OFFSET. With a page size the limit is capped
// to it and the offset defaults to zero.
func (tc *TranslationContext) writePagination(sb *strings.Builder, q *core.QuerySpecification, pageSize *int64) error {
	var limit, offset *int64
	if q.Limit != nil {
		v, err := paginationValue(q.Limit, "LIMIT")
		if err != nil {
			return err
		}
		limit = &v
	}
	if q.Offset != nil {
		v, err := paginationValue(q.Offset, "OFFSET")
		if err != nil {
			return err
		}
		offset = &v
	}

	if pageSize != nil {
		page := *pageSize
		if limit == nil || *limit > page {
			limit = &page
		}
		if offset == nil {
			zero := int64(0)
			offset = &zero
		}
	}

	if limit != nil {
		sb.WriteString(" LIMIT ")
		sb.WriteString(tc.bind(*limit))
	}
	if offset != nil {
		sb.WriteString(" OFFSET ")
		sb.WriteString(tc.bind(*offset))
	}
	return nil
}

func paginationValue(e core.Expr, clause string) (int64, error) {
	lit, ok := e.(*core.Literal)
	if ok && lit.Type == core.LiteralNumber {
		if v, err := strconv.ParseInt(lit.Value, 10, 64); err == nil {
			return v, nil
		}
	}
	return 0, core.Errorf(core.KindValidation, "%s must be a non-negative integer", clause)
}

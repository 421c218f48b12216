package translator

import (
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
)

var dateLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
	"2006-01-02",
}

// inlineLiteral renders a literal that is not bound.
func inlineLiteral(lit *core.Literal, negative bool) string {
	switch lit.Type {
	case core.LiteralString:
		return parser.QuoteString(lit.Value)
	case core.LiteralBool:
		return strings.ToUpper(lit.Value)
	case core.LiteralNull:
		return "NULL"
	}
	if negative {
		return "-" + lit.Value
	}
	return lit.Value
}

// literalValue converts a literal to the value bound for it. The type of the
// column on the other side of the comparison, when known, decides the Go type.
func literalValue(lit *core.Literal, negative bool, hint *core.ColumnModel) (any, error) {
	text := lit.Value
	if negative {
		text = "-" + text
	}
	if hint == nil {
		return naturalValue(lit, text)
	}

	switch hint.Type {
	case core.ColumnTypeString, core.ColumnTypeLink, core.ColumnTypeJSON,
		core.ColumnTypeMediumText, core.ColumnTypeLargeText:
		if lit.Type == core.LiteralNumber {
			return canonicalNumber(text), nil
		}
		return text, nil
	case core.ColumnTypeDouble:
		return parseDouble(text)
	case core.ColumnTypeInteger, core.ColumnTypeFileHandleID, core.ColumnTypeUserID:
		return parseInteger(text, hint.Type)
	case core.ColumnTypeEntityID:
		lower := strings.ToLower(text)
		return parseInteger(strings.TrimPrefix(lower, "syn"), hint.Type)
	case core.ColumnTypeDate:
		if lit.Type == core.LiteralString {
			if ms, ok := parseDate(text); ok {
				return ms, nil
			}
		}
		return parseInteger(text, hint.Type)
	case core.ColumnTypeBoolean:
		b, err := strconv.ParseBool(strings.ToLower(text))
		if err != nil {
			return nil, conversionError(text, hint.Type)
		}
		return b, nil
	}
	return naturalValue(lit, text)
}

// naturalValue types a literal by its own syntax.
func naturalValue(lit *core.Literal, text string) (any, error) {
	switch lit.Type {
	case core.LiteralNumber:
		if isIntegerText(text) {
			return strconv.ParseInt(text, 10, 64)
		}
		return strconv.ParseFloat(text, 64)
	case core.LiteralBool:
		return lit.Value == "true", nil
	}
	return text, nil
}

// canonicalNumber renders a numeric literal compared against a text column.
// Approximate numbers get the form 18900.0.
func canonicalNumber(text string) string {
	if isIntegerText(text) {
		return text
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// parseDouble accepts NaN and Infinity spellings as well as plain numbers.
func parseDouble(text string) (float64, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, conversionError(text, core.ColumnTypeDouble)
	}
	return f, nil
}

func parseInteger(text string, typ core.ColumnType) (int64, error) {
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n, nil
	}
	// 1.0e3 is still an integer value
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, conversionError(text, typ)
	}
	return int64(f), nil
}

// parseDate converts a date string to epoch milliseconds in UTC.
func parseDate(text string) (int64, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func isIntegerText(text string) bool {
	s := strings.TrimPrefix(text, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func conversionError(text string, typ core.ColumnType) error {
	return core.Errorf(core.KindValidation, "Cannot convert value '%s' to %s", text, typ)
}

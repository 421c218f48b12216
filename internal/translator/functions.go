package translator

import "github.com/leapstack-labs/tablequery/pkg/core"

// returnKind describes how a function's result type is derived.
type returnKind int

const (
	returnString returnKind = iota
	returnInteger
	returnDouble
	returnDate
	returnBoolean
	returnUserID
	returnFirstArg
	returnSum
)

type function struct {
	aggregate bool
	returns   returnKind
}

// Functions with a rewrite of their own.
const (
	funcCurrentUser = "CURRENT_USER"
	funcTextMatches = "TEXT_MATCHES"
	funcIsNaN       = "ISNAN"
	funcIsInfinity  = "ISINFINITY"
	funcUnnest      = "UNNEST"
)

var functions = map[string]function{
	// aggregates
	"COUNT":        {aggregate: true, returns: returnInteger},
	"SUM":          {aggregate: true, returns: returnSum},
	"AVG":          {aggregate: true, returns: returnDouble},
	"MIN":          {aggregate: true, returns: returnFirstArg},
	"MAX":          {aggregate: true, returns: returnFirstArg},
	"GROUP_CONCAT": {aggregate: true, returns: returnString},
	"STD":          {aggregate: true, returns: returnDouble},
	"STDDEV":       {aggregate: true, returns: returnDouble},
	"STDDEV_POP":   {aggregate: true, returns: returnDouble},
	"STDDEV_SAMP":  {aggregate: true, returns: returnDouble},
	"VARIANCE":     {aggregate: true, returns: returnDouble},
	"VAR_POP":      {aggregate: true, returns: returnDouble},
	"VAR_SAMP":     {aggregate: true, returns: returnDouble},
	"BIT_AND":      {aggregate: true, returns: returnInteger},
	"BIT_OR":       {aggregate: true, returns: returnInteger},
	"BIT_XOR":      {aggregate: true, returns: returnInteger},

	// string
	"CONCAT":        {returns: returnString},
	"CONCAT_WS":     {returns: returnString},
	"UPPER":         {returns: returnString},
	"UCASE":         {returns: returnString},
	"LOWER":         {returns: returnString},
	"LCASE":         {returns: returnString},
	"TRIM":          {returns: returnString},
	"LTRIM":         {returns: returnString},
	"RTRIM":         {returns: returnString},
	"SUBSTRING":     {returns: returnString},
	"SUBSTR":        {returns: returnString},
	"REPLACE":       {returns: returnString},
	"REVERSE":       {returns: returnString},
	"LPAD":          {returns: returnString},
	"RPAD":          {returns: returnString},
	"DATE_FORMAT":   {returns: returnString},
	"FROM_UNIXTIME": {returns: returnString},
	"CHAR_LENGTH":   {returns: returnInteger},
	"LENGTH":        {returns: returnInteger},

	// date
	"NOW":            {returns: returnDate},
	"UNIX_TIMESTAMP": {returns: returnInteger},
	"DAYOFMONTH":     {returns: returnInteger},
	"DAYOFWEEK":      {returns: returnInteger},
	"DAYOFYEAR":      {returns: returnInteger},
	"WEEKOFYEAR":     {returns: returnInteger},
	"YEAR":           {returns: returnInteger},
	"MONTH":          {returns: returnInteger},
	"MONTHNAME":      {returns: returnString},
	"DAYNAME":        {returns: returnString},
	"QUARTER":        {returns: returnInteger},
	"HOUR":           {returns: returnInteger},
	"MINUTE":         {returns: returnInteger},
	"SECOND":         {returns: returnInteger},

	// math
	"ABS":      {returns: returnFirstArg},
	"ROUND":    {returns: returnFirstArg},
	"CEIL":     {returns: returnInteger},
	"CEILING":  {returns: returnInteger},
	"FLOOR":    {returns: returnInteger},
	"SIGN":     {returns: returnInteger},
	"MOD":      {returns: returnInteger},
	"SQRT":     {returns: returnDouble},
	"EXP":      {returns: returnDouble},
	"LN":       {returns: returnDouble},
	"LOG":      {returns: returnDouble},
	"POW":      {returns: returnDouble},
	"POWER":    {returns: returnDouble},
	"PI":       {returns: returnDouble},
	"TRUNCATE": {returns: returnDouble},

	// control flow
	"IFNULL":   {returns: returnFirstArg},
	"COALESCE": {returns: returnFirstArg},

	// rewritten
	funcCurrentUser: {returns: returnUserID},
	funcTextMatches: {returns: returnBoolean},
	funcIsNaN:       {returns: returnBoolean},
	funcIsInfinity:  {returns: returnBoolean},
	funcUnnest:      {returns: returnFirstArg},
}

func lookupFunction(name string) (function, bool) {
	f, ok := functions[name]
	return f, ok
}

// IsAggregateFunction reports whether name is an aggregate function.
func IsAggregateFunction(name string) bool {
	f, ok := functions[name]
	return ok && f.aggregate
}

func containsAggregate(e core.Expr) bool {
	return core.Any(e, func(n core.Expr) bool {
		f, ok := n.(*core.FuncCall)
		return ok && IsAggregateFunction(f.Name)
	})
}

// isAggregated classifies a query. Row identity is lost once rows are
// grouped, made distinct or aggregated.
func isAggregated(q *core.QuerySpecification) bool {
	if q.Distinct || len(q.GroupBy) > 0 {
		return true
	}
	for _, item := range q.SelectList {
		if containsAggregate(item.Expr) {
			return true
		}
	}
	return containsAggregate(q.Having)
}

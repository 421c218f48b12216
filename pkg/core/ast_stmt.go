package core

// ---------- Statement Types ----------

// QuerySpecification is a single SELECT query over one or more virtual tables.
type QuerySpecification struct {
	NodeInfo
	Distinct   bool
	SelectList []*SelectItem
	From       *FromClause
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	OrderBy    []*OrderByItem
	Limit      Expr
	Offset     Expr
}

// SelectItem represents one entry of the select list.
type SelectItem struct {
	Expr        Expr
	Alias       string
	AliasQuoted bool
}

// IsStar returns true for * or table.* items.
func (s *SelectItem) IsStar() bool {
	_, ok := s.Expr.(*StarExpr)
	return ok
}

// OrderDirection is the explicit direction of an ORDER BY item.
type OrderDirection string

// Order directions. OrderDefault means none was written.
const (
	OrderDefault OrderDirection = ""
	OrderAsc     OrderDirection = "ASC"
	OrderDesc    OrderDirection = "DESC"
)

// OrderByItem represents an ORDER BY item.
type OrderByItem struct {
	Expr      Expr
	Direction OrderDirection
}

// Tables returns the table references of the query in FROM order.
func (q *QuerySpecification) Tables() []*TableName {
	return q.From.Tables()
}

// HasJoin returns true if the FROM clause contains at least one join.
func (q *QuerySpecification) HasJoin() bool {
	return q.From != nil && len(q.From.Joins) > 0
}

package core

import "github.com/leapstack-labs/tablequery/pkg/token"

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	NodeInfo
	Table  string // optional table/alias qualifier
	Column string
	Quoted bool // written as "name" or `name`
}

func (*ColumnRef) exprNode() {}

// Qualified returns the reference as written, alias first when present.
func (c *ColumnRef) Qualified() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// Literal represents a literal value.
type Literal struct {
	NodeInfo
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for SQL literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
)

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression (NOT, -, +).
type UnaryExpr struct {
	NodeInfo
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	NodeInfo
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// FuncCall represents a function call. Name is upper-cased by the parser.
type FuncCall struct {
	NodeInfo
	Name     string
	Distinct bool
	Args     []Expr
	Star     bool // COUNT(*)
}

func (*FuncCall) exprNode() {}

// InExpr represents an IN list expression.
type InExpr struct {
	NodeInfo
	Expr   Expr
	Not    bool
	Values []Expr
}

func (*InExpr) exprNode() {}

// HasExpr represents a list-column membership test: col HAS (v1, v2).
type HasExpr struct {
	NodeInfo
	Expr   Expr
	Not    bool
	Values []Expr
}

func (*HasExpr) exprNode() {}

// BetweenExpr represents a BETWEEN expression.
type BetweenExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsNullExpr represents IS [NOT] NULL.
type IsNullExpr struct {
	NodeInfo
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// IsBoolExpr represents IS [NOT] TRUE/FALSE.
type IsBoolExpr struct {
	NodeInfo
	Expr  Expr
	Not   bool
	Value bool
}

func (*IsBoolExpr) exprNode() {}

// LikeExpr represents [NOT] LIKE with an optional ESCAPE.
type LikeExpr struct {
	NodeInfo
	Expr    Expr
	Not     bool
	Pattern Expr
	Escape  Expr
}

func (*LikeExpr) exprNode() {}

// StarExpr represents * or table.* in a select list.
type StarExpr struct {
	NodeInfo
	Table string
}

func (*StarExpr) exprNode() {}

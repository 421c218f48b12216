package translator

import (
	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/token"
)

// inferType derives the result type of a select expression.
func (tc *TranslationContext) inferType(e core.Expr) core.ColumnType {
	switch e := e.(type) {
	case *core.ColumnRef:
		if _, col, err := tc.resolve(e); err == nil {
			return col.Type
		}
		return core.ColumnTypeString
	case *core.Literal:
		return literalType(e)
	case *core.ParenExpr:
		return tc.inferType(e.Expr)
	case *core.UnaryExpr:
		if e.Op == token.NOT {
			return core.ColumnTypeBoolean
		}
		return tc.inferType(e.Expr)
	case *core.BinaryExpr:
		if token.IsComparison(e.Op) || e.Op == token.AND || e.Op == token.OR {
			return core.ColumnTypeBoolean
		}
		return arithmeticType(e.Op, tc.inferType(e.Left), tc.inferType(e.Right))
	case *core.FuncCall:
		return tc.functionType(e)
	}
	return core.ColumnTypeBoolean
}

func (tc *TranslationContext) functionType(f *core.FuncCall) core.ColumnType {
	fn, ok := lookupFunction(f.Name)
	if !ok {
		return core.ColumnTypeString
	}
	switch fn.returns {
	case returnInteger:
		return core.ColumnTypeInteger
	case returnDouble:
		return core.ColumnTypeDouble
	case returnDate:
		return core.ColumnTypeDate
	case returnBoolean:
		return core.ColumnTypeBoolean
	case returnUserID:
		return core.ColumnTypeUserID
	case returnFirstArg:
		if len(f.Args) > 0 {
			return tc.inferType(f.Args[0])
		}
		return core.ColumnTypeString
	case returnSum:
		if len(f.Args) > 0 && isIntegral(tc.inferType(f.Args[0])) {
			return core.ColumnTypeInteger
		}
		return core.ColumnTypeDouble
	}
	return core.ColumnTypeString
}

func literalType(lit *core.Literal) core.ColumnType {
	switch lit.Type {
	case core.LiteralNumber:
		if isIntegerText(lit.Value) {
			return core.ColumnTypeInteger
		}
		return core.ColumnTypeDouble
	case core.LiteralBool:
		return core.ColumnTypeBoolean
	}
	return core.ColumnTypeString
}

func arithmeticType(op token.TokenType, left, right core.ColumnType) core.ColumnType {
	switch op {
	case token.SLASH:
		return core.ColumnTypeDouble
	case token.DIV:
		return core.ColumnTypeInteger
	}
	if isIntegral(left) && isIntegral(right) {
		return core.ColumnTypeInteger
	}
	return core.ColumnTypeDouble
}

// isIntegral is true for types stored as whole numbers.
func isIntegral(t core.ColumnType) bool {
	switch t {
	case core.ColumnTypeInteger, core.ColumnTypeDate, core.ColumnTypeEntityID,
		core.ColumnTypeFileHandleID, core.ColumnTypeUserID:
		return true
	}
	return false
}

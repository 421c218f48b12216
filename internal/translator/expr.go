package translator

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tablequery/pkg/core"
	"github.com/leapstack-labs/tablequery/pkg/parser"
	"github.com/leapstack-labs/tablequery/pkg/token"
)

// textHint types LIKE patterns as text whatever the column type.
var textHint = &core.ColumnModel{Type: core.ColumnTypeString}

// writeExpr renders e as physical SQL. hint is the column the expression is
// compared against, used to type bound literals.
func (tc *TranslationContext) writeExpr(sb *strings.Builder, e core.Expr, hint *core.ColumnModel) error {
	switch e := e.(type) {
	case *core.ColumnRef:
		return tc.writeColumnRef(sb, e)

	case *core.Literal:
		return tc.writeLiteral(sb, e, false, hint)

	case *core.UnaryExpr:
		if lit, ok := e.Expr.(*core.Literal); ok && e.Op == token.MINUS && lit.Type == core.LiteralNumber {
			return tc.writeLiteral(sb, lit, true, hint)
		}
		if e.Op == token.NOT {
			sb.WriteString("NOT ")
		} else {
			sb.WriteString(e.Op.String())
		}
		return tc.writeExpr(sb, e.Expr, hint)

	case *core.BinaryExpr:
		var leftHint, rightHint *core.ColumnModel
		if token.IsComparison(e.Op) {
			leftHint, rightHint = tc.columnHint(e.Right), tc.columnHint(e.Left)
		}
		if err := tc.writeExpr(sb, e.Left, leftHint); err != nil {
			return err
		}
		sb.WriteString(parser.BinaryOperator(e.Op))
		return tc.writeExpr(sb, e.Right, rightHint)

	case *core.ParenExpr:
		sb.WriteString("( ")
		if err := tc.writeExpr(sb, e.Expr, hint); err != nil {
			return err
		}
		sb.WriteString(" )")
		return nil

	case *core.FuncCall:
		return tc.writeFunc(sb, e)

	case *core.InExpr:
		if err := tc.writeExpr(sb, e.Expr, nil); err != nil {
			return err
		}
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN ( ")
		if err := tc.writeList(sb, e.Values, tc.columnHint(e.Expr)); err != nil {
			return err
		}
		sb.WriteString(" )")
		return nil

	case *core.HasExpr:
		return tc.writeHas(sb, e)

	case *core.BetweenExpr:
		h := tc.columnHint(e.Expr)
		if err := tc.writeExpr(sb, e.Expr, nil); err != nil {
			return err
		}
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" BETWEEN ")
		if err := tc.writeExpr(sb, e.Low, h); err != nil {
			return err
		}
		sb.WriteString(" AND ")
		return tc.writeExpr(sb, e.High, h)

	case *core.IsNullExpr:
		if err := tc.writeExpr(sb, e.Expr, nil); err != nil {
			return err
		}
		if e.Not {
			sb.WriteString(" IS NOT NULL")
		} else {
			sb.WriteString(" IS NULL")
		}
		return nil

	case *core.IsBoolExpr:
		if err := tc.writeExpr(sb, e.Expr, nil); err != nil {
			return err
		}
		sb.WriteString(" IS ")
		if e.Not {
			sb.WriteString("NOT ")
		}
		if e.Value {
			sb.WriteString("TRUE")
		} else {
			sb.WriteString("FALSE")
		}
		return nil

	case *core.LikeExpr:
		if err := tc.writeExpr(sb, e.Expr, nil); err != nil {
			return err
		}
		if e.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" LIKE ")
		if err := tc.writeExpr(sb, e.Pattern, textHint); err != nil {
			return err
		}
		if e.Escape != nil {
			sb.WriteString(" ESCAPE ")
			return tc.writeExpr(sb, e.Escape, textHint)
		}
		return nil

	case *core.StarExpr:
		return core.Errorf(core.KindValidation, "* is only allowed in the select list or COUNT(*)")
	}
	return core.Errorf(core.KindValidation, "unsupported expression %T", e)
}

func (tc *TranslationContext) writeList(sb *strings.Builder, exprs []core.Expr, hint *core.ColumnModel) error {
	for i, e := range exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := tc.writeExpr(sb, e, hint); err != nil {
			return err
		}
	}
	return nil
}

func (tc *TranslationContext) writeColumnRef(sb *strings.Builder, ref *core.ColumnRef) error {
	if tc.clause.aliasable() && ref.Table == "" {
		if item, ok := tc.selectAliases[ref.Column]; ok {
			sb.WriteString(aliasSQL(item))
			return nil
		}
	}
	t, col, err := tc.resolve(ref)
	if err != nil {
		return err
	}
	tc.writeColumn(sb, t, col)
	return nil
}

// writeColumn renders a resolved column. A double selected outside an
// aggregate reads its shadow column first so NaN and Infinity survive.
func (tc *TranslationContext) writeColumn(sb *strings.Builder, t *tableRef, col core.ColumnModel) {
	prefix := tc.prefix(t)
	physical := prefix + PhysicalColumnName(col)
	if hasShadow(col) && tc.clause == clauseSelect && tc.aggDepth == 0 && !tc.opts.isBuild() {
		shadow := prefix + ShadowColumnName(col)
		fmt.Fprintf(sb, "CASE WHEN %s IS NULL THEN %s ELSE %s END", shadow, physical, shadow)
		return
	}
	sb.WriteString(physical)
}

func (tc *TranslationContext) writeLiteral(sb *strings.Builder, lit *core.Literal, negative bool, hint *core.ColumnModel) error {
	if lit.Type == core.LiteralNull || !tc.binding() {
		sb.WriteString(inlineLiteral(lit, negative))
		return nil
	}
	value, err := literalValue(lit, negative, hint)
	if err != nil {
		return err
	}
	sb.WriteString(tc.bind(value))
	return nil
}

func (tc *TranslationContext) writeFunc(sb *strings.Builder, f *core.FuncCall) error {
	switch f.Name {
	case funcCurrentUser:
		if tc.clause.predicate() && tc.aggDepth == 0 {
			sb.WriteString(tc.bind(tc.opts.UserID))
		} else {
			sb.WriteString("1")
		}
		return nil

	case funcTextMatches:
		if len(f.Args) != 1 {
			return core.Errorf(core.KindValidation, "TEXT_MATCHES expects exactly one argument")
		}
		lit, ok := f.Args[0].(*core.Literal)
		if !ok || lit.Type != core.LiteralString {
			return core.Errorf(core.KindValidation, "TEXT_MATCHES expects a string literal")
		}
		tc.includesSearch = true
		fmt.Fprintf(sb, "MATCH(%s) AGAINST(%s)", SearchContentColumn, tc.bind(lit.Value))
		return nil

	case funcIsNaN, funcIsInfinity:
		t, col, err := tc.columnArg(f, func(c core.ColumnModel) bool { return hasShadow(c) }, "a DOUBLE column")
		if err != nil {
			return err
		}
		shadow := tc.prefix(t) + ShadowColumnName(col)
		if f.Name == funcIsNaN {
			fmt.Fprintf(sb, "( %s IS NOT NULL AND %s = 'NaN' )", shadow, shadow)
		} else {
			fmt.Fprintf(sb, "( %s IS NOT NULL AND %s IN ( '-Infinity', 'Infinity' ) )", shadow, shadow)
		}
		return nil

	case funcUnnest:
		t, col, err := tc.columnArg(f, func(c core.ColumnModel) bool { return c.IsList }, "a list column")
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "UNNEST(%s%s)", tc.prefix(t), PhysicalColumnName(col))
		return nil
	}

	fn, ok := lookupFunction(f.Name)
	if !ok {
		return core.Errorf(core.KindValidation, "Unknown function: %s", f.Name)
	}

	tc.funcDepth++
	if fn.aggregate {
		tc.aggDepth++
	}
	defer func() {
		tc.funcDepth--
		if fn.aggregate {
			tc.aggDepth--
		}
	}()

	sb.WriteString(f.Name)
	sb.WriteString("(")
	if f.Star {
		sb.WriteString("*")
	} else {
		if f.Distinct {
			sb.WriteString("DISTINCT ")
		}
		if err := tc.writeList(sb, f.Args, nil); err != nil {
			return err
		}
	}
	sb.WriteString(")")
	return nil
}

// columnArg resolves the single column argument of a rewritten function.
func (tc *TranslationContext) columnArg(f *core.FuncCall, accept func(core.ColumnModel) bool, want string) (*tableRef, core.ColumnModel, error) {
	if len(f.Args) != 1 {
		return nil, core.ColumnModel{}, core.Errorf(core.KindValidation, "%s expects exactly one argument", f.Name)
	}
	ref, ok := f.Args[0].(*core.ColumnRef)
	if !ok {
		return nil, core.ColumnModel{}, core.Errorf(core.KindValidation, "%s expects %s", f.Name, want)
	}
	t, col, err := tc.resolve(ref)
	if err != nil {
		return nil, core.ColumnModel{}, err
	}
	if !accept(col) {
		return nil, core.ColumnModel{}, core.Errorf(core.KindValidation, "%s expects %s: %s", f.Name, want, ref.Qualified())
	}
	return t, col, nil
}

// writeHas renders a list membership filter. Values are typed by the list
// element type.
func (tc *TranslationContext) writeHas(sb *strings.Builder, e *core.HasExpr) error {
	ref, ok := e.Expr.(*core.ColumnRef)
	if !ok {
		return core.Errorf(core.KindValidation, "HAS expects a list column")
	}
	t, col, err := tc.resolve(ref)
	if err != nil {
		return err
	}
	if !col.IsList {
		return core.Errorf(core.KindValidation, "HAS expects a list column: %s", ref.Qualified())
	}
	element := col
	element.IsList = false

	if e.Not {
		sb.WriteString("NOT ")
	}
	fmt.Fprintf(sb, "JSON_OVERLAPS(%s%s, JSON_ARRAY(", tc.prefix(t), PhysicalColumnName(col))
	if err := tc.writeList(sb, e.Values, &element); err != nil {
		return err
	}
	sb.WriteString("))")
	return nil
}

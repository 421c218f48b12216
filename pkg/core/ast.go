package core

import "github.com/leapstack-labs/tablequery/pkg/token"

// Node is the base interface for all AST nodes.
type Node interface {
	// Pos returns the position of the first character of the node.
	Pos() token.Position
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode() // Marker method to distinguish expressions
}

// NodeInfo carries the source position shared by every node.
type NodeInfo struct {
	Start token.Position
}

// Pos implements Node.
func (n NodeInfo) Pos() token.Position { return n.Start }

// Walk traverses an expression tree depth-first, calling fn for each node.
// If fn returns false the children of that node are skipped.
func Walk(expr Expr, fn func(Expr) bool) {
	if expr == nil || !fn(expr) {
		return
	}

	switch e := expr.(type) {
	case *BinaryExpr:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case *UnaryExpr:
		Walk(e.Expr, fn)
	case *ParenExpr:
		Walk(e.Expr, fn)
	case *FuncCall:
		for _, arg := range e.Args {
			Walk(arg, fn)
		}
	case *InExpr:
		Walk(e.Expr, fn)
		for _, v := range e.Values {
			Walk(v, fn)
		}
	case *HasExpr:
		Walk(e.Expr, fn)
		for _, v := range e.Values {
			Walk(v, fn)
		}
	case *BetweenExpr:
		Walk(e.Expr, fn)
		Walk(e.Low, fn)
		Walk(e.High, fn)
	case *IsNullExpr:
		Walk(e.Expr, fn)
	case *IsBoolExpr:
		Walk(e.Expr, fn)
	case *LikeExpr:
		Walk(e.Expr, fn)
		Walk(e.Pattern, fn)
		Walk(e.Escape, fn)
	}
}

// Any reports whether fn returns true for any node in the tree.
func Any(expr Expr, fn func(Expr) bool) bool {
	found := false
	Walk(expr, func(e Expr) bool {
		if found {
			return false
		}
		if fn(e) {
			found = true
			return false
		}
		return true
	})
	return found
}

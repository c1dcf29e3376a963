// Package egglog provides a typed Go front end to the egglog
// equality-saturation engine. Sorts, constructors, functions, and
// rewrite/inference rules are declared through a Registry, expressions are
// built as immutable trees without any engine interaction, and the
// accumulated program is driven through the external engine by an Engine
// adapter.
package egglog

import (
	"strconv"
	"strings"
)

// Names of the builtin sorts pre-registered in every Registry. They back the
// primitive literal values; all other sorts are declared by the application.
const (
	SortInt    = "i64"
	SortString = "String"
	SortUnit   = "Unit"
)

// ExprKind discriminates the three expression node shapes.
type ExprKind int

const (
	// ExprLit is a builtin literal (i64, String, or Unit).
	ExprLit ExprKind = iota
	// ExprVar is a named leaf: a pattern variable inside a rule/rewrite,
	// or a reference to a defined constant.
	ExprVar
	// ExprCall applies a declared constructor or function to arguments.
	ExprCall
)

var exprKindNames = map[ExprKind]string{
	ExprLit:  "lit",
	ExprVar:  "var",
	ExprCall: "call",
}

func (k ExprKind) String() string {
	if s, ok := exprKindNames[k]; ok {
		return s
	}
	return "ExprKind(" + strconv.Itoa(int(k)) + ")"
}

// Expr is an immutable symbolic expression tree. Every node carries its
// resolved sort so rule compilation can validate statically. Expr values are
// plain values: they may be shared and compared structurally, and never
// touch the engine.
type Expr struct {
	kind ExprKind
	sort string
	sym  string // call target or variable name
	i    int64
	s    string
	args []Expr
}

// IntVal creates an i64 literal expression.
func IntVal(v int64) Expr {
	return Expr{kind: ExprLit, sort: SortInt, i: v}
}

// StringVal creates a String literal expression.
func StringVal(s string) Expr {
	return Expr{kind: ExprLit, sort: SortString, s: s}
}

// UnitVal creates the unit literal expression.
func UnitVal() Expr {
	return Expr{kind: ExprLit, sort: SortUnit}
}

// Kind returns the node shape.
func (e Expr) Kind() ExprKind { return e.kind }

// Sort returns the resolved sort name of the expression.
func (e Expr) Sort() string { return e.sort }

// Sym returns the call target for ExprCall nodes and the variable name for
// ExprVar nodes. It is empty for literals.
func (e Expr) Sym() string { return e.sym }

// Int returns the literal value of an i64 literal node.
func (e Expr) Int() int64 { return e.i }

// Str returns the literal value of a String literal node.
func (e Expr) Str() string { return e.s }

// NumChildren returns the number of argument expressions.
func (e Expr) NumChildren() int { return len(e.args) }

// Child returns the i-th argument expression.
func (e Expr) Child(i int) Expr { return e.args[i] }

// Children returns the argument expressions. The returned slice must not be
// mutated.
func (e Expr) Children() []Expr { return e.args }

// Equal reports structural equality: same node shape, same symbol or literal
// value, and pairwise-equal children. It is independent of any engine
// identity or construction order.
func (e Expr) Equal(o Expr) bool {
	if e.kind != o.kind || e.sort != o.sort {
		return false
	}
	switch e.kind {
	case ExprLit:
		if e.i != o.i || e.s != o.s {
			return false
		}
	case ExprVar:
		if e.sym != o.sym {
			return false
		}
	case ExprCall:
		if e.sym != o.sym || len(e.args) != len(o.args) {
			return false
		}
		for i := range e.args {
			if !e.args[i].Equal(o.args[i]) {
				return false
			}
		}
	}
	return true
}

// Walk visits the expression tree in pre-order. Returning false from fn
// skips the children of the current node.
func (e Expr) Walk(fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	for _, a := range e.args {
		a.Walk(fn)
	}
}

// Vars returns the names of all ExprVar leaves in first-occurrence order.
// Defined-constant references are ExprVar nodes too; the Registry filters
// them when collecting pattern variables.
func (e Expr) Vars() []string {
	var names []string
	seen := map[string]bool{}
	e.Walk(func(n Expr) bool {
		if n.kind == ExprVar && !seen[n.sym] {
			seen[n.sym] = true
			names = append(names, n.sym)
		}
		return true
	})
	return names
}

// String returns the expression in the engine's textual form.
func (e Expr) String() string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

// Package expr evaluates the logical and arithmetic expressions used by
// update events, expression variables and calculated object properties.
// Expressions reference variables as %:NAME:% (must resolve) or
// %:?NAME:% (may stay unresolved).
package expr

import (
	"fmt"
	"strings"
)

//go:generate stringer -type=exprType
type exprType int

// the following types let the parser express what it parsed from the input
const (
	etNumber exprType = iota // any number, possibly with a unit suffix, parsed as float64
	etString                 // anything that was between '' or ""
	etBool                   // true or false
	etVar                    // a %:NAME:% or %:?NAME:% reference
	etFunc                   // a builtin call like round(x, 2)
	etUnary                  // !x, -x, +x
	etBinary                 // x op y
)

// expr represents a parsed expression
type expr struct {
	etype    exprType
	float    float64 // for etNumber
	str      string  // for etString, etVar (variable name), etFunc (func name), etUnary and etBinary (operator)
	bool     bool    // for etBool
	tolerant bool    // for etVar: %:?NAME:%
	args     []*expr // for etFunc: call args. for etUnary: operand. for etBinary: left and right
}

func (e expr) Print(indent int) string {
	space := strings.Repeat(" ", indent)
	switch e.etype {
	case etNumber:
		return fmt.Sprintf("%sexpr-number %v", space, e.float)
	case etString:
		return fmt.Sprintf("%sexpr-string %q", space, e.str)
	case etBool:
		return fmt.Sprintf("%sexpr-bool %t", space, e.bool)
	case etVar:
		if e.tolerant {
			return fmt.Sprintf("%sexpr-var %%:?%s:%%", space, e.str)
		}
		return fmt.Sprintf("%sexpr-var %%:%s:%%", space, e.str)
	case etFunc:
		var args string
		for _, a := range e.args {
			args += a.Print(indent+2) + ",\n"
		}
		return fmt.Sprintf("%sexpr-func %s(\n%s%s)", space, e.str, args, space)
	case etUnary:
		return fmt.Sprintf("%sexpr-unary %s\n%s", space, e.str, e.args[0].Print(indent+2))
	case etBinary:
		return fmt.Sprintf("%sexpr-binary %s\n%s\n%s", space, e.str, e.args[0].Print(indent+2), e.args[1].Print(indent+2))
	}
	return "HUH-SHOULD-NEVER-HAPPEN"
}

// Expr is a compiled expression, safe for concurrent use.
type Expr struct {
	text string
	root *expr
}

func (x *Expr) String() string {
	return x.text
}

// Vars lists the variable references of the expression, in order of appearance.
func (x *Expr) Vars() []Ref {
	var refs []Ref
	var walk func(e *expr)
	walk = func(e *expr) {
		if e.etype == etVar {
			refs = append(refs, Ref{Name: e.str, Tolerant: e.tolerant})
		}
		for _, a := range e.args {
			walk(a)
		}
	}
	walk(x.root)
	return refs
}

package expr

import (
	"math"
	"strings"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	lru "github.com/hashicorp/golang-lru"
)

// Getter resolves a variable that an expression references.
// A nil value with a nil error means the variable exists but has no data.
type Getter func(name string) (interface{}, error)

var compiled *lru.Cache

func init() {
	compiled, _ = lru.New(4096)
}

// Compile parses text, reusing a previous parse of the same text.
// Parse failures are returned as ExpressionError.
func Compile(text string) (*Expr, error) {
	if x, ok := compiled.Get(text); ok {
		return x.(*Expr), nil
	}
	x, err := Parse(text)
	if err != nil {
		return nil, errors.Wrap(errors.ExpressionError, err, "%q", text)
	}
	compiled.Add(text, x)
	return x, nil
}

// Eval compiles and evaluates text.
func Eval(text string, get Getter) (interface{}, error) {
	x, err := Compile(text)
	if err != nil {
		return nil, err
	}
	return x.Eval(get)
}

// Eval evaluates the expression. Variables are requested through get
// only when evaluation reaches them, so "a || b" never resolves b when a is true.
func (x *Expr) Eval(get Getter) (interface{}, error) {
	v, err := x.root.eval(get)
	if err != nil {
		if errors.KindOf(err) == errors.KindUnknown {
			err = errors.Wrap(errors.ExpressionError, err, "%q", x.text)
		}
		return nil, err
	}
	return v, nil
}

func (e *expr) eval(get Getter) (interface{}, error) {
	switch e.etype {
	case etNumber:
		return e.float, nil
	case etString:
		return e.str, nil
	case etBool:
		return e.bool, nil
	case etVar:
		return e.evalVar(get)
	case etUnary:
		return e.evalUnary(get)
	case etBinary:
		return e.evalBinary(get)
	case etFunc:
		return e.evalFunc(get)
	}
	return nil, errors.New(errors.ExpressionError, "unknown node type %d", e.etype)
}

func (e *expr) evalVar(get Getter) (interface{}, error) {
	var v interface{}
	var err error
	if get != nil {
		v, err = get(e.str)
	} else {
		err = errors.ErrUnknownVariable
	}
	if err != nil {
		// a cycle must surface even through a tolerant reference
		if errors.Is(err, errors.ErrDepthExceeded) {
			return nil, err
		}
		if e.tolerant {
			return nil, nil
		}
		return nil, errors.Wrap(errors.UnresolvedReference, err, "").WithVariable(e.str)
	}
	if v == nil && !e.tolerant {
		return nil, errors.New(errors.UnresolvedReference, "no data").WithVariable(e.str)
	}
	return v, nil
}

func (e *expr) evalUnary(get Getter) (interface{}, error) {
	v, err := e.args[0].eval(get)
	if err != nil {
		return nil, err
	}
	switch e.str {
	case "!":
		return !ToBool(v), nil
	case "-":
		f, err := number(v, e.str)
		if err != nil {
			return nil, err
		}
		return -f, nil
	}
	return number(v, e.str)
}

func (e *expr) evalBinary(get Getter) (interface{}, error) {
	left, err := e.args[0].eval(get)
	if err != nil {
		return nil, err
	}
	switch e.str {
	case "||":
		if ToBool(left) {
			return true, nil
		}
		right, err := e.args[1].eval(get)
		if err != nil {
			return nil, err
		}
		return ToBool(right), nil
	case "&&":
		if !ToBool(left) {
			return false, nil
		}
		right, err := e.args[1].eval(get)
		if err != nil {
			return nil, err
		}
		return ToBool(right), nil
	}

	right, err := e.args[1].eval(get)
	if err != nil {
		return nil, err
	}
	switch e.str {
	case "==", "!=", "<", "<=", ">", ">=":
		return compare(e.str, left, right), nil
	case "+":
		l, lok := schema.ToFloat(left)
		r, rok := schema.ToFloat(right)
		if lok && rok {
			return l + r, nil
		}
		return schema.ToString(left) + schema.ToString(right), nil
	}

	l, err := number(left, e.str)
	if err != nil {
		return nil, err
	}
	r, err := number(right, e.str)
	if err != nil {
		return nil, err
	}
	switch e.str {
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return nil, errors.New(errors.ExpressionError, "division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return nil, errors.New(errors.ExpressionError, "modulo by zero")
		}
		return math.Mod(l, r), nil
	}
	return nil, errors.New(errors.ExpressionError, "unknown operator %q", e.str)
}

// compare compares numerically when both sides are numbers, as text otherwise.
func compare(op string, left, right interface{}) bool {
	var c int
	l, lok := schema.ToFloat(left)
	r, rok := schema.ToFloat(right)
	if lok && rok {
		switch {
		case l < r:
			c = -1
		case l > r:
			c = 1
		}
	} else {
		c = strings.Compare(schema.ToString(left), schema.ToString(right))
	}
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	}
	return c >= 0
}

func number(v interface{}, op string) (float64, error) {
	f, ok := schema.ToFloat(v)
	if !ok {
		return 0, errors.New(errors.ExpressionError, "operator %q needs a number, got %q", op, schema.ToString(v))
	}
	return f, nil
}

// ToBool coerces a value to a boolean: nil, zero, NaN, "", "0" and "false"
// are false, everything else is true.
func ToBool(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "false") {
			return false
		}
		if f, ok := schema.ToFloat(s); ok {
			return f != 0
		}
		return true
	}
	if f, ok := schema.ToFloat(v); ok {
		return f != 0
	}
	return true
}

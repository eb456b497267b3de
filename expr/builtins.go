package expr

import (
	"math"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
)

type builtin struct {
	minArgs int
	maxArgs int // -1 means variadic
	fn      func(args []interface{}) (interface{}, error)
}

var builtins = map[string]builtin{
	"abs":      {1, 1, unaryMath(math.Abs)},
	"floor":    {1, 1, unaryMath(math.Floor)},
	"ceil":     {1, 1, unaryMath(math.Ceil)},
	"round":    {1, 2, round},
	"min":      {1, -1, fold(math.Min)},
	"max":      {1, -1, fold(math.Max)},
	"isnumber": {1, 1, isNumber},
}

func (e *expr) evalFunc(get Getter) (interface{}, error) {
	b := builtins[e.str]
	if len(e.args) < b.minArgs || (b.maxArgs >= 0 && len(e.args) > b.maxArgs) {
		return nil, errors.New(errors.ExpressionError, "%s: wrong number of arguments: %d", e.str, len(e.args))
	}
	args := make([]interface{}, len(e.args))
	for i, a := range e.args {
		v, err := a.eval(get)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return b.fn(args)
}

func unaryMath(f func(float64) float64) func([]interface{}) (interface{}, error) {
	return func(args []interface{}) (interface{}, error) {
		v, err := number(args[0], "function")
		if err != nil {
			return nil, err
		}
		return f(v), nil
	}
}

func fold(f func(a, b float64) float64) func([]interface{}) (interface{}, error) {
	return func(args []interface{}) (interface{}, error) {
		out, err := number(args[0], "function")
		if err != nil {
			return nil, err
		}
		for _, a := range args[1:] {
			v, err := number(a, "function")
			if err != nil {
				return nil, err
			}
			out = f(out, v)
		}
		return out, nil
	}
}

// round(x) rounds to an integer, round(x, n) to n decimals.
func round(args []interface{}) (interface{}, error) {
	v, err := number(args[0], "round")
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return math.Round(v), nil
	}
	n, err := number(args[1], "round")
	if err != nil {
		return nil, err
	}
	p := math.Pow(10, math.Trunc(n))
	return math.Round(v*p) / p, nil
}

func isNumber(args []interface{}) (interface{}, error) {
	_, ok := schema.ToFloat(args[0])
	return ok, nil
}

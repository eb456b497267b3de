package collector

import (
	"context"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/expr"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

func init() {
	Register("calc", func() Collector { return Calc{} })
}

// Calc evaluates the "expression" parameter against the variables of the
// counter. Counters computing a value from other counters use it.
type Calc struct{}

func (Calc) Get(ctx context.Context, params msg.Resolution) (interface{}, error) {
	text := schema.ToString(params.Parameters["expression"])
	if text == "" {
		return nil, errors.New(errors.ExpressionError, "calc: empty expression")
	}
	get := func(name string) (interface{}, error) {
		key := schema.VarKey(name)
		for k, v := range params.Variables {
			if schema.VarKey(k) == key {
				return v, nil
			}
		}
		return nil, errors.ErrUnknownVariable
	}
	return expr.Eval(text, get)
}

func (Calc) RemoveCounters(ctx context.Context, ocids []schema.OCID) error {
	return nil
}

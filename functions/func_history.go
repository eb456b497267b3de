package functions

import (
	"context"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// FuncHistory hands the records of the window on unchanged
type FuncHistory struct {
	period string
	shift  string
}

func NewHistory() Func {
	return &FuncHistory{}
}

func (s *FuncHistory) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
	}
}

func (s *FuncHistory) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantPassThrough)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return noData(records), nil
	}
	return data(records, records), nil
}

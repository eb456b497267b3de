package functions

import (
	"context"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// FuncLast returns the newest value of the window
type FuncLast struct {
	period string
	shift  string
	first  bool
}

func NewLast() Func {
	return &FuncLast{period: "#1"}
}

func (s *FuncLast) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, true),
		argShift(&s.shift),
	}
}

func (s *FuncLast) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantNumeric)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return noData(records), nil
	}
	if s.first {
		return data(records[0].Data, records), nil
	}
	return data(records[len(records)-1].Data, records), nil
}

// NewFirst returns the oldest value of the window
func NewFirst() Func {
	return &FuncLast{period: "#1", first: true}
}

package functions

import (
	"context"

	"github.com/alepiz/counterprocessor/batch"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// FuncStat reduces the numeric values of the window with a batch function
type FuncStat struct {
	period string
	shift  string
	fn     batch.AggFunc
}

func NewAvg() Func {
	return &FuncStat{fn: batch.Avg}
}

func NewMin() Func {
	return &FuncStat{fn: batch.Min}
}

func NewMax() Func {
	return &FuncStat{fn: batch.Max}
}

func NewSum() Func {
	return &FuncStat{fn: batch.Sum}
}

func NewMedian() Func {
	return &FuncStat{fn: batch.Med}
}

func NewDelta() Func {
	return &FuncStat{fn: batch.Range}
}

func (s *FuncStat) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
	}
}

func (s *FuncStat) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantNumeric)
	if err != nil {
		return Result{}, err
	}
	points := schema.Points(records)
	if len(points) == 0 {
		return noData(records), nil
	}
	return data(s.fn(points), records), nil
}

package functions

import (
	"context"

	"github.com/alepiz/counterprocessor/batch"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

func regression(ctx context.Context, env *Env, id schema.OCID, period, shift string) ([]schema.Record, batch.Line, bool, error) {
	records, err := fetch(ctx, env, id, period, shift, msg.WantNumeric)
	if err != nil {
		return nil, batch.Line{}, false, err
	}
	line, ok := batch.LinearRegression(schema.Points(records))
	return records, line, ok, nil
}

// FuncForecast extrapolates the least squares line through the window
type FuncForecast struct {
	period string
	shift  string
	time   float64
}

func NewForecast() Func {
	return &FuncForecast{}
}

func (s *FuncForecast) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
		ArgFloat{key: "time", opt: true, desc: "how far from now to forecast, in ms or with a unit like 1h. defaults to 0", val: &s.time},
	}
}

func (s *FuncForecast) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, line, ok, err := regression(ctx, env, id, s.period, s.shift)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return noData(records), nil
	}
	return data(line.At(env.nowMs()+int64(s.time)), records), nil
}

// FuncTimeLeft yields the ms until the least squares line through the
// window reaches the threshold. 0 if it was reached already.
type FuncTimeLeft struct {
	period    string
	shift     string
	threshold float64
}

func NewTimeLeft() Func {
	return &FuncTimeLeft{}
}

func (s *FuncTimeLeft) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
		ArgFloat{key: "threshold", desc: "value the line has to reach", val: &s.threshold},
	}
}

func (s *FuncTimeLeft) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, line, ok, err := regression(ctx, env, id, s.period, s.shift)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return noData(records), nil
	}
	when, ok := line.When(s.threshold)
	if !ok {
		return noData(records), nil
	}
	left := when - env.nowMs()
	if left < 0 {
		left = 0
	}
	return data(float64(left), records), nil
}

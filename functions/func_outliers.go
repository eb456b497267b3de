package functions

import (
	"context"
	"strings"

	"github.com/alepiz/counterprocessor/batch"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// functions built on Tukey's fences and percentile trimming

func robustArgs(period, shift *string) []Arg {
	return []Arg{
		argPeriod(period, false),
		argShift(shift),
	}
}

func fences(ctx context.Context, env *Env, id schema.OCID, period, shift string) ([]schema.Record, []schema.Point, batch.Fences, bool, error) {
	records, err := fetch(ctx, env, id, period, shift, msg.WantNumeric)
	if err != nil {
		return nil, nil, batch.Fences{}, false, err
	}
	points := schema.Points(records)
	f, ok := batch.TukeyFences(points)
	return records, points, f, ok, nil
}

// FuncOutliersBrd yields the lower or upper border of Tukey's fences
type FuncOutliersBrd struct {
	period string
	shift  string
	border string
}

func NewOutliersBrd() Func {
	return &FuncOutliersBrd{border: "max"}
}

func (s *FuncOutliersBrd) Signature() []Arg {
	return append(robustArgs(&s.period, &s.shift),
		ArgString{key: "border", opt: true, desc: "min for Q1-1.5*IQR, max for Q3+1.5*IQR. defaults to max", validator: []Validator{IsBorder}, val: &s.border},
	)
}

func (s *FuncOutliersBrd) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, _, f, ok, err := fences(ctx, env, id, s.period, s.shift)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return noData(records), nil
	}
	if strings.EqualFold(s.border, "min") {
		return data(f.Min, records), nil
	}
	return data(f.Max, records), nil
}

// FuncLastRob yields the newest value inside Tukey's fences
type FuncLastRob struct {
	period string
	shift  string
}

func NewLastRob() Func {
	return &FuncLastRob{}
}

func (s *FuncLastRob) Signature() []Arg {
	return robustArgs(&s.period, &s.shift)
}

func (s *FuncLastRob) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, points, f, ok, err := fences(ctx, env, id, s.period, s.shift)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return noData(records), nil
	}
	for i := len(points) - 1; i >= 0; i-- {
		if f.Inside(points[i].Val) {
			return data(points[i].Val, records), nil
		}
	}
	return noData(records), nil
}

// FuncAvgTF averages the values inside Tukey's fences
type FuncAvgTF struct {
	period string
	shift  string
}

func NewAvgTF() Func {
	return &FuncAvgTF{}
}

func (s *FuncAvgTF) Signature() []Arg {
	return robustArgs(&s.period, &s.shift)
}

func (s *FuncAvgTF) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, points, f, ok, err := fences(ctx, env, id, s.period, s.shift)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return noData(records), nil
	}
	inside := points[:0:0]
	for _, p := range points {
		if f.Inside(p.Val) {
			inside = append(inside, p)
		}
	}
	if len(inside) == 0 {
		return noData(records), nil
	}
	return data(batch.Avg(inside), records), nil
}

// FuncAvgMed averages the values between two symmetric percentiles
type FuncAvgMed struct {
	period  string
	shift   string
	percent float64
}

func NewAvgMed() Func {
	return &FuncAvgMed{percent: 25}
}

func (s *FuncAvgMed) Signature() []Arg {
	return append(robustArgs(&s.period, &s.shift),
		ArgFloat{key: "percent", opt: true, desc: "share of the sorted values to drop from each end, in percent. defaults to 25", validator: []Validator{Percent}, val: &s.percent},
	)
}

func (s *FuncAvgMed) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantNumeric)
	if err != nil {
		return Result{}, err
	}
	sorted := batch.Sorted(schema.Points(records))
	if len(sorted) == 0 {
		return noData(records), nil
	}
	p := s.percent / 100
	lo := batch.Quantile(sorted, p)
	hi := batch.Quantile(sorted, 1-p)
	var sum, n float64
	for _, v := range sorted {
		if v >= lo && v <= hi {
			sum += v
			n++
		}
	}
	if n == 0 {
		return data(batch.Quantile(sorted, 0.5), records), nil
	}
	return data(sum/n, records), nil
}

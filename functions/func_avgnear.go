package functions

import (
	"context"
	"math"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// FuncAvgNear finds the largest group of values lying within tolerance of
// one of them and averages that group. Of equally large groups the one
// whose center is nearest to the newest value wins, then the newer center.
type FuncAvgNear struct {
	period    string
	shift     string
	tolerance float64
}

func NewAvgNear() Func {
	return &FuncAvgNear{}
}

func (s *FuncAvgNear) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
		ArgFloat{key: "tolerance", opt: true, desc: "maximum distance of a value from the group center. defaults to 0", validator: []Validator{NonNegative}, val: &s.tolerance},
	}
}

func (s *FuncAvgNear) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantNumeric)
	if err != nil {
		return Result{}, err
	}
	points := schema.Points(records)
	if len(points) == 0 {
		return noData(records), nil
	}
	return data(nearAvg(points, s.tolerance), records), nil
}

func nearAvg(points []schema.Point, tolerance float64) float64 {
	newest := points[len(points)-1].Val
	bestSize := 0
	bestDist := math.Inf(1)
	var bestAvg float64
	// iterate newest first so that on a complete tie the newer center wins
	for i := len(points) - 1; i >= 0; i-- {
		center := points[i].Val
		var sum float64
		size := 0
		for _, p := range points {
			if math.Abs(p.Val-center) <= tolerance {
				sum += p.Val
				size++
			}
		}
		dist := math.Abs(center - newest)
		if size > bestSize || (size == bestSize && dist < bestDist) {
			bestSize = size
			bestDist = dist
			bestAvg = sum / float64(size)
		}
	}
	return bestAvg
}

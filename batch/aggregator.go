// Package batch implements batched processing for slices of points
// in particular aggregations
package batch

import (
	"math"
	"sort"

	"github.com/alepiz/counterprocessor/schema"
)

type AggFunc func(in []schema.Point) float64

func Avg(in []schema.Point) float64 {
	valid := float64(0)
	sum := float64(0)
	for _, term := range in {
		if !math.IsNaN(term.Val) {
			valid += 1
			sum += term.Val
		}
	}
	if valid == 0 {
		return math.NaN()
	}
	return sum / valid
}

func Min(in []schema.Point) float64 {
	valid := false
	min := math.Inf(1)
	for _, v := range in {
		if !math.IsNaN(v.Val) {
			valid = true
			if v.Val < min {
				min = v.Val
			}
		}
	}
	if !valid {
		min = math.NaN()
	}
	return min
}

func Max(in []schema.Point) float64 {
	valid := false
	max := math.Inf(-1)
	for _, v := range in {
		if !math.IsNaN(v.Val) {
			valid = true
			if v.Val > max {
				max = v.Val
			}
		}
	}
	if !valid {
		max = math.NaN()
	}
	return max
}

func Med(in []schema.Point) float64 {
	vals := Sorted(in)
	if len(vals) == 0 {
		return math.NaN()
	}
	mid := len(vals) / 2
	if len(vals)%2 == 0 {
		return (vals[mid-1] + vals[mid]) / 2
	}
	return vals[mid]
}

func Range(in []schema.Point) float64 {
	valid := false
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range in {
		if !math.IsNaN(v.Val) {
			valid = true
			if v.Val < min {
				min = v.Val
			}
			if v.Val > max {
				max = v.Val
			}
		}
	}
	if !valid {
		return math.NaN()
	}
	return max - min
}

func Sum(in []schema.Point) float64 {
	valid := false
	sum := float64(0)
	for _, term := range in {
		if !math.IsNaN(term.Val) {
			valid = true
			sum += term.Val
		}
	}
	if !valid {
		sum = math.NaN()
	}
	return sum
}

// Sorted returns the non-NaN values of in, ascending.
func Sorted(in []schema.Point) []float64 {
	vals := make([]float64, 0, len(in))
	for _, p := range in {
		if !math.IsNaN(p.Val) {
			vals = append(vals, p.Val)
		}
	}
	sort.Float64s(vals)
	return vals
}

// Quantile returns the p-quantile (0 <= p <= 1) of an ascending slice,
// interpolating linearly between the two values around position p*(n-1).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

// Fences are Tukey's fences of a sample set.
type Fences struct {
	Q1, Q3   float64
	Min, Max float64 // borders; values outside are outliers
}

// Inside reports whether v lies within the borders.
func (f Fences) Inside(v float64) bool {
	return v >= f.Min && v <= f.Max
}

// TukeyFences computes the quartiles and the borders Q1-1.5*IQR and Q3+1.5*IQR.
func TukeyFences(in []schema.Point) (Fences, bool) {
	vals := Sorted(in)
	if len(vals) == 0 {
		return Fences{}, false
	}
	q1 := Quantile(vals, 0.25)
	q3 := Quantile(vals, 0.75)
	iqr := q3 - q1
	return Fences{
		Q1:  q1,
		Q3:  q3,
		Min: q1 - 1.5*iqr,
		Max: q3 + 1.5*iqr,
	}, true
}

// Line is a fitted straight line val = Slope*(ts-Origin) + Intercept.
type Line struct {
	Slope     float64 // per millisecond
	Intercept float64
	Origin    int64
}

// At evaluates the line at timestamp ts.
func (l Line) At(ts int64) float64 {
	return l.Slope*float64(ts-l.Origin) + l.Intercept
}

// When returns the timestamp at which the line reaches val.
// It returns false for a horizontal line.
func (l Line) When(val float64) (int64, bool) {
	if l.Slope == 0 {
		return 0, false
	}
	return l.Origin + int64(math.Round((val-l.Intercept)/l.Slope)), true
}

// LinearRegression fits a line through the points with ordinary least squares.
// Timestamps are taken relative to the first point to keep the sums small.
func LinearRegression(in []schema.Point) (Line, bool) {
	var n, sumX, sumY float64
	var origin int64
	first := true
	for _, p := range in {
		if math.IsNaN(p.Val) {
			continue
		}
		if first {
			origin = p.Ts
			first = false
		}
		n++
		sumX += float64(p.Ts - origin)
		sumY += p.Val
	}
	if n < 2 {
		return Line{}, false
	}
	meanX := sumX / n
	meanY := sumY / n
	var sxx, sxy float64
	for _, p := range in {
		if math.IsNaN(p.Val) {
			continue
		}
		dx := float64(p.Ts-origin) - meanX
		sxx += dx * dx
		sxy += dx * (p.Val - meanY)
	}
	if sxx == 0 {
		return Line{}, false
	}
	slope := sxy / sxx
	return Line{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
		Origin:    origin,
	}, true
}

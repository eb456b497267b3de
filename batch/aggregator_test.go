package batch

import (
	"math"
	"testing"

	"github.com/alepiz/counterprocessor/schema"
)

func points(vals ...float64) []schema.Point {
	out := make([]schema.Point, len(vals))
	for i, v := range vals {
		out[i] = schema.Point{Ts: int64(i) * 1000, Val: v}
	}
	return out
}

func TestSimpleAggregations(t *testing.T) {
	in := points(3, math.NaN(), 1, 4, 1, 5)
	cases := []struct {
		name string
		fn   AggFunc
		exp  float64
	}{
		{"avg", Avg, 2.8},
		{"min", Min, 1},
		{"max", Max, 5},
		{"med", Med, 3},
		{"range", Range, 4},
		{"sum", Sum, 14},
	}
	for _, c := range cases {
		if got := c.fn(in); math.Abs(got-c.exp) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", c.name, c.exp, got)
		}
		if got := c.fn(nil); !math.IsNaN(got) {
			t.Errorf("%s on empty input: expected NaN, got %v", c.name, got)
		}
	}
}

func TestTukeyFencesWorkedExample(t *testing.T) {
	in := points(71, 70, 73, 70, 69, 70, 72, 71, 300, 71, 69)
	f, ok := TukeyFences(in)
	if !ok {
		t.Fatal("expected fences")
	}
	if f.Q1 != 70 || f.Q3 != 71.5 || f.Min != 67.75 || f.Max != 73.75 {
		t.Fatalf("unexpected fences %+v", f)
	}
	if f.Inside(300) || !f.Inside(73) {
		t.Fatalf("unexpected classification for %+v", f)
	}
}

func TestQuantile(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	cases := map[float64]float64{0: 1, 1: 4, 0.5: 2.5, 0.25: 1.75}
	for p, exp := range cases {
		if got := Quantile(vals, p); got != exp {
			t.Errorf("Quantile(%v): expected %v, got %v", p, exp, got)
		}
	}
	if got := Quantile([]float64{7}, 0.9); got != 7 {
		t.Errorf("single value quantile: expected 7, got %v", got)
	}
}

func TestLinearRegression(t *testing.T) {
	// val = 2 per second, starting at 10
	in := []schema.Point{{Ts: 1000, Val: 10}, {Ts: 2000, Val: 12}, {Ts: 3000, Val: 14}, {Ts: 4000, Val: 16}}
	l, ok := LinearRegression(in)
	if !ok {
		t.Fatal("expected a line")
	}
	if got := l.At(6000); math.Abs(got-20) > 1e-9 {
		t.Errorf("At(6000): expected 20, got %v", got)
	}
	ts, ok := l.When(30)
	if !ok || ts != 11000 {
		t.Errorf("When(30): expected 11000, got %d (%t)", ts, ok)
	}
	if _, ok := LinearRegression(in[:1]); ok {
		t.Error("expected no line for a single point")
	}
	flat := []schema.Point{{Ts: 1000, Val: 5}, {Ts: 2000, Val: 5}}
	l, _ = LinearRegression(flat)
	if _, ok := l.When(6); ok {
		t.Error("expected a horizontal line to never reach another value")
	}
}

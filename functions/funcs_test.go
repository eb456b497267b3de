package functions

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/history"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

// 2020-01-01T00:00:00Z
const now = int64(1577836800000)

func nowTime() time.Time {
	return time.Unix(0, now*int64(time.Millisecond))
}

// newEnv returns an env over a memory store holding vals for binding 1,
// one record per second, the newest at now.
func newEnv(vals ...interface{}) (*Env, *history.MemoryStore) {
	store := history.NewMemoryStore()
	for i, v := range vals {
		store.Add(1, schema.Record{Timestamp: now - int64(len(vals)-1-i)*1000, Data: v})
	}
	a := history.NewAccessor(store)
	a.Now = nowTime
	env := NewEnv(a)
	env.Now = nowTime
	env.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return env, store
}

func floats(vals ...float64) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func call(t *testing.T, env *Env, name string, args ...interface{}) Result {
	t.Helper()
	res, err := Call(context.Background(), env, name, 1, args)
	if err != nil {
		t.Fatalf("%s%v: unexpected error %v", name, args, err)
	}
	return res
}

func TestSimpleFunctions(t *testing.T) {
	env, _ := newEnv(floats(4, 8, 1, 5, 2)...)
	tests := []struct {
		name string
		args []interface{}
		exp  interface{}
	}{
		{"last", nil, 2.0},
		{"last", []interface{}{"#1", "#1"}, 5.0},
		{"first", []interface{}{"#5"}, 4.0},
		{"min", []interface{}{"#5"}, 1.0},
		{"max", []interface{}{"#5"}, 8.0},
		{"sum", []interface{}{"#5"}, 20.0},
		{"avg", []interface{}{"#5"}, 4.0},
		{"avg", []interface{}{"#2", "#3"}, 6.0},
		{"median", []interface{}{"#5"}, 4.0},
		{"delta", []interface{}{"#5"}, 7.0},
		{"change", []interface{}{"#5"}, -2.0},
		{"absChange", []interface{}{"#5"}, 2.0},
		{"count", []interface{}{"#5"}, 5.0},
		{"count", []interface{}{"10s"}, 5.0},
		{"count", []interface{}{"#5", "", 5, "ge"}, 2.0},
		{"count", []interface{}{"#5", "", 5}, 1.0},
		{"count", []interface{}{"#5", "", "[15]", "regexp"}, 2.0},
	}
	for _, tt := range tests {
		res := call(t, env, tt.name, tt.args...)
		if !res.HasData {
			t.Errorf("%s%v: expected data", tt.name, tt.args)
			continue
		}
		if diff := cmp.Diff(tt.exp, res.Data); diff != "" {
			t.Errorf("%s%v (-want +got):\n%s", tt.name, tt.args, diff)
		}
	}
}

func TestCountTolerance(t *testing.T) {
	env, _ := newEnv(floats(1, 2, 2.5, 3, 4, 5, 6, 3.9)...)
	res := call(t, env, "count", "#8", "", 3, 1)
	if res.Data != 5.0 {
		t.Fatalf("expected 5 values within [2,4], got %v", res.Data)
	}
	res = call(t, env, "count", "#8", "", "3", "0")
	if res.Data != 1.0 {
		t.Fatalf("expected 1 value equal to 3, got %v", res.Data)
	}
	env, _ = newEnv(floats(0.2, 0.4)...)
	res = call(t, env, "count", "#2", "", 0.3, 0.1)
	if res.Data != 2.0 {
		t.Fatalf("expected both borders of [0.2,0.4] to count, got %v", res.Data)
	}
}

func TestCountStrings(t *testing.T) {
	env, _ := newEnv("Running", "stopped", "running", "starting", "RUNNING")
	tests := []struct {
		pattern, op string
		exp         float64
	}{
		{"running", "eqstr", 1},
		{"running", "ieqstr", 3},
		{"st%", "like", 2},
		{"RUN_ING", "ilike", 3},
		{"^s", "regexp", 2},
		{"^r", "iregexp", 3},
	}
	for _, tt := range tests {
		res := call(t, env, "count", "#5", "", tt.pattern, tt.op)
		if res.Data != tt.exp {
			t.Errorf("count(%q, %q): expected %v, got %v", tt.pattern, tt.op, tt.exp, res.Data)
		}
	}
	if _, err := Call(context.Background(), env, "count", 1, []interface{}{"#5", "", "x", "between"}); errors.KindOf(err) != errors.ExpressionError {
		t.Fatalf("expected an expression error for an unknown operator, got %v", err)
	}
}

func TestTukeyFunctions(t *testing.T) {
	Convey("Given the sample set of the outlier documentation", t, func() {
		env, _ := newEnv(floats(71, 70, 73, 70, 69, 70, 72, 71, 300, 71, 69)...)

		Convey("the borders are Q1-1.5*IQR and Q3+1.5*IQR", func() {
			So(call(t, env, "outliersBrd", "#11", "", "min").Data, ShouldEqual, 67.75)
			So(call(t, env, "outliersBrd", "#11", "", "max").Data, ShouldEqual, 73.75)
			So(call(t, env, "outliersBrd", "#11").Data, ShouldEqual, 73.75)
		})
		Convey("lastRob returns the newest value inside the borders", func() {
			So(call(t, env, "lastRob", "#11").Data, ShouldEqual, 69.0)
			So(call(t, env, "lastRob", "#9", "#2").Data, ShouldEqual, 71.0)
		})
		Convey("avgTF ignores the outlier", func() {
			So(call(t, env, "avgTF", "#11").Data, ShouldEqual, 70.6)
		})
		Convey("avgMed averages the middle half", func() {
			So(call(t, env, "avgMed", "#11").Data, ShouldEqual, 70.5)
		})
	})
}

func TestAvgNear(t *testing.T) {
	env, _ := newEnv(floats(10, 11, 50, 51, 52, 12)...)
	if res := call(t, env, "avgNear", "#6", "", 1); res.Data != 11.0 {
		t.Errorf("expected the cluster around the newest value, got %v", res.Data)
	}
	env, _ = newEnv(floats(10, 50, 51, 52, 12)...)
	if res := call(t, env, "avgNear", "#5", "", 1); res.Data != 51.0 {
		t.Errorf("expected the largest cluster, got %v", res.Data)
	}
	env, _ = newEnv(floats(7, 3, 7, 3)...)
	if res := call(t, env, "avgNear", "#4"); res.Data != 3.0 {
		t.Errorf("equal clusters: expected the tie to go to the newer center 3, got %v", res.Data)
	}
}

func TestRegression(t *testing.T) {
	Convey("Given a value growing by 1 per second", t, func() {
		env, _ := newEnv(floats(1, 2, 3, 4)...)

		Convey("forecast extends the line", func() {
			So(call(t, env, "forecast", "#4").Data, ShouldAlmostEqual, 4.0, 1e-9)
			So(call(t, env, "forecast", "#4", "", "1s").Data, ShouldAlmostEqual, 5.0, 1e-9)
		})
		Convey("timeLeft inverts it", func() {
			So(call(t, env, "timeLeft", "#4", "", 10).Data, ShouldEqual, 6000.0)
			So(call(t, env, "timeLeft", "#4", "", 2).Data, ShouldEqual, 0.0)
		})
	})
	Convey("Given a flat line", t, func() {
		env, _ := newEnv(floats(5, 5, 5)...)
		So(call(t, env, "timeLeft", "#3", "", 10).HasData, ShouldBeFalse)
		So(call(t, env, "forecast", "#3", "", "1h").Data, ShouldEqual, 5.0)
	})
}

func TestChangeStrings(t *testing.T) {
	env, _ := newEnv("up", "down", "UP")
	if res := call(t, env, "change", "#3"); res.Data != 1.0 {
		t.Errorf("case sensitive change: expected 1, got %v", res.Data)
	}
	if res := call(t, env, "change", "#3", "", true); res.Data != 0.0 {
		t.Errorf("case insensitive change: expected 0, got %v", res.Data)
	}
	if res := call(t, env, "regexp", "#3", "", "^u"); res.Data != 1.0 {
		t.Errorf("regexp: expected a match, got %v", res.Data)
	}
	if res := call(t, env, "regexp", "#1", "", "^u"); res.Data != 0.0 {
		t.Errorf("regexp: expected no match, got %v", res.Data)
	}
	if res := call(t, env, "regexp", "#1", "", "^u", "i"); res.Data != 1.0 {
		t.Errorf("regexp with i flag: expected a match, got %v", res.Data)
	}
}

func TestNoData(t *testing.T) {
	Convey("Given an empty window", t, func() {
		env, _ := newEnv()
		for _, name := range []string{"last", "avg", "min", "median", "delta", "change", "outliersBrd", "lastRob", "avgTF", "avgMed", "avgNear", "forecast", "history", "nodata"} {
			var args []interface{}
			if name != "nodata" {
				args = []interface{}{"#5"}
			}
			res := call(t, env, name, args...)
			So(res.HasData, ShouldBeFalse)
		}
		Convey("count is 0", func() {
			res := call(t, env, "count", "#5")
			So(res.HasData, ShouldBeTrue)
			So(res.Data, ShouldEqual, 0.0)
		})
		Convey("a strict window is a fetch error", func() {
			_, err := Call(context.Background(), env, "avg", 1, []interface{}{"!#5"})
			So(errors.KindOf(err), ShouldEqual, errors.FetchIncomplete)
		})
	})
	Convey("Given a window of strings only", t, func() {
		env, _ := newEnv("a", "b")
		So(call(t, env, "sum", "#2").HasData, ShouldBeFalse)
		So(call(t, env, "change", "#1").HasData, ShouldBeFalse)
	})
}

func TestNodata(t *testing.T) {
	Convey("Given a binding updated 5s ago", t, func() {
		env, store := newEnv()
		store.Add(1, schema.Record{Timestamp: now - 5000, Data: 1.0})

		So(call(t, env, "nodata").Data, ShouldEqual, 5000.0)
		So(call(t, env, "nodata", "10s").Data, ShouldEqual, 0.0)
		So(call(t, env, "nodata", 1000).Data, ShouldEqual, 1.0)
	})
	Convey("Given a binding silent for 2 hours", t, func() {
		env, store := newEnv()
		store.Add(1, schema.Record{Timestamp: now - 2*3600000, Data: 1.0})
		var slept []time.Duration

		Convey("a record arriving during the recheck clears the alarm", func() {
			env.Sleep = func(ctx context.Context, d time.Duration) error {
				slept = append(slept, d)
				store.Add(1, schema.Record{Timestamp: now, Data: 2.0})
				return nil
			}
			So(call(t, env, "nodata", "1h").Data, ShouldEqual, 0.0)
			So(slept, ShouldResemble, []time.Duration{30 * time.Second})
		})
		Convey("without one the gap is confirmed", func() {
			env.Sleep = func(ctx context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			}
			So(call(t, env, "nodata", "1h").Data, ShouldEqual, 1.0)
			So(slept, ShouldHaveLength, 1)
		})
		Convey("a cancelled recheck is an error", func() {
			env.Sleep = func(ctx context.Context, d time.Duration) error {
				return context.Canceled
			}
			_, err := Call(context.Background(), env, "nodata", 1, nil)
			So(err, ShouldEqual, context.Canceled)
		})
	})
}

func TestHistory(t *testing.T) {
	env, _ := newEnv(1.0, "x", 3.0)
	res := call(t, env, "history", "#2")
	exp := []schema.Record{
		{Timestamp: now - 1000, Data: "x"},
		{Timestamp: now, Data: 3.0},
	}
	if diff := cmp.Diff(exp, res.Data); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}
}

func TestBind(t *testing.T) {
	env, _ := newEnv(1.0)
	tests := []struct {
		name string
		args []interface{}
	}{
		{"avg", nil},
		{"avg", []interface{}{""}},
		{"avg", []interface{}{"#1", "", "extra"}},
		{"avg", []interface{}{"abc"}},
		{"avgMed", []interface{}{"#1", "", 50}},
		{"outliersBrd", []interface{}{"#1", "", "middle"}},
		{"regexp", []interface{}{"#1", "", "("}},
		{"timeLeft", []interface{}{"#1"}},
		{"nodata", []interface{}{-1}},
	}
	for _, tt := range tests {
		_, err := Call(context.Background(), env, tt.name, 1, tt.args)
		if errors.KindOf(err) != errors.ExpressionError {
			t.Errorf("%s%v: expected an expression error, got %v", tt.name, tt.args, err)
		}
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("stddev")
	if !errors.Is(err, errors.ErrUnknownAggregationFunction) {
		t.Fatalf("expected an unknown function error, got %v", err)
	}
	if _, err := Usage("stddev"); err == nil {
		t.Fatal("expected an error for the usage of an unknown function")
	}
}

func TestUsageRoundTrip(t *testing.T) {
	names := Names()
	if len(names) != 21 {
		t.Fatalf("expected 21 functions, got %d", len(names))
	}
	for _, name := range names {
		usage, err := Usage(name)
		if err != nil {
			t.Fatalf("Usage(%q): %v", name, err)
		}
		gotName, keys, opt, err := ParseUsage(usage)
		if err != nil {
			t.Fatalf("ParseUsage(%q): %v", usage, err)
		}
		if gotName != name {
			t.Errorf("ParseUsage(%q): expected name %q, got %q", usage, name, gotName)
		}
		f, _ := Get(name)
		sig := f.Signature()
		if len(keys) != len(sig) {
			t.Fatalf("ParseUsage(%q): expected %d args, got %d", usage, len(sig), len(keys))
		}
		for i, a := range sig {
			if keys[i] != a.Key() || opt[i] != a.Optional() {
				t.Errorf("ParseUsage(%q) arg %d: expected %s/%t, got %s/%t", usage, i, a.Key(), a.Optional(), keys[i], opt[i])
			}
		}
		desc, err := Describe(name)
		if err != nil || !strings.HasPrefix(desc, usage) {
			t.Errorf("Describe(%q): unexpected %q, %v", name, desc, err)
		}
	}
	if u, _ := Usage("avg"); u != "avg(period, [shift])" {
		t.Errorf("unexpected usage of avg: %q", u)
	}
}

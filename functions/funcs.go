// Package functions is the library of aggregation functions history
// variables are computed with. Every function reads one window of a
// binding's history and reduces it to a single value.
package functions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// Accessor fetches a window of a binding's history.
// *history.Accessor is the production implementation.
type Accessor interface {
	Fetch(ctx context.Context, id schema.OCID, shift, count string, want msg.WantType) ([]schema.Record, bool, error)
}

// Env is what functions run against.
type Env struct {
	Accessor Accessor
	Now      func() time.Time
	// Sleep waits for d or until ctx is done
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewEnv(a Accessor) *Env {
	return &Env{
		Accessor: a,
		Now:      time.Now,
		Sleep:    sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// nowMs returns the current time in ms since epoch.
func (e *Env) nowMs() int64 {
	return e.Now().UnixNano() / int64(time.Millisecond)
}

// Result is the outcome of a function. HasData is false when the window
// did not allow computing a value, which is not an error.
type Result struct {
	Data    interface{}
	HasData bool
	Records []schema.Record
}

func noData(records []schema.Record) Result {
	return Result{Records: records}
}

func data(v interface{}, records []schema.Record) Result {
	return Result{Data: v, HasData: true, Records: records}
}

type Func interface {
	// Signature declares the positional arguments. The val pointers of each
	// Arg point into the function, so that Bind can store the call arguments.
	Signature() []Arg
	// Exec reads the window of binding id and computes the result.
	Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error)
}

type funcConstructor func() Func

type funcDef struct {
	constr      funcConstructor
	description string
}

var funcs map[string]funcDef

func init() {
	// keys must be sorted alphabetically
	funcs = map[string]funcDef{
		"absChange":   {NewAbsChange, "absolute difference between the newest and the oldest value of the window. 0 or 1 for strings"},
		"avg":         {NewAvg, "average of the numeric values of the window"},
		"avgMed":      {NewAvgMed, "average of the values between the percent and 100-percent percentiles of the window"},
		"avgNear":     {NewAvgNear, "average of the largest cluster of values lying within tolerance of each other"},
		"avgTF":       {NewAvgTF, "average of the values of the window inside Tukey's fences"},
		"change":      {NewChange, "difference between the newest and the oldest value of the window. 0 or 1 for strings"},
		"count":       {NewCount, "number of values of the window, optionally only those matching a condition"},
		"delta":       {NewDelta, "difference between the maximum and the minimum of the window"},
		"first":       {NewFirst, "oldest value of the window"},
		"forecast":    {NewForecast, "value of the least squares line through the window at the given time from now"},
		"history":     {NewHistory, "the records of the window, unchanged"},
		"last":        {NewLast, "newest value of the window"},
		"lastRob":     {NewLastRob, "newest value of the window that is inside Tukey's fences"},
		"max":         {NewMax, "maximum of the numeric values of the window"},
		"median":      {NewMedian, "median of the numeric values of the window"},
		"min":         {NewMin, "minimum of the numeric values of the window"},
		"nodata":      {NewNodata, "time since the newest record, or 1 if it exceeds the threshold and 0 otherwise"},
		"outliersBrd": {NewOutliersBrd, "lower or upper border of Tukey's fences of the window"},
		"regexp":      {NewRegexp, "1 if any value of the window matches the pattern, 0 otherwise"},
		"sum":         {NewSum, "sum of the numeric values of the window"},
		"timeLeft":    {NewTimeLeft, "time until the least squares line through the window reaches the threshold"},
	}
}

// Names returns the names of all functions, sorted.
func Names() []string {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a new instance of the named function.
func Get(name string) (Func, error) {
	def, ok := funcs[name]
	if !ok {
		return nil, errors.New(errors.UnknownAggregationFunction, "%q", name)
	}
	return def.constr(), nil
}

// Bind stores positional arguments into f. nil and empty string
// arguments count as omitted.
func Bind(f Func, args []interface{}) error {
	sig := f.Signature()
	if len(args) > len(sig) {
		return errors.New(errors.ExpressionError, "too many arguments: got %d, at most %d", len(args), len(sig))
	}
	for i, a := range sig {
		if i >= len(args) || omitted(args[i]) {
			if !a.Optional() {
				return errors.New(errors.ExpressionError, "missing required argument %q", a.Key())
			}
			continue
		}
		if err := a.Store(args[i]); err != nil {
			return err
		}
	}
	return nil
}

func omitted(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// Call runs the named function over binding id.
func Call(ctx context.Context, env *Env, name string, id schema.OCID, args []interface{}) (Result, error) {
	f, err := Get(name)
	if err != nil {
		return Result{}, err
	}
	if err := Bind(f, args); err != nil {
		return Result{}, err
	}
	return f.Exec(ctx, env, id)
}

// Usage renders the call syntax of a function, e.g. "avg(period, [shift])".
func Usage(name string) (string, error) {
	f, err := Get(name)
	if err != nil {
		return "", err
	}
	keys := make([]string, 0)
	for _, a := range f.Signature() {
		if a.Optional() {
			keys = append(keys, "["+a.Key()+"]")
		} else {
			keys = append(keys, a.Key())
		}
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(keys, ", ")), nil
}

// ParseUsage splits a call syntax rendered by Usage back into the function
// name, the argument keys and which of them are optional.
func ParseUsage(usage string) (string, []string, []bool, error) {
	open := strings.Index(usage, "(")
	if open < 1 || !strings.HasSuffix(usage, ")") {
		return "", nil, nil, fmt.Errorf("invalid usage %q", usage)
	}
	name := usage[:open]
	inner := strings.TrimSpace(usage[open+1 : len(usage)-1])
	var keys []string
	var opt []bool
	if inner == "" {
		return name, keys, opt, nil
	}
	for _, k := range strings.Split(inner, ",") {
		k = strings.TrimSpace(k)
		o := strings.HasPrefix(k, "[") && strings.HasSuffix(k, "]")
		if o {
			k = k[1 : len(k)-1]
		}
		keys = append(keys, k)
		opt = append(opt, o)
	}
	return name, keys, opt, nil
}

// Describe renders the help text of a function: its usage, what it
// computes and one line per argument.
func Describe(name string) (string, error) {
	usage, err := Usage(name)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(usage)
	b.WriteString("\n  ")
	b.WriteString(funcs[name].description)
	b.WriteString("\n")
	f, _ := Get(name)
	for _, a := range f.Signature() {
		fmt.Fprintf(&b, "  %s (%s", a.Key(), a.Type())
		if a.Optional() {
			b.WriteString(", optional")
		}
		fmt.Fprintf(&b, "): %s\n", a.Desc())
	}
	return b.String(), nil
}

// helpers shared by the function implementations

const (
	descPeriod = "size of the window: a duration like 10m, a number of records like #10, or an end timestamp. prefix with ! to require a complete window"
	descShift  = "how far back the window ends: a duration, a number of records like #2, or a start timestamp"
)

func argPeriod(val *string, opt bool) ArgWindow {
	return ArgWindow{key: "period", opt: opt, desc: descPeriod, val: val}
}

func argShift(val *string) ArgWindow {
	return ArgWindow{key: "shift", opt: true, desc: descShift, val: val}
}

func fetch(ctx context.Context, env *Env, id schema.OCID, period, shift string, want msg.WantType) ([]schema.Record, error) {
	records, _, err := env.Accessor.Fetch(ctx, id, shift, period, want)
	return records, err
}

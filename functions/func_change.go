package functions

import (
	"context"
	"math"
	"strings"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// FuncChange compares the oldest and the newest value of the window.
// Numbers yield their difference, anything else 1 if the values differ and 0 otherwise.
type FuncChange struct {
	period     string
	shift      string
	ignoreCase bool
	abs        bool
}

func NewChange() Func {
	return &FuncChange{}
}

func NewAbsChange() Func {
	return &FuncChange{abs: true}
}

func (s *FuncChange) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
		ArgBool{key: "ignoreCase", opt: true, desc: "compare string values case-insensitively", val: &s.ignoreCase},
	}
}

func (s *FuncChange) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantNumeric)
	if err != nil {
		return Result{}, err
	}
	if len(records) < 2 {
		return noData(records), nil
	}
	oldest, newest := records[0].Data, records[len(records)-1].Data
	o, ok1 := schema.ToFloat(oldest)
	n, ok2 := schema.ToFloat(newest)
	if ok1 && ok2 {
		if s.abs {
			return data(math.Abs(n-o), records), nil
		}
		return data(n-o, records), nil
	}
	a, b := schema.ToString(oldest), schema.ToString(newest)
	same := a == b
	if s.ignoreCase {
		same = strings.EqualFold(a, b)
	}
	if same {
		return data(0.0, records), nil
	}
	return data(1.0, records), nil
}

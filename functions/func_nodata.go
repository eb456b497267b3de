package functions

import (
	"context"
	"time"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

const (
	// gaps longer than this are checked once more after nodataRecheck,
	// a single delayed poll must not raise an alarm
	nodataSuspicious = time.Hour
	nodataRecheck    = 30 * time.Second
)

// FuncNodata measures the time since the newest record
type FuncNodata struct {
	threshold float64
}

func NewNodata() Func {
	return &FuncNodata{threshold: -1}
}

func (s *FuncNodata) Signature() []Arg {
	return []Arg{
		ArgFloat{key: "threshold", opt: true, desc: "if set, yield 1 when the time since the newest record exceeds it and 0 otherwise", validator: []Validator{NonNegative}, val: &s.threshold},
	}
}

func (s *FuncNodata) gap(ctx context.Context, env *Env, id schema.OCID) (int64, []schema.Record, error) {
	records, err := fetch(ctx, env, id, "#1", "", msg.WantAny)
	if err != nil || len(records) == 0 {
		return 0, records, err
	}
	return env.nowMs() - records[len(records)-1].Timestamp, records, nil
}

func (s *FuncNodata) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	gap, records, err := s.gap(ctx, env, id)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return noData(records), nil
	}
	if gap > int64(nodataSuspicious/time.Millisecond) {
		if err := env.Sleep(ctx, nodataRecheck); err != nil {
			return Result{}, err
		}
		gap, records, err = s.gap(ctx, env, id)
		if err != nil {
			return Result{}, err
		}
		if len(records) == 0 {
			return noData(records), nil
		}
	}
	if s.threshold < 0 {
		return data(float64(gap), records), nil
	}
	if float64(gap) > s.threshold {
		return data(1.0, records), nil
	}
	return data(0.0, records), nil
}

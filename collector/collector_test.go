package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	cperrors "github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

type fakeCollector struct {
	calls int
	pause time.Duration
	err   error
}

func (f *fakeCollector) Get(ctx context.Context, params msg.Resolution) (interface{}, error) {
	f.calls++
	return float64(f.calls), f.err
}

func (f *fakeCollector) RemoveCounters(ctx context.Context, ocids []schema.OCID) error {
	return nil
}

func (f *fakeCollector) ThrottlingPause() time.Duration {
	return f.pause
}

func TestRegistry(t *testing.T) {
	r := Registry{}
	r.Register("b", func() Collector { return &fakeCollector{} })
	r.Register("a", func() Collector { return &fakeCollector{} })
	if _, ok := r.Lookup("a"); !ok {
		t.Fatal("expected a to be registered")
	}
	if _, ok := r.Lookup("c"); ok {
		t.Fatal("expected c not to be registered")
	}
	if names := r.Names(); len(names) != 2 || names[0] != "a" {
		t.Fatalf("unexpected names %v", names)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected a duplicate registration to panic")
		}
	}()
	r.Register("a", func() Collector { return &fakeCollector{} })
}

func TestThrottle(t *testing.T) {
	f := &fakeCollector{}
	if Throttle(f, 0, 0) != Collector(f) {
		t.Fatal("expected no wrapper without a pause")
	}
	f.pause = time.Hour
	th := Throttle(f, 0, 1)
	if _, ok := th.(*Throttled); !ok {
		t.Fatal("expected the collector's own pause to be used")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := th.Get(ctx, msg.Resolution{}); err != nil {
		t.Fatalf("expected the first call to pass, got %v", err)
	}
	if _, err := th.Get(ctx, msg.Resolution{}); err == nil {
		t.Fatal("expected the second call to wait beyond the deadline")
	}
	if f.calls != 1 {
		t.Fatalf("expected 1 call to get through, got %d", f.calls)
	}
}

func TestGetClassifiesErrors(t *testing.T) {
	f := &fakeCollector{err: errors.New("connection refused")}
	_, err := Get(context.Background(), "fake", f, msg.Resolution{ID: 7})
	if !cperrors.Is(err, cperrors.ErrCollector) {
		t.Fatalf("expected a collector error, got %v", err)
	}
}

func TestCalc(t *testing.T) {
	c, ok := DefaultRegistry.Lookup("calc")
	if !ok {
		t.Fatal("expected calc to be registered")
	}
	v, err := c().Get(context.Background(), msg.Resolution{
		Variables:  map[string]interface{}{"USED": 30.0, "total": 120.0},
		Parameters: map[string]interface{}{"expression": "%:used:% / %:TOTAL:% * 100"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v != 25.0 {
		t.Fatalf("expected 25, got %v", v)
	}
	if _, err := c().Get(context.Background(), msg.Resolution{}); cperrors.KindOf(err) != cperrors.ExpressionError {
		t.Fatalf("expected an expression error for an empty expression, got %v", err)
	}
	if !RawParameter("calc", "expression") || RawParameter("calc", "timeout") || RawParameter("fake", "expression") {
		t.Fatal("expected only the calc expression to be handed over as written")
	}
}

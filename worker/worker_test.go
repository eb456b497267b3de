package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alepiz/counterprocessor/collector"
	"github.com/alepiz/counterprocessor/conf"
	"github.com/alepiz/counterprocessor/functions"
	"github.com/alepiz/counterprocessor/history"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/variables"
	. "github.com/smartystreets/goconvey/convey"
)

// 2020-01-01T00:00:00Z
const now = int64(1577836800000)

func nowTime() time.Time {
	return time.Unix(0, now*int64(time.Millisecond))
}

// counter 10 "cpu" on object 1 "db-1" (ocid 101) triggers counter 20
// "cpu-high" (ocid 201), which doubles the parent value when it exceeds 50.
func update() msg.CacheUpdate {
	return msg.CacheUpdate{
		Instance:   "main",
		FullUpdate: true,
		CountersObjects: &msg.CountersObjects{
			Counters: map[uint64]*schema.Counter{
				10: {
					ID:      10,
					Name:    "cpu",
					Objects: map[uint64]schema.OCID{1: 101},
					DependedUpdateEvents: map[uint64]schema.UpdateEvent{
						20: {ParentCounterID: 10, CounterID: 20, Expression: "%:PARENT_VALUE:% > 50", Mode: schema.UpdateOnceTrue},
					},
				},
				20: {
					ID:         20,
					Name:       "cpu-high",
					Collector:  "calc",
					Objects:    map[uint64]schema.OCID{1: 201},
					Parameters: []schema.Parameter{{Name: "expression", Value: "%:PARENT_VALUE:% * 2"}},
				},
			},
			Objects: map[uint64]*schema.Object{
				1: {ID: 1, Name: "db-1"},
			},
		},
	}
}

func newResolver() *variables.Resolver {
	a := history.NewAccessor(history.NewMemoryStore())
	a.Now = nowTime
	env := functions.NewEnv(a)
	env.Now = nowTime
	r := variables.NewResolver(env)
	r.Now = nowTime
	return r
}

// recorder collects what the collectors produce.
type recorder struct {
	sync.Mutex
	values []msg.Value
}

func (r *recorder) sink(ctx context.Context, v msg.Value) error {
	r.Lock()
	r.values = append(r.values, v)
	r.Unlock()
	return nil
}

func (r *recorder) data() []interface{} {
	r.Lock()
	defer r.Unlock()
	out := make([]interface{}, len(r.values))
	for i, v := range r.values {
		out[i] = v.Data
	}
	return out
}

// fakeDispatcher remembers the jobs and removals it gets.
type fakeDispatcher struct {
	jobs    []Job
	removed []schema.OCID
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, job Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeDispatcher) RemoveCounters(ctx context.Context, ocids []schema.OCID) error {
	f.removed = append(f.removed, ocids...)
	return nil
}

// drain handles everything queued in the inbox of w, including what
// handling queues.
func drain(ctx context.Context, w *Worker) {
	for {
		items := w.inbox.Take()
		if len(items) == 0 {
			return
		}
		for _, it := range items {
			w.handle(ctx, it)
		}
	}
}

func value(data interface{}) msg.Value {
	return msg.Value{OCID: 101, Timestamp: now, Data: data}
}

func TestWorker(t *testing.T) {
	ctx := context.Background()
	Convey("Given a worker with a local dispatcher running calc", t, func() {
		rec := &recorder{}
		d := NewLocalDispatcher(collector.DefaultRegistry, conf.Collectors{}, rec.sink)
		d.Now = nowTime
		w := New(0, newResolver(), d)

		Convey("values received before the first cache update are handled after it", func() {
			w.handle(ctx, item{kind: itemValue, value: value(60.0)})
			So(w.pending, ShouldHaveLength, 1)
			So(rec.data(), ShouldBeEmpty)

			w.handle(ctx, item{kind: itemUpdate, update: update()})
			drain(ctx, w)
			So(w.pending, ShouldBeEmpty)
			So(rec.data(), ShouldResemble, []interface{}{120.0})
			So(rec.values[0].OCID, ShouldEqual, schema.OCID(201))
		})

		Convey("once true only recalculates when the update event becomes true", func() {
			w.handle(ctx, item{kind: itemUpdate, update: update()})
			for _, v := range []float64{60, 70, 10, 80} {
				w.handle(ctx, item{kind: itemValue, value: value(v)})
				drain(ctx, w)
			}
			So(rec.data(), ShouldResemble, []interface{}{120.0, 160.0})
			state, _ := w.state.Get(201)
			So(state, ShouldNotBeNil)
			So(*state, ShouldBeTrue)
		})

		Convey("values of unknown bindings are ignored", func() {
			w.handle(ctx, item{kind: itemUpdate, update: update()})
			w.handle(ctx, item{kind: itemValue, value: msg.Value{OCID: 999, Data: 60.0}})
			drain(ctx, w)
			So(rec.data(), ShouldBeEmpty)
		})

		Convey("calc compares string variables handed down by the parent", func() {
			u := update()
			u.CountersObjects.Counters[20].Parameters = []schema.Parameter{{Name: "expression", Value: "%:STATE:% == 'up'"}}
			w.handle(ctx, item{kind: itemUpdate, update: u})
			w.vars[101] = map[string]interface{}{"STATE": "up"}
			w.HandleValue(ctx, value(60.0))
			drain(ctx, w)
			So(rec.data(), ShouldResemble, []interface{}{true})
		})

		Convey("the resolved variables of the parent are handed to the dependents", func() {
			w.handle(ctx, item{kind: itemUpdate, update: update()})
			w.vars[101] = map[string]interface{}{"THRESHOLD": 5.0}
			w.HandleValue(ctx, value(60.0))
			items := w.inbox.Take()
			So(items, ShouldHaveLength, 1)
			req := items[0].request
			So(req.Property.OCID, ShouldEqual, schema.OCID(201))
			So(req.Property.ParentObjectValue, ShouldEqual, 60.0)
			So(req.ParentVariables["THRESHOLD"], ShouldEqual, 5.0)
		})
	})
}

func TestWorkerRemovals(t *testing.T) {
	ctx := context.Background()
	fake := &fakeDispatcher{}
	w := New(0, newResolver(), fake)
	w.removes = true
	w.ApplyUpdate(ctx, update())

	w.HandleValue(ctx, value(60.0))
	drain(ctx, w)
	if len(fake.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(fake.jobs))
	}
	job := fake.jobs[0]
	if job.Collector != "calc" || job.Resolution.ID != 201 || job.Resolution.ParentID != 101 {
		t.Fatalf("unexpected job %+v", job)
	}
	if got := job.Resolution.Parameters["expression"]; got != "%:PARENT_VALUE:% * 2" {
		t.Fatalf("expected the calc expression to be handed over as written, got %#v", got)
	}
	if got := job.Resolution.Variables["PARENT_VALUE"]; got != 60.0 {
		t.Fatalf("expected the parent value among the variables, got %#v", got)
	}

	u := update()
	u.FullUpdate = false
	u.CountersObjects.Objects = nil
	u.CountersObjects.Counters = map[uint64]*schema.Counter{20: nil}
	w.ApplyUpdate(ctx, u)

	if len(fake.removed) != 1 || fake.removed[0] != 201 {
		t.Fatalf("expected ocid 201 to be removed, got %v", fake.removed)
	}
	if state, _ := w.state.Get(201); state != nil {
		t.Fatalf("expected the update event state of 201 to be forgotten")
	}
	if _, ok := w.vars[201]; ok {
		t.Fatalf("expected the variables of 201 to be forgotten")
	}
}

func TestWorkerQueueFull(t *testing.T) {
	defer func(size int) { QueueSize = size }(QueueSize)
	QueueSize = 2

	ctx := context.Background()
	w := New(0, newResolver(), &fakeDispatcher{})
	for _, v := range []float64{1, 2, 3} {
		w.handle(ctx, item{kind: itemValue, value: value(v)})
	}
	if len(w.pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(w.pending))
	}
	for i, exp := range []float64{1, 2} {
		if got := w.pending[i].value.Data; got != exp {
			t.Fatalf("pending message %d: expected %v to be kept, got %v", i, exp, got)
		}
	}
}

func TestPool(t *testing.T) {
	rec := &recorder{}
	d := NewLocalDispatcher(collector.DefaultRegistry, conf.Collectors{}, rec.sink)
	d.Now = nowTime
	p := NewPool(4, newResolver, d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- p.Run(ctx) }()

	p.Value(value(60.0))
	p.Update(update())

	deadline := time.Now().Add(5 * time.Second)
	for len(rec.data()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got := rec.data(); len(got) != 1 || got[0] != 120.0 {
		t.Fatalf("expected one value 120, got %v", got)
	}
	if !p.Ready() {
		t.Fatalf("expected all workers to be ready")
	}
	for _, s := range p.Status() {
		if s.Counters != 2 || s.OCIDs != 2 {
			t.Fatalf("unexpected status %+v", s)
		}
	}
}

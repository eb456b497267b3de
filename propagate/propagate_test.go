package propagate

import (
	"testing"

	"github.com/alepiz/counterprocessor/cache"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

// parent counter 1 on objects 1..4; counter 2 is scoped to object 1,
// counter 3 is unscoped with an object filter.
func snapshot(filter string) *cache.Snapshot {
	c := cache.New()
	c.Apply(msg.CacheUpdate{
		CountersObjects: &msg.CountersObjects{
			Counters: map[uint64]*schema.Counter{
				1: {
					ID:      1,
					Name:    "ping",
					Objects: map[uint64]schema.OCID{1: 11, 2: 12, 3: 13, 4: 14},
					DependedUpdateEvents: map[uint64]schema.UpdateEvent{
						2: {ParentCounterID: 1, CounterID: 2, ParentObjectID: 1, Expression: "%:PARENT_VALUE:% > 0", Mode: schema.UpdateOnceChange, Order: 1},
						3: {ParentCounterID: 1, CounterID: 3, ObjectFilter: filter, Order: 0},
					},
				},
				2: {ID: 2, Name: "status", Collector: "ssh", Objects: map[uint64]schema.OCID{1: 21, 2: 22}},
				3: {ID: 3, Name: "connections", Collector: "sql", Objects: map[uint64]schema.OCID{1: 31, 2: 32, 3: 33, 4: 34}},
			},
			Objects: map[uint64]*schema.Object{
				1: {ID: 1, Name: "DB-main"},
				2: {ID: 2, Name: "web-1"},
				3: {ID: 3, Name: "db-replica"},
				4: {ID: 4, Name: "cache-db-1"},
			},
		},
		FullUpdate: true,
	})
	return c.Snapshot()
}

type key struct {
	counterID, objectID uint64
	ocid                schema.OCID
}

func keys(targets []Target) []key {
	out := make([]key, len(targets))
	for i, t := range targets {
		out[i] = key{t.CounterID, t.ObjectID, t.OCID}
	}
	return out
}

func TestPropagateScopedAndFiltered(t *testing.T) {
	p := New(10)
	got := p.Propagate(snapshot("^db-"), 1, 1, nil)
	exp := []key{
		{3, 1, 31},
		{3, 3, 33},
		{2, 1, 21},
	}
	if diff := cmp.Diff(exp, keys(got)); diff != "" {
		t.Fatalf("targets (-want +got):\n%s", diff)
	}
	scoped := got[2]
	if scoped.ParentOCID != 11 || scoped.ParentObjectName != "DB-main" || scoped.ParentCounterName != "ping" {
		t.Fatalf("unexpected parent context %+v", scoped)
	}
	if scoped.Mode != schema.UpdateOnceChange || scoped.Expression != "%:PARENT_VALUE:% > 0" {
		t.Fatalf("unexpected update event in %+v", scoped)
	}
}

func TestPropagate(t *testing.T) {
	Convey("Given a parent counter with a scoped and a filtered update event", t, func() {
		p := New(10)

		Convey("a value on another object skips the scoped event", func() {
			got := p.Propagate(snapshot("^db-"), 1, 2, nil)
			So(keys(got), ShouldResemble, []key{{3, 1, 31}, {3, 3, 33}})
		})
		Convey("without a filter all objects of the dependent counter are targets", func() {
			got := p.Propagate(snapshot(""), 1, 2, nil)
			So(keys(got), ShouldResemble, []key{{3, 1, 31}, {3, 2, 32}, {3, 3, 33}, {3, 4, 34}})
		})
		Convey("a filter may reference the parent variables", func() {
			vars := map[string]interface{}{"PREFIX": "cache"}
			got := p.Propagate(snapshot("^%:prefix:%-"), 1, 3, vars)
			So(keys(got), ShouldResemble, []key{{3, 4, 34}})
		})
		Convey("a filter with an unresolved reference skips the event", func() {
			got := p.Propagate(snapshot("^%:PREFIX:%-"), 1, 3, nil)
			So(got, ShouldBeEmpty)
		})
		Convey("a filter that does not compile skips the event", func() {
			got := p.Propagate(snapshot("(db"), 1, 1, nil)
			So(keys(got), ShouldResemble, []key{{2, 1, 21}})
		})
		Convey("an unknown parent counter has no targets", func() {
			So(p.Propagate(snapshot(""), 9, 1, nil), ShouldBeEmpty)
		})
		Convey("the same input yields the same targets", func() {
			snap := snapshot("db")
			first := p.Propagate(snap, 1, 1, nil)
			for i := 0; i < 10; i++ {
				So(p.Propagate(snap, 1, 1, nil), ShouldResemble, first)
			}
		})
	})
}

func TestTargetProperty(t *testing.T) {
	tg := Target{CounterID: 3, ObjectID: 1, OCID: 31, CounterName: "connections", ObjectName: "DB-main", Collector: "sql", ParentOCID: 11}
	prop := tg.Property(42.0)
	if prop.OCID != 31 || prop.Collector != "sql" || prop.ParentObjectValue != 42.0 || prop.ParentOCID != 11 {
		t.Fatalf("unexpected property %+v", prop)
	}
}

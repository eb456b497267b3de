package worker

import (
	"context"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/alepiz/counterprocessor/variables"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// metric worker.inbox is the number of messages waiting in the inboxes of all workers
var statInbox = stats.NewGauge32("worker.inbox")

// Pool runs workers in parallel. Cache updates go to every worker, values
// and requests to the worker owning their binding.
type Pool struct {
	workers     []*Worker
	newResolver func() *variables.Resolver
}

// NewPool creates n workers. newResolver is called once per worker.
func NewPool(n int, newResolver func() *variables.Resolver, dispatcher Dispatcher) *Pool {
	p := &Pool{newResolver: newResolver}
	for i := 0; i < n; i++ {
		w := New(i, newResolver(), dispatcher)
		w.route = p.Request
		p.workers = append(p.workers, w)
	}
	p.workers[0].removes = true
	return p
}

func (p *Pool) worker(ocid schema.OCID) *Worker {
	return p.workers[ocid.Partition(int32(len(p.workers)))]
}

// Update broadcasts a cache update to all workers.
func (p *Pool) Update(u msg.CacheUpdate) {
	for _, w := range p.workers {
		w.inbox.Put(item{kind: itemUpdate, update: u})
	}
}

// Value hands a new value to the worker owning its binding.
func (p *Pool) Value(v msg.Value) {
	p.worker(v.OCID).inbox.Put(item{kind: itemValue, value: v})
}

// Request hands a resolve request to the worker owning its binding.
func (p *Pool) Request(req msg.ResolveRequest) {
	p.worker(req.Property.OCID).inbox.Put(item{kind: itemRequest, request: req})
}

// Sink returns a Sink feeding values back into the pool.
func (p *Pool) Sink() Sink {
	return func(ctx context.Context, v msg.Value) error {
		p.Value(v)
		return nil
	}
}

// Run runs all workers until ctx is done.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	log.WithField("workers", len(p.workers)).Info("worker: pool started")
	return g.Wait()
}

// Status describes the state of one worker.
type Status struct {
	ID         int    `json:"id"`
	Ready      bool   `json:"ready"`
	Generation uint64 `json:"generation"`
	Counters   int    `json:"counters"`
	Objects    int    `json:"objects"`
	OCIDs      int    `json:"ocids"`
	Inbox      int    `json:"inbox"`
}

// Status reports the state of every worker.
func (p *Pool) Status() []Status {
	out := make([]Status, len(p.workers))
	total := 0
	for i, w := range p.workers {
		snap := w.cache.Snapshot()
		counters, objects, ocids := snap.Len()
		inbox := w.inbox.Len()
		total += inbox
		out[i] = Status{
			ID:         w.ID,
			Ready:      w.cache.Ready(),
			Generation: snap.Generation,
			Counters:   counters,
			Objects:    objects,
			OCIDs:      ocids,
			Inbox:      inbox,
		}
	}
	statInbox.Set(total)
	return out
}

// Ready reports whether every worker received its first cache update.
func (p *Pool) Ready() bool {
	for _, w := range p.workers {
		if !w.cache.Ready() {
			return false
		}
	}
	return true
}

// Explain resolves the variables of a counter against the cache of the
// worker owning it. Nothing is dispatched and no update event state changes.
func (p *Pool) Explain(ctx context.Context, req msg.ResolveRequest) (*variables.Result, error) {
	snap := p.worker(req.Property.OCID).cache.Snapshot()
	r := p.newResolver()
	r.InstanceName = snap.Instance
	return r.Resolve(ctx, snap, req)
}

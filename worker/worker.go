// Package worker runs the resolution pipeline: a new value of a counter is
// propagated to its dependent counters, whose variables are resolved and
// whose collectors are called with the resolved parameters.
package worker

import (
	"context"
	"time"

	"github.com/alepiz/counterprocessor/cache"
	"github.com/alepiz/counterprocessor/propagate"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/alepiz/counterprocessor/tracing"
	"github.com/alepiz/counterprocessor/updateevent"
	"github.com/alepiz/counterprocessor/variables"
	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
)

var (
	// metric worker.values is the number of values handled
	statValues = stats.NewCounter32("worker.values")
	// metric worker.values.unknown is the number of values for bindings missing from the cache
	statUnknownOCID = stats.NewCounter32("worker.values.unknown")
	// metric worker.requests is the number of counters resolved
	statRequests = stats.NewCounter32("worker.requests")
	// metric worker.requests.failed is the number of counters skipped because variables failed to resolve
	statFailed = stats.NewCounter32("worker.requests.failed")
	// metric worker.requests.skipped is the number of counters skipped by their update event
	statSkipped = stats.NewCounter32("worker.requests.skipped")
	// metric worker.dispatched is the number of counters handed to their collector
	statDispatched = stats.NewCounter32("worker.dispatched")
	// metric worker.dispatch.errors is the number of counters whose collector failed
	statDispatchErrors = stats.NewCounter32("worker.dispatch.errors")
	// metric worker.queue.dropped is the number of messages dropped while waiting for the first cache update
	statDropped = stats.NewCounter32("worker.queue.dropped")
)

// Worker owns a cache and the update event state of the bindings routed to
// it. It handles one message at a time.
type Worker struct {
	ID         int
	cache      *cache.Cache
	state      updateevent.State
	vars       map[schema.OCID]map[string]interface{} // last resolved variables, handed to dependents
	resolver   *variables.Resolver
	propagator *propagate.Propagator
	dispatcher Dispatcher

	// route hands a request to the worker owning its binding
	route func(req msg.ResolveRequest)
	// removes tells whether this worker forwards removed bindings to the dispatcher
	removes bool

	inbox   *inbox
	pending []item // received before the first cache update
}

func New(id int, resolver *variables.Resolver, dispatcher Dispatcher) *Worker {
	w := &Worker{
		ID:         id,
		cache:      cache.New(),
		state:      make(updateevent.State),
		vars:       make(map[schema.OCID]map[string]interface{}),
		resolver:   resolver,
		propagator: propagate.New(FilterCacheSize),
		dispatcher: dispatcher,
		inbox:      newInbox(),
	}
	w.route = func(req msg.ResolveRequest) {
		w.inbox.Put(item{kind: itemRequest, request: req})
	}
	return w
}

// Cache returns the cache of the worker.
func (w *Worker) Cache() *cache.Cache {
	return w.cache
}

// Run handles the messages of the inbox until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.inbox.notify:
			for _, it := range w.inbox.Take() {
				w.handle(ctx, it)
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, it item) {
	if it.kind == itemUpdate {
		w.ApplyUpdate(ctx, it.update)
		return
	}
	if !w.cache.Ready() {
		if len(w.pending) >= QueueSize {
			statDropped.Inc()
			return
		}
		w.pending = append(w.pending, it)
		return
	}
	switch it.kind {
	case itemValue:
		w.HandleValue(ctx, it.value)
	case itemRequest:
		w.HandleRequest(ctx, w.cache.Snapshot(), it.request)
	}
}

// ApplyUpdate applies a cache update and forgets the removed bindings.
// The first update also handles the messages received before it.
func (w *Worker) ApplyUpdate(ctx context.Context, u msg.CacheUpdate) {
	ready := w.cache.Ready()
	removed := w.cache.Apply(u)
	if len(removed) > 0 {
		w.state.Remove(removed...)
		for _, ocid := range removed {
			delete(w.vars, ocid)
		}
		if w.removes && w.dispatcher != nil {
			w.dispatcher.RemoveCounters(ctx, removed)
		}
	}
	if w.resolver != nil && u.Instance != "" {
		w.resolver.InstanceName = u.Instance
	}
	if !ready {
		pending := w.pending
		w.pending = nil
		log.WithFields(log.Fields{"worker": w.ID, "queued": len(pending)}).Info("worker: cache is ready")
		for _, it := range pending {
			w.handle(ctx, it)
		}
	}
}

// HandleValue propagates a new value of a binding to its dependent counters.
func (w *Worker) HandleValue(ctx context.Context, v msg.Value) {
	statValues.Inc()
	snap := w.cache.Snapshot()
	objectID, counterID, ok := snap.Binding(v.OCID)
	if !ok {
		statUnknownOCID.Inc()
		log.WithField("ocid", v.OCID).Debug("worker: value for unknown binding")
		return
	}
	parentVars := w.vars[v.OCID]
	for _, t := range w.propagator.Propagate(snap, counterID, objectID, parentVars) {
		w.route(msg.ResolveRequest{
			Property:        t.Property(v.Data),
			ParentVariables: parentVars,
		})
	}
}

// HandleRequest resolves the variables of one counter of one object and,
// unless its update event or a failed variable rules it out, dispatches it.
func (w *Worker) HandleRequest(ctx context.Context, snap *cache.Snapshot, req msg.ResolveRequest) {
	statRequests.Inc()
	prop := req.Property
	logger := log.WithFields(log.Fields{
		"ocid":    prop.OCID,
		"counter": prop.CounterName,
		"object":  prop.ObjectName,
	})

	ctx, span := tracing.NewSpan(ctx, "worker.resolve")
	span.SetTag("ocid", uint64(prop.OCID))
	span.SetTag("counter", prop.CounterName)
	span.SetTag("object", prop.ObjectName)
	defer span.Finish()

	req.UpdateEventState, req.UpdateEventTimestamp = w.state.Get(prop.OCID)
	pre := time.Now()
	res, err := w.resolver.Resolve(ctx, snap, req)
	if res.UpdateEventState != nil {
		w.state.Set(prop.OCID, *res.UpdateEventState, res.UpdateEventTimestamp)
	}
	if prop.Debug {
		logger.Infof("worker: resolved in %s, calculate: %t %s\n%s%s", time.Since(pre), res.Calculate, res.Reason, res.Trace, spew.Sdump(res.Variables))
	}
	if err != nil {
		statFailed.Inc()
		tracing.Error(span, err)
		logger.Warnf("worker: skipping counter: %s", err)
		return
	}
	if !res.Calculate {
		statSkipped.Inc()
		logger.Debugf("worker: not calculating: %s", res.Reason)
		return
	}
	w.vars[prop.OCID] = res.Variables

	counter, ok := snap.Counter(prop.CounterID)
	if !ok || w.dispatcher == nil || prop.Collector == "" {
		return
	}
	params, err := Parameters(counter, res.Variables)
	if err != nil {
		statFailed.Inc()
		logger.Warnf("worker: skipping counter: %s", err)
		return
	}
	job := Job{
		Collector:  prop.Collector,
		Multiplier: counter.SourceMultiplier,
		Resolution: msg.Resolution{
			ID:         prop.OCID,
			CounterID:  prop.CounterID,
			ObjectID:   prop.ObjectID,
			ParentID:   prop.ParentOCID,
			Variables:  res.Variables,
			Parameters: params,
		},
	}
	if err := w.dispatcher.Dispatch(ctx, job); err != nil {
		statDispatchErrors.Inc()
		logger.Warnf("worker: dispatching to %s: %s", prop.Collector, err)
		return
	}
	statDispatched.Inc()
}

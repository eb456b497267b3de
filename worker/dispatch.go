package worker

import (
	"context"
	"sync"
	"time"

	"github.com/alepiz/counterprocessor/collector"
	"github.com/alepiz/counterprocessor/conf"
	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/tracing"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Job is a resolved counter ready for its collector.
type Job struct {
	Collector  string
	Multiplier float64
	Resolution msg.Resolution
}

// Dispatcher hands resolved counters to their collectors.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
	RemoveCounters(ctx context.Context, ocids []schema.OCID) error
}

// Sink receives the values collectors produce.
type Sink func(ctx context.Context, v msg.Value) error

// LocalDispatcher runs collectors in this process and feeds their values
// to Sink. Collectors configured with kafka dispatch go to Remote.
type LocalDispatcher struct {
	Registry collector.Registry
	Settings conf.Collectors
	Remote   Dispatcher
	Sink     Sink
	Now      func() time.Time

	sync.Mutex
	instances map[string]collector.Collector
}

func NewLocalDispatcher(registry collector.Registry, settings conf.Collectors, sink Sink) *LocalDispatcher {
	return &LocalDispatcher{
		Registry:  registry,
		Settings:  settings,
		Sink:      sink,
		Now:       time.Now,
		instances: make(map[string]collector.Collector),
	}
}

// instance returns the collector of the given name, creating it on first use.
func (d *LocalDispatcher) instance(name string) (collector.Collector, error) {
	d.Lock()
	defer d.Unlock()
	if c, ok := d.instances[name]; ok {
		return c, nil
	}
	create, ok := d.Registry.Lookup(name)
	if !ok {
		return nil, errors.New(errors.CollectorError, "unknown collector %q", name)
	}
	s := d.Settings.Get(name)
	c := collector.Throttle(create(), s.Pause, s.Burst)
	d.instances[name] = c
	return c, nil
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, job Job) error {
	if d.Remote != nil && d.Settings.Get(job.Collector).Dispatch == conf.DispatchKafka {
		return d.Remote.Dispatch(ctx, job)
	}
	c, err := d.instance(job.Collector)
	if err != nil {
		return err
	}

	ctx, span := tracing.NewSpan(ctx, "collector.dispatch")
	span.SetTag("collector", job.Collector)
	span.SetTag("ocid", uint64(job.Resolution.ID))
	defer span.Finish()

	v, err := collector.Get(ctx, job.Collector, c, job.Resolution)
	if err != nil {
		tracing.Error(span, err)
		return err
	}
	if v == nil || d.Sink == nil {
		return nil
	}
	return d.Sink(ctx, msg.Value{
		OCID:      job.Resolution.ID,
		Timestamp: d.Now().UnixNano() / int64(time.Millisecond),
		Data:      multiply(v, job.Multiplier),
	})
}

// RemoveCounters tells every collector created so far, and the remote
// dispatcher, that the bindings are gone.
func (d *LocalDispatcher) RemoveCounters(ctx context.Context, ocids []schema.OCID) error {
	d.Lock()
	instances := make(map[string]collector.Collector, len(d.instances))
	for name, c := range d.instances {
		instances[name] = c
	}
	d.Unlock()

	var errs *multierror.Error
	for name, c := range instances {
		if err := c.RemoveCounters(ctx, ocids); err != nil {
			errs = multierror.Append(errs, errors.Wrap(errors.CollectorError, err, "%s", name))
		}
	}
	if d.Remote != nil {
		if err := d.Remote.RemoveCounters(ctx, ocids); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		log.WithField("ocids", len(ocids)).Warnf("worker: removing counters: %s", err)
		return err
	}
	return nil
}

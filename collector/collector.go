// Package collector defines how counters obtain their values. Collectors
// are registered by name; a counter names the collector that produces its
// value and gets its resolved parameters handed to it.
package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"golang.org/x/time/rate"
)

var (
	// metric collector.get is the duration of a collector call
	statGetDuration = stats.NewLatencyHistogram15s32("collector.get")
	// metric collector.errors is the number of failed collector calls
	statErrors = stats.NewCounter32("collector.errors")
)

// Collector produces the value of a counter from its resolved parameters.
type Collector interface {
	// Get returns the value, nil if there is none.
	Get(ctx context.Context, params msg.Resolution) (interface{}, error)
	// RemoveCounters releases whatever the collector holds for the bindings.
	RemoveCounters(ctx context.Context, ocids []schema.OCID) error
}

// Throttler is implemented by collectors that must not be called more
// often than once per pause.
type Throttler interface {
	ThrottlingPause() time.Duration
}

type Creator func() Collector

// Registry is a collection of Creators.
type Registry map[string]Creator

var DefaultRegistry = Registry{}

// rawParameters are the parameters a collector evaluates itself. They are
// handed over as written, without variable substitution.
var rawParameters = map[string]map[string]bool{
	"calc": {"expression": true},
}

// RawParameter tells whether the parameter param of the collector name
// must be handed over without variable substitution.
func RawParameter(name, param string) bool {
	return rawParameters[name][param]
}

// Register registers a collector in the DefaultRegistry.
func Register(name string, creator Creator) {
	DefaultRegistry.Register(name, creator)
}

func (r Registry) Register(name string, creator Creator) {
	if _, ok := r[name]; ok {
		panic(fmt.Sprintf("collector %s is already in registry", name))
	}
	r[name] = creator
}

func (r Registry) Lookup(name string) (Creator, bool) {
	c, ok := r[name]
	return c, ok
}

func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Throttled spaces the calls to a collector by a minimum pause.
type Throttled struct {
	Collector
	limiter *rate.Limiter
}

// Throttle wraps c so that calls are spaced by pause, allowing bursts of
// burst calls. Without a pause, the ThrottlingPause of c is used, if any.
// It returns c itself if there is nothing to throttle.
func Throttle(c Collector, pause time.Duration, burst int) Collector {
	if pause <= 0 {
		if t, ok := c.(Throttler); ok {
			pause = t.ThrottlingPause()
		}
	}
	if pause <= 0 {
		return c
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		Collector: c,
		limiter:   rate.NewLimiter(rate.Every(pause), burst),
	}
}

func (t *Throttled) Get(ctx context.Context, params msg.Resolution) (interface{}, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Collector.Get(ctx, params)
}

// Get calls c and classifies its failures as collector errors.
func Get(ctx context.Context, name string, c Collector, params msg.Resolution) (interface{}, error) {
	pre := time.Now()
	v, err := c.Get(ctx, params)
	statGetDuration.Value(time.Since(pre))
	if err != nil {
		statErrors.Inc()
		return nil, errors.Wrap(errors.CollectorError, err, "%s, OCID %d", name, params.ID)
	}
	return v, nil
}

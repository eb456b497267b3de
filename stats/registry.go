package stats

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

var errFmtMetricExists = "fatal: metric %q already exists as type %T"

var registry = NewRegistry()

// Metric is anything that can render itself as "name value timestamp" lines.
type Metric interface {
	Report(prefix, buf []byte, now time.Time) []byte
}

// Registry tracks metrics and reporters
type Registry struct {
	sync.Mutex
	metrics map[string]Metric
}

func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]Metric),
	}
}

func (r *Registry) getOrAdd(name string, metric Metric) Metric {
	r.Lock()
	if existing, ok := r.metrics[name]; ok {
		if reflect.TypeOf(existing) == reflect.TypeOf(metric) {
			r.Unlock()
			return existing
		}
		panic(fmt.Sprintf(errFmtMetricExists, name, existing))
	}
	r.metrics[name] = metric
	r.Unlock()
	return metric
}

func (r *Registry) list() map[string]Metric {
	metrics := make(map[string]Metric)
	r.Lock()
	for name, metric := range r.metrics {
		metrics[name] = metric
	}
	r.Unlock()
	return metrics
}

func (r *Registry) Clear() {
	r.Lock()
	r.metrics = make(map[string]Metric)
	r.Unlock()
}

// Dump renders all registered metrics, sorted by name.
func Dump(prefix string, now time.Time) []byte {
	metrics := registry.list()
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	var buf []byte
	for _, name := range names {
		buf = metrics[name].Report([]byte(prefix+name+"."), buf, now)
	}
	return buf
}

// Package cache holds the counter/object/variable graph of one process.
// It is changed only through Apply; readers work on immutable snapshots,
// so that one resolution pass sees a single generation of the graph.
package cache

import (
	"sort"
	"strings"
	"sync"

	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	log "github.com/sirupsen/logrus"
)

var (
	// metric cache.updates.full is the number of full cache updates applied
	statFullUpdates = stats.NewCounter32("cache.updates.full")
	// metric cache.updates.partial is the number of partial cache updates applied
	statPartialUpdates = stats.NewCounter32("cache.updates.partial")
	// metric cache.generation is the generation of the cache
	statGeneration = stats.NewGauge32("cache.generation")
	// metric cache.counters is the number of counters in the cache
	statCounters = stats.NewGauge32("cache.counters")
	// metric cache.ocids is the number of object-counter bindings in the cache
	statOCIDs = stats.NewGauge32("cache.ocids")
)

type binding struct {
	ObjectID  uint64
	CounterID uint64
}

// Snapshot is one generation of the cache. It must not be modified.
type Snapshot struct {
	Generation uint64
	Instance   string

	counters    map[uint64]*schema.Counter
	objects     map[uint64]*schema.Object
	properties  map[uint64][]schema.Property      // by object id
	expressions map[uint64][]schema.ExpressionVar // by counter id
	history     map[uint64][]schema.HistoryVar    // by counter id

	// derived indexes
	ocids         map[string]map[uint64]schema.OCID // lowercased object name -> counter id -> ocid
	bindings      map[schema.OCID]binding
	counterByName map[string]uint64 // lowercased
	objectByName  map[string]uint64 // lowercased
}

func emptySnapshot() *Snapshot {
	s := &Snapshot{
		counters:    make(map[uint64]*schema.Counter),
		objects:     make(map[uint64]*schema.Object),
		properties:  make(map[uint64][]schema.Property),
		expressions: make(map[uint64][]schema.ExpressionVar),
		history:     make(map[uint64][]schema.HistoryVar),
	}
	s.index()
	return s
}

func (s *Snapshot) index() {
	s.ocids = make(map[string]map[uint64]schema.OCID)
	s.bindings = make(map[schema.OCID]binding)
	s.counterByName = make(map[string]uint64, len(s.counters))
	s.objectByName = make(map[string]uint64, len(s.objects))
	for id, o := range s.objects {
		s.objectByName[strings.ToLower(o.Name)] = id
	}
	for id, c := range s.counters {
		s.counterByName[strings.ToLower(c.Name)] = id
		for objectID, ocid := range c.Objects {
			s.bindings[ocid] = binding{ObjectID: objectID, CounterID: id}
			o, ok := s.objects[objectID]
			if !ok {
				continue
			}
			name := strings.ToLower(o.Name)
			byCounter, ok := s.ocids[name]
			if !ok {
				byCounter = make(map[uint64]schema.OCID)
				s.ocids[name] = byCounter
			}
			byCounter[id] = ocid
		}
	}
}

func (s *Snapshot) Counter(id uint64) (*schema.Counter, bool) {
	c, ok := s.counters[id]
	return c, ok
}

func (s *Snapshot) Object(id uint64) (*schema.Object, bool) {
	o, ok := s.objects[id]
	return o, ok
}

// CounterID looks a counter up by its case-insensitive name.
func (s *Snapshot) CounterID(name string) (uint64, bool) {
	id, ok := s.counterByName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// ObjectID looks an object up by its case-insensitive name.
func (s *Snapshot) ObjectID(name string) (uint64, bool) {
	id, ok := s.objectByName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// OCID returns the binding of the named object to the counter.
func (s *Snapshot) OCID(objectName string, counterID uint64) (schema.OCID, bool) {
	ocid, ok := s.ocids[strings.ToLower(strings.TrimSpace(objectName))][counterID]
	return ocid, ok
}

// Binding returns the object and counter of ocid.
func (s *Snapshot) Binding(ocid schema.OCID) (objectID, counterID uint64, ok bool) {
	b, ok := s.bindings[ocid]
	return b.ObjectID, b.CounterID, ok
}

func (s *Snapshot) Properties(objectID uint64) []schema.Property {
	return s.properties[objectID]
}

func (s *Snapshot) Expressions(counterID uint64) []schema.ExpressionVar {
	return s.expressions[counterID]
}

func (s *Snapshot) History(counterID uint64) []schema.HistoryVar {
	return s.history[counterID]
}

// OCIDs returns all bindings, sorted.
func (s *Snapshot) OCIDs() []schema.OCID {
	out := make([]schema.OCID, 0, len(s.bindings))
	for ocid := range s.bindings {
		out = append(out, ocid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of counters, objects and bindings.
func (s *Snapshot) Len() (counters, objects, ocids int) {
	return len(s.counters), len(s.objects), len(s.bindings)
}

// Cache is the per-process cache. The zero value is not usable, use New.
type Cache struct {
	sync.RWMutex
	cur   *Snapshot
	ready bool
}

func New() *Cache {
	return &Cache{cur: emptySnapshot()}
}

// Snapshot returns the current generation.
func (c *Cache) Snapshot() *Snapshot {
	c.RLock()
	defer c.RUnlock()
	return c.cur
}

// Ready reports whether an update was applied yet.
func (c *Cache) Ready() bool {
	c.RLock()
	defer c.RUnlock()
	return c.ready
}

// Apply builds the next generation from u and returns the bindings that no
// longer exist in it. Nil parts of u leave the cache unchanged. With
// u.FullUpdate the parts u carries replace the current contents, otherwise
// only the keys they carry are replaced and keys with empty values removed.
func (c *Cache) Apply(u msg.CacheUpdate) []schema.OCID {
	c.Lock()
	defer c.Unlock()

	old := c.cur
	next := &Snapshot{
		Generation:  old.Generation + 1,
		Instance:    old.Instance,
		counters:    old.counters,
		objects:     old.objects,
		properties:  old.properties,
		expressions: old.expressions,
		history:     old.history,
	}
	if u.Instance != "" {
		next.Instance = u.Instance
	}
	if u.CountersObjects != nil {
		next.counters = mergePtr(old.counters, u.CountersObjects.Counters, u.FullUpdate)
		next.objects = mergePtr(old.objects, u.CountersObjects.Objects, u.FullUpdate)
	}
	if u.ObjectsProperties != nil {
		next.properties = mergeSlice(old.properties, u.ObjectsProperties, u.FullUpdate)
	}
	if u.VariablesExpressions != nil {
		next.expressions = mergeSlice(old.expressions, u.VariablesExpressions, u.FullUpdate)
	}
	if u.VariablesHistory != nil {
		next.history = mergeSlice(old.history, u.VariablesHistory, u.FullUpdate)
	}
	next.index()

	var removed []schema.OCID
	for ocid := range old.bindings {
		if _, ok := next.bindings[ocid]; !ok {
			removed = append(removed, ocid)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })

	c.cur = next
	c.ready = true

	if u.FullUpdate {
		statFullUpdates.Inc()
	} else {
		statPartialUpdates.Inc()
	}
	counters, objects, ocids := next.Len()
	statGeneration.Set(int(next.Generation))
	statCounters.Set(counters)
	statOCIDs.Set(ocids)
	log.WithFields(log.Fields{
		"generation": next.Generation,
		"full":       u.FullUpdate,
		"counters":   counters,
		"objects":    objects,
		"ocids":      ocids,
		"removed":    len(removed),
	}).Debug("cache: update applied")
	return removed
}

func mergePtr[T any](old, upd map[uint64]*T, full bool) map[uint64]*T {
	out := make(map[uint64]*T, len(old)+len(upd))
	if !full {
		for k, v := range old {
			out[k] = v
		}
	}
	for k, v := range upd {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

func mergeSlice[T any](old, upd map[uint64][]T, full bool) map[uint64][]T {
	out := make(map[uint64][]T, len(old)+len(upd))
	if !full {
		for k, v := range old {
			out[k] = v
		}
	}
	for k, v := range upd {
		if len(v) == 0 {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Package propagate turns a new value of a parent counter into the list of
// dependent counters and objects to recalculate.
package propagate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/alepiz/counterprocessor/cache"
	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/expr"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	lru "github.com/hashicorp/golang-lru"
	log "github.com/sirupsen/logrus"
)

var (
	// metric propagate.targets is the number of recalculation targets produced
	statTargets = stats.NewCounter32("propagate.targets")
	// metric propagate.filter.skipped is the number of update events skipped because their object filter was unusable
	statFilterSkipped = stats.NewCounter32("propagate.filter.skipped")
)

// Target is one dependent counter of one object to recalculate.
type Target struct {
	CounterID    uint64
	ObjectID     uint64
	OCID         schema.OCID
	Expression   string
	Mode         schema.UpdateMode
	ObjectFilter string
	Order        int

	CounterName string
	ObjectName  string
	Collector   string
	Debug       bool

	ParentOCID        schema.OCID
	ParentCounterName string
	ParentObjectName  string
}

// Property builds the resolve request property of the target.
func (t Target) Property(parentValue interface{}) msg.ResolveProperty {
	return msg.ResolveProperty{
		OCID:              t.OCID,
		ObjectID:          t.ObjectID,
		ObjectName:        t.ObjectName,
		CounterID:         t.CounterID,
		CounterName:       t.CounterName,
		Collector:         t.Collector,
		Debug:             t.Debug,
		Expression:        t.Expression,
		Mode:              t.Mode,
		ParentOCID:        t.ParentOCID,
		ParentObjectName:  t.ParentObjectName,
		ParentCounterName: t.ParentCounterName,
		ParentObjectValue: parentValue,
	}
}

// Propagator keeps compiled object filters across calls.
type Propagator struct {
	filters *lru.Cache
}

func New(filterCacheSize int) *Propagator {
	if filterCacheSize <= 0 {
		filterCacheSize = 1000
	}
	c, _ := lru.New(filterCacheSize)
	return &Propagator{filters: c}
}

// Propagate returns the targets the update events of the parent counter
// yield for a new value of the parent on parentObjectID. Object filters may
// reference vars, the resolved variables of the parent.
// Targets are sorted by update event order, counter id and object id.
func (p *Propagator) Propagate(snap *cache.Snapshot, parentCounterID, parentObjectID uint64, vars map[string]interface{}) []Target {
	parent, ok := snap.Counter(parentCounterID)
	if !ok {
		return nil
	}
	var parentObjectName string
	if o, ok := snap.Object(parentObjectID); ok {
		parentObjectName = o.Name
	}
	parentOCID, _ := parent.OCID(parentObjectID)

	var targets []Target
	for counterID, ue := range parent.DependedUpdateEvents {
		if ue.ParentObjectID != 0 && ue.ParentObjectID != parentObjectID {
			continue
		}
		dep, ok := snap.Counter(counterID)
		if !ok {
			continue
		}
		logger := log.WithFields(log.Fields{
			"counter":       dep.Name,
			"parentCounter": parent.Name,
			"parentObject":  parentObjectName,
		})

		var filter *regexp.Regexp
		if ue.ObjectFilter != "" {
			var err error
			filter, err = p.filter(ue.ObjectFilter, vars)
			if err != nil {
				statFilterSkipped.Inc()
				logger.WithField("objectFilter", ue.ObjectFilter).Warnf("propagate: skipping update event: %s", err)
				continue
			}
		}

		var objectIDs []uint64
		if ue.ParentObjectID != 0 {
			if _, ok := dep.Objects[parentObjectID]; ok {
				objectIDs = append(objectIDs, parentObjectID)
			}
		} else {
			for objectID := range dep.Objects {
				objectIDs = append(objectIDs, objectID)
			}
		}

		for _, objectID := range objectIDs {
			o, ok := snap.Object(objectID)
			if !ok {
				continue
			}
			if filter != nil && !filter.MatchString(o.Name) {
				continue
			}
			targets = append(targets, Target{
				CounterID:         counterID,
				ObjectID:          objectID,
				OCID:              dep.Objects[objectID],
				Expression:        ue.Expression,
				Mode:              ue.Mode,
				ObjectFilter:      ue.ObjectFilter,
				Order:             ue.Order,
				CounterName:       dep.Name,
				ObjectName:        o.Name,
				Collector:         dep.Collector,
				Debug:             dep.Debug,
				ParentOCID:        parentOCID,
				ParentCounterName: parent.Name,
				ParentObjectName:  parentObjectName,
			})
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		a, b := targets[i], targets[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.CounterID != b.CounterID {
			return a.CounterID < b.CounterID
		}
		return a.ObjectID < b.ObjectID
	})
	statTargets.Add(len(targets))
	return targets
}

// filter substitutes the variables of an object filter and compiles it
// case-insensitively.
func (p *Propagator) filter(text string, vars map[string]interface{}) (*regexp.Regexp, error) {
	if expr.HasRefs(text) {
		get := func(name string) (interface{}, error) {
			v, ok := lookup(vars, name)
			if !ok {
				return nil, errors.ErrUnknownVariable
			}
			return v, nil
		}
		s, unresolved, err := expr.Substitute(text, get)
		if err != nil {
			return nil, err
		}
		if len(unresolved) > 0 {
			return nil, errors.New(errors.UnresolvedReference, "%s", strings.Join(unresolved, ", "))
		}
		text = s
	}
	if re, ok := p.filters.Get(text); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?i)" + text)
	if err != nil {
		return nil, err
	}
	p.filters.Add(text, re)
	return re, nil
}

func lookup(vars map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := vars[name]; ok {
		return v, true
	}
	key := schema.VarKey(name)
	for k, v := range vars {
		if schema.VarKey(k) == key {
			return v, true
		}
	}
	return nil, false
}

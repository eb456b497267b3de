// Package updateevent decides whether a dependent counter is recalculated,
// given the boolean result of its update event expression, the update mode
// and the result of the previous cycle.
package updateevent

import (
	"fmt"

	"github.com/alepiz/counterprocessor/schema"
)

// AlwaysCalculate describes the state of a counter without an update event.
// Such counters are recalculated on every parent value.
const AlwaysCalculate = "calculation is always required"

// Decide returns "" if the counter must be recalculated, and otherwise the
// reason why it is skipped. prev is nil when there is no previous result.
func Decide(result bool, mode schema.UpdateMode, prev *bool) string {
	changed := prev == nil || *prev != result
	switch mode {
	case schema.UpdateEveryTimeTrue:
		if result {
			return ""
		}
		return "update event is false"
	case schema.UpdateOnceTrue:
		if result && changed {
			return ""
		}
		if !result {
			return "update event is false"
		}
		return "update event is still true"
	case schema.UpdateOnceChange:
		if changed {
			return ""
		}
		return fmt.Sprintf("update event is still %t", result)
	case schema.UpdateEveryTimeTrueOnceFalse:
		if result || (prev != nil && *prev) {
			return ""
		}
		return "update event is still false"
	case schema.UpdateOnceFalse:
		if !result && changed {
			return ""
		}
		if result {
			return "update event is true"
		}
		return "update event is still false"
	}
	return fmt.Sprintf("unknown update mode %d", mode)
}

// Entry is the outcome of the previous evaluation of an update event.
type Entry struct {
	Result    bool
	Timestamp int64 // ms, when Result last changed
}

// State tracks the previous update event outcome per binding.
// It is owned by a single worker and is not safe for concurrent use.
type State map[schema.OCID]Entry

// Get returns the previous result of ocid, nil if there is none, and the
// time it last changed.
func (s State) Get(ocid schema.OCID) (*bool, int64) {
	e, ok := s[ocid]
	if !ok {
		return nil, 0
	}
	return &e.Result, e.Timestamp
}

// Set records the outcome of ocid.
func (s State) Set(ocid schema.OCID, result bool, ts int64) {
	s[ocid] = Entry{Result: result, Timestamp: ts}
}

func (s State) Remove(ocids ...schema.OCID) {
	for _, id := range ocids {
		delete(s, id)
	}
}

package msg

import (
	"encoding/json"

	"github.com/alepiz/counterprocessor/schema"
)

// CountersObjects is the counter/object graph. Counters carry their linked
// objects and the update events they trigger.
type CountersObjects struct {
	Counters map[uint64]*schema.Counter `json:"counters"`
	Objects  map[uint64]*schema.Object  `json:"objects"`
}

// CacheUpdate changes the per-process cache. A nil field means no change
// to that part of the cache. With FullUpdate set, the given parts replace
// the cache contents, otherwise only the keys they carry are replaced.
type CacheUpdate struct {
	Instance             string                            `json:"alepizInstance,omitempty"`
	CountersObjects      *CountersObjects                  `json:"countersObjects,omitempty"`
	VariablesHistory     map[uint64][]schema.HistoryVar    `json:"variablesHistory,omitempty"`    // by counter id
	VariablesExpressions map[uint64][]schema.ExpressionVar `json:"variablesExpressions,omitempty"` // by counter id
	ObjectsProperties    map[uint64][]schema.Property      `json:"objectsProperties,omitempty"`    // by object id
	FullUpdate           bool                              `json:"fullUpdate,omitempty"`
}

// Value is a new value a collector produced for a binding.
type Value struct {
	OCID      schema.OCID `json:"OCID"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ResolveProperty describes one counter of one object to recalculate.
type ResolveProperty struct {
	OCID              schema.OCID       `json:"OCID"`
	ObjectID          uint64            `json:"objectID"`
	ObjectName        string            `json:"objectName"`
	CounterID         uint64            `json:"counterID"`
	CounterName       string            `json:"counterName"`
	Collector         string            `json:"collector"`
	Debug             bool              `json:"debug,omitempty"`
	Expression        string            `json:"expression,omitempty"`
	Mode              schema.UpdateMode `json:"mode"`
	ParentOCID        schema.OCID       `json:"parentOCID,omitempty"`
	ParentObjectName  string            `json:"parentObjectName,omitempty"`
	ParentCounterName string            `json:"parentCounterName,omitempty"`
	ParentObjectValue interface{}       `json:"parentObjectValue,omitempty"`
}

// ResolveRequest asks for the variables of one target to be resolved.
// UpdateEventState is the previous boolean result of the update event,
// nil when there is no history.
type ResolveRequest struct {
	Property             ResolveProperty        `json:"property"`
	ParentVariables      map[string]interface{} `json:"parentVariables,omitempty"`
	UpdateEventState     *bool                  `json:"updateEventState,omitempty"`
	UpdateEventTimestamp int64                  `json:"updateEventTimestamp,omitempty"`
}

// Resolution is the parameter set handed to a collector.
type Resolution struct {
	ID         schema.OCID
	CounterID  uint64
	ObjectID   uint64
	ParentID   schema.OCID
	Variables  map[string]interface{}
	Parameters map[string]interface{}
}

// MarshalJSON renders the resolution flat, the way collectors receive it:
// reserved keys start with $, collector parameters are top level.
func (r Resolution) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Parameters)+5)
	for k, v := range r.Parameters {
		out[k] = v
	}
	out["$id"] = r.ID
	out["$counterID"] = r.CounterID
	out["$objectID"] = r.ObjectID
	out["$parentID"] = r.ParentID
	out["$variables"] = r.Variables
	return json.Marshal(out)
}

func (r *Resolution) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Resolution{Parameters: make(map[string]interface{})}
	for k, v := range raw {
		var err error
		switch k {
		case "$id":
			err = json.Unmarshal(v, &r.ID)
		case "$counterID":
			err = json.Unmarshal(v, &r.CounterID)
		case "$objectID":
			err = json.Unmarshal(v, &r.ObjectID)
		case "$parentID":
			err = json.Unmarshal(v, &r.ParentID)
		case "$variables":
			err = json.Unmarshal(v, &r.Variables)
		default:
			var p interface{}
			err = json.Unmarshal(v, &p)
			r.Parameters[k] = p
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WantType selects how record data is returned by a history fetch.
type WantType uint8

const (
	WantAny         WantType = iota // data as stored
	WantNumeric                     // numeric strings converted to numbers
	WantString                      // everything converted to strings
	WantPassThrough                 // data as stored, records handed on to the caller untouched
)

func (w WantType) String() string {
	switch w {
	case WantNumeric:
		return "numeric"
	case WantString:
		return "string"
	case WantPassThrough:
		return "passthrough"
	}
	return "any"
}

// FetchRequest asks the history store for a window of one binding.
// In position mode Shift is the number of records to skip back from the
// newest and Count the number of records. In time mode Shift and Count are
// the from and to timestamps in ms.
type FetchRequest struct {
	ID       schema.OCID `json:"id"`
	Position bool        `json:"position"`
	Shift    int64       `json:"shift"`
	Count    int64       `json:"count"`
	WantType WantType    `json:"wantType"`
}

// FetchResponse holds the records of a window, oldest first.
// GotAll is false when the store knows the window is truncated.
type FetchResponse struct {
	Records []schema.Record `json:"records"`
	GotAll  bool            `json:"gotAll"`
}

// Job hands a resolved counter to a collector running in another process.
// A job with Removed set carries no resolution: it tells the collector the
// bindings are gone.
type Job struct {
	Collector  string        `json:"collector"`
	Multiplier float64       `json:"multiplier,omitempty"`
	Resolution *Resolution   `json:"resolution,omitempty"`
	Removed    []schema.OCID `json:"removed,omitempty"`
}

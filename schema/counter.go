package schema

import "strings"

// OCID identifies one (object, counter) binding. It is the addressing key
// of the time-series store and of update-event state.
type OCID uint64

type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Counter struct {
	ID               uint64      `json:"id"`
	Name             string      `json:"name"`
	Collector        string      `json:"collector"`
	GroupID          uint64      `json:"groupID"`
	Debug            bool        `json:"debug"`
	TaskCondition    bool        `json:"taskCondition"`
	SourceMultiplier float64     `json:"sourceMultiplier"`
	Parameters       []Parameter `json:"parameters"`

	// DependedUpdateEvents are the update events this counter triggers in
	// other counters, keyed by the dependent counter id.
	DependedUpdateEvents map[uint64]UpdateEvent `json:"dependedUpdateEvents"`

	// Objects maps a linked object id to its binding.
	Objects map[uint64]OCID `json:"objects"`
}

// OCID returns the binding of the counter to the given object.
func (c *Counter) OCID(objectID uint64) (OCID, bool) {
	ocid, ok := c.Objects[objectID]
	return ocid, ok
}

type Object struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// UpdateMode selects when a dependent counter is recalculated
// given the boolean result of its update event expression.
type UpdateMode uint8

const (
	UpdateEveryTimeTrue UpdateMode = iota
	UpdateOnceTrue
	UpdateOnceChange
	UpdateEveryTimeTrueOnceFalse
	UpdateOnceFalse
)

func (m UpdateMode) Valid() bool {
	return m <= UpdateOnceFalse
}

type UpdateEvent struct {
	ParentCounterID uint64 `json:"parentCounterID"`
	CounterID       uint64 `json:"counterID"`
	// ParentObjectID of 0 means the event applies to the same object as the parent.
	ParentObjectID uint64     `json:"parentObjectID"`
	Expression     string     `json:"expression"`
	Mode           UpdateMode `json:"mode"`
	ObjectFilter   string     `json:"objectFilter"`
	Order          int        `json:"order"`
}

// VarKey normalizes a variable name. Variable names are case-insensitive.
func VarKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

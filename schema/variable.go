package schema

// PropertyMode is the editing mode of an object property.
// Only PropertyExpression properties are evaluated as expressions,
// everything else is substituted literally.
type PropertyMode uint8

const (
	PropertyText PropertyMode = iota
	PropertyCheckbox
	PropertyTextArea
	PropertyExpression
)

type Property struct {
	ObjectID    uint64       `json:"objectID"`
	Name        string       `json:"name"`
	Value       string       `json:"value"`
	Mode        PropertyMode `json:"mode"`
	Description string       `json:"description,omitempty"`
}

func (p Property) IsExpression() bool {
	return p.Mode == PropertyExpression
}

type ExpressionVar struct {
	CounterID   uint64 `json:"counterID"`
	Name        string `json:"name"`
	Expression  string `json:"expression"`
	Description string `json:"description,omitempty"`
}

// HistoryVar is a variable computed by an aggregation function over the
// history of one binding. The binding is either given directly (OCID) or
// derived from ObjectName (which may reference other variables) and the
// parent counter.
type HistoryVar struct {
	CounterID         uint64   `json:"counterID"`
	Name              string   `json:"name"`
	Function          string   `json:"function"`
	Args              []string `json:"args"`
	OCID              OCID     `json:"OCID,omitempty"`
	ObjectName        string   `json:"objectName,omitempty"`
	ParentCounterName string   `json:"parentCounterName,omitempty"`
	ParentCounterID   uint64   `json:"parentCounterID,omitempty"`
	Description       string   `json:"description,omitempty"`
}

// VarKind tells which of the three variable sources declared a variable.
type VarKind uint8

const (
	KindUnknown VarKind = iota
	KindProperty
	KindExpression
	KindHistory
	KindContext
	KindParent
)

func (k VarKind) String() string {
	switch k {
	case KindProperty:
		return "property"
	case KindExpression:
		return "expression"
	case KindHistory:
		return "history"
	case KindContext:
		return "context"
	case KindParent:
		return "parent"
	}
	return "unknown"
}

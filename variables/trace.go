package variables

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alepiz/counterprocessor/schema"
)

// Step records how one variable was obtained.
type Step struct {
	Name       string
	Kind       schema.VarKind
	Expression string                 `json:",omitempty"`
	Inputs     map[string]interface{} `json:",omitempty"`
	Result     interface{}
	Records    []schema.Record `json:",omitempty"`
	Err        string          `json:",omitempty"`
}

// Trace lists the steps of a resolution in evaluation order.
// Variables a step depends on come before it.
type Trace []Step

// Get returns the step of the named variable.
func (t Trace) Get(name string) (Step, bool) {
	key := schema.VarKey(name)
	for _, s := range t {
		if s.Name == key {
			return s, true
		}
	}
	return Step{}, false
}

func (t Trace) String() string {
	var b strings.Builder
	for _, s := range t {
		fmt.Fprintf(&b, "%s (%s)", s.Name, s.Kind)
		if s.Expression != "" {
			fmt.Fprintf(&b, " %s", s.Expression)
		}
		if s.Err != "" {
			fmt.Fprintf(&b, " failed: %s\n", s.Err)
			continue
		}
		fmt.Fprintf(&b, " = %s", format(s.Result))
		if len(s.Inputs) > 0 {
			names := make([]string, 0, len(s.Inputs))
			for n := range s.Inputs {
				names = append(names, n)
			}
			sort.Strings(names)
			parts := make([]string, len(names))
			for i, n := range names {
				parts[i] = n + "=" + format(s.Inputs[n])
			}
			fmt.Fprintf(&b, " from %s", strings.Join(parts, ", "))
		}
		if len(s.Records) > 0 {
			fmt.Fprintf(&b, " over %d records", len(s.Records))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func format(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "no data"
	case string:
		return fmt.Sprintf("%q", t)
	case float64:
		return schema.ToString(t)
	}
	return fmt.Sprintf("%v", v)
}

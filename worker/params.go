package worker

import (
	"github.com/alepiz/counterprocessor/collector"
	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/expr"
	"github.com/alepiz/counterprocessor/human"
	"github.com/alepiz/counterprocessor/schema"
)

// Parameters substitutes the resolved variables into the collector
// parameters of a counter. Values with a unit suffix become numbers.
// Parameters the collector evaluates itself are kept as written.
func Parameters(c *schema.Counter, vars map[string]interface{}) (map[string]interface{}, error) {
	get := func(name string) (interface{}, error) {
		v, ok := vars[schema.VarKey(name)]
		if !ok {
			return nil, errors.ErrUnknownVariable
		}
		return v, nil
	}
	params := make(map[string]interface{}, len(c.Parameters))
	for _, p := range c.Parameters {
		if collector.RawParameter(c.Collector, p.Name) {
			params[p.Name] = p.Value
			continue
		}
		s, _, err := expr.Substitute(p.Value, get)
		if err != nil {
			return nil, errors.Attribute(err, errors.UnresolvedReference, "", c.Name, p.Name)
		}
		params[p.Name] = human.FromHuman(s)
	}
	return params, nil
}

// multiply applies the source multiplier of a counter to a numeric value.
func multiply(v interface{}, multiplier float64) interface{} {
	if multiplier == 0 || multiplier == 1 {
		return v
	}
	if f, ok := schema.ToFloat(v); ok {
		return f * multiplier
	}
	return v
}

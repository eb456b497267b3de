package variables

import (
	"fmt"
	"strings"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/expr"
	"github.com/alepiz/counterprocessor/functions"
	"github.com/alepiz/counterprocessor/human"
	"github.com/alepiz/counterprocessor/schema"
)

// evalProperty evaluates expression properties and substitutes the
// references of all others. Values with a unit suffix become numbers.
func evalProperty(prop schema.Property, get expr.Getter) (interface{}, error) {
	if prop.IsExpression() {
		return expr.Eval(prop.Value, get)
	}
	s, _, err := expr.Substitute(prop.Value, get)
	if err != nil {
		return nil, err
	}
	return human.FromHuman(s), nil
}

// evalHistory runs the aggregation function of a history variable.
// A function without data yields nil.
func (p *pass) evalHistory(h schema.HistoryVar, get expr.Getter) (interface{}, []schema.Record, error) {
	ocid, err := p.historyOCID(h, get)
	if err != nil {
		return nil, nil, err
	}
	args := make([]interface{}, len(h.Args))
	for i, a := range h.Args {
		s, unresolved, err := expr.Substitute(a, get)
		if err != nil {
			return nil, nil, err
		}
		if len(unresolved) > 0 {
			// an argument with an unresolved optional reference is omitted
			args[i] = nil
			continue
		}
		args[i] = human.FromHuman(strings.TrimSpace(s))
	}
	res, err := functions.Call(p.ctx, p.r.Env, h.Function, ocid, args)
	if err != nil {
		return nil, res.Records, err
	}
	if !res.HasData {
		return nil, res.Records, nil
	}
	return res.Data, res.Records, nil
}

// historyOCID finds the binding a history variable reads. Without an
// explicit OCID it pairs the object name, by default the object being
// resolved, with the parent counter, by default the counter being resolved.
func (p *pass) historyOCID(h schema.HistoryVar, get expr.Getter) (schema.OCID, error) {
	if h.OCID != 0 {
		return h.OCID, nil
	}
	objectName := p.prop.ObjectName
	if h.ObjectName != "" {
		s, unresolved, err := expr.Substitute(h.ObjectName, get)
		if err != nil {
			return 0, err
		}
		if len(unresolved) > 0 {
			return 0, errors.New(errors.MissingOCID, "object name %q is unresolved", h.ObjectName)
		}
		objectName = strings.TrimSpace(s)
	}
	counterID := p.prop.CounterID
	switch {
	case h.ParentCounterID != 0:
		counterID = h.ParentCounterID
	case h.ParentCounterName != "":
		s, _, err := expr.Substitute(h.ParentCounterName, get)
		if err != nil {
			return 0, err
		}
		id, ok := p.g.CounterID(s)
		if !ok {
			return 0, errors.New(errors.MissingOCID, "unknown counter %q", s)
		}
		counterID = id
	}
	ocid, ok := p.g.OCID(objectName, counterID)
	if !ok {
		return 0, errors.New(errors.MissingOCID, "object %q is not linked to counter %d", objectName, counterID)
	}
	return ocid, nil
}

// describeHistory renders a history variable the way it is written,
// e.g. avg(10m, , 5) of db-1.
func describeHistory(h schema.HistoryVar) string {
	s := fmt.Sprintf("%s(%s)", h.Function, strings.Join(h.Args, ", "))
	switch {
	case h.OCID != 0:
		return fmt.Sprintf("%s of OCID %d", s, h.OCID)
	case h.ObjectName != "" && h.ParentCounterName != "":
		return fmt.Sprintf("%s of %s: %s", s, h.ObjectName, h.ParentCounterName)
	case h.ObjectName != "":
		return fmt.Sprintf("%s of %s", s, h.ObjectName)
	}
	return s
}

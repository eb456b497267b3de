// Package variables resolves the variables of one counter of one object:
// inherited parent variables, contextual variables, the update event state
// and the declared property, expression and history variables.
package variables

import (
	"context"
	"sort"
	"time"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/expr"
	"github.com/alepiz/counterprocessor/functions"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/alepiz/counterprocessor/updateevent"
	"github.com/hashicorp/go-multierror"
)

// names of the variables every counter gets
const (
	ObjectName           = "OBJECT_NAME"
	CounterName          = "COUNTER_NAME"
	ParentObjectName     = "PARENT_OBJECT_NAME"
	ParentCounterName    = "PARENT_COUNTER_NAME"
	ParentValue          = "PARENT_VALUE"
	InstanceName         = "ALEPIZ_NAME"
	InstanceID           = "ALEPIZ_ID"
	UpdateEventState     = "UPDATE_EVENT_STATE"
	UpdateEventTimestamp = "UPDATE_EVENT_TIMESTAMP"
)

var (
	// metric variables.resolve is the duration of resolving the variables of one counter
	statResolveDuration = stats.NewLatencyHistogram15s32("variables.resolve")
	// metric variables.errors is the number of variables that failed to resolve
	statErrors = stats.NewCounter32("variables.errors")
	// metric variables.looped is the number of variables that exceeded the maximum depth
	statLooped = stats.NewCounter32("variables.looped")
)

// Graph is the part of the cache the resolver reads.
// *cache.Snapshot implements it.
type Graph interface {
	Properties(objectID uint64) []schema.Property
	Expressions(counterID uint64) []schema.ExpressionVar
	History(counterID uint64) []schema.HistoryVar
	OCID(objectName string, counterID uint64) (schema.OCID, bool)
	CounterID(name string) (uint64, bool)
}

type Resolver struct {
	MaxDepth int
	Env      *functions.Env
	// identity of the process, exposed as ALEPIZ_NAME and ALEPIZ_ID
	InstanceName string
	InstanceID   string
	Now          func() time.Time
}

func NewResolver(env *functions.Env) *Resolver {
	return &Resolver{
		MaxDepth: MaxDepth,
		Env:      env,
		Now:      time.Now,
	}
}

// Result holds the resolved variables of a counter, keyed by upper case
// name. A nil value is a variable without data.
type Result struct {
	Variables map[string]interface{}
	Trace     Trace
	// Calculate is false when the update event rules out a recalculation,
	// Reason tells why. Without an update event Reason is
	// updateevent.AlwaysCalculate.
	Calculate bool
	Reason    string
	// outcome of the update event, to be handed in with the next request.
	// nil without an update event.
	UpdateEventState     *bool
	UpdateEventTimestamp int64
}

type declaration struct {
	name string
	kind schema.VarKind
	prop schema.Property
	expr schema.ExpressionVar
	hist schema.HistoryVar
}

// Resolve computes the variables of the counter req describes. Failing
// variables do not stop the others: the returned error, if any, is a
// *multierror.Error holding one error per failed variable, and the result
// holds everything that could be resolved.
func (r *Resolver) Resolve(ctx context.Context, g Graph, req msg.ResolveRequest) (*Result, error) {
	pre := time.Now()
	defer func() { statResolveDuration.Value(time.Since(pre)) }()

	prop := req.Property
	p := &pass{
		r:      r,
		ctx:    ctx,
		g:      g,
		prop:   prop,
		vars:   make(map[string]interface{}),
		failed: make(map[string]error),
		parent: make(map[string]interface{}),
		decls:  make(map[string]declaration),
	}
	order := p.declare()

	parentNames := make([]string, 0, len(req.ParentVariables))
	for name, v := range req.ParentVariables {
		p.parent[schema.VarKey(name)] = v
		parentNames = append(parentNames, schema.VarKey(name))
	}
	sort.Strings(parentNames)
	for _, key := range parentNames {
		if _, ok := p.decls[key]; !ok {
			p.vars[key] = p.parent[key]
			p.trace(key, schema.KindParent, "", nil, p.parent[key], nil)
		}
	}
	for _, c := range []struct {
		name string
		v    interface{}
	}{
		{ObjectName, prop.ObjectName},
		{CounterName, prop.CounterName},
		{ParentObjectName, prop.ParentObjectName},
		{ParentCounterName, prop.ParentCounterName},
		{ParentValue, prop.ParentObjectValue},
		{InstanceName, r.InstanceName},
		{InstanceID, r.InstanceID},
	} {
		p.vars[c.name] = c.v
		p.trace(c.name, schema.KindContext, "", nil, c.v, nil)
	}

	res := &Result{Variables: p.vars, Calculate: true}
	if prop.Expression == "" {
		p.vars[UpdateEventState] = 1.0
		res.Reason = updateevent.AlwaysCalculate
	} else {
		p.initial = UpdateEventState
		inputs := make(map[string]interface{})
		v, err := expr.Eval(prop.Expression, p.recorder(inputs))
		p.trace(UpdateEventState, schema.KindExpression, prop.Expression, inputs, v, err)
		if err != nil {
			p.fail(UpdateEventState, err)
			res.Calculate = false
			res.Reason = "update event expression failed"
			res.Trace = p.steps
			return res, p.errs.ErrorOrNil()
		}
		state := expr.ToBool(v)
		now := r.Now().UnixNano() / int64(time.Millisecond)
		ts := req.UpdateEventTimestamp
		if req.UpdateEventState == nil || *req.UpdateEventState != state || ts == 0 {
			ts = now
		}
		p.vars[UpdateEventState] = v
		p.vars[UpdateEventTimestamp] = float64(ts)
		res.UpdateEventState = &state
		res.UpdateEventTimestamp = ts
		res.Reason = updateevent.Decide(state, prop.Mode, req.UpdateEventState)
		res.Calculate = res.Reason == ""
		if !res.Calculate {
			res.Trace = p.steps
			return res, nil
		}
	}

	for _, key := range order {
		p.resolve(key)
	}
	res.Trace = p.steps
	return res, p.errs.ErrorOrNil()
}

// pass is the state of one Resolve call.
type pass struct {
	r    *Resolver
	ctx  context.Context
	g    Graph
	prop msg.ResolveProperty

	vars   map[string]interface{} // resolved, nil included
	failed map[string]error
	parent map[string]interface{} // all parent variables, shadowed ones included
	decls  map[string]declaration

	initial string // variable the current top level resolution started with
	depth   int

	steps Trace
	errs  *multierror.Error
}

// declare collects the declarations of the counter and returns their names
// in resolution order: properties, expressions, history, each in the
// order they are declared.
// A name declared by several kinds keeps its first declaration.
func (p *pass) declare() []string {
	var order []string
	add := func(d declaration) {
		key := schema.VarKey(d.name)
		if key == "" {
			return
		}
		if _, ok := p.decls[key]; ok {
			return
		}
		p.decls[key] = d
		order = append(order, key)
	}

	for _, v := range p.g.Properties(p.prop.ObjectID) {
		add(declaration{name: v.Name, kind: schema.KindProperty, prop: v})
	}
	for _, v := range p.g.Expressions(p.prop.CounterID) {
		add(declaration{name: v.Name, kind: schema.KindExpression, expr: v})
	}
	for _, v := range p.g.History(p.prop.CounterID) {
		add(declaration{name: v.Name, kind: schema.KindHistory, hist: v})
	}
	return order
}

// resolve starts a top level resolution of a declared variable.
func (p *pass) resolve(key string) {
	if _, ok := p.vars[key]; ok {
		return
	}
	if _, ok := p.failed[key]; ok {
		// failed as a dependency of an earlier variable, reported there
		return
	}
	p.initial = key
	p.depth = 0
	p.get(key)
}

// get returns the value of a variable, evaluating it at most once per pass.
// It is the expr.Getter handed to every evaluator.
func (p *pass) get(name string) (interface{}, error) {
	key := schema.VarKey(name)
	if v, ok := p.vars[key]; ok {
		return v, nil
	}
	if err, ok := p.failed[key]; ok {
		return nil, err
	}
	if p.depth > 0 && key == p.initial {
		if v, ok := p.parent[key]; ok {
			return v, nil
		}
	}
	d, ok := p.decls[key]
	if !ok {
		return nil, errors.New(errors.UnknownVariable, "%q", name).WithVariable(name)
	}
	if p.depth >= p.r.MaxDepth {
		return nil, errors.New(errors.DepthExceeded, "more than %d nested references", p.r.MaxDepth).WithVariable(name)
	}

	p.depth++
	v, err := p.eval(d)
	p.depth--

	if err != nil {
		p.fail(key, err)
		return nil, p.failed[key]
	}
	p.vars[key] = v
	return v, nil
}

// fail records the failure of a variable once.
func (p *pass) fail(key string, err error) {
	if _, ok := p.failed[key]; ok {
		return
	}
	err = errors.Attribute(err, errors.ExpressionError, p.prop.ObjectName, p.prop.CounterName, key)
	p.failed[key] = err
	statErrors.Inc()
	if errors.Is(err, errors.ErrDepthExceeded) {
		statLooped.Inc()
	}
	p.errs = multierror.Append(p.errs, err)
}

// recorder wraps get to remember the values an evaluator asked for.
func (p *pass) recorder(inputs map[string]interface{}) expr.Getter {
	return func(name string) (interface{}, error) {
		v, err := p.get(name)
		if err == nil {
			inputs[schema.VarKey(name)] = v
		}
		return v, err
	}
}

func (p *pass) eval(d declaration) (interface{}, error) {
	inputs := make(map[string]interface{})
	get := p.recorder(inputs)
	var v interface{}
	var err error
	var raw string
	var records []schema.Record
	switch d.kind {
	case schema.KindProperty:
		raw = d.prop.Value
		v, err = evalProperty(d.prop, get)
	case schema.KindExpression:
		raw = d.expr.Expression
		v, err = expr.Eval(d.expr.Expression, get)
	case schema.KindHistory:
		raw = describeHistory(d.hist)
		v, records, err = p.evalHistory(d.hist, get)
	}
	p.trace(schema.VarKey(d.name), d.kind, raw, inputs, v, err)
	p.steps[len(p.steps)-1].Records = records
	return v, err
}

func (p *pass) trace(name string, kind schema.VarKind, raw string, inputs map[string]interface{}, v interface{}, err error) {
	s := Step{Name: name, Kind: kind, Expression: raw, Inputs: inputs, Result: v}
	if err != nil {
		s.Err = err.Error()
	}
	p.steps = append(p.steps, s)
}

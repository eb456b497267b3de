// argument types. to let functions describe their inputs
package functions

import (
	"strings"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
)

type Arg interface {
	Key() string
	Optional() bool
	// Type is the human readable type of the argument
	Type() string
	// Desc is the human readable description of the argument
	Desc() string
	Store(v interface{}) error
}

// a window bound: a duration, a record count with the # sigil or a timestamp.
// the count argument may carry the ! sigil for strict completeness.
type ArgWindow struct {
	key  string
	opt  bool
	desc string
	val  *string
}

func (a ArgWindow) Key() string    { return a.key }
func (a ArgWindow) Optional() bool { return a.opt }
func (a ArgWindow) Type() string   { return "window" }
func (a ArgWindow) Desc() string   { return a.desc }
func (a ArgWindow) Store(v interface{}) error {
	s := strings.TrimSpace(schema.ToString(v))
	if err := IsWindow(s); err != nil {
		return errors.Wrap(errors.ExpressionError, err, "%s", a.key)
	}
	*a.val = s
	return nil
}

// floating point number; potentially with decimals or a unit suffix
type ArgFloat struct {
	key       string
	opt       bool
	desc      string
	validator []Validator
	val       *float64
}

func (a ArgFloat) Key() string    { return a.key }
func (a ArgFloat) Optional() bool { return a.opt }
func (a ArgFloat) Type() string   { return "number" }
func (a ArgFloat) Desc() string   { return a.desc }
func (a ArgFloat) Store(v interface{}) error {
	f, ok := number(v)
	if !ok {
		return errors.New(errors.ExpressionError, "%s: expected a number, got %q", a.key, schema.ToString(v))
	}
	for _, va := range a.validator {
		if err := va(f); err != nil {
			return errors.Wrap(errors.ExpressionError, err, "%s", a.key)
		}
	}
	*a.val = f
	return nil
}

// string
type ArgString struct {
	key       string
	opt       bool
	desc      string
	validator []Validator
	val       *string
}

func (a ArgString) Key() string    { return a.key }
func (a ArgString) Optional() bool { return a.opt }
func (a ArgString) Type() string   { return "string" }
func (a ArgString) Desc() string   { return a.desc }
func (a ArgString) Store(v interface{}) error {
	s := schema.ToString(v)
	for _, va := range a.validator {
		if err := va(s); err != nil {
			return errors.Wrap(errors.ExpressionError, err, "%s", a.key)
		}
	}
	*a.val = s
	return nil
}

// any value, kept as given: a number or a string
type ArgAny struct {
	key       string
	opt       bool
	desc      string
	validator []Validator
	val       *interface{}
}

func (a ArgAny) Key() string    { return a.key }
func (a ArgAny) Optional() bool { return a.opt }
func (a ArgAny) Type() string   { return "any" }
func (a ArgAny) Desc() string   { return a.desc }
func (a ArgAny) Store(v interface{}) error {
	for _, va := range a.validator {
		if err := va(v); err != nil {
			return errors.Wrap(errors.ExpressionError, err, "%s", a.key)
		}
	}
	*a.val = v
	return nil
}

// True or False. accepts booleans, numbers and the usual spellings
type ArgBool struct {
	key  string
	opt  bool
	desc string
	val  *bool
}

func (a ArgBool) Key() string    { return a.key }
func (a ArgBool) Optional() bool { return a.opt }
func (a ArgBool) Type() string   { return "boolean" }
func (a ArgBool) Desc() string   { return a.desc }
func (a ArgBool) Store(v interface{}) error {
	switch t := v.(type) {
	case bool:
		*a.val = t
		return nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "i", "1":
			*a.val = true
			return nil
		case "false", "no", "0", "":
			*a.val = false
			return nil
		}
	}
	if f, ok := schema.ToFloat(v); ok {
		*a.val = f != 0
		return nil
	}
	return errors.New(errors.ExpressionError, "%s: expected a boolean, got %q", a.key, schema.ToString(v))
}

// Package errors holds the error taxonomy of the counter processor.
// Every error carries its Kind and, when known, the object, counter and
// variable it was raised for, so that a single message is enough to
// diagnose a failing counter.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	UnknownVariable
	DepthExceeded
	UnresolvedReference
	MissingOCID
	ExpressionError
	FetchIncomplete
	UnknownAggregationFunction
	CollectorError
)

func (k Kind) String() string {
	switch k {
	case UnknownVariable:
		return "unknown variable"
	case DepthExceeded:
		return "looped"
	case UnresolvedReference:
		return "unresolved reference"
	case MissingOCID:
		return "missing OCID"
	case ExpressionError:
		return "expression error"
	case FetchIncomplete:
		return "fetch incomplete"
	case UnknownAggregationFunction:
		return "unknown function"
	case CollectorError:
		return "collector error"
	}
	return "error"
}

// sentinels usable with errors.Is
var (
	ErrUnknownVariable            = &Error{Kind: UnknownVariable}
	ErrDepthExceeded              = &Error{Kind: DepthExceeded}
	ErrUnresolvedReference        = &Error{Kind: UnresolvedReference}
	ErrMissingOCID                = &Error{Kind: MissingOCID}
	ErrExpression                 = &Error{Kind: ExpressionError}
	ErrFetchIncomplete            = &Error{Kind: FetchIncomplete}
	ErrUnknownAggregationFunction = &Error{Kind: UnknownAggregationFunction}
	ErrCollector                  = &Error{Kind: CollectorError}
)

type Error struct {
	Kind     Kind
	Object   string
	Counter  string
	Variable string
	Msg      string
	Err      error
}

func New(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...)}
}

func Wrap(kind Kind, err error, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, a...), Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Variable != "" {
		fmt.Fprintf(&b, " %%:%s:%%", e.Variable)
	}
	if e.Object != "" || e.Counter != "" {
		fmt.Fprintf(&b, " (%s: %s)", e.Object, e.Counter)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels above can be used
// to test the classification of a decorated error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithOwner returns a copy of e attributed to the given object and counter.
// Already attributed fields are kept.
func (e *Error) WithOwner(object, counter string) *Error {
	c := *e
	if c.Object == "" {
		c.Object = object
	}
	if c.Counter == "" {
		c.Counter = counter
	}
	return &c
}

// WithVariable returns a copy of e attributed to the given variable,
// unless it is attributed already.
func (e *Error) WithVariable(name string) *Error {
	c := *e
	if c.Variable == "" {
		c.Variable = name
	}
	return &c
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Attribute decorates err with owner information. Errors outside of the
// taxonomy are wrapped as the given fallback kind.
func Attribute(err error, fallback Kind, object, counter, variable string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: fallback, Err: err}
	}
	return e.WithOwner(object, counter).WithVariable(variable)
}

// Is and As are re-exported so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

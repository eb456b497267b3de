package functions

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/alepiz/counterprocessor/human"
	"github.com/alepiz/counterprocessor/schema"
)

var (
	ErrNonNegative = errors.New("value must not be negative")
	ErrPercent     = errors.New("value must lie within interval [0,50)")
	ErrEmptyWindow = errors.New("window must not be empty")
)

// Validator is a function to validate an input
type Validator func(v interface{}) error

func number(v interface{}) (float64, bool) {
	if f, ok := schema.ToFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		return human.Number(s)
	}
	return 0, false
}

// IsWindow validates a window bound like "1h", "#10", "!#10" or a timestamp.
func IsWindow(s string) error {
	t := strings.TrimLeft(strings.TrimSpace(s), "!#")
	if t == "" {
		if s == "" {
			return nil
		}
		return ErrEmptyWindow
	}
	if _, ok := human.Number(t); !ok {
		return fmt.Errorf("invalid window %q", s)
	}
	return nil
}

func NonNegative(v interface{}) error {
	if f, ok := v.(float64); ok && f < 0 {
		return ErrNonNegative
	}
	return nil
}

// Percent validates a share to trim from each side of a sorted window.
func Percent(v interface{}) error {
	if f, ok := v.(float64); ok && (f < 0 || f >= 50) {
		return ErrPercent
	}
	return nil
}

func IsRegexp(v interface{}) error {
	_, err := regexp.Compile(schema.ToString(v))
	return err
}

func IsBorder(v interface{}) error {
	switch strings.ToLower(schema.ToString(v)) {
	case "min", "max", "":
		return nil
	}
	return fmt.Errorf("border must be min or max, got %q", schema.ToString(v))
}

// IsCountCondition validates the last argument of count: a numeric
// tolerance or a comparison operator.
func IsCountCondition(v interface{}) error {
	if v == nil {
		return nil
	}
	if f, ok := number(v); ok {
		return NonNegative(f)
	}
	if _, ok := operators[strings.ToLower(strings.TrimSpace(schema.ToString(v)))]; ok {
		return nil
	}
	return fmt.Errorf("unsupported operator %q", schema.ToString(v))
}

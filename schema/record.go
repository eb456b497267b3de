package schema

import (
	"math"
	"strconv"
	"strings"
)

// Record is one sample of a binding's history.
// Data is a float64 or a string.
type Record struct {
	Timestamp int64       `json:"timestamp"` // ms since epoch
	Data      interface{} `json:"data"`
}

// Float returns the record value as a finite number, if it is one.
func (r Record) Float() (float64, bool) {
	return ToFloat(r.Data)
}

// ToFloat converts numeric values and strings holding a finite number.
func ToFloat(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint64:
		f = float64(t)
	case uint32:
		f = float64(t)
	case int32:
		f = float64(t)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		var err error
		f, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToString renders a value the way it is substituted into text.
func ToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// Point is a numeric sample.
type Point struct {
	Ts  int64
	Val float64
}

// Points keeps the numeric records of a window, in order.
// Records that are not numbers are skipped.
func Points(records []Record) []Point {
	out := make([]Point, 0, len(records))
	for _, r := range records {
		if f, ok := r.Float(); ok {
			out = append(out, Point{Ts: r.Timestamp, Val: f})
		}
	}
	return out
}

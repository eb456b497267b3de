// Package human converts human readable quantities such as "1.5h" or "2Mb"
// into plain numbers. Durations become milliseconds, sizes become bytes.
package human

import (
	"math"
	"strconv"
	"strings"

	"github.com/raintank/dur"
)

const (
	Millisecond = 1
	Second      = 1000 * Millisecond
	Minute      = 60 * Second
	Hour        = 60 * Minute
	Day         = 24 * Hour
	Week        = 7 * Day
)

// time suffixes are case sensitive: "m" is minutes, "M" is not a unit.
var timeUnits = map[string]float64{
	"ms": Millisecond,
	"s":  Second,
	"m":  Minute,
	"h":  Hour,
	"d":  Day,
	"w":  Week,
}

// size suffixes are matched case-insensitively and use a 1024 base.
var sizeUnits = map[string]float64{
	"b":  1,
	"kb": 1 << 10,
	"mb": 1 << 20,
	"gb": 1 << 30,
	"tb": 1 << 40,
	"pb": 1 << 50,
}

// FromHuman converts a string holding a number with a unit suffix into a float64.
// Anything else, including plain numeric strings and non-string values, is
// returned unchanged.
func FromHuman(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if f, ok := Parse(s); ok {
		return f
	}
	return v
}

// Parse returns the numeric value of a number with a unit suffix.
// It returns false for strings without a known unit.
func Parse(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	num, unit := split(s)
	if num == "" || unit == "" {
		return 0, false
	}
	mult, ok := timeUnits[unit]
	if !ok {
		mult, ok = sizeUnits[strings.ToLower(unit)]
	}
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f * mult, true
}

// Number returns s as a number, accepting both plain numbers and numbers
// with a unit suffix.
func Number(s string) (float64, bool) {
	if f, ok := Parse(s); ok {
		return f, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// split separates the leading number from the trailing letters.
func split(s string) (string, string) {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			i--
			continue
		}
		break
	}
	num := strings.TrimSpace(s[:i])
	if num == "" {
		return "", ""
	}
	// the exponent marker of 1e3 must not be taken for a unit
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') && i+1 == len(s) {
		return "", ""
	}
	for j := 0; j < len(num); j++ {
		c := num[j]
		if !(c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E') {
			return "", ""
		}
	}
	return num, s[i:]
}

// Duration renders milliseconds as a compact duration like "1h30m".
func Duration(ms int64) string {
	neg := ms < 0
	if neg {
		ms = -ms
	}
	var out string
	if ms < Second {
		out = strconv.FormatInt(ms, 10) + "ms"
	} else {
		out = dur.FormatDuration(uint32(ms / Second))
		if rest := ms % Second; rest != 0 {
			out += strconv.FormatInt(rest, 10) + "ms"
		}
	}
	if neg {
		return "-" + out
	}
	return out
}

// Size renders a number of bytes with the largest fitting unit.
func Size(b float64) string {
	units := []string{"b", "Kb", "Mb", "Gb", "Tb", "Pb"}
	i := 0
	for math.Abs(b) >= 1024 && i < len(units)-1 {
		b /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(b*100)/100, 'f', -1, 64) + units[i]
}

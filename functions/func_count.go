package functions

import (
	"context"
	"regexp"
	"strings"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// matcher reports whether a record value satisfies a count condition
type matcher func(v interface{}) bool

// operators build a matcher from the pattern argument of count
var operators = map[string]func(pattern interface{}) (matcher, error){
	"eq": numeric(func(v, p float64) bool { return v == p }),
	"ne": numeric(func(v, p float64) bool { return v != p }),
	"gt": numeric(func(v, p float64) bool { return v > p }),
	"ge": numeric(func(v, p float64) bool { return v >= p }),
	"lt": numeric(func(v, p float64) bool { return v < p }),
	"le": numeric(func(v, p float64) bool { return v <= p }),
	"eqstr": func(pattern interface{}) (matcher, error) {
		p := schema.ToString(pattern)
		return func(v interface{}) bool { return schema.ToString(v) == p }, nil
	},
	"ieqstr": func(pattern interface{}) (matcher, error) {
		p := schema.ToString(pattern)
		return func(v interface{}) bool { return strings.EqualFold(schema.ToString(v), p) }, nil
	},
	"like":    like(""),
	"ilike":   like("(?i)"),
	"regexp":  regexpMatcher(""),
	"iregexp": regexpMatcher("(?i)"),
}

func numeric(cmp func(v, p float64) bool) func(pattern interface{}) (matcher, error) {
	return func(pattern interface{}) (matcher, error) {
		p, ok := number(pattern)
		if !ok {
			return nil, errors.New(errors.ExpressionError, "pattern: expected a number, got %q", schema.ToString(pattern))
		}
		return func(v interface{}) bool {
			f, ok := schema.ToFloat(v)
			return ok && cmp(f, p)
		}, nil
	}
}

func regexpMatcher(flags string) func(pattern interface{}) (matcher, error) {
	return func(pattern interface{}) (matcher, error) {
		re, err := regexp.Compile(flags + schema.ToString(pattern))
		if err != nil {
			return nil, errors.Wrap(errors.ExpressionError, err, "pattern")
		}
		return func(v interface{}) bool { return re.MatchString(schema.ToString(v)) }, nil
	}
}

// like converts a SQL LIKE pattern: % matches any run of characters, _ any one character.
func like(flags string) func(pattern interface{}) (matcher, error) {
	return func(pattern interface{}) (matcher, error) {
		var b strings.Builder
		b.WriteString(flags)
		b.WriteString("^")
		for _, r := range schema.ToString(pattern) {
			switch r {
			case '%':
				b.WriteString(".*")
			case '_':
				b.WriteString(".")
			default:
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		b.WriteString("$")
		return regexpMatcher("")(b.String())
	}
}

// FuncCount counts the records of the window.
// With a pattern only the records matching it are counted: the outlier
// argument is either a numeric tolerance around the pattern or the name
// of a comparison operator.
type FuncCount struct {
	period  string
	shift   string
	pattern interface{}
	outlier interface{}
}

func NewCount() Func {
	return &FuncCount{}
}

func (s *FuncCount) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
		ArgAny{key: "pattern", opt: true, desc: "value to compare the records with", val: &s.pattern},
		ArgAny{key: "outlier", opt: true, desc: "tolerance around pattern, or one of eq, ne, gt, ge, lt, le, eqstr, ieqstr, like, ilike, regexp, iregexp. defaults to eq", validator: []Validator{IsCountCondition}, val: &s.outlier},
	}
}

func (s *FuncCount) matcher() (matcher, error) {
	if s.outlier != nil {
		if tol, ok := number(s.outlier); ok {
			p, ok := number(s.pattern)
			if !ok {
				return nil, errors.New(errors.ExpressionError, "pattern: expected a number with a tolerance, got %q", schema.ToString(s.pattern))
			}
			return func(v interface{}) bool {
				f, ok := schema.ToFloat(v)
				return ok && f >= p-tol && f <= p+tol
			}, nil
		}
	}
	op := "eq"
	if s.outlier != nil {
		op = strings.ToLower(strings.TrimSpace(schema.ToString(s.outlier)))
	}
	return operators[op](s.pattern)
}

func (s *FuncCount) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	var match matcher
	if s.pattern != nil {
		var err error
		match, err = s.matcher()
		if err != nil {
			return Result{}, err
		}
	}
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantAny)
	if err != nil {
		return Result{}, err
	}
	var n float64
	for _, r := range records {
		if match == nil || match(r.Data) {
			n++
		}
	}
	return data(n, records), nil
}

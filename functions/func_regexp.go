package functions

import (
	"context"
	"regexp"
	"strings"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/alepiz/counterprocessor/schema/msg"
)

// FuncRegexp yields 1 if any value of the window matches the pattern
type FuncRegexp struct {
	period  string
	shift   string
	pattern string
	flags   string
}

func NewRegexp() Func {
	return &FuncRegexp{}
}

func (s *FuncRegexp) Signature() []Arg {
	return []Arg{
		argPeriod(&s.period, false),
		argShift(&s.shift),
		ArgString{key: "pattern", desc: "regular expression", validator: []Validator{IsRegexp}, val: &s.pattern},
		ArgString{key: "flags", opt: true, desc: "i for a case-insensitive match", val: &s.flags},
	}
}

func (s *FuncRegexp) Exec(ctx context.Context, env *Env, id schema.OCID) (Result, error) {
	expr := s.pattern
	if strings.Contains(strings.ToLower(s.flags), "i") {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Result{}, errors.Wrap(errors.ExpressionError, err, "pattern")
	}
	records, err := fetch(ctx, env, id, s.period, s.shift, msg.WantString)
	if err != nil {
		return Result{}, err
	}
	if len(records) == 0 {
		return noData(records), nil
	}
	for _, r := range records {
		if re.MatchString(schema.ToString(r.Data)) {
			return data(1.0, records), nil
		}
	}
	return data(0.0, records), nil
}

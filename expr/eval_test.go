package expr

import (
	"testing"

	"github.com/alepiz/counterprocessor/errors"
	"github.com/alepiz/counterprocessor/schema"
	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
)

type getterMock struct {
	vars  map[string]interface{}
	calls map[string]int
}

func newGetterMock(vars map[string]interface{}) *getterMock {
	m := &getterMock{vars: make(map[string]interface{}), calls: make(map[string]int)}
	for k, v := range vars {
		m.vars[schema.VarKey(k)] = v
	}
	return m
}

func (m *getterMock) get(name string) (interface{}, error) {
	key := schema.VarKey(name)
	m.calls[key]++
	if key == "LOOP" {
		return nil, errors.ErrDepthExceeded
	}
	v, ok := m.vars[key]
	if !ok {
		return nil, errors.New(errors.UnknownVariable, "%s", name)
	}
	return v, nil
}

func TestEval(t *testing.T) {
	vars := map[string]interface{}{
		"A":    10.0,
		"B":    "text",
		"S":    "5",
		"Zero": 0.0,
	}
	tests := []struct {
		s   string
		exp interface{}
	}{
		{"1 + 2 * 3", 7.0},
		{"(1 + 2) * 3", 9.0},
		{"10 % 4", 2.0},
		{"7 / 2", 3.5},
		{"-%:A:%", -10.0},
		{"%:A:% > 5 && %:b:% == 'text'", true},
		{"%:A:% + %:S:%", 15.0},
		{"%:B:% + 1", "text1"},
		{"1Mb / 1Kb", 1024.0},
		{"30s == 30000", true},
		{"1.5h", 5400000.0},
		{"%:?MISSING:% == ''", true},
		{"!%:?MISSING:%", true},
		{"round(2.5)", 3.0},
		{"round(1.26, 1)", 1.3},
		{"floor(-1.5) + ceil(1.2) + abs(-3)", 3.0},
		{"max(1, %:A:%, 3)", 10.0},
		{"min(4, %:S:%)", 4.0},
		{"isNumber(%:B:%)", false},
		{"isNumber(%:S:%)", true},
		{"'abc' < 'abd'", true},
		{"5 <> 5", false},
		{"1 = 1", true},
		{"%:Zero:% || 0", false},
		{"'9' > '10'", false},
	}
	for _, tt := range tests {
		got, err := Eval(tt.s, newGetterMock(vars).get)
		if err != nil {
			t.Errorf("eval %q: unexpected error %v", tt.s, err)
			continue
		}
		if diff := cmp.Diff(tt.exp, got); diff != "" {
			t.Errorf("eval %q: (-want +got):\n%s", tt.s, diff)
		}
	}
}

func TestEvalErrors(t *testing.T) {
	vars := map[string]interface{}{
		"B":      "text",
		"NODATA": nil,
	}
	tests := []struct {
		s    string
		kind errors.Kind
	}{
		{"%:MISSING:% > 1", errors.UnresolvedReference},
		{"%:NODATA:% > 1", errors.UnresolvedReference},
		{"1 / 0", errors.ExpressionError},
		{"%:B:% * 2", errors.ExpressionError},
		{"1 +", errors.ExpressionError},
		{"round(1, 2, 3)", errors.ExpressionError},
		{"%:LOOP:% == 1", errors.DepthExceeded},
		{"%:?LOOP:% == 1", errors.DepthExceeded},
	}
	for _, tt := range tests {
		_, err := Eval(tt.s, newGetterMock(vars).get)
		if err == nil {
			t.Errorf("eval %q: expected error of kind %s, got none", tt.s, tt.kind)
			continue
		}
		if errors.KindOf(err) != tt.kind {
			t.Errorf("eval %q: expected error of kind %s, got %v", tt.s, tt.kind, err)
		}
	}
}

func TestEvalLazy(t *testing.T) {
	Convey("when evaluating short-circuit operators", t, func() {
		m := newGetterMock(map[string]interface{}{"A": 1.0, "B": 0.0})
		Convey("a true left side of || does not resolve the right side", func() {
			v, err := Eval("%:A:% || %:MISSING:%", m.get)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, true)
			So(m.calls["MISSING"], ShouldEqual, 0)
		})
		Convey("a false left side of && does not resolve the right side", func() {
			v, err := Eval("%:B:% && %:MISSING:%", m.get)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)
			So(m.calls["MISSING"], ShouldEqual, 0)
		})
		Convey("the right side is resolved when needed", func() {
			_, err := Eval("%:B:% || %:MISSING:%", m.get)
			So(errors.Is(err, errors.ErrUnresolvedReference), ShouldBeTrue)
			So(m.calls["MISSING"], ShouldEqual, 1)
		})
	})
}

func TestToBool(t *testing.T) {
	tests := []struct {
		v   interface{}
		exp bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{0.0, false},
		{-1.0, true},
		{"", false},
		{"  ", false},
		{"0", false},
		{"0.0", false},
		{"false", false},
		{"FALSE", false},
		{"1", true},
		{"no", true},
		{int64(3), true},
	}
	for _, tt := range tests {
		if got := ToBool(tt.v); got != tt.exp {
			t.Errorf("ToBool(%#v): expected %t, got %t", tt.v, tt.exp, got)
		}
	}
}

package expr

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestParse(t *testing.T) {

	tests := []struct {
		s string
		e *expr
	}{
		{"42",
			&expr{etype: etNumber, float: 42, str: "42"},
		},
		{"-5",
			&expr{etype: etNumber, float: -5, str: "-5"},
		},
		{"10s",
			&expr{etype: etNumber, float: 10000, str: "10s"},
		},
		{`"a\"b"`,
			&expr{etype: etString, str: `a"b`},
		},
		{"TRUE",
			&expr{etype: etBool, bool: true, str: "TRUE"},
		},
		{"%:CPU:%",
			&expr{etype: etVar, str: "CPU"},
		},
		{"%:?CPU:%",
			&expr{etype: etVar, str: "CPU", tolerant: true},
		},
		{
			"1 + 2 * 3",
			&expr{
				etype: etBinary,
				str:   "+",
				args: []*expr{
					{etype: etNumber, float: 1, str: "1"},
					{etype: etBinary, str: "*", args: []*expr{
						{etype: etNumber, float: 2, str: "2"},
						{etype: etNumber, float: 3, str: "3"},
					}},
				},
			},
		},
		{
			"(1 + 2) * 3",
			&expr{
				etype: etBinary,
				str:   "*",
				args: []*expr{
					{etype: etBinary, str: "+", args: []*expr{
						{etype: etNumber, float: 1, str: "1"},
						{etype: etNumber, float: 2, str: "2"},
					}},
					{etype: etNumber, float: 3, str: "3"},
				},
			},
		},
		{
			"3 -5",
			&expr{
				etype: etBinary,
				str:   "-",
				args: []*expr{
					{etype: etNumber, float: 3, str: "3"},
					{etype: etNumber, float: 5, str: "5"},
				},
			},
		},
		{
			"%:A:% >= 10s && !%:?B:%",
			&expr{
				etype: etBinary,
				str:   "&&",
				args: []*expr{
					{etype: etBinary, str: ">=", args: []*expr{
						{etype: etVar, str: "A"},
						{etype: etNumber, float: 10000, str: "10s"},
					}},
					{etype: etUnary, str: "!", args: []*expr{
						{etype: etVar, str: "B", tolerant: true},
					}},
				},
			},
		},
		{
			"%:A:% <> 'x' || %:A:% = 1",
			&expr{
				etype: etBinary,
				str:   "||",
				args: []*expr{
					{etype: etBinary, str: "!=", args: []*expr{
						{etype: etVar, str: "A"},
						{etype: etString, str: "x"},
					}},
					{etype: etBinary, str: "==", args: []*expr{
						{etype: etVar, str: "A"},
						{etype: etNumber, float: 1, str: "1"},
					}},
				},
			},
		},
		{
			"Round(%:A:%, 2)",
			&expr{
				etype: etFunc,
				str:   "round",
				args: []*expr{
					{etype: etVar, str: "A"},
					{etype: etNumber, float: 2, str: "2"},
				},
			},
		},
		{
			"10 % 3",
			&expr{
				etype: etBinary,
				str:   "%",
				args: []*expr{
					{etype: etNumber, float: 10, str: "10"},
					{etype: etNumber, float: 3, str: "3"},
				},
			},
		},
	}

	for _, tt := range tests {
		x, err := Parse(tt.s)
		if err != nil {
			t.Errorf("parse for %+v failed: err=%v", tt.s, err)
			continue
		}
		if !reflect.DeepEqual(x.root, tt.e) {
			t.Errorf("parse for %+v failed:\ngot  %+s\nwant %+v", tt.s, spew.Sdump(x.root), spew.Sdump(tt.e))
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		s   string
		err error
	}{
		{"", ErrMissingExpr},
		{"1 +", ErrMissingExpr},
		{"(1 + 2", ErrMissingParen},
		{"'abc", ErrMissingQuote},
		{"%:A", ErrMissingVarEnd},
		{"%::%", ErrEmptyVarName},
		{"foo(1)", ErrUnknownFunction("foo")},
		{"round(1 2)", ErrMissingComma},
		{"1 2", ErrLeftover("2")},
		{"5xb", ErrBadNumber("5xb")},
		{"bar", ErrUnexpectedCharacter},
	}
	for _, tt := range tests {
		_, err := Parse(tt.s)
		if err != tt.err {
			t.Errorf("parse for %q: expected error %v, got %v", tt.s, tt.err, err)
		}
	}
}

func TestVars(t *testing.T) {
	x, err := Parse("%:A:% + max(%:?B:%, %:C:%)")
	if err != nil {
		t.Fatal(err)
	}
	got := x.Vars()
	want := []Ref{{Name: "A"}, {Name: "B", Tolerant: true}, {Name: "C"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

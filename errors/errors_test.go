package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestError(t *testing.T) {
	cases := []struct {
		err *Error
		exp string
	}{
		{New(UnknownVariable, ""), "unknown variable"},
		{New(ExpressionError, "unexpected %q", ")").WithVariable("X"), `expression error %:X:%: unexpected ")"`},
		{New(DepthExceeded, "").WithOwner("db-1", "cpu").WithVariable("A"), "looped %:A:% (db-1: cpu)"},
		{Wrap(FetchIncomplete, context.DeadlineExceeded, "#10"), "fetch incomplete: #10: context deadline exceeded"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.exp {
			t.Errorf("expected %q, got %q", c.exp, got)
		}
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("resolving: %w", New(DepthExceeded, "depth 20").WithOwner("db-1", "cpu"))
	if !Is(err, ErrDepthExceeded) {
		t.Fatal("expected a wrapped looped error to match the sentinel")
	}
	if Is(err, ErrUnknownVariable) {
		t.Fatal("expected no match with another kind")
	}
	if KindOf(err) != DepthExceeded {
		t.Fatalf("expected kind looped, got %s", KindOf(err))
	}
	if KindOf(context.Canceled) != KindUnknown {
		t.Fatal("expected errors outside of the taxonomy to have no kind")
	}
}

func TestAttribute(t *testing.T) {
	if Attribute(nil, CollectorError, "o", "c", "v") != nil {
		t.Fatal("expected nil to stay nil")
	}

	err := Attribute(context.Canceled, CollectorError, "db-1", "ping", "")
	if KindOf(err) != CollectorError || !Is(err, context.Canceled) {
		t.Fatalf("expected a collector error wrapping the cause, got %v", err)
	}

	// owner fields set earlier win
	inner := New(UnknownVariable, "").WithOwner("parent", "")
	var e *Error
	if !As(Attribute(inner, ExpressionError, "child", "cpu", "X"), &e) {
		t.Fatal("expected an *Error")
	}
	if e.Kind != UnknownVariable || e.Object != "parent" || e.Counter != "cpu" || e.Variable != "X" {
		t.Fatalf("unexpected attribution %+v", e)
	}
	if inner.Counter != "" {
		t.Fatal("expected the original error to be left untouched")
	}
}

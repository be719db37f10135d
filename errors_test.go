package svctree

import (
	"errors"
	"testing"
)

func TestAggregateFailureSingle(t *testing.T) {
	inner := errors.New("boom")
	agg := &AggregateFailure{Errs: []error{inner}}
	if got := agg.Error(); got != "svctree: boom" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(agg, inner) {
		t.Fatalf("errors.Is should reach the wrapped cause")
	}
}

func TestAggregateFailureMultiple(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	agg := &AggregateFailure{Errs: []error{e1, e2}}
	want := "svctree: aggregate failure (first; second)"
	if got := agg.Error(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !errors.Is(agg, e1) || !errors.Is(agg, e2) {
		t.Fatalf("errors.Is should reach every wrapped cause")
	}
}

func TestDaemonTaskExitErrorMessage(t *testing.T) {
	err := &DaemonTaskExitError{Name: "heartbeat"}
	if err.Error() == "" {
		t.Fatalf("expected non-empty message")
	}
}

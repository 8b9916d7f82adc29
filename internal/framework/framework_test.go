package framework

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/onderjan/machine-check-sub001/internal/machine"
)

func TestVerifyPropertyCounterNeverPanics(t *testing.T) {
	f := New(machine.NewCounter(), Strategy{}, zap.NewNop())
	verdict, stats, err := f.VerifyProperty("AG![__panic == 0]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verdict {
		t.Error("expected the counter's inherent non-panicking property to hold")
	}
	if stats.Refinements != 0 {
		t.Errorf("expected no refinement to be needed, got %d", stats.Refinements)
	}
}

func TestVerifyPropertyRejectsUnparseableSource(t *testing.T) {
	f := New(machine.NewCounter(), Strategy{}, zap.NewNop())
	_, _, err := f.VerifyProperty("AG![")

	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *VerifyError, got %v", err)
	}
	if verr.Kind != PropertyNotParseable {
		t.Errorf("expected PropertyNotParseable, got %s", verr.Kind)
	}
}

func TestVerifyPropertyDividerReportsInherentPanic(t *testing.T) {
	f := New(machine.NewDivider(), Strategy{}, zap.NewNop())
	verdict, _, err := f.VerifyProperty("AG![__panic == 0]")
	if verdict {
		t.Error("expected the divider's reachable zero divisor to violate the property")
	}

	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *VerifyError, got %v", err)
	}
	if verr.Kind != InherentPanic {
		t.Errorf("expected InherentPanic, got %s", verr.Kind)
	}
	if verr.Message != "division by zero" {
		t.Errorf("expected the division-by-zero message, got %q", verr.Message)
	}
}

func TestVerifyPropertyNaiveCounterIsIncomplete(t *testing.T) {
	f := New(machine.NewCounter(), Strategy{NaiveInputs: true}, zap.NewNop())
	_, _, err := f.VerifyProperty("AG![count != 1]")

	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *VerifyError, got %v", err)
	}
	if verr.Kind != Incomplete {
		t.Errorf("expected Incomplete since naive inputs never narrow the culprit, got %s", verr.Kind)
	}
}

package verify

import (
	"errors"
	"testing"

	"github.com/onderjan/machine-check-sub001/internal/machine"
)

func TestVerifyDelegatesToFramework(t *testing.T) {
	verdict, stats, err := Verify(machine.NewCounter(), "AG![__panic == 0]", Strategy{}, nil)
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

func TestVerifyReexportsErrorKinds(t *testing.T) {
	_, _, err := Verify(machine.NewDivider(), "AG![__panic == 0]", Strategy{}, nil)

	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *VerifyError, got %v", err)
	}
	if verr.Kind != InherentPanic {
		t.Errorf("expected InherentPanic, got %s", verr.Kind)
	}
}

func TestVerifyPropagatesParseErrors(t *testing.T) {
	_, _, err := Verify(machine.NewCounter(), "not a valid property", Strategy{}, nil)

	var verr *VerifyError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *VerifyError, got %v", err)
	}
	if verr.Kind != PropertyNotParseable {
		t.Errorf("expected PropertyNotParseable, got %s", verr.Kind)
	}
}

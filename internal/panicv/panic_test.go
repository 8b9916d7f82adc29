package panicv

import "testing"

func TestMessageForBuiltins(t *testing.T) {
	if Message(DivByZero) != "division by zero" {
		t.Errorf("unexpected message for DivByZero: %q", Message(DivByZero))
	}
	if Message(NoPanic) != "" {
		t.Errorf("expected NoPanic message to be empty, got %q", Message(NoPanic))
	}
	if Message(999) != "unknown panic" {
		t.Errorf("expected unregistered code to report unknown panic, got %q", Message(999))
	}
}

func TestRegisterAddsMessage(t *testing.T) {
	code := reservedBase + 1
	Register(code, "custom failure")
	if Message(code) != "custom failure" {
		t.Errorf("expected registered message, got %q", Message(code))
	}
}

func TestRegisterPanicsBelowReservedBase(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected Register to panic for a code below reservedBase")
		}
	}()
	Register(1, "should not register")
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	code := reservedBase + 2
	Register(code, "first")
	defer func() {
		if recover() == nil {
			t.Error("expected Register to panic on a duplicate code")
		}
	}()
	Register(code, "second")
}

func TestFromFlagsMustPanic(t *testing.T) {
	b := FromFlags(true, true, DivByZero)
	code, ok := b.Concretize()
	if !ok || code.Value() != DivByZero {
		t.Errorf("expected exact DivByZero, got %v ok=%v", b, ok)
	}
}

func TestFromFlagsNeverPanics(t *testing.T) {
	b := FromFlags(false, false, DivByZero)
	code, ok := b.Concretize()
	if !ok || code.Value() != NoPanic {
		t.Errorf("expected exact NoPanic, got %v ok=%v", b, ok)
	}
}

func TestFromFlagsMayPanic(t *testing.T) {
	b := FromFlags(true, false, DivByZero)
	if _, ok := b.Concretize(); ok {
		t.Error("expected a may-panic indicator to not concretize")
	}
}

func TestPureHasNoPanic(t *testing.T) {
	r := Pure(42)
	code, ok := r.Panic.Concretize()
	if !ok || code.Value() != NoPanic {
		t.Errorf("expected Pure to carry NoPanic, got %v", r.Panic)
	}
	if r.Result != 42 {
		t.Errorf("expected Pure to carry the result unchanged, got %d", r.Result)
	}
}

func TestPhiJoinsPanicAndResult(t *testing.T) {
	a := New(ExactCode(NoPanic), 1)
	b := New(ExactCode(DivByZero), 2)
	joined := Phi(a, b, func(x, y int) int {
		if x > y {
			return x
		}
		return y
	})
	if joined.Result != 2 {
		t.Errorf("expected joined result 2, got %d", joined.Result)
	}
	if _, ok := joined.Panic.Concretize(); ok {
		t.Error("expected joining NoPanic with DivByZero to be non-exact")
	}
}

func TestPhiAllSkipsUntakenArms(t *testing.T) {
	args := []PhiArg[int]{
		NotTaken[int](),
		TakenArg(Pure(7)),
		NotTaken[int](),
	}
	result := PhiAll(args, func(x, y int) int { return x + y })
	if result.Result != 7 {
		t.Errorf("expected the single taken arm's result, got %d", result.Result)
	}
}

func TestPhiAllCombinesMultipleTakenArms(t *testing.T) {
	args := []PhiArg[int]{
		TakenArg(Pure(3)),
		TakenArg(Pure(4)),
	}
	result := PhiAll(args, func(x, y int) int { return x + y })
	if result.Result != 7 {
		t.Errorf("expected combined result 7, got %d", result.Result)
	}
}

func TestPhiAllPanicsWithNoTakenArms(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected PhiAll to panic when no arm was taken")
		}
	}()
	PhiAll([]PhiArg[int]{NotTaken[int](), NotTaken[int]()}, func(x, y int) int { return x + y })
}

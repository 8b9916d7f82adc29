// Package panicv implements the panic-result pairing used throughout the
// abstract execution semantics: every operation that can panic (division,
// remainder, out-of-range indexing) produces a three-valued panic
// indicator alongside its ordinary result, and the two are carried
// together so that branch points can "phi" them back into a single value.
package panicv

import (
	"github.com/onderjan/machine-check-sub001/internal/bv/abstr"
	"github.com/onderjan/machine-check-sub001/internal/bv/concr"
)

// Panic codes. Zero always means no panic; machines may register
// additional codes above reservedBase for their own panicking operations.
const (
	NoPanic      uint64 = 0
	DivByZero    uint64 = 1
	RemByZero    uint64 = 2
	IndexOOB     uint64 = 3
	reservedBase uint64 = 16
)

// CodeWidth is the width of the abstract panic indicator bitvector. Six
// bits covers every builtin code and leaves room for machine-registered
// ones (0..63).
const CodeWidth uint8 = 6

// registeredNames maps panic codes to a human-readable message, populated
// with the builtins and extended via Register at program init time for
// machine-specific codes.
var registeredNames = map[uint64]string{
	NoPanic:   "",
	DivByZero: "division by zero",
	RemByZero: "remainder by zero",
	IndexOOB:  "index out of range",
}

// Register adds a machine-specific panic code and its message. Panics if
// code collides with a reserved builtin code or a previous registration;
// this is a programming-error guard, not a runtime condition a verified
// machine can trigger.
func Register(code uint64, message string) {
	if code < reservedBase {
		panic("panicv: machine panic codes must be >= reservedBase")
	}
	if _, exists := registeredNames[code]; exists {
		panic("panicv: panic code already registered")
	}
	registeredNames[code] = message
}

// Message returns the human-readable message for a concrete panic code.
func Message(code uint64) string {
	if msg, ok := registeredNames[code]; ok {
		return msg
	}
	return "unknown panic"
}

// Bitvector is the abstract panic indicator: an abstr.Bitvector of
// CodeWidth bits, NoPanic meaning the operation is known not to panic.
type Bitvector = abstr.Bitvector

// ExactCode lifts a concrete panic code into the abstract panic indicator
// domain with no unknown bits.
func ExactCode(code uint64) Bitvector {
	return abstr.Exact(concr.New(CodeWidth, code))
}

// UnknownCode returns the panic indicator with every bit unknown — "may or
// may not panic, and if it does, with an unknown code".
func UnknownCode() Bitvector {
	return abstr.Unknown(CodeWidth)
}

// FromFlags builds the abstract panic indicator for an operation that
// panics with the given code exactly when mustPanic holds, and might
// panic with that code when mayPanic holds (mirroring arith.rs's
// panic_result: MUST_PANIC, NO_PANIC phi'd with the code, or NO_PANIC).
func FromFlags(mayPanic, mustPanic bool, code uint64) Bitvector {
	switch {
	case mustPanic:
		return ExactCode(code)
	case mayPanic:
		return abstr.Join(ExactCode(NoPanic), ExactCode(code))
	default:
		return ExactCode(NoPanic)
	}
}

// PanicResult pairs a possibly-unknown panic indicator with the ordinary
// result of type T, computed under the assumption that the operation did
// not panic. Consumers must check Panic before trusting Result.
type PanicResult[T any] struct {
	Panic  Bitvector
	Result T
}

// New builds a PanicResult from an explicit panic indicator and result.
func New[T any](panic Bitvector, result T) PanicResult[T] {
	return PanicResult[T]{Panic: panic, Result: result}
}

// Pure wraps a result that is known not to panic.
func Pure[T any](result T) PanicResult[T] {
	return PanicResult[T]{Panic: ExactCode(NoPanic), Result: result}
}

// Phi joins two PanicResults computed along divergent branches (e.g. the
// two arms of an if-then-else over a condition with unknown truth value)
// into a single PanicResult describing "either branch could have been
// taken". The panic indicators join as abstract bitvectors; the results
// are joined with the caller-supplied joinResult, since T's join operator
// depends on what T is (abstr.Bitvector, a Record, ...).
func Phi[T any](a, b PanicResult[T], joinResult func(a, b T) T) PanicResult[T] {
	return PanicResult[T]{
		Panic:  abstr.Join(a.Panic, b.Panic),
		Result: joinResult(a.Result, b.Result),
	}
}

// PhiArg is one argument to a multi-way Phi join where some arms represent
// "this branch was not taken" rather than a computed value — the unit
// element of the join.
type PhiArg[T any] struct {
	Taken  bool
	Result PanicResult[T]
}

// NotTaken constructs the unit element of Phi: a branch that contributes
// nothing to the join.
func NotTaken[T any]() PhiArg[T] {
	return PhiArg[T]{Taken: false}
}

// TakenArg constructs a Phi argument for a branch that was (possibly)
// taken, carrying its computed PanicResult.
func TakenArg[T any](r PanicResult[T]) PhiArg[T] {
	return PhiArg[T]{Taken: true, Result: r}
}

// PhiAll folds a slice of PhiArg values into a single PanicResult, skipping
// untaken arms. Panics if every arm is untaken — callers must guarantee
// at least one taken arm,
// mirroring the original's assumption that at least one predecessor edge
// exists.
func PhiAll[T any](args []PhiArg[T], joinResult func(a, b T) T) PanicResult[T] {
	var acc PanicResult[T]
	haveAcc := false
	for _, arg := range args {
		if !arg.Taken {
			continue
		}
		if !haveAcc {
			acc = arg.Result
			haveAcc = true
			continue
		}
		acc = Phi(acc, arg.Result, joinResult)
	}
	if !haveAcc {
		panic("panicv: PhiAll requires at least one taken branch")
	}
	return acc
}

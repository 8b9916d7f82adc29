package framework

import (
	"fmt"

	"github.com/onderjan/machine-check-sub001/internal/modelcheck"
)

// ErrorKind discriminates the kinds of error VerifyProperty can report.
type ErrorKind int

const (
	// InherentPanic means the system can panic regardless of the
	// property being checked.
	InherentPanic ErrorKind = iota
	// Incomplete means refinement exhausted every avenue of precision
	// growth without reaching a definite verdict.
	Incomplete
	// PropertyNotParseable means the property source failed to parse.
	PropertyNotParseable
	// FieldNotFound means a property referenced a field absent from the
	// machine's state shape.
	FieldNotFound
	// FieldNotBitvector means a property referenced a field that is not
	// a bitvector value. No state field in this implementation is ever
	// anything but abstr.Bitvector, so this kind is never produced here;
	// it is retained for taxonomy completeness and for any future
	// machine.Valuation field type.
	FieldNotBitvector
	// IndexOutOfRange means a bit index fell outside a field's width.
	IndexOutOfRange
)

func (k ErrorKind) String() string {
	switch k {
	case InherentPanic:
		return "InherentPanic"
	case Incomplete:
		return "Incomplete"
	case PropertyNotParseable:
		return "PropertyNotParseable"
	case FieldNotFound:
		return "FieldNotFound"
	case FieldNotBitvector:
		return "FieldNotBitvector"
	case IndexOutOfRange:
		return "IndexOutOfRange"
	default:
		return "Unknown"
	}
}

// VerifyError is the single error type VerifyProperty returns, tagged
// with the taxonomy above.
type VerifyError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *VerifyError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *VerifyError) Unwrap() error { return e.Err }

func wrapModelcheckError(err error) error {
	switch e := err.(type) {
	case *modelcheck.FieldNotFoundError:
		return &VerifyError{Kind: FieldNotFound, Message: e.Error(), Err: err}
	case *modelcheck.IndexOutOfRangeError:
		return &VerifyError{Kind: IndexOutOfRange, Message: e.Error(), Err: err}
	default:
		return err
	}
}

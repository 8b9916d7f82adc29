// Package verify is the public entry point of the verification engine:
// given a machine, a CTL property source, and a
// strategy, it runs the CEGAR loop to a definite verdict or an Incomplete
// error, with no persistent state held across calls — every call
// regenerates its own state space from scratch.
package verify

import (
	"go.uber.org/zap"

	"github.com/onderjan/machine-check-sub001/internal/framework"
	"github.com/onderjan/machine-check-sub001/internal/machine"
)

// Strategy controls how aggressively the engine abstracts inputs and
// successor states before refinement has narrowed them.
type Strategy = framework.Strategy

// Stats reports the bookkeeping of one Verify call.
type Stats = framework.Stats

// ErrorKind discriminates the verification error taxonomy.
type ErrorKind = framework.ErrorKind

// VerifyError is the error type Verify returns on failure.
type VerifyError = framework.VerifyError

const (
	InherentPanic        = framework.InherentPanic
	Incomplete           = framework.Incomplete
	PropertyNotParseable = framework.PropertyNotParseable
	FieldNotFound        = framework.FieldNotFound
	FieldNotBitvector    = framework.FieldNotBitvector
	IndexOutOfRange      = framework.IndexOutOfRange
)

// Verify checks property against m under strategy, logging round tracing
// to logger (nil disables it). It returns the verdict and the run's
// statistics, or a *VerifyError describing why no verdict could be
// reached.
func Verify(m machine.Machine, property string, strategy Strategy, logger *zap.Logger) (bool, Stats, error) {
	fw := framework.New(m, strategy, logger)
	return fw.VerifyProperty(property)
}

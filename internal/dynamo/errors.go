package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation and synthesis operations.
var (
	// ErrInvalidConstants indicates a non-physical mass, length or sign convention.
	ErrInvalidConstants = errors.New("dynamo: invalid physical constants")

	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrInvalidSpan indicates an empty integration interval or unsorted output times.
	ErrInvalidSpan = errors.New("dynamo: invalid integration span")

	// ErrUncontrollable indicates a rank-deficient controllability matrix.
	ErrUncontrollable = errors.New("dynamo: system is not controllable")

	// ErrDegeneratePoles indicates a requested pole set that cannot be placed.
	ErrDegeneratePoles = errors.New("dynamo: degenerate pole set")

	// ErrIndefiniteWeights indicates Q is not positive semidefinite or R is not positive.
	ErrIndefiniteWeights = errors.New("dynamo: cost weights not definite")

	// ErrNoConvergence indicates the Riccati iteration did not settle.
	ErrNoConvergence = errors.New("dynamo: riccati iteration did not converge")

	// ErrNotImplemented indicates a recognised but unsupported mode.
	ErrNotImplemented = errors.New("dynamo: not implemented")
)

// ConfigError reports an invalid construction parameter.
type ConfigError struct {
	Field   string
	Value   float64
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s = %g", e.Wrapped, e.Field, e.Value)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}

// ControlDesignError reports a failed gain synthesis.
type ControlDesignError struct {
	Method  string
	Detail  string
	Wrapped error
}

func (e *ControlDesignError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Method, e.Wrapped)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Method, e.Wrapped, e.Detail)
}

func (e *ControlDesignError) Unwrap() error {
	return e.Wrapped
}

// IntegrationError wraps an error with simulation context.
type IntegrationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error {
	return e.Wrapped
}

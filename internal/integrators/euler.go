package integrators

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

// Euler is the explicit first-order method the interactive loop uses by
// default.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	return offset(x, dyn.Derive(x, u, t), dt)
}

// AdaptiveTol is the relative tolerance Advance holds integrators with
// error control to.
const AdaptiveTol = 1e-6

// Advance moves x from t to t+dt and rejects a non-finite result. Fixed-step
// integrators take a single step; adaptive ones cover the interval with as
// many error-controlled substeps as AdaptiveTol needs.
func Advance(integ dynamo.Integrator, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	if len(x) != dyn.StateDim() {
		return nil, dynamo.ErrDimensionMismatch
	}

	var next dynamo.State
	if ai, ok := integ.(dynamo.AdaptiveIntegrator); ok {
		var err error
		if next, err = advanceAdaptive(ai, dyn, x, u, t, dt); err != nil {
			return nil, err
		}
	} else {
		next = integ.Step(dyn, x, u, t, dt)
	}
	if !next.IsValid() {
		return nil, &dynamo.IntegrationError{Time: t + dt, State: next, Wrapped: dynamo.ErrInvalidState}
	}
	return next, nil
}

func advanceAdaptive(ai dynamo.AdaptiveIntegrator, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) (dynamo.State, error) {
	h := dt
	for remaining := dt; remaining > 0; {
		h = math.Min(h, remaining)
		xNew, taken, suggested, err := ai.StepAdaptive(dyn, x, u, t, h, AdaptiveTol)
		if err != nil {
			return nil, err
		}
		x = xNew
		t += taken
		remaining -= taken
		h = suggested
	}
	return x, nil
}

// New returns the fixed-step integrator registered under name.
func New(name string) (dynamo.Integrator, bool) {
	switch name {
	case "euler", "":
		return NewEuler(), true
	case "rk4":
		return NewRK4(), true
	case "rk45":
		return NewRK45(), true
	default:
		return nil, false
	}
}

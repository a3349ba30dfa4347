package integrators

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

// dopri is the Dormand-Prince 5(4) tableau. The last stage evaluates the
// fifth-order solution itself, so its row of a holds the solution weights.
var dopri = struct {
	c [7]float64
	a [7][6]float64
	// e holds the fifth-order weights minus the embedded fourth-order weights.
	e [7]float64
}{
	c: [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	a: [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	e: [7]float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	},
}

var _ dynamo.AdaptiveIntegrator = (*RK45)(nil)

// RK45 is the adaptive Dormand-Prince pair. Used as a fixed-step Integrator
// it takes a single fifth-order step.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
	// ATol is the absolute floor of the per-component error scale.
	ATol    float64
	MinStep float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
		ATol:     1e-9,
		MinStep:  1e-12,
	}
}

// Step takes one full step of size dt without error control.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	xNew, _ := r.trial(dyn, x, u, t, dt, 1e-6)
	return xNew
}

// StepAdaptive retries with smaller steps until the local error estimate is
// within tol. It returns the accepted state, the step actually taken and
// the step suggested for the next call.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, float64, error) {
	for {
		xNew, _, next, ok := r.Attempt(dyn, x, u, t, dt, tol)
		if ok {
			return xNew, dt, next, nil
		}
		if next < r.MinStep {
			if !xNew.IsValid() {
				return nil, 0, next, &dynamo.IntegrationError{Time: t + dt, State: xNew, Wrapped: dynamo.ErrInvalidState}
			}
			return nil, 0, next, &dynamo.IntegrationError{Time: t, State: x.Clone(), Wrapped: dynamo.ErrStepTooSmall}
		}
		dt = next
	}
}

// Attempt takes a single trial step. It reports the error ratio against
// tol, the step size to try next, and whether the trial is acceptable.
func (r *RK45) Attempt(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, float64, bool) {
	xNew, errRatio := r.trial(dyn, x, u, t, dt, tol)

	if math.IsNaN(errRatio) || math.IsInf(errRatio, 0) {
		return xNew, errRatio, dt * r.minScale, false
	}

	var scale float64
	switch {
	case errRatio == 0:
		scale = r.maxScale
	case errRatio > 1:
		scale = math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		scale = math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	}
	return xNew, errRatio, dt * scale, errRatio <= 1
}

// trial returns the fifth-order solution and its RMS error ratio scaled by
// ATol + tol·max(|x|, |xNew|).
func (r *RK45) trial(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64) {
	n := len(x)
	if n == 0 {
		return dynamo.State{}, 0
	}

	var k [7]dynamo.State
	k[0] = dyn.Derive(x, u, t)
	var stage dynamo.State
	for s := 1; s < len(k); s++ {
		stage = make(dynamo.State, n)
		for i := range stage {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dopri.a[s][j] * k[j][i]
			}
			stage[i] = x[i] + dt*acc
		}
		k[s] = dyn.Derive(stage, u, t+dopri.c[s]*dt)
	}
	xNew := stage

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := 0.0
		for j := range k {
			errEst += dopri.e[j] * k[j][i]
		}
		scale := r.ATol + tol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := dt * errEst / scale
		sum += e * e
	}
	return xNew, math.Sqrt(sum / float64(n))
}

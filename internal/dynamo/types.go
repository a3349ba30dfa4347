package dynamo

import "math"

// Indices into a cartpole State.
const (
	CartPos = iota
	CartVel
	PoleAngle
	PoleRate

	// CartPoleDim is the length of a cartpole State.
	CartPoleDim
)

// State is a point in state space. For the cartpole it is
// (x, ẋ, θ, θ̇); see the index constants above.
type State []float64

func (s State) Clone() State {
	return append(State(nil), s...)
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	return math.Sqrt(s.dot(s))
}

func (s State) dot(o State) float64 {
	sum := 0.0
	for i := range s {
		sum += s[i] * o[i]
	}
	return sum
}

// Add returns s + other. Components missing from other count as zero.
func (s State) Add(other State) State {
	return s.combine(other, 1)
}

// Sub returns s - other. Components missing from other count as zero.
func (s State) Sub(other State) State {
	return s.combine(other, -1)
}

func (s State) combine(other State, sign float64) State {
	out := s.Clone()
	for i := 0; i < len(out) && i < len(other); i++ {
		out[i] += sign * other[i]
	}
	return out
}

func (s State) Scale(factor float64) State {
	out := make(State, len(s))
	for i, v := range s {
		out[i] = v * factor
	}
	return out
}

// Control is the input vector fed to a System. The cartpole takes a single
// horizontal force.
type Control []float64

// Scalar returns the first control component, or zero for an empty control.
func (u Control) Scalar() float64 {
	if len(u) == 0 {
		return 0
	}
	return u[0]
}

// System is a continuous-time model ẋ = f(x, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Hamiltonian systems expose their total mechanical energy.
type Hamiltonian interface {
	Energy(x State) float64
}

// Integrator advances a System by one fixed step, holding u constant.
type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// AdaptiveIntegrator can also take an error-controlled step of at most dt.
// It reports the step it took and the size to try next.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (next State, taken, suggested float64, err error)
}

// Controller is a state feedback law u = k(x, t).
type Controller interface {
	Compute(x State, t float64) Control
}

// Metric accumulates a scalar figure of merit over a run.
type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every simulation tick.
type Observer interface {
	OnStep(x State, u Control, t float64)
}

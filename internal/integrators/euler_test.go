package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

type divergent struct{}

func (d *divergent) StateDim() int   { return 1 }
func (d *divergent) ControlDim() int { return 0 }
func (d *divergent) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[0] * x[0] * 1e300}
}

func TestEulerLinearOneStep(t *testing.T) {
	c := physics.DefaultConstants()
	ss := physics.Linearize(c)
	lin := physics.NewLinear(ss)

	x := dynamo.State{0.5, -0.1, 0.2, 0.05}
	dt := 0.01
	got := NewEuler().Step(lin, x, dynamo.Control{0}, 0, dt)

	for i := 0; i < 4; i++ {
		ax := 0.0
		for j := 0; j < 4; j++ {
			ax += ss.A.At(i, j) * x[j]
		}
		want := x[i] + dt*ax
		if got[i] != want {
			t.Errorf("x[%d] = %v, want exactly %v", i, got[i], want)
		}
	}
}

func TestEulerNonlinearReferenceStep(t *testing.T) {
	c := physics.Constants{CartMass: 1, PoleMass: 0.15, PoleLength: 2.5, Dissipation: 0, Downwards: 1, Gravity: 9.81}
	cp, err := physics.NewCartPole(c)
	if err != nil {
		t.Fatal(err)
	}

	// At θ = 0 every gravity and coupling term carries sin θ = 0, so both
	// accelerations vanish and only θ advances by dt·θ̇.
	got := NewEuler().Step(cp, dynamo.State{0, 0, 0, 0.2}, dynamo.Control{0}, 0, 0.01)
	want := dynamo.State{0, 0, 0.002, 0.2}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("x[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEulerNonlinearOffEquilibrium(t *testing.T) {
	c := physics.Constants{CartMass: 1, PoleMass: 0.15, PoleLength: 2.5, Downwards: physics.Upright, Gravity: 9.81}
	cp, _ := physics.NewCartPole(c)

	x := dynamo.State{1, 0.5, 0.3, 0.2}
	f := 4.0
	dt := 0.01

	s, co := math.Sin(0.3), math.Cos(0.3)
	den := 1 + 0.15*s*s
	thetaAcc := (f*co - 0.15*2.5*co*s*0.04 + 1.15*9.81*s) / (2.5 * den)
	xAcc := (f + 0.15*s*(9.81*co-2.5*0.04)) / den
	want := dynamo.State{1 + dt*0.5, 0.5 + dt*xAcc, 0.3 + dt*0.2, 0.2 + dt*thetaAcc}

	got := NewEuler().Step(cp, x, dynamo.Control{f}, 0, dt)
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-14 {
			t.Errorf("x[%d] = %.15f, want %.15f", i, got[i], want[i])
		}
	}
}

func TestAdvanceDetectsDivergence(t *testing.T) {
	_, err := Advance(NewEuler(), &divergent{}, dynamo.State{1e10}, nil, 0, 1)
	var ie *dynamo.IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntegrationError, got %v", err)
	}
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Error("expected ErrInvalidState")
	}
	if ie.Time != 1 {
		t.Errorf("error time = %v, want 1", ie.Time)
	}
}

func TestAdvanceAdaptiveCoversInterval(t *testing.T) {
	dyn := &harmonicOscillator{}
	x, err := Advance(NewRK45(), dyn, dynamo.State{1, 0}, nil, 0, 2)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if math.Abs(x[0]-math.Cos(2)) > 1e-4 || math.Abs(x[1]+math.Sin(2)) > 1e-4 {
		t.Errorf("x(2) = %v, want (%f, %f)", x, math.Cos(2), -math.Sin(2))
	}

	// A single fixed RK45 step over the same interval is visibly worse.
	fixed := NewRK45().Step(dyn, dynamo.State{1, 0}, nil, 0, 2)
	if math.Abs(fixed[0]-math.Cos(2)) <= math.Abs(x[0]-math.Cos(2)) {
		t.Errorf("substepping did not improve on one step: %v vs %v", x, fixed)
	}
}

func TestAdvanceAdaptiveDetectsDivergence(t *testing.T) {
	_, err := Advance(NewRK45(), &divergent{}, dynamo.State{1e10}, nil, 0, 1)
	var ie *dynamo.IntegrationError
	if !errors.As(err, &ie) || !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected IntegrationError wrapping ErrInvalidState, got %v", err)
	}
}

func TestAdvanceDimensionMismatch(t *testing.T) {
	cp, _ := physics.NewCartPole(physics.DefaultConstants())
	_, err := Advance(NewEuler(), cp, dynamo.State{0, 0}, nil, 0, 0.01)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestNewByName(t *testing.T) {
	for _, name := range []string{"euler", "rk4", "rk45", ""} {
		if _, ok := New(name); !ok {
			t.Errorf("integrator %q not registered", name)
		}
	}
	if _, ok := New("verlet"); ok {
		t.Error("unexpected integrator verlet")
	}
}

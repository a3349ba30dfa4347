package physics

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cartpole/internal/dynamo"
)

// StateSpace is the small-perturbation model dx/dt = A·x + B·u.
type StateSpace struct {
	A *mat.Dense
	B *mat.Dense
}

// Dims returns the number of states and inputs.
func (s StateSpace) Dims() (n, m int) {
	n, _ = s.A.Dims()
	_, m = s.B.Dims()
	return n, m
}

// Linearize expands the cart-pole dynamics to first order around
// θ = θ̇ = 0 and f = 0 in the frame selected by c.Downwards.
//
// The friction coupling into θ̈ is -u·d/(m_c·L) by default. With
// WithDamping it is the Jacobian of the damped model, u·d/(m_c·L), so the
// linear and nonlinear models agree near the equilibrium.
func Linearize(c Constants, opts ...Option) StateSpace {
	cp := &CartPole{Constants: c}
	for _, opt := range opts {
		opt(cp)
	}

	mc := c.CartMass
	mp := c.PoleMass
	l := c.PoleLength
	g := c.Gravity
	d := c.Dissipation
	u := c.Downwards
	coupling := -u * d / (mc * l)
	if cp.Damped {
		coupling = -coupling
	}

	a := mat.NewDense(4, 4, []float64{
		0, 1, 0, 0,
		0, -d / mc, mp * g / mc, 0,
		0, 0, 0, 1,
		0, coupling, -u * (mp + mc) * g / (l * mc), 0,
	})
	b := mat.NewDense(4, 1, []float64{
		0,
		1 / mc,
		0,
		-u / (mc * l),
	})
	return StateSpace{A: a, B: b}
}

// Linear integrates a StateSpace as a dynamo.System.
type Linear struct {
	ss StateSpace
}

func NewLinear(ss StateSpace) *Linear {
	return &Linear{ss: ss}
}

func (l *Linear) StateSpace() StateSpace { return l.ss }

func (l *Linear) StateDim() int {
	n, _ := l.ss.Dims()
	return n
}

func (l *Linear) ControlDim() int {
	_, m := l.ss.Dims()
	return m
}

func (l *Linear) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	n, m := l.ss.Dims()
	dx := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += l.ss.A.At(i, j) * x[j]
		}
		for j := 0; j < m && j < len(u); j++ {
			sum += l.ss.B.At(i, j) * u[j]
		}
		dx[i] = sum
	}
	return dx
}

// Mode selects which derivative function integrates the state.
type Mode int

const (
	Nonlinear Mode = iota
	Linearized
)

func (m Mode) String() string {
	switch m {
	case Nonlinear:
		return "nonlinear"
	case Linearized:
		return "linearized"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "nonlinear", "default", "":
		return Nonlinear, nil
	case "linearized", "linear":
		return Linearized, nil
	default:
		return Nonlinear, fmt.Errorf("unknown simulation mode: %s", s)
	}
}

// Model returns the dynamics selected by mode over one set of constants.
func Model(c Constants, mode Mode, opts ...Option) (dynamo.System, error) {
	switch mode {
	case Nonlinear:
		return NewCartPole(c, opts...)
	case Linearized:
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewLinear(Linearize(c, opts...)), nil
	default:
		return nil, fmt.Errorf("unknown simulation mode: %v", mode)
	}
}

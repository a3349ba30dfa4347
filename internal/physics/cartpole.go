package physics

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

const (
	Upright = -1.0
	Hanging = 1.0

	StandardGravity = 9.81
)

// Constants are the physical parameters shared by the nonlinear model and
// its linearization.
type Constants struct {
	CartMass    float64
	PoleMass    float64
	PoleLength  float64
	Dissipation float64
	Downwards   float64
	Gravity     float64
}

func DefaultConstants() Constants {
	return Constants{
		CartMass:    1.0,
		PoleMass:    0.15,
		PoleLength:  2.5,
		Dissipation: 0,
		Downwards:   Upright,
		Gravity:     StandardGravity,
	}
}

// Validate reports the first non-physical constant as a *dynamo.ConfigError.
func (c Constants) Validate() error {
	checks := []struct {
		field string
		value float64
		ok    bool
	}{
		{"mass_cart", c.CartMass, c.CartMass > 0},
		{"mass_pole", c.PoleMass, c.PoleMass > 0},
		{"pole_length", c.PoleLength, c.PoleLength > 0},
		{"dissipation", c.Dissipation, c.Dissipation >= 0},
		{"downwards", c.Downwards, c.Downwards == Upright || c.Downwards == Hanging},
		{"gravity", c.Gravity, c.Gravity > 0},
	}
	for _, chk := range checks {
		if !chk.ok || math.IsNaN(chk.value) || math.IsInf(chk.value, 0) {
			return &dynamo.ConfigError{Field: chk.field, Value: chk.value, Wrapped: dynamo.ErrInvalidConstants}
		}
	}
	return nil
}

type CartPole struct {
	Constants
	// Damped applies Dissipation as viscous cart friction.
	Damped bool
}

type Option func(*CartPole)

// WithDamping feeds f - d·ẋ into the equations of motion instead of f.
func WithDamping() Option {
	return func(c *CartPole) { c.Damped = true }
}

func NewCartPole(c Constants, opts ...Option) (*CartPole, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cp := &CartPole{Constants: c}
	for _, opt := range opts {
		opt(cp)
	}
	return cp, nil
}

func (c *CartPole) StateDim() int {
	return dynamo.CartPoleDim
}

func (c *CartPole) ControlDim() int {
	return 1
}

// sinCos returns sin and cos of the angle measured from the upright position.
func (c *CartPole) sinCos(theta float64) (float64, float64) {
	sint, cost := math.Sin(theta), math.Cos(theta)
	if c.Downwards == Hanging {
		return -sint, -cost
	}
	return sint, cost
}

// Accelerations returns the angular and linear accelerations for the given
// pole angle, angular rate and horizontal force on the cart.
func (c *CartPole) Accelerations(theta, omega, force float64) (thetaAcc, xAcc float64) {
	mc := c.CartMass
	mp := c.PoleMass
	l := c.PoleLength
	g := c.Gravity

	sint, cost := c.sinCos(theta)
	denom := mc + mp*sint*sint

	thetaAcc = (force*cost - mp*l*cost*sint*omega*omega + (mp+mc)*g*sint) / (l * denom)
	xAcc = (force + mp*sint*(g*cost-l*omega*omega)) / denom
	return thetaAcc, xAcc
}

func (c *CartPole) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	vel := x[1]
	theta := x[2]
	omega := x[3]

	force := u.Scalar()
	if c.Damped {
		force -= c.Dissipation * vel
	}

	thetaAcc, xAcc := c.Accelerations(theta, omega, force)
	return dynamo.State{vel, xAcc, omega, thetaAcc}
}

// Energy is the mechanical energy of cart and point-mass pole, with the
// potential measured from the pivot height.
func (c *CartPole) Energy(x dynamo.State) float64 {
	vel, omega := x[1], x[3]
	_, cost := c.sinCos(x[2])

	mc, mp, l := c.CartMass, c.PoleMass, c.PoleLength
	ke := 0.5*(mc+mp)*vel*vel - mp*l*vel*omega*cost + 0.5*mp*l*l*omega*omega
	pe := mp * c.Gravity * l * cost
	return ke + pe
}

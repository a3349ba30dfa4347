package integrators

import "github.com/san-kum/cartpole/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta method.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	half := dt / 2
	k1 := dyn.Derive(x, u, t)
	k2 := dyn.Derive(offset(x, k1, half), u, t+half)
	k3 := dyn.Derive(offset(x, k2, half), u, t+half)
	k4 := dyn.Derive(offset(x, k3, dt), u, t+dt)

	out := make(dynamo.State, len(x))
	for i := range x {
		out[i] = x[i] + dt/6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

// offset returns x + h·k.
func offset(x, k dynamo.State, h float64) dynamo.State {
	out := make(dynamo.State, len(x))
	for i := range x {
		out[i] = x[i] + h*k[i]
	}
	return out
}

// Package physics provides the cart-pole model and its linearization.
//
// [CartPole] implements [dynamo.System] with the coupled nonlinear
// equations of motion; [Linear] implements it with the small-perturbation
// state-space model produced by [Linearize]. Both are built from the same
// [Constants], and [Model] selects one of them by [Mode]:
//
//	c := physics.DefaultConstants()
//	dyn, _ := physics.Model(c, physics.Nonlinear)
//	ss := physics.Linearize(c)
//
// # Sign Convention
//
// The state angle is measured from the equilibrium selected by
// Constants.Downwards: -1 measures θ from the upright (unstable) position,
// +1 from the hanging (stable) position. The linearization is the exact
// Jacobian of the nonlinear model at θ = θ̇ = 0 for either choice.
//
// [CartPole] also implements [dynamo.Hamiltonian] for energy monitoring.
package physics

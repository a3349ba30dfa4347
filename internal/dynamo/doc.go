// Package dynamo provides the core simulation primitives shared by the
// cart-pole model, the integrators, the controllers and the loop.
//
//   - [State]: state vector (x, ẋ, θ, θ̇ for the cart-pole)
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator
//   - [Controller]: feedback law producing a control vector
//   - [Observer], [Metric]: per-step consumers of state and control
//
// # Errors
//
// Failures are reported through three typed errors, each wrapping one of the
// package sentinels so callers can use [errors.Is] and [errors.As]:
//
//   - [ConfigError]: invalid physical constants or configuration
//   - [ControlDesignError]: gain synthesis failed
//   - [IntegrationError]: a step produced a non-finite state
//
// # Thread Safety
//
// Nothing in this package holds shared mutable state. Values of [State] are
// plain slices; callers that hand a state to another goroutine must Clone it.
package dynamo

// Package control synthesizes and applies state-feedback laws.
//
// Synthesis consumes a [physics.StateSpace] and returns a [Gain]:
//
//   - [Place]: closed-loop eigenvalues fixed by Ackermann's formula
//   - [LQR]: optimal regulator from the continuous algebraic Riccati equation
//
// Both are pure functions and report failures as *dynamo.ControlDesignError.
//
// # Usage
//
//	ss := physics.Linearize(c)
//	k, err := control.LQR(ss, control.CostWeights{Q: q, R: 0.1})
//	law := control.NewFeedback(k, target, control.DefaultForceMag)
//	f := law.Force(x, control.Automatic())
//
// [Feedback] applies u = -K·(x - target) unless the per-tick [Command] is a
// manual override.
package control

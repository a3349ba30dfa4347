// Package sim drives the cart-pole in real time and in batches.
//
// A Loop owns one simulated cart-pole: each Tick resolves a control
// command into a force, advances the state by a fixed step and notifies
// metrics and observers. ClosedLoop and Ensemble serve offline analysis,
// where a feedback law is folded into the dynamics and many initial
// conditions are integrated concurrently.
package sim

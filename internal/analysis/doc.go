// Package analysis turns solved trajectories into summaries and text plots.
//
//   - [PhasePortrait]: one state component against another, drawn as ASCII
//   - [PoincareSection]: states where a component crosses a level
//   - [SettlingTime]: first time after which a trajectory stays near a target
//   - [Basin]: which initial states of an ensemble settled
package analysis

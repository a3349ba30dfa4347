package analysis

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/integrators"
)

func within(x, target dynamo.State, tol float64) bool {
	for i, v := range x {
		ref := 0.0
		if i < len(target) {
			ref = target[i]
		}
		if math.Abs(v-ref) > tol {
			return false
		}
	}
	return true
}

// SettlingTime returns the earliest sample time from which every later
// sample stays within tol of target in every component. ok is false when
// the final sample is outside the band.
func SettlingTime(tr *integrators.Trajectory, target dynamo.State, tol float64) (t float64, ok bool) {
	if tr == nil || len(tr.Samples) == 0 {
		return 0, false
	}
	i := len(tr.Samples) - 1
	if !within(tr.Samples[i].State, target, tol) {
		return 0, false
	}
	for i > 0 && within(tr.Samples[i-1].State, target, tol) {
		i--
	}
	return tr.Samples[i].Time, true
}

// Basin reports, per trajectory, whether it ended within tol of target.
func Basin(trs []*integrators.Trajectory, target dynamo.State, tol float64) []bool {
	out := make([]bool, len(trs))
	for i, tr := range trs {
		if tr != nil && len(tr.Samples) > 0 {
			out[i] = within(tr.Final().State, target, tol)
		}
	}
	return out
}

// Overshoot is the largest excursion of component idx past target[idx] on
// the side opposite to where the trajectory started.
func Overshoot(tr *integrators.Trajectory, target dynamo.State, idx int) float64 {
	if tr == nil || len(tr.Samples) == 0 || idx >= len(target) {
		return 0
	}
	start := tr.Samples[0].State[idx] - target[idx]
	peak := 0.0
	for _, s := range tr.Samples {
		d := s.State[idx] - target[idx]
		if d*start < 0 {
			peak = math.Max(peak, math.Abs(d))
		}
	}
	return peak
}

package integrators

import (
	"context"
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

type Sample struct {
	Time  float64
	State dynamo.State
}

// Trajectory is an ordered sequence of states at increasing output times.
type Trajectory struct {
	Samples    []Sample
	StepsTaken int
	Rejected   int
}

func (tr *Trajectory) Times() []float64 {
	out := make([]float64, len(tr.Samples))
	for i, s := range tr.Samples {
		out[i] = s.Time
	}
	return out
}

// Component extracts one state coordinate over time.
func (tr *Trajectory) Component(idx int) []float64 {
	out := make([]float64, len(tr.Samples))
	for i, s := range tr.Samples {
		if idx < len(s.State) {
			out[i] = s.State[idx]
		}
	}
	return out
}

func (tr *Trajectory) Final() Sample {
	if len(tr.Samples) == 0 {
		return Sample{}
	}
	return tr.Samples[len(tr.Samples)-1]
}

type SolveOptions struct {
	RTol        float64
	ATol        float64
	InitialStep float64
	MaxStep     float64
	MinStep     float64
}

func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		RTol:    1e-6,
		ATol:    1e-9,
		MinStep: 1e-12,
	}
}

// Linspace returns n evenly spaced points over [start, stop].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// Solve integrates dyn with the constant control u over span using
// Dormand-Prince steps with local error control. The state is recorded at
// each of times, which must be sorted and lie within span; steps are
// shortened to land on every output time exactly. A nil times samples the
// two endpoints.
func Solve(ctx context.Context, dyn dynamo.System, x0 dynamo.State, u dynamo.Control, span [2]float64, times []float64, opts SolveOptions) (*Trajectory, error) {
	t0, t1 := span[0], span[1]
	if !(t1 > t0) || math.IsInf(t1-t0, 0) {
		return nil, dynamo.ErrInvalidSpan
	}
	if times == nil {
		times = []float64{t0, t1}
	}
	for i, te := range times {
		if te < t0 || te > t1 || (i > 0 && te < times[i-1]) {
			return nil, dynamo.ErrInvalidSpan
		}
	}
	if len(x0) != dyn.StateDim() {
		return nil, dynamo.ErrDimensionMismatch
	}
	if !x0.IsValid() {
		return nil, &dynamo.IntegrationError{Time: t0, State: x0.Clone(), Wrapped: dynamo.ErrInvalidState}
	}

	def := DefaultSolveOptions()
	if opts.RTol <= 0 {
		opts.RTol = def.RTol
	}
	if opts.ATol <= 0 {
		opts.ATol = def.ATol
	}
	if opts.MinStep <= 0 {
		opts.MinStep = def.MinStep
	}
	maxStep := opts.MaxStep
	if maxStep <= 0 {
		maxStep = t1 - t0
	}
	h := opts.InitialStep
	if h <= 0 {
		h = math.Min((t1-t0)/100, maxStep)
	}

	rk := NewRK45()
	rk.ATol = opts.ATol
	rk.MinStep = opts.MinStep

	tr := &Trajectory{Samples: make([]Sample, 0, len(times))}
	x := x0.Clone()
	t := t0

	for _, te := range times {
		for t < te {
			select {
			case <-ctx.Done():
				return tr, ctx.Err()
			default:
			}

			hTry := math.Min(h, maxStep)
			clipped := false
			if t+hTry >= te {
				hTry = te - t
				clipped = true
			}

			xNew, _, next, ok := rk.Attempt(dyn, x, u, t, hTry, opts.RTol)
			if !ok {
				tr.Rejected++
				if next < opts.MinStep {
					if !xNew.IsValid() {
						return tr, &dynamo.IntegrationError{Step: tr.StepsTaken, Time: t + hTry, State: xNew, Wrapped: dynamo.ErrInvalidState}
					}
					return tr, &dynamo.IntegrationError{Step: tr.StepsTaken, Time: t, State: x.Clone(), Wrapped: dynamo.ErrStepTooSmall}
				}
				h = next
				continue
			}
			if !xNew.IsValid() {
				return tr, &dynamo.IntegrationError{Step: tr.StepsTaken, Time: t + hTry, State: xNew, Wrapped: dynamo.ErrInvalidState}
			}

			x = xNew
			tr.StepsTaken++
			if clipped {
				t = te
			} else {
				t += hTry
				h = next
			}
		}
		tr.Samples = append(tr.Samples, Sample{Time: te, State: x.Clone()})
	}

	return tr, nil
}

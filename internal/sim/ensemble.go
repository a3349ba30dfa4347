package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/integrators"
)

// Ensemble integrates many initial conditions of one system concurrently.
// The system must be safe for concurrent Derive calls; CartPole, Linear
// and a ClosedLoop over a Feedback are.
type Ensemble struct {
	sys   dynamo.System
	opts  integrators.SolveOptions
	limit int
}

// NewEnsemble bounds the number of concurrent solves by limit; zero or less
// means no bound.
func NewEnsemble(sys dynamo.System, opts integrators.SolveOptions, limit int) *Ensemble {
	return &Ensemble{sys: sys, opts: opts, limit: limit}
}

// Solve returns one trajectory per initial state, in order. The first
// failure cancels the remaining solves.
func (e *Ensemble) Solve(ctx context.Context, initial []dynamo.State, span [2]float64, times []float64) ([]*integrators.Trajectory, error) {
	results := make([]*integrators.Trajectory, len(initial))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i, x0 := range initial {
		i, x0 := i, x0.Clone()
		g.Go(func() error {
			tr, err := integrators.Solve(ctx, e.sys, x0, nil, span, times, e.opts)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = tr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

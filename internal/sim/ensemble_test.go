package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/integrators"
)

func TestClosedLoopMatchesManualComposition(t *testing.T) {
	cp := newCartPole(t)
	law := lqrFeedback(t, dynamo.State{0, 0, 0, 0})
	cl := NewClosedLoop(cp, law)

	x := dynamo.State{0.3, -0.1, 0.05, 0.2}
	got := cl.Derive(x, nil, 0)
	want := cp.Derive(x, dynamo.Control{law.Law(x)}, 0)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d: expected %g, got %g", i, want[i], got[i])
		}
	}
	if cl.ControlDim() != 0 || cl.StateDim() != 4 {
		t.Errorf("unexpected dimensions")
	}
}

func TestClosedLoopClipsForce(t *testing.T) {
	cp := newCartPole(t)
	law := lqrFeedback(t, dynamo.State{0, 0, 0, 0})
	cl := NewClosedLoop(cp, law)
	cl.MaxForce = 1

	x := dynamo.State{5, 0, 0, 0}
	got := cl.Derive(x, nil, 0)
	want := cp.Derive(x, dynamo.Control{math.Copysign(1, law.Law(x))}, 0)
	if math.Abs(got[1]-want[1]) > 1e-15 {
		t.Errorf("expected clipped acceleration %g, got %g", want[1], got[1])
	}
}

func TestEnsembleSolvesInOrder(t *testing.T) {
	cl := NewClosedLoop(newCartPole(t), lqrFeedback(t, dynamo.State{0, 0, 0, 0}))
	initial := []dynamo.State{
		{0.5, 0, 0.1, 0},
		{-0.5, 0, -0.1, 0},
		{0, 0.3, 0.05, -0.1},
		{0.2, 0, 0, 0},
	}

	trs, err := NewEnsemble(cl, integrators.DefaultSolveOptions(), 2).Solve(context.Background(), initial, [2]float64{0, 15}, nil)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(trs) != len(initial) {
		t.Fatalf("expected %d trajectories, got %d", len(initial), len(trs))
	}
	for i, tr := range trs {
		if tr.Samples[0].State[0] != initial[i][0] {
			t.Errorf("trajectory %d out of order", i)
		}
		if n := tr.Final().State.Norm(); n > 1e-2 {
			t.Errorf("trajectory %d did not settle: |x| = %g", i, n)
		}
	}
}

func TestEnsemblePropagatesFailure(t *testing.T) {
	initial := []dynamo.State{{0, 0, 0, 0}, {0, 0, 0}}
	_, err := NewEnsemble(newCartPole(t), integrators.DefaultSolveOptions(), 0).Solve(context.Background(), initial, [2]float64{0, 1}, nil)
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

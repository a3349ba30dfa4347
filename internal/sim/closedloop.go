package sim

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

// ClosedLoop folds a controller into a system, giving an autonomous model
// that adaptive solvers can integrate without a per-step control input.
type ClosedLoop struct {
	sys  dynamo.System
	ctrl dynamo.Controller
	// MaxForce clips |u| when positive.
	MaxForce float64
}

func NewClosedLoop(sys dynamo.System, ctrl dynamo.Controller) *ClosedLoop {
	return &ClosedLoop{sys: sys, ctrl: ctrl}
}

func (c *ClosedLoop) StateDim() int   { return c.sys.StateDim() }
func (c *ClosedLoop) ControlDim() int { return 0 }

func (c *ClosedLoop) Derive(x dynamo.State, _ dynamo.Control, t float64) dynamo.State {
	u := c.ctrl.Compute(x, t)
	if c.MaxForce > 0 {
		for i := range u {
			u[i] = math.Max(-c.MaxForce, math.Min(c.MaxForce, u[i]))
		}
	}
	return c.sys.Derive(x, u, t)
}

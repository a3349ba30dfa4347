package metrics

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

// ControlEffort reports the mean absolute force applied per tick and keeps
// the peak for saturation checks.
type ControlEffort struct {
	sum     float64
	peak    float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string {
	return "control_effort"
}

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	f := math.Abs(u.Scalar())
	c.sum += f
	c.peak = math.Max(c.peak, f)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.peak = 0
	c.samples = 0
}

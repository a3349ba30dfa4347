package metrics

import (
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
)

// Tracking measures how well the state follows a set-point. Value is the
// fraction of samples whose every component lies within Threshold of the
// target; RMS is the root-mean-square Euclidean tracking error.
type Tracking struct {
	target     dynamo.State
	threshold  float64
	violations int
	sumSq      float64
	samples    int
}

func NewTracking(target dynamo.State, threshold float64) *Tracking {
	return &Tracking{target: target.Clone(), threshold: threshold}
}

func (s *Tracking) Name() string {
	return "tracking"
}

// SetTarget follows a moved set-point; accumulated samples are kept.
func (s *Tracking) SetTarget(target dynamo.State) {
	s.target = target.Clone()
}

func (s *Tracking) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.samples++
	sq := 0.0
	violated := false
	for i, v := range x {
		ref := 0.0
		if i < len(s.target) {
			ref = s.target[i]
		}
		d := v - ref
		sq += d * d
		if math.Abs(d) > s.threshold {
			violated = true
		}
	}
	s.sumSq += sq
	if violated {
		s.violations++
	}
}

func (s *Tracking) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Tracking) RMS() float64 {
	if s.samples == 0 {
		return 0
	}
	return math.Sqrt(s.sumSq / float64(s.samples))
}

func (s *Tracking) Reset() {
	s.violations = 0
	s.sumSq = 0
	s.samples = 0
}

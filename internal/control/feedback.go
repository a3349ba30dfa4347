package control

import (
	"fmt"
	"math"

	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

// DefaultForceMag scales a full manual deflection to newtons.
const DefaultForceMag = 30.0

type Source int

const (
	SourceAutomatic Source = iota
	SourceManual
)

// Command is the per-tick control input: either the automatic law or a
// manual axis deflection in [-1, 1].
type Command struct {
	Source Source
	Axis   float64
}

func Automatic() Command {
	return Command{Source: SourceAutomatic}
}

func Manual(axis float64) Command {
	return Command{Source: SourceManual, Axis: axis}
}

func (c Command) String() string {
	if c.Source == SourceManual {
		return fmt.Sprintf("manual(%+.2f)", c.Axis)
	}
	return "automatic"
}

// Feedback is the linear law u = -K·(x - target) with a manual override.
// A nil K produces zero force in automatic mode.
type Feedback struct {
	K        Gain
	Target   dynamo.State
	ForceMag float64
}

func NewFeedback(k Gain, target dynamo.State, forceMag float64) *Feedback {
	return &Feedback{K: k, Target: target.Clone(), ForceMag: forceMag}
}

// SetTarget moves the set-point without re-deriving K.
func (f *Feedback) SetTarget(target dynamo.State) {
	f.Target = target.Clone()
}

// Law evaluates the automatic feedback term.
func (f *Feedback) Law(x dynamo.State) float64 {
	u := 0.0
	for j := range f.K {
		if j >= len(x) {
			break
		}
		target := 0.0
		if j < len(f.Target) {
			target = f.Target[j]
		}
		u -= f.K[j] * (x[j] - target)
	}
	return u
}

// Force resolves one tick's command: a manual axis is clamped to [-1, 1]
// and scaled by ForceMag, bypassing the law.
func (f *Feedback) Force(x dynamo.State, cmd Command) float64 {
	if cmd.Source == SourceManual {
		axis := math.Max(-1, math.Min(1, cmd.Axis))
		return axis * f.ForceMag
	}
	return f.Law(x)
}

// Compute implements dynamo.Controller with the automatic law.
func (f *Feedback) Compute(x dynamo.State, t float64) dynamo.Control {
	return dynamo.Control{f.Law(x)}
}

type Mode string

const (
	ModeNone          Mode = "none"
	ModePolePlacement Mode = "pole_placement"
	ModeLQR           Mode = "lqr"
	ModeReinforcement Mode = "reinforcement"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNone, "":
		return ModeNone, nil
	case ModePolePlacement, "linear_place", "place":
		return ModePolePlacement, nil
	case ModeLQR, "linear_qr":
		return ModeLQR, nil
	case ModeReinforcement:
		return ModeReinforcement, nil
	default:
		return ModeNone, fmt.Errorf("unknown control mode: %s", s)
	}
}

// DesignSpec carries everything needed to build a Feedback for one mode.
type DesignSpec struct {
	Mode     Mode
	Poles    []float64
	Weights  CostWeights
	Target   dynamo.State
	ForceMag float64
}

// Design synthesizes the gain for spec.Mode and wraps it in a Feedback.
func Design(ss physics.StateSpace, spec DesignSpec) (*Feedback, error) {
	forceMag := spec.ForceMag
	if forceMag <= 0 {
		forceMag = DefaultForceMag
	}

	var k Gain
	var err error
	switch spec.Mode {
	case ModeNone, "":
	case ModePolePlacement:
		poles := spec.Poles
		if poles == nil {
			poles = DefaultPoles
		}
		k, err = Place(ss, poles)
	case ModeLQR:
		w := spec.Weights
		if w.Q == nil {
			w = DefaultWeights()
		}
		k, err = LQR(ss, w)
	case ModeReinforcement:
		err = &dynamo.ControlDesignError{Method: string(spec.Mode), Wrapped: dynamo.ErrNotImplemented}
	default:
		err = fmt.Errorf("unknown control mode: %s", spec.Mode)
	}
	if err != nil {
		return nil, err
	}

	return NewFeedback(k, spec.Target, forceMag), nil
}

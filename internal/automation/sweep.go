package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/cartpole/internal/analysis"
	"github.com/san-kum/cartpole/internal/config"
	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/experiment"
)

// ParameterSweep re-designs and re-solves the closed loop for evenly spaced
// values of one parameter.
type ParameterSweep struct {
	Param    string
	Min, Max float64
	NumSteps int
	// Tolerance is the settling band around the target state.
	Tolerance float64
}

type SweepResult struct {
	ParamValue   float64
	Gain         control.Gain
	Poles        []complex128
	Stable       bool
	FinalState   dynamo.State
	Settled      bool
	SettlingTime float64
}

// RunSweep executes the sweep over copies of base.
func RunSweep(ctx context.Context, logger *zap.Logger, base *config.Config, sweep *ParameterSweep) ([]SweepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := base.Clone().SetParam(sweep.Param, sweep.Min); err != nil {
		return nil, err
	}
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	tol := sweep.Tolerance
	if tol <= 0 {
		tol = 0.01
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		val := sweep.Min + float64(i)*paramStep
		cfg := base.Clone()
		_ = cfg.SetParam(sweep.Param, val)

		exp, err := experiment.New(cfg, experiment.WithLogger(logger.Named("experiment")))
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, val, err)
		}
		tr, err := exp.Trajectory(ctx, 201)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, val, err)
		}

		res := SweepResult{
			ParamValue: val,
			Gain:       exp.Feedback.K,
			FinalState: tr.Final().State,
		}
		if exp.Feedback.K != nil {
			res.Poles = control.ClosedLoopPoles(exp.StateSpace, exp.Feedback.K)
			res.Stable = control.IsStable(res.Poles)
		}
		res.SettlingTime, res.Settled = analysis.SettlingTime(tr, cfg.TargetState(), tol)
		results = append(results, res)

		logger.Info("sweep point",
			zap.Int("step", i+1),
			zap.Int("of", sweep.NumSteps),
			zap.Float64(sweep.Param, val),
			zap.Bool("stable", res.Stable),
			zap.Bool("settled", res.Settled))
	}

	return results, nil
}

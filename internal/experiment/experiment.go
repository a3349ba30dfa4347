package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/san-kum/cartpole/internal/config"
	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/integrators"
	"github.com/san-kum/cartpole/internal/metrics"
	"github.com/san-kum/cartpole/internal/physics"
	"github.com/san-kum/cartpole/internal/sim"
)

// Experiment is a cart-pole set up from one config: model, linearization,
// synthesized gain and integrator.
type Experiment struct {
	cfg    *config.Config
	logger *zap.Logger

	Constants  physics.Constants
	Mode       physics.Mode
	System     dynamo.System
	StateSpace physics.StateSpace
	Integrator dynamo.Integrator
	Feedback   *control.Feedback
}

type Option func(*Experiment)

// WithLogger routes design and loop events to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Experiment) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	e := &Experiment{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	c := cfg.PhysicsConstants()
	mode, _ := physics.ParseMode(cfg.Model)
	var physOpts []physics.Option
	if cfg.Damped {
		physOpts = append(physOpts, physics.WithDamping())
	}
	sys, err := physics.Model(c, mode, physOpts...)
	if err != nil {
		return nil, err
	}
	integ, _ := integrators.New(cfg.Integrator)

	ss := physics.Linearize(c, physOpts...)
	spec := cfg.DesignSpec()
	fb, err := control.Design(ss, spec)
	if err != nil {
		return nil, fmt.Errorf("design %s gain: %w", spec.Mode, err)
	}
	if fb.K != nil {
		e.logger.Info("gain designed",
			zap.String("mode", string(spec.Mode)),
			zap.Float64s("K", fb.K),
			zap.Complex128s("poles", control.ClosedLoopPoles(ss, fb.K)))
	}

	e.Constants = c
	e.Mode = mode
	e.System = sys
	e.StateSpace = ss
	e.Integrator = integ
	e.Feedback = fb
	return e, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Loop builds a live loop at the configured initial state with the
// standard metric set attached.
func (e *Experiment) Loop() (*sim.Loop, error) {
	loop, err := sim.NewLoop(e.System, e.Integrator, e.Feedback, e.cfg.InitialState(), sim.Config{
		Dt:       e.cfg.Dt,
		MaxForce: e.cfg.MaxForce,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range metrics.Standard(e.System, e.cfg.TargetState()) {
		loop.AddMetric(m)
	}
	return loop, nil
}

// Run ticks a fresh loop cfg.Ticks times.
func (e *Experiment) Run(ctx context.Context, input sim.InputSource, observers ...dynamo.Observer) (*sim.Result, error) {
	loop, err := e.Loop()
	if err != nil {
		return nil, err
	}
	for _, o := range observers {
		loop.AddObserver(o)
	}
	e.logger.Info("running loop",
		zap.Stringer("model", e.Mode),
		zap.String("integrator", e.cfg.Integrator),
		zap.String("control", e.cfg.Control),
		zap.Int("ticks", e.cfg.Ticks),
		zap.Float64("dt", e.cfg.Dt))
	res, err := loop.Run(ctx, e.cfg.Ticks, input)
	if res != nil && res.Metrics != nil {
		for name, v := range metrics.Details(loop.Metrics()) {
			res.Metrics[name] = v
		}
	}
	if err != nil {
		e.logger.Warn("loop stopped early", zap.Int("frame", loop.Frame()), zap.Error(err))
	}
	return res, err
}

func (e *Experiment) closedLoop() *sim.ClosedLoop {
	cl := sim.NewClosedLoop(e.System, e.Feedback)
	cl.MaxForce = e.cfg.MaxForce
	return cl
}

// Trajectory integrates the closed loop adaptively over [0, Duration],
// sampling samples evenly spaced times.
func (e *Experiment) Trajectory(ctx context.Context, samples int) (*integrators.Trajectory, error) {
	times := integrators.Linspace(0, e.cfg.Duration, samples)
	return integrators.Solve(ctx, e.closedLoop(), e.cfg.InitialState(), nil, [2]float64{0, e.cfg.Duration}, times, integrators.DefaultSolveOptions())
}

// Ensemble integrates n random initial states drawn from the configured
// seed, at most limit at a time.
func (e *Experiment) Ensemble(ctx context.Context, n, samples, limit int) ([]dynamo.State, []*integrators.Trajectory, error) {
	rng := rand.New(rand.NewSource(e.cfg.Seed))
	initial := make([]dynamo.State, n)
	for i := range initial {
		initial[i] = config.RandomState(rng)
	}
	times := integrators.Linspace(0, e.cfg.Duration, samples)
	ens := sim.NewEnsemble(e.closedLoop(), integrators.DefaultSolveOptions(), limit)
	trs, err := ens.Solve(ctx, initial, [2]float64{0, e.cfg.Duration}, times)
	return initial, trs, err
}

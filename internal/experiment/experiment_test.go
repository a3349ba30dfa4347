package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/san-kum/cartpole/internal/config"
	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/physics"
)

func TestNewFromDefaults(t *testing.T) {
	e, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := e.System.(*physics.CartPole); !ok {
		t.Errorf("expected nonlinear model, got %T", e.System)
	}
	if !control.IsStable(control.ClosedLoopPoles(e.StateSpace, e.Feedback.K)) {
		t.Error("default gain does not stabilize the linearization")
	}
}

func TestLoggerRecordsDesignAndRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := config.DefaultConfig()
	cfg.Ticks = 10
	e, err := New(cfg, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := e.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range []string{"control_effort", "peak_force", "tracking", "tracking_rms"} {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("missing metric %s in %v", name, res.Metrics)
		}
	}
	if res.Metrics["peak_force"] < res.Metrics["control_effort"] {
		t.Errorf("peak force %g below mean effort %g", res.Metrics["peak_force"], res.Metrics["control_effort"])
	}

	design := logs.FilterMessage("gain designed").All()
	if len(design) != 1 || design[0].ContextMap()["mode"] != "lqr" {
		t.Errorf("expected one lqr design entry, got %v", design)
	}
	run := logs.FilterMessage("running loop").All()
	if len(run) != 1 || run[0].ContextMap()["ticks"] != int64(10) {
		t.Errorf("expected one loop entry with 10 ticks, got %v", run)
	}
}

func TestDampedConfigLinearizesDampedModel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Constants.Dissipation = 0.4

	plain, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cfg = cfg.Clone()
	cfg.Damped = true
	damped, err := New(cfg)
	if err != nil {
		t.Fatalf("new damped: %v", err)
	}

	a, b := plain.StateSpace.A.At(3, 1), damped.StateSpace.A.At(3, 1)
	if a == 0 || a != -b {
		t.Errorf("friction coupling plain=%v damped=%v", a, b)
	}
}

func TestNewLinearizedDamped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model = "linearized"
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := e.System.(*physics.Linear); !ok {
		t.Errorf("expected linear model, got %T", e.System)
	}

	cfg = config.GetPreset("hanging")
	e, err = New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cp, ok := e.System.(*physics.CartPole)
	if !ok || !cp.Damped {
		t.Errorf("expected damped cart-pole, got %#v", e.System)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Constants.MassCart = -1
	_, err := New(cfg)
	var ce *dynamo.ConfigError
	if !errors.As(err, &ce) || ce.Field != "mass_cart" {
		t.Errorf("expected mass_cart ConfigError, got %v", err)
	}

	cfg = config.DefaultConfig()
	cfg.Control = "reinforcement"
	if _, err := New(cfg); !errors.Is(err, dynamo.ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}

	cfg = config.DefaultConfig()
	cfg.Control = "pole_placement"
	cfg.ControllerParams.Poles = []float64{-1, -1, -2, -3}
	if _, err := New(cfg); !errors.Is(err, dynamo.ErrDegeneratePoles) {
		t.Errorf("expected ErrDegeneratePoles, got %v", err)
	}
}

func TestRunBalances(t *testing.T) {
	for _, name := range []string{"balance", "place", "linearized"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.GetPreset(name)
			cfg.Ticks = 2000
			e, err := New(cfg)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			res, err := e.Run(context.Background(), nil)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			final := res.States[len(res.States)-1]
			if math.Abs(final[2]) > 1e-2 || math.Abs(final[0]) > 5e-2 {
				t.Errorf("did not settle: %v", final)
			}
			if _, ok := res.Metrics["tracking"]; !ok {
				t.Error("tracking metric missing")
			}
		})
	}
}

func TestTrajectory(t *testing.T) {
	cfg := config.GetPreset("balance")
	cfg.Duration = 20
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tr, err := e.Trajectory(context.Background(), 201)
	if err != nil {
		t.Fatalf("trajectory: %v", err)
	}
	if len(tr.Samples) != 201 {
		t.Fatalf("expected 201 samples, got %d", len(tr.Samples))
	}
	if tr.Final().Time != 20 {
		t.Errorf("expected final time 20, got %g", tr.Final().Time)
	}
	if n := tr.Final().State.Norm(); n > 1e-3 {
		t.Errorf("trajectory did not settle: %g", n)
	}
}

func TestEnsembleIsSeeded(t *testing.T) {
	cfg := config.GetPreset("freefall")
	cfg.Control = "none"
	cfg.Duration = 1
	cfg.Seed = 7
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	a, trs, err := e.Ensemble(context.Background(), 6, 11, 3)
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	b, _, err := e.Ensemble(context.Background(), 6, 11, 3)
	if err != nil {
		t.Fatalf("ensemble: %v", err)
	}
	if len(trs) != 6 {
		t.Fatalf("expected 6 trajectories, got %d", len(trs))
	}
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("run %d: initial states differ between calls", i)
			}
		}
		if trs[i].Samples[0].State[2] != a[i][2] {
			t.Errorf("run %d: trajectory does not start at its initial state", i)
		}
	}
}

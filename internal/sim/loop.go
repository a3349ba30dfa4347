package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/integrators"
)

// Step is what one tick produced: the state after the step, the time it
// belongs to and the force that was applied.
type Step struct {
	Frame int
	Time  float64
	State dynamo.State
	Force float64
}

type Config struct {
	// Dt is the fixed tick length in seconds.
	Dt float64
	// MaxForce clips |force| when positive.
	MaxForce float64
}

type Result struct {
	States     []dynamo.State
	Forces     []float64
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
}

// Loop advances one cart-pole tick by tick. It is not safe for concurrent
// use; drive it from a single goroutine.
type Loop struct {
	sys   dynamo.System
	integ dynamo.Integrator
	law   *control.Feedback
	cfg   Config

	state dynamo.State
	frame int
	time  float64

	metrics   []dynamo.Metric
	observers []dynamo.Observer
}

func NewLoop(sys dynamo.System, integ dynamo.Integrator, law *control.Feedback, x0 dynamo.State, cfg Config) (*Loop, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != sys.StateDim() {
		return nil, fmt.Errorf("initial state has %d components, model needs %d: %w", len(x0), sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if !x0.IsValid() {
		return nil, &dynamo.IntegrationError{State: x0.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	if law == nil {
		law = control.NewFeedback(nil, nil, control.DefaultForceMag)
	}
	return &Loop{
		sys:   sys,
		integ: integ,
		law:   law,
		cfg:   cfg,
		state: x0.Clone(),
	}, nil
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return &dynamo.ConfigError{Field: "dt", Value: cfg.Dt, Wrapped: dynamo.ErrInvalidSpan}
	}
	if cfg.MaxForce < 0 || math.IsNaN(cfg.MaxForce) {
		return &dynamo.ConfigError{Field: "max_force", Value: cfg.MaxForce, Wrapped: dynamo.ErrInvalidConstants}
	}
	return nil
}

func (l *Loop) AddMetric(m dynamo.Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o dynamo.Observer) { l.observers = append(l.observers, o) }

func (l *Loop) State() dynamo.State         { return l.state.Clone() }
func (l *Loop) Frame() int                  { return l.frame }
func (l *Loop) Time() float64               { return l.time }
func (l *Loop) Dt() float64                 { return l.cfg.Dt }
func (l *Loop) Feedback() *control.Feedback { return l.law }
func (l *Loop) Metrics() []dynamo.Metric    { return l.metrics }

type targetSetter interface {
	SetTarget(dynamo.State)
}

// SetTarget moves the set-point of the feedback law and of any metric that
// tracks it. The gain is kept.
func (l *Loop) SetTarget(target dynamo.State) {
	l.law.SetTarget(target)
	for _, m := range l.metrics {
		if ts, ok := m.(targetSetter); ok {
			ts.SetTarget(target)
		}
	}
}

// Reset puts the loop back at frame zero with state x0.
func (l *Loop) Reset(x0 dynamo.State) error {
	if len(x0) != l.sys.StateDim() {
		return dynamo.ErrDimensionMismatch
	}
	l.state = x0.Clone()
	l.frame = 0
	l.time = 0
	for _, m := range l.metrics {
		m.Reset()
	}
	return nil
}

func (l *Loop) force(cmd control.Command) float64 {
	f := l.law.Force(l.state, cmd)
	if l.cfg.MaxForce > 0 {
		f = math.Max(-l.cfg.MaxForce, math.Min(l.cfg.MaxForce, f))
	}
	return f
}

// Tick applies cmd for one step of length Dt. A step that leaves the state
// non-finite returns a *dynamo.IntegrationError and leaves the loop at the
// last valid state.
func (l *Loop) Tick(cmd control.Command) (Step, error) {
	f := l.force(cmd)
	u := dynamo.Control{f}

	next, err := integrators.Advance(l.integ, l.sys, l.state, u, l.time, l.cfg.Dt)
	if err != nil {
		var ie *dynamo.IntegrationError
		if errors.As(err, &ie) {
			ie.Step = l.frame
		}
		return Step{}, err
	}

	l.state = next
	l.frame++
	l.time += l.cfg.Dt

	for _, m := range l.metrics {
		m.Observe(next, u, l.time)
	}
	for _, obs := range l.observers {
		obs.OnStep(next, u, l.time)
	}

	return Step{Frame: l.frame, Time: l.time, State: next.Clone(), Force: f}, nil
}

// Run ticks the loop up to ticks times, asking input for each command. On
// cancellation or a failed step it returns what was recorded so far along
// with the error.
func (l *Loop) Run(ctx context.Context, ticks int, input InputSource) (*Result, error) {
	if ticks < 0 {
		return nil, fmt.Errorf("ticks must be non-negative, got %d", ticks)
	}
	if input == nil {
		input = Hold(control.Automatic())
	}

	result := &Result{
		States:  make([]dynamo.State, 0, ticks+1),
		Forces:  make([]float64, 0, ticks),
		Times:   make([]float64, 0, ticks+1),
		Metrics: make(map[string]float64),
	}
	result.States = append(result.States, l.state.Clone())
	result.Times = append(result.Times, l.time)

	var runErr error
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		step, err := l.Tick(input.Next(l.frame, l.state))
		if err != nil {
			runErr = err
			break
		}
		result.States = append(result.States, step.State)
		result.Forces = append(result.Forces, step.Force)
		result.Times = append(result.Times, step.Time)
		result.StepsTaken++
	}

	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, runErr
}

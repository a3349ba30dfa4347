package config

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/integrators"
	"github.com/san-kum/cartpole/internal/physics"
)

const (
	DefaultDt       = 0.01
	DefaultTicks    = 3000
	DefaultDuration = 30.0
	DefaultR        = 0.1
)

var DefaultQ = []float64{1, 1, 10, 100}

type Config struct {
	Model      string  `yaml:"model"`
	Integrator string  `yaml:"integrator"`
	Control    string  `yaml:"control"`
	Damped     bool    `yaml:"damped"`
	Dt         float64 `yaml:"dt"`
	Ticks      int     `yaml:"ticks"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`
	ForceMag   float64 `yaml:"force_mag"`
	MaxForce   float64 `yaml:"max_force"`
	// Target is the cart set-point; the target state is (Target, 0, 0, 0).
	Target           float64          `yaml:"target"`
	Constants        ConstantsConfig  `yaml:"constants"`
	InitState        InitStateConfig  `yaml:"init_state"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
}

type ConstantsConfig struct {
	MassCart    float64 `yaml:"mass_cart"`
	MassPole    float64 `yaml:"mass_pole"`
	PoleLength  float64 `yaml:"pole_length"`
	Dissipation float64 `yaml:"dissipation"`
	Downwards   float64 `yaml:"downwards"`
	Gravity     float64 `yaml:"gravity"`
}

type InitStateConfig struct {
	// Random draws the initial state from Seed and ignores the fields below.
	Random bool    `yaml:"random"`
	Pos    float64 `yaml:"pos"`
	Vel    float64 `yaml:"vel"`
	Theta  float64 `yaml:"theta"`
	Omega  float64 `yaml:"omega"`
}

type ControllerConfig struct {
	Poles []float64 `yaml:"poles,omitempty"`
	Q     []float64 `yaml:"q,omitempty"`
	R     float64   `yaml:"r"`
}

func DefaultConfig() *Config {
	c := physics.DefaultConstants()
	return &Config{
		Model:      physics.Nonlinear.String(),
		Integrator: "euler",
		Control:    string(control.ModeLQR),
		Dt:         DefaultDt,
		Ticks:      DefaultTicks,
		Duration:   DefaultDuration,
		ForceMag:   control.DefaultForceMag,
		Constants: ConstantsConfig{
			MassCart:    c.CartMass,
			MassPole:    c.PoleMass,
			PoleLength:  c.PoleLength,
			Dissipation: c.Dissipation,
			Downwards:   c.Downwards,
			Gravity:     c.Gravity,
		},
		InitState: InitStateConfig{Theta: 0.1},
		ControllerParams: ControllerConfig{
			Poles: append([]float64(nil), control.DefaultPoles...),
			Q:     append([]float64(nil), DefaultQ...),
			R:     DefaultR,
		},
	}
}

// Load reads a YAML file over the defaults, so omitted keys keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.ControllerParams.Poles = append([]float64(nil), c.ControllerParams.Poles...)
	out.ControllerParams.Q = append([]float64(nil), c.ControllerParams.Q...)
	return &out
}

// Validate checks everything that can be checked without building the
// model or synthesizing a gain.
func (c *Config) Validate() error {
	if err := c.PhysicsConstants().Validate(); err != nil {
		return err
	}
	if _, err := physics.ParseMode(c.Model); err != nil {
		return err
	}
	if _, err := control.ParseMode(c.Control); err != nil {
		return err
	}
	if _, ok := integrators.New(c.Integrator); !ok {
		return fmt.Errorf("unknown integrator: %s", c.Integrator)
	}
	positive := []struct {
		field string
		value float64
	}{
		{"dt", c.Dt},
		{"duration", c.Duration},
		{"force_mag", c.ForceMag},
	}
	for _, p := range positive {
		if !(p.value > 0) || math.IsInf(p.value, 0) {
			return &dynamo.ConfigError{Field: p.field, Value: p.value, Wrapped: dynamo.ErrInvalidConstants}
		}
	}
	if c.MaxForce < 0 {
		return &dynamo.ConfigError{Field: "max_force", Value: c.MaxForce, Wrapped: dynamo.ErrInvalidConstants}
	}
	if c.Ticks < 0 {
		return &dynamo.ConfigError{Field: "ticks", Value: float64(c.Ticks), Wrapped: dynamo.ErrInvalidConstants}
	}
	if n := len(c.ControllerParams.Q); n != 0 && n != 4 {
		return &dynamo.ConfigError{Field: "controller_params.q", Value: float64(n), Wrapped: dynamo.ErrDimensionMismatch}
	}
	return nil
}

func (c *Config) PhysicsConstants() physics.Constants {
	return physics.Constants{
		CartMass:    c.Constants.MassCart,
		PoleMass:    c.Constants.MassPole,
		PoleLength:  c.Constants.PoleLength,
		Dissipation: c.Constants.Dissipation,
		Downwards:   c.Constants.Downwards,
		Gravity:     c.Constants.Gravity,
	}
}

func (c *Config) TargetState() dynamo.State {
	return dynamo.State{c.Target, 0, 0, 0}
}

// InitialState returns the configured state, or a seeded random one with
// x, ẋ in [-0.5, 0.5), θ in [0, 2π) and θ̇ in [-0.25, 0.25).
func (c *Config) InitialState() dynamo.State {
	if !c.InitState.Random {
		return dynamo.State{c.InitState.Pos, c.InitState.Vel, c.InitState.Theta, c.InitState.Omega}
	}
	return RandomState(rand.New(rand.NewSource(c.Seed)))
}

func RandomState(rng *rand.Rand) dynamo.State {
	return dynamo.State{
		rng.Float64() - 0.5,
		rng.Float64() - 0.5,
		rng.Float64() * 2 * math.Pi,
		(rng.Float64() - 0.5) * 0.5,
	}
}

func (c *Config) DesignSpec() control.DesignSpec {
	mode, _ := control.ParseMode(c.Control)
	spec := control.DesignSpec{
		Mode:     mode,
		Poles:    c.ControllerParams.Poles,
		Target:   c.TargetState(),
		ForceMag: c.ForceMag,
	}
	q := c.ControllerParams.Q
	if len(q) == 0 {
		q = DefaultQ
	}
	spec.Weights = control.CostWeights{Q: control.Diag(q...), R: c.ControllerParams.R}
	return spec
}

package automation

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/sim"
)

// Scenario is a scripted sequence of commands and set-point moves played
// against one loop.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep holds one command for Ticks ticks. A non-nil Target moves
// the cart set-point before the step starts.
type ScenarioStep struct {
	Ticks   int      `yaml:"ticks"`
	Command string   `yaml:"command"`
	Axis    float64  `yaml:"axis"`
	Target  *float64 `yaml:"target,omitempty"`
}

func (s ScenarioStep) command() (control.Command, error) {
	switch s.Command {
	case "auto", "automatic", "":
		return control.Automatic(), nil
	case "manual":
		return control.Manual(s.Axis), nil
	case "left":
		return control.Manual(-1), nil
	case "right":
		return control.Manual(1), nil
	default:
		return control.Command{}, fmt.Errorf("unknown command %q", s.Command)
	}
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	for i, step := range s.Steps {
		if step.Ticks <= 0 {
			return fmt.Errorf("step %d: ticks must be positive, got %d", i+1, step.Ticks)
		}
		if _, err := step.command(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Ticks is the total length of the scenario.
func (s *Scenario) Ticks() int {
	n := 0
	for _, step := range s.Steps {
		n += step.Ticks
	}
	return n
}

// RunScenario plays every step against loop and returns one result per
// step. It stops at the first failing step.
func RunScenario(ctx context.Context, logger *zap.Logger, loop *sim.Loop, scenario *Scenario) ([]*sim.Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("scenario", scenario.Name))
	results := make([]*sim.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cmd, err := step.command()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Target != nil {
			loop.SetTarget(dynamo.State{*step.Target, 0, 0, 0})
		}
		logger.Info("scenario step",
			zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)),
			zap.Stringer("command", cmd),
			zap.Int("ticks", step.Ticks))

		result, err := loop.Run(ctx, step.Ticks, sim.Hold(cmd))
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
	}

	return results, nil
}

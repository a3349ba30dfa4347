package optim

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/cartpole/internal/config"
	"github.com/san-kum/cartpole/internal/experiment"
)

// higherIsBetter names the loop metrics where a larger value is the better
// outcome. Every other metric is minimized.
var higherIsBetter = map[string]bool{
	"tracking": true,
}

// Maximizes reports whether Search prefers larger values of metric.
func Maximizes(metric string) bool {
	return higherIsBetter[metric]
}

// GridSearch evaluates every combination of parameter values and keeps the
// best one by a run metric. Combinations whose gain cannot be designed, or
// whose run diverges, are skipped.
type GridSearch struct {
	logger     *zap.Logger
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(logger *zap.Logger, params []string, ranges [][]float64) (*GridSearch, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(params), len(ranges))
	}
	scratch := config.DefaultConfig()
	for i, name := range params {
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("parameter %s has no values", name)
		}
		if err := scratch.SetParam(name, ranges[i][0]); err != nil {
			return nil, err
		}
	}
	return &GridSearch{logger: logger, paramNames: params, ranges: ranges}, nil
}

type Outcome struct {
	Params    map[string]float64
	Value     float64
	Maximized bool
	Evaluated int
	Skipped   int
}

// Search runs base with each combination applied. It fails only when the
// context is canceled or no combination could be evaluated.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (*Outcome, error) {
	out := &Outcome{Value: math.Inf(1), Maximized: Maximizes(metricName)}
	if out.Maximized {
		out.Value = math.Inf(-1)
	}
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, base, metricName, out); err != nil {
		return nil, err
	}
	if out.Params == nil {
		return out, fmt.Errorf("no combination of %v could be evaluated", g.paramNames)
	}
	return out, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, base *config.Config, metricName string, out *Outcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		cfg := base.Clone()
		for name, v := range current {
			_ = cfg.SetParam(name, v)
		}

		exp, err := experiment.New(cfg, experiment.WithLogger(g.logger.Named("experiment")))
		if err != nil {
			g.logger.Info("skipping combination", zap.Any("params", current), zap.Error(err))
			out.Skipped++
			return nil
		}
		result, err := exp.Run(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.logger.Info("skipping combination", zap.Any("params", current), zap.Error(err))
			out.Skipped++
			return nil
		}

		out.Evaluated++
		val, ok := result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("unknown metric: %s", metricName)
		}
		g.logger.Debug("evaluated combination", zap.Any("params", current), zap.Float64(metricName, val))
		if out.better(val) {
			out.Value = val
			out.Params = make(map[string]float64, len(current))
			for k, v := range current {
				out.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, next, base, metricName, out); err != nil {
			return err
		}
	}
	return nil
}

func (o *Outcome) better(val float64) bool {
	if math.IsNaN(val) {
		return false
	}
	if o.Maximized {
		return val > o.Value
	}
	return val < o.Value
}

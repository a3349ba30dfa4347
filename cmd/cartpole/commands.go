package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/cartpole/internal/analysis"
	"github.com/san-kum/cartpole/internal/automation"
	"github.com/san-kum/cartpole/internal/control"
	"github.com/san-kum/cartpole/internal/dynamo"
	"github.com/san-kum/cartpole/internal/experiment"
	"github.com/san-kum/cartpole/internal/integrators"
	"github.com/san-kum/cartpole/internal/optim"
	"github.com/san-kum/cartpole/internal/sim"
	"github.com/san-kum/cartpole/internal/tui"
)

var stateLabels = []string{"cart position", "cart velocity", "pole angle", "pole angular velocity"}

func newExperiment(cmd *cobra.Command) (*experiment.Experiment, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	return experiment.New(cfg, experiment.WithLogger(logger.Named("experiment")))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s cart-pole, control=%s, %d ticks of %gs...\n", exp.Mode, cfg.Control, cfg.Ticks, cfg.Dt)
	start := time.Now()
	result, err := exp.Run(ctx, nil)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("steps: %d\n", result.StepsTaken)
	printState("final", result.States[len(result.States)-1])
	fmt.Println("\nmetrics:")
	for _, name := range []string{"control_effort", "peak_force", "tracking", "tracking_rms", "energy", "energy_drift"} {
		if v, ok := result.Metrics[name]; ok {
			fmt.Printf("  %s: %.6f\n", name, v)
		}
	}

	series := make([]float64, len(result.States))
	for i, x := range result.States {
		series[i] = x[dynamo.PoleAngle]
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(downsample(series, 80), asciigraph.Height(10), asciigraph.Width(80), asciigraph.Caption(stateLabels[dynamo.PoleAngle])))
	return nil
}

func printState(name string, x []float64) {
	fmt.Printf("%s state: x=%+.4f ẋ=%+.4f θ=%+.4f θ̇=%+.4f\n", name, x[0], x[1], x[2], x[3])
}

func showGain(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	ss := exp.StateSpace

	fmt.Println(heading.Render("A"))
	fmt.Printf("%.5g\n\n", mat.Formatted(ss.A, mat.Squeeze()))
	fmt.Println(heading.Render("B"))
	fmt.Printf("%.5g\n\n", mat.Formatted(ss.B.T(), mat.Squeeze()))

	ctrb := control.Controllable(ss)
	status := good.Render("yes")
	if !ctrb {
		status = bad.Render("no")
	}
	fmt.Printf("%s %s\n", label.Render("controllable:"), status)
	fmt.Printf("%s %v\n", label.Render("open-loop poles:"), formatPoles(control.ClosedLoopPoles(ss, make(control.Gain, 4))))

	k := exp.Feedback.K
	if k == nil {
		fmt.Println(label.Render("control mode none: no gain"))
		return nil
	}
	fmt.Println()
	fmt.Println(heading.Render("K (" + exp.Config().Control + ")"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  k_x\tk_ẋ\tk_θ\tk_θ̇")
	fmt.Fprintf(w, "  %.6f\t%.6f\t%.6f\t%.6f\n", k[0], k[1], k[2], k[3])
	w.Flush()

	cl := control.ClosedLoopPoles(ss, k)
	stable := good.Render("stable")
	if !control.IsStable(cl) {
		stable = bad.Render("unstable")
	}
	fmt.Printf("\n%s %v %s\n", label.Render("closed-loop poles:"), formatPoles(cl), stable)
	return nil
}

func formatPoles(ps []complex128) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		if math.Abs(imag(p)) < 1e-12 {
			parts[i] = fmt.Sprintf("%.4f", real(p))
		} else {
			parts[i] = fmt.Sprintf("%.4f%+.4fi", real(p), imag(p))
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// seriesPlot draws every state component of a trajectory with asciigraph.
type seriesPlot struct {
	width, height int
}

func (s seriesPlot) Plot(tr *integrators.Trajectory) error {
	for i, name := range stateLabels {
		data := tr.Component(i)
		if data == nil {
			return fmt.Errorf("trajectory has no component %d", i)
		}
		fmt.Println(asciigraph.Plot(downsample(data, s.width), asciigraph.Height(s.height), asciigraph.Width(s.width), asciigraph.Caption(name)))
		fmt.Println()
	}
	return nil
}

func downsample(data []float64, n int) []float64 {
	if len(data) <= n {
		return data
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = data[i*(len(data)-1)/(n-1)]
	}
	return out
}

func plotTrajectory(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	tr, err := exp.Trajectory(ctx, samples)
	if err != nil {
		return fmt.Errorf("trajectory: %w", err)
	}
	fmt.Printf("solved %gs in %d steps (%d rejected)\n\n", exp.Config().Duration, tr.StepsTaken, tr.Rejected)

	plotters := []sim.Plotter{
		seriesPlot{width: 80, height: 10},
		&analysis.PhasePlot{
			W:      os.Stdout,
			XIndex: xAxis,
			YIndex: yAxis,
			Width:  60,
			Height: 20,
			Title:  fmt.Sprintf("phase portrait: %s vs %s", componentName(yAxis), componentName(xAxis)),
		},
	}
	for _, p := range plotters {
		if err := p.Plot(tr); err != nil {
			return err
		}
	}

	target := exp.Config().TargetState()
	if ts, ok := analysis.SettlingTime(tr, target, tolerance); ok {
		fmt.Printf("\n%s %.2fs (band %g)\n", label.Render("settling time:"), ts, tolerance)
	} else {
		fmt.Printf("\n%s\n", bad.Render("did not settle"))
	}
	fmt.Printf("%s %.4f\n", label.Render("cart overshoot:"), analysis.Overshoot(tr, target, 0))
	if section >= 0 {
		printSection(tr, section)
	}
	printState("final", tr.Final().State)
	return nil
}

// printSection lists where component idx crosses zero upwards, as (cart
// position, pole angle) pairs.
func printSection(tr *integrators.Trajectory, idx int) {
	pts := analysis.PoincareSection(tr, idx, 0, dynamo.CartPos, dynamo.PoleAngle)
	fmt.Printf("%s %d\n", label.Render(fmt.Sprintf("%s zero crossings:", componentName(idx))), len(pts))
	for i, p := range pts {
		if i == 8 {
			fmt.Printf("  ... %d more\n", len(pts)-i)
			break
		}
		fmt.Printf("  x=%+.4f θ=%+.4f\n", p.X, p.Y)
	}
}

func componentName(i int) string {
	if i >= 0 && i < len(stateLabels) {
		return stateLabels[i]
	}
	return fmt.Sprintf("x%d", i)
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	initial, trs, err := exp.Ensemble(ctx, runs, samples, workers)
	if err != nil {
		return fmt.Errorf("ensemble: %w", err)
	}
	settled := analysis.Basin(trs, exp.Config().TargetState(), tolerance)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "run\tx0\tθ0\tθ̇0\tsettled")
	n := 0
	for i, ok := range settled {
		mark := bad.Render("no")
		if ok {
			mark = good.Render("yes")
			n++
		}
		fmt.Fprintf(w, "%d\t%+.3f\t%+.3f\t%+.3f\t%s\n", i, initial[i][dynamo.CartPos], initial[i][dynamo.PoleAngle], initial[i][dynamo.PoleRate], mark)
	}
	w.Flush()
	fmt.Printf("\n%d/%d settled within %g in %v\n", n, len(settled), tolerance, time.Since(start))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, logger.Named("sweep"), cfg, &automation.ParameterSweep{
		Param:     sweepParam,
		Min:       sweepMin,
		Max:       sweepMax,
		NumSteps:  sweepSteps,
		Tolerance: tolerance,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tstable\tsettled\tt_settle\tK\n", sweepParam)
	for _, r := range results {
		ts := "-"
		if r.Settled {
			ts = fmt.Sprintf("%.2f", r.SettlingTime)
		}
		fmt.Fprintf(w, "%.4f\t%v\t%v\t%s\t%.3f\n", r.ParamValue, r.Stable, r.Settled, ts, []float64(r.Gain))
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	loop, err := exp.Loop()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %s (%d ticks)\n", sc.Name, sc.Description, sc.Ticks())
	results, err := automation.RunScenario(ctx, logger.Named("scenario"), loop, sc)
	for i, res := range results {
		if len(res.States) == 0 {
			continue
		}
		last := res.States[len(res.States)-1]
		fmt.Printf("  step %d: %d ticks, x=%+.3f θ=%+.3f, tracking=%.3f\n", i+1, res.StepsTaken, last[dynamo.CartPos], last[dynamo.PoleAngle], res.Metrics["tracking"])
	}
	return err
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators (dt=%.4f, ticks=%d, control=%s)\n\n", cfg.Dt, cfg.Ticks, cfg.Control)
	fmt.Printf("%-12s  %-12s  %-12s  %-12s\n", "integrator", "final_θ", "energy_drift", "time_ms")
	fmt.Println(strings.Repeat("-", 52))

	for _, name := range compareWith {
		c := cfg.Clone()
		c.Integrator = name
		exp, err := experiment.New(c, experiment.WithLogger(logger.Named("experiment")))
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(context.Background(), nil)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-12s  error: %v\n", name, err)
			continue
		}

		final := result.States[len(result.States)-1]
		fmt.Printf("%-12s  %12.6f  %12.2e  %12.2f\n", name, final[dynamo.PoleAngle], result.Metrics["energy_drift"], float64(elapsed.Microseconds())/1000)
	}
	return nil
}

func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, nil, fmt.Errorf("grid %q: expected name=v1,v2,...", spec)
		}
		var vals []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %q: %w", spec, err)
			}
			vals = append(vals, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(logger.Named("tune"), names, ranges)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	out, err := g.Search(ctx, cfg, tuneMetric)
	if err != nil {
		return err
	}
	fmt.Printf("evaluated %d combinations (%d skipped)\n", out.Evaluated, out.Skipped)
	fmt.Printf("%s %s = %.6f\n", label.Render("best"), tuneMetric, out.Value)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, out.Params[name])
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	exp, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	return tui.Run(exp)
}

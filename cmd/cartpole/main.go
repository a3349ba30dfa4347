package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/cartpole/internal/config"
)

var (
	configFile string
	preset     string
	verbose    bool

	dt         float64
	ticks      int
	duration   float64
	seed       int64
	model      string
	integrator string
	controlArg string
	target     float64
	damped     bool
	forceMag   float64
	maxForce   float64
	random     bool
	pos        float64
	vel        float64
	theta      float64
	omega      float64
	downwards  float64
	poles      []float64
	qDiag      []float64
	rWeight    float64

	samples   int
	runs      int
	workers   int
	xAxis     int
	yAxis     int
	tolerance float64
	section   int

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	compareWith []string

	tuneGrid   []string
	tuneMetric string
)

var logger = zap.NewNop()

// newLogger writes console-encoded entries to stderr: warnings only by
// default, everything down to debug with -v.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""
	return cfg.Build()
}

var (
	heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	good    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	bad     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cartpole",
		Short: "cart-pole simulation and control synthesis lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a named preset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log design and loop events to stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "tick the simulation loop and report metrics",
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)

	gainCmd := &cobra.Command{
		Use:   "gain",
		Short: "linearize and synthesize the feedback gain",
		RunE:  showGain,
	}
	addSimFlags(gainCmd)

	trajectoryCmd := &cobra.Command{
		Use:   "trajectory",
		Short: "solve the closed loop offline and plot it",
		RunE:  plotTrajectory,
	}
	addSimFlags(trajectoryCmd)
	trajectoryCmd.Flags().IntVar(&samples, "samples", 300, "output samples")
	trajectoryCmd.Flags().IntVar(&xAxis, "x-axis", 2, "state index for the phase portrait x-axis")
	trajectoryCmd.Flags().IntVar(&yAxis, "y-axis", 3, "state index for the phase portrait y-axis")
	trajectoryCmd.Flags().Float64Var(&tolerance, "tol", 0.01, "settling band")
	trajectoryCmd.Flags().IntVar(&section, "section", 3, "state index whose upward zero crossings are listed (-1 to skip)")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "solve many random initial states and report which settle",
		RunE:  runEnsemble,
	}
	addSimFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 50, "number of initial states")
	ensembleCmd.Flags().IntVar(&workers, "workers", 8, "concurrent solves")
	ensembleCmd.Flags().IntVar(&samples, "samples", 100, "output samples per run")
	ensembleCmd.Flags().Float64Var(&tolerance, "tol", 0.05, "settling band")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "re-design the gain across a parameter range",
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "mass_pole", fmt.Sprintf("parameter to sweep %v", config.ParamNames()))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1.0, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	sweepCmd.Flags().Float64Var(&tolerance, "tol", 0.01, "settling band")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "play a scripted command sequence against the loop",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addSimFlags(scenarioCmd)

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare integrators on the same run",
		RunE:  compareIntegrators,
	}
	addSimFlags(compareCmd)
	compareCmd.Flags().StringSliceVar(&compareWith, "with", []string{"euler", "rk4", "rk45"}, "integrators to compare")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search parameters to minimize a run metric",
		RunE:  runTune,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", []string{"q_theta=1,10,100", "r=0.01,0.1,1"}, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "control_effort", "metric to minimize")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive terminal view",
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.Presets[name]
				fmt.Printf("  %-12s %s\n", name, label.Render(fmt.Sprintf("control=%s model=%s integrator=%s", p.Control, p.Model, p.Integrator)))
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the resolved config as yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	addSimFlags(initCmd)

	rootCmd.AddCommand(runCmd, gainCmd, trajectoryCmd, ensembleCmd, sweepCmd, scenarioCmd, compareCmd, tuneCmd, liveCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.Float64Var(&dt, "dt", def.Dt, "tick length in seconds")
	f.IntVar(&ticks, "ticks", def.Ticks, "number of ticks")
	f.Float64Var(&duration, "time", def.Duration, "offline duration in seconds")
	f.Int64Var(&seed, "seed", def.Seed, "random seed")
	f.StringVar(&model, "model", def.Model, "nonlinear or linearized")
	f.StringVar(&integrator, "integrator", def.Integrator, "euler, rk4 or rk45")
	f.StringVar(&controlArg, "control", def.Control, "none, pole_placement or lqr")
	f.Float64Var(&target, "target", def.Target, "cart set-point")
	f.BoolVar(&damped, "damped", def.Damped, "apply cart dissipation")
	f.Float64Var(&forceMag, "force-mag", def.ForceMag, "force of a full manual push")
	f.Float64Var(&maxForce, "max-force", def.MaxForce, "clip |force| (0 disables)")
	f.BoolVar(&random, "random", def.InitState.Random, "draw the initial state from the seed")
	f.Float64Var(&pos, "pos", def.InitState.Pos, "initial cart position")
	f.Float64Var(&vel, "vel", def.InitState.Vel, "initial cart velocity")
	f.Float64Var(&theta, "theta", def.InitState.Theta, "initial pole angle")
	f.Float64Var(&omega, "omega", def.InitState.Omega, "initial pole angular velocity")
	f.Float64Var(&downwards, "downwards", def.Constants.Downwards, "-1 measures θ from upright, 1 from hanging")
	f.Float64SliceVar(&poles, "poles", def.ControllerParams.Poles, "closed-loop poles for pole placement")
	f.Float64SliceVar(&qDiag, "q", def.ControllerParams.Q, "diagonal of the LQR state weight")
	f.Float64Var(&rWeight, "r", def.ControllerParams.R, "LQR force weight")
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("ticks") {
		cfg.Ticks = ticks
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("model") {
		cfg.Model = model
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("control") {
		cfg.Control = controlArg
	}
	if f.Changed("target") {
		cfg.Target = target
	}
	if f.Changed("damped") {
		cfg.Damped = damped
	}
	if f.Changed("force-mag") {
		cfg.ForceMag = forceMag
	}
	if f.Changed("max-force") {
		cfg.MaxForce = maxForce
	}
	if f.Changed("random") {
		cfg.InitState.Random = random
	}
	if f.Changed("pos") {
		cfg.InitState.Pos = pos
	}
	if f.Changed("vel") {
		cfg.InitState.Vel = vel
	}
	if f.Changed("theta") {
		cfg.InitState.Theta = theta
	}
	if f.Changed("omega") {
		cfg.InitState.Omega = omega
	}
	if f.Changed("downwards") {
		cfg.Constants.Downwards = downwards
	}
	if f.Changed("poles") {
		cfg.ControllerParams.Poles = poles
	}
	if f.Changed("q") {
		cfg.ControllerParams.Q = qDiag
	}
	if f.Changed("r") {
		cfg.ControllerParams.R = rWeight
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

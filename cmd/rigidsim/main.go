package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/benjuntilla/rigidsim/internal/body"
	"github.com/benjuntilla/rigidsim/internal/config"
	"github.com/benjuntilla/rigidsim/internal/metrics"
	"github.com/benjuntilla/rigidsim/internal/sim"
	"github.com/benjuntilla/rigidsim/internal/viz"
)

var (
	configFile string
	preset     string
	links      int
	beams      bool
	mass       float64
	length     float64
	gravity    float64
	method     string
	dt         float64
	tol        float64
	duration   float64
	samples    int
	angles     string
	omegas     string
	seed       int64
	batch      int
	csvPath    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rigidsim",
		Short: "constrained rigid-body dynamics simulator",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "integrate a chain pendulum and report conservation metrics",
		RunE:  runSimulation,
	}
	addBodyFlags(runCmd)
	runCmd.Flags().StringVar(&csvPath, "csv", "", "export trajectory to CSV")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "animate a chain pendulum in the terminal",
		RunE:  runLive,
	}
	addBodyFlags(liveCmd)

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "compare integrators on the same system",
		RunE:  compareIntegrators,
	}
	addBodyFlags(compareCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, compareCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addBodyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&links, "links", config.DefaultLinks, "number of links")
	cmd.Flags().BoolVar(&beams, "beams", false, "massive beams instead of point masses")
	cmd.Flags().Float64Var(&mass, "mass", config.DefaultMass, "link mass")
	cmd.Flags().Float64Var(&length, "length", config.DefaultLength, "link length")
	cmd.Flags().Float64Var(&gravity, "gravity", config.DefaultGravity, "gravitational acceleration")
	cmd.Flags().StringVar(&method, "method", "rk4", "integrator (rk4, dopri5)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&tol, "tol", config.DefaultTol, "adaptive tolerance")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "stored samples")
	cmd.Flags().StringVar(&angles, "angles", "", "initial link angles, comma separated")
	cmd.Flags().StringVar(&omegas, "omegas", "", "initial angular velocities, comma separated")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for sampled initial conditions")
	cmd.Flags().IntVar(&batch, "batch", 1, "number of sampled systems")
}

// buildConfig resolves preset, config file, and flags in that order; flags
// the user set explicitly win.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("links") {
		cfg.Body.Links = links
	}
	if flags.Changed("beams") {
		cfg.Body.Beams = beams
	}
	if flags.Changed("mass") {
		cfg.Body.Mass = mass
	}
	if flags.Changed("length") {
		cfg.Body.Length = length
	}
	if flags.Changed("gravity") {
		cfg.Body.Gravity = gravity
	}
	if flags.Changed("method") {
		cfg.Solver.Method = method
	}
	if flags.Changed("dt") {
		cfg.Solver.Dt = dt
	}
	if flags.Changed("tol") {
		cfg.Solver.Tol = tol
	}
	if flags.Changed("time") {
		cfg.Run.Duration = duration
	}
	if flags.Changed("samples") {
		cfg.Run.Samples = samples
	}
	if flags.Changed("angles") {
		vals, err := parseFloats(angles)
		if err != nil {
			return nil, err
		}
		cfg.Init.Angles = vals
	}
	if flags.Changed("omegas") {
		vals, err := parseFloats(omegas)
		if err != nil {
			return nil, err
		}
		cfg.Init.Omegas = vals
	}
	if flags.Changed("seed") || flags.Changed("batch") {
		cfg.Init.Angles = nil
		cfg.Init.Omegas = nil
		cfg.Init.Seed = seed
		cfg.Init.Batch = batch
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	chain := cfg.Chain()
	field, err := chain.Field()
	if err != nil {
		return err
	}

	s := sim.New(field, cfg.SolverOptions())
	s.AddMetric(metrics.NewEnergyDrift(chain.Energy))
	s.AddMetric(metrics.NewConstraintViolation(chain.MaxConstraintViolation))
	s.AddMetric(metrics.NewBoundedness(1e3))

	z0 := chain.VelocityToMomentum(cfg.InitialState(chain))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := s.Run(ctx, z0, cfg.Times())
	if err != nil {
		return err
	}

	fmt.Println(viz.Summary([][2]string{
		{"links", fmt.Sprintf("%d", cfg.Body.Links)},
		{"method", cfg.Solver.Method},
		{"duration", fmt.Sprintf("%.2f s", cfg.Run.Duration)},
		{"steps", fmt.Sprintf("%d", result.Steps)},
		{"evals", fmt.Sprintf("%d", result.NFE)},
		{"drift", fmt.Sprintf("%.3e", result.Metrics["energy_drift"])},
		{"violation", fmt.Sprintf("%.3e", result.Metrics["constraint_violation"])},
	}))

	energies := make([]float64, len(result.States))
	for i, z := range result.States {
		e, err := chain.Energy(z)
		if err != nil {
			return err
		}
		energies[i] = e[0]
	}
	fmt.Println(viz.PlotSeries("energy", energies, 60, 8))

	tip := make([]float64, len(result.States))
	last := (chain.N() - 1) * 2
	for i, z := range result.States {
		tip[i] = z.At(0, last+1)
	}
	fmt.Println(viz.PlotSeries("tip height", tip, 60, 8))

	if csvPath != "" {
		if err := writeCSV(csvPath, chain, result); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", csvPath)
	}
	return nil
}

// writeCSV exports the trajectory as (x, v) states, one row per (time,
// batch element) pair.
func writeCSV(path string, chain *body.ChainPendulum, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"t", "batch"}
	for i := 0; i < chain.N(); i++ {
		header = append(header, fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i))
	}
	for i := 0; i < chain.N(); i++ {
		header = append(header, fmt.Sprintf("vx%d", i), fmt.Sprintf("vy%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for k, z := range result.States {
		zv, err := chain.MomentumToVelocity(z)
		if err != nil {
			return err
		}
		for b := 0; b < zv.Batch; b++ {
			row := make([]string, 0, 2+zv.Dim)
			row = append(row, strconv.FormatFloat(result.Times[k], 'g', -1, 64), strconv.Itoa(b))
			for _, v := range zv.Row(b) {
				row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Init.Angles) == 0 && cfg.Init.Batch != 1 {
		return fmt.Errorf("live view animates one system, got batch %d", cfg.Init.Batch)
	}

	chain := cfg.Chain()
	m, err := viz.NewModel(chain, cfg.InitialState(chain), cfg.SolverOptions())
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	chain := cfg.Chain()
	z0 := chain.VelocityToMomentum(cfg.InitialState(chain))
	times := cfg.Times()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "method\tsteps\tevals\tdrift\tviolation")

	for _, name := range []string{"rk4", "dopri5"} {
		opts := cfg.SolverOptions()
		opts.Method = name

		field, err := chain.Field()
		if err != nil {
			return err
		}
		s := sim.New(field, opts)
		s.AddMetric(metrics.NewEnergyDrift(chain.Energy))
		s.AddMetric(metrics.NewConstraintViolation(chain.MaxConstraintViolation))

		var result *sim.Result
		result, err = s.Run(context.Background(), z0, times)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.3e\t%.3e\n",
			name, result.Steps, result.NFE,
			result.Metrics["energy_drift"], result.Metrics["constraint_violation"])
	}
	return w.Flush()
}

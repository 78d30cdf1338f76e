package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/holosym/internal/config"
	"github.com/san-kum/holosym/internal/telemetry"
)

var (
	dataDir  string
	logLevel string

	configFile string
	preset     string
	integrator string
	samples    int
	spanStart  float64
	spanEnd    float64
	absTol     float64
	relTol     float64
	maxSteps   int
	workers    int
	noSave     bool
	figuresDir string

	axes []string

	xAxis     string
	yAxis     string
	poincare  bool
	section   string
	threshold float64
	component string
	lyapunov  bool
	outPath   string
	format    string
)

var log *slog.Logger

func main() {
	rootCmd := newRootCmd()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "holosym")
	if err != nil {
		telemetry.NewLogger(os.Stderr, slog.LevelInfo).Warn("tracing disabled", "err", err)
	}

	err = rootCmd.ExecuteContext(ctx)
	_ = shutdown(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "holosym",
		Short:         "breathing and compensator field simulator",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("log-level") {
				if v := os.Getenv("HOLOSYM_LOG_LEVEL"); v != "" {
					logLevel = v
				}
			}
			level, err := telemetry.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log = telemetry.NewLogger(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory (env HOLOSYM_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "integrate the breathing model and store the trajectory",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&figuresDir, "figures", "", "also render figures into this directory")
	runCmd.Flags().Duration("timeout", 0, "abort the integration after this long (0 = no limit)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [quantity] [value...]",
		Short: "run one integration per value of a state component or parameter",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")
	sweepCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	searchCmd := &cobra.Command{
		Use:     "search [metric]",
		Short:   "grid search for the configuration minimizing a metric",
		Example: "  holosym search chi_amplitude --axis gamma_pp=0,0.05,0.1 --axis chi=0,0.1",
		Args:    cobra.ExactArgs(1),
		RunE:    runSearch,
	}
	addConfigFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&axes, "axis", nil, "searched quantity as name=v1,v2,... (repeatable)")
	searchCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "compare integrators on the same configuration",
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run components against time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xAxis, "x-axis", "phi", "component for the x-axis")
	phaseCmd.Flags().StringVar(&yAxis, "y-axis", "phi_dot", "component for the y-axis")
	phaseCmd.Flags().BoolVar(&poincare, "poincare", false, "plot the Poincaré section instead of the full portrait")
	phaseCmd.Flags().StringVar(&section, "section", "chi", "component whose upward crossings define the section")
	phaseCmd.Flags().Float64Var(&threshold, "threshold", 0, "crossing level of the section component")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&component, "component", "phi", "component to analyse")
	analyzeCmd.Flags().BoolVar(&lyapunov, "lyapunov", false, "also estimate the largest Lyapunov exponent")

	figuresCmd := &cobra.Command{
		Use:   "figures [run_id]",
		Short: "render φ(t), χ(t) and both phase portraits to image files",
		Args:  cobra.ExactArgs(1),
		RunE:  renderFigures,
	}
	figuresCmd.Flags().StringVar(&outPath, "out", "", "output directory (default: the run directory)")
	figuresCmd.Flags().StringVar(&format, "format", "png", "image format (png, svg)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&outPath, "out", "", "output file (default: stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&outPath, "out", "", "output file (default: stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, searchCmd, compareCmd, listCmd, plotCmd, phaseCmd, analyzeCmd, figuresCmd, exportCSVCmd, exportJSONCmd, presetsCmd)
	return rootCmd
}

// quantityFlags are the initial state components and model parameters
// accepted on the command line.
var quantityFlags = []struct {
	name, usage string
}{
	{"phi", "initial φ"},
	{"phi-dot", "initial φ̇"},
	{"chi", "initial χ"},
	{"chi-dot", "initial χ̇"},
	{"kappa", "φ inertia κ"},
	{"lambda4", "potential scale Λ⁴"},
	{"g0", "χ coupling g0"},
	{"gamma-pp", "φ-χ coupling γ"},
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&integrator, "integrator", "rk45", "integrator (rk45, dopri5, rk4)")
	f.IntVar(&samples, "samples", 5000, "number of output samples")
	f.Float64Var(&spanStart, "start", 0, "start time")
	f.Float64Var(&spanEnd, "end", 100, "end time")
	f.Float64Var(&absTol, "abs-tol", 1e-9, "absolute tolerance")
	f.Float64Var(&relTol, "rel-tol", 1e-6, "relative tolerance")
	f.IntVar(&maxSteps, "max-steps", 1_000_000, "step budget (accepted plus rejected)")

	for _, q := range quantityFlags {
		f.Float64(q.name, 0, q.usage)
	}
}

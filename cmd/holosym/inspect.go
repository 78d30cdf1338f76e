package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/holosym/internal/analysis"
	"github.com/san-kum/holosym/internal/config"
	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/experiment"
	"github.com/san-kum/holosym/internal/figure"
	"github.com/san-kum/holosym/internal/physics"
	"github.com/san-kum/holosym/internal/storage"
	"github.com/san-kum/holosym/internal/viz"
)

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := openStore(cmd).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tINTEG\tSPAN\tSAMPLES\tOUTCOME\tENERGY_DRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t[%g, %g]\t%d\t%s\t%.2e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Integrator,
			run.Span.Start, run.Span.End,
			run.Samples,
			run.Outcome,
			run.Metrics["energy_drift"],
		)
	}

	return w.Flush()
}

// loadRun reads the metadata and samples of a stored run.
func loadRun(cmd *cobra.Command, runID string) (*storage.RunMetadata, *dynamo.Trajectory, error) {
	st := openStore(cmd)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	if traj.Len() == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, traj, nil
}

func columnIndex(meta *storage.RunMetadata, name string) (int, error) {
	columns := meta.Columns
	if len(columns) == 0 {
		columns = physics.ComponentNames
	}
	if i := slices.Index(columns, name); i >= 0 {
		return i, nil
	}
	return 0, fmt.Errorf("unknown component %q (available: %s)", name, strings.Join(columns, ", "))
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("outcome: %s\n", viz.Outcome(meta.Outcome))
	fmt.Printf("samples: %d over [%g, %g]\n\n", traj.Len(), traj.Times[0], traj.Times[traj.Len()-1])

	for k, name := range meta.Columns {
		graph := asciigraph.Plot(traj.Column(k),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	var out string
	if poincare {
		out, err = poincareView(meta, traj, section, threshold, xAxis, yAxis)
	} else {
		out, err = phaseView(meta, traj, xAxis, yAxis)
	}
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func phaseView(meta *storage.RunMetadata, traj *dynamo.Trajectory, x, y string) (string, error) {
	xIdx, err := columnIndex(meta, x)
	if err != nil {
		return "", err
	}
	yIdx, err := columnIndex(meta, y)
	if err != nil {
		return "", err
	}
	portrait, err := analysis.PhasePortrait(traj, xIdx, yIdx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("phase space plot: %s\nx-axis: %s, y-axis: %s\n\n%s",
		meta.ID, x, y, analysis.PhasePortraitToASCII(portrait, 70, 24)), nil
}

// poincareView plots (x, y) at each upward crossing of cross through level.
func poincareView(meta *storage.RunMetadata, traj *dynamo.Trajectory, cross string, level float64, x, y string) (string, error) {
	idx := make([]int, 3)
	for i, name := range []string{cross, x, y} {
		k, err := columnIndex(meta, name)
		if err != nil {
			return "", err
		}
		idx[i] = k
	}
	sec, err := analysis.GeneratePoincareSection(traj, idx[0], level, idx[1], idx[2])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("poincaré section: %s\n%s = %g (upward), %d crossings\nx-axis: %s, y-axis: %s\n\n%s",
		meta.ID, cross, level, len(sec.Points), x, y, analysis.PoincareSectionToASCII(sec, 70, 24)), nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	idx, err := columnIndex(meta, component)
	if err != nil {
		return err
	}

	spectrum, err := analysis.ComponentSpectrum(traj, idx)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n\n", meta.ID)

	plotData := spectrum.Power[:max(len(spectrum.Power)/4, 2)]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum ("+component+")"),
	)
	fmt.Println(graph)
	fmt.Println()

	values := map[string]float64{}
	if freq := spectrum.Dominant(); freq > 0 {
		values["dominant_frequency"] = freq
		values["period"] = 1 / freq
	}

	if lyapunov {
		cfg, err := configFromMetadata(meta)
		if err != nil {
			return err
		}
		exp, err := experiment.New(cfg, log)
		if err != nil {
			return err
		}
		lambda, err := analysis.LyapunovExponent(cmd.Context(), exp.System(), exp.Integrator(),
			cfg.GetInitState(), 1.0, cfg.Span.Length(), 1e-8)
		if err != nil {
			return fmt.Errorf("lyapunov: %w", err)
		}
		values["lyapunov_exponent"] = lambda
	}

	if len(values) == 0 {
		fmt.Println("no dominant frequency (flat signal)")
		return nil
	}
	fmt.Println(viz.Metrics(values))
	return nil
}

// configFromMetadata rebuilds the configuration a stored run was made with.
func configFromMetadata(meta *storage.RunMetadata) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = meta.Model
	cfg.Integrator = meta.Integrator
	for name, v := range meta.Params {
		if err := experiment.Apply(cfg, name, v); err != nil {
			return nil, err
		}
	}
	if len(meta.InitState) == len(physics.ComponentNames) {
		cfg.SetInitState(meta.InitState)
	}
	cfg.Span = meta.Span
	cfg.Samples = meta.Samples
	cfg.Solver.Tolerances = meta.Tolerances
	return cfg, cfg.Validate()
}

func renderFigures(cmd *cobra.Command, args []string) error {
	_, traj, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	dir := outPath
	if dir == "" {
		dir = openStore(cmd).Dir(args[0])
	}

	opts := figure.DefaultOptions()
	opts.Format = format
	paths, err := figure.Render(dir, traj, opts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

// output opens --out, or stdout when it is empty.
func output() (io.WriteCloser, error) {
	if outPath == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outPath)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, meta.Columns, traj); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, traj, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	w, err := output()
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, *meta, traj); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		fmt.Fprintf(w, "%s\t%s\n", name, config.Presets[name].Description)
	}
	return w.Flush()
}

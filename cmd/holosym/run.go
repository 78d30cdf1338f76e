package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/experiment"
	"github.com/san-kum/holosym/internal/figure"
	"github.com/san-kum/holosym/internal/integrators"
	"github.com/san-kum/holosym/internal/physics"
	"github.com/san-kum/holosym/internal/storage"
	"github.com/san-kum/holosym/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fmt.Printf("running %s with %s...\n", cfg.Model, exp.Integrator().Name())
	res, runErr := exp.Run(ctx)

	runID := ""
	if !noSave && res.Trajectory.Len() > 0 {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err = st.Save(res.Metadata(), res.Trajectory)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		log.Debug("run stored", "run_id", runID, "samples", res.Trajectory.Len())

		if figuresDir != "" {
			paths, err := figure.Render(figuresDir, res.Trajectory, figure.DefaultOptions())
			if err != nil {
				return fmt.Errorf("render figures: %w", err)
			}
			for _, p := range paths {
				fmt.Printf("figure: %s\n", p)
			}
		}
	}

	fmt.Println(runSummary(res, runID))
	return runErr
}

func runSummary(res *experiment.Result, runID string) string {
	stats := res.Stats()
	lines := []string{
		viz.MetricLabel.Render("outcome     ") + viz.Outcome(res.Outcome),
		viz.MetricLabel.Render("integrator  ") + res.Integrator,
		viz.MetricLabel.Render("samples     ") + strconv.Itoa(res.Trajectory.Len()),
		viz.MetricLabel.Render("steps       ") + fmt.Sprintf("%d accepted, %d rejected, %d evaluations",
			stats.Accepted, stats.Rejected, stats.Evaluations),
		viz.MetricLabel.Render("elapsed     ") + res.Elapsed.Round(time.Microsecond).String(),
	}
	if runID != "" {
		lines = append(lines, viz.MetricLabel.Render("run id      ")+runID)
	}
	sections := []string{strings.Join(lines, "\n")}
	if len(res.Metrics) > 0 {
		sections = append(sections, viz.Metrics(res.Metrics))
	}
	if phi := res.Trajectory.Column(physics.Phi); len(phi) > 0 {
		sections = append(sections, viz.Subtle.Render("φ(t)")+"\n"+viz.SparklineChart(phi, 60))
	}
	if res.Err != nil {
		sections = append(sections, viz.StatusFail.Render(res.Err.Error()))
	}
	return viz.Summary("breathing run", sections...)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	name := args[0]
	values := make([]float64, 0, len(args)-1)
	for _, a := range args[1:] {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("%w: sweep value %q: %v", dynamo.ErrInvalidConfig, a, err)
		}
		values = append(values, v)
	}

	results, err := experiment.Sweep(cmd.Context(), cfg, name, values, log)
	if err != nil {
		return err
	}

	var st *storage.Store
	if !noSave {
		st = storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tOUTCOME\tACCEPTED\tREJECTED\tENERGY_DRIFT\tPHI_AMP\tCHI_AMP\tRUN\n", strings.ToUpper(name))
	failed := 0
	for i, res := range results {
		runID := "-"
		if st != nil && res.Trajectory.Len() > 0 {
			id, err := st.Save(res.Metadata(), res.Trajectory)
			if err != nil {
				return fmt.Errorf("save run: %w", err)
			}
			runID = id
		}
		if res.Err != nil {
			failed++
		}
		stats := res.Stats()
		fmt.Fprintf(w, "%g\t%s\t%d\t%d\t%.3e\t%.4g\t%.4g\t%s\n",
			values[i],
			res.Outcome,
			stats.Accepted,
			stats.Rejected,
			res.Metrics["energy_drift"],
			res.Metrics["phi_amplitude"],
			res.Metrics["chi_amplitude"],
			runID,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println(batchProgress(results))

	if failed > 0 {
		return fmt.Errorf("%d of %d sweep runs failed: %w", failed, len(results), experiment.FirstFailure(results))
	}
	return nil
}

func batchProgress(results []*experiment.Result) string {
	done := experiment.Completed(results)
	pct := 0.0
	if len(results) > 0 {
		pct = float64(done) / float64(len(results))
	}
	return viz.ProgressBar(pct, 30) + fmt.Sprintf(" %d/%d completed", done, len(results))
}

func parseAxis(arg string) (experiment.Axis, error) {
	name, list, ok := strings.Cut(arg, "=")
	if !ok || name == "" || list == "" {
		return experiment.Axis{}, fmt.Errorf("%w: axis %q: want name=v1,v2,...", dynamo.ErrInvalidConfig, arg)
	}
	axis := experiment.Axis{Name: name}
	for _, a := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return experiment.Axis{}, fmt.Errorf("%w: axis %s value %q: %v", dynamo.ErrInvalidConfig, name, a, err)
		}
		axis.Values = append(axis.Values, v)
	}
	return axis, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	grid := make([]experiment.Axis, 0, len(axes))
	for _, arg := range axes {
		axis, err := parseAxis(arg)
		if err != nil {
			return err
		}
		grid = append(grid, axis)
	}

	metric := args[0]
	sr, searchErr := experiment.NewGridSearch(grid...).Search(cmd.Context(), cfg, metric, log)
	if sr == nil {
		return searchErr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "POINT\tOUTCOME\t%s\n", strings.ToUpper(metric))
	for _, res := range sr.Results {
		fmt.Fprintf(w, "%s\t%s\t%.6g\n", searchLabel(res, grid), res.Outcome, res.Metrics[metric])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println(batchProgress(sr.Results))
	if searchErr != nil {
		return searchErr
	}

	best := make(map[string]float64, len(sr.Best)+1)
	for k, v := range sr.Best {
		best[k] = v
	}
	best[metric] = sr.Value
	fmt.Println()
	fmt.Println(viz.Summary("best grid point", viz.Metrics(best)))
	return nil
}

func searchLabel(res *experiment.Result, grid []experiment.Axis) string {
	parts := make([]string, len(grid))
	for i, axis := range grid {
		v, _ := experiment.Lookup(res.Config, axis.Name)
		parts[i] = fmt.Sprintf("%s=%g", axis.Name, v)
	}
	return strings.Join(parts, " ")
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		// dopri5 is an alias of rk45, which serves as the reference row.
		names = []string{"rk45"}
		for _, n := range integrators.Names() {
			if n != "rk45" && n != "dopri5" {
				names = append(names, n)
			}
		}
	}

	fmt.Printf("comparing integrators on [%g, %g] with %d samples\n\n", cfg.Span.Start, cfg.Span.End, cfg.Samples)
	results, runErr := experiment.Compare(cmd.Context(), cfg, names, log)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tOUTCOME\tFINAL_PHI\tENERGY_DRIFT\tEVALS\tMAX_DEV\tTIME_MS")
	for _, res := range results {
		dev := "-"
		if d, err := experiment.MaxDeviation(results[0].Trajectory, res.Trajectory); err == nil {
			dev = fmt.Sprintf("%.2e", d)
		}
		finalPhi := "-"
		if res.Trajectory.Len() > 0 {
			_, final := res.Trajectory.Final()
			finalPhi = fmt.Sprintf("%.9f", final[physics.Phi])
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2e\t%d\t%s\t%.2f\n",
			res.Integrator,
			res.Outcome,
			finalPhi,
			res.Metrics["energy_drift"],
			res.Stats().Evaluations,
			dev,
			float64(res.Elapsed.Microseconds())/1000,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if errors.Is(runErr, dynamo.ErrCanceled) {
		log.Warn("comparison interrupted", "completed", len(results))
	}
	return runErr
}

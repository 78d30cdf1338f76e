package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/san-kum/holosym/internal/config"
	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/physics"
	"github.com/san-kum/holosym/internal/telemetry"
)

// Apply sets one named quantity on cfg. Names are the state components
// (phi, phi_dot, chi, chi_dot) and the parameters (kappa, lambda4, g0,
// gamma_pp).
func Apply(cfg *config.Config, name string, value float64) error {
	if i := slices.Index(physics.ComponentNames, name); i >= 0 {
		y := cfg.GetInitState()
		y[i] = value
		cfg.SetInitState(y)
		return nil
	}
	b := physics.NewBreathing(cfg.Params)
	if err := b.SetParam(name, value); err != nil {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidConfig, err)
	}
	cfg.Params = b.Params
	return nil
}

// Lookup reads a quantity accepted by Apply.
func Lookup(cfg *config.Config, name string) (float64, error) {
	if i := slices.Index(physics.ComponentNames, name); i >= 0 {
		return cfg.GetInitState()[i], nil
	}
	v, ok := physics.NewBreathing(cfg.Params).GetParams()[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown quantity: %s", dynamo.ErrInvalidConfig, name)
	}
	return v, nil
}

// Sweep runs one experiment per value of the named quantity, starting from
// base, on cfg.Workers goroutines. Results are in value order; failed runs
// carry their error and partial trajectory.
func Sweep(ctx context.Context, base *config.Config, name string, values []float64, log *slog.Logger) ([]*Result, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one value", dynamo.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	points := make([]map[string]float64, len(values))
	for i, v := range values {
		points[i] = map[string]float64{name: v}
	}

	ctx, span := telemetry.Tracer().Start(ctx, "experiment.sweep")
	defer span.End()

	log.Info("sweep started", "quantity", name, "runs", len(points))
	out, err := runBatch(ctx, base, points, log)
	if err != nil {
		return nil, err
	}
	log.Info("sweep finished", "quantity", name, "runs", len(out), "failed", countFailed(out))
	return out, nil
}

// runBatch runs one experiment per point, each point overriding base with
// its named quantities, through a dynamo.Ensemble of base.Workers.
func runBatch(ctx context.Context, base *config.Config, points []map[string]float64, log *slog.Logger) ([]*Result, error) {
	exps := make([]*Experiment, len(points))
	jobs := make([]dynamo.Job, len(points))
	for i, point := range points {
		cfg := base.Clone()
		label := pointLabel(point)
		for _, name := range sortedKeys(point) {
			if err := Apply(cfg, name, point[name]); err != nil {
				return nil, err
			}
		}
		exp, err := New(cfg, log.With("run", label))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		exps[i] = exp
		jobs[i] = dynamo.Job{
			Name:       label,
			System:     exp.sys,
			Integrator: exp.integ,
			Y0:         cfg.GetInitState(),
			Span:       cfg.Span,
			Samples:    cfg.Samples,
		}
	}

	ensemble := dynamo.NewEnsemble(base.Workers)
	log.Debug("batch started", "runs", len(jobs), "workers", ensemble.Workers())

	jrs := ensemble.Run(ctx, jobs)
	out := make([]*Result, len(jobs))
	for i, jr := range jrs {
		res := exps[i].result(jr.Trajectory, jr.Err, jr.Elapsed)
		if res.Err != nil {
			log.Debug("batch run failed", "run", jr.Job.Name, "outcome", res.Outcome, "err", res.Err)
		}
		out[i] = res
	}
	if err := dynamo.FirstError(jrs); err != nil {
		log.Warn("batch had failures", "failed", countFailed(out), "runs", len(out), "first", err)
	}
	return out, nil
}

// FirstFailure returns the error of the first failed result in order.
func FirstFailure(results []*Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Completed counts the results that reached the end of their span.
func Completed(results []*Result) int {
	return len(results) - countFailed(results)
}

func countFailed(results []*Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func pointLabel(point map[string]float64) string {
	parts := make([]string, 0, len(point))
	for _, k := range sortedKeys(point) {
		parts = append(parts, fmt.Sprintf("%s=%g", k, point[k]))
	}
	return strings.Join(parts, ",")
}

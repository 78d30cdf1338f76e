package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/holosym/internal/config"
	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/integrators"
	"github.com/san-kum/holosym/internal/metrics"
	"github.com/san-kum/holosym/internal/physics"
	"github.com/san-kum/holosym/internal/storage"
	"github.com/san-kum/holosym/internal/telemetry"
)

type Experiment struct {
	cfg   *config.Config
	sys   *physics.Breathing
	integ dynamo.Integrator
	log   *slog.Logger
}

// New validates cfg and binds the system and integrator it names. A nil
// logger discards output.
func New(cfg *config.Config, log *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	solver := cfg.Solver
	solver.Logger = log.With("integrator", cfg.Integrator)
	integ, err := integrators.New(cfg.Integrator, solver)
	if err != nil {
		return nil, err
	}

	return &Experiment{
		cfg:   cfg.Clone(),
		sys:   physics.NewBreathing(cfg.Params),
		integ: integ,
		log:   log,
	}, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) System() *physics.Breathing { return e.sys }

func (e *Experiment) Integrator() dynamo.Integrator { return e.integ }

// Result is the outcome of one run. Trajectory holds the partial samples
// when Err is set and the failure produced any.
type Result struct {
	Config     *config.Config
	Integrator string
	Trajectory *dynamo.Trajectory
	Metrics    map[string]float64
	Outcome    string
	Err        error
	Elapsed    time.Duration
}

func (r *Result) Completed() bool { return r.Err == nil }

func (r *Result) Stats() dynamo.Stats {
	if r.Trajectory == nil {
		return dynamo.Stats{}
	}
	return r.Trajectory.Stats
}

// Run integrates the configured system. The returned error is also stored
// in the Result so that failed runs can still be saved and inspected.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "experiment.run")
	defer span.End()
	span.SetAttributes(e.attributes()...)

	e.log.Debug("integration started",
		"integrator", e.integ.Name(),
		"span", fmt.Sprintf("[%g, %g]", e.cfg.Span.Start, e.cfg.Span.End),
		"samples", e.cfg.Samples,
	)

	start := time.Now()
	traj, err := e.integ.Integrate(ctx, e.sys, e.cfg.GetInitState(), e.cfg.Span, e.cfg.Samples)
	res := e.result(traj, err, time.Since(start))
	e.finish(ctx, span, res)
	return res, res.Err
}

func (e *Experiment) attributes() []attribute.KeyValue {
	p := e.cfg.Params
	return []attribute.KeyValue{
		attribute.String("holosym.integrator", e.integ.Name()),
		attribute.Int("holosym.samples", e.cfg.Samples),
		attribute.Float64("holosym.span.start", e.cfg.Span.Start),
		attribute.Float64("holosym.span.end", e.cfg.Span.End),
		attribute.Float64("holosym.kappa", p.Kappa),
		attribute.Float64("holosym.lambda4", p.Lambda4),
		attribute.Float64("holosym.g0", p.G0),
		attribute.Float64("holosym.gamma_pp", p.GammaPP),
	}
}

func (e *Experiment) result(traj *dynamo.Trajectory, err error, elapsed time.Duration) *Result {
	res := &Result{
		Config:     e.cfg,
		Integrator: e.integ.Name(),
		Trajectory: traj,
		Outcome:    dynamo.Outcome(err),
		Err:        err,
		Elapsed:    elapsed,
	}
	if err != nil {
		res.Trajectory = dynamo.PartialTrajectory(err)
	}
	if res.Trajectory.Len() > 0 {
		res.Metrics = metrics.Evaluate(res.Trajectory, metrics.Default(e.sys, physics.Phi, physics.Chi)...)
	}
	return res
}

func (e *Experiment) finish(ctx context.Context, span trace.Span, res *Result) {
	stats := res.Stats()
	span.SetAttributes(
		attribute.String("holosym.outcome", res.Outcome),
		attribute.Int("holosym.steps.accepted", stats.Accepted),
		attribute.Int("holosym.steps.rejected", stats.Rejected),
		attribute.Int("holosym.evaluations", stats.Evaluations),
	)

	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Outcome)
		level := slog.LevelError
		if errors.Is(res.Err, dynamo.ErrCanceled) {
			level = slog.LevelWarn
		}
		e.log.Log(ctx, level, "integration failed",
			"outcome", res.Outcome,
			"err", res.Err,
			"samples", res.Trajectory.Len(),
		)
		return
	}

	e.log.Info("integration completed",
		"integrator", res.Integrator,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"evaluations", stats.Evaluations,
		"energy_drift", res.Metrics["energy_drift"],
		"elapsed", res.Elapsed.Round(time.Millisecond),
	)
}

// Metadata describes the run for storage.
func (r *Result) Metadata() storage.RunMetadata {
	meta := storage.RunMetadata{
		Model:      r.Config.Model,
		Integrator: r.Integrator,
		Params:     physics.NewBreathing(r.Config.Params).GetParams(),
		InitState:  r.Config.GetInitState(),
		Span:       r.Config.Span,
		Samples:    r.Config.Samples,
		Tolerances: r.Config.Solver.Tolerances,
		Columns:    physics.ComponentNames,
		Outcome:    r.Outcome,
		Metrics:    r.Metrics,
	}
	if r.Err != nil {
		meta.Error = r.Err.Error()
	}
	return meta
}

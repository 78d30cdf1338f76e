package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/holosym/internal/config"
	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/telemetry"
)

// Axis is one searched quantity and the values it takes.
type Axis struct {
	Name   string
	Values []float64
}

// GridSearch covers the Cartesian product of its axes.
type GridSearch struct {
	axes []Axis
}

func NewGridSearch(axes ...Axis) *GridSearch {
	return &GridSearch{axes: axes}
}

// Points enumerates the grid with the last axis varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	if len(g.axes) == 0 {
		return nil
	}
	var points []map[string]float64
	g.enumerate(0, map[string]float64{}, &points)
	return points
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, points *[]map[string]float64) {
	if depth == len(g.axes) {
		point := make(map[string]float64, len(current))
		for k, v := range current {
			point[k] = v
		}
		*points = append(*points, point)
		return
	}
	axis := g.axes[depth]
	for _, v := range axis.Values {
		current[axis.Name] = v
		g.enumerate(depth+1, current, points)
	}
}

// SearchResult is the grid point that minimized the metric.
type SearchResult struct {
	Best    map[string]float64
	Value   float64
	Results []*Result
}

// Search runs every grid point from base and returns the point with the
// smallest value of metric among completed runs. Failed runs and runs with
// a non-finite metric are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metric string, log *slog.Logger) (*SearchResult, error) {
	points := g.Points()
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: grid search needs at least one value per axis", dynamo.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "experiment.search")
	defer span.End()

	log.Info("grid search started", "axes", len(g.axes), "runs", len(points), "metric", metric)
	results, err := runBatch(ctx, base, points, log)
	if err != nil {
		return nil, err
	}

	out := &SearchResult{Value: math.Inf(1), Results: results}
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		v, ok := res.Metrics[metric]
		if !ok {
			return nil, fmt.Errorf("%w: unknown metric: %s", dynamo.ErrInvalidConfig, metric)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < out.Value {
			out.Value = v
			out.Best = points[i]
		}
	}
	if out.Best == nil {
		return out, fmt.Errorf("no grid point completed with a finite %s", metric)
	}

	log.Info("grid search finished", "best", pointLabel(out.Best), metric, out.Value, "failed", countFailed(results))
	return out, nil
}

package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/holosym/internal/config"
	"github.com/san-kum/holosym/internal/dynamo"
)

// Compare runs cfg once per integrator name, sequentially. It stops at the
// first failed run; that run's Result is the last element returned.
func Compare(ctx context.Context, cfg *config.Config, names []string, log *slog.Logger) ([]*Result, error) {
	results := make([]*Result, 0, len(names))
	for _, name := range names {
		c := cfg.Clone()
		c.Integrator = name
		exp, err := New(c, log)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		res, err := exp.Run(ctx)
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
	}
	return results, nil
}

// MaxDeviation is the largest absolute component difference between two
// trajectories sampled on the same grid.
func MaxDeviation(a, b *dynamo.Trajectory) (float64, error) {
	if a.Len() == 0 || b.Len() == 0 {
		return 0, fmt.Errorf("empty trajectory")
	}
	if a.Len() != b.Len() {
		return 0, fmt.Errorf("sample counts differ: %d vs %d", a.Len(), b.Len())
	}
	dev := 0.0
	for i := range a.States {
		if a.Times[i] != b.Times[i] {
			return 0, fmt.Errorf("sample %d: times differ: %g vs %g", i, a.Times[i], b.Times[i])
		}
		for k := range a.States[i] {
			dev = math.Max(dev, math.Abs(a.States[i][k]-b.States[i][k]))
		}
	}
	return dev, nil
}

package metrics

import (
	"math"

	"github.com/san-kum/holosym/internal/dynamo"
)

// Metric accumulates a scalar diagnostic over the samples of a trajectory.
type Metric interface {
	Name() string
	Observe(t float64, x dynamo.State)
	Value() float64
	Reset()
}

// Evaluate resets each metric, feeds it every sample of traj and returns
// the values keyed by metric name. Infinite values saturate and NaN values
// are left out, so the result always encodes as JSON.
func Evaluate(traj *dynamo.Trajectory, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
	}
	for i := 0; i < traj.Len(); i++ {
		t, x := traj.At(i)
		for _, m := range ms {
			m.Observe(t, x)
		}
	}
	for _, m := range ms {
		v := m.Value()
		if math.IsNaN(v) {
			continue
		}
		out[m.Name()] = math.Max(-math.MaxFloat64, math.Min(v, math.MaxFloat64))
	}
	return out
}

// Default returns the diagnostics recorded for every breathing run.
func Default(sys dynamo.System, phi, chi int) []Metric {
	ms := []Metric{
		NewEnergyDrift(sys),
		NewStability(1e3),
		NewAmplitude("phi_amplitude", phi),
		NewAmplitude("chi_amplitude", chi),
	}
	if e := NewEnergy(sys); e != nil {
		ms = append(ms, e)
	}
	return ms
}

package integrators

import (
	"context"

	"github.com/san-kum/holosym/internal/dynamo"
)

// RK4 is the classic fixed-step fourth-order method. Integrate takes
// Substeps equal steps across every sample interval so each grid point is
// hit exactly.
type RK4 struct {
	substeps int
}

func NewRK4() *RK4 {
	return &RK4{substeps: DefaultConfig().Substeps}
}

func NewRK4WithSubsteps(n int) *RK4 {
	if n <= 0 {
		n = DefaultConfig().Substeps
	}
	return &RK4{substeps: n}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) Substeps() int { return r.substeps }

type rk4Scratch struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func newRK4Scratch(n int) *rk4Scratch {
	return &rk4Scratch{
		k1:      make(dynamo.State, n),
		k2:      make(dynamo.State, n),
		k3:      make(dynamo.State, n),
		k4:      make(dynamo.State, n),
		scratch: make(dynamo.State, n),
	}
}

func (s *rk4Scratch) step(sys dynamo.System, t float64, x dynamo.State, dt float64) dynamo.State {
	n := len(x)

	copy(s.k1, sys.Derive(t, x))

	for i := 0; i < n; i++ {
		s.scratch[i] = x[i] + dt*0.5*s.k1[i]
	}
	copy(s.k2, sys.Derive(t+dt*0.5, s.scratch))

	for i := 0; i < n; i++ {
		s.scratch[i] = x[i] + dt*0.5*s.k2[i]
	}
	copy(s.k3, sys.Derive(t+dt*0.5, s.scratch))

	for i := 0; i < n; i++ {
		s.scratch[i] = x[i] + dt*s.k3[i]
	}
	copy(s.k4, sys.Derive(t+dt, s.scratch))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(s.k1[i]+2*s.k2[i]+2*s.k3[i]+s.k4[i])
	}

	return result
}

// Step advances x by a single RK4 step of size dt.
func (r *RK4) Step(sys dynamo.System, t float64, x dynamo.State, dt float64) dynamo.State {
	return newRK4Scratch(len(x)).step(sys, t, x, dt)
}

func (r *RK4) Integrate(ctx context.Context, sys dynamo.System, y0 dynamo.State, span dynamo.Span, samples int) (*dynamo.Trajectory, error) {
	if err := dynamo.ValidateRequest(sys, y0, span, samples); err != nil {
		return nil, err
	}

	grid := span.Grid(samples)
	out := dynamo.NewTrajectory(samples)
	s := newRK4Scratch(len(y0))

	y := y0.Clone()
	out.Append(grid[0], y.Clone())

	for i := 1; i < samples; i++ {
		t0 := grid[i-1]
		dt := (grid[i] - t0) / float64(r.substeps)

		for k := 0; k < r.substeps; k++ {
			t := t0 + float64(k)*dt
			y = s.step(sys, t, y, dt)
			out.Stats.Accepted++
			out.Stats.Evaluations += 4

			if !y.IsValid() {
				return nil, &dynamo.IntegrationError{
					Kind:    dynamo.ErrDiverged,
					Step:    out.Stats.Accepted,
					Time:    t + dt,
					State:   y.Clone(),
					Partial: out,
				}
			}
		}
		out.Stats.LastStep = dt
		out.Append(grid[i], y.Clone())

		if i < samples-1 {
			if err := ctx.Err(); err != nil {
				return nil, &dynamo.IntegrationError{
					Kind:    dynamo.ErrCanceled,
					Step:    out.Stats.Accepted,
					Time:    grid[i],
					State:   y.Clone(),
					Partial: out,
					Cause:   err,
				}
			}
		}
	}

	return out, nil
}

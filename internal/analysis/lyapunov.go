package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/holosym/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method with renormalization every interval.
// A positive value indicates chaos.
func LyapunovExponent(
	ctx context.Context,
	sys dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	interval, duration float64,
	perturbation float64,
) (float64, error) {
	if len(x0) == 0 {
		return 0, fmt.Errorf("%w: empty initial state", dynamo.ErrInvalidConfig)
	}
	if interval <= 0 || duration < interval || perturbation <= 0 {
		return 0, fmt.Errorf("%w: need 0 < interval <= duration and a positive perturbation", dynamo.ErrInvalidConfig)
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation

	sumLog := 0.0
	count := 0
	t := 0.0

	for t+interval <= duration+1e-12*duration {
		span := dynamo.Span{Start: t, End: t + interval}
		a, err := integ.Integrate(ctx, sys, x, span, 2)
		if err != nil {
			return 0, fmt.Errorf("reference trajectory: %w", err)
		}
		b, err := integ.Integrate(ctx, sys, xp, span, 2)
		if err != nil {
			return 0, fmt.Errorf("perturbed trajectory: %w", err)
		}
		_, x = a.Final()
		_, xp = b.Final()
		t = span.End

		delta := make(dynamo.State, len(x))
		for i := range x {
			delta[i] = xp[i] - x[i]
		}
		sep := delta.Norm()
		if sep == 0 {
			continue
		}

		sumLog += math.Log(sep / perturbation)
		count++

		scale := perturbation / sep
		xp = make(dynamo.State, len(x))
		for i := range xp {
			xp[i] = x[i] + delta[i]*scale
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * interval), nil
}

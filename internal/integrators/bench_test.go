package integrators

import (
	"context"
	"testing"

	"github.com/san-kum/holosym/internal/dynamo"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int { return 4 }
func (b *benchDynamics) Derive(t float64, x dynamo.State) dynamo.State {
	return dynamo.State{x[1], -x[0], x[3], -2 * x[2]}
}

func BenchmarkRK4Step(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0, 0.5, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, 0, x, 0.01)
	}
}

func BenchmarkRK45Integrate(b *testing.B) {
	integrator := NewRK45()
	dyn := &benchDynamics{}
	x0 := dynamo.State{1.0, 0.0, 0.5, 0.0}
	span := dynamo.Span{Start: 0, End: 100}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := integrator.Integrate(context.Background(), dyn, x0, span, 5000); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRK4Integrate(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDynamics{}
	x0 := dynamo.State{1.0, 0.0, 0.5, 0.0}
	span := dynamo.Span{Start: 0, End: 100}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := integrator.Integrate(context.Background(), dyn, x0, span, 5000); err != nil {
			b.Fatal(err)
		}
	}
}

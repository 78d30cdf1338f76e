package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/holosym/internal/dynamo"
)

func TestStability(t *testing.T) {
	tests := []struct {
		name   string
		states []dynamo.State
		want   float64
	}{
		{"empty", nil, 1.0},
		{"bounded", []dynamo.State{{0.1, 0.2}, {-0.5, 0.9}}, 1.0},
		{"half", []dynamo.State{{0.1, 0.2}, {5, 0}}, 0.5},
		{"nan", []dynamo.State{{math.NaN(), 0}}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStability(1.0)
			for i, x := range tt.states {
				s.Observe(float64(i), x)
			}
			if got := s.Value(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAmplitude(t *testing.T) {
	a := NewAmplitude("amp", 1)
	a.Observe(0, dynamo.State{10, -0.7})
	a.Observe(1, dynamo.State{-10, 0.4})
	a.Observe(2, dynamo.State{0})

	if a.Value() != 0.7 {
		t.Errorf("expected 0.7, got %v", a.Value())
	}
	a.Reset()
	if a.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

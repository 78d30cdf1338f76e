package integrators

import (
	"errors"
	"testing"

	"github.com/san-kum/holosym/internal/dynamo"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"rk45", "rk45"},
		{"dopri5", "rk45"},
		{"rk4", "rk4"},
	}
	for _, tt := range tests {
		integ, err := New(tt.name, DefaultConfig())
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if integ.Name() != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, integ.Name(), tt.want)
		}
	}

	if _, err := New("euler", DefaultConfig()); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewPassesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tolerances = dynamo.Tolerances{Abs: 1e-3, Rel: 1e-4}
	cfg.Substeps = 3

	dp, _ := New("rk45", cfg)
	if got := dp.(*DormandPrince).Config().Tolerances; got != cfg.Tolerances {
		t.Errorf("tolerances = %+v", got)
	}
	rk, _ := New("rk4", cfg)
	if got := rk.(*RK4).Substeps(); got != 3 {
		t.Errorf("substeps = %d", got)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 3 || names[0] != "dopri5" || names[1] != "rk4" || names[2] != "rk45" {
		t.Errorf("names = %v", names)
	}
}

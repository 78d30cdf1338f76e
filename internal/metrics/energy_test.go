package metrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/physics"
)

func pendulumParams() physics.Params {
	return physics.Params{Kappa: 1, Lambda4: 1}
}

func TestEnergyMean(t *testing.T) {
	m := NewEnergy(physics.NewBreathing(pendulumParams()))

	theta := math.Pi / 4
	omega := 0.5
	x := dynamo.State{theta, omega, 0, 0}

	m.Observe(0, x)
	expected := 0.5*omega*omega + math.Cos(theta)
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected energy %f, got %f", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyRequiresHamiltonian(t *testing.T) {
	if NewEnergy(plainSystem{}) != nil {
		t.Error("expected nil metric for a system without energy")
	}
}

type plainSystem struct{}

func (plainSystem) StateDim() int                                 { return 1 }
func (plainSystem) Derive(t float64, x dynamo.State) dynamo.State { return dynamo.State{0} }

func TestEnergyDrift(t *testing.T) {
	sys := physics.NewBreathing(pendulumParams())
	d := NewEnergyDrift(sys)

	// E = cos(0) = 1 at rest, E = 1.5 with φ̇ = 1.
	d.Observe(0, dynamo.State{0, 0, 0, 0})
	d.Observe(1, dynamo.State{0, 1, 0, 0})
	d.Observe(2, dynamo.State{0, 0, 0, 0})

	if math.Abs(d.Value()-0.5) > 1e-12 {
		t.Errorf("expected drift 0.5, got %f", d.Value())
	}

	d.Reset()
	if d.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestEnergyDriftZeroInitialEnergy(t *testing.T) {
	sys := physics.NewBreathing(pendulumParams())
	d := NewEnergyDrift(sys)

	// cos(π/2) ≈ 0 so the drift falls back to absolute.
	d.Observe(0, dynamo.State{math.Pi / 2, 0, 0, 0})
	d.Observe(1, dynamo.State{math.Pi / 2, 0.2, 0, 0})

	if math.Abs(d.Value()-0.02) > 1e-9 {
		t.Errorf("expected absolute drift 0.02, got %g", d.Value())
	}
}

func TestEvaluate(t *testing.T) {
	traj := dynamo.NewTrajectory(3)
	traj.Append(0, dynamo.State{0.1, 0, 0, 0})
	traj.Append(1, dynamo.State{-0.3, 0, 0.2, 0})
	traj.Append(2, dynamo.State{0.2, 0, -0.5, 0})

	sys := physics.NewBreathing(physics.DefaultParams())
	got := Evaluate(traj, Default(sys, physics.Phi, physics.Chi)...)

	if got["phi_amplitude"] != 0.3 {
		t.Errorf("phi_amplitude = %v", got["phi_amplitude"])
	}
	if got["chi_amplitude"] != 0.5 {
		t.Errorf("chi_amplitude = %v", got["chi_amplitude"])
	}
	if got["stability"] != 1 {
		t.Errorf("stability = %v", got["stability"])
	}
	if _, ok := got["energy_drift"]; !ok {
		t.Error("missing energy_drift")
	}
	if _, ok := got["energy"]; !ok {
		t.Error("missing energy")
	}
}

func TestDefaultWithoutHamiltonian(t *testing.T) {
	got := Evaluate(dynamo.NewTrajectory(0), Default(plainSystem{}, 0, 0)...)
	if _, ok := got["energy"]; ok {
		t.Error("energy reported for a system without energy")
	}
}

func TestEnergyDriftSaturates(t *testing.T) {
	// E0 = 1e-11 and a finite kinetic energy near 5e307 overflow the ratio.
	sys := physics.NewBreathing(physics.Params{Kappa: 1, Lambda4: 1e-11})
	traj := dynamo.NewTrajectory(2)
	traj.Append(0, dynamo.State{0, 0, 0, 0})
	traj.Append(1, dynamo.State{0, 1e154, 0, 0})

	got := Evaluate(traj, Default(sys, physics.Phi, physics.Chi)...)
	if got["energy_drift"] != math.MaxFloat64 {
		t.Errorf("energy_drift = %g, want MaxFloat64", got["energy_drift"])
	}
	if _, err := json.Marshal(got); err != nil {
		t.Errorf("metrics do not encode: %v", err)
	}
}

func TestEnergyDriftSkipsOverflow(t *testing.T) {
	sys := physics.NewBreathing(physics.Params{Kappa: 1, Lambda4: 1, G0: 1e200})
	d := NewEnergyDrift(sys)

	d.Observe(0, dynamo.State{0, 0, 1e200, 0})
	d.Observe(1, dynamo.State{0, 0, 0, 0})
	d.Observe(2, dynamo.State{0, 1, 0, 0})

	// The first finite energy (1) becomes the reference.
	if math.Abs(d.Value()-0.5) > 1e-12 {
		t.Errorf("expected drift 0.5, got %g", d.Value())
	}
}

package metrics

import (
	"math"

	"github.com/san-kum/holosym/internal/dynamo"
)

// Energy is the mean of the system energy over the observed samples.
type Energy struct {
	name    string
	sys     dynamo.Hamiltonian
	mean    float64
	samples int
}

// NewEnergy returns nil when sys has no energy function.
func NewEnergy(sys dynamo.System) *Energy {
	h, ok := sys.(dynamo.Hamiltonian)
	if !ok {
		return nil
	}
	return &Energy{name: "energy", sys: h}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(t float64, x dynamo.State) {
	energy := e.sys.Energy(x)
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return
	}
	e.samples++
	e.mean += (energy - e.mean) / float64(e.samples)
}

func (e *Energy) Value() float64 {
	return e.mean
}

func (e *Energy) Reset() {
	e.mean = 0
	e.samples = 0
}

// EnergyDrift is the largest deviation of the energy from its first
// observed value, relative to that value. When the initial energy is
// numerically zero the absolute deviation is reported. Non-finite
// energies are ignored and an overflowing drift saturates at
// math.MaxFloat64.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	sys           dynamo.System
}

func NewEnergyDrift(sys dynamo.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		sys:  sys,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(t float64, x dynamo.State) {
	ec, ok := e.sys.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(x)
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return
	}
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	drift := math.Abs(energy - e.initialEnergy)
	if math.Abs(e.initialEnergy) > 1e-12 {
		drift /= math.Abs(e.initialEnergy)
	}
	if math.IsInf(drift, 0) {
		drift = math.MaxFloat64
	}
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

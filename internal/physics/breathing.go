package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/holosym/internal/dynamo"
)

// State component indices for the breathing model.
const (
	Phi = iota
	PhiDot
	Chi
	ChiDot
)

// ComponentNames labels the state components in index order.
var ComponentNames = []string{"phi", "phi_dot", "chi", "chi_dot"}

// Params are the physical constants of the breathing/compensator model.
type Params struct {
	Kappa   float64 `json:"kappa" yaml:"kappa"`       // inertia of φ
	Lambda4 float64 `json:"lambda4" yaml:"lambda4"`   // breathing potential scale Λ⁴
	G0      float64 `json:"g0" yaml:"g0"`             // χ coupling constant
	GammaPP float64 `json:"gamma_pp" yaml:"gamma_pp"` // φ–χ coupling strength
}

func DefaultParams() Params {
	return Params{
		Kappa:   1.0,
		Lambda4: 1.0,
		G0:      0.5,
		GammaPP: 0.1,
	}
}

func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"kappa", p.Kappa},
		{"lambda4", p.Lambda4},
		{"g0", p.G0},
		{"gamma_pp", p.GammaPP},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %g", dynamo.ErrInvalidConfig, f.name, f.v)
		}
	}
	if p.Kappa <= 0 {
		return fmt.Errorf("%w: kappa must be positive, got %g", dynamo.ErrInvalidConfig, p.Kappa)
	}
	return nil
}

// Field evaluates (φ̇, φ̈, χ̇, χ̈) at y. The model is autonomous; t is kept
// for time-dependent forcing.
func Field(t float64, y dynamo.State, p Params) dynamo.State {
	phi, phiDot, chi, chiDot := y[Phi], y[PhiDot], y[Chi], y[ChiDot]
	sin, cos := math.Sincos(phi)

	phiDDot := (sin*(p.Lambda4+0.5*p.G0*chi*chi) + p.GammaPP*chi*p.Lambda4*cos) / p.Kappa
	chiDDot := -p.G0*(1+cos)*chi + p.GammaPP*p.Lambda4*sin

	return dynamo.State{phiDot, phiDDot, chiDot, chiDDot}
}

// Potential is V(φ, χ) such that κφ̈ = -∂V/∂φ and χ̈ = -∂V/∂χ.
func Potential(phi, chi float64, p Params) float64 {
	sin, cos := math.Sincos(phi)
	return p.Lambda4*cos + 0.5*p.G0*chi*chi*(1+cos) - p.GammaPP*p.Lambda4*chi*sin
}

// Breathing binds Params to Field so it can be driven by an integrator.
type Breathing struct {
	Params Params
}

func NewBreathing(p Params) *Breathing {
	return &Breathing{Params: p}
}

func (b *Breathing) StateDim() int {
	return 4
}

func (b *Breathing) Derive(t float64, y dynamo.State) dynamo.State {
	return Field(t, y, b.Params)
}

// Energy is conserved exactly by the equations of motion for every
// parameter set.
func (b *Breathing) Energy(y dynamo.State) float64 {
	ke := 0.5*b.Params.Kappa*y[PhiDot]*y[PhiDot] + 0.5*y[ChiDot]*y[ChiDot]
	return ke + Potential(y[Phi], y[Chi], b.Params)
}

func (b *Breathing) GetParams() map[string]float64 {
	return map[string]float64{
		"kappa":    b.Params.Kappa,
		"lambda4":  b.Params.Lambda4,
		"g0":       b.Params.G0,
		"gamma_pp": b.Params.GammaPP,
	}
}

// SetParam replaces one constant. It must not be called while a run using b
// is in flight.
func (b *Breathing) SetParam(name string, value float64) error {
	p := b.Params
	switch name {
	case "kappa":
		p.Kappa = value
	case "lambda4":
		p.Lambda4 = value
	case "g0":
		p.G0 = value
	case "gamma_pp":
		p.GammaPP = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	b.Params = p
	return nil
}

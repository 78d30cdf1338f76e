package config

import (
	"sort"

	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/physics"
)

type Preset struct {
	Description string
	apply       func(*Config)
}

var Presets = map[string]Preset{
	"reference": {
		Description: "default couplings, φ displaced by 0.01 from the top of the potential",
		apply:       func(*Config) {},
	},
	"decoupled": {
		Description: "γ = 0: φ is a pendulum and χ stays at rest",
		apply: func(c *Config) {
			c.Params.GammaPP = 0
		},
	},
	"compensator": {
		Description: "φ pinned at 0, χ oscillates harmonically with ω = √(2g0)",
		apply: func(c *Config) {
			c.Params.GammaPP = 0
			c.InitState = InitStateConfig{Chi: 0.3}
			c.Span = dynamo.Span{Start: 0, End: 50}
		},
	},
	"small-angle": {
		Description: "Λ⁴ < 0 makes φ = 0 stable; small oscillation with period 2π√κ",
		apply: func(c *Config) {
			c.Params = physics.Params{Kappa: 4, Lambda4: -1, G0: 0.5, GammaPP: 0.1}
			c.InitState = InitStateConfig{Phi: 0.1}
		},
	},
	"strong-coupling": {
		Description: "γ = 1 with a kicked compensator",
		apply: func(c *Config) {
			c.Params.GammaPP = 1.0
			c.InitState = InitStateConfig{Phi: 0.5, ChiDot: 0.2}
		},
	},
	"long": {
		Description: "reference couplings over t ∈ [0, 1000]",
		apply: func(c *Config) {
			c.Span = dynamo.Span{Start: 0, End: 1000}
			c.Samples = 20000
		},
	},
}

// GetPreset returns a fresh default config with the named preset applied,
// or nil when no such preset exists.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

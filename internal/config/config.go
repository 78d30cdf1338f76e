package config

import (
	"fmt"
	"math"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/integrators"
	"github.com/san-kum/holosym/internal/physics"
)

const (
	DefaultModel      = "breathing"
	DefaultIntegrator = "rk45"
	DefaultSamples    = 5000
	DefaultSpanEnd    = 100.0
	DefaultPhi        = 0.01
	DefaultDataDir    = "data"
)

type Config struct {
	Model      string             `yaml:"model"`
	Integrator string             `yaml:"integrator"`
	Params     physics.Params     `yaml:"params"`
	InitState  InitStateConfig    `yaml:"init_state"`
	Span       dynamo.Span        `yaml:"span"`
	Samples    int                `yaml:"samples"`
	Solver     integrators.Config `yaml:"solver"`
	Workers    int                `yaml:"workers"`
	DataDir    string             `yaml:"data_dir"`
}

type InitStateConfig struct {
	Phi    float64 `yaml:"phi"`
	PhiDot float64 `yaml:"phi_dot"`
	Chi    float64 `yaml:"chi"`
	ChiDot float64 `yaml:"chi_dot"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      DefaultModel,
		Integrator: DefaultIntegrator,
		Params:     physics.DefaultParams(),
		InitState:  InitStateConfig{Phi: DefaultPhi},
		Span:       dynamo.Span{Start: 0, End: DefaultSpanEnd},
		Samples:    DefaultSamples,
		Solver:     integrators.DefaultConfig(),
		DataDir:    DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.MergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeFile overlays the fields present in the YAML file at path onto c.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a copy that shares no mutable state with c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) GetInitState() dynamo.State {
	return dynamo.State{c.InitState.Phi, c.InitState.PhiDot, c.InitState.Chi, c.InitState.ChiDot}
}

func (c *Config) SetInitState(y dynamo.State) {
	c.InitState = InitStateConfig{Phi: y[physics.Phi], PhiDot: y[physics.PhiDot], Chi: y[physics.Chi], ChiDot: y[physics.ChiDot]}
}

// Validate reports every problem that would make a run meaningless. All
// returned errors wrap dynamo.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Model != DefaultModel {
		return fmt.Errorf("%w: unknown model: %s", dynamo.ErrInvalidConfig, c.Model)
	}
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if err := c.Span.Validate(); err != nil {
		return err
	}
	if c.Samples < 2 {
		return fmt.Errorf("%w: samples must be at least 2, got %d", dynamo.ErrInvalidConfig, c.Samples)
	}
	for i, v := range c.GetInitState() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: initial %s must be finite, got %g", dynamo.ErrInvalidConfig, physics.ComponentNames[i], v)
		}
	}
	if err := c.Solver.Tolerances.Validate(); err != nil {
		return err
	}
	if _, err := integrators.New(c.Integrator, c.Solver); err != nil {
		return err
	}
	return nil
}

// Env lists the environment overrides. Unset variables leave the loaded
// value in place.
type Env struct {
	Integrator string  `env:"HOLOSYM_INTEGRATOR"`
	Samples    int     `env:"HOLOSYM_SAMPLES"`
	SpanStart  float64 `env:"HOLOSYM_SPAN_START"`
	SpanEnd    float64 `env:"HOLOSYM_SPAN_END"`
	AbsTol     float64 `env:"HOLOSYM_ABS_TOL"`
	RelTol     float64 `env:"HOLOSYM_REL_TOL"`
	MaxSteps   int     `env:"HOLOSYM_MAX_STEPS"`
	Kappa      float64 `env:"HOLOSYM_KAPPA"`
	Lambda4    float64 `env:"HOLOSYM_LAMBDA4"`
	G0         float64 `env:"HOLOSYM_G0"`
	GammaPP    float64 `env:"HOLOSYM_GAMMA_PP"`
	Workers    int     `env:"HOLOSYM_WORKERS"`
	DataDir    string  `env:"HOLOSYM_DATA_DIR"`
}

// ApplyEnv overrides c from HOLOSYM_* environment variables.
func (c *Config) ApplyEnv() error {
	e := Env{
		Integrator: c.Integrator,
		Samples:    c.Samples,
		SpanStart:  c.Span.Start,
		SpanEnd:    c.Span.End,
		AbsTol:     c.Solver.Tolerances.Abs,
		RelTol:     c.Solver.Tolerances.Rel,
		MaxSteps:   c.Solver.MaxSteps,
		Kappa:      c.Params.Kappa,
		Lambda4:    c.Params.Lambda4,
		G0:         c.Params.G0,
		GammaPP:    c.Params.GammaPP,
		Workers:    c.Workers,
		DataDir:    c.DataDir,
	}
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	c.Integrator = e.Integrator
	c.Samples = e.Samples
	c.Span = dynamo.Span{Start: e.SpanStart, End: e.SpanEnd}
	c.Solver.Tolerances = dynamo.Tolerances{Abs: e.AbsTol, Rel: e.RelTol}
	c.Solver.MaxSteps = e.MaxSteps
	c.Params = physics.Params{Kappa: e.Kappa, Lambda4: e.Lambda4, G0: e.G0, GammaPP: e.GammaPP}
	c.Workers = e.Workers
	c.DataDir = e.DataDir
	return nil
}

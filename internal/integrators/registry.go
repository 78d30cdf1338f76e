package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/holosym/internal/dynamo"
)

var constructors = map[string]func(Config) dynamo.Integrator{
	"rk45":   func(c Config) dynamo.Integrator { return NewDormandPrince(c) },
	"dopri5": func(c Config) dynamo.Integrator { return NewDormandPrince(c) },
	"rk4": func(c Config) dynamo.Integrator {
		c = c.withDefaults()
		return NewRK4WithSubsteps(c.Substeps)
	},
}

// New returns the integrator registered under name, configured by cfg.
func New(name string, cfg Config) (dynamo.Integrator, error) {
	fn, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrInvalidConfig, name)
	}
	return fn(cfg), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

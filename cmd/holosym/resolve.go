package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/holosym/internal/config"
	"github.com/san-kum/holosym/internal/dynamo"
	"github.com/san-kum/holosym/internal/experiment"
	"github.com/san-kum/holosym/internal/storage"
)

// resolveConfig layers defaults, the preset, the config file, HOLOSYM_*
// variables and finally the flags the user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("%w: unknown preset: %s (available: %s)",
				dynamo.ErrInvalidConfig, preset, strings.Join(config.ListPresets(), ", "))
		}
	}
	if configFile != "" {
		if err := cfg.MergeFile(configFile); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("samples") {
		cfg.Samples = samples
	}
	if flags.Changed("start") {
		cfg.Span.Start = spanStart
	}
	if flags.Changed("end") {
		cfg.Span.End = spanEnd
	}
	if flags.Changed("abs-tol") {
		cfg.Solver.Tolerances.Abs = absTol
	}
	if flags.Changed("rel-tol") {
		cfg.Solver.Tolerances.Rel = relTol
	}
	if flags.Changed("max-steps") {
		cfg.Solver.MaxSteps = maxSteps
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	for _, q := range quantityFlags {
		if !flags.Changed(q.name) {
			continue
		}
		v, err := flags.GetFloat64(q.name)
		if err != nil {
			return nil, err
		}
		if err := experiment.Apply(cfg, strings.ReplaceAll(q.name, "-", "_"), v); err != nil {
			return nil, err
		}
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore resolves the data directory for commands that only read runs.
func openStore(cmd *cobra.Command) *storage.Store {
	dir := dataDir
	if !cmd.Flags().Changed("data") {
		if v := os.Getenv("HOLOSYM_DATA_DIR"); v != "" {
			dir = v
		}
	}
	return storage.New(dir)
}

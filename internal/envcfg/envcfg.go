// Package envcfg carries this core's tunables, grounded on
// sigs.k8s.io/karpenter/pkg/operator/options: a flag/env-populated
// struct threaded through context.Context rather than passed
// explicitly, so any collaborator (the external rule evaluator, the
// option-list emitter) can reach it the same way karpenter's
// controllers reach options.FromContext(ctx).
package envcfg

import (
	"context"
	"flag"
	"fmt"

	"dario.cat/mergo"
	"github.com/awslabs/operatorpkg/env"
)

// Config is this core's tunable surface (spec §6, §4.1's max_per_node
// fallback, §6's option-list legacy toggle).
type Config struct {
	// DefaultMaxPerNode is used when a collective's own max_per_node is
	// unset (<= 0).
	DefaultMaxPerNode int
	// TolerateUnknownNodeLabels lets the external rule evaluator treat a
	// missing node_attrs key as "false" rather than failing fast.
	TolerateUnknownNodeLabels bool
	LogLevel                  string
	LogOutputPaths            string
	LogErrorOutputPaths       string
	// LegacyOptionList selects the legacy XML rendering (spec §6's
	// "legacy toggle").
	LegacyOptionList bool
}

// Defaults mirrors the compiled-in fallback a fresh *flag.FlagSet would
// produce with every env var unset.
func Defaults() Config {
	return Config{
		DefaultMaxPerNode:         1,
		TolerateUnknownNodeLabels: false,
		LogLevel:                  "info",
		LogOutputPaths:            "stdout",
		LogErrorOutputPaths:       "stderr",
		LegacyOptionList:          false,
	}
}

// FlagSet wraps flag.FlagSet the way options.FlagSet does, so callers
// get the env.WithDefault* fallback behavior for free.
type FlagSet struct {
	*flag.FlagSet
	cfg *Config
}

// NewFlagSet builds a FlagSet that writes parsed values into cfg,
// seeded with def for anything not overridden by a flag or env var.
func NewFlagSet(name string, def Config) *FlagSet {
	cfg := def
	return &FlagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError), cfg: &cfg}
}

// AddFlags registers every knob, env var first, flag override second,
// exactly as options.Options.AddFlags does.
func (fs *FlagSet) AddFlags() {
	fs.IntVar(&fs.cfg.DefaultMaxPerNode, "default-max-per-node",
		env.WithDefaultInt("DEFAULT_MAX_PER_NODE", fs.cfg.DefaultMaxPerNode),
		"Fallback max_per_node used when a collective doesn't set its own.")
	fs.BoolVar(&fs.cfg.TolerateUnknownNodeLabels, "tolerate-unknown-node-labels",
		env.WithDefaultBool("TOLERATE_UNKNOWN_NODE_LABELS", fs.cfg.TolerateUnknownNodeLabels),
		"Treat a missing node_attrs key as false instead of failing the rule evaluation.")
	fs.StringVar(&fs.cfg.LogLevel, "log-level",
		env.WithDefaultString("LOG_LEVEL", fs.cfg.LogLevel),
		"Log verbosity level. One of 'debug', 'info', or 'error'.")
	fs.StringVar(&fs.cfg.LogOutputPaths, "log-output-paths",
		env.WithDefaultString("LOG_OUTPUT_PATHS", fs.cfg.LogOutputPaths),
		"Comma separated paths for log output.")
	fs.StringVar(&fs.cfg.LogErrorOutputPaths, "log-error-output-paths",
		env.WithDefaultString("LOG_ERROR_OUTPUT_PATHS", fs.cfg.LogErrorOutputPaths),
		"Comma separated paths for error log output.")
	fs.BoolVar(&fs.cfg.LegacyOptionList, "legacy-option-list",
		env.WithDefaultBool("LEGACY_OPTION_LIST", fs.cfg.LegacyOptionList),
		"Render option-list XML in the legacy dialect (spec §6).")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "error": true}

// Parse parses args and validates the result.
func (fs *FlagSet) Parse(args []string) (Config, error) {
	if err := fs.FlagSet.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parsing flags: %w", err)
	}
	if !validLogLevels[fs.cfg.LogLevel] {
		return Config{}, fmt.Errorf("invalid log level %q", fs.cfg.LogLevel)
	}
	if fs.cfg.DefaultMaxPerNode <= 0 {
		return Config{}, fmt.Errorf("default-max-per-node must be positive, got %d", fs.cfg.DefaultMaxPerNode)
	}
	return *fs.cfg, nil
}

// Merge overlays override onto base, keeping base's value for any zero
// field in override (dario.cat/mergo, the teacher's vendored
// github.com/imdario/mergo under its new module path).
func Merge(base Config, override Config) (Config, error) {
	out := base
	if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("merging config: %w", err)
	}
	return out, nil
}

// FromEnvironment is the entry point for a binary that only wants
// env-var configuration (no CLI flags). cmd/schedcore does not call it;
// it reads its configuration through FlagSet.
func FromEnvironment() Config {
	cfg := Defaults()
	cfg.DefaultMaxPerNode = env.WithDefaultInt("DEFAULT_MAX_PER_NODE", cfg.DefaultMaxPerNode)
	cfg.TolerateUnknownNodeLabels = env.WithDefaultBool("TOLERATE_UNKNOWN_NODE_LABELS", cfg.TolerateUnknownNodeLabels)
	cfg.LogLevel = env.WithDefaultString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogOutputPaths = env.WithDefaultString("LOG_OUTPUT_PATHS", cfg.LogOutputPaths)
	cfg.LogErrorOutputPaths = env.WithDefaultString("LOG_ERROR_OUTPUT_PATHS", cfg.LogErrorOutputPaths)
	cfg.LegacyOptionList = env.WithDefaultBool("LEGACY_OPTION_LIST", cfg.LegacyOptionList)
	return cfg
}

type configKey struct{}

// ToContext stashes cfg the way options.ToContext does.
func ToContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stashed by ToContext, falling back to
// Defaults() if none was set (unlike the teacher's options.FromContext,
// which panics — this core is a library, not a controller-runtime
// binary, so callers that never called ToContext shouldn't crash).
func FromContext(ctx context.Context) *Config {
	v, ok := ctx.Value(configKey{}).(*Config)
	if !ok {
		d := Defaults()
		return &d
	}
	return v
}

// Package config provides run-manifest loading, validation, and defaults
// for mckverify.
//
// Manifest file: a YAML document naming the machine to verify, the property
// to check it against, and the strategy/runcache/metrics knobs that govern
// how the framework's CEGAR loop runs.
//
// Schema version: 1
//
// Validation:
//   - All required fields must be present.
//   - The named machine must be one of the registered example machines.
//   - The property string is not parsed here (internal/proposition does
//     that); config only validates its own fields are well-formed.
//   - Invalid manifest: mckverify refuses to start (fatal error).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version, GitCommit, BuildTime are injected by the build via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root manifest structure for mckverify.
type Config struct {
	// SchemaVersion must be "1".
	SchemaVersion string `yaml:"schema_version"`

	// Machine names the example machine to verify (see internal/machine).
	// One of "counter", "divider". Default: "counter".
	Machine string `yaml:"machine"`

	// Property is the CTL property source to check.
	Property string `yaml:"property"`

	// Strategy configures the framework's abstraction strategy.
	Strategy StrategyConfig `yaml:"strategy"`

	// Runcache configures the persistent verdict memo.
	Runcache RuncacheConfig `yaml:"runcache"`

	// Observability configures metrics and logging.
	Observability ObservabilityConfig `yaml:"observability"`
}

// StrategyConfig mirrors framework.Strategy for manifest-driven selection.
type StrategyConfig struct {
	// NaiveInputs, when set, keeps every node's input fully abstract
	// rather than enumerating precision-selected concrete slices.
	// Default: false.
	NaiveInputs bool `yaml:"naive_inputs"`

	// UseDecay, when set, forces freshly computed successor states to
	// fully unknown except where decay precision says otherwise.
	// Default: false.
	UseDecay bool `yaml:"use_decay"`
}

// RuncacheConfig holds the bbolt-backed verdict memo parameters.
type RuncacheConfig struct {
	// Enabled controls whether completed verifications are memoized.
	// Default: true.
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the bbolt database file.
	// Default: mckverify.db (relative to the working directory).
	DBPath string `yaml:"db_path"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address. Empty
	// disables the metrics server. Default: 127.0.0.1:9091.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	// Default: console.
	LogFormat string `yaml:"log_format"`
}

// DefaultDBPath is the runcache default, mirrored here for manifest
// defaults so config.Defaults() and internal/runcache agree without an
// import cycle between them.
const DefaultDBPath = "mckverify.db"

// Defaults returns a Config populated with all default values.
func Defaults() Config {
	return Config{
		SchemaVersion: "1",
		Machine:       "counter",
		Property:      "AG![count != 99]",
		Strategy: StrategyConfig{
			NaiveInputs: false,
			UseDecay:    false,
		},
		Runcache: RuncacheConfig{
			Enabled: true,
			DBPath:  DefaultDBPath,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "console",
		},
	}
}

// knownMachines lists the machine names accepted by Validate and resolved
// by cmd/mckverify's machine registry.
var knownMachines = map[string]bool{
	"counter": true,
	"divider": true,
}

// Load reads and validates a manifest file from the given path.
// Returns the merged config (defaults overridden by file values).
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks all config fields for correctness, collecting every
// violation before returning one combined error.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if !knownMachines[cfg.Machine] {
		errs = append(errs, fmt.Sprintf("machine %q is not a registered example machine", cfg.Machine))
	}
	if cfg.Property == "" {
		errs = append(errs, "property must not be empty")
	}
	if cfg.Runcache.Enabled && cfg.Runcache.DBPath == "" {
		errs = append(errs, "runcache.db_path must not be empty when runcache.enabled is true")
	}
	switch cfg.Observability.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("observability.log_level must be one of debug/info/warn/error, got %q", cfg.Observability.LogLevel))
	}
	switch cfg.Observability.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("observability.log_format must be json or console, got %q", cfg.Observability.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", joinStrings(errs, "\n  - "))
	}
	return nil
}

func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}

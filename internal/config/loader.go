package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Keys absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like [Load], except that a missing file at path
// yields [Default] when optional is true.
func LoadOrDefault(path string, optional bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && optional && errors.Is(err, os.ErrNotExist) {
		slog.Debug("config file not found, using defaults", "path", path)
		return Default(), nil
	}
	return cfg, err
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. An empty document is valid.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Corpus
	if cfg.Corpus.Root == "" {
		errs = append(errs, errors.New("corpus.root is required"))
	}
	if cfg.Corpus.Main == "" {
		errs = append(errs, errors.New("corpus.main is required"))
	}

	// Symbols
	for i, p := range cfg.Symbols.Include {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("symbols.include[%d] %q is not a valid glob pattern", i, p))
		}
	}

	// Output
	if cfg.Output.Graph == "" {
		errs = append(errs, errors.New("output.graph is required"))
	}
	if cfg.Output.Dangling == "" {
		errs = append(errs, errors.New("output.dangling is required"))
	}
	if cfg.Output.Graph != "" && cfg.Output.Graph == cfg.Output.Dangling {
		errs = append(errs, fmt.Errorf("output.graph and output.dangling must differ (both %q)", cfg.Output.Graph))
	}

	// Dangling
	if t := cfg.Dangling.SuggestThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("dangling.suggest_threshold %.2f is out of range (0, 1]", t))
	}

	// Server
	if cfg.Server.ReloadInterval < 0 {
		errs = append(errs, fmt.Errorf("server.reload_interval %s must not be negative", cfg.Server.ReloadInterval))
	}

	if cfg.Postgres.DSN == "" {
		slog.Debug("postgres.dsn is empty; the graph will not be mirrored to a database")
	}

	return errors.Join(errs...)
}

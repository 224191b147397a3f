// Package config provides the configuration schema and loader for rulegraph.
package config

import (
	"time"

	"github.com/MrWong99/rulegraph/internal/symbols"
)

// DefaultPath is the config file read when no -config flag is given. A
// missing file at this path is not an error.
const DefaultPath = "rulegraph.yaml"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for rulegraph.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	Corpus    CorpusConfig    `yaml:"corpus"`
	Symbols   SymbolsConfig   `yaml:"symbols"`
	Output    OutputConfig    `yaml:"output"`
	Dangling  DanglingConfig  `yaml:"dangling"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Server    ServerConfig    `yaml:"server"`
}

// CorpusConfig locates the rulebook.
type CorpusConfig struct {
	// Root is the rulebook directory.
	Root string `yaml:"root"`

	// Main is the root document inside Root.
	Main string `yaml:"main"`
}

// SymbolsConfig locates the game-logic sources scanned for exported symbols.
type SymbolsConfig struct {
	// Root is the directory that code mapping paths are relative to.
	Root string `yaml:"root"`

	// Include lists doublestar patterns relative to Root.
	Include []string `yaml:"include"`
}

// OutputConfig names the generated files.
type OutputConfig struct {
	// Graph is the JSON-LD rule graph. It is also read back as the previous
	// run's graph.
	Graph string `yaml:"graph"`

	// Dangling is the dangling reference report.
	Dangling string `yaml:"dangling"`
}

// DanglingConfig tunes the dangling reference report.
type DanglingConfig struct {
	// Suggest attaches the closest known entity name to each report entry.
	Suggest bool `yaml:"suggest"`

	// SuggestThreshold is the minimum Jaro-Winkler similarity, in (0, 1],
	// for a suggestion without phonetic overlap.
	SuggestThreshold float64 `yaml:"suggest_threshold"`
}

// TelemetryConfig controls metrics and trace output.
type TelemetryConfig struct {
	// MetricsFile, when set, receives the run's metrics in Prometheus text
	// format at the end of each run.
	MetricsFile string `yaml:"metrics_file"`

	// TraceStdout prints finished spans to stderr.
	TraceStdout bool `yaml:"trace_stdout"`

	// ServiceName is reported as service.name.
	ServiceName string `yaml:"service_name"`
}

// PostgresConfig configures the optional relational mirror of the graph.
type PostgresConfig struct {
	// DSN is a PostgreSQL connection string. Empty disables the mirror.
	DSN string `yaml:"dsn"`
}

// ServerConfig configures the rule lookup tool server.
type ServerConfig struct {
	// Graph is the graph file served. Defaults to Output.Graph.
	Graph string `yaml:"graph"`

	// Dangling is the report served by the list_dangling tool. Defaults to
	// Output.Dangling.
	Dangling string `yaml:"dangling"`

	// ReloadInterval is how often the graph file is polled for changes.
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// Default returns the configuration used when no file is present. It
// matches the layout of a game repository with the rulebook checked out
// next to it.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Corpus: CorpusConfig{
			Root: "../RPG_Below_v7_en",
			Main: "main.tex",
		},
		Symbols: SymbolsConfig{
			Root:    ".",
			Include: append([]string(nil), symbols.DefaultPatterns...),
		},
		Output: OutputConfig{
			Graph:    "rule_graph.json",
			Dangling: "dangling_references.json",
		},
		Dangling: DanglingConfig{
			SuggestThreshold: 0.85,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "rulegraph",
		},
		Server: ServerConfig{
			ReloadInterval: 5 * time.Second,
		},
	}
}

// ServerGraph returns the graph path served by the tool server.
func (c *Config) ServerGraph() string {
	if c.Server.Graph != "" {
		return c.Server.Graph
	}
	return c.Output.Graph
}

// ServerDangling returns the dangling report path served by the tool server.
func (c *Config) ServerDangling() string {
	if c.Server.Dangling != "" {
		return c.Server.Dangling
	}
	return c.Output.Dangling
}

// Command rulegraph builds the rule graph of a tabletop rulebook and serves
// it to MCP clients.
//
// Usage:
//
//	rulegraph [extract] [flags]   run one extraction pass (default)
//	rulegraph serve [flags]       serve the written graph over stdio MCP
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/rulegraph/internal/config"
	"github.com/MrWong99/rulegraph/internal/corpus"
	"github.com/MrWong99/rulegraph/internal/graphdb"
	"github.com/MrWong99/rulegraph/internal/observe"
	"github.com/MrWong99/rulegraph/internal/persist"
	"github.com/MrWong99/rulegraph/internal/pipeline"
	"github.com/MrWong99/rulegraph/internal/ruleserver"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// flags holds command-line overrides. Empty values leave the config as is.
type flags struct {
	config       string
	root         string
	main         string
	symbolsRoot  string
	graph        string
	dangling     string
	metricsFile  string
	dsn          string
	suggest      bool
	traceSpans   bool
	reloadPeriod time.Duration
}

func run(args []string, stdout io.Writer) int {
	// ── Command and flags ─────────────────────────────────────────────────────
	command := "extract"
	if len(args) > 0 && (args[0] == "extract" || args[0] == "serve") {
		command, args = args[0], args[1:]
	}

	var f flags
	fs := flag.NewFlagSet("rulegraph "+command, flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "", "path to the YAML configuration file (default "+config.DefaultPath+" if present)")
	fs.StringVar(&f.root, "root", "", "rulebook directory")
	fs.StringVar(&f.main, "main", "", "root document inside the rulebook directory")
	fs.StringVar(&f.symbolsRoot, "symbols-root", "", "game-logic source directory scanned for exported symbols")
	fs.StringVar(&f.graph, "out", "", "rule graph output file")
	fs.StringVar(&f.dangling, "dangling", "", "dangling reference report output file")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write run metrics to this file in Prometheus text format")
	fs.StringVar(&f.dsn, "postgres-dsn", "", "mirror the written graph into this PostgreSQL database")
	fs.BoolVar(&f.suggest, "suggest", false, "attach nearest-name suggestions to dangling references")
	fs.BoolVar(&f.traceSpans, "trace", false, "print finished spans to stderr")
	fs.DurationVar(&f.reloadPeriod, "reload-interval", -1, "serve: graph polling interval, 0 disables reloading")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "rulegraph: unexpected argument %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	// ── Load configuration ────────────────────────────────────────────────────
	path, optional := f.config, false
	if path == "" {
		path, optional = config.DefaultPath, true
	}
	cfg, err := config.LoadOrDefault(path, optional)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulegraph: %v\n", err)
		return 1
	}
	f.apply(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "rulegraph: invalid configuration: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.LogLevel))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	provCfg := observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	}
	if cfg.Telemetry.TraceStdout {
		exp, err := observe.NewStdoutExporter(os.Stderr)
		if err != nil {
			slog.Error("failed to create trace exporter", "err", err)
			return 1
		}
		provCfg.TraceExporter = exp
	}
	prov, err := observe.InitProvider(ctx, provCfg)
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := prov.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	switch command {
	case "serve":
		return serve(ctx, cfg)
	default:
		code := extract(ctx, cfg, stdout)
		if cfg.Telemetry.MetricsFile != "" {
			if err := prov.WriteTextfile(cfg.Telemetry.MetricsFile); err != nil {
				slog.Error("failed to write metrics", "err", err)
				return 1
			}
		}
		return code
	}
}

// apply copies the set flags over cfg.
func (f flags) apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Corpus.Root, f.root)
	set(&cfg.Corpus.Main, f.main)
	set(&cfg.Symbols.Root, f.symbolsRoot)
	set(&cfg.Output.Graph, f.graph)
	set(&cfg.Output.Dangling, f.dangling)
	set(&cfg.Telemetry.MetricsFile, f.metricsFile)
	set(&cfg.Postgres.DSN, f.dsn)
	if f.suggest {
		cfg.Dangling.Suggest = true
	}
	if f.traceSpans {
		cfg.Telemetry.TraceStdout = true
	}
	if f.reloadPeriod >= 0 {
		cfg.Server.ReloadInterval = f.reloadPeriod
	}
}

// extract runs one extraction pass and prints its summary.
func extract(ctx context.Context, cfg *config.Config, stdout io.Writer) int {
	var opts []pipeline.Option
	if cfg.Postgres.DSN != "" {
		store, err := graphdb.NewStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer store.Close()
		opts = append(opts, pipeline.WithMirror(store))
	}

	r := pipeline.New(pipeline.Options{
		Corpus:           &corpus.Dir{Root: cfg.Corpus.Root, Main: cfg.Corpus.Main},
		SymbolRoot:       cfg.Symbols.Root,
		SymbolPatterns:   cfg.Symbols.Include,
		GraphPath:        cfg.Output.Graph,
		DanglingPath:     cfg.Output.Dangling,
		Suggest:          cfg.Dangling.Suggest,
		SuggestThreshold: cfg.Dangling.SuggestThreshold,
	}, opts...)

	sum, err := r.Run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, corpus.ErrRootMissing):
			slog.Error("rulebook root document not found", "root", cfg.Corpus.Root, "main", cfg.Corpus.Main)
		case errors.Is(err, persist.ErrMalformed):
			slog.Error("previous graph is malformed, fix or remove it", "path", cfg.Output.Graph, "err", err)
		default:
			slog.Error("extraction failed", "err", err)
		}
		return 1
	}

	fmt.Fprintf(stdout, "Wrote %d entities (%d dependsOn, %d modifies edges) to %s\n",
		sum.Entities, sum.DependsOn, sum.Modifies, sum.GraphPath)
	fmt.Fprintf(stdout, "Wrote %d dangling references to %s\n", sum.Dangling, sum.ReportPath)
	return 0
}

// serve runs the rule lookup server on stdin/stdout until the client
// disconnects or a signal arrives.
func serve(ctx context.Context, cfg *config.Config) int {
	srv, err := ruleserver.New(cfg.ServerGraph(), cfg.ServerDangling(),
		ruleserver.WithReloadInterval(cfg.Server.ReloadInterval),
		ruleserver.WithVersion(version),
	)
	if err != nil {
		slog.Error("failed to load rule graph", "err", err)
		return 1
	}
	slog.Info("serving rule graph over stdio",
		"graph", cfg.ServerGraph(),
		"entities", srv.Len(),
		"reload_interval", cfg.Server.ReloadInterval,
	)

	if err := srv.Serve(ctx, &mcp.StdioTransport{}); err != nil {
		slog.Error("serve error", "err", err)
		return 1
	}
	return 0
}

// newLogger creates a [slog.Logger] writing text to stderr at the given level.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// Package pipeline runs one extraction pass end to end: corpus and symbol
// index in, rule graph and dangling report out.
//
// The stages run in a fixed order and the pass is deterministic: two runs
// over unchanged inputs produce byte-identical outputs. Each stage is a
// child span of the run span and its duration is recorded in
// [observe.Metrics.StageDuration].
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/rulegraph/internal/bootstrap"
	"github.com/MrWong99/rulegraph/internal/corpus"
	"github.com/MrWong99/rulegraph/internal/entity"
	"github.com/MrWong99/rulegraph/internal/extract"
	"github.com/MrWong99/rulegraph/internal/infer"
	"github.com/MrWong99/rulegraph/internal/observe"
	"github.com/MrWong99/rulegraph/internal/persist"
	"github.com/MrWong99/rulegraph/internal/symbols"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Mirror receives the final graph of each run, after the files are written.
type Mirror interface {
	Sync(ctx context.Context, g *entity.Graph) error
}

// Options configures a [Runner].
type Options struct {
	// Corpus lists the rulebook sections. Required.
	Corpus corpus.Provider

	// SymbolRoot and SymbolPatterns locate the game-logic sources. Ignored
	// when an index is injected with [WithSymbols].
	SymbolRoot     string
	SymbolPatterns []string

	// GraphPath is read as the previous graph and then overwritten.
	GraphPath string

	// DanglingPath receives the dangling reference report.
	DanglingPath string

	// Suggest enables nearest-name suggestions in the report.
	Suggest          bool
	SuggestThreshold float64
}

// Summary reports the outcome of a run.
type Summary struct {
	Sections   int
	Extracted  int
	Core       int
	Persisted  int
	Entities   int
	DependsOn  int
	Modifies   int
	Dangling   int
	Duration   time.Duration
	RunID      string
	GraphPath  string
	ReportPath string
}

// Runner executes extraction passes.
type Runner struct {
	opts    Options
	symbols symbols.Lookup
	mirror  Mirror
	metrics *observe.Metrics
}

// Option is a functional option for [New]. Use these to inject test doubles.
type Option func(*Runner)

// WithSymbols injects a symbol index instead of scanning SymbolRoot.
func WithSymbols(l symbols.Lookup) Option {
	return func(r *Runner) {
		r.symbols = l
	}
}

// WithMirror syncs every written graph to m.
func WithMirror(m Mirror) Option {
	return func(r *Runner) {
		r.mirror = m
	}
}

// WithMetrics records into m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// New returns a [Runner].
func New(opts Options, options ...Option) *Runner {
	r := &Runner{opts: opts}
	for _, o := range options {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Run executes one pass. A missing root document aborts the pass before
// anything is written and is reported as [corpus.ErrRootMissing].
func (r *Runner) Run(ctx context.Context) (sum Summary, err error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "rulegraph.run")
	defer func() { observe.EndSpan(span, err) }()

	sum.RunID = observe.RunID(ctx)
	sum.GraphPath = r.opts.GraphPath
	sum.ReportPath = r.opts.DanglingPath
	log := observe.Logger(ctx)

	// Corpus.
	var sections []corpus.Section
	if err := r.stage(ctx, "corpus", func(ctx context.Context) error {
		var err error
		sections, err = r.opts.Corpus.Sections(ctx)
		return err
	}); err != nil {
		return sum, fmt.Errorf("pipeline: read corpus: %w", err)
	}
	sum.Sections = len(sections)
	r.metrics.SectionsRead.Add(ctx, int64(len(sections)))

	// Symbol index.
	idx := r.symbols
	if idx == nil {
		if err := r.stage(ctx, "symbols", func(ctx context.Context) error {
			scanned, err := symbols.Scan(ctx, r.opts.SymbolRoot, r.opts.SymbolPatterns)
			idx = scanned
			if err == nil {
				trace.SpanFromContext(ctx).SetAttributes(attribute.Int("symbols", len(scanned)))
			}
			return err
		}); err != nil {
			return sum, fmt.Errorf("pipeline: scan symbols: %w", err)
		}
	}

	// Extraction and bootstrap.
	var fresh []entity.Entity
	_ = r.stage(ctx, "extract", func(ctx context.Context) error {
		for _, s := range sections {
			found := extract.Section(s)
			log.Debug("extracted section", "path", s.Path, "entities", len(found))
			fresh = append(fresh, found...)
		}
		sum.Extracted = len(fresh)
		core := bootstrap.Core(idx)
		sum.Core = len(core)
		fresh = append(fresh, core...)
		return nil
	})
	r.metrics.RecordExtracted(ctx, "corpus", sum.Extracted)
	r.metrics.RecordExtracted(ctx, "core", sum.Core)

	// Merge over the previous graph.
	var g *entity.Graph
	if err := r.stage(ctx, "merge", func(ctx context.Context) error {
		prev, err := persist.Load(r.opts.GraphPath)
		if err != nil {
			return err
		}
		sum.Persisted = prev.Len()
		prev.Merge(fresh...)
		g = prev
		return nil
	}); err != nil {
		return sum, fmt.Errorf("pipeline: load previous graph: %w", err)
	}

	// Inference.
	var res infer.Result
	_ = r.stage(ctx, "infer", func(ctx context.Context) error {
		var opts []infer.Option
		if r.opts.Suggest {
			opts = append(opts, infer.WithSuggestions(r.opts.SuggestThreshold))
		}
		res = infer.Run(g, opts...)
		return nil
	})
	sum.Entities = g.Len()
	sum.DependsOn = res.DependsOn
	sum.Modifies = res.Modifies
	r.metrics.RecordEdges(ctx, res.DependsOn, res.Modifies)
	r.metrics.GraphEntities.Record(ctx, int64(g.Len()))

	// Outputs.
	if err := r.stage(ctx, "write", func(ctx context.Context) error {
		if err := persist.Save(r.opts.GraphPath, g); err != nil {
			return err
		}
		n, err := persist.SaveDangling(r.opts.DanglingPath, res.Dangling)
		sum.Dangling = n
		return err
	}); err != nil {
		return sum, fmt.Errorf("pipeline: write outputs: %w", err)
	}
	r.metrics.DanglingReferences.Add(ctx, int64(sum.Dangling))

	if r.mirror != nil {
		if err := r.stage(ctx, "mirror", func(ctx context.Context) error {
			return r.mirror.Sync(ctx, g)
		}); err != nil {
			return sum, fmt.Errorf("pipeline: mirror graph: %w", err)
		}
	}

	sum.Duration = time.Since(start)
	log.Info("rule graph written",
		"graph", r.opts.GraphPath,
		"entities", sum.Entities,
		"depends_on", sum.DependsOn,
		"modifies", sum.Modifies,
		"dangling", sum.Dangling,
		"duration", sum.Duration,
	)
	return sum, nil
}

// stage runs fn inside a child span named rulegraph.<name> and records its
// duration.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observe.StartSpan(ctx, "rulegraph."+name)

	start := time.Now()
	err := fn(ctx)
	r.metrics.RecordStage(ctx, name, time.Since(start))
	if err != nil {
		observe.Logger(ctx).Debug("stage failed", "stage", name, "err", err)
	}
	observe.EndSpan(span, err)
	return err
}

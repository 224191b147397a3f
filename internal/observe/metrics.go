// Package observe provides the observability primitives of rulegraph:
// OpenTelemetry metrics, tracing, and trace-aware structured logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API and bridged into
// a Prometheus registry by [InitProvider]. A batch run has no scrape
// endpoint, so the registry is dumped to a node-exporter textfile with
// [WriteTextfile] when the run ends. A package-level default [Metrics]
// instance ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all rulegraph metrics.
const meterName = "github.com/MrWong99/rulegraph"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// StageDuration tracks the wall time of each pipeline stage. Use with
	// attribute.String("stage", ...).
	StageDuration metric.Float64Histogram

	// ToolExecutionDuration tracks rule server tool latency. Use with
	// attribute.String("tool", ...).
	ToolExecutionDuration metric.Float64Histogram

	// SectionsRead counts corpus sections loaded.
	SectionsRead metric.Int64Counter

	// EntitiesExtracted counts fresh entities fed into the merge. Use with
	// attribute.String("origin", "corpus"|"core").
	EntitiesExtracted metric.Int64Counter

	// EdgesInferred counts relationship edges present after inference. Use
	// with attribute.String("relation", "dependsOn"|"modifies").
	EdgesInferred metric.Int64Counter

	// DanglingReferences counts dangling reference records written.
	DanglingReferences metric.Int64Counter

	// ToolCalls counts rule server tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// GraphReloads counts graph reload attempts by the rule server. Use with
	// attribute.String("status", ...).
	GraphReloads metric.Int64Counter

	// GraphEntities reports the entity count of the most recent graph.
	GraphEntities metric.Int64Gauge
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for stages
// that range from a map lookup to a full rulebook pass.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StageDuration, err = m.Float64Histogram("rulegraph.stage.duration",
		metric.WithDescription("Wall time of each extraction pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolExecutionDuration, err = m.Float64Histogram("rulegraph.tool_execution.duration",
		metric.WithDescription("Latency of rule server tool execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SectionsRead, err = m.Int64Counter("rulegraph.sections.read",
		metric.WithDescription("Total corpus sections loaded."),
	); err != nil {
		return nil, err
	}
	if met.EntitiesExtracted, err = m.Int64Counter("rulegraph.entities.extracted",
		metric.WithDescription("Total fresh entities merged by origin."),
	); err != nil {
		return nil, err
	}
	if met.EdgesInferred, err = m.Int64Counter("rulegraph.edges.inferred",
		metric.WithDescription("Total relationship edges after inference by relation."),
	); err != nil {
		return nil, err
	}
	if met.DanglingReferences, err = m.Int64Counter("rulegraph.dangling.references",
		metric.WithDescription("Total dangling reference records written."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("rulegraph.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.GraphReloads, err = m.Int64Counter("rulegraph.graph.reloads",
		metric.WithDescription("Total rule server graph reloads by status."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.GraphEntities, err = m.Int64Gauge("rulegraph.graph.entities",
		metric.WithDescription("Number of entities in the most recent graph."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Call it after [InitProvider] so that it binds to the SDK provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordExtracted records n fresh entities of the given origin.
func (m *Metrics) RecordExtracted(ctx context.Context, origin string, n int) {
	m.EntitiesExtracted.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("origin", origin)),
	)
}

// RecordEdges records the edge totals of an inference pass.
func (m *Metrics) RecordEdges(ctx context.Context, dependsOn, modifies int) {
	m.EdgesInferred.Add(ctx, int64(dependsOn),
		metric.WithAttributes(attribute.String("relation", "dependsOn")),
	)
	m.EdgesInferred.Add(ctx, int64(modifies),
		metric.WithAttributes(attribute.String("relation", "modifies")),
	)
}

// RecordToolCall records a tool invocation and its latency.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, d time.Duration) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
	m.ToolExecutionDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("tool", tool)),
	)
}

// RecordReload records a graph reload attempt.
func (m *Metrics) RecordReload(ctx context.Context, status string) {
	m.GraphReloads.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

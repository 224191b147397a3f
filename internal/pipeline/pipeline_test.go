package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/MrWong99/rulegraph/internal/corpus"
	"github.com/MrWong99/rulegraph/internal/entity"
	"github.com/MrWong99/rulegraph/internal/infer"
	"github.com/MrWong99/rulegraph/internal/observe"
	"github.com/MrWong99/rulegraph/internal/persist"
	"github.com/MrWong99/rulegraph/internal/pipeline"
	"github.com/MrWong99/rulegraph/internal/symbols"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const mainTex = `\documentclass{book}
\begin{document}
\include{chapters/combat}
% \include{chapters/old}
\include{chapters/missing}
\end{document}
`

const combatTex = `\chapter{Combat}
\abil{Cleave}{1/turn}{2 AP}{STR 3}{Strike two foes. Spend 2 AP.}
\textbf{Reach:} Strength increases STR and grants AP.
\textbf{Warding:} Uses the QZX rune.
`

var testIndex = symbols.Index{
	"getDM":         "app/domain/selectors/size.ts#getDM",
	"getRES":        "app/domain/selectors/wounds.ts#getRES",
	"restCharacter": "app/domain/commands/rest.ts#restCharacter",
}

type fixture struct {
	root     string
	graph    string
	dangling string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		root:     filepath.Join(dir, "rulebook"),
		graph:    filepath.Join(dir, "out", "rule_graph.json"),
		dangling: filepath.Join(dir, "out", "dangling_references.json"),
	}
	write := func(rel, content string) {
		p := filepath.Join(f.root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("main.tex", mainTex)
	write("chapters/combat.tex", combatTex)
	write("chapters/old.tex", `\textbf{Obsolete:} never included.`)
	return f
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func (f fixture) runner(t *testing.T, extra ...pipeline.Option) *pipeline.Runner {
	opts := append([]pipeline.Option{
		pipeline.WithSymbols(testIndex),
		pipeline.WithMetrics(testMetrics(t)),
	}, extra...)
	return pipeline.New(pipeline.Options{
		Corpus:       &corpus.Dir{Root: f.root, Main: "main.tex"},
		GraphPath:    f.graph,
		DanglingPath: f.dangling,
	}, opts...)
}

func readDocument(t *testing.T, path string) map[string]persist.Record {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read graph: %v", err)
	}
	var doc persist.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode graph: %v", err)
	}
	out := make(map[string]persist.Record, len(doc.Graph))
	for _, r := range doc.Graph {
		out[r.ID] = r
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sum, err := f.runner(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: unexpected error: %v", err)
	}
	if sum.Sections != 1 {
		t.Errorf("Sections = %d, want 1", sum.Sections)
	}
	if sum.Extracted != 3 {
		t.Errorf("Extracted = %d, want 3", sum.Extracted)
	}
	// 18 unconditional core entities plus DM, RES and Rest (Character).
	if sum.Core != 21 {
		t.Errorf("Core = %d, want 21", sum.Core)
	}

	recs := readDocument(t, f.graph)

	cleave, ok := recs["urn:ttrpg:mechanic:cleave"]
	if !ok {
		t.Fatal("graph: cleave missing")
	}
	if cleave.Status != entity.StatusUnimplemented || !slices.Equal(cleave.Tags, []string{"ability"}) {
		t.Errorf("cleave = %+v", cleave)
	}
	if !slices.Equal(cleave.Modifies, []string{"urn:ttrpg:derivedvalue:ap"}) {
		t.Errorf("cleave modifies = %v", cleave.Modifies)
	}

	reach := recs["urn:ttrpg:keyword:reach"]
	want := []string{"urn:ttrpg:attribute:str", "urn:ttrpg:derivedvalue:ap"}
	if !slices.Equal(reach.DependsOn, want) || !slices.Equal(reach.Modifies, want) {
		t.Errorf("reach edges = %v / %v, want %v", reach.DependsOn, reach.Modifies, want)
	}

	res := recs["urn:ttrpg:derivedvalue:res"]
	wantRES := []string{"urn:ttrpg:attribute:str", "urn:ttrpg:derivedvalue:dm", "urn:ttrpg:derivedvalue:res_base"}
	if !slices.Equal(res.DependsOn, wantRES) {
		t.Errorf("res dependsOn = %v, want %v", res.DependsOn, wantRES)
	}

	if _, ok := recs["urn:ttrpg:keyword:obsolete"]; ok {
		t.Error("graph contains an entity from a commented-out include")
	}

	ds, err := persist.LoadDangling(f.dangling)
	if err != nil {
		t.Fatalf("LoadDangling: %v", err)
	}
	wantDangling := []infer.Dangling{{
		Term:         "QZX",
		ReferencedBy: "urn:ttrpg:keyword:warding",
		Source:       "chapters/combat.tex",
		Context:      "Uses the QZX rune.",
	}}
	if !slices.Equal(ds, wantDangling) {
		t.Errorf("dangling = %+v, want %+v", ds, wantDangling)
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.runner(t).Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	graph1, _ := os.ReadFile(f.graph)
	dangling1, _ := os.ReadFile(f.dangling)

	sum, err := f.runner(t).Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if sum.Persisted == 0 {
		t.Error("second Run did not load the previous graph")
	}
	graph2, _ := os.ReadFile(f.graph)
	dangling2, _ := os.ReadFile(f.dangling)

	if string(graph1) != string(graph2) {
		t.Error("graph differs between identical runs")
	}
	if string(dangling1) != string(dangling2) {
		t.Error("dangling report differs between identical runs")
	}
}

func TestRun_KeepsPersistedEntities(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// A previous run knew an entity the rulebook no longer defines, and
	// carried a stale edge.
	old := entity.New(entity.KindKeyword, "Forgotten")
	old.Source = "chapters/removed.tex"
	old.Description = "Gone from the book."
	old.DependsOn.Add("urn:ttrpg:attribute:agi")
	prev := entity.NewGraph()
	prev.Merge(old)
	if err := persist.Save(f.graph, prev); err != nil {
		t.Fatal(err)
	}

	if _, err := f.runner(t).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rec, ok := readDocument(t, f.graph)["urn:ttrpg:keyword:forgotten"]
	if !ok {
		t.Fatal("persisted entity dropped")
	}
	if len(rec.DependsOn) != 0 {
		t.Errorf("stale edge survived: %v", rec.DependsOn)
	}
}

func TestRun_RootMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	graph := filepath.Join(dir, "rule_graph.json")
	r := pipeline.New(pipeline.Options{
		Corpus:       &corpus.Dir{Root: filepath.Join(dir, "nope"), Main: "main.tex"},
		GraphPath:    graph,
		DanglingPath: filepath.Join(dir, "dangling.json"),
	}, pipeline.WithSymbols(testIndex), pipeline.WithMetrics(testMetrics(t)))

	_, err := r.Run(context.Background())
	if !errors.Is(err, corpus.ErrRootMissing) {
		t.Fatalf("Run: err = %v, want ErrRootMissing", err)
	}
	if _, statErr := os.Stat(graph); !errors.Is(statErr, os.ErrNotExist) {
		t.Errorf("graph written despite missing root: %v", statErr)
	}
}

func TestRun_MalformedGraph(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if err := os.MkdirAll(filepath.Dir(f.graph), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.graph, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := f.runner(t).Run(context.Background())
	if !errors.Is(err, persist.ErrMalformed) {
		t.Fatalf("Run: err = %v, want ErrMalformed", err)
	}
	if raw, _ := os.ReadFile(f.graph); string(raw) != "{not json" {
		t.Error("malformed graph was overwritten")
	}
}

type recordingMirror struct {
	entities int
	err      error
}

func (m *recordingMirror) Sync(_ context.Context, g *entity.Graph) error {
	m.entities = g.Len()
	return m.err
}

func TestRun_Mirror(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	m := &recordingMirror{}
	sum, err := f.runner(t, pipeline.WithMirror(m)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.entities != sum.Entities || m.entities == 0 {
		t.Errorf("mirror saw %d entities, summary has %d", m.entities, sum.Entities)
	}

	failing := &recordingMirror{err: errors.New("db down")}
	if _, err := f.runner(t, pipeline.WithMirror(failing)).Run(context.Background()); err == nil {
		t.Fatal("Run: expected mirror error, got nil")
	}
}

func TestRun_StaticCorpus(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := pipeline.New(pipeline.Options{
		Corpus: corpus.Static{
			{Path: "a.tex", Text: `\textbf{Parry:} Spend AP to block.`},
		},
		GraphPath:    filepath.Join(dir, "g.json"),
		DanglingPath: filepath.Join(dir, "d.json"),
	}, pipeline.WithSymbols(symbols.Index{}), pipeline.WithMetrics(testMetrics(t)))

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// 1 keyword, 18 core entities, AP, STA and DL/DC/TN.
	if sum.Entities != 1+18+5 {
		t.Errorf("Entities = %d, want 24", sum.Entities)
	}
	if sum.Dangling != 0 {
		t.Errorf("Dangling = %d, want 0", sum.Dangling)
	}
}

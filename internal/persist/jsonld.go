// Package persist reads and writes the rule graph as a JSON-LD document and
// writes the dangling reference report.
//
// Relationship edges are written but never read back: every run recomputes
// them, so a loaded graph always starts edge-free. All writes are atomic; a
// reader never observes a half-written file.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MrWong99/rulegraph/internal/entity"
)

// ErrMalformed is returned when a persisted graph cannot be decoded.
var ErrMalformed = errors.New("persist: malformed graph document")

// Context is the fixed JSON-LD context of every graph document.
type Context struct {
	Vocab       string   `json:"@vocab"`
	DependsOn   idCoerce `json:"dependsOn"`
	Modifies    idCoerce `json:"modifies"`
	CodeMapping string   `json:"codeMapping"`
}

type idCoerce struct {
	Type string `json:"@type"`
}

// DefaultContext is written at the top of every graph document.
var DefaultContext = Context{
	Vocab:       entity.IDScheme,
	DependsOn:   idCoerce{Type: "@id"},
	Modifies:    idCoerce{Type: "@id"},
	CodeMapping: "https://example.invalid/codeMapping",
}

// Document is the top-level JSON-LD object.
type Document struct {
	Context Context  `json:"@context"`
	Graph   []Record `json:"@graph"`
}

// Record is the JSON-LD form of one entity.
type Record struct {
	ID          string   `json:"@id"`
	Type        string   `json:"@type,omitempty"`
	Name        string   `json:"name,omitempty"`
	DependsOn   []string `json:"dependsOn"`
	Modifies    []string `json:"modifies"`
	Formula     string   `json:"formula,omitempty"`
	Source      string   `json:"source,omitempty"`
	CodeMapping string   `json:"codeMapping,omitempty"`
	Status      string   `json:"@status,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Load reads the graph document at path. A missing file yields an empty
// graph and no error.
func Load(path string) (*entity.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entity.NewGraph(), nil
		}
		return nil, fmt.Errorf("persist: open graph: %w", err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return g, nil
}

// Decode reads a graph document from r.
//
// Stored edges are discarded. A record without @type becomes a Mechanic and
// a record without a name is named after its id. Every entity gets
// [entity.OriginPersisted].
func Decode(r io.Reader) (*entity.Graph, error) {
	doc, err := DecodeDocument(r)
	if err != nil {
		return nil, err
	}
	g := entity.NewGraph()
	for _, rec := range doc.Graph {
		g.Merge(fromRecord(rec))
	}
	return g, nil
}

// DecodeDocument reads a graph document from r and validates every record.
// Unlike [Decode] it keeps the records as stored, edges included, for
// read-only consumers of a finished graph.
func DecodeDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var errs []error
	for i, rec := range doc.Graph {
		if err := entity.Validate(fromRecord(rec)); err != nil {
			errs = append(errs, fmt.Errorf("record %d (%q): %w", i, rec.ID, err))
		}
	}
	if len(errs) > 0 {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformed, errors.Join(errs...))
	}
	return doc, nil
}

func fromRecord(rec Record) entity.Entity {
	kind := entity.Kind(rec.Type)
	if rec.Type == "" {
		kind = entity.KindMechanic
	}
	name := rec.Name
	if name == "" {
		name = rec.ID
	}
	return entity.Entity{
		ID:          rec.ID,
		Kind:        kind,
		Name:        name,
		Source:      rec.Source,
		DependsOn:   entity.Set{},
		Modifies:    entity.Set{},
		Formula:     rec.Formula,
		CodeMapping: rec.CodeMapping,
		Status:      rec.Status,
		Tags:        entity.NewSet(rec.Tags...),
		Description: rec.Description,
		Origin:      entity.OriginPersisted,
	}
}

// Records converts g into its JSON-LD records, sorted by id. Edges whose
// target is not in g are dropped.
func Records(g *entity.Graph) []Record {
	all := g.Entities()
	out := make([]Record, 0, len(all))
	for _, e := range all {
		rec := Record{
			ID:          e.ID,
			Type:        string(e.Kind),
			Name:        e.Name,
			DependsOn:   g.Resolve(e.DependsOn),
			Modifies:    g.Resolve(e.Modifies),
			Formula:     e.Formula,
			Source:      e.Source,
			CodeMapping: e.CodeMapping,
			Status:      e.Status,
			Description: e.Description,
		}
		if e.Tags.Len() > 0 {
			rec.Tags = e.Tags.Sorted()
		}
		out = append(out, rec)
	}
	return out
}

// Encode writes g to w as an indented JSON-LD document.
func Encode(w io.Writer, g *entity.Graph) error {
	return encodeJSON(w, Document{Context: DefaultContext, Graph: Records(g)})
}

// Save atomically writes g to path.
func Save(path string, g *entity.Graph) error {
	if err := writeAtomic(path, func(w io.Writer) error { return Encode(w, g) }); err != nil {
		return fmt.Errorf("persist: save graph: %w", err)
	}
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Package infer derives relationship edges between rule entities and reports
// dangling references.
//
// Inference is conservative. Edges are only ever drawn to the
// targets of a curated alias table (core stats, resources and difficulty
// shorthands), matched at word boundaries, never by free substring search.
// Dangling detection looks only at corpus-sourced entities and only at text
// shaped like a game term: short all-caps acronyms, or title-case phrases
// that recur across at least two entities.
package infer

import (
	"regexp"
	"slices"

	"github.com/MrWong99/rulegraph/internal/entity"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[\.;\n]+`)
	modifyingVerbRe = regexp.MustCompile(`(?i)\b(?:increases|decreases|reduces|grants|removes|adds|subtracts|restores|spends|spend|lose|loses|gain|gains)\b`)
)

// Option configures [Run].
type Option func(*runConfig)

type runConfig struct {
	suggester *Suggester
	threshold float64
	suggest   bool
}

// WithSuggestions attaches a nearest-name suggestion to each dangling
// reference. threshold is the fuzzy Jaro-Winkler cut-off; zero keeps the
// default.
func WithSuggestions(threshold float64) Option {
	return func(c *runConfig) {
		c.suggest = true
		c.threshold = threshold
	}
}

// Result summarises one inference pass.
type Result struct {
	// Dangling lists unknown term references ordered by referencing entity
	// id, then term.
	Dangling []Dangling

	// Ensured is the number of core resources inserted into the graph.
	Ensured int

	// DependsOn and Modifies count the edges present after inference.
	DependsOn int
	Modifies  int
}

// Run mutates g in place, adding inferred DependsOn and Modifies edges to
// every entity, and returns the dangling references found in corpus text.
//
// Existing edges are kept; callers that want a fresh inference clear them
// beforehand with [entity.Graph.ResetEdges]. No edge is drawn from an
// entity to itself. Run is deterministic for a given graph.
func Run(g *entity.Graph, opts ...Option) Result {
	var cfg runConfig
	for _, o := range opts {
		o(&cfg)
	}

	res := Result{Ensured: EnsureCore(g)}

	// Aliases that resolve to an entity in this graph.
	var active []*alias
	for _, a := range aliases {
		if g.Has(a.target) {
			active = append(active, a)
		}
	}

	all := g.Entities()

	known := make(knownTerms)
	names := make([]string, 0, len(all))
	for _, e := range all {
		known.add(e.Name)
		names = append(names, e.Name)
	}
	for _, a := range aliases {
		known.add(a.term)
	}

	if cfg.suggest {
		var sopts []SuggesterOption
		if cfg.threshold > 0 {
			sopts = append(sopts, WithFuzzyThreshold(cfg.threshold))
		}
		cfg.suggester = NewSuggester(names, sopts...)
	}

	// First pass: candidate terms per corpus entity and how many entities
	// mention each.
	perEntity := make(map[string]map[string]struct{})
	counts := make(map[string]int)
	for _, e := range all {
		if e.Source == "" {
			continue
		}
		text := e.Text()
		if text == "" {
			continue
		}
		c := candidates(text)
		if len(c) == 0 {
			continue
		}
		perEntity[e.ID] = c
		for term := range c {
			counts[term]++
		}
	}

	// Second pass: edges, then dangling references.
	for _, e := range all {
		text := e.Text()
		if text == "" {
			continue
		}
		linkReferences(e, text, active)

		if e.Source == "" {
			continue
		}
		terms := make([]string, 0, len(perEntity[e.ID]))
		for t := range perEntity[e.ID] {
			terms = append(terms, t)
		}
		slices.Sort(terms)
		for _, term := range terms {
			if known.has(term) || !reportable(term, counts[term]) {
				continue
			}
			d := Dangling{
				Term:         term,
				ReferencedBy: e.ID,
				Source:       e.Source,
				Context:      excerpt(text),
			}
			if cfg.suggester != nil {
				d.Suggestion, _ = cfg.suggester.Suggest(term)
			}
			res.Dangling = append(res.Dangling, d)
		}
	}

	for _, e := range all {
		res.DependsOn += e.DependsOn.Len()
		res.Modifies += e.Modifies.Len()
	}
	return res
}

// linkReferences adds a DependsOn edge for every alias mentioned in text
// and, for each sentence with a state-changing verb, a Modifies (and
// DependsOn) edge for every alias in that sentence.
func linkReferences(e *entity.Entity, text string, active []*alias) {
	for _, a := range active {
		if a.target != e.ID && a.re.MatchString(text) {
			e.DependsOn.Add(a.target)
		}
	}

	for _, sentence := range sentenceSplitRe.Split(text, -1) {
		if !modifyingVerbRe.MatchString(sentence) {
			continue
		}
		for _, a := range active {
			if a.target != e.ID && a.re.MatchString(sentence) {
				e.Modifies.Add(a.target)
				e.DependsOn.Add(a.target)
			}
		}
	}
}

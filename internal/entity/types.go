// Package entity defines the rule-graph data model: game-rule entities, their
// deterministic identifiers, and the [Graph] that merges freshly extracted
// entities into a previously persisted graph.
//
// An entity is identified by (kind, name). The same pair always yields the
// same id, across runs and across corpus files, and that id is the only merge
// key. Relationship edges (DependsOn, Modifies) are never trusted from disk;
// they are recomputed on every run by the infer package.
//
// A [Graph] is not safe for concurrent mutation. The extraction pipeline owns
// a single graph for the duration of a run.
package entity

import "slices"

// Kind classifies a rule-graph entity.
type Kind string

const (
	// KindAttribute is a stored base characteristic (STR, AGI, size, ...).
	KindAttribute Kind = "Attribute"

	// KindDerivedValue is a value computed from other entities (RES, DM, AP, ...).
	KindDerivedValue Kind = "DerivedValue"

	// KindMechanic is a rule procedure, ability, or spell.
	KindMechanic Kind = "Mechanic"

	// KindKeyword is any other defined rule term.
	KindKeyword Kind = "Keyword"
)

// IsValid reports whether k is a recognised entity kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindAttribute, KindDerivedValue, KindMechanic, KindKeyword:
		return true
	}
	return false
}

// Token returns the lower-case form of k used inside entity ids.
func (k Kind) Token() string {
	switch k {
	case KindAttribute:
		return "attribute"
	case KindDerivedValue:
		return "derivedvalue"
	case KindMechanic:
		return "mechanic"
	case KindKeyword:
		return "keyword"
	}
	return "unknown"
}

// StatusUnimplemented marks an entity that exists in the rulebook but has no
// code mapping in the game-logic sources.
const StatusUnimplemented = "unimplemented"

// Origin records where an in-memory entity came from. It is never persisted.
type Origin int

const (
	// OriginPersisted entities were loaded from a previous run's graph file.
	OriginPersisted Origin = iota

	// OriginCorpus entities were extracted from a rulebook section.
	OriginCorpus

	// OriginCore entities were synthesized by the bootstrapper from the
	// symbol index and take precedence on merge collisions.
	OriginCore
)

// Entity is a node of the rule graph.
type Entity struct {
	// ID is derived from (Kind, Name) via [NewID] and is the merge key.
	ID string

	// Kind is fixed at creation.
	Kind Kind

	// Name is the display name. It is not unique across kinds.
	Name string

	// Source is the corpus section the entity was extracted from. Empty for
	// bootstrapped entities.
	Source string

	// DependsOn and Modifies hold target entity ids.
	DependsOn Set
	Modifies  Set

	// Formula is an optional short symbolic expression.
	Formula string

	// CodeMapping is a "<path>#<symbol>" reference into the game-logic
	// sources, present only when the entity is implemented.
	CodeMapping string

	// Status is either empty or [StatusUnimplemented].
	Status string

	// Tags is an unordered set of free-form labels.
	Tags Set

	// Description is free text. The first non-empty value wins on merge.
	Description string

	// Origin is in-memory provenance used for merge tie-breaks.
	Origin Origin
}

// New returns an entity of the given kind and name with its id derived and
// all sets initialised.
func New(kind Kind, name string) Entity {
	return Entity{
		ID:        NewID(kind, name),
		Kind:      kind,
		Name:      name,
		DependsOn: Set{},
		Modifies:  Set{},
		Tags:      Set{},
	}
}

// Text returns the description and formula joined by a single space,
// skipping empty parts. It is the text scanned by relationship inference.
func (e *Entity) Text() string {
	switch {
	case e.Description == "":
		return e.Formula
	case e.Formula == "":
		return e.Description
	}
	return e.Description + " " + e.Formula
}

// ResetEdges clears DependsOn and Modifies.
func (e *Entity) ResetEdges() {
	e.DependsOn = Set{}
	e.Modifies = Set{}
}

// Set is a set of strings with deterministic, sorted iteration via [Set.Sorted].
type Set map[string]struct{}

// NewSet returns a set containing items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Len returns the number of members.
func (s Set) Len() int { return len(s) }

// Add inserts v.
func (s Set) Add(v string) { s[v] = struct{}{} }

// Has reports whether v is present.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Union adds every member of other to s.
func (s Set) Union(other Set) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Sorted returns the members in ascending order. A nil or empty set yields a
// non-nil empty slice so that it encodes as [] rather than null.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

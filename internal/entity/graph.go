package entity

import (
	"slices"
	"strings"
)

// Graph is an in-memory rule graph keyed by entity id.
// The zero value is ready to use.
type Graph struct {
	entities map[string]*Entity
}

// NewGraph returns an empty [Graph].
func NewGraph() *Graph {
	return &Graph{entities: make(map[string]*Entity)}
}

// Len returns the number of entities.
func (g *Graph) Len() int { return len(g.entities) }

// Get returns the entity with the given id.
func (g *Graph) Get(id string) (*Entity, bool) {
	e, ok := g.entities[id]
	return e, ok
}

// Has reports whether an entity with the given id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.entities[id]
	return ok
}

// Ensure inserts e unless an entity with the same id already exists.
// It reports whether e was inserted.
func (g *Graph) Ensure(e Entity) bool {
	if g.Has(e.ID) {
		return false
	}
	g.insert(e)
	return true
}

// Entities returns all entities sorted by id.
// The returned pointers alias the graph's storage.
func (g *Graph) Entities() []*Entity {
	out := make([]*Entity, 0, len(g.entities))
	for _, e := range g.entities {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entity) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Resolve returns the members of ids that name entities present in g, sorted.
// The output writers use it so that no edge ever points outside the graph.
func (g *Graph) Resolve(ids Set) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids.Sorted() {
		if g.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// ResetEdges clears the relationship edges of every entity.
func (g *Graph) ResetEdges() {
	for _, e := range g.entities {
		e.ResetEdges()
	}
}

// Merge folds fresh entities into g in order.
//
// A new id is inserted as-is. An existing id is reconciled field by field:
//
//   - DependsOn, Modifies and Tags are unioned.
//   - Formula, Description, Source and CodeMapping are filled only when the
//     existing value is blank; an existing value always wins.
//   - An [OriginCore] entity is authoritative for Kind and a non-empty
//     CodeMapping and overwrites both.
//   - A [StatusUnimplemented] status is cleared when the fresh entity has no
//     status but carries a CodeMapping (the implementation was found).
//   - Otherwise a fresh status is adopted into an empty slot, except that an
//     entity with a CodeMapping never becomes unimplemented again.
//
// Merge never removes a known field value other than clearing the
// unimplemented status.
func (g *Graph) Merge(fresh ...Entity) {
	for _, n := range fresh {
		cur, ok := g.entities[n.ID]
		if !ok {
			g.insert(n)
			continue
		}
		mergeInto(cur, n)
	}
}

func (g *Graph) insert(e Entity) {
	if g.entities == nil {
		g.entities = make(map[string]*Entity)
	}
	cp := e
	cp.DependsOn = cloneSet(e.DependsOn)
	cp.Modifies = cloneSet(e.Modifies)
	cp.Tags = cloneSet(e.Tags)
	g.entities[e.ID] = &cp
}

func mergeInto(cur *Entity, n Entity) {
	cur.DependsOn.Union(n.DependsOn)
	cur.Modifies.Union(n.Modifies)
	cur.Tags.Union(n.Tags)

	if cur.Formula == "" {
		cur.Formula = n.Formula
	}
	if cur.Description == "" {
		cur.Description = n.Description
	}
	if cur.Source == "" {
		cur.Source = n.Source
	}

	if n.Origin == OriginCore {
		if n.Kind.IsValid() {
			cur.Kind = n.Kind
		}
		if n.CodeMapping != "" {
			cur.CodeMapping = n.CodeMapping
		}
		cur.Origin = OriginCore
	} else if cur.CodeMapping == "" {
		cur.CodeMapping = n.CodeMapping
	}

	switch {
	case cur.Status == StatusUnimplemented && n.Status == "" && n.CodeMapping != "":
		cur.Status = ""
	case n.Status != "" && cur.Status == "":
		if n.Status == StatusUnimplemented && cur.CodeMapping != "" {
			break
		}
		cur.Status = n.Status
	}
}

func cloneSet(s Set) Set {
	out := make(Set, len(s))
	out.Union(s)
	return out
}

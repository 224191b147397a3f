package ruleserver

import (
	"slices"
	"strings"

	"github.com/MrWong99/rulegraph/internal/infer"
	"github.com/MrWong99/rulegraph/internal/persist"
)

// snapshot is an immutable, indexed view of one written graph and its
// dangling report. Reloads build a new snapshot and swap the pointer.
type snapshot struct {
	records    []persist.Record // sorted by id
	byID       map[string]int
	dependedBy map[string][]string
	modifiedBy map[string][]string
	dangling   []infer.Dangling
}

func newSnapshot(doc persist.Document, dangling []infer.Dangling) *snapshot {
	s := &snapshot{
		records:    make([]persist.Record, 0, len(doc.Graph)),
		byID:       make(map[string]int, len(doc.Graph)),
		dependedBy: make(map[string][]string),
		modifiedBy: make(map[string][]string),
		dangling:   dangling,
	}
	for _, rec := range doc.Graph {
		if rec.DependsOn == nil {
			rec.DependsOn = []string{}
		}
		if rec.Modifies == nil {
			rec.Modifies = []string{}
		}
		s.records = append(s.records, rec)
	}
	slices.SortFunc(s.records, func(a, b persist.Record) int { return strings.Compare(a.ID, b.ID) })

	for i, rec := range s.records {
		s.byID[rec.ID] = i
		for _, t := range rec.DependsOn {
			s.dependedBy[t] = append(s.dependedBy[t], rec.ID)
		}
		for _, t := range rec.Modifies {
			s.modifiedBy[t] = append(s.modifiedBy[t], rec.ID)
		}
	}
	if s.dangling == nil {
		s.dangling = []infer.Dangling{}
	}
	return s
}

func (s *snapshot) get(id string) (persist.Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return persist.Record{}, false
	}
	return s.records[i], true
}

// byName returns the first record, in id order, whose name equals name
// case-insensitively.
func (s *snapshot) byName(name string) (persist.Record, bool) {
	for _, rec := range s.records {
		if strings.EqualFold(rec.Name, name) {
			return rec, true
		}
	}
	return persist.Record{}, false
}

// search ranks exact name matches first, then name matches, then matches in
// id, description or formula. Ties keep id order.
func (s *snapshot) search(query, kind string) []persist.Record {
	q := strings.ToLower(query)
	var ranked [3][]persist.Record
	for _, rec := range s.records {
		if kind != "" && !strings.EqualFold(rec.Type, kind) {
			continue
		}
		name := strings.ToLower(rec.Name)
		switch {
		case name == q:
			ranked[0] = append(ranked[0], rec)
		case strings.Contains(name, q):
			ranked[1] = append(ranked[1], rec)
		case strings.Contains(strings.ToLower(rec.ID), q),
			strings.Contains(strings.ToLower(rec.Description), q),
			strings.Contains(strings.ToLower(rec.Formula), q):
			ranked[2] = append(ranked[2], rec)
		}
	}
	return slices.Concat(ranked[0], ranked[1], ranked[2])
}

func (s *snapshot) danglingFor(id, term string) []infer.Dangling {
	out := []infer.Dangling{}
	for _, d := range s.dangling {
		if id != "" && d.ReferencedBy != id {
			continue
		}
		if term != "" && !strings.EqualFold(d.Term, term) {
			continue
		}
		out = append(out, d)
	}
	return out
}

package extract_test

import (
	"testing"

	"github.com/MrWong99/rulegraph/internal/corpus"
	"github.com/MrWong99/rulegraph/internal/entity"
	"github.com/MrWong99/rulegraph/internal/extract"
)

const combatSection = `
\chapter{Combat}
\abil{Cleave}{1/turn}{2 AP}{STR 3}{Strike two adjacent foes.\\ Damage is halved.}
\inna{Second Wind}{1/day}{-}{-}{self}{instant}{Restore STA\quad equal to half your CON.}
\spell{Fire Bolt}{3 AP}{Combustion}{-}{TN 12}{30m}{attack}{instant}{Deal $2 \times SPI$ fire damage.}
% \abil{Commented Out}{a}{b}{c}{d}
\textbf{Reach:} The weapon can strike foes two squares away.
\textbf{Effect:} structural caption, not a term
\textbf{AP:} Action Points, spent at $1$ per action.
\textbf{Rest:} Recover $STA / 4$ stamina.
\textbf{STR:} Raw physical power.
\textbf{X:} too short
`

func TestSection(t *testing.T) {
	t.Parallel()

	got := extract.Section(corpus.Section{Path: "chapters/combat.tex", Text: combatSection})

	type want struct {
		id          string
		kind        entity.Kind
		tag         string
		status      string
		description string
		formula     string
	}
	wants := []want{
		{id: "urn:ttrpg:mechanic:cleave", kind: entity.KindMechanic, tag: "ability", status: "unimplemented",
			description: "Strike two adjacent foes. Damage is halved."},
		{id: "urn:ttrpg:mechanic:second_wind", kind: entity.KindMechanic, tag: "ability", status: "unimplemented",
			description: "Restore STA equal to half your CON."},
		{id: "urn:ttrpg:mechanic:fire_bolt", kind: entity.KindMechanic, tag: "spell", status: "unimplemented",
			description: "Deal $2 SPI$ fire damage."},
		{id: "urn:ttrpg:keyword:reach", kind: entity.KindKeyword,
			description: "The weapon can strike foes two squares away."},
		{id: "urn:ttrpg:derivedvalue:ap", kind: entity.KindDerivedValue,
			description: "Action Points, spent at $1$ per action.", formula: "1"},
		{id: "urn:ttrpg:mechanic:rest", kind: entity.KindMechanic,
			description: "Recover $STA / 4$ stamina.", formula: "STA / 4"},
		{id: "urn:ttrpg:attribute:str", kind: entity.KindAttribute,
			description: "Raw physical power."},
	}

	if len(got) != len(wants) {
		for _, e := range got {
			t.Logf("got %s", e.ID)
		}
		t.Fatalf("Section: got %d entities, want %d", len(got), len(wants))
	}

	for i, w := range wants {
		e := got[i]
		if e.ID != w.id {
			t.Errorf("[%d] ID = %q, want %q", i, e.ID, w.id)
			continue
		}
		if e.Kind != w.kind {
			t.Errorf("%s: Kind = %q, want %q", w.id, e.Kind, w.kind)
		}
		if w.tag != "" && !e.Tags.Has(w.tag) {
			t.Errorf("%s: Tags = %v, want %q", w.id, e.Tags.Sorted(), w.tag)
		}
		if e.Status != w.status {
			t.Errorf("%s: Status = %q, want %q", w.id, e.Status, w.status)
		}
		if e.Description != w.description {
			t.Errorf("%s: Description = %q, want %q", w.id, e.Description, w.description)
		}
		if e.Formula != w.formula {
			t.Errorf("%s: Formula = %q, want %q", w.id, e.Formula, w.formula)
		}
		if e.Source != "chapters/combat.tex" {
			t.Errorf("%s: Source = %q", w.id, e.Source)
		}
		if e.Origin != entity.OriginCorpus {
			t.Errorf("%s: Origin = %v, want corpus", w.id, e.Origin)
		}
	}
}

func TestDefinitions_SkipsLabels(t *testing.T) {
	t.Parallel()

	text := "\\textbf{Usage:} once\n\\textbf{ Cost :} 2 AP\n\\textbf{Requirements:} none\n\\textbf{Parry:} Block a melee attack.\n"
	defs := extract.Definitions(text)
	if len(defs) != 1 {
		t.Fatalf("Definitions: got %d, want 1: %+v", len(defs), defs)
	}
	if defs[0].Term != "Parry" || defs[0].Text != "Block a melee attack." {
		t.Fatalf("Definitions[0] = %+v", defs[0])
	}
}

func TestDefinitions_StopsAtBackslash(t *testing.T) {
	t.Parallel()

	defs := extract.Definitions(`\textbf{Term:} Strength increases STR and grants AP.\\ next line`)
	if len(defs) != 1 {
		t.Fatalf("Definitions: got %d, want 1", len(defs))
	}
	if want := "Strength increases STR and grants AP."; defs[0].Text != want {
		t.Fatalf("Text = %q, want %q", defs[0].Text, want)
	}
}

func TestCapabilities_EmptyNameSkipped(t *testing.T) {
	t.Parallel()

	got := extract.Capabilities("x.tex", `\abil{\noindent}{u}{c}{r}{d}`)
	if len(got) != 0 {
		t.Fatalf("Capabilities: got %d entities, want 0", len(got))
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		term string
		want entity.Kind
	}{
		{term: "STR", want: entity.KindAttribute},
		{term: "dex", want: entity.KindAttribute},
		{term: "STA", want: entity.KindAttribute},
		{term: "AP", want: entity.KindDerivedValue},
		{term: "Rest", want: entity.KindMechanic},
		{term: "TRAVEL", want: entity.KindMechanic},
		{term: "Reach", want: entity.KindKeyword},
		{term: "Term", want: entity.KindKeyword},
	}
	for _, tc := range tests {
		if got := extract.Classify(tc.term); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.term, got, tc.want)
		}
	}
}

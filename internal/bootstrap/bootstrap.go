// Package bootstrap synthesizes the authoritative core of the rule graph: the
// characteristics, derived values and actions that are implemented in the
// game-logic sources, independent of what the rulebook text says.
//
// The catalog below is static configuration. Entries with a symbol are only
// emitted when the symbol index contains that exact name, so the graph never
// claims an implementation that does not exist.
package bootstrap

import (
	"github.com/MrWong99/rulegraph/internal/entity"
	"github.com/MrWong99/rulegraph/internal/symbols"
)

// Code mappings for values stored directly on the character schema.
const (
	CharacteristicsSchema = "app/domain/types.ts#CharacteristicsSchema"
	ResourcesSchema       = "app/domain/types.ts#ResourcesSchema"
)

// ref names an entity by kind and name; its id is derived on use.
type ref struct {
	kind entity.Kind
	name string
}

func (r ref) id() string { return entity.NewID(r.kind, r.name) }

func attr(name string) ref    { return ref{entity.KindAttribute, name} }
func derived(name string) ref { return ref{entity.KindDerivedValue, name} }

// coreEntry is one row of the bootstrap catalog.
type coreEntry struct {
	kind        entity.Kind
	name        string
	symbol      string // required index symbol; empty means always emitted
	codeMapping string // fixed mapping when symbol is empty
	formula     string
	description string
	dependsOn   []ref
}

// baseCharacteristics are the stored characteristic fields.
var baseCharacteristics = []string{
	"STR", "AGI", "STA", "CON", "INT", "SPI", "DEX",
	"size", "melee", "ranged", "detection", "spellcast",
	"conviction1", "conviction2", "devotion",
}

// woundBases are the stored additive terms of the wound thresholds.
var woundBases = []string{"RES", "TGH", "INS"}

// effectiveStats maps each wound threshold to its accessor.
var effectiveStats = []struct {
	stat, symbol string
}{
	{"RES", "getRES"},
	{"TGH", "getTGH"},
	{"INS", "getINS"},
}

// catalog returns the full bootstrap catalog in emission order.
func catalog() []coreEntry {
	var out []coreEntry

	for _, f := range baseCharacteristics {
		out = append(out, coreEntry{
			kind:        entity.KindAttribute,
			name:        f,
			codeMapping: CharacteristicsSchema,
			description: "Stored/base characteristic value on Character.characteristics",
		})
	}

	for _, b := range woundBases {
		out = append(out, coreEntry{
			kind:        entity.KindDerivedValue,
			name:        b + "_base",
			codeMapping: CharacteristicsSchema,
			description: "Stored/base additive term for " + b + " (effective computed via selector)",
		})
	}

	out = append(out,
		coreEntry{kind: entity.KindDerivedValue, name: "SM", symbol: "getSM", dependsOn: []ref{attr("size")}},
		coreEntry{kind: entity.KindDerivedValue, name: "DM", symbol: "getDM", dependsOn: []ref{attr("size")}},
	)

	for _, s := range effectiveStats {
		out = append(out, coreEntry{
			kind:      entity.KindDerivedValue,
			name:      s.stat,
			symbol:    s.symbol,
			formula:   "floor((0.5 * STR + " + s.stat + "_base) * DM)",
			dependsOn: []ref{attr("STR"), derived(s.stat + "_base"), derived("DM")},
		})
	}

	out = append(out,
		coreEntry{kind: entity.KindDerivedValue, name: "Gear Penalty", symbol: "getGearPenalties"},

		// The additive term is the stored character.movement.{run|jump|stand}.
		coreEntry{kind: entity.KindDerivedValue, name: "run_movement", symbol: "getRunMovement",
			formula: "floor((AGI - gear_penalty) / 3) + run"},
		coreEntry{kind: entity.KindDerivedValue, name: "jump_movement", symbol: "getJumpMovement",
			formula: "floor((AGI - gear_penalty) / 4) + jump"},
		coreEntry{kind: entity.KindDerivedValue, name: "stand_cost", symbol: "getStandMovement",
			formula: "5 - floor((AGI - gear_penalty) / 5) + stand"},

		coreEntry{kind: entity.KindMechanic, name: "Action Surge", symbol: "actionSurge",
			formula:   "cost = 3 + floor(gear_penalty / 3); effect: STA -= cost; AP += 6",
			dependsOn: []ref{derived("Gear Penalty")}},
		coreEntry{kind: entity.KindMechanic, name: "Rest (Character)", symbol: "restCharacter",
			formula:   "STA += floor(STA_base / 4); AP -= 4",
			dependsOn: []ref{attr("STA")}},
	)

	return out
}

// Core returns the bootstrapped entities whose preconditions hold against
// idx. Conditional entries whose symbol is absent are omitted silently.
// Every returned entity has [entity.OriginCore].
func Core(idx symbols.Lookup) []entity.Entity {
	var out []entity.Entity
	for _, c := range catalog() {
		mapping := c.codeMapping
		if c.symbol != "" {
			loc, ok := idx.Lookup(c.symbol)
			if !ok {
				continue
			}
			mapping = loc
		}

		e := entity.New(c.kind, c.name)
		e.CodeMapping = mapping
		e.Formula = c.formula
		e.Description = c.description
		e.Origin = entity.OriginCore
		for _, d := range c.dependsOn {
			e.DependsOn.Add(d.id())
		}
		out = append(out, e)
	}
	return out
}

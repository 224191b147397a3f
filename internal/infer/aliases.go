package infer

import (
	"regexp"

	"github.com/MrWong99/rulegraph/internal/entity"
)

// ResourcesSchema is the code mapping of the spendable character resources.
const ResourcesSchema = "app/domain/types.ts#ResourcesSchema"

// alias binds a surface term to the entity it refers to.
type alias struct {
	term   string
	target string
	re     *regexp.Regexp
}

func attr(name string) string    { return entity.NewID(entity.KindAttribute, name) }
func derived(name string) string { return entity.NewID(entity.KindDerivedValue, name) }
func keyword(name string) string { return entity.NewID(entity.KindKeyword, name) }

// aliases is the curated reference table. Only these terms ever produce
// relationship edges.
var aliases = []*alias{
	{term: "STR", target: attr("str")},
	{term: "Strength", target: attr("str")},
	{term: "AGI", target: attr("agi")},
	{term: "Agility", target: attr("agi")},
	{term: "CON", target: attr("con")},
	{term: "Constitution", target: attr("con")},
	{term: "INT", target: attr("int")},
	{term: "Intelligence", target: attr("int")},
	{term: "DEX", target: attr("dex")},
	{term: "Dexterity", target: attr("dex")},
	{term: "SPI", target: attr("spi")},
	{term: "Spirit", target: attr("spi")},
	{term: "STA", target: attr("sta")},

	{term: "AP", target: derived("ap")},
	{term: "Action Points", target: derived("ap")},
	{term: "DM", target: derived("dm")},
	{term: "SM", target: derived("sm")},
	{term: "RES", target: derived("res")},
	{term: "TGH", target: derived("tgh")},
	{term: "INS", target: derived("ins")},
	{term: "Gear Penalty", target: derived("gear_penalty")},
	{term: "Armor Penalty", target: derived("gear_penalty")},
	{term: "Running Speed", target: derived("run_movement")},
	{term: "Jump", target: derived("jump_movement")},
	{term: "Stand", target: derived("stand_cost")},

	{term: "DL", target: keyword("dl")},
	{term: "DC", target: keyword("dc")},
	{term: "TN", target: keyword("tn")},
}

var shortCode = regexp.MustCompile(`^[A-Z]{2,5}$`)

func init() {
	for _, a := range aliases {
		pattern := `\b` + regexp.QuoteMeta(a.term) + `\b`
		if !shortCode.MatchString(a.term) {
			pattern = `(?i)` + pattern
		}
		a.re = regexp.MustCompile(pattern)
	}
}

// coreResources returns the entities that relationship inference relies on
// and inserts when absent: the AP and STA resources and the DL/DC/TN
// difficulty shorthands.
func coreResources() []entity.Entity {
	ap := entity.New(entity.KindDerivedValue, "AP")
	ap.CodeMapping = ResourcesSchema
	ap.Description = "Action Points resource"

	sta := entity.New(entity.KindDerivedValue, "STA")
	sta.CodeMapping = ResourcesSchema
	sta.Description = "Stamina resource"

	out := []entity.Entity{ap, sta}
	for _, label := range []string{"DL", "DC", "TN"} {
		k := entity.New(entity.KindKeyword, label)
		k.Status = entity.StatusUnimplemented
		k.Description = "Difficulty / target metric (extracted as shorthand term)"
		out = append(out, k)
	}
	return out
}

// EnsureCore inserts the resources and difficulty keywords that are missing
// from g and returns the number inserted.
func EnsureCore(g *entity.Graph) int {
	n := 0
	for _, e := range coreResources() {
		if g.Ensure(e) {
			n++
		}
	}
	return n
}

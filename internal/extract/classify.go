package extract

import (
	"strings"

	"github.com/MrWong99/rulegraph/internal/entity"
)

// attributeTerms are base characteristic codes.
var attributeTerms = map[string]struct{}{
	"STR": {}, "AGI": {}, "STA": {}, "CON": {}, "INT": {}, "SPI": {}, "DEX": {},
}

// resourceTerms are spendable resources modelled as derived values.
var resourceTerms = map[string]struct{}{
	"AP": {},
}

// actionTerms are downtime actions modelled as mechanics.
var actionTerms = map[string]struct{}{
	"rest": {}, "travel": {}, "search": {}, "prepare": {},
}

// Classify guesses the kind of a defined term. Attribute codes win over
// resources, resources over actions, and anything unrecognised is a Keyword
// (most of those are weapon and armour keywords).
func Classify(term string) entity.Kind {
	upper := strings.ToUpper(term)
	if _, ok := attributeTerms[upper]; ok {
		return entity.KindAttribute
	}
	if _, ok := resourceTerms[upper]; ok {
		return entity.KindDerivedValue
	}
	if _, ok := actionTerms[strings.ToLower(term)]; ok {
		return entity.KindMechanic
	}
	return entity.KindKeyword
}

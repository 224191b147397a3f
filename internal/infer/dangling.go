package infer

import (
	"regexp"
	"strings"
)

// contextRunes bounds the excerpt stored with a dangling reference.
const contextRunes = 240

// Dangling is a term that looks like a game rule reference but matches no
// entity name or alias in the graph.
type Dangling struct {
	Term         string `json:"term"`
	ReferencedBy string `json:"referencedBy"`
	Source       string `json:"source"`
	Context      string `json:"context"`

	// Suggestion is the closest known entity name, when suggestions are
	// enabled and one is close enough.
	Suggestion string `json:"suggestion,omitempty"`
}

var (
	acronymRe     = regexp.MustCompile(`\b[A-Z]{2,6}\b`)
	acronymFullRe = regexp.MustCompile(`^[A-Z]{2,6}$`)
	romanRe       = regexp.MustCompile(`^(?:I|II|III|IV|V|VI|VII|VIII|IX|X)$`)

	// Two to five capitalised words of three or more letters, e.g.
	// "Action Surge" or "Standard Deflection".
	titlePhraseRe = regexp.MustCompile(`\b(?:[A-Z][a-z]{2,}\s+){1,4}[A-Z][a-z]{2,}\b`)
)

// stopwords are single words that never count as rule terms.
var stopwords = toSet(
	"a", "an", "and", "are", "as", "at", "be", "because", "been", "before",
	"being", "but", "by", "can", "cannot", "could", "did", "do", "does",
	"each", "even", "for", "from", "gain", "gains", "has", "have", "having",
	"he", "her", "here", "him", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "make", "makes", "may", "more", "most", "must", "no", "not",
	"of", "on", "one", "only", "or", "other", "our", "out", "outside", "over",
	"per", "she", "should", "since", "so", "some", "such", "than", "that",
	"the", "their", "them", "then", "there", "these", "they", "this", "those",
	"through", "to", "under", "unless", "up", "upon", "used", "use", "when",
	"whenever", "where", "who", "whoever", "will", "with", "without", "you",
	"your",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// candidates returns the distinct acronyms and title-case phrases of text.
func candidates(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range acronymRe.FindAllString(text, -1) {
		if romanRe.MatchString(tok) {
			continue
		}
		out[tok] = struct{}{}
	}
	for _, p := range titlePhraseRe.FindAllString(text, -1) {
		out[p] = struct{}{}
	}
	return out
}

// knownTerms is the case-insensitive vocabulary of the graph.
type knownTerms map[string]struct{}

// add records term and, for a term ending in "s", its singular form.
func (k knownTerms) add(term string) {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return
	}
	k[t] = struct{}{}
	if s, ok := strings.CutSuffix(t, "s"); ok && s != "" {
		k[s] = struct{}{}
	}
}

// has reports whether term, or term with one trailing "s" removed, is known.
func (k knownTerms) has(term string) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	if _, ok := k[t]; ok {
		return true
	}
	if s, ok := strings.CutSuffix(t, "s"); ok {
		_, found := k[s]
		return found
	}
	return false
}

// reportable applies the suppression rules to an unknown candidate.
// count is the number of corpus entities whose text contains term.
func reportable(term string, count int) bool {
	if !strings.Contains(term, " ") {
		if _, stop := stopwords[strings.ToLower(term)]; stop {
			return false
		}
	}
	if romanRe.MatchString(term) {
		return false
	}
	if acronymFullRe.MatchString(term) {
		return true
	}
	return count >= 2
}

// excerpt returns the first contextRunes runes of text.
func excerpt(text string) string {
	r := []rune(text)
	if len(r) <= contextRunes {
		return text
	}
	return string(r[:contextRunes])
}

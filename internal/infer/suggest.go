package infer

import (
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// SuggesterOption configures a [Suggester].
type SuggesterOption func(*Suggester)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a name that
// shares a Double Metaphone code with the term. Default: 0.70.
func WithPhoneticThreshold(threshold float64) SuggesterOption {
	return func(s *Suggester) {
		s.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score for a name with no
// phonetic overlap. Default: 0.85.
func WithFuzzyThreshold(threshold float64) SuggesterOption {
	return func(s *Suggester) {
		s.fuzzyThreshold = threshold
	}
}

// Suggester proposes the closest known entity name for an unknown term.
//
// Names sharing a Double Metaphone code with any token of the term are
// preferred and ranked by Jaro-Winkler similarity. When no such name clears
// the phonetic threshold, plain Jaro-Winkler against every name is tried
// with the stricter fuzzy threshold. A Suggester is read-only after
// construction and safe for concurrent use.
type Suggester struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
	names             []string
	codes             []map[string]struct{}
}

// NewSuggester returns a [Suggester] over the given display names. Duplicate
// and blank names are dropped and the rest are ranked in sorted order, so
// ties resolve to the lexically smallest name.
func NewSuggester(names []string, opts ...SuggesterOption) *Suggester {
	s := &Suggester{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(s)
	}

	uniq := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			uniq = append(uniq, n)
		}
	}
	slices.Sort(uniq)
	s.names = slices.Compact(uniq)
	s.codes = make([]map[string]struct{}, len(s.names))
	for i, n := range s.names {
		s.codes[i] = codesFor(strings.Fields(strings.ToLower(n)))
	}
	return s
}

// Suggest returns the best matching known name for term.
func (s *Suggester) Suggest(term string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(term))
	if lower == "" || len(s.names) == 0 {
		return "", false
	}
	tokens := strings.Fields(lower)
	termCodes := codesFor(tokens)

	var (
		best      string
		bestScore float64
		phonetic  bool
	)
	for i, name := range s.names {
		nameLower := strings.ToLower(name)
		score := similarity(tokens, lower, nameLower)

		if overlaps(termCodes, s.codes[i]) {
			if score >= s.phoneticThreshold && (!phonetic || score > bestScore) {
				best, bestScore, phonetic = name, score, true
			}
		} else if !phonetic && score >= s.fuzzyThreshold && score > bestScore {
			best, bestScore = name, score
		}
	}
	return best, best != ""
}

// similarity is the larger of the Jaro-Winkler scores of the full strings
// and of the strings with spaces removed.
func similarity(tokens []string, term, name string) float64 {
	score := matchr.JaroWinkler(term, name, false)
	if len(tokens) > 1 || strings.Contains(name, " ") {
		joined := strings.ReplaceAll(name, " ", "")
		if s := matchr.JaroWinkler(strings.Join(tokens, ""), joined, false); s > score {
			score = s
		}
	}
	return score
}

// codesFor returns the union of the Double Metaphone codes of tokens.
func codesFor(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}

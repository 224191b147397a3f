// Package markup normalises raw LaTeX rulebook text into prose suitable for
// pattern matching and for storing as entity descriptions.
//
// No document tree is built. Comments and
// control sequences are removed with a handful of regular expressions, and
// simple formatting commands are unwrapped to their inner text.
package markup

import (
	"regexp"
	"strings"
)

var (
	// An unescaped % starts a comment that runs to end of line.
	commentRe = regexp.MustCompile(`(?m)(^|[^\\])%.*$`)

	lineBreakRe = regexp.MustCompile(`\\\\`)

	// Formatting commands whose argument is kept as plain text.
	emphasisRe = regexp.MustCompile(`\\(?:textbf|textit|emph|underline)\{([^}]*)\}`)

	// Any other command, with an optional star, optional [..] and optional {..}.
	commandRe = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?(?:\{[^}]*\})?`)

	spaceRunRe = regexp.MustCompile(`\s+`)

	// Inline math: $...$ or \(...\).
	inlineMathRe = regexp.MustCompile(`\$([^$]+)\$|\\\(([^)]+)\\\)`)
)

// StripComments removes every unescaped % comment from s, keeping line
// structure intact. Escaped percent signs (\%) are preserved.
func StripComments(s string) string {
	return commentRe.ReplaceAllString(s, "$1")
}

// Clean turns a LaTeX fragment into a single line of prose.
//
// Comments are stripped, \\ line breaks become spaces, bold and emphasis
// commands are unwrapped, every remaining control sequence (with its
// optional bracket and brace argument) is replaced by a space, \% is
// unescaped, and whitespace is collapsed and trimmed.
func Clean(s string) string {
	s = StripComments(s)
	s = lineBreakRe.ReplaceAllString(s, " ")
	s = emphasisRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, `\%`, "\x00")
	s = commandRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\x00", "%")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// InlineMath returns every inline math expression in s in document order,
// each passed through [Clean]. Empty expressions are skipped.
func InlineMath(s string) []string {
	var out []string
	for _, m := range inlineMathRe.FindAllStringSubmatch(s, -1) {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		if v = Clean(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FirstInlineMath returns the first inline math expression in s, or "".
func FirstInlineMath(s string) string {
	if m := InlineMath(s); len(m) > 0 {
		return m[0]
	}
	return ""
}

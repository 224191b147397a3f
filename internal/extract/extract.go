// Package extract recognises rule entities in LaTeX rulebook sections.
//
// Two families of patterns are recognised:
//
//   - Named capability blocks: \abil{..}{..}{..}{..}{..},
//     \inna{..}{..}{..}{..}{..}{..}{..} and \spell{..}×9. Each match
//     becomes an unimplemented Mechanic tagged "ability" or "spell".
//   - Bold definitions: \textbf{Term:} definition text. Each becomes an
//     entity whose kind is guessed from a small fixed lookup.
//
// Block arguments may not contain nested braces.
package extract

import (
	"regexp"
	"strings"

	"github.com/MrWong99/rulegraph/internal/corpus"
	"github.com/MrWong99/rulegraph/internal/entity"
	"github.com/MrWong99/rulegraph/internal/markup"
)

// Tags attached to capability blocks.
const (
	TagAbility = "ability"
	TagSpell   = "spell"
)

// blockShape describes one capability macro: its name, argument count, the
// index of the argument used as description, and the tag it produces.
type blockShape struct {
	macro   string
	args    int
	descArg int
	tag     string
	re      *regexp.Regexp
}

// shapes lists the capability macros in extraction order.
var shapes = []*blockShape{
	// \abil{name}{usage}{cost}{req}{desc}
	{macro: "abil", args: 5, descArg: 4, tag: TagAbility},
	// \inna{name}{usage}{cost}{req}{range}{dur}{effect}
	{macro: "inna", args: 7, descArg: 6, tag: TagAbility},
	// \spell{name}{cost}{talent}{req}{tn}{range}{stype}{dur}{effect}
	{macro: "spell", args: 9, descArg: 8, tag: TagSpell},
}

func init() {
	for _, s := range shapes {
		s.re = regexp.MustCompile(blockPattern(s.macro, s.args))
	}
}

// blockPattern builds `\macro{name}{a}{b}...` with args brace groups. The
// first group (the name) must be non-empty.
func blockPattern(macro string, args int) string {
	var b strings.Builder
	b.WriteString(`\\` + macro + `\{([^}]+)\}`)
	for range args - 1 {
		b.WriteString(`\{([^}]*)\}`)
	}
	return b.String()
}

// definitionRe matches \textbf{Term:} followed by the definition up to the
// next backslash or end of line.
var definitionRe = regexp.MustCompile(`\\textbf\{\s*([^}:]{2,80}?)\s*:\s*\}\s*([^\\\n]+)`)

// structuralLabels are field captions of the capability macros that also
// render as bold "Label:" text. They are not rule terms.
var structuralLabels = map[string]struct{}{
	"usage":        {},
	"cost":         {},
	"talent":       {},
	"requirements": {},
	"description":  {},
	"effect":       {},
}

// Definition is a "Term: definition" pair found in a section.
type Definition struct {
	// Term is the cleaned defined term.
	Term string

	// Text is the cleaned definition.
	Text string

	// Formula is the first inline math expression of the definition, if any.
	Formula string
}

// Section extracts every entity from one corpus section: capability blocks
// in macro order, then bold definitions, each in document order.
func Section(s corpus.Section) []entity.Entity {
	text := markup.StripComments(s.Text)
	out := Capabilities(s.Path, text)
	for _, d := range Definitions(text) {
		out = append(out, d.Entity(s.Path))
	}
	return out
}

// Capabilities extracts the capability blocks of text. path is recorded as
// each entity's source.
func Capabilities(path, text string) []entity.Entity {
	var out []entity.Entity
	for _, shape := range shapes {
		for _, m := range shape.re.FindAllStringSubmatch(text, -1) {
			name := markup.Clean(m[1])
			if name == "" {
				continue
			}
			e := entity.New(entity.KindMechanic, name)
			e.Source = path
			e.Status = entity.StatusUnimplemented
			e.Tags.Add(shape.tag)
			e.Description = markup.Clean(m[1+shape.descArg])
			e.Origin = entity.OriginCorpus
			out = append(out, e)
		}
	}
	return out
}

// Definitions extracts the bold "Term:" definitions of text, discarding
// structural field labels and terms shorter than two characters.
func Definitions(text string) []Definition {
	var out []Definition
	for _, m := range definitionRe.FindAllStringSubmatch(text, -1) {
		term := markup.Clean(m[1])
		if len([]rune(term)) < 2 {
			continue
		}
		if _, skip := structuralLabels[strings.ToLower(term)]; skip {
			continue
		}
		out = append(out, Definition{
			Term:    term,
			Text:    markup.Clean(m[2]),
			Formula: markup.FirstInlineMath(m[2]),
		})
	}
	return out
}

// Entity converts d into a corpus entity sourced from path.
func (d Definition) Entity(path string) entity.Entity {
	e := entity.New(Classify(d.Term), d.Term)
	e.Source = path
	e.Description = d.Text
	e.Formula = d.Formula
	e.Origin = entity.OriginCorpus
	return e
}

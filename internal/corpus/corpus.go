// Package corpus lists the rulebook sections that feed the extractor.
//
// A rulebook is a root LaTeX document that pulls in section files with
// \include{name}. [Dir] resolves those includes relative to the rulebook
// directory and returns each section's raw text in include order. Sections
// whose file is missing are skipped; only a missing root document is fatal.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MrWong99/rulegraph/internal/markup"
)

// ErrRootMissing is returned when the root document does not exist.
var ErrRootMissing = errors.New("corpus: root document not found")

// Section is one text unit of the corpus.
type Section struct {
	// Path identifies the section, relative to the rulebook root with forward
	// slashes (e.g. "chapters/combat.tex").
	Path string

	// Text is the raw, unprocessed section content.
	Text string
}

// Provider lists corpus sections in a stable order.
type Provider interface {
	// Sections returns every available section in include order.
	Sections(ctx context.Context) ([]Section, error)
}

// Compile-time assertion that Dir satisfies the Provider interface.
var _ Provider = (*Dir)(nil)

// Dir is a [Provider] backed by a rulebook directory on disk.
type Dir struct {
	// Root is the rulebook directory.
	Root string

	// Main is the root document file name inside Root (e.g. "main.tex").
	Main string
}

var includeRe = regexp.MustCompile(`\\include\{([^}]+)\}`)

// Sections implements [Provider.Sections].
func (d *Dir) Sections(ctx context.Context) ([]Section, error) {
	mainPath := filepath.Join(d.Root, d.Main)
	raw, err := os.ReadFile(mainPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootMissing, mainPath)
		}
		return nil, fmt.Errorf("corpus: read root %q: %w", mainPath, err)
	}

	var out []Section
	for _, inc := range Includes(string(raw)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := filepath.ToSlash(inc + ".tex")
		text, err := os.ReadFile(filepath.Join(d.Root, filepath.FromSlash(rel)))
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("corpus: included section missing, skipping", "section", rel)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("corpus: read section %q: %w", rel, err)
		}
		out = append(out, Section{Path: rel, Text: string(text)})
	}
	return out, nil
}

// Includes returns the \include targets of a root document in order,
// ignoring any that appear inside a % comment.
func Includes(root string) []string {
	var out []string
	for _, m := range includeRe.FindAllStringSubmatch(markup.StripComments(root), -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Static is an in-memory [Provider], mainly for tests and embedding.
type Static []Section

// Sections implements [Provider.Sections].
func (s Static) Sections(context.Context) ([]Section, error) {
	return append([]Section(nil), s...), nil
}

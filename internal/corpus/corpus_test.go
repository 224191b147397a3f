package corpus_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/MrWong99/rulegraph/internal/corpus"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestIncludes(t *testing.T) {
	t.Parallel()

	root := `
\documentclass{book}
\begin{document}
\include{chapters/intro}
% \include{chapters/draft}
\include{ chapters/combat }
\include{chapters/magic} % trailing comment
\end{document}
`
	got := corpus.Includes(root)
	want := []string{"chapters/intro", "chapters/combat", "chapters/magic"}
	if !slices.Equal(got, want) {
		t.Fatalf("Includes = %v, want %v", got, want)
	}
}

func TestDir_Sections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.tex"), "\\include{chapters/b}\n\\include{chapters/missing}\n\\include{a}\n")
	writeFile(t, filepath.Join(dir, "chapters", "b.tex"), "section b")
	writeFile(t, filepath.Join(dir, "a.tex"), "section a")

	d := &corpus.Dir{Root: dir, Main: "main.tex"}
	got, err := d.Sections(context.Background())
	if err != nil {
		t.Fatalf("Sections: unexpected error: %v", err)
	}

	want := []corpus.Section{
		{Path: "chapters/b.tex", Text: "section b"},
		{Path: "a.tex", Text: "section a"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("Sections = %+v, want %+v", got, want)
	}
}

func TestDir_RootMissing(t *testing.T) {
	t.Parallel()

	d := &corpus.Dir{Root: t.TempDir(), Main: "main.tex"}
	_, err := d.Sections(context.Background())
	if !errors.Is(err, corpus.ErrRootMissing) {
		t.Fatalf("Sections: expected ErrRootMissing, got %v", err)
	}
}

func TestDir_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.tex"), "\\include{a}")
	writeFile(t, filepath.Join(dir, "a.tex"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &corpus.Dir{Root: dir, Main: "main.tex"}
	if _, err := d.Sections(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sections: expected context.Canceled, got %v", err)
	}
}

func TestStatic_ReturnsCopy(t *testing.T) {
	t.Parallel()

	s := corpus.Static{{Path: "a.tex", Text: "a"}}
	got, _ := s.Sections(context.Background())
	got[0].Text = "changed"
	if s[0].Text != "a" {
		t.Fatal("Static.Sections returned its backing array")
	}
}

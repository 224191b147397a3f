package markup_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/rulegraph/internal/markup"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Deal damage.", want: "Deal damage."},
		{name: "comment removed", in: "Gain 2 AP. % TODO balance\nThen rest.", want: "Gain 2 AP. Then rest."},
		{name: "full-line comment", in: "% hidden\nvisible", want: "visible"},
		{name: "escaped percent kept", in: `Raise by 50\% once.`, want: "Raise by 50% once."},
		{name: "line break", in: `first\\second`, want: "first second"},
		{name: "bold unwrapped", in: `\textbf{Reach} weapons`, want: "Reach weapons"},
		{name: "emphasis unwrapped", in: `an \emph{opposed} roll`, want: "an opposed roll"},
		{name: "command with args removed", in: `see \ref{sec:combat} now`, want: "see now"},
		{name: "starred command with option", in: `\section*[short]{Long} text`, want: "text"},
		{name: "bare command", in: `\noindent Spend AP`, want: "Spend AP"},
		{name: "whitespace collapsed", in: "  a \n\t b  ", want: "a b"},
		{name: "empty", in: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := markup.Clean(tc.in); got != tc.want {
				t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStripComments_KeepsLines(t *testing.T) {
	t.Parallel()

	in := "a % one\nb\n%two\nc \\% d"
	want := "a \nb\n\nc \\% d"
	if got := markup.StripComments(in); got != want {
		t.Fatalf("StripComments = %q, want %q", got, want)
	}
}

func TestInlineMath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "dollar", in: "costs $3 + STR$ AP", want: []string{"3 + STR"}},
		{name: "paren", in: `roll \(2d6 + AGI\) now`, want: []string{"2d6 + AGI"}},
		{name: "several in order", in: "$a$ and $b$", want: []string{"a", "b"}},
		{name: "commands stripped", in: `$\lfloor STR \rfloor$`, want: []string{"STR"}},
		{name: "none", in: "no math", want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := markup.InlineMath(tc.in); !slices.Equal(got, tc.want) {
				t.Errorf("InlineMath(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}

	if got := markup.FirstInlineMath("x $1$ y $2$"); got != "1" {
		t.Errorf("FirstInlineMath = %q, want %q", got, "1")
	}
}

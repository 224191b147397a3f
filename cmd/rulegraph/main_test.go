package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// These tests replace the global logger and telemetry providers, so they
// run sequentially.

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Extract(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "book", "main.tex"), `\include{combat}`)
	writeFile(t, filepath.Join(dir, "book", "combat.tex"), `\textbf{Parry:} Spend AP to block. Uses the QZX rune.`)
	writeFile(t, filepath.Join(dir, "game", "app", "domain", "commands", "rest.ts"),
		"export function restCharacter(c) {}\n")
	writeFile(t, filepath.Join(dir, "rulegraph.yaml"), `
log_level: warn
corpus:
  root: `+filepath.Join(dir, "book")+`
output:
  graph: `+filepath.Join(dir, "out", "rule_graph.json")+`
  dangling: `+filepath.Join(dir, "out", "dangling.json")+`
`)
	metrics := filepath.Join(dir, "metrics", "rulegraph.prom")

	var stdout bytes.Buffer
	code := run([]string{
		"extract",
		"-config", filepath.Join(dir, "rulegraph.yaml"),
		"-symbols-root", filepath.Join(dir, "game"),
		"-metrics-file", metrics,
	}, &stdout)
	if code != 0 {
		t.Fatalf("run: exit code %d", code)
	}

	if !strings.Contains(stdout.String(), "Wrote 1 dangling references") {
		t.Errorf("stdout = %q", stdout.String())
	}
	graph, err := os.ReadFile(filepath.Join(dir, "out", "rule_graph.json"))
	if err != nil {
		t.Fatalf("graph not written: %v", err)
	}
	for _, want := range []string{"urn:ttrpg:keyword:parry", "app/domain/commands/rest.ts#restCharacter"} {
		if !strings.Contains(string(graph), want) {
			t.Errorf("graph lacks %q", want)
		}
	}
	prom, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics not written: %v", err)
	}
	if !strings.Contains(string(prom), "rulegraph_sections_read") {
		t.Errorf("metrics textfile lacks sections counter:\n%s", prom)
	}
}

func TestRun_Failures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "log_level: loud\n")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{
			name: "missing root document",
			args: []string{
				"-root", filepath.Join(dir, "nope"),
				"-symbols-root", dir,
				"-out", filepath.Join(dir, "g.json"),
				"-dangling", filepath.Join(dir, "d.json"),
			},
			want: 1,
		},
		{
			name: "explicit config missing",
			args: []string{"-config", filepath.Join(dir, "absent.yaml")},
			want: 1,
		},
		{
			name: "invalid config",
			args: []string{"-config", filepath.Join(dir, "bad.yaml")},
			want: 1,
		},
		{
			name: "unknown flag",
			args: []string{"-bogus"},
			want: 2,
		},
		{
			name: "unknown command",
			args: []string{"publish"},
			want: 2,
		},
		{
			name: "serve without graph",
			args: []string{"serve", "-out", filepath.Join(dir, "absent.json")},
			want: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := run(tc.args, &bytes.Buffer{}); got != tc.want {
				t.Errorf("run(%v) = %d, want %d", tc.args, got, tc.want)
			}
		})
	}
}

package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MrWong99/rulegraph/internal/infer"
)

// Dedupe drops repeated (term, referencedBy) pairs, keeping the first
// occurrence and the original order.
func Dedupe(ds []infer.Dangling) []infer.Dangling {
	type key struct{ term, by string }
	seen := make(map[key]struct{}, len(ds))
	out := make([]infer.Dangling, 0, len(ds))
	for _, d := range ds {
		k := key{d.Term, d.ReferencedBy}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	return out
}

// SaveDangling atomically writes the de-duplicated report to path and
// returns the number of records written.
func SaveDangling(path string, ds []infer.Dangling) (int, error) {
	out := Dedupe(ds)
	err := writeAtomic(path, func(w io.Writer) error { return encodeJSON(w, out) })
	if err != nil {
		return 0, fmt.Errorf("persist: save dangling report: %w", err)
	}
	return len(out), nil
}

// LoadDangling reads a report written by [SaveDangling]. A missing file
// yields an empty report.
func LoadDangling(path string) ([]infer.Dangling, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: read dangling report: %w", err)
	}
	defer f.Close()

	out, err := DecodeDangling(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return out, nil
}

// DecodeDangling reads a dangling reference report from r.
func DecodeDangling(r io.Reader) ([]infer.Dangling, error) {
	var out []infer.Dangling
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: dangling report: %w", ErrMalformed, err)
	}
	return out, nil
}

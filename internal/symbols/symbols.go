// Package symbols builds the lookup table from exported game-logic symbol
// names to their source location ("<path>#<symbol>").
//
// The scan is a regular-expression pass over TypeScript sources: `export function Name(`
// and `export const Name =`. No parsing or type resolution takes place.
package symbols

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// Lookup resolves a symbol name to a location reference.
type Lookup interface {
	// Lookup returns the location of symbol and whether it exists.
	Lookup(symbol string) (string, bool)
}

// Compile-time assertion that Index satisfies the Lookup interface.
var _ Lookup = Index(nil)

// Index maps symbol names to "<path>#<symbol>" references.
// It is read-only after [Scan] returns and safe for concurrent lookups.
type Index map[string]string

// Lookup implements [Lookup.Lookup].
func (ix Index) Lookup(symbol string) (string, bool) {
	loc, ok := ix[symbol]
	return loc, ok
}

// DefaultPatterns selects the game-logic sources when none are configured.
var DefaultPatterns = []string{"app/domain/**/*.ts"}

// maxConcurrentReads bounds the number of files read in parallel.
const maxConcurrentReads = 8

var (
	exportFuncRe  = regexp.MustCompile(`export\s+(?:async\s+)?function\s+([A-Za-z0-9_]+)\s*[<(]`)
	exportConstRe = regexp.MustCompile(`export\s+const\s+([A-Za-z0-9_]+)\s*[=:]`)
)

// fileExports holds the symbols declared by one source file.
type fileExports struct {
	path   string
	funcs  []string
	consts []string
}

// Scan builds an [Index] from every file under root matching any of the
// doublestar patterns (e.g. "app/domain/**/*.ts"). Paths in the index are
// relative to root with forward slashes.
//
// Files are read concurrently, but precedence does not depend on scheduling:
// exported functions win over exported constants of the same name, and
// within each category the first file in lexical path order wins.
func Scan(ctx context.Context, root string, patterns []string) (Index, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	fsys := os.DirFS(root)

	seen := make(map[string]struct{})
	var paths []string
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("symbols: invalid pattern %q", p)
		}
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("symbols: glob %q: %w", p, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	slices.Sort(paths)

	results := make([]fileExports, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return fmt.Errorf("symbols: read %q: %w", p, err)
			}
			results[i] = parseExports(p, string(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildIndex(results), nil
}

// FromSource builds an [Index] from in-memory sources keyed by path, applying
// the same precedence rules as [Scan].
func FromSource(files map[string]string) Index {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	results := make([]fileExports, 0, len(paths))
	for _, p := range paths {
		results = append(results, parseExports(p, files[p]))
	}
	return buildIndex(results)
}

func parseExports(path, src string) fileExports {
	fe := fileExports{path: path}
	for _, m := range exportFuncRe.FindAllStringSubmatch(src, -1) {
		fe.funcs = append(fe.funcs, m[1])
	}
	for _, m := range exportConstRe.FindAllStringSubmatch(src, -1) {
		fe.consts = append(fe.consts, m[1])
	}
	return fe
}

func buildIndex(files []fileExports) Index {
	ix := make(Index)
	for _, f := range files {
		for _, sym := range f.funcs {
			if _, ok := ix[sym]; !ok {
				ix[sym] = f.path + "#" + sym
			}
		}
	}
	for _, f := range files {
		for _, sym := range f.consts {
			if _, ok := ix[sym]; !ok {
				ix[sym] = f.path + "#" + sym
			}
		}
	}
	return ix
}

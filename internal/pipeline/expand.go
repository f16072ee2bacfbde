package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchOptions control a Matcher run.
type MatchOptions struct {
	// Cwd is the base for relative patterns.
	Cwd string
	// Dot lets wildcards match dotfiles and dot directories.
	Dot bool
	// Absolute requests absolute result paths.
	Absolute bool
	// Ignore lists patterns whose matches are dropped.
	Ignore []string
}

// Matcher expands glob patterns into file paths. Patterns prefixed with
// "!" exclude matches of the other patterns.
type Matcher interface {
	Match(ctx context.Context, patterns []string, opts MatchOptions) ([]string, error)
}

// DoublestarMatcher matches patterns against the local filesystem.
type DoublestarMatcher struct{}

// Match returns the files matched by the positive patterns and by none of
// the negative or ignore patterns, in no particular order.
func (DoublestarMatcher) Match(ctx context.Context, patterns []string, opts MatchOptions) ([]string, error) {
	var positive, negative []string
	for _, p := range patterns {
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			negative = append(negative, neg)
			continue
		}
		positive = append(positive, p)
	}
	negative = append(negative, opts.Ignore...)

	seen := make(map[string]bool)
	var out []string
	for _, p := range positive {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !path.IsAbs(p) {
			p = path.Join(opts.Cwd, p)
		}
		base, rest := doublestar.SplitPattern(p)
		fsys := prunedFS{
			FS:     os.DirFS(base),
			base:   base,
			cwd:    opts.Cwd,
			dot:    opts.Dot || namesDot(rest),
			ignore: opts.Ignore,
		}
		matches, err := doublestar.Glob(fsys, rest, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", p, err)
		}
		for _, m := range matches {
			abs := path.Join(base, m)
			if seen[abs] || excluded(abs, opts.Cwd, negative) {
				continue
			}
			seen[abs] = true
			if opts.Absolute {
				out = append(out, abs)
			} else {
				out = append(out, relativeTo(opts.Cwd, abs))
			}
		}
	}
	return out, nil
}

// prunedFS hides dot entries and ignored entries from directory listings
// so the walk never descends into them. A directory is hidden when an
// ignore pattern ending in "/**" covers everything below it.
type prunedFS struct {
	fs.FS
	base   string
	cwd    string
	dot    bool
	ignore []string
}

func (p prunedFS) ReadDir(name string) ([]fs.DirEntry, error) {
	entries, err := fs.ReadDir(p.FS, name)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(entries, func(e fs.DirEntry) bool {
		if !p.dot && strings.HasPrefix(e.Name(), ".") {
			return true
		}
		abs := path.Join(p.base, name, e.Name())
		if e.IsDir() {
			return coveredDir(abs, p.cwd, p.ignore)
		}
		return excluded(abs, p.cwd, p.ignore)
	}), nil
}

func coveredDir(abs, cwd string, ignore []string) bool {
	rel := relativeTo(cwd, abs)
	for _, n := range ignore {
		prefix, ok := strings.CutSuffix(n, "/**")
		if !ok {
			continue
		}
		target := rel
		if path.IsAbs(prefix) {
			target = abs
		}
		if ok, _ := doublestar.Match(prefix, target); ok {
			return true
		}
	}
	return false
}

// excluded matches absolute patterns against the absolute path and
// relative ones against the path relative to cwd.
func excluded(abs, cwd string, negative []string) bool {
	rel := relativeTo(cwd, abs)
	for _, n := range negative {
		target := rel
		if path.IsAbs(n) {
			target = abs
		}
		if ok, _ := doublestar.Match(n, target); ok {
			return true
		}
	}
	return false
}

func relativeTo(dir, abs string) string {
	if rel, ok := strings.CutPrefix(abs, strings.TrimSuffix(dir, "/")+"/"); ok {
		return rel
	}
	return abs
}

// namesDot reports whether a pattern spells out a dot segment itself.
func namesDot(pattern string) bool {
	return strings.HasPrefix(pattern, ".") || strings.Contains(pattern, "/.")
}

// expand matches the resolved patterns of a call site. Matches under
// node_modules and dotfiles are left out unless the call is exhaustive.
// The importing file is never part of its own result.
func (t *Transformer) expand(ctx context.Context, site *CallSite, id string) ([]string, error) {
	cwd := CommonBase(site.Resolved)
	if cwd == "" {
		cwd = t.root
	}
	patterns := make([]string, len(site.Resolved))
	for i, g := range site.Resolved {
		patterns[i] = g.Pattern()
	}

	opts := MatchOptions{Cwd: cwd, Dot: site.Options.Exhaustive, Absolute: true}
	if !site.Options.Exhaustive {
		opts.Ignore = []string{path.Join(cwd, "**/node_modules/**")}
	}
	files, err := t.matcher.Match(ctx, patterns, opts)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", strings.Join(site.Globs, ", "), err)
	}

	files = slices.DeleteFunc(files, func(f string) bool { return f == id })
	slices.Sort(files)
	return slices.Compact(files), nil
}

package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Resolver resolves a module specifier, typically an alias, for the
// importing module. A root-anchored result is accepted as a glob base.
type Resolver interface {
	ResolveID(ctx context.Context, specifier, importer string) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, specifier, importer string) (string, error)

func (f ResolverFunc) ResolveID(ctx context.Context, specifier, importer string) (string, error) {
	return f(ctx, specifier, importer)
}

// ResolvedGlob is a pattern anchored to the project root or the caller's
// directory. Resolved never carries the "!" prefix.
type ResolvedGlob struct {
	Original string
	Resolved string
	Negated  bool
}

// Pattern returns the resolved pattern with its negation marker restored.
func (g ResolvedGlob) Pattern() string {
	if g.Negated {
		return "!" + g.Resolved
	}
	return g.Resolved
}

// globResolver anchors the patterns of one file.
type globResolver struct {
	root     string
	dir      string
	importer string
	resolver Resolver
}

// resolveGlob resolves g.Original unless g was resolved before, in which
// case it is returned as is. Author input is always read relative to the
// root, even when it happens to start with the root's own path.
func (r *globResolver) resolveGlob(ctx context.Context, g ResolvedGlob, pos int) (ResolvedGlob, error) {
	if g.Resolved != "" {
		return g, nil
	}
	return r.resolve(ctx, g.Original, pos)
}

// resolve anchors one pattern as written by the author:
//
//	/x   -> <root>/x
//	./x  -> <dir>/x
//	../x -> <dir>/../x
//	**x  -> unchanged
//
// Anything else goes through the Resolver.
func (r *globResolver) resolve(ctx context.Context, glob string, pos int) (ResolvedGlob, error) {
	out := ResolvedGlob{Original: glob}
	if strings.HasPrefix(glob, "!") {
		out.Negated = true
		glob = glob[1:]
	}

	switch {
	case strings.HasPrefix(glob, "/"):
		out.Resolved = path.Join(r.root, glob[1:])
	case strings.HasPrefix(glob, "./"):
		out.Resolved = path.Join(r.dir, glob[2:])
	case strings.HasPrefix(glob, "../"):
		out.Resolved = path.Join(r.dir, glob)
	case strings.HasPrefix(glob, "**"):
		out.Resolved = glob
	case r.resolver == nil:
		return out, callError(KindPathForm, pos, "pattern must start with \".\" or \"/\" (relative to project root) or alias path")
	default:
		id, err := r.resolver.ResolveID(ctx, glob, r.importer)
		if err != nil {
			return out, fmt.Errorf("resolve %s: %w", glob, err)
		}
		if !strings.HasPrefix(id, "/") {
			return out, callError(KindPathForm, pos, "Invalid glob: %s. It must start with '/' or './'", glob)
		}
		out.Resolved = id
	}
	return out, nil
}

// CommonBase returns the deepest directory shared by the static prefixes
// of all non-negated patterns, or "" when they share nothing but "/" or a
// pattern has no absolute base.
func CommonBase(globs []ResolvedGlob) string {
	var common []string
	seen := false
	for _, g := range globs {
		if g.Negated {
			continue
		}
		base, _ := doublestar.SplitPattern(g.Resolved)
		if !strings.HasPrefix(base, "/") {
			return ""
		}
		segs := strings.Split(strings.TrimSuffix(base, "/"), "/")
		if !seen {
			common = segs
			seen = true
			continue
		}
		n := 0
		for n < len(common) && n < len(segs) && common[n] == segs[n] {
			n++
		}
		common = common[:n]
	}
	if len(common) <= 1 {
		return ""
	}
	return strings.Join(common, "/")
}

// IsVirtualModule reports whether id has no directory context.
func IsVirtualModule(id string) bool {
	return strings.HasPrefix(id, "virtual:") || strings.HasPrefix(id, "\x00") || !strings.Contains(id, "/")
}

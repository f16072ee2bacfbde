package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/DeusData/importglob/internal/edit"
	"github.com/DeusData/importglob/internal/expr"
	"github.com/DeusData/importglob/internal/parser"
)

// ExpressionSource reads call expressions from one parsed module.
type ExpressionSource interface {
	ExpressionAt(offset int) (*expr.Node, error)
	Close()
}

// Parser opens a module for expression reads.
type Parser interface {
	Open(id string, source []byte) (ExpressionSource, error)
}

// TreeSitterParser parses modules with the JavaScript and TypeScript grammars.
type TreeSitterParser struct{}

func (TreeSitterParser) Open(id string, source []byte) (ExpressionSource, error) {
	return parser.Open(id, source)
}

// Config configures a Transformer.
type Config struct {
	// Root is the absolute project root.
	Root string
	// Takeover also rewrites glob, globEager and globEagerDefault calls.
	Takeover bool
	// RestoreQueryExtension appends "&lang.<ext>" to queried imports.
	RestoreQueryExtension bool
	// IdentifierPrefix prefixes eager import bindings.
	IdentifierPrefix string

	// Resolver resolves patterns that are not anchored. When nil such
	// patterns are rejected.
	Resolver Resolver
	// Matcher defaults to DoublestarMatcher.
	Matcher Matcher
	// Parser defaults to TreeSitterParser.
	Parser Parser
}

// Transformer rewrites glob import calls. It is safe for concurrent use
// across files.
type Transformer struct {
	root                  string
	takeover              bool
	restoreQueryExtension bool
	prefix                string
	resolver              Resolver
	matcher               Matcher
	parser                Parser
}

// New creates a Transformer.
func New(cfg Config) *Transformer {
	t := &Transformer{
		root:                  strings.TrimSuffix(filepath.ToSlash(cfg.Root), "/"),
		takeover:              cfg.Takeover,
		restoreQueryExtension: cfg.RestoreQueryExtension,
		prefix:                cfg.IdentifierPrefix,
		resolver:              cfg.Resolver,
		matcher:               cfg.Matcher,
		parser:                cfg.Parser,
	}
	if t.root == "" {
		t.root = "/"
	}
	if t.prefix == "" {
		t.prefix = DefaultIdentifierPrefix
	}
	if t.matcher == nil {
		t.matcher = DoublestarMatcher{}
	}
	if t.parser == nil {
		t.parser = TreeSitterParser{}
	}
	return t
}

// Root returns the project root.
func (t *Transformer) Root() string { return t.root }

// Result is the outcome of transforming one module.
type Result struct {
	Code  string
	Calls []*CallSite
	// Globs lists the resolved patterns of all calls, for watch registration.
	Globs []string
	// Edits are the call replacements against the original offsets.
	Edits []edit.Edit
}

// Transform rewrites the glob import calls in code. It returns nil when
// the module has no call to rewrite. The first error aborts the whole
// module; no partial rewrite is returned.
func (t *Transformer) Transform(ctx context.Context, code []byte, id string) (*Result, error) {
	id = filepath.ToSlash(id)
	sites, err := t.Parse(code, id)
	if err != nil || len(sites) == 0 {
		return nil, err
	}

	dir := ""
	if !IsVirtualModule(id) {
		dir = path.Dir(id)
	}

	gens := make([]generated, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	for i, site := range sites {
		g.Go(func() error {
			if err := t.resolveSite(gctx, site, id, dir); err != nil {
				return err
			}
			files, err := t.expand(gctx, site, id)
			if err != nil {
				return err
			}
			site.Files = files
			slog.Debug("glob.expand", "file", id, "call", site.Ordinal, "globs", site.Globs, "files", len(files))

			gens[i], err = t.generate(site, dir)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buf := edit.New(code)
	var imports []string
	for _, gen := range gens {
		if err := buf.Overwrite(gen.start, gen.end, gen.replacement); err != nil {
			return nil, fmt.Errorf("transform %s: %w", id, err)
		}
		imports = append(imports, gen.imports...)
	}
	if len(imports) > 0 {
		buf.Prepend(strings.Join(imports, "\n") + "\n")
	}

	res := &Result{Code: buf.String(), Calls: sites, Edits: buf.Edits()}
	for _, site := range sites {
		for _, r := range site.Resolved {
			res.Globs = append(res.Globs, r.Pattern())
		}
	}
	return res, nil
}

// Parse locates and validates the call sites of a module without
// resolving or expanding them. Calls still being typed are skipped.
func (t *Transformer) Parse(code []byte, id string) ([]*CallSite, error) {
	var matches []Match
	for _, m := range Locate(code) {
		if m.Kind.Accepts(t.takeover) {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}

	doc, err := t.parser.Open(id, code)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}
	defer doc.Close()

	var sites []*CallSite
	for _, m := range matches {
		node, err := doc.ExpressionAt(m.Start)
		switch {
		case errors.Is(err, expr.ErrNotCode), errors.Is(err, expr.ErrUnterminatedString):
			slog.Debug("glob.skip", "file", id, "pos", m.Start, "reason", err)
			continue
		case err != nil:
			var syn *expr.SyntaxError
			if errors.As(err, &syn) {
				return nil, syntaxError(m.Start, err)
			}
			return nil, fmt.Errorf("parse %s: %w", id, err)
		}
		site, err := extract(m, node)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// resolveSite anchors the patterns of a call concurrently. Patterns the
// site already carries resolved are kept.
func (t *Transformer) resolveSite(ctx context.Context, site *CallSite, id, dir string) error {
	if dir == "" && site.IsRelative {
		return callError(KindPathForm, site.Start, "In virtual modules, all globs must start with '/'")
	}
	base := dir
	if base == "" {
		base = t.root
	}
	r := &globResolver{root: t.root, dir: base, importer: id, resolver: t.resolver}

	resolved := make([]ResolvedGlob, len(site.Globs))
	if len(site.Resolved) == len(site.Globs) {
		copy(resolved, site.Resolved)
	} else {
		for i, glob := range site.Globs {
			resolved[i] = ResolvedGlob{Original: glob}
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range resolved {
		g.Go(func() error {
			var err error
			resolved[i], err = r.resolveGlob(gctx, resolved[i], site.Start)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	site.Resolved = resolved
	return nil
}

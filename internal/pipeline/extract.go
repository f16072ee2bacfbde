package pipeline

import (
	"github.com/DeusData/importglob/internal/expr"
)

// CallSite is one recognized glob import call.
type CallSite struct {
	Kind CallKind
	// Start and End bound the call expression; End is exclusive.
	Start int
	End   int
	// Ordinal is the candidate index used for generated identifiers.
	Ordinal int
	Globs   []string
	Options Options

	// Resolved holds the anchored form of each glob, in order.
	Resolved []ResolvedGlob
	// IsRelative reports whether every glob started with "." or "!".
	IsRelative bool
	// Files are the matched files, sorted.
	Files []string
}

// extract validates a parsed call expression and returns its call site.
func extract(m Match, node *expr.Node) (*CallSite, error) {
	pos := m.Start
	if node.Type != expr.CallExpression {
		return nil, callError(KindArity, pos, "Expect CallExpression, got %s", node.Type)
	}
	if n := len(node.Arguments); n < 1 || n > 2 {
		return nil, callError(KindArity, pos, "Expected 1-2 arguments, but got %d", n)
	}

	globs, err := extractGlobs(node.Arguments[0], pos)
	if err != nil {
		return nil, err
	}

	var optArg *expr.Node
	if len(node.Arguments) == 2 {
		optArg = node.Arguments[1]
	}
	opts, err := parseOptions(optArg, pos)
	if err != nil {
		return nil, err
	}

	switch m.Kind {
	case KindGlobEager:
		opts.Eager = true
	case KindGlobEagerDefault:
		opts.Eager = true
		opts.Export = "default"
	}

	return &CallSite{
		Kind:       m.Kind,
		Start:      node.Start,
		End:        node.End,
		Ordinal:    m.Ordinal,
		Globs:      globs,
		Options:    opts,
		IsRelative: isRelative(globs),
	}, nil
}

func extractGlobs(arg *expr.Node, pos int) ([]string, error) {
	switch arg.Type {
	case expr.ArrayExpression:
		globs := make([]string, 0, len(arg.Elements))
		for _, el := range arg.Elements {
			if el == nil {
				continue
			}
			s, err := globLiteral(el, pos)
			if err != nil {
				return nil, err
			}
			globs = append(globs, s)
		}
		return globs, nil
	case expr.Literal:
		s, err := globLiteral(arg, pos)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	default:
		return nil, callError(KindLiterality, pos, "Could only use literals")
	}
}

func globLiteral(n *expr.Node, pos int) (string, error) {
	if n.Type != expr.Literal {
		return "", callError(KindLiterality, pos, "Could only use literals")
	}
	s, ok := n.Value.(string)
	if !ok {
		return "", callError(KindType, pos, "Expected glob to be a string, but got %q", expr.TypeOf(n.Value))
	}
	return s, nil
}

// isRelative reports whether every glob is written relative to the caller.
// Empty globs count as not relative.
func isRelative(globs []string) bool {
	for _, g := range globs {
		if g == "" || (g[0] != '.' && g[0] != '!') {
			return false
		}
	}
	return true
}

package parser

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/importglob/internal/expr"
	"github.com/DeusData/importglob/internal/lang"
)

// Document is a parsed module that call-site expressions are read from.
// The whole file is parsed once; a call whose subtree carries errors is
// reparsed in isolation so that errors elsewhere in the file do not leak in.
type Document struct {
	ID     string
	Lang   lang.Language
	source []byte
	tree   *tree_sitter.Tree
	spec   *lang.LanguageSpec
}

// LanguageFor picks the grammar used for a module id. Unknown extensions,
// virtual ids and framework single-file components are parsed as TypeScript,
// which accepts plain JavaScript as well as type arguments.
func LanguageFor(id string) lang.Language {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	if l, ok := lang.LanguageForExtension(path.Ext(id)); ok {
		for _, s := range lang.ScriptLanguages() {
			if s == l {
				return l
			}
		}
	}
	return lang.TypeScript
}

// Open parses source as the module id. The caller must call Close.
func Open(id string, source []byte) (*Document, error) {
	l := LanguageFor(id)
	tree, err := Parse(l, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	return &Document{
		ID:     id,
		Lang:   l,
		source: source,
		tree:   tree,
		spec:   lang.ForLanguage(l),
	}, nil
}

// Close releases the syntax tree.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// Tree returns the underlying syntax tree.
func (d *Document) Tree() *tree_sitter.Tree {
	return d.tree
}

// ExpressionAt reads the expression starting at offset, which must be the
// first byte of an "import.meta.<verb>" call candidate.
//
// It returns expr.ErrNotCode when the candidate lies inside a string,
// template, regex or comment, expr.ErrUnterminatedString when the arguments
// contain a string literal that is still being typed, and *expr.SyntaxError
// when the arguments do not parse.
func (d *Document) ExpressionAt(offset int) (*expr.Node, error) {
	if offset < 0 || offset >= len(d.source) {
		return nil, d.syntaxError(len(d.source))
	}
	call, err := d.callAt(offset)
	if err != nil {
		return nil, err
	}
	if call != nil && !call.HasError() {
		c := &converter{source: d.source}
		return c.node(call), nil
	}
	return d.reparse(offset)
}

// callAt climbs from the leaf at offset to the call expression starting
// there. Reaching a literal or comment first means the candidate is text.
func (d *Document) callAt(offset int) (*tree_sitter.Node, error) {
	leaf := NodeAt(d.tree.RootNode(), uint(offset))
	for n := leaf; n != nil; n = n.Parent() {
		kind := n.Kind()
		if d.isCall(kind) && int(n.StartByte()) == offset {
			return n, nil
		}
		if d.isText(kind) {
			return nil, expr.ErrNotCode
		}
	}
	return nil, nil
}

func (d *Document) isCall(kind string) bool {
	if d.spec == nil {
		return kind == "call_expression"
	}
	return slices.Contains(d.spec.CallNodeTypes, kind)
}

func (d *Document) isText(kind string) bool {
	if d.spec == nil {
		return isComment(kind)
	}
	for _, k := range d.spec.LiteralNodeTypes {
		if k == kind {
			return true
		}
	}
	for _, k := range d.spec.CommentNodeTypes {
		if k == kind {
			return true
		}
	}
	return false
}

// reparse isolates the call text with the lexical scanner and parses it on
// its own, reporting the first error node as a syntax error.
func (d *Document) reparse(offset int) (*expr.Node, error) {
	paren := bytes.IndexByte(d.source[offset:], '(')
	if paren < 0 {
		return nil, d.syntaxError(len(d.source))
	}
	end, res := scanner{src: d.source}.code(offset+paren+1, ')')
	switch res {
	case scanUnterminatedString:
		return nil, expr.ErrUnterminatedString
	case scanEOF:
		return nil, d.syntaxError(len(d.source))
	case scanUnbalanced:
		return nil, d.syntaxError(end)
	}

	snippet := d.source[offset:end]
	tree, err := Parse(d.Lang, snippet)
	if err != nil {
		return nil, fmt.Errorf("reparse %s: %w", d.ID, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := firstError(root); bad != nil {
		return nil, d.syntaxError(offset + int(bad.StartByte()))
	}

	c := &converter{source: snippet, base: offset}
	for n := NodeAt(root, 0); n != nil; n = n.Parent() {
		if d.isCall(n.Kind()) && n.StartByte() == 0 {
			return c.node(n), nil
		}
	}
	top := outermostExpression(root)
	if top == nil {
		return nil, d.syntaxError(offset)
	}
	return c.node(top), nil
}

func (d *Document) syntaxError(pos int) *expr.SyntaxError {
	line, col := expr.Position(d.source, pos)
	return &expr.SyntaxError{Msg: "Unexpected token", Pos: pos, Line: line, Col: col}
}

// firstError returns the error or missing node with the smallest offset.
func firstError(root *tree_sitter.Node) *tree_sitter.Node {
	if !root.HasError() {
		return nil
	}
	var found *tree_sitter.Node
	Walk(root, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// outermostExpression returns the expression of the first statement.
func outermostExpression(root *tree_sitter.Node) *tree_sitter.Node {
	stmts := namedChildren(root)
	if len(stmts) == 0 {
		return nil
	}
	n := stmts[0]
	if n.Kind() == "expression_statement" {
		if inner := namedChildren(n); len(inner) > 0 {
			return inner[0]
		}
	}
	return n
}

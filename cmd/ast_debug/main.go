package main

import (
	"fmt"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/importglob/internal/expr"
	"github.com/DeusData/importglob/internal/parser"
	"github.com/DeusData/importglob/internal/pipeline"
)

func printAST(node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	marker := ""
	if node.IsError() || node.IsMissing() {
		marker = " !"
	}
	fmt.Printf("%s%s [%d,%d)%s %q\n", prefix, node.Kind(), node.StartByte(), node.EndByte(), marker, text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(node.Child(i), source, indent+1)
	}
}

func printExpr(n *expr.Node, indent int) {
	if n == nil {
		return
	}
	prefix := strings.Repeat("  ", indent)
	switch n.Type {
	case expr.Literal:
		fmt.Printf("%s%s [%d,%d) %s\n", prefix, n.Type, n.Start, n.End, expr.String(n.Value))
	case expr.Identifier:
		fmt.Printf("%s%s [%d,%d) %s\n", prefix, n.Type, n.Start, n.End, n.Name)
	default:
		fmt.Printf("%s%s [%d,%d)\n", prefix, n.Type, n.Start, n.End)
	}
	printExpr(n.Callee, indent+1)
	for _, a := range n.Arguments {
		printExpr(a, indent+1)
	}
	for _, e := range n.Elements {
		printExpr(e, indent+1)
	}
	printExpr(n.Argument, indent+1)
	for _, p := range n.Properties {
		fmt.Printf("%s  Property spread=%v computed=%v\n", prefix, p.Spread, p.Computed)
		printExpr(p.Key, indent+2)
		printExpr(p.Value, indent+2)
	}
}

// ast_debug prints the syntax tree of each glob import call in a file
// together with the converted argument tree.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ast_debug <file> [--tree]")
		os.Exit(2)
	}
	file := os.Args[1]
	full := len(os.Args) > 2 && os.Args[2] == "--tree"

	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	doc, err := parser.Open(file, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer doc.Close()

	fmt.Printf("=== %s (%s) ===\n", file, doc.Lang)
	if full {
		printAST(doc.Tree().RootNode(), source, 0)
	}

	for _, m := range pipeline.Locate(source) {
		line, col := expr.Position(source, m.Start)
		fmt.Printf("\n--- #%d %s at %d (%d:%d) ---\n", m.Ordinal, m.Kind, m.Start, line, col)

		leaf := parser.NodeAt(doc.Tree().RootNode(), uint(m.Start))
		for n := leaf; n != nil; n = n.Parent() {
			if n.Kind() == "call_expression" {
				printAST(n, source, 1)
				break
			}
		}

		node, err := doc.ExpressionAt(m.Start)
		if err != nil {
			fmt.Printf("  converted: error: %v\n", err)
			continue
		}
		printExpr(node, 1)
	}
}

package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/importglob/internal/expr"
)

// estreeTypes maps tree-sitter JavaScript/TypeScript node kinds to ESTree
// type names for the kinds that have no dedicated conversion.
var estreeTypes = map[string]expr.Type{
	"arrow_function":           "ArrowFunctionExpression",
	"function":                 "FunctionExpression",
	"function_expression":      "FunctionExpression",
	"generator_function":       "FunctionExpression",
	"class":                    "ClassExpression",
	"binary_expression":        "BinaryExpression",
	"unary_expression":         "UnaryExpression",
	"update_expression":        "UpdateExpression",
	"assignment_expression":    "AssignmentExpression",
	"ternary_expression":       "ConditionalExpression",
	"new_expression":           "NewExpression",
	"await_expression":         "AwaitExpression",
	"sequence_expression":      "SequenceExpression",
	"subscript_expression":     "MemberExpression",
	"this":                     "ThisExpression",
	"super":                    "Super",
	"as_expression":            "TSAsExpression",
	"satisfies_expression":     "TSSatisfiesExpression",
	"non_null_expression":      "TSNonNullExpression",
	"type_assertion":           "TSTypeAssertion",
	"jsx_element":              "JSXElement",
	"jsx_self_closing_element": "JSXElement",
}

// converter turns a tree-sitter subtree into the generic expression tree.
// base is added to every byte offset, for trees parsed from a snippet.
type converter struct {
	source []byte
	base   int
}

func (c *converter) span(n *tree_sitter.Node) (int, int) {
	return c.base + int(n.StartByte()), c.base + int(n.EndByte())
}

func (c *converter) text(n *tree_sitter.Node) string {
	return NodeText(n, c.source)
}

func (c *converter) node(n *tree_sitter.Node) *expr.Node {
	start, end := c.span(n)
	out := &expr.Node{Start: start, End: end}

	switch n.Kind() {
	case "parenthesized_expression":
		if inner := namedChildren(n); len(inner) == 1 {
			return c.node(inner[0])
		}
		out.Type = "SequenceExpression"
	case "string":
		out.Type = expr.Literal
		out.Value = decodeString(c.text(n))
	case "number":
		out.Type = expr.Literal
		out.Value = decodeNumber(c.text(n))
	case "true", "false":
		out.Type = expr.Literal
		out.Value = n.Kind() == "true"
	case "null":
		out.Type = expr.Literal
		out.Value = nil
	case "regex":
		out.Type = expr.Literal
		out.Value = decodeRegex(c.text(n))
	case "identifier", "undefined", "property_identifier", "shorthand_property_identifier":
		out.Type = expr.Identifier
		out.Name = c.text(n)
	case "template_string":
		out.Type = expr.TemplateLiteral
	case "array":
		out.Type = expr.ArrayExpression
		for _, child := range namedChildren(n) {
			out.Elements = append(out.Elements, c.node(child))
		}
	case "object":
		out.Type = expr.ObjectExpression
		for _, child := range namedChildren(n) {
			out.Properties = append(out.Properties, c.property(child))
		}
	case "spread_element":
		out.Type = expr.SpreadElement
		if inner := namedChildren(n); len(inner) > 0 {
			out.Argument = c.node(inner[0])
		}
	case "call_expression":
		out.Type = expr.CallExpression
		if fn := n.ChildByFieldName("function"); fn != nil {
			out.Callee = c.node(fn)
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			for _, arg := range namedChildren(args) {
				out.Arguments = append(out.Arguments, c.node(arg))
			}
		}
	case "member_expression":
		out.Type = expr.MemberExpression
		if prop := n.ChildByFieldName("property"); prop != nil {
			out.Name = c.text(prop)
		}
		if obj := n.ChildByFieldName("object"); obj != nil {
			out.Callee = c.node(obj)
		}
	case "meta_property", "import":
		out.Type = expr.MetaProperty
		out.Name = c.text(n)
	default:
		out.Type = estreeType(n.Kind())
	}
	return out
}

func (c *converter) property(n *tree_sitter.Node) *expr.Property {
	start, end := c.span(n)
	p := &expr.Property{Start: start, End: end}

	switch n.Kind() {
	case "spread_element":
		p.Spread = true
		if inner := namedChildren(n); len(inner) > 0 {
			p.Value = c.node(inner[0])
		}
	case "shorthand_property_identifier":
		id := c.node(n)
		p.Key = id
		p.Value = id
	case "pair":
		if key := n.ChildByFieldName("key"); key != nil {
			if key.Kind() == "computed_property_name" {
				p.Computed = true
				if inner := namedChildren(key); len(inner) > 0 {
					key = inner[0]
				}
			}
			p.Key = c.node(key)
		}
		if value := n.ChildByFieldName("value"); value != nil {
			p.Value = c.node(value)
		}
	default:
		// methods, getters and setters
		if name := n.ChildByFieldName("name"); name != nil {
			p.Key = c.node(name)
		}
		p.Value = &expr.Node{Type: "FunctionExpression", Start: start, End: end}
	}
	return p
}

// namedChildren returns the named children of n, skipping comments.
func namedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		if child == nil || isComment(child.Kind()) {
			continue
		}
		out = append(out, child)
	}
	return out
}

func isComment(kind string) bool {
	return kind == "comment" || kind == "html_comment"
}

// estreeType returns the ESTree name for a tree-sitter kind, falling back
// to the CamelCase form of the kind.
func estreeType(kind string) expr.Type {
	if t, ok := estreeTypes[kind]; ok {
		return t
	}
	var b strings.Builder
	for _, part := range strings.Split(kind, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return expr.Type(b.String())
}

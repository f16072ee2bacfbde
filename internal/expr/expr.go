// Package expr defines the generic expression tree produced for glob import
// call sites. Node types follow ESTree naming so diagnostics read the same
// way regardless of the parser that produced the tree.
package expr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Type is an ESTree node type name.
type Type string

const (
	Literal          Type = "Literal"
	Identifier       Type = "Identifier"
	ArrayExpression  Type = "ArrayExpression"
	ObjectExpression Type = "ObjectExpression"
	TemplateLiteral  Type = "TemplateLiteral"
	SpreadElement    Type = "SpreadElement"
	CallExpression   Type = "CallExpression"
	MemberExpression Type = "MemberExpression"
	MetaProperty     Type = "MetaProperty"
)

// Node is one expression. Only the fields relevant to Type are set.
// Start and End are byte offsets into the original source, End exclusive.
type Node struct {
	Type  Type
	Start int
	End   int

	// Name is the identifier name for Identifier nodes.
	Name string
	// Value holds the literal value: string, float64, bool, nil, BigInt or RegExp.
	Value any

	Elements   []*Node     // ArrayExpression
	Properties []*Property // ObjectExpression
	Argument   *Node       // SpreadElement

	Callee    *Node   // CallExpression
	Arguments []*Node // CallExpression
}

// Property is one member of an object literal. Spread properties carry
// the spread operand in Value and have no Key.
type Property struct {
	Start    int
	End      int
	Spread   bool
	Computed bool
	Key      *Node
	Value    *Node
}

// BigInt is a bigint literal value, stored as its decimal source digits.
type BigInt string

// RegExp is a regular expression literal value.
type RegExp struct {
	Pattern string
	Flags   string
}

// TypeOf returns the JavaScript typeof name of a literal value.
func TypeOf(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case BigInt:
		return "bigint"
	case nil, RegExp:
		return "object"
	default:
		return "undefined"
	}
}

// String renders a literal value the way JavaScript's String() would.
func String(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case BigInt:
		return string(x)
	case RegExp:
		return "/" + x.Pattern + "/" + x.Flags
	case nil:
		return "null"
	default:
		return fmt.Sprint(x)
	}
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

var (
	// ErrUnterminatedString reports a call site whose arguments contain a
	// string literal that is still being typed.
	ErrUnterminatedString = errors.New("unterminated string constant")
	// ErrNotCode reports a candidate located inside a string, template or comment.
	ErrNotCode = errors.New("candidate is not code")
)

// SyntaxError is a parse failure inside a call expression.
type SyntaxError struct {
	Msg  string
	Pos  int // byte offset of the failure
	Line int // 1-based
	Col  int // 0-based
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (%d:%d)", e.Msg, e.Line, e.Col)
}

// Position returns the 1-based line and 0-based column of a byte offset.
func Position(source []byte, offset int) (line, col int) {
	if offset > len(source) {
		offset = len(source)
	}
	line = 1
	lineStart := 0
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, offset - lineStart
}

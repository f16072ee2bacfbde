package pipeline

import (
	"strings"

	"github.com/DeusData/importglob/internal/expr"
)

// Options are the validated options of a call site.
type Options struct {
	Eager      bool
	Export     string
	Query      *Query
	As         string
	Exhaustive bool
}

// Query is either a raw query string or an ordered list of parameters
// taken from an object literal.
type Query struct {
	Raw    string
	Params []QueryParam
}

// QueryParam is one key of a query object. Value holds the literal value:
// string, float64, bool, nil, expr.BigInt or expr.RegExp.
type QueryParam struct {
	Key   string
	Value any
}

// knownOptions maps option names to their expected JavaScript types.
// "query" is validated separately.
var knownOptions = map[string]string{
	"as":         "string",
	"eager":      "boolean",
	"export":     "string",
	"exhaustive": "boolean",
}

// forceDefaultAs lists the "as" values that import the default export.
var forceDefaultAs = []string{"raw", "url"}

// String renders the query with a leading "?", or "" when empty.
func (q *Query) String() string {
	if q == nil {
		return ""
	}
	s := q.Raw
	if q.Params != nil {
		s = stringifyQuery(q.Params)
	}
	if s != "" && !strings.HasPrefix(s, "?") {
		s = "?" + s
	}
	return s
}

// parseOptions validates the second call argument.
func parseOptions(arg *expr.Node, pos int) (Options, error) {
	var opts Options
	hasAs := false
	if arg == nil {
		return opts, nil
	}
	if arg.Type != expr.ObjectExpression {
		return opts, callError(KindType, pos, "Expected the second argument o to be a object literal, but got %q", arg.Type)
	}

	for _, prop := range arg.Properties {
		if prop.Spread || prop.Computed || prop.Key == nil || prop.Key.Type != expr.Identifier {
			return opts, callError(KindLiterality, pos, "Could only use literals")
		}
		name := prop.Key.Name

		if name == "query" {
			q, err := parseQuery(prop.Value, pos)
			if err != nil {
				return opts, err
			}
			opts.Query = q
			continue
		}

		want, ok := knownOptions[name]
		if !ok {
			return opts, callError(KindSchema, pos, "Unknown options %s", name)
		}
		if prop.Value == nil || prop.Value.Type != expr.Literal {
			return opts, callError(KindLiterality, pos, "Could only use literals")
		}

		got := expr.TypeOf(prop.Value.Value)
		if got != want {
			return opts, callError(KindType, pos, "Expected the type of option %q to be %q, but got %q", name, want, got)
		}
		switch name {
		case "as":
			opts.As = prop.Value.Value.(string)
			hasAs = true
		case "export":
			opts.Export = prop.Value.Value.(string)
		case "eager":
			opts.Eager = prop.Value.Value.(bool)
		case "exhaustive":
			opts.Exhaustive = prop.Value.Value.(bool)
		}
	}

	// A present "as" key takes part in both rules, whatever its value.
	if !hasAs {
		return opts, nil
	}
	if forcesDefault(opts.As) {
		if opts.Export != "" && opts.Export != "default" {
			return opts, callError(KindSchema, pos, "Option \"export\" can only be \"default\" when \"as\" is %q, but got %q", opts.As, opts.Export)
		}
		opts.Export = "default"
	}
	if opts.Query != nil {
		return opts, callError(KindSchema, pos, "Options \"as\" and \"query\" cannot be used together")
	}
	opts.Query = &Query{Raw: opts.As}
	return opts, nil
}

func parseQuery(v *expr.Node, pos int) (*Query, error) {
	switch {
	case v != nil && v.Type == expr.ObjectExpression:
		q := &Query{Params: []QueryParam{}}
		for _, p := range v.Properties {
			if p.Spread || p.Computed || p.Key == nil || p.Key.Type != expr.Identifier ||
				p.Value == nil || p.Value.Type != expr.Literal {
				return nil, callError(KindLiterality, pos, "Could only use literals")
			}
			q.set(p.Key.Name, p.Value.Value)
		}
		return q, nil
	case v != nil && v.Type == expr.Literal:
		s, ok := v.Value.(string)
		if !ok {
			return nil, callError(KindType, pos, "Expected query to be a string, but got %q", expr.TypeOf(v.Value))
		}
		return &Query{Raw: s}, nil
	default:
		return nil, callError(KindLiterality, pos, "Could only use literals")
	}
}

// set assigns a parameter, keeping the position of the first occurrence
// of a repeated key.
func (q *Query) set(key string, value any) {
	for i := range q.Params {
		if q.Params[i].Key == key {
			q.Params[i].Value = value
			return
		}
	}
	q.Params = append(q.Params, QueryParam{Key: key, Value: value})
}

func forcesDefault(as string) bool {
	for _, v := range forceDefaultAs {
		if v == as {
			return true
		}
	}
	return false
}

package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a glob import failure.
type ErrorKind int

const (
	KindSyntax ErrorKind = iota
	KindArity
	KindLiterality
	KindType
	KindSchema
	KindPathForm
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindArity:
		return "arity"
	case KindLiterality:
		return "literality"
	case KindType:
		return "type"
	case KindSchema:
		return "schema"
	case KindPathForm:
		return "path-form"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// GlobError is a fatal error for the transform of one file. Pos is the byte
// offset of the offending call site.
type GlobError struct {
	Kind ErrorKind
	Msg  string
	Pos  int

	// Err is the underlying parser error for KindSyntax.
	Err error
}

func (e *GlobError) Error() string {
	switch e.Kind {
	case KindSyntax:
		return "SyntaxError: " + e.Msg
	case KindPathForm:
		return e.Msg
	default:
		return "Invalid glob import syntax: " + e.Msg
	}
}

func (e *GlobError) Unwrap() error { return e.Err }

func callError(kind ErrorKind, pos int, format string, args ...any) *GlobError {
	return &GlobError{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// syntaxError tags a parser error with the offset of its call site.
func syntaxError(pos int, err error) *GlobError {
	return &GlobError{Kind: KindSyntax, Msg: err.Error(), Pos: pos, Err: err}
}

// IsKind reports whether err is a *GlobError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ge *GlobError
	return errors.As(err, &ge) && ge.Kind == kind
}

package parser

import "bytes"

// scanResult is the outcome of a lexical scan over a call's argument list.
type scanResult int

const (
	scanClosed scanResult = iota
	scanUnterminatedString
	scanEOF
	scanUnbalanced
)

// scanner is a bracket matcher aware of strings, templates and comments.
// It does not recognize regular expression literals.
type scanner struct {
	src []byte
}

// code scans from i until the byte closing the current group at depth zero.
// On scanClosed the returned index is just past the closing byte; otherwise
// it is the offset where scanning stopped.
func (s scanner) code(i int, closing byte) (int, scanResult) {
	depth := 0
	for i < len(s.src) {
		c := s.src[i]
		switch {
		case c == '/' && i+1 < len(s.src) && s.src[i+1] == '/':
			for i < len(s.src) && s.src[i] != '\n' {
				i++
			}
			continue
		case c == '/' && i+1 < len(s.src) && s.src[i+1] == '*':
			end := indexFrom(s.src, i+2, "*/")
			if end < 0 {
				return len(s.src), scanEOF
			}
			i = end + 2
			continue
		case c == '\'' || c == '"':
			next, res := s.str(i)
			if res != scanClosed {
				return next, res
			}
			i = next
			continue
		case c == '`':
			next, res := s.template(i)
			if res != scanClosed {
				return next, res
			}
			i = next
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			if depth == 0 {
				if c == closing {
					return i + 1, scanClosed
				}
				return i, scanUnbalanced
			}
			depth--
		}
		i++
	}
	return len(s.src), scanEOF
}

// str scans a quoted string starting at the opening quote. A raw line break
// or end of input before the closing quote means the string is unterminated.
func (s scanner) str(i int) (int, scanResult) {
	quote := s.src[i]
	for j := i + 1; j < len(s.src); j++ {
		switch s.src[j] {
		case '\\':
			j++
		case quote:
			return j + 1, scanClosed
		case '\n', '\r':
			return j, scanUnterminatedString
		}
	}
	return len(s.src), scanUnterminatedString
}

func (s scanner) template(i int) (int, scanResult) {
	for j := i + 1; j < len(s.src); j++ {
		switch s.src[j] {
		case '\\':
			j++
		case '`':
			return j + 1, scanClosed
		case '$':
			if j+1 < len(s.src) && s.src[j+1] == '{' {
				next, res := s.code(j+2, '}')
				if res != scanClosed {
					return next, res
				}
				j = next - 1
			}
		}
	}
	return len(s.src), scanEOF
}

func indexFrom(src []byte, from int, sub string) int {
	if from > len(src) {
		return -1
	}
	i := bytes.Index(src[from:], []byte(sub))
	if i < 0 {
		return -1
	}
	return from + i
}

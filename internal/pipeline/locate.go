package pipeline

import "regexp"

// CallKind is the verb of a glob import call.
type CallKind string

const (
	KindImportGlob       CallKind = "importGlob"
	KindGlob             CallKind = "glob"
	KindGlobEager        CallKind = "globEager"
	KindGlobEagerDefault CallKind = "globEagerDefault"
)

var callRE = regexp.MustCompile(`\bimport\.meta\.(importGlob|globEagerDefault|globEager|glob)(?:<\w+>)?\s*\(`)

// Match is a candidate call site found by the lexical scan.
type Match struct {
	Kind CallKind
	// Start is the offset of "import.meta".
	Start int
	// ParenEnd is the offset just past the opening parenthesis.
	ParenEnd int
	// Ordinal is the index of the candidate among all candidates in the file.
	Ordinal int
}

// Locate scans code for candidate call sites in source order. Candidates
// inside strings and comments are not excluded here.
func Locate(code []byte) []Match {
	locs := callRE.FindAllSubmatchIndex(code, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for i, loc := range locs {
		matches = append(matches, Match{
			Kind:     CallKind(code[loc[2]:loc[3]]),
			Start:    loc[0],
			ParenEnd: loc[1],
			Ordinal:  i,
		})
	}
	return matches
}

// Accepts reports whether the call kind is rewritten in the given mode.
func (k CallKind) Accepts(takeover bool) bool {
	return k == KindImportGlob || takeover
}

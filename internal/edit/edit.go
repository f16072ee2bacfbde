// Package edit applies non-overlapping text replacements to a source buffer.
// Edits are recorded against the original offsets and applied in a single
// pass, so the order in which they are added does not affect the result.
package edit

import (
	"fmt"
	"sort"
	"strings"
)

// Edit replaces Source[Start:End] with Text.
type Edit struct {
	Start int
	End   int
	Text  string
}

// Buffer collects edits over an immutable source.
type Buffer struct {
	src    []byte
	prefix []string
	edits  []Edit
}

// New returns a Buffer over src.
func New(src []byte) *Buffer {
	return &Buffer{src: src}
}

// Overwrite records the replacement of src[start:end]. Ranges of recorded
// edits must not overlap.
func (b *Buffer) Overwrite(start, end int, text string) error {
	if start < 0 || end > len(b.src) || start > end {
		return fmt.Errorf("overwrite [%d,%d): out of range (len %d)", start, end, len(b.src))
	}
	for _, e := range b.edits {
		if start < e.End && e.Start < end {
			return fmt.Errorf("overwrite [%d,%d): overlaps [%d,%d)", start, end, e.Start, e.End)
		}
	}
	b.edits = append(b.edits, Edit{Start: start, End: end, Text: text})
	return nil
}

// Prepend adds text before the start of the source. Later calls end up
// in front of earlier ones.
func (b *Buffer) Prepend(text string) {
	b.prefix = append([]string{text}, b.prefix...)
}

// Edits returns the recorded edits sorted by start offset.
func (b *Buffer) Edits() []Edit {
	out := make([]Edit, len(b.edits))
	copy(out, b.edits)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// String returns the source with all edits applied.
func (b *Buffer) String() string {
	var sb strings.Builder
	sb.Grow(len(b.src))
	for _, p := range b.prefix {
		sb.WriteString(p)
	}
	pos := 0
	for _, e := range b.Edits() {
		sb.Write(b.src[pos:e.Start])
		sb.WriteString(e.Text)
		pos = e.End
	}
	sb.Write(b.src[pos:])
	return sb.String()
}

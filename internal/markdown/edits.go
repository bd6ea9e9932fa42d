package markdown

import (
	"errors"
	"fmt"
	"sort"
)

// Edit represents a targeted byte-range replacement.
//
// Start and End are byte offsets into the original source, with End exclusive.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// ApplyEdits applies non-overlapping byte-range edits to source.
//
// Edits are applied from the end of the source toward the beginning so earlier edits
// do not invalidate offsets of later ones. source is never modified.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return append([]byte(nil), source...), nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End > sorted[j].End
		}
		return sorted[i].Start > sorted[j].Start
	})

	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(source) {
			return nil, fmt.Errorf("invalid edit[%d]: range %d..%d out of bounds for %d bytes", i, e.Start, e.End, len(source))
		}
		if i > 0 && e.End > sorted[i-1].Start {
			return nil, errors.New("invalid edits: overlapping ranges")
		}
	}

	out := append([]byte(nil), source...)
	for _, e := range sorted {
		next := make([]byte, 0, len(out)-(e.End-e.Start)+len(e.Replacement))
		next = append(next, out[:e.Start]...)
		next = append(next, e.Replacement...)
		next = append(next, out[e.End:]...)
		out = next
	}
	return out, nil
}

// ReplaceLines replaces the half-open line range [start, end) of text with replacement,
// where lines are numbered as by SplitLines. replacement should end with a newline
// unless it is empty or lands at the very end of text.
func ReplaceLines(text string, start, end int, replacement string) (string, error) {
	offsets := LineOffsets(text)
	lineCount := len(offsets) - 1
	if start < 0 || end < start || end > lineCount {
		return "", fmt.Errorf("line range %d..%d out of bounds for %d lines", start, end, lineCount)
	}
	out, err := ApplyEdits([]byte(text), []Edit{{
		Start:       offsets[start],
		End:         offsets[end],
		Replacement: []byte(replacement),
	}})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

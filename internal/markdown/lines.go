package markdown

import (
	"regexp"
	"strings"
)

// atxHeading matches an ATX heading line: up to three spaces of indentation, one to six
// markers, then either end of line or whitespace and the title. A closing marker run is
// captured separately so it can be dropped from the title.
var atxHeading = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?(?:[ \t]+#+)?[ \t]*$`)

var setextUnderline = regexp.MustCompile(`^ {0,3}(?:=+|-+)[ \t]*$`)

// HeadingLine is an ATX heading found by a line scan.
type HeadingLine struct {
	Level int
	// Raw is the heading text with markers and any closing sequence removed.
	Raw  string
	Line int
}

// SplitLines splits text into lines. A trailing newline does not produce an empty final line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if strings.HasSuffix(text, "\n") {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// LineOffsets returns the byte offset at which each line starts, followed by len(text).
// It is the inverse of SplitLines: offsets[i]..offsets[i+1] spans line i and its newline.
func LineOffsets(text string) []int {
	lines := SplitLines(text)
	offsets := make([]int, 0, len(lines)+1)
	pos := 0
	for _, l := range lines {
		offsets = append(offsets, pos)
		pos += len(l) + 1
	}
	offsets = append(offsets, len(text))
	return offsets
}

// ParseHeadingLine reports whether line is an ATX heading.
func ParseHeadingLine(line string) (level int, raw string, ok bool) {
	m := atxHeading.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return 0, "", false
	}
	raw = m[2]
	// "## #" has only a closing run; "## ###" likewise.
	if strings.Trim(raw, "#") == "" {
		raw = ""
	}
	return len(m[1]), strings.TrimSpace(raw), true
}

// ScanHeadings returns the ATX headings of lines in document order.
//
// Lines inside fenced code blocks (``` and ~~~) are never headings.
func ScanHeadings(lines []string) []HeadingLine {
	fenced := FencedLines(lines)
	var out []HeadingLine
	for i, line := range lines {
		if fenced[i] {
			continue
		}
		if level, raw, ok := ParseHeadingLine(line); ok {
			out = append(out, HeadingLine{Level: level, Raw: raw, Line: i})
		}
	}
	return out
}

// LeadingHeadingEnd returns the index of the first line after a heading that opens
// lines, skipping leading blank lines. Both ATX headings and setext headings (one or
// more text lines over a = or - underline) are recognised.
func LeadingHeadingEnd(lines []string) (int, bool) {
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return 0, false
	}
	if _, _, ok := ParseHeadingLine(lines[i]); ok {
		return i + 1, true
	}
	if _, ok := OpenFence(lines[i]); ok {
		return 0, false
	}
	for j := i + 1; j < len(lines); j++ {
		line := strings.TrimRight(lines[j], "\r")
		if strings.TrimSpace(line) == "" {
			return 0, false
		}
		if setextUnderline.MatchString(line) {
			return j + 1, true
		}
	}
	return 0, false
}

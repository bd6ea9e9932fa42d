package markdown

import "strings"

// Fence is an open fenced code block: its marker character and run length.
type Fence struct {
	char byte
	n    int
}

// OpenFence reports whether line opens a fenced code block: up to three spaces of
// indentation, then three or more backticks or tildes. A backtick fence's info
// string may not contain backticks.
func OpenFence(line string) (Fence, bool) {
	rest, ok := trimIndent(strings.TrimRight(line, "\r"))
	if !ok {
		return Fence{}, false
	}
	c, n := fenceRun(rest)
	if n < 3 {
		return Fence{}, false
	}
	if c == '`' && strings.Contains(rest[n:], "`") {
		return Fence{}, false
	}
	return Fence{char: c, n: n}, true
}

// Closes reports whether line closes f: the same character, a run at least as
// long, and nothing but whitespace after it.
func (f Fence) Closes(line string) bool {
	rest, ok := trimIndent(strings.TrimRight(line, "\r"))
	if !ok {
		return false
	}
	c, n := fenceRun(rest)
	return n > 0 && c == f.char && n >= f.n && strings.TrimSpace(rest[n:]) == ""
}

// FencedLines marks the lines that belong to fenced code blocks, fence lines
// included. An unclosed fence runs to the end of lines.
func FencedLines(lines []string) []bool {
	fenced := make([]bool, len(lines))
	var open Fence
	inBlock := false
	for i, line := range lines {
		if inBlock {
			fenced[i] = true
			inBlock = !open.Closes(line)
			continue
		}
		if f, ok := OpenFence(line); ok {
			open, inBlock = f, true
			fenced[i] = true
		}
	}
	return fenced
}

// StripWrappingFence removes a fenced code block that wraps the whole of s, with or
// without an info string. Generation services often return a section as
// "```markdown\n...\n```". The opening fence must close on the last line and
// nowhere before it; anything else is returned unchanged.
func StripWrappingFence(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return s, false
	}
	f, ok := OpenFence(lines[0])
	if !ok {
		return s, false
	}
	last := len(lines) - 1
	for i := 1; i < last; i++ {
		if f.Closes(lines[i]) {
			return s, false
		}
	}
	if !f.Closes(lines[last]) {
		return s, false
	}

	inner := strings.Join(lines[1:last], "\n")
	return strings.Trim(inner, "\r\n"), true
}

// trimIndent drops up to three leading spaces. Four or more make an indented
// code line, which is never a fence.
func trimIndent(line string) (string, bool) {
	n := len(line) - len(strings.TrimLeft(line, " "))
	if n > 3 {
		return "", false
	}
	return line[n:], true
}

func fenceRun(line string) (byte, int) {
	if line == "" || (line[0] != '`' && line[0] != '~') {
		return 0, 0
	}
	c := line[0]
	n := 0
	for n < len(line) && line[n] == c {
		n++
	}
	return c, n
}

package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	require.Nil(t, SplitLines(""))
	require.Equal(t, []string{"a", "b"}, SplitLines("a\nb"))
	require.Equal(t, []string{"a", "b"}, SplitLines("a\nb\n"))
	require.Equal(t, []string{"a", ""}, SplitLines("a\n\n"))
}

func TestLineOffsets(t *testing.T) {
	require.Equal(t, []int{0, 2, 4}, LineOffsets("a\nb\n"))
	require.Equal(t, []int{0, 2, 3}, LineOffsets("a\nb"))
}

func TestParseHeadingLine(t *testing.T) {
	tests := []struct {
		line  string
		level int
		raw   string
		ok    bool
	}{
		{"# Title", 1, "Title", true},
		{"## Intro", 2, "Intro", true},
		{"### Closed ###", 3, "Closed", true},
		{"   #### Indented", 4, "Indented", true},
		{"###### Six", 6, "Six", true},
		{"####### Seven", 0, "", false},
		{"#NoSpace", 0, "", false},
		{"    # Code", 0, "", false},
		{"## ", 2, "", true},
		{"## C# notes", 2, "C# notes", true},
		{"## Intro\r", 2, "Intro", true},
		{"plain text", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			level, raw, ok := ParseHeadingLine(tt.line)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.level, level)
			require.Equal(t, tt.raw, raw)
		})
	}
}

func TestScanHeadings_SkipsFencedCode(t *testing.T) {
	lines := SplitLines("# Report\n\n```bash\n# not a heading\n```\n\n## Intro\n~~~\n## also not\n~~~\n## Details\n")
	got := ScanHeadings(lines)
	require.Len(t, got, 3)
	require.Equal(t, HeadingLine{Level: 1, Raw: "Report", Line: 0}, got[0])
	require.Equal(t, HeadingLine{Level: 2, Raw: "Intro", Line: 6}, got[1])
	require.Equal(t, HeadingLine{Level: 2, Raw: "Details", Line: 10}, got[2])
}

func TestScanHeadings_NestedFences(t *testing.T) {
	lines := SplitLines("## A\n````md\n```\n# inside code\n```\n````\n## B\nx\n")
	got := ScanHeadings(lines)
	require.Equal(t, []HeadingLine{
		{Level: 2, Raw: "A", Line: 0},
		{Level: 2, Raw: "B", Line: 6},
	}, got)
}

func TestLeadingHeadingEnd(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
		ok   bool
	}{
		{name: "atx", in: "## Intro\nbody", want: 1, ok: true},
		{name: "blank lines first", in: "\n\n# Intro\nbody", want: 3, ok: true},
		{name: "setext equals", in: "Intro\n=====\nbody\n### Sub", want: 2, ok: true},
		{name: "setext dashes with indent", in: "  Intro\n   ---  \nbody", want: 2, ok: true},
		{name: "multi-line setext", in: "Key\nFindings\n===\nbody", want: 3, ok: true},
		{name: "paragraph then atx", in: "text\n\n## Later", ok: false},
		{name: "fence", in: "```\nx\n---\n```", ok: false},
		{name: "empty", in: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LeadingHeadingEnd(SplitLines(tt.in))
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

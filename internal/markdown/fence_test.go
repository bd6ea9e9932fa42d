package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripWrappingFence(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		want     string
		stripped bool
	}{
		{name: "markdown tag", in: "```markdown\nX\n```", want: "X", stripped: true},
		{name: "no tag", in: "```\n## Intro\n\nBody\n```\n", want: "## Intro\n\nBody", stripped: true},
		{name: "tilde", in: "~~~md\nX\n~~~", want: "X", stripped: true},
		{name: "surrounding whitespace", in: "\n  ```markdown\nX\n```  \n", want: "X", stripped: true},
		{name: "longer closing fence", in: "```\nX\n`````", want: "X", stripped: true},
		{name: "crlf", in: "```markdown\r\nX\r\n```", want: "X", stripped: true},
		{name: "not wrapped", in: "Intro text\n```go\ncode\n```", want: "Intro text\n```go\ncode\n```", stripped: false},
		{name: "mismatched fence chars", in: "```\nX\n~~~", want: "```\nX\n~~~", stripped: false},
		{name: "single line", in: "```X```", want: "```X```", stripped: false},
		{name: "plain", in: "A2", want: "A2", stripped: false},
		{name: "two blocks", in: "```\ncode\n```\nmiddle\n```\nmore\n```", want: "```\ncode\n```\nmiddle\n```\nmore\n```", stripped: false},
		{name: "nested shorter fence", in: "````md\n```go\nx\n```\n````", want: "```go\nx\n```", stripped: true},
		{name: "closer with info string", in: "```\nX\n```go", want: "```\nX\n```go", stripped: false},
		{name: "indented code is no fence", in: "    ```\nX\n```", want: "    ```\nX\n```", stripped: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StripWrappingFence(tt.in)
			require.Equal(t, tt.stripped, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFencedLines(t *testing.T) {
	lines := SplitLines("## A\n````md\n```\n# inside\n```\n````\nafter\n~~~\n```\n~~~~ \ntail\n")
	require.Equal(t, []bool{false, true, true, true, true, true, false, true, true, true, false}, FencedLines(lines))

	// A closing line must match the opener: same character, at least as long, no trailing text.
	lines = SplitLines("```\n``\n~~~\n``` x\n```\nout\n")
	require.Equal(t, []bool{true, true, true, true, true, false}, FencedLines(lines))

	// Unclosed fences run to the end.
	require.Equal(t, []bool{false, true, true}, FencedLines(SplitLines("a\n~~~\n# b\n")))
}

func TestOpenFence(t *testing.T) {
	f, ok := OpenFence("   ~~~~ yaml")
	require.True(t, ok)
	require.True(t, f.Closes("~~~~~"))
	require.False(t, f.Closes("~~~"))
	require.False(t, f.Closes("````"))

	_, ok = OpenFence("``` a`b")
	require.False(t, ok)
	_, ok = OpenFence("~~~ a`b")
	require.True(t, ok)
	_, ok = OpenFence("``")
	require.False(t, ok)
}

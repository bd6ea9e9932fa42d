package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyEdits_SingleReplacement(t *testing.T) {
	src := []byte("## Intro\n\nA\n")
	idx := bytes.Index(src, []byte("A"))
	require.NotEqual(t, -1, idx)

	out, err := ApplyEdits(src, []Edit{{Start: idx, End: idx + 1, Replacement: []byte("A2")}})
	require.NoError(t, err)
	require.Equal(t, "## Intro\n\nA2\n", string(out))
	require.Equal(t, "## Intro\n\nA\n", string(src), "source must not be modified")
}

func TestApplyEdits_MultipleReplacementsAnyOrder(t *testing.T) {
	src := []byte("one two three")
	out, err := ApplyEdits(src, []Edit{
		{Start: 0, End: 3, Replacement: []byte("1")},
		{Start: 8, End: 13, Replacement: []byte("3")},
	})
	require.NoError(t, err)
	require.Equal(t, "1 two 3", string(out))
}

func TestApplyEdits_RejectsOverlappingEdits(t *testing.T) {
	_, err := ApplyEdits([]byte("abcdef"), []Edit{
		{Start: 1, End: 4, Replacement: []byte("X")},
		{Start: 3, End: 5, Replacement: []byte("Y")},
	})
	require.Error(t, err)
}

func TestApplyEdits_RejectsOutOfBounds(t *testing.T) {
	_, err := ApplyEdits([]byte("abc"), []Edit{{Start: 2, End: 9}})
	require.Error(t, err)
}

func TestReplaceLines(t *testing.T) {
	text := "## Intro\nA\n## Details\nB C\n"

	out, err := ReplaceLines(text, 1, 2, "A2\n")
	require.NoError(t, err)
	require.Equal(t, "## Intro\nA2\n## Details\nB C\n", out)

	out, err = ReplaceLines(text, 3, 4, "")
	require.NoError(t, err)
	require.Equal(t, "## Intro\nA\n## Details\n", out)

	_, err = ReplaceLines(text, 2, 9, "x")
	require.Error(t, err)
}

func TestReplaceLines_NoTrailingNewline(t *testing.T) {
	out, err := ReplaceLines("## Intro\nA", 1, 2, "A2")
	require.NoError(t, err)
	require.Equal(t, "## Intro\nA2", out)
}

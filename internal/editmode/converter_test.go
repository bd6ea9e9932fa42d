package editmode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToMarkdown(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"headings", "<h1>Title</h1><h3> Sub </h3>", "# Title\n\n### Sub"},
		{"bold both syntaxes", "<p><strong>a</strong> and <b>b</b></p>", "**a** and **b**"},
		{"italic both syntaxes", "<p><em>a</em> and <i>b</i></p>", "*a* and *b*"},
		{"ordered list flattened", "<ol><li>one</li><li>two</li></ol>", "- one\n- two"},
		{"unordered list", "<ul>\n<li>x</li>\n<li>y</li>\n</ul>", "- x\n- y"},
		{"paragraphs", "<p>first</p><p>second</p>", "first\n\nsecond"},
		{"line break", "<p>a<br>b</p>", "a\nb"},
		{"entities decoded", "<p>Fish &amp; Chips &lt;3</p>", "Fish & Chips <3"},
		{"other markup stripped", `<p><span class="x">kept</span> <a href="/u">link</a></p>`, "kept link"},
		{"no escaping", "<p>a*b_c</p>", "a*b_c"},
		{"newline runs collapse", "<p>a</p>\n\n\n\n<p>b</p>", "a\n\nb"},
		{"scripts dropped", "<p>a</p><script>alert(1)</script>", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMarkdown(tt.html)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestToMarkdown_ReportShape(t *testing.T) {
	in := `<h2>Market</h2><p>Demand is <strong>rising</strong>.</p><ul><li>EU</li><li>US</li></ul><h2>Risks</h2><p>None.</p>`
	got, err := ToMarkdown(in)
	require.NoError(t, err)
	require.Equal(t, "## Market\n\nDemand is **rising**.\n\n- EU\n- US\n\n## Risks\n\nNone.", got)
}

package patch

import (
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// Clean trims proposed content and removes a fenced block wrapping all of it.
func Clean(proposed string) string {
	text, _ := markdown.StripWrappingFence(strings.TrimSpace(proposed))
	return strings.TrimSpace(text)
}

var (
	codeSpan       = regexp.MustCompile("`+[^`]*`+")
	emphasisMarker = regexp.MustCompile(`\*\*[^*\s][^*]*\*\*|__[^_\s][^_]*__|\*[^*\s][^*]*\*`)
)

// markupSignals reports whether text carries heading or emphasis markers outside
// fenced code and code spans.
func markupSignals(text string) (heading, emphasis bool) {
	lines := markdown.SplitLines(text)
	heading = len(markdown.ScanHeadings(lines)) > 0

	fenced := markdown.FencedLines(lines)
	var prose []string
	for i, line := range lines {
		if !fenced[i] {
			prose = append(prose, codeSpan.ReplaceAllString(line, ""))
		}
	}
	emphasis = emphasisMarker.MatchString(strings.Join(prose, "\n"))
	return heading, emphasis
}

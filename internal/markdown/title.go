package markdown

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle applies NFC normalization, collapses internal whitespace and trims.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// FoldTitle returns the case-folded form of a normalized title for case-insensitive comparison.
// Casers are stateful, so each call builds its own.
func FoldTitle(s string) string {
	return cases.Fold().String(NormalizeTitle(s))
}

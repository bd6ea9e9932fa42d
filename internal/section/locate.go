package section

import (
	"strings"

	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// MatchKind describes how a heading title matched a query.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchFuzzy
	MatchExact
)

// Match compares a heading title with a query. Exact compares normalized titles;
// fuzzy is case-insensitive containment in either direction. Empty titles never match.
func Match(title, query string) MatchKind {
	t := markdown.NormalizeTitle(title)
	q := markdown.NormalizeTitle(query)
	if t == "" || q == "" {
		return MatchNone
	}
	if t == q {
		return MatchExact
	}
	ft, fq := markdown.FoldTitle(t), markdown.FoldTitle(q)
	if strings.Contains(ft, fq) || strings.Contains(fq, ft) {
		return MatchFuzzy
	}
	return MatchNone
}

// Locate returns the position of the heading matching query.
//
// An exact match anywhere wins over a fuzzy match earlier in the list; only when no
// exact match exists is the first fuzzy match returned. Containment is ambiguous when
// one title is a substring of another ("Overview" and "Market Overview"); the first
// candidate in document order wins.
func Locate(titles []string, query string) (int, bool) {
	for i, t := range titles {
		if Match(t, query) == MatchExact {
			return i, true
		}
	}
	for i, t := range titles {
		if Match(t, query) == MatchFuzzy {
			return i, true
		}
	}
	return -1, false
}

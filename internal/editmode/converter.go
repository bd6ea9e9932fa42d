// Package editmode turns the HTML of a hand-edited rendered view back into markdown.
//
// The conversion is approximate and one-directional: it covers headings, bold,
// italic, list items, paragraphs and line breaks, and strips every other tag
// without escaping the text it leaves behind.
package editmode

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ToMarkdown converts an HTML fragment to markdown.
func ToMarkdown(fragment string) (string, error) {
	return ToMarkdownReader(strings.NewReader(fragment))
}

// ToMarkdownReader converts HTML read from r to markdown.
func ToMarkdownReader(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryConversion, "failed to parse edited HTML").Build()
	}

	var b strings.Builder
	convert(&b, doc)

	out := strings.ReplaceAll(b.String(), "\r\n", "\n")
	out = trimLineEnds(out)
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

func convert(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		children(b, n)
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		b.WriteString("\n\n")
		b.WriteString(strings.Repeat("#", level))
		b.WriteString(" ")
		b.WriteString(strings.TrimSpace(inner(n)))
		b.WriteString("\n\n")
	case "strong", "b":
		b.WriteString("**" + inner(n) + "**")
	case "em", "i":
		b.WriteString("*" + inner(n) + "*")
	case "li":
		startLine(b)
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(inner(n)))
		b.WriteString("\n")
	case "p", "div":
		b.WriteString("\n\n")
		children(b, n)
		b.WriteString("\n\n")
	case "ul", "ol":
		b.WriteString("\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				convert(b, c)
			}
		}
		b.WriteString("\n")
	case "br":
		b.WriteString("\n")
	case "script", "style", "head":
	default:
		children(b, n)
	}
}

func children(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		convert(b, c)
	}
}

func inner(n *html.Node) string {
	var b strings.Builder
	children(&b, n)
	return b.String()
}

func startLine(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
}

func trimLineEnds(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.Join(lines, "\n")
}

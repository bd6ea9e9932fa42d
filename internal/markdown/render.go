package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Options controls how Markdown is rendered into blocks.
type Options struct {
	// GFM enables tables, strikethrough, task lists and autolinks. Generated reports use tables.
	GFM bool
}

// BlockKind classifies a top-level render node.
type BlockKind string

const (
	KindHeading   BlockKind = "heading"
	KindParagraph BlockKind = "paragraph"
	KindList      BlockKind = "list"
	KindCode      BlockKind = "code"
	KindQuote     BlockKind = "quote"
	KindRule      BlockKind = "rule"
	KindTable     BlockKind = "table"
	KindHTML      BlockKind = "html"
	KindOther     BlockKind = "other"
)

// Block is one top-level node of rendered Markdown.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"`
	// Title is the plain text of a heading, whitespace-collapsed.
	Title string `json:"title,omitempty"`
	HTML  string `json:"html"`
	// Emphasis reports whether the block contains emphasis or strong emphasis.
	Emphasis bool `json:"-"`
}

// Renderer converts Markdown into a sequence of top-level blocks. Implementations must be pure.
type Renderer interface {
	Render(src []byte) ([]Block, error)
}

// GoldmarkRenderer renders with goldmark, one HTML fragment per top-level node.
type GoldmarkRenderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a goldmark-backed Renderer.
func NewRenderer(opts Options) *GoldmarkRenderer {
	var exts []goldmark.Extender
	if opts.GFM {
		exts = append(exts, extension.GFM)
	}
	return &GoldmarkRenderer{md: goldmark.New(goldmark.WithExtensions(exts...))}
}

// Render parses src and renders each top-level node separately.
func (r *GoldmarkRenderer) Render(src []byte) ([]Block, error) {
	root := r.md.Parser().Parse(text.NewReader(src))

	blocks := make([]Block, 0, root.ChildCount())
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		var buf bytes.Buffer
		if err := r.md.Renderer().Render(&buf, src, n); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConversion, "render markdown block").
				WithContext("kind", n.Kind().String()).
				Build()
		}
		b := Block{
			Kind:     kindOf(n),
			HTML:     buf.String(),
			Emphasis: containsEmphasis(n),
		}
		if h, ok := n.(*gmast.Heading); ok {
			b.Level = h.Level
			b.Title = PlainText(n, src)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func kindOf(n gmast.Node) BlockKind {
	switch n.(type) {
	case *gmast.Heading:
		return KindHeading
	case *gmast.Paragraph, *gmast.TextBlock:
		return KindParagraph
	case *gmast.List:
		return KindList
	case *gmast.FencedCodeBlock, *gmast.CodeBlock:
		return KindCode
	case *gmast.Blockquote:
		return KindQuote
	case *gmast.ThematicBreak:
		return KindRule
	case *gmast.HTMLBlock:
		return KindHTML
	case *east.Table:
		return KindTable
	default:
		return KindOther
	}
}

func containsEmphasis(n gmast.Node) bool {
	found := false
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if _, ok := child.(*gmast.Emphasis); ok {
			found = true
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return found
}

// PlainText returns the text content of an inline container with markup removed.
func PlainText(n gmast.Node, src []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := child.(type) {
		case *gmast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *gmast.String:
			sb.Write(node.Value)
		case *gmast.AutoLink:
			sb.Write(node.Label(src))
			return gmast.WalkSkipChildren, nil
		case *gmast.RawHTML:
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return NormalizeTitle(sb.String())
}

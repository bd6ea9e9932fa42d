package section

import (
	"strings"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// Heading is a heading derived from the document text. Title is plain text.
type Heading struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	Line  int    `json:"line"`
}

// LineRange is a half-open range of line numbers.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of lines in the range.
func (r LineRange) Len() int { return r.End - r.Start }

// Section is a heading plus its body: everything up to the next heading of equal or
// lesser depth. Body and BodyNodeIDs denote the same content.
type Section struct {
	Heading       Heading   `json:"heading"`
	HeadingNodeID string    `json:"heading_node_id"`
	Body          LineRange `json:"body"`
	BodyNodeIDs   []string  `json:"body_node_ids"`
}

// Index is the canonical section index of one revision.
type Index struct {
	Revision uint64
	Text     string
	Lines    []string
	Sections []Section
	Tree     Tree
}

// Builder renders documents into indexes. It is safe for concurrent use when its
// Renderer is.
type Builder struct {
	renderer markdown.Renderer
	ids      *Sequence
}

// NewBuilder returns a Builder drawing node IDs from ids.
func NewBuilder(renderer markdown.Renderer, ids *Sequence) *Builder {
	if ids == nil {
		ids = NewSequence("n")
	}
	return &Builder{renderer: renderer, ids: ids}
}

// Build indexes text at revision.
func (b *Builder) Build(text string, revision uint64) (*Index, error) {
	lines := markdown.SplitLines(text)
	r, err := b.render(lines)
	if err != nil {
		return nil, err
	}

	sections := make([]Section, len(r.headings))
	for i, h := range r.headings {
		end, nodeEnd := len(lines), len(r.nodes)
		for j := i + 1; j < len(r.headings); j++ {
			if r.headings[j].Level <= h.Level {
				end, nodeEnd = r.headings[j].Line, r.headingPos[j]
				break
			}
		}
		body := r.nodes[r.headingPos[i]+1 : nodeEnd]
		ids := make([]string, len(body))
		for k, n := range body {
			ids[k] = n.ID
		}
		sections[i] = Section{
			Heading:       h,
			HeadingNodeID: r.nodes[r.headingPos[i]].ID,
			Body:          LineRange{Start: h.Line + 1, End: end},
			BodyNodeIDs:   ids,
		}
	}

	return &Index{
		Revision: revision,
		Text:     text,
		Lines:    lines,
		Sections: sections,
		Tree:     Tree{Revision: revision, Nodes: r.nodes},
	}, nil
}

// RenderNodes renders text into nodes exactly as Build would lay them out in a tree.
func (b *Builder) RenderNodes(text string) ([]Node, error) {
	r, err := b.render(markdown.SplitLines(text))
	if err != nil {
		return nil, err
	}
	return r.nodes, nil
}

type rendered struct {
	nodes      []Node
	headings   []Heading
	headingPos []int
}

func (b *Builder) render(lines []string) (*rendered, error) {
	scanned := markdown.ScanHeadings(lines)
	r := &rendered{
		headings:   make([]Heading, len(scanned)),
		headingPos: make([]int, len(scanned)),
	}

	firstHeading := len(lines)
	if len(scanned) > 0 {
		firstHeading = scanned[0].Line
	}
	if err := b.appendChunk(r, lines[:firstHeading]); err != nil {
		return nil, err
	}

	for i, h := range scanned {
		blocks, err := b.renderer.Render([]byte(lines[h.Line]))
		if err != nil {
			return nil, err
		}
		if len(blocks) != 1 || blocks[0].Kind != markdown.KindHeading {
			return nil, errors.ConversionError("heading line did not render as a single heading").
				WithContext("line", h.Line).
				Build()
		}
		title := blocks[0].Title
		if title == "" {
			title = markdown.NormalizeTitle(h.Raw)
		}
		r.headings[i] = Heading{Level: h.Level, Title: title, Line: h.Line}
		r.headingPos[i] = len(r.nodes)
		r.nodes = append(r.nodes, Node{ID: b.ids.Next(), Block: blocks[0]})

		end := len(lines)
		if i+1 < len(scanned) {
			end = scanned[i+1].Line
		}
		if err := b.appendChunk(r, lines[h.Line+1:end]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (b *Builder) appendChunk(r *rendered, chunk []string) error {
	if len(chunk) == 0 {
		return nil
	}
	blocks, err := b.renderer.Render([]byte(strings.Join(chunk, "\n")))
	if err != nil {
		return err
	}
	for _, blk := range blocks {
		r.nodes = append(r.nodes, Node{ID: b.ids.Next(), Block: blk})
	}
	return nil
}

// Titles returns the section titles in document order.
func (ix *Index) Titles() []string {
	out := make([]string, len(ix.Sections))
	for i, s := range ix.Sections {
		out[i] = s.Heading.Title
	}
	return out
}

// Locate finds the section for title using the exact-then-fuzzy rule.
func (ix *Index) Locate(title string) (Section, bool) {
	i, ok := Locate(ix.Titles(), title)
	if !ok {
		return Section{}, false
	}
	return ix.Sections[i], true
}

// SectionByNodeID returns the section whose heading node has id.
func (ix *Index) SectionByNodeID(id string) (Section, bool) {
	for _, s := range ix.Sections {
		if id != "" && s.HeadingNodeID == id {
			return s, true
		}
	}
	return Section{}, false
}

// BodyText returns the section body as it appears in the text.
func (ix *Index) BodyText(s Section) string {
	return strings.Join(ix.Lines[s.Body.Start:s.Body.End], "\n")
}

// TreeRegion returns the node range [start, end) of the section body in ix.Tree and
// checks that it is exactly the recorded body node run.
func (ix *Index) TreeRegion(s Section) (int, int, error) {
	pos := ix.Tree.IndexOf(s.HeadingNodeID)
	if pos < 0 {
		return 0, 0, errors.ConflictError("heading node not present in render tree").
			WithContext("section", s.Heading.Title).
			WithContext("node_id", s.HeadingNodeID).
			Build()
	}
	start, end := pos+1, pos+1+len(s.BodyNodeIDs)
	if end > len(ix.Tree.Nodes) {
		return 0, 0, errors.ConflictError("section body runs past the render tree").
			WithContext("section", s.Heading.Title).
			Build()
	}
	for k, id := range s.BodyNodeIDs {
		if ix.Tree.Nodes[start+k].ID != id {
			return 0, 0, errors.ConflictError("render tree diverges from section index").
				WithContext("section", s.Heading.Title).
				WithContext("node_id", id).
				Build()
		}
	}
	// The run must stop at a heading of equal or lesser depth, or at the end of the tree.
	if end < len(ix.Tree.Nodes) {
		next := ix.Tree.Nodes[end]
		if next.Kind != markdown.KindHeading || next.Level > s.Heading.Level {
			return 0, 0, errors.ConflictError("section body does not end at a section boundary").
				WithContext("section", s.Heading.Title).
				Build()
		}
	}
	return start, end, nil
}

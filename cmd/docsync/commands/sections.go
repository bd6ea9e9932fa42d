package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/section"
)

// SectionsCmd implements the 'sections' command.
type SectionsCmd struct {
	File string `arg:"" help:"Markdown file, or - for stdin"`
	JSON bool   `help:"Print the section index as JSON"`
}

func (c *SectionsCmd) Run(g *Global) error {
	text, err := readInput(c.File)
	if err != nil {
		return err
	}
	ix, err := newBuilder().Build(text, 0)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(ix.Sections)
	}
	w := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tLINES\tNODES\tTITLE")
	for _, s := range ix.Sections {
		fmt.Fprintf(w, "%d\t%d-%d\t%d\t%s%s\n",
			s.Heading.Level, s.Heading.Line+1, s.Body.End,
			len(s.BodyNodeIDs)+1,
			strings.Repeat("  ", s.Heading.Level-1), s.Heading.Title)
	}
	return w.Flush()
}

// LocateCmd implements the 'locate' command.
type LocateCmd struct {
	File  string `arg:"" help:"Markdown file, or - for stdin"`
	Title string `arg:"" help:"Section title to resolve"`
	Body  bool   `help:"Print the section body"`
}

func (c *LocateCmd) Run(g *Global) error {
	text, err := readInput(c.File)
	if err != nil {
		return err
	}
	ix, err := newBuilder().Build(text, 0)
	if err != nil {
		return err
	}
	sec, ok := ix.Locate(c.Title)
	if !ok {
		return errors.NotFoundError("section not found").
			WithContext("section", c.Title).
			Build()
	}
	match := "fuzzy"
	if section.Match(sec.Heading.Title, c.Title) == section.MatchExact {
		match = "exact"
	}
	fmt.Fprintf(g.out(), "%s (level %d, line %d, %s match)\n", sec.Heading.Title, sec.Heading.Level, sec.Heading.Line+1, match)
	if c.Body {
		fmt.Fprintln(g.out(), ix.BodyText(sec))
	}
	return nil
}

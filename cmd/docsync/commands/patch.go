package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/docsync/internal/document"
	"git.home.luguber.info/inful/docsync/internal/editmode"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/patch"
	"git.home.luguber.info/inful/docsync/internal/watch"
)

// PatchCmd implements the 'patch' command.
type PatchCmd struct {
	File    string `arg:"" help:"Markdown file to patch" type:"existingfile"`
	Section string `short:"s" required:"" help:"Title of the section to replace"`
	Content string `required:"" help:"File holding the proposed section body, or - for stdin"`
	Write   bool   `short:"w" help:"Write the patched document back to FILE instead of printing it"`
}

func (c *PatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(true)
	if err != nil {
		return err
	}
	text, err := readInput(c.File)
	if err != nil {
		return err
	}
	proposed, err := readInput(c.Content)
	if err != nil {
		return err
	}

	store := document.NewStore(text)
	builder := newBuilder()
	current, err := builder.Build(text, store.Revision())
	if err != nil {
		return err
	}
	res := patch.NewApplier(store, builder, cfg.Patch.Limits()).Apply(current, patch.Request{
		SectionTitle: c.Section,
		ProposedText: proposed,
	})
	if res.Outcome != patch.OutcomeApplied {
		return res.Err
	}

	if !c.Write {
		fmt.Fprint(g.out(), store.Text())
		return nil
	}
	if err := watch.WriteFile(c.File, store.Text()); err != nil {
		return err
	}
	slog.Info("Section patched", logfields.Path(c.File), logfields.Section(res.Section))
	return nil
}

// ConvertCmd implements the 'convert' command.
type ConvertCmd struct {
	File string `arg:"" optional:"" default:"-" help:"HTML fragment file, or - for stdin"`
}

func (c *ConvertCmd) Run(g *Global) error {
	html, err := readInput(c.File)
	if err != nil {
		return err
	}
	md, err := editmode.ToMarkdown(html)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConversion, "failed to convert HTML").
			WithContext("path", c.File).
			Build()
	}
	fmt.Fprintln(g.out(), md)
	return nil
}

package patch

import (
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/document"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/section"
)

// Outcome is the terminal state of a patch attempt.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeFailedFallback Outcome = "failed_fallback"
)

// Request asks for the body of a section to be replaced by ProposedText. The
// section is the one whose heading node is HeadingNodeID when that node is still
// in the index, otherwise the one SectionTitle locates.
type Request struct {
	SectionTitle  string
	HeadingNodeID string
	ProposedText  string
}

// Result is what an attempt produced. Index always describes the store's text at
// Revision. Err is set when the attempt fell back, and is a classified error whose
// category names the reason (not_found, validation, conversion or conflict).
type Result struct {
	Outcome  Outcome
	Revision uint64
	Tree     section.Tree
	Index    *section.Index
	Section  string
	Err      error
}

// Applier applies section patches against a Store.
type Applier struct {
	store   *document.Store
	builder *section.Builder
	limits  Limits
}

// NewApplier returns an Applier committing to store.
func NewApplier(store *document.Store, builder *section.Builder, limits Limits) *Applier {
	return &Applier{store: store, builder: builder, limits: limits}
}

// Limits returns the guard settings in use.
func (a *Applier) Limits() Limits { return a.limits }

// Apply patches the section named by req using current, the index the caller last
// built. Any failure leaves the store untouched and returns a fresh build of the
// store's text.
func (a *Applier) Apply(current *section.Index, req Request) Result {
	ix, title, err := a.attempt(current, req)
	if err == nil {
		return Result{Outcome: OutcomeApplied, Revision: ix.Revision, Tree: ix.Tree, Index: ix, Section: title}
	}

	slog.Debug("Patch attempt discarded; rebuilding from store",
		logfields.Section(req.SectionTitle),
		logfields.Error(err))

	doc := a.store.Document()
	rebuilt, rerr := a.builder.Build(doc.Text, doc.Revision)
	if rerr != nil {
		return Result{
			Outcome:  OutcomeFailedFallback,
			Revision: doc.Revision,
			Section:  title,
			Err: errors.WrapError(rerr, errors.CategoryConversion, "fallback rebuild failed").
				WithCause(err).
				WithContext("section", req.SectionTitle).
				Build(),
		}
	}
	return Result{
		Outcome:  OutcomeFailedFallback,
		Revision: rebuilt.Revision,
		Tree:     rebuilt.Tree,
		Index:    rebuilt,
		Section:  title,
		Err:      err,
	}
}

func (a *Applier) attempt(current *section.Index, req Request) (*section.Index, string, error) {
	if current == nil || current.Revision != a.store.Revision() {
		return nil, "", errors.ConflictError("section index is stale").
			WithContext("section", req.SectionTitle).
			Build()
	}

	sec, ok := locate(current, req)
	if !ok {
		return nil, "", errors.NotFoundError("section not found").
			WithContext("section", req.SectionTitle).
			Build()
	}
	title := sec.Heading.Title

	content := Clean(req.ProposedText)
	nodes, err := a.builder.RenderNodes(content)
	if err != nil {
		return nil, title, errors.WrapError(err, errors.CategoryConversion, "proposed content did not render").
			WithContext("section", title).
			Build()
	}
	if err := checkStructure(content, nodes); err != nil {
		return nil, title, err
	}

	cleaned := content
	content, nodes, stripped := dropDuplicateHeading(content, nodes, title)

	if err := a.limits.check(guardInput{
		proposed:        cleaned,
		documentText:    current.Text,
		regionLines:     sec.Body.Len(),
		totalLines:      len(current.Lines),
		content:         content,
		strippedHeading: stripped,
	}); err != nil {
		return nil, title, withSection(err, title)
	}

	replacement := "\n" + content + "\n"
	if sec.Body.End < len(current.Lines) {
		replacement += "\n"
	}
	newText, err := markdown.ReplaceLines(current.Text, sec.Body.Start, sec.Body.End, replacement)
	if err != nil {
		return nil, title, errors.WrapError(err, errors.CategoryConflict, "section line range does not fit the text").
			WithContext("section", title).
			Build()
	}

	start, end, err := current.TreeRegion(sec)
	if err != nil {
		return nil, title, err
	}
	next := current.Revision + 1
	spliced, err := current.Tree.Splice(start, end, nodes, next)
	if err != nil {
		return nil, title, errors.WrapError(err, errors.CategoryConflict, "tree region does not fit the tree").
			WithContext("section", title).
			Build()
	}

	ix, err := a.builder.Build(newText, next)
	if err != nil {
		return nil, title, err
	}
	if err := ix.Adopt(spliced); err != nil {
		return nil, title, withSection(err, title)
	}

	rev, err := a.store.Commit(current.Revision, newText)
	if err != nil {
		return nil, title, withSection(err, title)
	}
	if rev != next {
		// Only reachable if the store was mutated outside Commit's check.
		return nil, title, errors.InternalError("store revision skipped during commit").
			WithContext("expected_revision", next).
			WithContext("revision", rev).
			Build()
	}
	return ix, title, nil
}

// checkStructure flags output that lost all of the structure its source text asked
// for, which points at a renderer or collaborator that mangled the content.
func checkStructure(content string, nodes []section.Node) error {
	wantHeading, wantEmphasis := markupSignals(content)
	if !wantHeading && !wantEmphasis {
		return nil
	}
	for _, n := range nodes {
		if n.Kind == markdown.KindHeading || n.Emphasis {
			return nil
		}
	}
	return errors.ConversionError("rendered content lost its heading and emphasis structure").
		WithContext("heading_markup", wantHeading).
		WithContext("emphasis_markup", wantEmphasis).
		Build()
}

func locate(current *section.Index, req Request) (section.Section, bool) {
	if req.HeadingNodeID != "" {
		if sec, ok := current.SectionByNodeID(req.HeadingNodeID); ok {
			return sec, true
		}
		slog.Debug("Heading node gone; locating section by title",
			logfields.Section(req.SectionTitle),
			slog.String("node_id", req.HeadingNodeID))
	}
	return current.Locate(req.SectionTitle)
}

// dropDuplicateHeading removes a leading heading that repeats the section title from
// both the content and the rendered nodes. The cut covers exactly the heading's
// source lines, setext underline included.
func dropDuplicateHeading(content string, nodes []section.Node, title string) (string, []section.Node, bool) {
	if len(nodes) == 0 || nodes[0].Kind != markdown.KindHeading {
		return content, nodes, false
	}
	if section.Match(nodes[0].Title, title) == section.MatchNone {
		return content, nodes, false
	}
	lines := markdown.SplitLines(content)
	end, ok := markdown.LeadingHeadingEnd(lines)
	if !ok {
		return content, nodes, false
	}
	rest := strings.Join(lines[end:], "\n")
	return strings.TrimSpace(rest), nodes[1:], true
}

func withSection(err error, title string) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext("section", title)
	}
	return err
}

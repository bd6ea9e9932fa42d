package patch

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/document"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/section"
)

type fixture struct {
	store   *document.Store
	builder *section.Builder
	applier *Applier
}

func newFixture(t *testing.T, text string) (*fixture, *section.Index) {
	t.Helper()
	store := document.NewStore(text)
	builder := section.NewBuilder(markdown.NewRenderer(markdown.Options{GFM: true}), section.NewSequence("n"))
	ix, err := builder.Build(store.Text(), store.Revision())
	require.NoError(t, err)
	return &fixture{store: store, builder: builder, applier: NewApplier(store, builder, DefaultLimits())}, ix
}

const baseDoc = "## Intro\nA\n## Details\nB C\n"

// paddedDoc leaves room under the proposal ratio for multi-line proposals.
var paddedDoc = baseDoc + "## Notes\n" + strings.Repeat("Note line.\n", 12)

func requireCategory(t *testing.T, err error, want errors.ErrorCategory) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, errors.GetCategory(err))
}

func TestApply_ReplacesTargetSectionOnly(t *testing.T) {
	f, ix := newFixture(t, baseDoc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "A2"})
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.Equal(t, uint64(1), res.Revision)
	require.Equal(t, uint64(1), f.store.Revision())

	intro, ok := res.Index.Locate("Intro")
	require.True(t, ok)
	require.Equal(t, "A2", strings.TrimSpace(res.Index.BodyText(intro)))
	details, ok := res.Index.Locate("Details")
	require.True(t, ok)
	require.Equal(t, "B C", strings.TrimSpace(res.Index.BodyText(details)))
	require.Equal(t, f.store.Text(), res.Index.Text)
}

func TestApply_KeepsIdentityOfUntouchedNodes(t *testing.T) {
	f, ix := newFixture(t, baseDoc)
	before := ix.Sections[1]

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "A2"})
	require.NoError(t, res.Err)

	after := res.Index.Sections[1]
	require.Equal(t, before.HeadingNodeID, after.HeadingNodeID)
	require.Equal(t, before.BodyNodeIDs, after.BodyNodeIDs)
	require.Equal(t, ix.Sections[0].HeadingNodeID, res.Index.Sections[0].HeadingNodeID)
	require.NotEqual(t, ix.Sections[0].BodyNodeIDs, res.Index.Sections[0].BodyNodeIDs)

	_, _, err := res.Index.TreeRegion(res.Index.Sections[0])
	require.NoError(t, err)
}

func TestApply_SelfPatchIsIdempotent(t *testing.T) {
	text := strings.Join([]string{
		"# Report",
		"",
		"## Summary",
		"",
		"Markets are **growing** fast.",
		"",
		"- one",
		"- two",
		"",
		"## Outlook",
		"",
		"Steady.",
		"",
		"## Sources",
		"",
		"See appendix.",
		"",
	}, "\n")
	f, ix := newFixture(t, text)
	summary, ok := ix.Locate("Summary")
	require.True(t, ok)

	res := f.applier.Apply(ix, Request{SectionTitle: "Summary", ProposedText: ix.BodyText(summary)})
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.Equal(t, ix.Revision+1, res.Revision)
	require.Equal(t, ix.Tree.Blocks(), res.Tree.Blocks())
}

func TestApply_RejectsOversizedProposal(t *testing.T) {
	prefix := "## Intro\n" + strings.Repeat("a", 500) + "\n## Details\n"
	doc := prefix + strings.Repeat("b", 1000-len(prefix)-1) + "\n"
	require.Len(t, []rune(doc), 1000)
	f, ix := newFixture(t, doc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: strings.Repeat("c", 850)})
	require.Equal(t, OutcomeFailedFallback, res.Outcome)
	requireCategory(t, res.Err, errors.CategoryValidation)
	require.Equal(t, doc, f.store.Text())
	require.Equal(t, uint64(0), f.store.Revision())
	require.Equal(t, ix.Tree.Blocks(), res.Tree.Blocks())
}

func TestApply_ProposalRatioMeasuresCleanedContent(t *testing.T) {
	limit := DefaultLimits().MaxProposalRatio * float64(utf8.RuneCountInString(paddedDoc))
	k := int(limit)
	wrapped := "```\n" + strings.Repeat("x", k) + "\n```"
	require.Greater(t, float64(utf8.RuneCountInString(wrapped)), limit)

	f, ix := newFixture(t, paddedDoc)
	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: wrapped})
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeApplied, res.Outcome)

	f, ix = newFixture(t, paddedDoc)
	res = f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "```\n" + strings.Repeat("x", k+1) + "\n```"})
	requireCategory(t, res.Err, errors.CategoryValidation)
}

func TestApply_RejectsSectionSpanningMostOfDocument(t *testing.T) {
	f, ix := newFixture(t, "# Everything\nline one\nline two\nline three\n")

	res := f.applier.Apply(ix, Request{SectionTitle: "Everything", ProposedText: "short"})
	requireCategory(t, res.Err, errors.CategoryValidation)
	require.Equal(t, uint64(0), f.store.Revision())
}

func TestApply_StripsWrappingFence(t *testing.T) {
	f, ix := newFixture(t, paddedDoc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "```markdown\nX\n```"})
	require.NoError(t, res.Err)
	intro, _ := res.Index.Locate("Intro")
	require.Equal(t, "X", strings.TrimSpace(res.Index.BodyText(intro)))
	require.NotContains(t, f.store.Text(), "```")
}

func TestApply_DropsRepeatedHeading(t *testing.T) {
	f, ix := newFixture(t, paddedDoc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "## Intro\n\nA fresh introduction."})
	require.NoError(t, res.Err)
	require.Equal(t, 1, strings.Count(f.store.Text(), "## Intro"))
	require.Len(t, res.Index.Sections, 3)
	require.Len(t, res.Index.Sections[0].BodyNodeIDs, 1)
}

func TestApply_KeepsSeparateFencedBlocks(t *testing.T) {
	f, ix := newFixture(t, paddedDoc)
	proposed := "```\ncode\n```\nmiddle\n```\nmore\n```"

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: proposed})
	require.NoError(t, res.Err)
	intro, _ := res.Index.Locate("Intro")
	require.Equal(t, proposed, strings.TrimSpace(res.Index.BodyText(intro)))
	require.Len(t, intro.BodyNodeIDs, 3)
}

func TestApply_DropsRepeatedSetextHeading(t *testing.T) {
	f, ix := newFixture(t, paddedDoc)

	res := f.applier.Apply(ix, Request{
		SectionTitle: "Intro",
		ProposedText: "Intro\n=====\nSome new body text here.\n### Sub\nmore words here",
	})
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.Equal(t, []string{"Intro", "Sub", "Details", "Notes"}, res.Index.Titles())

	intro, _ := res.Index.Locate("Intro")
	body := res.Index.BodyText(intro)
	require.Contains(t, body, "Some new body text here.")
	require.Contains(t, body, "### Sub\nmore words here")
	require.NotContains(t, f.store.Text(), "=====")
	require.Equal(t, 1, strings.Count(f.store.Text(), "Intro"))
}

func TestApply_RejectsTooLittleAfterRepeatedHeading(t *testing.T) {
	f, ix := newFixture(t, paddedDoc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "## Intro\nok"})
	requireCategory(t, res.Err, errors.CategoryValidation)
	require.Equal(t, paddedDoc, f.store.Text())
}

func TestApply_RejectsEmptyContent(t *testing.T) {
	f, ix := newFixture(t, baseDoc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "```\n\n```"})
	requireCategory(t, res.Err, errors.CategoryValidation)
}

func TestApply_LocatorMissFallsBack(t *testing.T) {
	f, ix := newFixture(t, baseDoc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Appendix", ProposedText: "Z"})
	require.Equal(t, OutcomeFailedFallback, res.Outcome)
	requireCategory(t, res.Err, errors.CategoryNotFound)
	require.NotNil(t, res.Index)
	require.Equal(t, ix.Tree.Blocks(), res.Tree.Blocks())
	require.Equal(t, uint64(0), f.store.Revision())
}

func TestApply_TargetsHeadingNode(t *testing.T) {
	f, ix := newFixture(t, paddedDoc)
	id := ix.Sections[1].HeadingNodeID

	res := f.applier.Apply(ix, Request{SectionTitle: "Renamed elsewhere", HeadingNodeID: id, ProposedText: "Fresh details text."})
	require.NoError(t, res.Err)
	require.Equal(t, "Details", res.Section)
	details, ok := res.Index.SectionByNodeID(id)
	require.True(t, ok)
	require.Equal(t, "Fresh details text.", strings.TrimSpace(res.Index.BodyText(details)))
	require.Contains(t, f.store.Text(), "## Intro\nA\n")

	// An id the index no longer holds falls back to the title.
	res = f.applier.Apply(res.Index, Request{SectionTitle: "Intro", HeadingNodeID: "n-gone", ProposedText: "Fresh intro text."})
	require.NoError(t, res.Err)
	require.Equal(t, "Intro", res.Section)
	require.Contains(t, f.store.Text(), "Fresh intro text.")
}

func TestApply_StaleIndexFallsBackToCurrentText(t *testing.T) {
	f, ix := newFixture(t, baseDoc)
	f.store.SetText("## Intro\nNewer\n## Details\nB C\n")

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "A2"})
	require.Equal(t, OutcomeFailedFallback, res.Outcome)
	requireCategory(t, res.Err, errors.CategoryConflict)
	require.Equal(t, uint64(1), res.Revision)
	require.Contains(t, res.Index.Text, "Newer")
	require.Equal(t, "## Intro\nNewer\n## Details\nB C\n", f.store.Text())
}

func TestApply_ForeignTreeIsBoundaryMismatch(t *testing.T) {
	f, ix := newFixture(t, baseDoc)
	other, err := f.builder.Build(ix.Text, ix.Revision)
	require.NoError(t, err)
	ix.Tree = other.Tree

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "A2"})
	requireCategory(t, res.Err, errors.CategoryConflict)
	require.Equal(t, uint64(0), f.store.Revision())
}

func TestApply_UnclosedFenceInProposalIsRejected(t *testing.T) {
	f, ix := newFixture(t, paddedDoc)

	res := f.applier.Apply(ix, Request{SectionTitle: "Intro", ProposedText: "Code:\n\n```go\nfmt.Println()"})
	require.Equal(t, OutcomeFailedFallback, res.Outcome)
	requireCategory(t, res.Err, errors.CategoryConflict)
	require.Equal(t, uint64(0), f.store.Revision())
}

func TestCheckStructure(t *testing.T) {
	heading := section.Node{ID: "h", Block: markdown.Block{Kind: markdown.KindHeading, Level: 2}}
	plain := section.Node{ID: "p", Block: markdown.Block{Kind: markdown.KindParagraph}}
	emph := section.Node{ID: "e", Block: markdown.Block{Kind: markdown.KindParagraph, Emphasis: true}}

	require.NoError(t, checkStructure("just words", []section.Node{plain}))
	require.NoError(t, checkStructure("## Title\nwords", []section.Node{heading, plain}))
	require.NoError(t, checkStructure("some **bold** words", []section.Node{emph}))
	require.NoError(t, checkStructure("use `**kwargs` here", []section.Node{plain}))

	err := checkStructure("some **bold** words", []section.Node{plain})
	requireCategory(t, err, errors.CategoryConversion)
	err = checkStructure("## Title", []section.Node{plain})
	requireCategory(t, err, errors.CategoryConversion)
}

func TestMarkupSignals_IgnoreNestedFenceContent(t *testing.T) {
	heading, emphasis := markupSignals("````md\n```\n# not a heading\n**not bold**\n```\n````\nplain words")
	require.False(t, heading)
	require.False(t, emphasis)

	// A closer carrying an info string leaves the fence open.
	heading, emphasis = markupSignals("```\ncode\n```go\n**inside**\n")
	require.False(t, heading)
	require.False(t, emphasis)

	heading, emphasis = markupSignals("~~~\nx\n~~~\n## After\nsome **bold**")
	require.True(t, heading)
	require.True(t, emphasis)
}

func TestClean(t *testing.T) {
	require.Equal(t, "X", Clean("```markdown\nX\n```"))
	require.Equal(t, "X", Clean("  ~~~\nX\n~~~  "))
	require.Equal(t, "plain", Clean("\n plain \n"))
}

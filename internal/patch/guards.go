package patch

import (
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Limits bounds what a single regeneration may replace.
type Limits struct {
	// MaxProposalRatio caps the proposed text length relative to the whole document.
	MaxProposalRatio float64 `yaml:"max_proposal_ratio"`
	// MaxRegionRatio caps the share of document lines the target section may span.
	MaxRegionRatio float64 `yaml:"max_region_ratio"`
	// MinContentLength is the least content, in runes, left after a duplicate
	// leading heading is stripped.
	MinContentLength int `yaml:"min_content_length"`
}

// DefaultLimits returns the stock guard settings.
func DefaultLimits() Limits {
	return Limits{MaxProposalRatio: 0.8, MaxRegionRatio: 0.7, MinContentLength: 10}
}

type guardInput struct {
	proposed        string
	documentText    string
	regionLines     int
	totalLines      int
	content         string
	strippedHeading bool
}

func (l Limits) check(in guardInput) error {
	proposed := utf8.RuneCountInString(in.proposed)
	document := utf8.RuneCountInString(in.documentText)
	if float64(proposed) > l.MaxProposalRatio*float64(document) {
		return errors.ValidationError("proposed content is too large relative to the document").
			WithContext("proposed_runes", proposed).
			WithContext("document_runes", document).
			WithContext("guard", "max_proposal_ratio").
			Build()
	}

	if in.totalLines > 0 && float64(in.regionLines) > l.MaxRegionRatio*float64(in.totalLines) {
		return errors.ValidationError("section spans too much of the document").
			WithContext("region_lines", in.regionLines).
			WithContext("total_lines", in.totalLines).
			WithContext("guard", "max_region_ratio").
			Build()
	}

	if strings.TrimSpace(in.content) == "" {
		return errors.ValidationError("proposed content is empty").
			WithContext("guard", "empty_content").
			Build()
	}
	if n := utf8.RuneCountInString(in.content); in.strippedHeading && n < l.MinContentLength {
		return errors.ValidationError("content left after removing the repeated heading is too short").
			WithContext("content_runes", n).
			WithContext("guard", "min_content_length").
			Build()
	}
	return nil
}

package coordinator

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/patch"
	"git.home.luguber.info/inful/docsync/internal/protocol"
	"git.home.luguber.info/inful/docsync/internal/transport"
)

// PendingStatus is the lifecycle state of a regeneration request.
type PendingStatus string

const (
	StatusPending   PendingStatus = "pending"
	StatusSucceeded PendingStatus = "succeeded"
	StatusFailed    PendingStatus = "failed"
)

// HeadingRef identifies the heading a regeneration targets, as captured at request time.
// The completion patches the section under NodeID and falls back to Title when a
// rebuild has replaced the node.
type HeadingRef struct {
	NodeID   string `json:"node_id"`
	Title    string `json:"title"`
	Revision uint64 `json:"revision"`
}

// Pending is an outstanding regeneration request.
type Pending struct {
	RequestID       string        `json:"request_id"`
	SectionTitle    string        `json:"section_title"`
	OriginalExcerpt string        `json:"original_excerpt"`
	Heading         HeadingRef    `json:"heading"`
	Status          PendingStatus `json:"status"`
	IssuedAt        time.Time     `json:"issued_at"`
}

// RequestRegeneration asks the collaborator to rewrite the section matching title.
// It refuses with a busy error, before sending anything, while another request is
// pending.
func (c *Coordinator) RequestRegeneration(ctx context.Context, title, feedback string) (string, error) {
	c.lock()
	defer c.unlock()

	if c.closed {
		return "", c.closedError()
	}
	if len(c.pending) > 0 {
		c.metrics.IncBusyRefusal()
		for id := range c.pending {
			slog.Info("Regeneration refused; another request is pending",
				logfields.SessionID(c.cfg.SessionID),
				logfields.Section(title),
				"pending_request_id", id)
		}
		return "", errors.BusyError("a section regeneration is already in progress").
			WithContext("section", title).
			Build()
	}
	if c.mode == ModeEdit {
		return "", errors.ValidationError("cannot regenerate while editing").
			WithContext("section", title).
			Build()
	}

	sec, ok := c.index.Locate(title)
	if !ok {
		return "", errors.NotFoundError("section not found").
			WithContext("section", title).
			Build()
	}

	p := &Pending{
		RequestID:       c.newID(),
		SectionTitle:    sec.Heading.Title,
		OriginalExcerpt: excerpt(c.index.BodyText(sec), c.cfg.ExcerptLength),
		Heading: HeadingRef{
			NodeID:   sec.HeadingNodeID,
			Title:    sec.Heading.Title,
			Revision: c.index.Revision,
		},
		Status:   StatusPending,
		IssuedAt: c.now(),
	}

	err := c.channel.Send(ctx, protocol.RegenerateSection{
		RequestID:      p.RequestID,
		SectionTitle:   p.SectionTitle,
		SectionContent: p.OriginalExcerpt,
		Feedback:       feedback,
		Topic:          c.topic,
	})
	if err != nil {
		if transport.IsLoss(err) {
			c.loseChannel(err)
		}
		return "", err
	}

	c.pending[p.RequestID] = p
	id := p.RequestID
	c.timers[id] = time.AfterFunc(c.cfg.RegenerationTimeout, func() { c.expire(id) })
	c.metrics.SetPending(len(c.pending))
	c.setMode(ModeSection)
	c.emit(events.RegenerationRequested{
		SessionID: c.cfg.SessionID,
		RequestID: id,
		Section:   p.SectionTitle,
		At:        p.IssuedAt,
	})

	slog.Info("Regeneration requested",
		logfields.SessionID(c.cfg.SessionID),
		logfields.RequestID(id),
		logfields.Section(p.SectionTitle),
		logfields.Revision(p.Heading.Revision))
	return id, nil
}

// ExitSectionMode leaves section mode. A pending request is abandoned and its late
// response, if any, is dropped.
func (c *Coordinator) ExitSectionMode() {
	c.lock()
	defer c.unlock()
	c.abandonPending("section mode exited")
	if c.mode == ModeSection {
		c.setMode(ModeBrowse)
	}
}

func (c *Coordinator) handleSectionComplete(msg protocol.SectionComplete) {
	p, reason := c.correlate(msg)
	if p == nil {
		c.metrics.IncDroppedCompletion(reason)
		slog.Info("Dropped section completion",
			logfields.SessionID(c.cfg.SessionID),
			logfields.RequestID(msg.RequestID),
			logfields.Section(msg.SectionTitle),
			"reason", reason)
		return
	}
	c.clearPending(p.RequestID)
	elapsed := c.now().Sub(p.IssuedAt)

	if !msg.Success || msg.Error != "" || msg.NewContent == "" {
		p.Status = StatusFailed
		message := msg.Error
		if message == "" {
			message = "collaborator reported failure"
		}
		c.metrics.ObserveRegeneration(metrics.RegenerationFailed, elapsed)
		c.failPending(p, errors.CategoryRuntime, message)
		return
	}

	start := time.Now()
	res := c.applier.Apply(c.index, patch.Request{
		SectionTitle:  p.Heading.Title,
		HeadingNodeID: p.Heading.NodeID,
		ProposedText:  msg.NewContent,
	})
	c.metrics.ObservePatchDuration(time.Since(start))
	if res.Index != nil {
		c.index = res.Index
	}
	c.metrics.SetRevision(c.store.Revision())

	if res.Outcome == patch.OutcomeApplied {
		p.Status = StatusSucceeded
		c.metrics.IncPatchOutcome(string(res.Outcome), "")
		c.metrics.ObserveRegeneration(metrics.RegenerationPatched, elapsed)
		c.emit(events.RevisionCommitted{
			SessionID: c.cfg.SessionID,
			Revision:  res.Revision,
			Cause:     events.CausePatch,
			Section:   res.Section,
			RequestID: p.RequestID,
			Text:      res.Index.Text,
			At:        c.now(),
		})
		slog.Info("Section patched",
			logfields.SessionID(c.cfg.SessionID),
			logfields.RequestID(p.RequestID),
			logfields.Section(res.Section),
			logfields.Revision(res.Revision),
			slog.Uint64("requested_at_revision", p.Heading.Revision),
			logfields.Outcome(string(res.Outcome)))
		return
	}

	p.Status = StatusFailed
	reason = string(errors.GetCategory(res.Err))
	c.metrics.IncPatchOutcome(string(res.Outcome), reason)
	c.metrics.ObserveRegeneration(metrics.RegenerationFallback, elapsed)
	c.emit(events.TreeRebuilt{
		SessionID: c.cfg.SessionID,
		Revision:  res.Revision,
		Section:   p.SectionTitle,
		RequestID: p.RequestID,
		Reason:    reason,
		At:        c.now(),
	})
	// Guard trips are reported to the user; other fallbacks are visible only as an outcome.
	if errors.HasCategory(res.Err, errors.CategoryValidation) {
		c.emit(events.RegenerationFailed{
			SessionID: c.cfg.SessionID,
			RequestID: p.RequestID,
			Section:   p.SectionTitle,
			Category:  reason,
			Message:   messageOf(res.Err),
			At:        c.now(),
		})
	}
	slog.Warn("Section patch fell back to full rebuild",
		logfields.SessionID(c.cfg.SessionID),
		logfields.RequestID(p.RequestID),
		logfields.Section(p.SectionTitle),
		logfields.Outcome(string(res.Outcome)),
		logfields.Error(res.Err))
}

// correlate resolves a completion to its pending request. Completions without a request
// id come from collaborators that predate ids and are accepted only when exactly one
// request is pending for exactly that title.
func (c *Coordinator) correlate(msg protocol.SectionComplete) (*Pending, string) {
	if msg.RequestID != "" {
		if p, ok := c.pending[msg.RequestID]; ok {
			return p, ""
		}
		if c.retired.contains(msg.RequestID) {
			return nil, "stale"
		}
		return nil, "unknown"
	}

	if len(c.pending) != 1 {
		return nil, "uncorrelated"
	}
	for _, p := range c.pending {
		if markdown.NormalizeTitle(msg.SectionTitle) == p.SectionTitle {
			return p, ""
		}
	}
	return nil, "title_mismatch"
}

// expire fails a request that outlived the regeneration timeout. It is a no-op when the
// request already resolved.
func (c *Coordinator) expire(id string) {
	c.lock()
	defer c.unlock()

	p, ok := c.pending[id]
	if !ok {
		return
	}
	c.clearPending(id)
	p.Status = StatusFailed
	c.metrics.ObserveRegeneration(metrics.RegenerationTimeout, c.now().Sub(p.IssuedAt))
	c.failPending(p, errors.CategoryTimeout, "regeneration timed out")
}

func (c *Coordinator) clearPending(id string) {
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	delete(c.pending, id)
	c.retired.add(id)
	c.metrics.SetPending(len(c.pending))
}

// abandonPending drops every pending request without surfacing an error.
func (c *Coordinator) abandonPending(reason string) {
	for id, p := range c.pending {
		c.clearPending(id)
		c.metrics.ObserveRegeneration(metrics.RegenerationAbandon, c.now().Sub(p.IssuedAt))
		slog.Info("Regeneration abandoned",
			logfields.SessionID(c.cfg.SessionID),
			logfields.RequestID(id),
			logfields.Section(p.SectionTitle),
			"reason", reason)
	}
}

func (c *Coordinator) failPending(p *Pending, category errors.ErrorCategory, message string) {
	c.emit(events.RegenerationFailed{
		SessionID: c.cfg.SessionID,
		RequestID: p.RequestID,
		Section:   p.SectionTitle,
		Category:  string(category),
		Message:   message,
		At:        c.now(),
	})
	slog.Warn("Regeneration failed",
		logfields.SessionID(c.cfg.SessionID),
		logfields.RequestID(p.RequestID),
		logfields.Section(p.SectionTitle),
		"category", string(category),
		"message", message)
}

func excerpt(body string, limit int) string {
	if utf8.RuneCountInString(body) <= limit {
		return body
	}
	return string([]rune(body)[:limit])
}

func messageOf(err error) string {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.Message()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// retiredIDs remembers recently resolved request ids so late responses can be told
// apart from ids the session never issued.
type retiredIDs struct {
	ids  [32]string
	next int
}

func (r *retiredIDs) add(id string) {
	r.ids[r.next] = id
	r.next = (r.next + 1) % len(r.ids)
}

func (r *retiredIDs) contains(id string) bool {
	for _, v := range r.ids {
		if v != "" && v == id {
			return true
		}
	}
	return false
}

package coordinator

import (
	"context"
	stderrors "errors"
	"log/slog"

	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/protocol"
	"git.home.luguber.info/inful/docsync/internal/transport"
)

// Run pumps inbound messages from the channel until ctx is done or the channel is lost.
// Malformed messages are logged and skipped.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		msg, err := c.channel.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if transport.IsLoss(err) {
				c.lock()
				c.loseChannel(err)
				c.unlock()
				return err
			}
			slog.Warn("Skipping unreadable collaborator message",
				logfields.SessionID(c.cfg.SessionID),
				logfields.Error(err))
			continue
		}
		c.HandleInbound(msg)
	}
}

// HandleInbound processes one collaborator message.
func (c *Coordinator) HandleInbound(msg protocol.Message) {
	c.lock()
	defer c.unlock()

	c.metrics.IncInbound(string(msg.MessageType()))

	switch m := msg.(type) {
	case protocol.Status:
		c.lastStatus = &m
		c.emit(events.ProgressUpdated{
			SessionID:   c.cfg.SessionID,
			Step:        m.Step,
			Message:     m.Message,
			Progress:    m.Progress,
			Sections:    m.Details.SectionNames(),
			Queries:     queriesOf(m.Details),
			SectionName: sectionNameOf(m.Details),
			At:          c.now(),
		})
	case protocol.Thinking:
		c.emit(events.Thinking{SessionID: c.cfg.SessionID, Message: m.Message, At: c.now()})
	case protocol.Complete:
		c.handleComplete(m)
	case protocol.SectionComplete:
		c.handleSectionComplete(m)
	case protocol.Error:
		c.handleError(m)
	default:
		slog.Warn("Ignoring message not meant for the engine",
			logfields.SessionID(c.cfg.SessionID),
			logfields.MessageType(string(msg.MessageType())))
	}
}

// StartResearch begins a new research run on topic. Any pending regeneration is
// abandoned.
func (c *Coordinator) StartResearch(ctx context.Context, topic string) error {
	c.lock()
	defer c.unlock()

	if c.closed {
		return c.closedError()
	}
	if topic == "" {
		return errors.ValidationError("topic is required").Build()
	}
	if c.mode == ModeEdit {
		return errors.ValidationError("cannot start research while editing").Build()
	}

	if err := c.channel.Send(ctx, protocol.StartResearch{Topic: topic}); err != nil {
		if transport.IsLoss(err) {
			c.loseChannel(err)
		}
		return err
	}
	c.abandonPending("research started")
	c.topic = topic
	c.lastStatus = nil
	c.setMode(ModeBrowse)
	slog.Info("Research started", logfields.SessionID(c.cfg.SessionID), "topic", topic)
	return nil
}

func (c *Coordinator) handleComplete(m protocol.Complete) {
	if c.mode == ModeEdit {
		// The editor's snapshot would silently overwrite the delivered report on save.
		c.editSnapshot = nil
		c.setMode(ModeBrowse)
	}
	rev, err := c.commitWholesale(m.Result.FinalReport, events.CauseReport)
	if err != nil {
		slog.Error("Delivered report could not be indexed",
			logfields.SessionID(c.cfg.SessionID),
			logfields.Error(err))
		return
	}
	if m.Result.Topic != "" {
		c.topic = m.Result.Topic
	}
	names := make([]string, 0, len(m.Result.Sections))
	for _, s := range m.Result.Sections {
		names = append(names, s.Name)
	}
	c.emit(events.ReportDelivered{
		SessionID: c.cfg.SessionID,
		Topic:     c.topic,
		Revision:  rev,
		Sections:  names,
		At:        c.now(),
	})
	slog.Info("Report delivered",
		logfields.SessionID(c.cfg.SessionID),
		logfields.Revision(rev),
		"sections", len(names))
}

// handleError fails whatever the collaborator was doing: the pending regeneration if
// there is one, otherwise the research run.
func (c *Coordinator) handleError(m protocol.Error) {
	for id, p := range c.pending {
		c.clearPending(id)
		p.Status = StatusFailed
		c.metrics.ObserveRegeneration(metrics.RegenerationFailed, c.now().Sub(p.IssuedAt))
		c.failPending(p, errors.CategoryRuntime, m.Message)
	}
	c.emit(events.CollaboratorError{SessionID: c.cfg.SessionID, Message: m.Message, At: c.now()})
	slog.Warn("Collaborator reported an error",
		logfields.SessionID(c.cfg.SessionID),
		"message", m.Message)
}

// loseChannel closes the session for good: the pending request fails and later outbound
// requests are refused.
func (c *Coordinator) loseChannel(err error) {
	if c.closed {
		return
	}
	c.closed = true
	c.closeReason = "collaborator channel lost"
	var cause error
	if ce, ok := errors.AsClassified(err); ok && ce.Cause() != nil {
		cause = ce.Cause()
	}
	if cause != nil && !stderrors.Is(cause, context.Canceled) {
		c.closeReason += ": " + cause.Error()
	}

	for id, p := range c.pending {
		c.clearPending(id)
		p.Status = StatusFailed
		c.metrics.ObserveRegeneration(metrics.RegenerationLost, c.now().Sub(p.IssuedAt))
		c.failPending(p, errors.CategoryChannel, c.closeReason)
	}
	c.emit(events.SessionClosed{SessionID: c.cfg.SessionID, Reason: c.closeReason, At: c.now()})
	slog.Error("Session closed",
		logfields.SessionID(c.cfg.SessionID),
		"reason", c.closeReason)
}

func (c *Coordinator) closedError() error {
	return errors.ChannelError("session is closed; start a new session").
		WithContext("session_id", c.cfg.SessionID).
		WithContext("reason", c.closeReason).
		Build()
}

func queriesOf(d *protocol.StatusDetails) []string {
	if d == nil {
		return nil
	}
	return d.Queries
}

func sectionNameOf(d *protocol.StatusDetails) string {
	if d == nil {
		return ""
	}
	if d.SectionName != "" {
		return d.SectionName
	}
	return d.Section
}

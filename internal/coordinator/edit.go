package coordinator

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsync/internal/editmode"
	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Action is a destructive operation that needs explicit confirmation.
type Action string

const (
	ActionResetReport  Action = "reset_report"
	ActionDiscardEdits Action = "discard_edits"
)

// Confirmation is a parked destructive action.
type Confirmation struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// BeginEdit enters edit mode, remembering the current text so a cancel can restore it.
func (c *Coordinator) BeginEdit() error {
	c.lock()
	defer c.unlock()

	if c.mode == ModeEdit {
		return errors.ValidationError("already editing").Build()
	}
	if len(c.pending) > 0 {
		return errors.BusyError("cannot edit while a section regeneration is in progress").Build()
	}
	snap := c.store.Snapshot()
	c.editSnapshot = &snap
	c.setMode(ModeEdit)
	slog.Info("Edit started", logfields.SessionID(c.cfg.SessionID), logfields.Revision(snap.Revision()))
	return nil
}

// SaveEdit converts the edited HTML to markdown and commits it.
func (c *Coordinator) SaveEdit(html string) (uint64, error) {
	c.lock()
	defer c.unlock()

	if c.mode != ModeEdit {
		return 0, errors.ValidationError("not editing").Build()
	}
	text, err := editmode.ToMarkdown(html)
	if err != nil {
		return 0, err
	}
	rev, err := c.commitWholesale(text, events.CauseEdit)
	if err != nil {
		return 0, err
	}
	c.editSnapshot = nil
	c.dropConfirmation(ActionDiscardEdits)
	c.setMode(ModeBrowse)
	slog.Info("Edit saved", logfields.SessionID(c.cfg.SessionID), logfields.Revision(rev))
	return rev, nil
}

// CancelEdit parks a request to discard the edits. Confirm restores the text captured by
// BeginEdit.
func (c *Coordinator) CancelEdit() (Confirmation, error) {
	c.lock()
	defer c.unlock()

	if c.mode != ModeEdit {
		return Confirmation{}, errors.ValidationError("not editing").Build()
	}
	return c.park(ActionDiscardEdits), nil
}

// RequestReset parks a request to clear the report.
func (c *Coordinator) RequestReset() Confirmation {
	c.lock()
	defer c.unlock()
	return c.park(ActionResetReport)
}

// Confirm executes the parked action with id.
func (c *Coordinator) Confirm(id string) error {
	c.lock()
	defer c.unlock()

	conf, err := c.takeConfirmation(id)
	if err != nil {
		return err
	}

	switch conf.Action {
	case ActionDiscardEdits:
		if c.mode != ModeEdit || c.editSnapshot == nil {
			return errors.ValidationError("not editing").Build()
		}
		snap := *c.editSnapshot
		ix, err := c.builder.Build(snap.Text(), c.store.Revision()+1)
		if err != nil {
			return err
		}
		rev := c.store.Restore(snap)
		ix.Revision, ix.Tree.Revision = rev, rev
		c.index = ix
		c.editSnapshot = nil
		c.metrics.SetRevision(rev)
		c.emit(events.RevisionCommitted{
			SessionID: c.cfg.SessionID,
			Revision:  rev,
			Cause:     events.CauseRestore,
			Text:      ix.Text,
			At:        c.now(),
		})
		c.setMode(ModeBrowse)
	case ActionResetReport:
		c.editSnapshot = nil
		if _, err := c.commitWholesale("", events.CauseReset); err != nil {
			return err
		}
		c.topic = ""
		c.lastStatus = nil
		c.setMode(ModeBrowse)
	}
	slog.Info("Confirmed action",
		logfields.SessionID(c.cfg.SessionID),
		"action", string(conf.Action),
		"confirmation_id", conf.ID)
	return nil
}

// Decline drops the parked action with id.
func (c *Coordinator) Decline(id string) error {
	c.lock()
	defer c.unlock()

	conf, err := c.takeConfirmation(id)
	if err != nil {
		return err
	}
	slog.Info("Declined action",
		logfields.SessionID(c.cfg.SessionID),
		"action", string(conf.Action),
		"confirmation_id", conf.ID)
	return nil
}

// park replaces any earlier confirmation; only the latest request can be confirmed.
func (c *Coordinator) park(action Action) Confirmation {
	conf := Confirmation{ID: c.newID(), Action: action, CreatedAt: c.now()}
	c.confirmation = &conf
	c.emit(events.ConfirmationRequested{
		SessionID: c.cfg.SessionID,
		ID:        conf.ID,
		Action:    string(action),
		At:        conf.CreatedAt,
	})
	return conf
}

func (c *Coordinator) takeConfirmation(id string) (Confirmation, error) {
	if c.confirmation == nil || c.confirmation.ID != id {
		return Confirmation{}, errors.NotFoundError("no such confirmation").
			WithContext("confirmation_id", id).
			Build()
	}
	conf := *c.confirmation
	c.confirmation = nil
	return conf, nil
}

func (c *Coordinator) dropConfirmation(action Action) {
	if c.confirmation != nil && c.confirmation.Action == action {
		c.confirmation = nil
	}
}

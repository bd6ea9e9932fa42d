// Package coordinator is the single entry point that mutates a session's document.
//
// Every operation takes the coordinator's mutex for its whole turn, so operations never
// interleave. Events are collected during the turn and published to the bus after the
// mutex is released, in turn order.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsync/internal/document"
	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/patch"
	"git.home.luguber.info/inful/docsync/internal/protocol"
	"git.home.luguber.info/inful/docsync/internal/section"
	"git.home.luguber.info/inful/docsync/internal/transport"
)

// Mode is what the user is doing with the document.
type Mode string

const (
	ModeBrowse  Mode = "browse"
	ModeSection Mode = "section"
	ModeEdit    Mode = "edit"
)

// Config holds the coordinator's tunables.
type Config struct {
	SessionID           string
	RegenerationTimeout time.Duration
	// ExcerptLength caps, in runes, the section excerpt sent with a regenerate request.
	ExcerptLength  int
	PublishTimeout time.Duration
}

// Deps are the collaborators of a Coordinator. Store, Builder, Applier and Channel are
// required.
type Deps struct {
	Store   *document.Store
	Builder *section.Builder
	Applier *patch.Applier
	Channel transport.Channel
	Bus     *events.Bus
	Metrics metrics.Recorder
	Now     func() time.Time
	NewID   func() string
}

// Coordinator owns the session state: the current index, the pending regeneration,
// the mode and any parked confirmation.
type Coordinator struct {
	cfg     Config
	store   *document.Store
	builder *section.Builder
	applier *patch.Applier
	channel transport.Channel
	bus     *events.Bus
	metrics metrics.Recorder
	now     func() time.Time
	newID   func() string

	mu           sync.Mutex
	publishMu    sync.Mutex
	outbox       []events.Event
	index        *section.Index
	pending      map[string]*Pending
	timers       map[string]*time.Timer
	retired      retiredIDs
	mode         Mode
	topic        string
	lastStatus   *protocol.Status
	confirmation *Confirmation
	editSnapshot *document.Snapshot
	closed       bool
	closeReason  string
}

// New builds the initial index from the store's text.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if deps.Store == nil || deps.Builder == nil || deps.Applier == nil || deps.Channel == nil {
		return nil, errors.InternalError("coordinator requires store, builder, applier and channel").Build()
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.RegenerationTimeout <= 0 {
		cfg.RegenerationTimeout = 2 * time.Minute
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = 500
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopRecorder{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	doc := deps.Store.Document()
	ix, err := deps.Builder.Build(doc.Text, doc.Revision)
	if err != nil {
		return nil, err
	}

	deps.Metrics.SetRevision(doc.Revision)
	deps.Metrics.SetPending(0)

	return &Coordinator{
		cfg:     cfg,
		store:   deps.Store,
		builder: deps.Builder,
		applier: deps.Applier,
		channel: deps.Channel,
		bus:     deps.Bus,
		metrics: deps.Metrics,
		now:     deps.Now,
		newID:   deps.NewID,
		index:   ix,
		pending: make(map[string]*Pending),
		timers:  make(map[string]*time.Timer),
		mode:    ModeBrowse,
	}, nil
}

// SessionID returns the session this coordinator serves.
func (c *Coordinator) SessionID() string { return c.cfg.SessionID }

func (c *Coordinator) lock() { c.mu.Lock() }

// unlock ends a turn: it releases the mutex and publishes the events the turn queued.
func (c *Coordinator) unlock() {
	evts := c.outbox
	c.outbox = nil
	c.publishMu.Lock()
	c.mu.Unlock()
	defer c.publishMu.Unlock()

	if c.bus == nil {
		return
	}
	for _, evt := range evts {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PublishTimeout)
		if err := c.bus.Publish(ctx, evt); err != nil {
			slog.Warn("Failed to publish event",
				logfields.SessionID(c.cfg.SessionID),
				"event", evt.Kind(),
				logfields.Error(err))
		}
		cancel()
	}
}

func (c *Coordinator) emit(evt events.Event) { c.outbox = append(c.outbox, evt) }

// Index returns the current section index. Callers must not modify it.
func (c *Coordinator) Index() *section.Index {
	c.lock()
	defer c.unlock()
	return c.index
}

// Tree returns the current render tree.
func (c *Coordinator) Tree() section.Tree {
	c.lock()
	defer c.unlock()
	return c.index.Tree
}

// Document returns the store's text and revision.
func (c *Coordinator) Document() document.Document {
	return c.store.Document()
}

// State is a point-in-time view of the session.
type State struct {
	SessionID    string           `json:"session_id"`
	Mode         Mode             `json:"mode"`
	Topic        string           `json:"topic,omitempty"`
	Revision     uint64           `json:"revision"`
	Pending      *Pending         `json:"pending,omitempty"`
	LastStatus   *protocol.Status `json:"last_status,omitempty"`
	Confirmation *Confirmation    `json:"confirmation,omitempty"`
	Closed       bool             `json:"closed"`
	CloseReason  string           `json:"close_reason,omitempty"`
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.lock()
	defer c.unlock()

	st := State{
		SessionID:   c.cfg.SessionID,
		Mode:        c.mode,
		Topic:       c.topic,
		Revision:    c.store.Revision(),
		Closed:      c.closed,
		CloseReason: c.closeReason,
	}
	for _, p := range c.pending {
		cp := *p
		st.Pending = &cp
	}
	if c.lastStatus != nil {
		s := *c.lastStatus
		st.LastStatus = &s
	}
	if c.confirmation != nil {
		cf := *c.confirmation
		st.Confirmation = &cf
	}
	return st
}

// ReloadText replaces the document wholesale with text read from outside the session,
// such as the mirrored file on disk. Identical text is ignored.
func (c *Coordinator) ReloadText(text string) (uint64, error) {
	c.lock()
	defer c.unlock()
	if text == c.store.Text() {
		return c.store.Revision(), nil
	}
	rev, err := c.commitWholesale(text, events.CauseReload)
	if err != nil {
		return 0, err
	}
	slog.Info("Document reloaded", logfields.SessionID(c.cfg.SessionID), logfields.Revision(rev))
	return rev, nil
}

// commitWholesale sets the store text and rebuilds the index. Pending regenerations
// target sections of the old text, so they are abandoned.
func (c *Coordinator) commitWholesale(text, cause string) (uint64, error) {
	ix, err := c.builder.Build(text, c.store.Revision()+1)
	if err != nil {
		return 0, err
	}
	rev := c.store.SetText(text)
	ix.Revision, ix.Tree.Revision = rev, rev
	c.index = ix
	c.abandonPending("document replaced")
	c.metrics.SetRevision(rev)
	c.emit(events.RevisionCommitted{
		SessionID: c.cfg.SessionID,
		Revision:  rev,
		Cause:     cause,
		Text:      text,
		At:        c.now(),
	})
	return rev, nil
}

func (c *Coordinator) setMode(m Mode) {
	if c.mode == m {
		return
	}
	c.mode = m
	c.emit(events.ModeChanged{SessionID: c.cfg.SessionID, Mode: string(m), At: c.now()})
}

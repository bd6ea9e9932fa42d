package journal

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Recorder appends every committed revision published on the bus to the journal.
type Recorder struct {
	store       *Store
	ch          <-chan events.RevisionCommitted
	unsubscribe func()
}

// NewRecorder subscribes to the bus immediately so no revision committed before Run
// starts is missed. Run must be called for publishers to make progress.
func NewRecorder(store *Store, bus *events.Bus) *Recorder {
	ch, unsubscribe := events.Subscribe[events.RevisionCommitted](bus, 16)
	return &Recorder{store: store, ch: ch, unsubscribe: unsubscribe}
}

// Run records revisions until ctx is done or the bus closes.
func (r *Recorder) Run(ctx context.Context) error {
	ch, unsubscribe := r.ch, r.unsubscribe
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			r.record(ctx, evt)
		case <-ctx.Done():
			// Keep draining so a publisher blocked on this subscription can finish
			// while the subscription is removed. Revisions already delivered are
			// still recorded.
			go unsubscribe()
			flush := context.WithoutCancel(ctx)
			for evt := range ch {
				r.record(flush, evt)
			}
			return ctx.Err()
		}
	}
}

func (r *Recorder) record(ctx context.Context, evt events.RevisionCommitted) {
	_, err := r.store.Append(ctx, Entry{
		SessionID:  evt.SessionID,
		Revision:   evt.Revision,
		Cause:      evt.Cause,
		Section:    evt.Section,
		RequestID:  evt.RequestID,
		Text:       evt.Text,
		RecordedAt: evt.At,
	})
	if err != nil {
		slog.Error("Failed to journal revision",
			logfields.SessionID(evt.SessionID),
			logfields.Revision(evt.Revision),
			logfields.Error(err))
		return
	}
	slog.Debug("Journaled revision",
		logfields.SessionID(evt.SessionID),
		logfields.Revision(evt.Revision),
		"cause", evt.Cause)
}

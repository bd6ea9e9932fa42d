package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Mirror writes every committed revision to the document file. Revisions read
// back from disk are not written out again.
type Mirror struct {
	path        string
	ch          <-chan events.RevisionCommitted
	unsubscribe func()
}

// NewMirror subscribes immediately; Run must be called for publishers to make
// progress.
func NewMirror(path string, bus *events.Bus) *Mirror {
	ch, unsubscribe := events.Subscribe[events.RevisionCommitted](bus, 4)
	return &Mirror{path: path, ch: ch, unsubscribe: unsubscribe}
}

// Run writes revisions until ctx is done or the bus closes.
func (m *Mirror) Run(ctx context.Context) error {
	ch, unsubscribe := m.ch, m.unsubscribe
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if evt.Cause == events.CauseReload {
				continue
			}
			if err := WriteFile(m.path, evt.Text); err != nil {
				slog.Error("Failed to mirror revision",
					logfields.SessionID(evt.SessionID),
					logfields.Revision(evt.Revision),
					logfields.Error(err))
			}
		case <-ctx.Done():
			go unsubscribe()
			for range ch {
			}
			return ctx.Err()
		}
	}
}

// WriteFile replaces path with text through a temporary file in the same
// directory, so readers never see a partial document.
func WriteFile(path, text string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to create temporary document").
			WithContext("path", path).
			Build()
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write document").
			WithContext("path", path).
			Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to close document").
			WithContext("path", path).
			Build()
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to replace document").
			WithContext("path", path).
			Build()
	}
	return nil
}

// Package watch mirrors the session document between the store and a markdown
// file on disk.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Reloader accepts the document text read back from disk.
type Reloader interface {
	ReloadText(text string) (uint64, error)
}

// Watcher reloads the document whenever the file changes on disk.
type Watcher struct {
	path     string
	reloader Reloader
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

// NewWatcher watches path. The debounce window coalesces bursts of writes; zero
// selects 200ms.
func NewWatcher(path string, reloader Reloader, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve document path").
			WithContext("path", path).
			Build()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create file watcher").Build()
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{
		path:     abs,
		reloader: reloader,
		watcher:  fw,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is watched rather than the file so that
// editors replacing the file by rename keep being observed.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch document directory").
			WithContext("dir", dir).
			Build()
	}
	slog.Info("Watching document", logfields.Path(w.path))
	go w.loop(ctx)
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.stop)
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				w.schedule()
			case event.Has(fsnotify.Remove):
				slog.Warn("Document file removed", logfields.Path(event.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Document watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		// A rename in progress leaves the path briefly absent; the Create that
		// follows schedules another read.
		slog.Debug("Document not readable", logfields.Path(w.path), logfields.Error(err))
		return
	}
	rev, err := w.reloader.ReloadText(string(data))
	if err != nil {
		slog.Error("Failed to reload document", logfields.Path(w.path), logfields.Error(err))
		return
	}
	slog.Debug("Document file read", logfields.Path(w.path), logfields.Revision(rev))
}

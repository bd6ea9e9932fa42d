package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/events"
)

type recordingReloader struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingReloader) ReloadText(text string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return uint64(len(r.texts)), nil
}

func (r *recordingReloader) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, os.WriteFile(path, []byte("# Draft\n"), 0o600))

	rec := &recordingReloader{}
	w, err := NewWatcher(path, rec, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(path, []byte("# Draft\n\n## Added\nText\n"), 0o600))
	require.Eventually(t, func() bool {
		return rec.last() == "# Draft\n\n## Added\nText\n"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o600))

	rec := &recordingReloader{}
	w, err := NewWatcher(path, rec, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("y\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, w.Stop())
	require.Empty(t, rec.last())
	require.NoError(t, w.Stop())
}

func TestMirror_WritesCommittedRevisions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	bus := events.NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMirror(path, bus)
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	require.Eventually(t, func() bool {
		return events.SubscriberCount[events.RevisionCommitted](bus) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, events.RevisionCommitted{Revision: 2, Cause: "patch", Text: "## A\nnew\n"}))
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "## A\nnew\n"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, events.RevisionCommitted{Revision: 3, Cause: events.CauseReload, Text: "ignored\n"}))
	require.NoError(t, bus.Publish(ctx, events.RevisionCommitted{Revision: 4, Cause: "edit", Text: "## A\nedited\n"}))
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		return err == nil && string(data) == "## A\nedited\n"
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWriteFile_ReplacesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, WriteFile(path, "one"))
	require.NoError(t, WriteFile(path, "two"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

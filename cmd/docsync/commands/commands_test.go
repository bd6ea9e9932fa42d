package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/journal"
)

const sampleDoc = "# Report\n\n## Intro\n\nFirst draft.\n\n## Details\n\n" +
	"Line one.\nLine two.\nLine three.\nLine four.\nLine five.\nLine six.\n"

func setup(t *testing.T) (*Global, *CLI, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	doc := filepath.Join(dir, "report.md")
	require.NoError(t, os.WriteFile(doc, []byte(sampleDoc), 0o600))
	out := &bytes.Buffer{}
	return &Global{Out: out}, &CLI{Config: filepath.Join(dir, "docsync.yaml")}, out, doc
}

func TestSectionsCmd(t *testing.T) {
	g, _, out, doc := setup(t)
	require.NoError(t, (&SectionsCmd{File: doc}).Run(g))
	text := out.String()
	require.Contains(t, text, "TITLE")
	require.Contains(t, text, "Report")
	require.Contains(t, text, "  Intro")
	require.Contains(t, text, "  Details")

	out.Reset()
	require.NoError(t, (&SectionsCmd{File: doc, JSON: true}).Run(g))
	var secs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &secs))
	require.Len(t, secs, 3)
}

func TestLocateCmd(t *testing.T) {
	g, _, out, doc := setup(t)
	require.NoError(t, (&LocateCmd{File: doc, Title: "Intro", Body: true}).Run(g))
	require.Contains(t, out.String(), "Intro (level 2, line 3, exact match)")
	require.Contains(t, out.String(), "First draft.")

	out.Reset()
	require.NoError(t, (&LocateCmd{File: doc, Title: "detail"}).Run(g))
	require.Contains(t, out.String(), "fuzzy match")

	err := (&LocateCmd{File: doc, Title: "Nowhere"}).Run(g)
	require.Equal(t, errors.CategoryNotFound, errors.GetCategory(err))
}

func TestPatchCmd(t *testing.T) {
	g, root, out, doc := setup(t)
	content := filepath.Join(filepath.Dir(doc), "intro.md")
	require.NoError(t, os.WriteFile(content, []byte("Second **draft**."), 0o600))

	require.NoError(t, (&PatchCmd{File: doc, Section: "Intro", Content: content}).Run(g, root))
	require.Contains(t, out.String(), "Second **draft**.")
	require.NotContains(t, out.String(), "First draft.")
	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	require.Equal(t, sampleDoc, string(data))

	out.Reset()
	require.NoError(t, (&PatchCmd{File: doc, Section: "Intro", Content: content, Write: true}).Run(g, root))
	require.Empty(t, out.String())
	data, err = os.ReadFile(doc)
	require.NoError(t, err)
	require.Contains(t, string(data), "Second **draft**.")
	require.Contains(t, string(data), "Line six.")
}

func TestPatchCmd_GuardRejects(t *testing.T) {
	g, root, _, doc := setup(t)
	content := filepath.Join(filepath.Dir(doc), "huge.md")
	require.NoError(t, os.WriteFile(content, []byte(strings.Repeat("word ", 200)), 0o600))

	err := (&PatchCmd{File: doc, Section: "Intro", Content: content, Write: true}).Run(g, root)
	require.Equal(t, errors.CategoryValidation, errors.GetCategory(err))
	data, rerr := os.ReadFile(doc)
	require.NoError(t, rerr)
	require.Equal(t, sampleDoc, string(data))
}

func TestConvertCmd(t *testing.T) {
	g, _, out, doc := setup(t)
	html := filepath.Join(filepath.Dir(doc), "edit.html")
	require.NoError(t, os.WriteFile(html, []byte("<h2>Intro</h2><p>Hello <b>world</b></p>"), 0o600))
	require.NoError(t, (&ConvertCmd{File: html}).Run(g))
	require.Equal(t, "## Intro\n\nHello **world**\n", out.String())
}

func TestInitCmd(t *testing.T) {
	g, root, out, _ := setup(t)
	require.NoError(t, (&InitCmd{}).Run(g, root))
	require.Contains(t, out.String(), root.Config)

	cfg, err := root.LoadConfig(false)
	require.NoError(t, err)
	require.Equal(t, "report.md", cfg.Document.Path)

	err = (&InitCmd{}).Run(g, root)
	require.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
	require.NoError(t, (&InitCmd{Force: true}).Run(g, root))
}

func TestHistoryCmd(t *testing.T) {
	g, root, out, doc := setup(t)
	dbPath := filepath.Join(filepath.Dir(doc), "journal.db")
	store, err := journal.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = store.Append(ctx, journal.Entry{SessionID: "s1", Revision: 0, Cause: "report", Text: sampleDoc, RecordedAt: at})
	require.NoError(t, err)
	_, err = store.Append(ctx, journal.Entry{SessionID: "s1", Revision: 1, Cause: "patch", Section: "Intro", RequestID: "req-1", Text: "patched", RecordedAt: at.Add(time.Minute)})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, (&HistoryCmd{Journal: dbPath}).Run(g, root))
	require.Equal(t, "s1\n", out.String())

	out.Reset()
	require.NoError(t, (&HistoryCmd{Journal: dbPath, Session: "s1", Limit: 10}).Run(g, root))
	require.Contains(t, out.String(), "req-1")
	require.Contains(t, out.String(), "report")

	out.Reset()
	require.NoError(t, (&HistoryCmd{Journal: dbPath, Session: "s1", Revision: 1}).Run(g, root))
	require.Equal(t, "patched", out.String())

	out.Reset()
	require.NoError(t, (&HistoryCmd{Journal: dbPath, Session: "s1", Summary: true}).Run(g, root))
	var sum journal.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &sum))
	require.Equal(t, 2, sum.Entries)
	require.Equal(t, 1, sum.Sections["Intro"])

	err = (&HistoryCmd{}).Run(g, root)
	require.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

func TestServeCmd_ApplyOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Session.Topic = "Solar"
	s := &ServeCmd{Addr: "127.0.0.1:9999", Document: "out.md", Watch: true, Transport: "nats", Timeout: time.Minute}
	require.NoError(t, s.apply(cfg))
	require.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	require.Equal(t, "out.md", cfg.Document.Path)
	require.True(t, cfg.Document.Watch)
	require.Equal(t, config.TransportNATS, cfg.Collaborator.Transport)
	require.Equal(t, time.Minute, cfg.Collaborator.RegenerationTimeout)
	require.Equal(t, "Solar", s.Research)

	bad := &ServeCmd{Transport: "carrier-pigeon"}
	err := bad.apply(config.Default())
	require.Equal(t, errors.CategoryConfig, errors.GetCategory(err))
}

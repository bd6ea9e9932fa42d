package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/journal"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Journal  string `help:"Journal database (overrides journal.path)" type:"path"`
	Session  string `help:"Session to inspect; lists sessions when empty"`
	Revision uint64 `help:"Print the document text recorded at this revision"`
	Limit    int    `default:"20" help:"Maximum number of entries to list (0 for all)"`
	Summary  bool   `help:"Print a summary of the session instead of its entries"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(true)
	if err != nil {
		return err
	}
	path := h.journalPath(cfg)
	if path == "" {
		return errors.ConfigError("no journal configured").
			WithContext("field", "journal.path").
			UserAction().
			Build()
	}
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	switch {
	case h.Session == "":
		return h.listSessions(ctx, g, store)
	case h.Revision > 0:
		e, err := store.Get(ctx, h.Session, h.Revision)
		if err != nil {
			return err
		}
		fmt.Fprint(g.out(), e.Text)
		return nil
	case h.Summary:
		entries, err := store.History(ctx, h.Session, 0)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(journal.Summarize(h.Session, entries))
	default:
		entries, err := store.History(ctx, h.Session, h.Limit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REV\tCAUSE\tSECTION\tREQUEST\tRECORDED")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Revision, e.Cause, e.Section, e.RequestID, e.RecordedAt.Format(time.RFC3339))
		}
		return w.Flush()
	}
}

func (h *HistoryCmd) journalPath(cfg *config.Config) string {
	if h.Journal != "" {
		return h.Journal
	}
	return cfg.Journal.Path
}

func (h *HistoryCmd) listSessions(ctx context.Context, g *Global, store *journal.Store) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Fprintln(g.out(), s)
	}
	return nil
}

package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/daemon"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Document  string        `short:"d" help:"Markdown file mirrored by the session (overrides document.path)" type:"path"`
	Addr      string        `help:"Display server listen address (overrides server.addr)"`
	Session   string        `help:"Session id (overrides session.id)"`
	Research  string        `help:"Start a research run on this topic once connected"`
	Watch     bool          `help:"Reload the document when the file changes on disk"`
	Transport string        `help:"Collaborator transport: websocket or nats (overrides collaborator.transport)"`
	Timeout   time.Duration `help:"Regeneration timeout (overrides collaborator.regeneration_timeout)"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig(true)
	if err != nil {
		return err
	}
	root.ConfigureFromFile(g, cfg)
	if err := s.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunServe(ctx, cfg, daemon.Options{ResearchTopic: s.Research})
}

// apply folds command-line overrides into cfg and re-validates it.
func (s *ServeCmd) apply(cfg *config.Config) error {
	if s.Document != "" {
		cfg.Document.Path = s.Document
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}
	if s.Session != "" {
		cfg.Session.ID = s.Session
	}
	if s.Watch {
		cfg.Document.Watch = true
	}
	if s.Transport != "" {
		cfg.Collaborator.Transport = config.Transport(s.Transport)
	}
	if s.Timeout > 0 {
		cfg.Collaborator.RegenerationTimeout = s.Timeout
	}
	if s.Research == "" {
		s.Research = cfg.Session.Topic
	}
	config.Normalize(cfg)
	return config.Validate(cfg)
}

// RunServe runs a session until ctx is done.
func RunServe(ctx context.Context, cfg *config.Config, opts daemon.Options) error {
	d, err := daemon.New(cfg, opts)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	slog.Info("Session running, waiting for shutdown signal...")
	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping session...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	return d.Stop(stopCtx)
}

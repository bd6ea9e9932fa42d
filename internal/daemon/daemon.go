// Package daemon assembles one docsync session: the document store and section
// index, the collaborator channel, the coordinator, and the supporting journal,
// file mirror, metrics and display server.
package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/coordinator"
	"git.home.luguber.info/inful/docsync/internal/document"
	"git.home.luguber.info/inful/docsync/internal/events"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/journal"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/markdown"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/patch"
	"git.home.luguber.info/inful/docsync/internal/retry"
	"git.home.luguber.info/inful/docsync/internal/section"
	"git.home.luguber.info/inful/docsync/internal/server/httpserver"
	"git.home.luguber.info/inful/docsync/internal/transport"
	"git.home.luguber.info/inful/docsync/internal/watch"
)

// Status represents the current state of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	// StatusDegraded means the collaborator channel was lost; the document is still
	// served but no regeneration can be issued.
	StatusDegraded Status = "degraded"
	StatusStopping Status = "stopping"
)

// DialFunc opens the collaborator channel for a session.
type DialFunc func(ctx context.Context, cfg config.CollaboratorConfig, sessionID string) (transport.Channel, error)

// Options carries injectable collaborators, mainly for tests.
type Options struct {
	Dial DialFunc
	// ResearchTopic, when set, starts a research run once the session is up.
	ResearchTopic string
}

// Daemon runs one session until stopped.
type Daemon struct {
	cfg    *config.Config
	opts   Options
	status atomic.Value // Status

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	bus       *events.Bus
	channel   transport.Channel
	coord     *coordinator.Coordinator
	journal   *journal.Store
	pruner    *journal.Pruner
	watcher   *watch.Watcher
	server    *httpserver.Server
	startTime time.Time
}

// New validates cfg and prepares a daemon. Nothing is opened until Start.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration is required").Build()
	}
	if opts.Dial == nil {
		opts.Dial = Dial
	}
	if cfg.Session.ID == "" {
		cfg.Session.ID = uuid.NewString()
	}
	d := &Daemon{cfg: cfg, opts: opts}
	d.status.Store(StatusStopped)
	return d, nil
}

// Dial opens the channel selected by cfg.Transport.
func Dial(ctx context.Context, cfg config.CollaboratorConfig, sessionID string) (transport.Channel, error) {
	switch cfg.Transport {
	case config.TransportNATS:
		return transport.ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix, sessionID, transport.NATSOptions{
			DialTimeout: cfg.DialTimeout,
			Name:        "docsync-" + sessionID,
		})
	default:
		return transport.DialWebSocket(ctx, cfg.URL, sessionID, transport.WebSocketOptions{
			DialTimeout:  cfg.DialTimeout,
			PingInterval: cfg.PingInterval,
		})
	}
}

func (d *Daemon) Status() Status { return d.status.Load().(Status) }

// Coordinator returns the session coordinator once started.
func (d *Daemon) Coordinator() *coordinator.Coordinator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.coord
}

// Addr returns the display server's bound address once started.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// Start opens every component and returns once the display server is listening.
// A failure closes whatever was already opened.
func (d *Daemon) Start(ctx context.Context) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Status() != StatusStopped {
		return errors.RuntimeError("daemon already started").Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = time.Now()

	runCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	defer func() {
		if err != nil {
			d.teardown(ctx)
		}
	}()

	cfg := d.cfg
	text, err := readDocument(cfg.Document.Path)
	if err != nil {
		return err
	}

	store := document.NewStore(text)
	builder := section.NewBuilder(markdown.NewRenderer(markdown.Options{GFM: true}), section.NewSequence("n"))
	applier := patch.NewApplier(store, builder, cfg.Patch.Limits())
	d.bus = events.NewBus()

	var reg *prometheus.Registry
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	// Journal and mirror subscribe before the coordinator can publish.
	if cfg.Journal.Path != "" {
		if d.journal, err = journal.Open(cfg.Journal.Path); err != nil {
			return err
		}
		rec := journal.NewRecorder(d.journal, d.bus)
		d.spawn(func() { _ = rec.Run(runCtx) })
		if cfg.Journal.Retention > 0 {
			if d.pruner, err = journal.NewPruner(d.journal, cfg.Journal.Retention, cfg.Journal.PruneInterval); err != nil {
				return err
			}
			d.pruner.Start()
		}
	}
	if cfg.Document.Path != "" {
		mirror := watch.NewMirror(cfg.Document.Path, d.bus)
		d.spawn(func() { _ = mirror.Run(runCtx) })
	}

	d.channel, err = retry.Do(ctx, cfg.Collaborator.ConnectRetry.Policy(), "connect",
		func(ctx context.Context) (transport.Channel, error) {
			return d.opts.Dial(ctx, cfg.Collaborator, cfg.Session.ID)
		})
	if err != nil {
		return err
	}

	d.coord, err = coordinator.New(coordinator.Config{
		SessionID:           cfg.Session.ID,
		RegenerationTimeout: cfg.Collaborator.RegenerationTimeout,
		ExcerptLength:       cfg.Patch.ExcerptLength,
	}, coordinator.Deps{
		Store:   store,
		Builder: builder,
		Applier: applier,
		Channel: d.channel,
		Bus:     d.bus,
		Metrics: recorder,
	})
	if err != nil {
		return err
	}

	if cfg.Document.Path != "" && cfg.Document.Watch {
		if d.watcher, err = watch.NewWatcher(cfg.Document.Path, d.coord, 0); err != nil {
			return err
		}
		if err = d.watcher.Start(runCtx); err != nil {
			return err
		}
	}

	d.server = httpserver.New(cfg.Server.Addr, d.coord, d.bus, httpserver.Options{Registry: reg})
	if err = d.server.Start(ctx); err != nil {
		return err
	}

	coord := d.coord
	d.spawn(func() {
		if err := coord.Run(runCtx); err != nil && runCtx.Err() == nil {
			slog.Warn("Collaborator channel ended", logfields.SessionID(cfg.Session.ID), logfields.Error(err))
			d.status.CompareAndSwap(StatusRunning, StatusDegraded)
		}
	})

	if d.opts.ResearchTopic != "" {
		if err = coord.StartResearch(ctx, d.opts.ResearchTopic); err != nil {
			return err
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("Session started",
		logfields.SessionID(cfg.Session.ID),
		logfields.Transport(string(cfg.Collaborator.Transport)),
		logfields.Revision(store.Revision()),
		slog.String("addr", d.server.Addr()))
	return nil
}

func (d *Daemon) spawn(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// Stop shuts every component down in reverse order of Start.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.Status() {
	case StatusStopped, StatusStopping:
		return nil
	}
	d.status.Store(StatusStopping)
	err := d.teardown(ctx)
	slog.Info("Session stopped", logfields.SessionID(d.cfg.Session.ID), slog.Duration("uptime", time.Since(d.startTime)))
	return err
}

// teardown releases components; it tolerates a partially started daemon.
func (d *Daemon) teardown(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.server != nil {
		keep(d.server.Stop(ctx))
	}
	if d.watcher != nil {
		keep(d.watcher.Stop())
	}
	if d.pruner != nil {
		keep(d.pruner.Stop())
	}
	if d.channel != nil {
		keep(d.channel.Close())
	}
	d.wg.Wait()
	if d.bus != nil {
		d.bus.Close()
	}
	if d.journal != nil {
		keep(d.journal.Close())
	}
	d.server, d.watcher, d.pruner, d.channel, d.journal = nil, nil, nil, nil, nil
	d.status.Store(StatusStopped)
	return first
}

// readDocument returns the file's text, or "" when it does not exist yet.
func readDocument(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.WrapError(err, errors.CategoryFileSystem, "failed to read document").
			WithContext("path", path).
			Build()
	}
	return string(data), nil
}

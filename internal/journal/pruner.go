package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// Pruner periodically removes journal entries older than the retention window.
type Pruner struct {
	scheduler gocron.Scheduler
	store     *Store
	retention time.Duration
	now       func() time.Time
}

// NewPruner schedules pruning every interval.
func NewPruner(store *Store, retention, interval time.Duration) (*Pruner, error) {
	if retention <= 0 || interval <= 0 {
		return nil, errors.ConfigError("journal retention and prune interval must be positive").
			WithContext("retention", retention.String()).
			WithContext("interval", interval.String()).
			Build()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create gocron scheduler").Build()
	}

	p := &Pruner{scheduler: s, store: store, retention: retention, now: time.Now}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.run),
		gocron.WithName("journal-prune"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create prune job").Build()
	}
	return p, nil
}

// Start begins the schedule.
func (p *Pruner) Start() {
	slog.Info("Starting journal pruner", "retention", p.retention.String())
	p.scheduler.Start()
}

// Stop shuts the scheduler down.
func (p *Pruner) Stop() error {
	return p.scheduler.Shutdown()
}

// PruneOnce deletes entries older than the retention window now.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	return p.store.Prune(ctx, p.now().Add(-p.retention))
}

func (p *Pruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := p.PruneOnce(ctx)
	if err != nil {
		slog.Error("Journal prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Pruned journal", "removed", n)
	}
}

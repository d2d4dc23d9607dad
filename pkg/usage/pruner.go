package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// PrunerConfig contains configuration for the retention pruner.
type PrunerConfig struct {
	// RetentionDays is the number of days to retain turn records.
	// 0 keeps records forever.
	RetentionDays int

	// Schedule is a cron expression for when pruning runs.
	// Example: "0 3 * * *" (daily at 3 AM)
	Schedule string
}

// Pruner deletes turn records past the retention window on a cron schedule.
type Pruner struct {
	store  *Store
	config PrunerConfig
	cron   *cron.Cron
	logger *slog.Logger
}

// NewPruner creates a retention pruner.
func NewPruner(store *Store, cfg PrunerConfig) *Pruner {
	return &Pruner{
		store:  store,
		config: cfg,
		cron:   cron.New(),
		logger: slog.Default().With("component", "usage.pruner"),
	}
}

// Start begins scheduled pruning. It is a no-op when retention is unlimited.
func (p *Pruner) Start(ctx context.Context) error {
	if p.config.RetentionDays <= 0 {
		p.logger.Info("retention unlimited, pruner disabled")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.config.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.config.Schedule, func() { p.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.logger.Info("usage pruner started",
		"retention_days", p.config.RetentionDays,
		"schedule", p.config.Schedule,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// RunOnce prunes everything past the retention window immediately.
func (p *Pruner) RunOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	deleted, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		p.logger.Error("usage pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("pruned old turn records", "deleted", deleted, "cutoff", cutoff)
	}
}

// Stop halts scheduled pruning.
func (p *Pruner) Stop() {
	p.cron.Stop()
}

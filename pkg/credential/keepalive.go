package credential

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Keepalive proactively renews the guest session on a cron schedule, keeping
// the same identity alive instead of waiting for an authentication failure.
// Renewal goes through Manager.Refresh, so it contends on the same gate as
// on-demand recovery and never races it.
type Keepalive struct {
	manager  *Manager
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewKeepalive creates a scheduled renewal job. An empty schedule disables it.
func NewKeepalive(manager *Manager, schedule string) *Keepalive {
	return &Keepalive{
		manager:  manager,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "credential.keepalive"),
	}
}

// Start begins scheduled renewal. It is a no-op when no schedule is
// configured.
func (k *Keepalive) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.schedule == "" {
		k.logger.Info("renew schedule not configured, skipping keep-alive")
		return nil
	}

	if _, err := cron.ParseStandard(k.schedule); err != nil {
		return fmt.Errorf("invalid renew schedule %q: %w", k.schedule, err)
	}

	_, err := k.cron.AddFunc(k.schedule, func() {
		k.logger.Info("running scheduled credential renewal")
		if !k.manager.Refresh(ctx, false) {
			k.logger.Warn("scheduled credential renewal failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule credential renewal: %w", err)
	}

	k.cron.Start()
	k.running = true
	k.logger.Info("credential keep-alive started", "schedule", k.schedule)

	go func() {
		<-ctx.Done()
		k.Stop()
	}()

	return nil
}

// Stop halts scheduled renewal.
func (k *Keepalive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.running {
		return
	}
	k.cron.Stop()
	k.running = false
	k.logger.Info("credential keep-alive stopped")
}

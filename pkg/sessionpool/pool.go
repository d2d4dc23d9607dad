// Package sessionpool maintains a pool of pre-created backend chat sessions
// so that chat turns never pay session-creation latency on the hot path.
package sessionpool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/h2ogate/h2ogate/pkg/telemetry/metrics"
)

// SessionClient is the slice of the backend client the pool needs.
type SessionClient interface {
	CreateChatSession(ctx context.Context) (string, error)
	DeleteChatSession(ctx context.Context, sessionID string) error
}

// Config contains configuration for a Pool.
type Config struct {
	// TargetSize is the number of ready sessions the replenisher maintains.
	TargetSize int

	// ReplenishInterval is how often the replenisher checks the pool level.
	ReplenishInterval time.Duration
}

// Pool hands out pre-warmed chat sessions and disposes of used ones in the
// background. Sessions are single-use: a turn acquires one, runs on it, and
// recycles it afterwards.
//
// When the pool is empty Acquire creates a session synchronously rather than
// failing; slower for that one caller, but the replenisher catches up within
// one interval.
type Pool struct {
	client   SessionClient
	target   int
	interval time.Duration

	ready   chan string
	cleanup chan string

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *metrics.Collector
	logger  *slog.Logger
}

// New creates a session pool. The metrics collector may be nil.
func New(client SessionClient, cfg Config, collector *metrics.Collector) *Pool {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = 3
	}
	if cfg.ReplenishInterval <= 0 {
		cfg.ReplenishInterval = 2 * time.Second
	}

	return &Pool{
		client:   client,
		target:   cfg.TargetSize,
		interval: cfg.ReplenishInterval,
		ready:    make(chan string, cfg.TargetSize),
		cleanup:  make(chan string, 64),
		metrics:  collector,
		logger:   slog.Default().With("component", "sessionpool"),
	}
}

// Start launches the replenisher and the cleanup worker.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.replenisher(ctx)
	go p.cleanupWorker(ctx)

	p.logger.Info("session pool started", "target", p.target, "interval", p.interval)
}

// Stop halts the background workers and best-effort deletes every session
// still queued, so abandoned sessions do not pile up on the backend.
func (p *Pool) Stop(ctx context.Context) {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	for {
		select {
		case id := <-p.ready:
			p.deleteSession(ctx, id)
		case id := <-p.cleanup:
			p.deleteSession(ctx, id)
		default:
			p.logger.Info("session pool stopped")
			return
		}
	}
}

// Acquire returns a ready session id, creating one on demand when the pool
// is empty.
func (p *Pool) Acquire(ctx context.Context) (string, error) {
	select {
	case id := <-p.ready:
		p.setGauge()
		p.logger.Debug("acquired pooled session", "session_id", id, "remaining", len(p.ready))
		return id, nil
	default:
	}

	p.logger.Warn("session pool empty, creating session on demand")
	id, err := p.client.CreateChatSession(ctx)
	if err != nil {
		return "", err
	}
	p.recordCreated("on_demand")
	return id, nil
}

// Recycle schedules a used session for background deletion. It never blocks;
// when the cleanup queue is full the session is abandoned on the backend,
// which only costs backend-side storage until its own expiry.
func (p *Pool) Recycle(sessionID string) {
	select {
	case p.cleanup <- sessionID:
		p.logger.Debug("session scheduled for cleanup", "session_id", sessionID)
	default:
		p.logger.Warn("cleanup queue full, abandoning session", "session_id", sessionID)
	}
}

// Ready reports the number of sessions currently queued.
func (p *Pool) Ready() int {
	return len(p.ready)
}

func (p *Pool) replenisher(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Fill immediately instead of waiting out the first interval.
	p.replenish(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.replenish(ctx)
		}
	}
}

func (p *Pool) replenish(ctx context.Context) {
	needed := p.target - len(p.ready)
	if needed <= 0 {
		return
	}
	p.logger.Info("replenishing session pool", "ready", len(p.ready), "needed", needed)

	var wg sync.WaitGroup
	for i := 0; i < needed; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := p.client.CreateChatSession(ctx)
			if err != nil {
				p.logger.Error("failed to create pooled session", "error", err)
				return
			}
			select {
			case p.ready <- id:
				p.recordCreated("replenish")
			default:
				// The pool filled while this create was in flight.
				p.Recycle(id)
			}
		}()
	}
	wg.Wait()
	p.setGauge()
}

func (p *Pool) cleanupWorker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.cleanup:
			p.deleteSession(ctx, id)
		}
	}
}

func (p *Pool) deleteSession(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := p.client.DeleteChatSession(ctx, id); err != nil {
		p.logger.Warn("failed to delete session", "session_id", id, "error", err)
		p.recordDeleted("failure")
		return
	}
	p.logger.Debug("session deleted", "session_id", id)
	p.recordDeleted("success")
}

func (p *Pool) setGauge() {
	if p.metrics != nil {
		p.metrics.SetPoolReady(len(p.ready))
	}
}

func (p *Pool) recordCreated(mode string) {
	if p.metrics != nil {
		p.metrics.RecordPoolCreated(mode)
	}
}

func (p *Pool) recordDeleted(outcome string) {
	if p.metrics != nil {
		p.metrics.RecordPoolDeleted(outcome)
	}
}

package credential

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/h2ogate/h2ogate/pkg/telemetry/metrics"
)

// Manager owns the process's active credential and the refresh protocol
// around the Store. It guarantees at most one network renewal or acquisition
// in flight at any instant: concurrent callers that hit an authentication
// failure wait on the gate and then reuse the credential the winner fetched.
type Manager struct {
	store     *Store
	guestMode bool
	metrics   *metrics.Collector
	logger    *slog.Logger

	// gate serializes the renew/acquire network step. It is held only
	// across that step, never across whole backend calls.
	gate sync.Mutex

	// mu protects current for the shared-read, single-writer access
	// pattern. The writer is always a gate holder (or initialization).
	mu      sync.RWMutex
	current *Credential

	// generation counts successful refreshes. Callers that waited on the
	// gate compare it against the value they saw before blocking to detect
	// that another caller already did the work.
	generation atomic.Uint64
}

// NewManager creates a lifecycle manager over the given store.
//
// In guest mode the persisted record, if any, becomes the initial credential.
// In static mode the operator-supplied credential is fixed at startup and
// renewals update only the in-memory copy. The metrics collector may be nil.
func NewManager(store *Store, guestMode bool, static *Credential, collector *metrics.Collector) *Manager {
	m := &Manager{
		store:     store,
		guestMode: guestMode,
		metrics:   collector,
		logger:    slog.Default().With("component", "credential.manager"),
	}

	if guestMode {
		if cred, ok := store.Load(); ok {
			m.current = cred
			m.logger.Info("loaded persisted credential", "username", cred.Username)
		}
	} else if static.Ready() {
		m.current = static
	}

	return m
}

// Current returns a snapshot of the active credential. The zero Credential
// is returned when none is available.
func (m *Manager) Current() Credential {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Credential{}
	}
	return *m.current
}

// HasCredential reports whether a usable credential is currently held.
func (m *Manager) HasCredential() bool {
	cur := m.Current()
	return cur.Ready()
}

// Adopt installs an externally supplied credential (e.g. a hot-reloaded
// file record) as the active one. Incomplete credentials are ignored.
func (m *Manager) Adopt(cred *Credential) {
	if !cred.Ready() {
		return
	}
	m.setCurrent(cred)
	m.logger.Info("adopted externally updated credential", "username", cred.Username)
}

// EnsureReady reports whether a session token and anti-forgery token are
// available, refreshing first when guest mode allows it. In static mode a
// missing credential is operator misconfiguration and no recovery is
// attempted.
func (m *Manager) EnsureReady(ctx context.Context) bool {
	cur := m.Current()
	if cur.Ready() {
		return true
	}

	if m.guestMode {
		return m.Refresh(ctx, false)
	}

	m.logger.Error("static credentials missing; configure session and csrf_token")
	return false
}

// Refresh recovers a usable credential. Unless forceFresh is set it prefers
// renewing the existing identity (keeping the same account and its quota)
// and only falls back to acquiring a brand-new guest. forceFresh skips
// renewal entirely, for quota-exhaustion recovery.
//
// Callers that arrive while another refresh is running block on the gate and
// then short-circuit to success if the winner already produced a valid
// credential.
func (m *Manager) Refresh(ctx context.Context, forceFresh bool) bool {
	observed := m.generation.Load()

	m.gate.Lock()
	defer m.gate.Unlock()

	// Another caller may have refreshed while we waited on the gate. A
	// forced refresh never short-circuits: the credential that exists right
	// now is exactly the one whose quota ran out.
	if !forceFresh && m.generation.Load() != observed {
		if cur := m.Current(); cur.Ready() {
			return true
		}
	}

	if !forceFresh {
		cur := m.Current()
		if cred, ok := m.store.Renew(ctx, &cur); ok {
			m.setCurrent(cred)
			m.recordRefresh("renew", "success")
			return true
		}
		m.recordRefresh("renew", "failure")
	}

	if m.guestMode {
		if cred, ok := m.store.AcquireFresh(ctx); ok {
			m.setCurrent(cred)
			m.recordRefresh("fresh", "success")
			return true
		}
		m.recordRefresh("fresh", "failure")
	}

	m.logger.Error("credential refresh failed on every avenue", "force_fresh", forceFresh)
	return false
}

func (m *Manager) setCurrent(cred *Credential) {
	m.mu.Lock()
	m.current = cred
	m.mu.Unlock()
	m.generation.Add(1)
}

func (m *Manager) recordRefresh(kind, outcome string) {
	if m.metrics != nil {
		m.metrics.RecordCredentialRefresh(kind, outcome)
	}
}

package credential

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func countingHandler(hits *atomic.Int64, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		next(w, r)
	}
}

func TestManager_EnsureReadyWithCredential(t *testing.T) {
	store := newTestStore(t, "http://unused", true)
	m := NewManager(store, true, nil, nil)
	m.Adopt(&Credential{Session: "s", CSRFToken: "c"})

	if !m.EnsureReady(context.Background()) {
		t.Fatal("EnsureReady should succeed with a populated credential")
	}
}

func TestManager_HasCredential(t *testing.T) {
	store := newTestStore(t, "http://unused", true)
	m := NewManager(store, true, nil, nil)

	if m.HasCredential() {
		t.Fatal("HasCredential must be false before any credential is held")
	}

	m.Adopt(&Credential{Session: "s", CSRFToken: "c"})
	if !m.HasCredential() {
		t.Fatal("HasCredential must be true once both tokens are present")
	}
}

func TestManager_EnsureReadyStaticModeMissing(t *testing.T) {
	store := newTestStore(t, "http://unused", false)
	m := NewManager(store, false, nil, nil)

	if m.EnsureReady(context.Background()) {
		t.Fatal("static mode without credentials must not recover")
	}
}

func TestManager_EnsureReadyGuestModeAcquires(t *testing.T) {
	srv := httptest.NewServer(bootstrapHandler("sess-fresh", nil))
	defer srv.Close()

	store := newTestStore(t, srv.URL, true)
	m := NewManager(store, true, nil, nil)

	if !m.EnsureReady(context.Background()) {
		t.Fatal("guest mode should acquire a fresh credential")
	}
	if cur := m.Current(); cur.Session != "sess-fresh" {
		t.Errorf("unexpected current credential: %+v", cur)
	}
}

func TestManager_RefreshRenewBeforeFresh(t *testing.T) {
	var sawCookie string
	srv := httptest.NewServer(bootstrapHandler("sess-renewed", &sawCookie))
	defer srv.Close()

	store := newTestStore(t, srv.URL, true)
	m := NewManager(store, true, nil, nil)
	m.Adopt(&Credential{Session: "sess-current", CSRFToken: "csrf-current"})

	if !m.Refresh(context.Background(), false) {
		t.Fatal("Refresh failed")
	}
	if sawCookie != "sess-current" {
		t.Errorf("refresh must attempt renewal (with cookie) before fresh acquisition, server saw %q", sawCookie)
	}
}

func TestManager_RefreshForceFreshSkipsRenewal(t *testing.T) {
	var sawCookie string
	srv := httptest.NewServer(bootstrapHandler("sess-fresh", &sawCookie))
	defer srv.Close()

	store := newTestStore(t, srv.URL, true)
	m := NewManager(store, true, nil, nil)
	m.Adopt(&Credential{Session: "sess-exhausted", CSRFToken: "csrf"})

	if !m.Refresh(context.Background(), true) {
		t.Fatal("forced refresh failed")
	}
	if sawCookie != "" {
		t.Errorf("forced refresh must not present the exhausted session cookie, server saw %q", sawCookie)
	}
	if cur := m.Current(); cur.Session != "sess-fresh" {
		t.Errorf("expected brand-new identity, got %+v", cur)
	}
}

func TestManager_ConcurrentRefreshSingleNetworkCall(t *testing.T) {
	var hits atomic.Int64
	handler := bootstrapHandler("sess-fresh", nil)
	// The slow response keeps the winning caller inside the network step
	// long enough for every other caller to pile up on the gate.
	slow := func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		handler(w, r)
	}
	srv := httptest.NewServer(countingHandler(&hits, slow))
	defer srv.Close()

	store := newTestStore(t, srv.URL, true)
	m := NewManager(store, true, nil, nil)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Refresh(context.Background(), false)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Errorf("caller %d failed to refresh", i)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected exactly one network acquisition for %d concurrent callers, got %d", callers, got)
	}

	cur := m.Current()
	if cur.Session != "sess-fresh" {
		t.Errorf("all callers should observe the refreshed credential, got %+v", cur)
	}
}

func TestManager_StaticModeNeverAcquiresFresh(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(countingHandler(&hits, bootstrapHandler("sess", nil)))
	defer srv.Close()

	store := newTestStore(t, srv.URL, false)
	m := NewManager(store, false, &Credential{Session: "s", CSRFToken: "c"}, nil)

	// Renewal is allowed in static mode (one hit); the fresh-acquisition
	// fallback is not, so a renewal failure ends the refresh.
	if !m.Refresh(context.Background(), false) {
		t.Fatal("static renewal against a healthy backend should succeed")
	}
	if hits.Load() != 1 {
		t.Errorf("expected one renewal request, got %d", hits.Load())
	}

	// Force-fresh has no avenue at all in static mode.
	if m.Refresh(context.Background(), true) {
		t.Error("forced refresh must fail in static mode")
	}
	if hits.Load() != 1 {
		t.Errorf("forced refresh must not hit the network in static mode, got %d hits", hits.Load())
	}
}

func TestManager_AdoptIgnoresPartial(t *testing.T) {
	store := newTestStore(t, "http://unused", true)
	m := NewManager(store, true, nil, nil)

	m.Adopt(&Credential{Session: "only-session"})
	if cur := m.Current(); cur.Session != "" {
		t.Error("partial credential must not be adopted")
	}
}

func TestManager_LoadsPersistedCredentialAtStartup(t *testing.T) {
	store := newTestStore(t, "http://unused", true)
	saved := &Credential{
		Session: "sess-disk", CSRFToken: "csrf-disk",
		CreatedAt: time.Now(), LastUsedAt: time.Now(),
	}
	if err := store.Save(saved); err != nil {
		t.Fatal(err)
	}

	m := NewManager(store, true, nil, nil)
	if cur := m.Current(); cur.Session != "sess-disk" {
		t.Errorf("expected persisted credential at startup, got %+v", cur)
	}
}

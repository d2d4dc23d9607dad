package sessionpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClient struct {
	created atomic.Int64

	mu        sync.Mutex
	deleted   []string
	createErr error

	// failRepeatDeletes makes deleting an already-deleted id error, the way
	// the backend rejects a second deletion job for the same session.
	failRepeatDeletes bool
}

func (f *fakeClient) CreateChatSession(ctx context.Context) (string, error) {
	f.mu.Lock()
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("s-%d", f.created.Add(1)), nil
}

func (f *fakeClient) DeleteChatSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := false
	if f.failRepeatDeletes {
		for _, id := range f.deleted {
			if id == sessionID {
				seen = true
				break
			}
		}
	}
	f.deleted = append(f.deleted, sessionID)
	if seen {
		return errors.New("session already deleted")
	}
	return nil
}

func (f *fakeClient) deletedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestPool(client SessionClient) *Pool {
	return New(client, Config{TargetSize: 3, ReplenishInterval: 20 * time.Millisecond}, nil)
}

func TestPool_ReplenishesToTarget(t *testing.T) {
	client := &fakeClient{}
	pool := newTestPool(client)

	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool { return pool.Ready() == 3 },
		"pool never reached target size")
	if got := client.created.Load(); got != 3 {
		t.Errorf("created %d sessions to fill a target of 3", got)
	}
}

func TestPool_AcquireFromPool(t *testing.T) {
	client := &fakeClient{}
	pool := newTestPool(client)

	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	waitFor(t, 2*time.Second, func() bool { return pool.Ready() == 3 },
		"pool never reached target size")

	id, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if id == "" {
		t.Fatal("Acquire returned an empty session id")
	}
	if pool.Ready() != 2 {
		t.Errorf("ready = %d after acquire, want 2", pool.Ready())
	}

	// The replenisher converges back to target.
	waitFor(t, 2*time.Second, func() bool { return pool.Ready() == 3 },
		"pool did not converge back to target after acquire")
}

func TestPool_AcquireOnDemandWhenEmpty(t *testing.T) {
	client := &fakeClient{}
	pool := newTestPool(client)
	// Not started: the pool stays empty.

	id, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if id != "s-1" {
		t.Errorf("expected an on-demand session, got %q", id)
	}
}

func TestPool_AcquireSurfacesCreateFailure(t *testing.T) {
	client := &fakeClient{createErr: errors.New("backend down")}
	pool := newTestPool(client)

	if _, err := pool.Acquire(context.Background()); err == nil {
		t.Fatal("expected on-demand creation failure to surface")
	}
}

func TestPool_ReplenishFailuresDoNotStopWorker(t *testing.T) {
	client := &fakeClient{}
	client.createErr = errors.New("backend down")
	pool := newTestPool(client)

	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	// Let a few failing replenish rounds pass, then heal the backend.
	time.Sleep(60 * time.Millisecond)
	if pool.Ready() != 0 {
		t.Fatalf("ready = %d while creation fails, want 0", pool.Ready())
	}

	client.mu.Lock()
	client.createErr = nil
	client.mu.Unlock()

	waitFor(t, 2*time.Second, func() bool { return pool.Ready() == 3 },
		"pool did not recover after backend healed")
}

func TestPool_RecycleDeletesInBackground(t *testing.T) {
	client := &fakeClient{}
	pool := newTestPool(client)

	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	pool.Recycle("used-session")

	waitFor(t, 2*time.Second, func() bool {
		for _, id := range client.deletedSessions() {
			if id == "used-session" {
				return true
			}
		}
		return false
	}, "recycled session was never deleted")
}

func TestPool_RecycleSameSessionTwiceSwallowsDeleteFailure(t *testing.T) {
	client := &fakeClient{failRepeatDeletes: true}
	pool := New(client, Config{TargetSize: 0, ReplenishInterval: 20 * time.Millisecond}, nil)

	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	pool.Recycle("dup")
	pool.Recycle("dup")

	countDup := func() int {
		n := 0
		for _, id := range client.deletedSessions() {
			if id == "dup" {
				n++
			}
		}
		return n
	}

	waitFor(t, 2*time.Second, func() bool { return countDup() == 2 },
		"cleanup worker did not process both recycles")

	// The failed second deletion is logged and dropped, never retried, and
	// the worker keeps serving later recycles.
	pool.Recycle("next")
	waitFor(t, 2*time.Second, func() bool {
		for _, id := range client.deletedSessions() {
			if id == "next" {
				return true
			}
		}
		return false
	}, "cleanup worker stopped after a delete failure")

	if got := countDup(); got != 2 {
		t.Errorf("delete attempts for the duplicate id = %d, want exactly 2 (no retry)", got)
	}
}

func TestPool_StopDeletesQueuedSessions(t *testing.T) {
	client := &fakeClient{}
	pool := newTestPool(client)

	pool.Start(context.Background())
	waitFor(t, 2*time.Second, func() bool { return pool.Ready() == 3 },
		"pool never reached target size")

	pool.Stop(context.Background())

	if got := len(client.deletedSessions()); got != 3 {
		t.Errorf("expected 3 queued sessions deleted on stop, got %d", got)
	}
	if pool.Ready() != 0 {
		t.Errorf("ready = %d after stop, want 0", pool.Ready())
	}
}

package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// conflictOnceStore injects a single version conflict before delegating, to
// exercise the manager's reload-and-retry path.
type conflictOnceStore struct {
	*MemoryStore
	mu      sync.Mutex
	tripped bool
}

func (c *conflictOnceStore) SaveIf(ctx context.Context, sess *Session, expected int64) error {
	c.mu.Lock()
	first := !c.tripped
	c.tripped = true
	c.mu.Unlock()

	if first {
		return fmt.Errorf("%w: injected", ErrVersionConflict)
	}
	return c.MemoryStore.SaveIf(ctx, sess, expected)
}

func newTestManager(t *testing.T, store Store, opts ...ManagerOption) *Manager {
	t.Helper()

	m, err := NewManager(store, opts...)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestManagerCreateAndGet(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := NewMemoryStore(WithMemoryTTL(0))
	mgr := newTestManager(t, store,
		WithClock(clock.Now),
		WithIDGenerator(func() string { return "fixed-id" }),
	)
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != "fixed-id" {
		t.Fatalf("Create().ID = %q, want fixed-id", created.ID)
	}
	if created.Version != 1 {
		t.Fatalf("Create().Version = %d, want 1", created.Version)
	}

	got, err := mgr.Get(ctx, "fixed-id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != created.ID || !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("Get() = %+v, want the created session", got)
	}

	again, err := mgr.Get(ctx, "fixed-id")
	if err != nil {
		t.Fatalf("repeated Get() error = %v", err)
	}
	if again.Version != got.Version || len(again.Turns) != len(got.Turns) {
		t.Fatalf("repeated Get() = %+v, want an identical view", again)
	}
}

func TestManagerGetExpiredCountsAsAbsent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := NewMemoryStore(WithMemoryTTL(0))
	mgr := newTestManager(t, store,
		WithClock(clock.Now),
		WithIdleExpiry(time.Hour),
	)
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	clock.Advance(2 * time.Hour)

	_, err = mgr.Get(ctx, created.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}

	// The stale record was purged, not just hidden.
	if _, err := store.Load(ctx, created.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("store.Load() error = %v, want ErrSessionNotFound after purge", err)
	}
}

func TestManagerAppendTurn(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := NewMemoryStore(WithMemoryTTL(0))
	mgr := newTestManager(t, store, WithClock(clock.Now))
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	clock.Advance(10 * time.Minute)

	sess, err := mgr.AppendTurn(ctx, created.ID, Turn{
		Question:   "solve 2x + 5 = 15",
		Answer:     "x = 5",
		Specialist: "math",
	})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}

	if len(sess.Turns) != 1 {
		t.Fatalf("len(Turns) = %d, want 1", len(sess.Turns))
	}
	if sess.Version != 2 {
		t.Fatalf("Version = %d, want 2", sess.Version)
	}
	if !sess.LastActive.Equal(clock.Now()) {
		t.Fatalf("LastActive = %s, want %s", sess.LastActive, clock.Now())
	}
	if sess.Turns[0].Timestamp.IsZero() {
		t.Fatal("turn timestamp not defaulted")
	}
}

func TestManagerAppendTurnEnforcesCap(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(WithMemoryTTL(0))
	mgr := newTestManager(t, store, WithMaxTurns(3))
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := mgr.AppendTurn(ctx, created.ID, Turn{Question: fmt.Sprintf("q%d", i), Answer: "a"}); err != nil {
			t.Fatalf("AppendTurn(%d) error = %v", i, err)
		}
	}

	sess, err := mgr.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Turns) != 3 {
		t.Fatalf("len(Turns) = %d, want 3", len(sess.Turns))
	}
	if sess.Turns[0].Question != "q2" {
		t.Fatalf("oldest surviving turn = %q, want q2", sess.Turns[0].Question)
	}
}

func TestManagerAppendTurnExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := NewMemoryStore(WithMemoryTTL(0))
	mgr := newTestManager(t, store,
		WithClock(clock.Now),
		WithIdleExpiry(30*time.Minute),
	)
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	clock.Advance(time.Hour)

	_, err = mgr.AppendTurn(ctx, created.ID, Turn{Question: "q", Answer: "a"})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("AppendTurn() error = %v, want ErrSessionExpired", err)
	}
}

func TestManagerAppendTurnUnknownSession(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t, NewMemoryStore())

	_, err := mgr.AppendTurn(context.Background(), "never-created", Turn{Question: "q", Answer: "a"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("AppendTurn() error = %v, want ErrSessionNotFound", err)
	}
}

func TestManagerAppendTurnRetriesOnConflict(t *testing.T) {
	t.Parallel()

	store := &conflictOnceStore{MemoryStore: NewMemoryStore(WithMemoryTTL(0))}
	mgr := newTestManager(t, store)
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sess, err := mgr.AppendTurn(ctx, created.ID, Turn{Question: "q", Answer: "a"})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v, want retry to absorb the conflict", err)
	}
	if len(sess.Turns) != 1 {
		t.Fatalf("len(Turns) = %d, want 1", len(sess.Turns))
	}
}

func TestManagerConcurrentAppendsBothLand(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(WithMemoryTTL(0))
	mgr := newTestManager(t, store)
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const writers = 4
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := mgr.AppendTurn(ctx, created.ID, Turn{
				Question: fmt.Sprintf("q%d", i),
				Answer:   "a",
			}); err != nil {
				t.Errorf("AppendTurn(%d) error = %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	sess, err := mgr.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Turns) != writers {
		t.Fatalf("len(Turns) = %d, want %d (no lost updates)", len(sess.Turns), writers)
	}
}

func TestManagerClear(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t, NewMemoryStore())
	ctx := context.Background()

	created, err := mgr.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := mgr.Clear(ctx, created.ID); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := mgr.Get(ctx, created.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() after Clear() error = %v, want ErrSessionNotFound", err)
	}

	if err := mgr.Clear(ctx, created.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second Clear() error = %v, want ErrSessionNotFound", err)
	}
}

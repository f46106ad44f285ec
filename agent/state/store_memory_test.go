package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreLoadAbsent(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load() error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreRoundTripIsIsolated(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	sess := testSession("s-1", now)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	sess.Turns[0].Answer = "mutated after save"

	loaded, err := store.Load(ctx, "s-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Turns[0].Answer != "4" {
		t.Fatalf("stored answer = %q, want the original %q", loaded.Turns[0].Answer, "4")
	}

	loaded.Turns[0].Answer = "mutated after load"
	again, err := store.Load(ctx, "s-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if again.Turns[0].Answer != "4" {
		t.Fatalf("stored answer = %q after mutating a loaded copy, want %q", again.Turns[0].Answer, "4")
	}
}

func TestMemoryStoreSaveIf(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	sess := testSession("s-1", now)
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.SaveIf(ctx, sess.Clone(), 1); err != nil {
		t.Fatalf("SaveIf(expected=1) error = %v", err)
	}

	err := store.SaveIf(ctx, sess.Clone(), 1)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale SaveIf() error = %v, want ErrVersionConflict", err)
	}

	ghost := testSession("never-saved", now)
	err = store.SaveIf(ctx, ghost, 1)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("SaveIf() on missing key error = %v, want ErrVersionConflict", err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := NewMemoryStore(
		WithMemoryTTL(time.Hour),
		WithMemoryClock(clock.Now),
	)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("s-1", clock.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := store.Load(ctx, "s-1"); err != nil {
		t.Fatalf("Load() before expiry error = %v", err)
	}

	clock.Advance(2 * time.Hour)

	_, err := store.Load(ctx, "s-1")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Load() after expiry error = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreConcurrentWrites(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Save(ctx, testSession("s-1", now)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				sess, err := store.Load(ctx, "s-1")
				if err != nil {
					t.Errorf("Load() error = %v", err)
					return
				}
				expected := sess.Version
				sess.Append(Turn{Question: fmt.Sprintf("q%d", i), Timestamp: now}, 0)
				err = store.SaveIf(ctx, sess, expected)
				if err == nil {
					return
				}
				if !errors.Is(err, ErrVersionConflict) {
					t.Errorf("SaveIf() error = %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	final, err := store.Load(ctx, "s-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := len(final.Turns); got != writers+1 {
		t.Fatalf("len(Turns) = %d, want %d (no lost updates)", got, writers+1)
	}
	if final.Version != writers+1 {
		t.Fatalf("Version = %d, want %d", final.Version, writers+1)
	}
}

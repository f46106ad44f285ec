package state

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPostgresRowFromSession(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	store := &PostgresStore{ttl: time.Hour, now: clock.Now}

	sess := testSession("s-1", clock.Now())
	sess.Version = 3

	row, err := store.rowFromSession(sess)
	if err != nil {
		t.Fatalf("rowFromSession() error = %v", err)
	}
	if row.ID != "s-1" || row.Version != 3 {
		t.Fatalf("row = id %q version %d, want s-1 / 3", row.ID, row.Version)
	}
	if want := clock.Now().Add(time.Hour); !row.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %s, want %s", row.ExpiresAt, want)
	}

	var decoded Session
	if err := json.Unmarshal(row.Payload, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded.ID != "s-1" || len(decoded.Turns) != 1 {
		t.Fatalf("payload round trip = %+v, want the source session", decoded)
	}
}

func TestPostgresRowFromSessionDefaults(t *testing.T) {
	t.Parallel()

	store := &PostgresStore{ttl: 0, now: time.Now}

	if _, err := store.rowFromSession(nil); !errors.Is(err, ErrNilSession) {
		t.Fatalf("rowFromSession(nil) error = %v, want ErrNilSession", err)
	}
	if _, err := store.rowFromSession(&Session{ID: "  "}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("blank id error = %v, want ErrInvalidSession", err)
	}

	sess := testSession("s-2", time.Now().UTC())
	sess.Version = 0
	row, err := store.rowFromSession(sess)
	if err != nil {
		t.Fatalf("rowFromSession() error = %v", err)
	}
	if row.Version != 1 {
		t.Fatalf("Version = %d, want defaulted 1", row.Version)
	}
	if !row.ExpiresAt.IsZero() {
		t.Fatalf("ExpiresAt = %s, want zero when ttl disabled", row.ExpiresAt)
	}
}

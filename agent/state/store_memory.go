package state

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It is the fallback backend
// when no Redis or Postgres credentials are configured and carries the same
// semantics as the remote stores: idle TTL on every write and version
// checked writes through SaveIf.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	sess      *Session
	expiresAt time.Time
}

type MemoryStoreOption func(*MemoryStore)

func WithMemoryTTL(ttl time.Duration) MemoryStoreOption {
	return func(m *MemoryStore) {
		m.ttl = ttl
	}
}

func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{
		ttl:     defaultStoreTTL,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.entryExpired(entry) {
		delete(m.entries, sessionID)
		return nil, ErrSessionNotFound
	}
	return entry.sess.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(sess.ID) == "" {
		return ErrInvalidSession
	}
	if sess.Version <= 0 {
		sess.Version = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[sess.ID] = memoryEntry{
		sess:      sess.Clone(),
		expiresAt: m.deadline(),
	}
	return nil
}

func (m *MemoryStore) SaveIf(_ context.Context, sess *Session, expectedVersion int64) error {
	if sess == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(sess.ID) == "" {
		return ErrInvalidSession
	}
	if expectedVersion <= 0 {
		return fmt.Errorf("%w: expected version must be positive", ErrVersionConflict)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[sess.ID]
	if !ok || m.entryExpired(entry) {
		delete(m.entries, sess.ID)
		return fmt.Errorf("%w: session %s is gone", ErrVersionConflict, sess.ID)
	}
	if entry.sess.Version != expectedVersion {
		return fmt.Errorf("%w: session %s at version %d, want %d", ErrVersionConflict, sess.ID, entry.sess.Version, expectedVersion)
	}

	sess.Version = expectedVersion + 1
	m.entries[sess.ID] = memoryEntry{
		sess:      sess.Clone(),
		expiresAt: m.deadline(),
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, sessionID)
	return nil
}

func (m *MemoryStore) deadline() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *MemoryStore) entryExpired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt)
}

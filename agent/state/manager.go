package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionExpired marks a session whose idle window elapsed between load
// and write. Callers that own the conversation flow usually respond by
// starting a fresh session rather than surfacing the error.
var ErrSessionExpired = errors.New("session expired")

const (
	defaultIdleExpiry   = time.Hour
	defaultMaxTurns     = 20
	defaultContextTurns = 5

	saveIfRetryLimit = 5
)

// SessionConfig is the SESSION_* environment block.
type SessionConfig struct {
	StoreBackend string        `envconfig:"STORE_BACKEND" split_words:"true" default:"auto"`
	IdleExpiry   time.Duration `envconfig:"IDLE_EXPIRY" split_words:"true" default:"3600s"`
	MaxTurns     int           `envconfig:"MAX_TURNS" split_words:"true" default:"20"`
	ContextTurns int           `envconfig:"CONTEXT_TURNS" split_words:"true" default:"5"`
}

// Sessions is the lifecycle surface the orchestrator and HTTP layer consume.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	Create(ctx context.Context) (*Session, error)
	AppendTurn(ctx context.Context, sessionID string, turn Turn) (*Session, error)
	Clear(ctx context.Context, sessionID string) error
}

// Manager implements Sessions on top of a Store. It owns id minting, idle
// expiry decisions, the turn cap, and the SaveIf retry loop that makes
// concurrent appends against one session id safe.
type Manager struct {
	store      Store
	idleExpiry time.Duration
	maxTurns   int
	now        func() time.Time
	newID      func() string
}

type ManagerOption func(*Manager)

func WithIdleExpiry(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleExpiry = d
	}
}

func WithMaxTurns(n int) ManagerOption {
	return func(m *Manager) {
		m.maxTurns = n
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithIDGenerator(newID func() string) ManagerOption {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

func NewManager(store Store, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session manager: store is nil")
	}
	m := &Manager{
		store:      store,
		idleExpiry: defaultIdleExpiry,
		maxTurns:   defaultMaxTurns,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Get loads a live session. Expired records count as absent and are purged
// best effort; the follow-up write simply never sees them.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.ExpiredAt(m.now(), m.idleExpiry) {
		_ = m.store.Delete(ctx, sessionID)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (m *Manager) Create(ctx context.Context) (*Session, error) {
	sess := NewSession(m.newID(), m.now())
	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// AppendTurn loads the session, appends under the turn cap and writes back
// with SaveIf. On version conflict it reloads and reapplies, bounded, so two
// concurrent appends both land instead of one silently overwriting the other.
func (m *Manager) AppendTurn(ctx context.Context, sessionID string, turn Turn) (*Session, error) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now()
	}

	for attempt := 0; attempt < saveIfRetryLimit; attempt++ {
		sess, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess.ExpiredAt(m.now(), m.idleExpiry) {
			_ = m.store.Delete(ctx, sessionID)
			return nil, fmt.Errorf("%w: %s idle past %s", ErrSessionExpired, sessionID, m.idleExpiry)
		}

		expected := sess.Version
		sess.Append(turn, m.maxTurns)

		err = m.store.SaveIf(ctx, sess, expected)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: gave up appending to session %s after %d attempts", ErrVersionConflict, sessionID, saveIfRetryLimit)
}

// Clear removes a session. Clearing an unknown or already-expired session
// reports ErrSessionNotFound so callers can distinguish it from success.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if _, err := m.Get(ctx, sessionID); err != nil {
		return err
	}
	return m.store.Delete(ctx, sessionID)
}

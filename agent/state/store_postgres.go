package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// PostgresStore persists sessions as jsonb rows. Idle expiry is an
// expires_at column refreshed on every write; expired rows are treated as
// absent on read and lazily purged. The version column backs SaveIf through
// a conditional UPDATE, so the check and the write are one statement.
type PostgresStore struct {
	db  *bun.DB
	ttl time.Duration
	now func() time.Time
}

type sessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        string    `bun:"id,pk"`
	Payload   []byte    `bun:"payload,type:jsonb,notnull"`
	Version   int64     `bun:"version,notnull"`
	ExpiresAt time.Time `bun:"expires_at,nullzero"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type PostgresStoreOption func(*PostgresStore)

func WithPostgresTTL(ttl time.Duration) PostgresStoreOption {
	return func(s *PostgresStore) {
		s.ttl = ttl
	}
}

func WithPostgresClock(now func() time.Time) PostgresStoreOption {
	return func(s *PostgresStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPostgresStore(db *bun.DB, opts ...PostgresStoreOption) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("postgres store: db is nil")
	}
	store := &PostgresStore{
		db:  db,
		ttl: defaultStoreTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

// Migrate creates the sessions table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return classifyTransportErr("create sessions table", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}

	row := new(sessionRow)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", sessionID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, classifyTransportErr("load session", err)
	}

	if !row.ExpiresAt.IsZero() && s.now().After(row.ExpiresAt) {
		// Lazy purge. Failing here is harmless, the row stays invisible.
		_, _ = s.db.NewDelete().
			Model((*sessionRow)(nil)).
			Where("id = ?", sessionID).
			Exec(ctx)
		return nil, ErrSessionNotFound
	}

	var sess Session
	if err := json.Unmarshal(row.Payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	row, err := s.rowFromSession(sess)
	if err != nil {
		return err
	}

	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("version = EXCLUDED.version").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return classifyTransportErr("save session", err)
	}
	return nil
}

func (s *PostgresStore) SaveIf(ctx context.Context, sess *Session, expectedVersion int64) error {
	if expectedVersion <= 0 {
		return fmt.Errorf("%w: expected version must be positive", ErrVersionConflict)
	}
	if sess != nil {
		sess.Version = expectedVersion + 1
	}

	row, err := s.rowFromSession(sess)
	if err != nil {
		return err
	}

	res, err := s.db.NewUpdate().
		Model(row).
		Column("payload", "version", "expires_at", "updated_at").
		Where("id = ?", sess.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return classifyTransportErr("save session", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return classifyTransportErr("save session", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: session %s at version %d", ErrVersionConflict, sess.ID, expectedVersion)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	_, err := s.db.NewDelete().
		Model((*sessionRow)(nil)).
		Where("id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return classifyTransportErr("delete session", err)
	}
	return nil
}

func (s *PostgresStore) rowFromSession(sess *Session) (*sessionRow, error) {
	if sess == nil {
		return nil, ErrNilSession
	}
	if strings.TrimSpace(sess.ID) == "" {
		return nil, ErrInvalidSession
	}
	if sess.Version <= 0 {
		sess.Version = 1
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	now := s.now().UTC()
	row := &sessionRow{
		ID:        sess.ID,
		Payload:   payload,
		Version:   sess.Version,
		UpdatedAt: now,
	}
	if s.ttl > 0 {
		row.ExpiresAt = now.Add(s.ttl)
	}
	return row, nil
}

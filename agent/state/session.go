package state

import (
	"fmt"
	"strings"
	"time"
)

// Session is the persistent record of one conversation: an ordered turn
// history plus the activity timestamps that drive idle expiry. The external
// store is the sole source of truth; in-process copies are never authoritative
// across requests.
type Session struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	// Version backs optimistic check-and-set writes. New sessions start at
	// version 1; SaveIf bumps the version on every successful write.
	Version int64 `json:"version"`

	Turns []Turn `json:"turns,omitempty"`
}

// Turn is one question/answer exchange. Immutable once appended.
type Turn struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Specialist string    `json:"specialist"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now.UTC(),
		LastActive: now.UTC(),
		Version:    1,
	}
}

// Touch refreshes the activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.LastActive = now.UTC()
}

// Append adds a turn and enforces the cap: oldest turns are evicted first
// (FIFO). maxTurns <= 0 means unbounded.
func (s *Session) Append(t Turn, maxTurns int) {
	s.Turns = append(s.Turns, t)
	if maxTurns > 0 && len(s.Turns) > maxTurns {
		excess := len(s.Turns) - maxTurns
		s.Turns = append([]Turn(nil), s.Turns[excess:]...)
	}
	if t.Timestamp.After(s.LastActive) {
		s.LastActive = t.Timestamp.UTC()
	}
}

// ExpiredAt reports whether the idle window has elapsed at the given instant.
// idleExpiry <= 0 disables expiry.
func (s *Session) ExpiredAt(now time.Time, idleExpiry time.Duration) bool {
	if s == nil || idleExpiry <= 0 {
		return false
	}
	return now.Sub(s.LastActive) > idleExpiry
}

// Window returns up to the k most recent turns, oldest first. The result is a
// copy; mutating it does not touch the session.
func (s *Session) Window(k int) []Turn {
	if s == nil || k <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if len(s.Turns) <= k {
		return append([]Turn(nil), s.Turns...)
	}
	return append([]Turn(nil), s.Turns[len(s.Turns)-k:]...)
}

// SpecialistsUsed returns the distinct specialist domains in first-use order.
func (s *Session) SpecialistsUsed() []string {
	if s == nil || len(s.Turns) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, 4)
	used := make([]string, 0, 4)
	for _, t := range s.Turns {
		name := strings.TrimSpace(t.Specialist)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		used = append(used, name)
	}
	return used
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSession
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("session %s has zero created_at", s.ID)
	}
	for i, t := range s.Turns {
		if strings.TrimSpace(t.Question) == "" {
			return fmt.Errorf("session %s turn %d has empty question", s.ID, i)
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones so callers never alias
// backend-owned memory.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Turns = append([]Turn(nil), s.Turns...)
	return &out
}

// Package cursor holds the unread tails of oversized responses, addressed
// by opaque continuation tokens.
//
// Entries expire after a short TTL; expiry is evaluated against stored
// timestamps on every access, so an expired entry is logically absent even
// before it is physically swept.
package cursor

import (
	"sync"
	"time"

	"github.com/HendryAvila/codex-relay/internal/runid"
)

// DefaultTTL is how long an untouched pending page survives.
const DefaultTTL = 10 * time.Minute

type entry struct {
	remaining string
	expiresAt time.Time
}

// Store is an in-memory map from continuation token to pending text.
// It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the idle lifetime of a pending entry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTokenSource overrides token generation.
func WithTokenSource(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore creates an empty cursor store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		ttl:     DefaultTTL,
		now:     time.Now,
		newID:   runid.NewGenerator(runid.WithPrefix("pg_")).New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores remaining under a fresh token and returns the token.
// Empty text is never stored; Save returns "" for it.
func (s *Store) Save(remaining string) string {
	if remaining == "" {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	token := s.newID()
	s.entries[token] = &entry{remaining: remaining, expiresAt: now.Add(s.ttl)}
	return token
}

// Peek returns the pending text for token without consuming it.
func (s *Store) Peek(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	e, ok := s.entries[token]
	if !ok {
		return "", false
	}
	return e.remaining, true
}

// Advance drops the first consumed characters from the pending text of
// token. The entry is deleted once nothing remains; otherwise its expiry is
// refreshed. Unknown or expired tokens are ignored.
func (s *Store) Advance(token string, consumed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	e, ok := s.entries[token]
	if !ok || consumed <= 0 {
		return
	}

	_, tail := SplitRunes(e.remaining, consumed)
	if tail == "" {
		delete(s.entries, token)
		return
	}
	e.remaining = tail
	e.expiresAt = now.Add(s.ttl)
}

// Sweep deletes expired entries and reports how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// Len reports the number of live pending entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.entries)
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for token, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

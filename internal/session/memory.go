package session

import (
	"fmt"
	"sync"
	"time"
)

type record struct {
	turns      []Turn
	bytes      int
	createdAt  time.Time
	lastUsedAt time.Time
	expiresAt  time.Time
}

func (r *record) meta(id string) Meta {
	return Meta{
		SessionID:  id,
		Turns:      len(r.turns),
		Bytes:      r.bytes,
		CreatedAt:  r.createdAt,
		LastUsedAt: r.lastUsedAt,
		ExpiresAt:  r.expiresAt,
	}
}

// MemoryStore is the default in-process session store. Nothing survives a
// restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*record
	opts     options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{sessions: make(map[string]*record), opts: o}
}

// AppendTurn appends a turn and pushes the session's expiry forward.
func (s *MemoryStore) AppendTurn(id string, role Role, text string) error {
	if !role.Valid() {
		return fmt.Errorf("session: invalid role %q", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	r := s.liveLocked(id, now)
	if r == nil {
		r = &record{createdAt: now}
		s.sessions[id] = r
	}

	r.turns = append(r.turns, Turn{Role: role, Text: text, At: now})
	r.bytes += len(text)
	r.lastUsedAt = now
	r.expiresAt = now.Add(s.opts.ttl)
	return nil
}

// Transcript returns a copy of the session's turns.
func (s *MemoryStore) Transcript(id string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.liveLocked(id, s.opts.now())
	if r == nil {
		return []Turn{}, nil
	}
	out := make([]Turn, len(r.turns))
	copy(out, r.turns)
	return out, nil
}

// Clear removes the session if present.
func (s *MemoryStore) Clear(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// IDs returns the ids of live sessions in List order.
func (s *MemoryStore) IDs() ([]string, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(metas))
	for _, m := range metas {
		ids = append(ids, m.SessionID)
	}
	return ids, nil
}

// List purges expired sessions and returns metadata for the rest.
func (s *MemoryStore) List() ([]Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()
	metas := make([]Meta, 0, len(s.sessions))
	for id := range s.sessions {
		r := s.liveLocked(id, now)
		if r == nil || len(r.turns) == 0 {
			continue
		}
		metas = append(metas, r.meta(id))
	}
	sortMeta(metas)
	return metas, nil
}

// Meta returns metadata for a live session.
func (s *MemoryStore) Meta(id string) (Meta, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.liveLocked(id, s.opts.now())
	if r == nil || len(r.turns) == 0 {
		return Meta{}, false, nil
	}
	return r.meta(id), true, nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

// liveLocked returns the record for id, deleting it first if expired.
func (s *MemoryStore) liveLocked(id string, now time.Time) *record {
	r, ok := s.sessions[id]
	if !ok {
		return nil
	}
	if !now.Before(r.expiresAt) {
		delete(s.sessions, id)
		return nil
	}
	return r
}

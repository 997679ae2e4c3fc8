// Package session keeps per-conversation transcripts so a stateless
// assistant invocation can be given the earlier turns as context.
//
// A session is created implicitly by its first appended turn and expires
// TTL after its last append. Expired sessions read exactly like sessions
// that never existed, whether or not they have been physically removed.
package session

import (
	"sort"
	"time"
)

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 24 * time.Hour

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one utterance in a transcript. Turns are never mutated.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Meta is the externally visible summary of a session.
type Meta struct {
	SessionID  string    `json:"session_id"`
	Turns      int       `json:"turns"`
	Bytes      int       `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store defines session persistence. Implementations must be safe for
// concurrent use.
type Store interface {
	// AppendTurn appends a turn, creating the session if it is absent or expired.
	AppendTurn(id string, role Role, text string) error
	// Transcript returns the ordered turns, empty for unknown or expired sessions.
	Transcript(id string) ([]Turn, error)
	// Clear removes a session. Clearing an absent session is not an error.
	Clear(id string) error
	// IDs returns the ids of all live sessions.
	IDs() ([]string, error)
	// List returns metadata of all live sessions, most recently used first.
	List() ([]Meta, error)
	// Meta returns metadata for one live session.
	Meta(id string) (Meta, bool, error)
	// Close releases backend resources.
	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

func defaultOptions() options {
	return options{ttl: DefaultTTL, now: time.Now}
}

// WithTTL sets the session idle lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func sortMeta(metas []Meta) {
	sort.Slice(metas, func(i, j int) bool {
		if !metas[i].LastUsedAt.Equal(metas[j].LastUsedAt) {
			return metas[i].LastUsedAt.After(metas[j].LastUsedAt)
		}
		return metas[i].SessionID < metas[j].SessionID
	})
}

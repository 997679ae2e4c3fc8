// Package runid generates the per-invocation identifiers that make prompt
// sentinels unique and the opaque tokens handed out for pending pages.
//
// Identifiers are lower-cased ULIDs: a millisecond timestamp followed by a
// monotonic random component, both in Crockford base32. The alphabet is
// [0-9a-z], so an id can never contain sentinel syntax characters.
package runid

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces collision-resistant identifiers. It is safe for
// concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
	prefix  string
}

// Option configures a Generator.
type Option func(*Generator)

// WithPrefix prepends prefix to every generated id (e.g. "pg_").
func WithPrefix(prefix string) Option {
	return func(g *Generator) { g.prefix = prefix }
}

// WithClock overrides the time source used for the timestamp component.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a Generator seeded from crypto/rand.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New returns a fresh identifier.
func (g *Generator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	return g.prefix + strings.ToLower(id.String())
}

var defaultGenerator = NewGenerator()

// New returns a fresh identifier from the process-wide generator.
func New() string {
	return defaultGenerator.New()
}

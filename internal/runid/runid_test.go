package runid

import (
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^[0-9a-z]{26}$`)

func TestNew_Format(t *testing.T) {
	id := New()
	require.Regexp(t, idPattern, id)
	require.False(t, strings.ContainsAny(id, "<>:"), "id must not contain sentinel characters")
}

func TestGenerator_Prefix(t *testing.T) {
	g := NewGenerator(WithPrefix("pg_"))
	id := g.New()
	require.True(t, strings.HasPrefix(id, "pg_"))
	require.Regexp(t, idPattern, strings.TrimPrefix(id, "pg_"))
}

func TestGenerator_MonotonicWithinSameMillisecond(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := NewGenerator(WithClock(func() time.Time { return fixed }))

	prev := g.New()
	for i := 0; i < 100; i++ {
		next := g.New()
		require.Greater(t, next, prev, "ids generated in the same millisecond must sort after each other")
		prev = next
	}
}

func TestGenerator_ConcurrentUnique(t *testing.T) {
	g := NewGenerator()
	const workers, perWorker = 8, 250

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := g.New()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker)
}

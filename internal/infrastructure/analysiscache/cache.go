package analysiscache

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/doc-insight/internal/core/domain"
	"github.com/kirillkom/doc-insight/internal/core/ports"
)

// Clock abstracts time so eviction is testable with fake time.
type Clock func() time.Time

// Observer receives cache events for metrics. All methods may be called
// concurrently.
type Observer interface {
	Hit()
	Miss()
	Shared()
	Evicted(count int)
}

type nopObserver struct{}

func (nopObserver) Hit() {}

func (nopObserver) Miss() {}

func (nopObserver) Shared() {}

func (nopObserver) Evicted(int) {}

type entryState int

const (
	statePending entryState = iota
	stateReady
)

type entry struct {
	state    entryState
	docIDs   map[string]struct{}
	result   *domain.AnalysisResult
	err      error
	done     chan struct{}
	storedAt time.Time
}

// cacheKey scopes entries to their owning principal. The fingerprint alone
// identifies the request shape, not who may read the result.
type cacheKey struct {
	ownerID     string
	fingerprint domain.Fingerprint
}

// Cache keys analysis results by owner and fingerprint and guarantees at
// most one in-flight computation per key. The lock guards only map mutation,
// never the computation itself. A failed computation removes the entry so the
// next request retries cleanly.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*entry

	ttl      time.Duration
	clock    Clock
	observer Observer
}

type Option func(*Cache)

// WithClock replaces the wall clock, for tests.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithObserver attaches a metrics sink for hit/miss/share/eviction events.
func WithObserver(observer Observer) Option {
	return func(c *Cache) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// New builds a cache whose ready entries expire after ttl. A non-positive
// ttl disables expiry.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[cacheKey]*entry),
		ttl:      ttl,
		clock:    time.Now,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) GetOrCompute(
	ctx context.Context,
	ownerID string,
	fp domain.Fingerprint,
	documentIDs []string,
	force bool,
	compute ports.AnalysisComputeFunc,
) (*domain.AnalysisResult, error) {
	key := cacheKey{ownerID: ownerID, fingerprint: fp}

	c.mu.Lock()
	current := c.entries[key]

	if current != nil && current.state == statePending {
		// Join the in-flight computation. Forced callers join too: the
		// single-flight guarantee covers writes as well as reads.
		c.mu.Unlock()
		c.observer.Shared()
		return c.awaitEntry(ctx, current)
	}

	if current != nil && current.state == stateReady && !force && !c.expiredLocked(current) {
		result := current.result.WithCached(true)
		c.mu.Unlock()
		c.observer.Hit()
		return result, nil
	}

	// ABSENT (or expired, or forced regeneration): become the leader.
	leader := &entry{
		state:  statePending,
		docIDs: idSet(documentIDs),
		done:   make(chan struct{}),
	}
	c.entries[key] = leader
	c.mu.Unlock()

	// The computation is detached from the requester: an aborted HTTP
	// request must not waste the LLM spend that concurrent waiters and the
	// cache would otherwise keep.
	go c.run(context.WithoutCancel(ctx), key, leader, compute)

	c.observer.Miss()
	return c.awaitEntry(ctx, leader)
}

func (c *Cache) run(ctx context.Context, key cacheKey, leader *entry, compute ports.AnalysisComputeFunc) {
	result, err := compute(ctx)

	c.mu.Lock()
	leader.result = result
	leader.err = err
	if c.entries[key] == leader {
		if err != nil {
			// PENDING -> ABSENT: no partial or garbage result is cached.
			delete(c.entries, key)
		} else {
			leader.state = stateReady
			leader.storedAt = c.clock()
		}
	}
	c.mu.Unlock()

	close(leader.done)
}

func (c *Cache) awaitEntry(ctx context.Context, e *entry) (*domain.AnalysisResult, error) {
	select {
	case <-e.done:
		if e.err != nil {
			return nil, e.err
		}
		return e.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Contains reports whether a live, unexpired result exists for the owner's
// fingerprint.
func (c *Cache) Contains(ownerID string, fp domain.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[cacheKey{ownerID: ownerID, fingerprint: fp}]
	return e != nil && e.state == stateReady && !c.expiredLocked(e)
}

// InvalidateDocument evicts every fingerprint whose document set includes
// documentID and returns the number of evicted entries. In-flight
// computations are detached from the map so their results are dropped on
// completion; current waiters still receive them.
func (c *Cache) InvalidateDocument(documentID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, e := range c.entries {
		if _, ok := e.docIDs[documentID]; ok {
			delete(c.entries, key)
			evicted++
		}
	}
	c.observer.Evicted(evicted)
	return evicted
}

func (c *Cache) expiredLocked(e *entry) bool {
	return c.ttl > 0 && c.clock().Sub(e.storedAt) > c.ttl
}

func idSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

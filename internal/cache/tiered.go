// Package cache provides the two-tier feed cache: a small in-process map in
// front of a durable store that survives process restarts. Durable-tier
// failures degrade to a cache miss and never propagate.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-map-pipeline/internal/domain"
	"github.com/couchcryptid/quake-map-pipeline/internal/observability"
)

// DefaultTTL is the entry lifetime applied by callers that have no better
// answer.
const DefaultTTL = 5 * time.Minute

// Entry is one cached feed payload. An entry is valid iff
// now - StoredAt <= TTL; expiry is evaluated lazily at read time and an
// expired entry is deleted on the read that discovers it.
type Entry struct {
	StoredAt time.Time      `json:"storedAt"`
	TTL      time.Duration  `json:"ttl"`
	Payload  []domain.Event `json:"payload"`
}

// Expired reports whether the entry's TTL has elapsed at the given instant.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// Store is the durable second tier. A nil *Entry with a nil error means a
// miss. Implementations may fail; Tiered absorbs those failures.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) (int, error)
	Close() error
}

// Tiered checks a bounded in-process map first and the durable store second.
// A durable hit warms the memory tier so later lookups in the same session
// skip the durable round-trip.
type Tiered struct {
	store      Store // may be nil for memory-only operation
	maxEntries int
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu     sync.Mutex
	memory map[string]Entry
}

// NewTiered creates the cache. A nil store degrades to memory-only; a nil
// clock uses real time.
func NewTiered(store Store, maxEntries int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Tiered {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tiered{
		store:      store,
		maxEntries: maxEntries,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		memory:     make(map[string]Entry),
	}
}

// Get returns the cached events for key, or false on a miss. Expired entries
// are purged from both tiers as they are discovered.
func (c *Tiered) Get(ctx context.Context, key string) ([]domain.Event, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	if e, ok := c.memory[key]; ok {
		if !e.Expired(now) {
			c.mu.Unlock()
			c.metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
			return e.Payload, true
		}
		delete(c.memory, key)
	}
	c.mu.Unlock()
	c.metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	if c.store == nil {
		return nil, false
	}

	e, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.CacheErrors.Inc()
		c.logger.Warn("durable cache read failed, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if e == nil {
		c.metrics.CacheLookups.WithLabelValues("durable", "miss").Inc()
		return nil, false
	}
	if e.Expired(now) {
		c.metrics.CacheLookups.WithLabelValues("durable", "miss").Inc()
		if err := c.store.Delete(ctx, key); err != nil {
			c.metrics.CacheErrors.Inc()
			c.logger.Warn("purging expired cache entry failed", "key", key, "error", err)
		}
		return nil, false
	}

	c.metrics.CacheLookups.WithLabelValues("durable", "hit").Inc()
	c.warm(key, *e)
	return e.Payload, true
}

// Set stores events under key in both tiers with the given TTL.
func (c *Tiered) Set(ctx context.Context, key string, events []domain.Event, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	e := Entry{StoredAt: c.clock.Now(), TTL: ttl, Payload: events}

	c.warm(key, e)

	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, e); err != nil {
		c.metrics.CacheErrors.Inc()
		c.logger.Warn("durable cache write failed", "key", key, "error", err)
	}
}

// Remove deletes key from both tiers.
func (c *Tiered) Remove(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.memory, key)
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, key); err != nil {
		c.metrics.CacheErrors.Inc()
		c.logger.Warn("durable cache delete failed", "key", key, "error", err)
	}
}

// Keys lists every cached key across both tiers, deduplicated.
func (c *Tiered) Keys(ctx context.Context) []string {
	seen := make(map[string]struct{})

	c.mu.Lock()
	for k := range c.memory {
		seen[k] = struct{}{}
	}
	c.mu.Unlock()

	if c.store != nil {
		durable, err := c.store.Keys(ctx)
		if err != nil {
			c.metrics.CacheErrors.Inc()
			c.logger.Warn("durable cache key listing failed", "error", err)
		}
		for _, k := range durable {
			seen[k] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}

// ClearAll removes every entry from both tiers and reports how many durable
// entries were removed. On partial failure the count covers what was removed
// before the error; removed entries stay removed.
func (c *Tiered) ClearAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	c.memory = make(map[string]Entry)
	c.mu.Unlock()

	if c.store == nil {
		return 0, nil
	}
	removed, err := c.store.Clear(ctx)
	if err != nil {
		c.metrics.CacheErrors.Inc()
		c.logger.Warn("durable cache clear failed", "removed", removed, "error", err)
	}
	return removed, err
}

// warm inserts an entry into the memory tier, evicting the single oldest
// entry by stored timestamp when the soft cap is exceeded.
func (c *Tiered) warm(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory[key] = e
	for len(c.memory) > c.maxEntries {
		c.evictOldestLocked()
	}
}

func (c *Tiered) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.memory {
		if first || e.StoredAt.Before(oldest) {
			oldestKey, oldest = k, e.StoredAt
			first = false
		}
	}
	delete(c.memory, oldestKey)
	c.metrics.CacheEvictions.Inc()
}

// Package blacklist implements the Blacklist Cache (C9): the one piece of
// state shared and concurrently mutated across every Cache-Hit Copy FSM in
// the process (spec §4.9), grounded on common/cache/cache.go's
// map+RWMutex shape with the TTL/cleanup-goroutine machinery dropped in
// favor of tri-state, monotonic-toward-Bad semantics.
package blacklist

import (
	"sync"

	"github.com/lyzr/workflow-engine/engine/model"
)

// Metrics receives a callback on every Bad write, so the caller can wire a
// counter (e.g. common/telemetry) without this package depending on it.
type Metrics interface {
	IncBlacklistBad(category model.BlacklistCategory)
}

type noopMetrics struct{}

func (noopMetrics) IncBlacklistBad(model.BlacklistCategory) {}

// Cache is the process-wide, concurrently-accessed blacklist of cache hits
// and source buckets.
type Cache struct {
	mu            sync.RWMutex
	hits          map[string]model.BlacklistStatus
	buckets       map[string]model.BlacklistStatus
	hitEnabled    bool
	bucketEnabled bool
	metrics       Metrics
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithHitEnabled toggles hit-level blacklisting (default true).
func WithHitEnabled(enabled bool) Option {
	return func(c *Cache) { c.hitEnabled = enabled }
}

// WithBucketEnabled toggles bucket-level blacklisting (default true).
func WithBucketEnabled(enabled bool) Option {
	return func(c *Cache) { c.bucketEnabled = enabled }
}

// WithMetrics wires a counter sink for Bad writes.
func WithMetrics(m Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// New creates an empty Cache with both maps enabled by default.
func New(opts ...Option) *Cache {
	c := &Cache{
		hits:          make(map[string]model.BlacklistStatus),
		buckets:       make(map[string]model.BlacklistStatus),
		hitEnabled:    true,
		bucketEnabled: true,
		metrics:       noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HitStatus returns the current status of cacheHitID; always Untested when
// hit-level blacklisting is disabled.
func (c *Cache) HitStatus(cacheHitID string) model.BlacklistStatus {
	if !c.hitEnabled {
		return model.Untested
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits[cacheHitID]
}

// BucketStatus returns the current status of bucketPrefix; always Untested
// when bucket-level blacklisting is disabled.
func (c *Cache) BucketStatus(bucketPrefix string) model.BlacklistStatus {
	if !c.bucketEnabled {
		return model.Untested
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buckets[bucketPrefix]
}

// MarkHit sets cacheHitID's status, monotonically toward Bad: once Bad,
// subsequent writes of Good/Untested are ignored within process lifetime.
func (c *Cache) MarkHit(cacheHitID string, status model.BlacklistStatus) {
	if !c.hitEnabled {
		return
	}
	c.mark(c.hits, cacheHitID, status, model.HitBlacklisted)
}

// MarkBucket sets bucketPrefix's status with the same monotonic rule.
func (c *Cache) MarkBucket(bucketPrefix string, status model.BlacklistStatus) {
	if !c.bucketEnabled {
		return
	}
	c.mark(c.buckets, bucketPrefix, status, model.BucketBlacklisted)
}

func (c *Cache) mark(m map[string]model.BlacklistStatus, key string, status model.BlacklistStatus, category model.BlacklistCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m[key] == model.Bad {
		return // never downgrades back out of Bad
	}
	m[key] = status
	if status == model.Bad {
		c.metrics.IncBlacklistBad(category)
	}
}

package blacklist_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lyzr/workflow-engine/engine/blacklist"
	"github.com/lyzr/workflow-engine/engine/model"
)

type countingMetrics struct {
	mu     sync.Mutex
	counts map[model.BlacklistCategory]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[model.BlacklistCategory]int)}
}

func (m *countingMetrics) IncBlacklistBad(category model.BlacklistCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[category]++
}

func TestCache_UnknownEntriesAreUntested(t *testing.T) {
	c := blacklist.New()
	assert.Equal(t, model.Untested, c.HitStatus("hit-1"))
	assert.Equal(t, model.Untested, c.BucketStatus("gs://bucket"))
}

func TestCache_BadNeverDowngrades(t *testing.T) {
	metrics := newCountingMetrics()
	c := blacklist.New(blacklist.WithMetrics(metrics))

	c.MarkHit("hit-1", model.Bad)
	c.MarkHit("hit-1", model.Good)
	c.MarkHit("hit-1", model.Untested)

	assert.Equal(t, model.Bad, c.HitStatus("hit-1"))
	assert.Equal(t, 1, metrics.counts[model.HitBlacklisted])
}

func TestCache_GoodCanDowngradeToBad(t *testing.T) {
	c := blacklist.New()
	c.MarkBucket("gs://bucket", model.Good)
	c.MarkBucket("gs://bucket", model.Bad)
	assert.Equal(t, model.Bad, c.BucketStatus("gs://bucket"))
}

func TestCache_DisabledDimensionAlwaysUntested(t *testing.T) {
	c := blacklist.New(blacklist.WithHitEnabled(false))
	c.MarkHit("hit-1", model.Bad)
	assert.Equal(t, model.Untested, c.HitStatus("hit-1"))
}

func TestCache_ConcurrentWritesAreSafe(t *testing.T) {
	c := blacklist.New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.MarkHit("hit-1", model.Bad)
		}()
	}
	wg.Wait()
	assert.Equal(t, model.Bad, c.HitStatus("hit-1"))
}

package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStats_SuccessThenFailure(t *testing.T) {
	stats := NewStats()

	stats.RecordSuccess(120 * time.Millisecond)
	stats.RecordFailure()

	snapshot := stats.Snapshot(0)
	assert.Equal(t, int64(2), snapshot.RequestCount)
	assert.Equal(t, 120.0, snapshot.AverageLatencyMs, "only successes contribute to the average")
	assert.Equal(t, 0.5, snapshot.ErrorRate)
}

func TestStats_P95IsMaxObserved(t *testing.T) {
	stats := NewStats()

	stats.RecordSuccess(50 * time.Millisecond)
	stats.RecordSuccess(200 * time.Millisecond)
	stats.RecordSuccess(80 * time.Millisecond)

	snapshot := stats.Snapshot(0)
	assert.Equal(t, 200.0, snapshot.P95LatencyMs)
}

func TestStats_RollingAverage(t *testing.T) {
	stats := NewStats()

	stats.RecordSuccess(100 * time.Millisecond)
	stats.RecordSuccess(200 * time.Millisecond)

	snapshot := stats.Snapshot(0)
	assert.InDelta(t, 150.0, snapshot.AverageLatencyMs, 0.001)
}

func TestStats_CacheCounters(t *testing.T) {
	stats := NewStats()

	stats.RecordCacheHit()
	stats.RecordCacheHit()
	stats.RecordCacheHit()
	stats.RecordCacheMiss()

	snapshot := stats.Snapshot(12)
	assert.Equal(t, int64(3), snapshot.CacheHits)
	assert.Equal(t, int64(1), snapshot.CacheMisses)
	assert.Equal(t, 0.75, snapshot.CacheHitRate)
	assert.Equal(t, 12, snapshot.CacheEntries)
	assert.Equal(t, int64(12*1024), snapshot.CacheMemoryBytes)
}

func TestStats_EmptySnapshot(t *testing.T) {
	stats := NewStats()

	snapshot := stats.Snapshot(0)
	assert.Equal(t, int64(0), snapshot.RequestCount)
	assert.Equal(t, 0.0, snapshot.ErrorRate)
	assert.Equal(t, 0.0, snapshot.CacheHitRate)
}

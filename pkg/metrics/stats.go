package metrics

import (
	"sync"
	"time"

	"conversation-ai-core/pkg/constants"
	"conversation-ai-core/pkg/models"
)

// Stats is the pipeline's rolling performance aggregate. All mutation happens
// under the mutex; readers get an immutable snapshot.
//
// Two fields keep deliberately approximate semantics for compatibility with
// the service's historical dashboards: P95 latency is really the maximum
// latency seen, and the error rate blends historical and new samples
// non-linearly (recomputed only on failure). Swapping in a real percentile
// and ratio estimator is tracked as an open question in DESIGN.md.
type Stats struct {
	mu           sync.Mutex
	startedAt    time.Time
	requestCount int64
	avgLatencyMs float64
	maxLatencyMs float64
	errorRate    float64
	cacheHits    int64
	cacheMisses  int64
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

// RecordSuccess counts one completed attempt and folds the latency sample
// into the rolling mean.
func (s *Stats) RecordSuccess(latency time.Duration) {
	ms := float64(latency.Milliseconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requestCount++
	n := float64(s.requestCount)
	s.avgLatencyMs = (s.avgLatencyMs*(n-1) + ms) / n
	if ms > s.maxLatencyMs {
		s.maxLatencyMs = ms
	}
}

// RecordFailure counts one completed attempt and recomputes the error rate.
// Latency of failed attempts does not contribute to the average.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := float64(s.requestCount)
	s.requestCount++
	after := float64(s.requestCount)
	s.errorRate = (s.errorRate*before + 1) / after
}

func (s *Stats) RecordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

func (s *Stats) RecordCacheMiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheMisses++
}

// Snapshot returns the current aggregate. cacheEntries is the cache's current
// size; memory usage is estimated from it, not measured.
func (s *Stats) Snapshot(cacheEntries int) models.ProcessingMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.startedAt).Seconds()
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(s.requestCount) / elapsed
	}

	hitRate := 0.0
	if total := s.cacheHits + s.cacheMisses; total > 0 {
		hitRate = float64(s.cacheHits) / float64(total)
	}

	return models.ProcessingMetrics{
		RequestCount:     s.requestCount,
		AverageLatencyMs: s.avgLatencyMs,
		P95LatencyMs:     s.maxLatencyMs,
		ErrorRate:        s.errorRate,
		Throughput:       throughput,
		CacheHits:        s.cacheHits,
		CacheMisses:      s.cacheMisses,
		CacheHitRate:     hitRate,
		CacheEntries:     cacheEntries,
		CacheMemoryBytes: int64(cacheEntries) * constants.CacheEntryBytesEstimate,
	}
}

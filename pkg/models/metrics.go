package models

import "time"

// ProcessingMetrics is an immutable snapshot of the pipeline's rolling
// performance aggregate. P95LatencyMs is the maximum latency observed so far,
// used as a p95 stand-in.
type ProcessingMetrics struct {
	RequestCount     int64   `json:"request_count"`
	AverageLatencyMs float64 `json:"average_latency_ms"`
	P95LatencyMs     float64 `json:"p95_latency_ms"`
	ErrorRate        float64 `json:"error_rate"`
	Throughput       float64 `json:"throughput"`
	CacheHits        int64   `json:"cache_hits"`
	CacheMisses      int64   `json:"cache_misses"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	CacheEntries     int     `json:"cache_entries"`
	CacheMemoryBytes int64   `json:"cache_memory_bytes"`
}

// HealthState is the tri-state rollup of collaborator and internal checks
type HealthState string

const (
	Healthy   HealthState = "healthy"
	Degraded  HealthState = "degraded"
	Unhealthy HealthState = "unhealthy"
)

// HealthReport carries the rollup plus the individual check results and the
// orchestrator's own load figures.
type HealthReport struct {
	Status       HealthState     `json:"status"`
	Checks       map[string]bool `json:"checks"`
	InFlight     int             `json:"in_flight"`
	CacheEntries int             `json:"cache_entries"`
	CheckedAt    time.Time       `json:"checked_at"`
}

package constants

import "time"

// Default pipeline configuration values
const (
	// DefaultTimeoutMS - Default bound on a full staged computation in milliseconds
	DefaultTimeoutMS = 30000

	// DefaultMaxConcurrent - Default analyzer concurrency ceiling
	DefaultMaxConcurrent = 10

	// DefaultCacheTTLSeconds - Default result cache TTL, derived from the
	// sentiment analyzer's cache-timeout setting
	DefaultCacheTTLSeconds = 300

	// DefaultCacheSweepEvery - Eager expiry sweep runs every N cache insertions
	DefaultCacheSweepEvery = 100

	// DefaultMaxCacheEntries - Cache size ceiling used by the health check
	DefaultMaxCacheEntries = 10000

	// DefaultShutdownGraceMS - How long shutdown waits for in-flight work
	DefaultShutdownGraceMS = 10000

	// DefaultMonitorIntervalMS - Re-evaluation interval for intensive monitoring
	DefaultMonitorIntervalMS = 60000
)

// Risk factor weights
const (
	WeightSentimentDecline = 0.3
	WeightRepeatIssue      = 0.25
	WeightResponseDelay    = 0.2
	WeightComplexity       = 0.15
	WeightCustomerHistory  = 0.1
)

// Risk level thresholds on the aggregate score
const (
	RiskThresholdCritical = 0.8
	RiskThresholdHigh     = 0.6
	RiskThresholdMedium   = 0.3
)

// Escalation prediction tunables
const (
	// BaselineTimeToEscalationMinutes - Starting estimate before factor adjustments
	BaselineTimeToEscalationMinutes = 240

	// MinTimeToEscalationMinutes - Floor on the adjusted estimate
	MinTimeToEscalationMinutes = 5

	// MaxPreventionActions - Prevention action lists are truncated to this length
	MaxPreventionActions = 5

	// FactorActionSeverityThreshold - Mitigable factors above this severity get
	// a factor-specific prevention action
	FactorActionSeverityThreshold = 0.5

	// EscalateNowScoreThreshold - Score at which the unconditional escalate-now
	// action is added
	EscalateNowScoreThreshold = 0.9

	// ManagerAlertScoreThreshold / ManagerAlertSeverityThreshold - Either condition
	// sets the manager-alert flag
	ManagerAlertScoreThreshold    = 0.8
	ManagerAlertSeverityThreshold = 0.9

	// MonitorStartScore / MonitorStopScore - Intensive monitoring starts at or above
	// the first and auto-stops below the second
	MonitorStartScore = 0.6
	MonitorStopScore  = 0.5
)

// Sentiment decline detection
const (
	// TrendSampleSize - Number of trailing timeline samples examined
	TrendSampleSize = 5

	// TrendMinSamples - Minimum samples required before a trend is computed
	TrendMinSamples = 3

	// TrendDeclineThreshold - Trend below this triggers the factor
	TrendDeclineThreshold = -0.3

	// AverageSentimentThreshold - Average below this triggers the factor
	AverageSentimentThreshold = -0.5
)

// Response delay detection
const (
	// ResponseDelayGapHours - Inter-message gaps above this count as delays
	ResponseDelayGapHours = 2

	// ResponseDelayNormalizationHours - Mean delay is normalized against this
	ResponseDelayNormalizationHours = 24
)

// Customer history detection
const (
	SatisfactionThreshold        = 0.6
	EscalationCountSeverityStep  = 0.2
	RepeatIssueSeverityStep      = 0.3
	ComplexityTriggerThreshold   = 0.5
	ComplexityMessageCountFactor = 0.1
	ComplexityIssueCountFactor   = 0.3
)

// Prediction confidence
const (
	ConfidenceBase      = 0.6
	ConfidencePerFactor = 0.1
	ConfidenceCeiling   = 0.95
)

// Metrics estimation
const (
	// CacheEntryBytesEstimate - Rough per-entry memory assumption, not a measurement
	CacheEntryBytesEstimate = 1024
)

// Configuration environment variable names
const (
	EnvPort              = "PORT"
	EnvLogLevel          = "LOG_LEVEL"
	EnvEnableCaching     = "ENABLE_CACHING"
	EnvTimeoutMS         = "PIPELINE_TIMEOUT_MS"
	EnvMaxConcurrent     = "MAX_CONCURRENT"
	EnvCacheTTLSeconds   = "CACHE_TTL_SECONDS"
	EnvCacheSweepEvery   = "CACHE_SWEEP_EVERY"
	EnvMaxCacheEntries   = "MAX_CACHE_ENTRIES"
	EnvShutdownGraceMS   = "SHUTDOWN_GRACE_MS"
	EnvMonitorIntervalMS = "MONITOR_INTERVAL_MS"
	EnvMemoryBackend     = "MEMORY_BACKEND"
	EnvRedisURL          = "REDIS_URL"
	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaEventsTopic  = "KAFKA_EVENTS_TOPIC"
	EnvEnableKafkaEvents = "ENABLE_KAFKA_EVENTS"
)

// Helper functions for time conversions
func MillisecondsToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func SecondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MessagesProcessed   *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	PipelineDuration    prometheus.Histogram
	CacheLookups        *prometheus.CounterVec
	InflightGauge       prometheus.Gauge
	EscalationsDetected *prometheus.CounterVec
	PreventionActions   *prometheus.CounterVec
	ActiveMonitors      prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers against the given registerer so tests can use an
// isolated registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_messages_processed_total",
			Help: "Total number of processed messages by outcome",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Time taken by each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "End-to-end time for one staged computation",
			Buckets: prometheus.DefBuckets,
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"result"}),
		InflightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_inflight_computations",
			Help: "Current number of in-flight computations",
		}),
		EscalationsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escalation_risks_detected_total",
			Help: "Escalation risk detections by level",
		}, []string{"level"}),
		PreventionActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "prevention_actions_executed_total",
			Help: "Prevention action executions by action and outcome",
		}, []string{"action", "status"}),
		ActiveMonitors: factory.NewGauge(prometheus.GaugeOpts{
			Name: "escalation_active_monitors",
			Help: "Current number of per-conversation monitoring loops",
		}),
	}
}

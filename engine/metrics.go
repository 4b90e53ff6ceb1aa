package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the scheduler's Prometheus-compatible instrumentation:
// stage latency, outbound queue depth, and retry counts, namespaced
// "sentinel" (the Stage/node-level granularity adapted from a generic
// workflow engine's per-node metrics to this scheduler's twelve stages).
type Metrics struct {
	stageLatency *prometheus.HistogramVec
	queueDepth   *prometheus.GaugeVec
	retries      *prometheus.CounterVec
	criticalErrs *prometheus.CounterVec
}

// NewMetrics registers the scheduler's metrics with registry (the default
// registerer if nil).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sentinel",
			Name:      "stage_latency_ms",
			Help:      "Stage execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"run_id", "stage", "status"}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sentinel",
			Name:      "outbound_queue_depth",
			Help:      "Number of items waiting in an outbound queue",
		}, []string{"run_id", "queue"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "retries_total",
			Help:      "Cumulative retry attempts across ops",
		}, []string{"run_id", "stage", "reason"}),
		criticalErrs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sentinel",
			Name:      "critical_errors_total",
			Help:      "Critical errors routed through the ERROR stage",
		}, []string{"run_id", "stage"}),
	}
}

func (m *Metrics) recordStage(runID string, stage Stage, latency time.Duration, status string) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(runID, string(stage), status).Observe(float64(latency.Milliseconds()))
}

func (m *Metrics) setQueueDepth(runID, queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(runID, queue).Set(float64(depth))
}

func (m *Metrics) incRetry(runID string, stage Stage, reason string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(runID, string(stage), reason).Inc()
}

func (m *Metrics) incCritical(runID string, stage Stage) {
	if m == nil {
		return
	}
	m.criticalErrs.WithLabelValues(runID, string(stage)).Inc()
}

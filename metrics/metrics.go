// Package metrics exposes Orbit's Prometheus instrumentation as a
// process-wide singleton with initialize-once semantics: the first
// caller to touch Default() builds and registers every metric exactly
// once, and every later caller observes the same instance.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter, histogram, and gauge Orbit's pipeline
// reports.
type Metrics struct {
	chunksDeduped     *prometheus.CounterVec
	bytesSaved        prometheus.Counter
	jobsTotal         *prometheus.CounterVec
	jobDuration       prometheus.Histogram
	windowOutcomes    *prometheus.CounterVec
	sentinelHeals     *prometheus.CounterVec
	sentinelClassify  *prometheus.GaugeVec
	backendOperations *prometheus.CounterVec
	backendDuration   *prometheus.HistogramVec
	backendErrors     *prometheus.CounterVec
	ledgerChunks      *prometheus.GaugeVec
}

var (
	once    sync.Once
	current *Metrics
)

// Default returns the process-wide Metrics instance, constructing and
// registering it against prometheus.DefaultRegisterer on first call.
func Default() *Metrics {
	once.Do(func() {
		current = newMetrics(prometheus.DefaultRegisterer)
	})
	return current
}

// NewWithRegistry builds an independent Metrics instance against reg,
// bypassing the process-wide singleton. Intended for tests, where
// sharing prometheus.DefaultRegisterer across test cases would collide
// on duplicate metric registration.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		chunksDeduped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "chunks_deduped_total",
			Help:      "Total chunks whose content already existed in the Universe.",
		}, []string{"lane"}),
		bytesSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "dedup_bytes_saved_total",
			Help:      "Estimated bytes avoided by content deduplication.",
		}),
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "jobs_total",
			Help:      "Total jobs processed, by terminal outcome.",
		}, []string{"outcome"}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orbit",
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of completed jobs.",
			Buckets:   prometheus.DefBuckets,
		}),
		windowOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "window_outcomes_total",
			Help:      "Transfer window outcomes, by result.",
		}, []string{"result"}),
		sentinelHeals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "sentinel_heals_total",
			Help:      "Sentinel heal attempts, by outcome.",
		}, []string{"outcome"}),
		sentinelClassify: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "sentinel_classification",
			Help:      "Chunk count by redundancy classification as of the last sweep.",
		}, []string{"classification"}),
		backendOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "backend_operations_total",
			Help:      "Backend operations, by kind.",
		}, []string{"op"}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orbit",
			Name:      "backend_operation_duration_seconds",
			Help:      "Backend operation duration, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		backendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orbit",
			Name:      "backend_errors_total",
			Help:      "Backend operation errors, by kind.",
		}, []string{"op"}),
		ledgerChunks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "orbit",
			Name:      "ledger_chunk_states",
			Help:      "Chunk count by ledger status, for the most recently observed job.",
		}, []string{"status"}),
	}
}

// RecordDedup records a chunk's dedup outcome for lane.
func (m *Metrics) RecordDedup(lane string, alreadyPresent bool, bytesSaved uint64) {
	if alreadyPresent {
		m.chunksDeduped.WithLabelValues(lane).Inc()
		m.bytesSaved.Add(float64(bytesSaved))
	}
}

// RecordJob records one job's terminal outcome and duration.
func (m *Metrics) RecordJob(outcome string, durationSeconds float64) {
	m.jobsTotal.WithLabelValues(outcome).Inc()
	m.jobDuration.Observe(durationSeconds)
}

// RecordWindow records one transfer window's result ("ok" or "fail").
func (m *Metrics) RecordWindow(result string) {
	m.windowOutcomes.WithLabelValues(result).Inc()
}

// RecordHeal records one Sentinel heal attempt's outcome.
func (m *Metrics) RecordHeal(outcome string) {
	m.sentinelHeals.WithLabelValues(outcome).Inc()
}

// SetClassification sets the last-sweep count for one classification bucket.
func (m *Metrics) SetClassification(classification string, count float64) {
	m.sentinelClassify.WithLabelValues(classification).Set(count)
}

// RecordBackendOp records one backend operation's duration, and a
// failure under the same op label if err is non-nil.
func (m *Metrics) RecordBackendOp(op string, durationSeconds float64, err error) {
	m.backendOperations.WithLabelValues(op).Inc()
	m.backendDuration.WithLabelValues(op).Observe(durationSeconds)
	if err != nil {
		m.backendErrors.WithLabelValues(op).Inc()
	}
}

// SetLedgerChunkState sets the gauge for one ledger chunk status.
func (m *Metrics) SetLedgerChunkState(status string, count float64) {
	m.ledgerChunks.WithLabelValues(status).Set(count)
}

// Handler returns the HTTP handler that serves this process's metrics
// in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courier_dispatch"

// Metrics implements ports.Metrics and the counters of the jobs and the HTTP layer.
type Metrics struct {
	dispatchOutcomes  *prometheus.CounterVec
	candidateRejected *prometheus.CounterVec
	conflictRetries   *prometheus.CounterVec
	locationsRecorded *prometheus.CounterVec
	hotCacheFailures  *prometheus.CounterVec

	outboxPublished prometheus.Counter
	outboxFailures  prometheus.Counter
	outboxPending   prometheus.Gauge
	poolDispatched  *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_outcomes_total",
			Help:      "AssignOrder results by mode and outcome.",
		}, []string{"mode", "outcome"}),
		candidateRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_candidates_rejected_total",
			Help:      "Couriers filtered out of a ranking by reason.",
		}, []string{"reason"}),
		conflictRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflict_retries_total",
			Help:      "Optimistic concurrency retries by operation.",
		}, []string{"operation"}),
		locationsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locations_recorded_total",
			Help:      "Accepted location reports.",
		}, []string{"suspicious", "duplicate"}),
		hotCacheFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hot_cache_failures_total",
			Help:      "Hot location tier errors by operation.",
		}, []string{"operation"}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox messages published to the event bus.",
		}),
		outboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_relay_failures_total",
			Help:      "Relay runs stopped by a publish error.",
		}),
		outboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Unpublished outbox messages after the last relay run.",
		}),
		poolDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_dispatch_packages_total",
			Help:      "Packages handled by the pool dispatch job by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		m.dispatchOutcomes, m.candidateRejected, m.conflictRetries, m.locationsRecorded,
		m.hotCacheFailures, m.outboxPublished, m.outboxFailures, m.outboxPending,
		m.poolDispatched, m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) DispatchOutcome(mode, outcome string) {
	m.dispatchOutcomes.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) CandidateRejected(reason string) {
	m.candidateRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) ConflictRetried(operation string) {
	m.conflictRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) LocationRecorded(suspicious, duplicate bool) {
	m.locationsRecorded.WithLabelValues(strconv.FormatBool(suspicious), strconv.FormatBool(duplicate)).Inc()
}

func (m *Metrics) HotCacheFailed(operation string) {
	m.hotCacheFailures.WithLabelValues(operation).Inc()
}

// OutboxRelayed records one relay run.
func (m *Metrics) OutboxRelayed(published int, failed bool) {
	m.outboxPublished.Add(float64(published))
	if failed {
		m.outboxFailures.Inc()
	}
}

// OutboxPending sets the backlog gauge.
func (m *Metrics) OutboxPending(pending int64) {
	m.outboxPending.Set(float64(pending))
}

// PoolDispatched counts one package handled by the pool dispatch job.
func (m *Metrics) PoolDispatched(result string) {
	m.poolDispatched.WithLabelValues(result).Inc()
}

// HTTPRequest records one served request. path is the route pattern, not the raw URL.
func (m *Metrics) HTTPRequest(method, path string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

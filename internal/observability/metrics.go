package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
	"github.com/riskibarqy/ladder-cache/internal/usecase"
)

const metricsNamespace = "ladder_cache"

var _ usecase.RefreshMetrics = (*Metrics)(nil)

// Metrics owns a private registry so tests and multiple app instances never
// collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	partitionsTotal    *prometheus.CounterVec
	partitionDuration  *prometheus.HistogramVec
	enrichFallbacks    *prometheus.CounterVec
	enrichRetries      *prometheus.CounterVec
	snapshotItems      *prometheus.GaugeVec
	runsTotal          *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	runPartitions      *prometheus.CounterVec
	circuitState       *prometheus.GaugeVec
	httpRequests       *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,
		partitionsTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "refresh",
			Name:      "partitions_total",
			Help:      "Partition refresh outcomes by game, region and status.",
		}, []string{"game", "region", "status"}),
		partitionDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "refresh",
			Name:      "partition_duration_seconds",
			Help:      "Time spent refreshing one partition, enrichment included.",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"game", "status"}),
		enrichFallbacks: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "enrichment",
			Name:      "fallbacks_total",
			Help:      "Entries stored with the Unknown profile, by reason.",
		}, []string{"game", "region", "reason"}),
		enrichRetries: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "enrichment",
			Name:      "retries_total",
			Help:      "Enrichment retries by failure class.",
		}, []string{"class"}),
		snapshotItems: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "snapshot",
			Name:      "items",
			Help:      "Item count of the last stored snapshot per game and region.",
		}, []string{"game", "region"}),
		runsTotal: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Completed game refresh passes.",
		}, []string{"game"}),
		runDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "refresh",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one game refresh pass.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"game"}),
		runPartitions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "refresh",
			Name:      "run_partitions_total",
			Help:      "Partition outcomes summed per game pass.",
		}, []string{"game", "outcome"}),
		circuitState: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "provider",
			Name:      "circuit_state",
			Help:      "Provider circuit breaker state per host: 0 closed, 1 half-open, 2 open.",
		}, []string{"host"}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpRequestSeconds: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePartition(game, region, status string, duration time.Duration) {
	m.partitionsTotal.WithLabelValues(game, region, status).Inc()
	m.partitionDuration.WithLabelValues(game, status).Observe(duration.Seconds())
}

func (m *Metrics) IncEnrichmentFallback(game, region, reason string) {
	m.enrichFallbacks.WithLabelValues(game, region, reason).Inc()
}

func (m *Metrics) IncEnrichmentRetry(class string) {
	m.enrichRetries.WithLabelValues(class).Inc()
}

func (m *Metrics) SetSnapshotItems(game, region string, count int) {
	m.snapshotItems.WithLabelValues(game, region).Set(float64(count))
}

func (m *Metrics) ObserveRun(game string, successCount, failureCount, skippedCount int, duration time.Duration) {
	m.runsTotal.WithLabelValues(game).Inc()
	m.runDuration.WithLabelValues(game).Observe(duration.Seconds())
	m.runPartitions.WithLabelValues(game, "success").Add(float64(successCount))
	m.runPartitions.WithLabelValues(game, "failure").Add(float64(failureCount))
	m.runPartitions.WithLabelValues(game, "skipped").Add(float64(skippedCount))
}

func (m *Metrics) SetCircuitState(host string, state resilience.CircuitState) {
	value := 0.0
	switch state {
	case resilience.CircuitStateHalfOpen:
		value = 1
	case resilience.CircuitStateOpen:
		value = 2
	}
	m.circuitState.WithLabelValues(host).Set(value)
}

// ObserveHTTPRequest records one served request. route should be the matched
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

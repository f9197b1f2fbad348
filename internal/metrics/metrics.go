package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Workspace Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Notification fan-out
	NotificationsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "notifications_created_total",
			Help:      "Notifications persisted by type",
		},
		[]string{"type"},
	)

	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "notification_dispatch_total",
			Help:      "Notification orchestrator runs",
		},
		[]string{"status"},
	)

	BroadcastFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "broadcast_failures_total",
			Help:      "Realtime broadcasts that failed (best-effort, not retried)",
		},
		[]string{"kind"},
	)

	// Embedding sweep
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_sweep_runs_total",
			Help:      "Embedding sweep runs",
		},
		[]string{"status"},
	)

	SweepMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_sweep_messages_total",
			Help:      "Messages published to the embedding queue",
		},
	)

	SweepBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_sweep_batches_total",
			Help:      "Queue sub-batches sent by the sweep",
		},
	)

	SweepSendFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_sweep_send_failures_total",
			Help:      "Individual queue entries that failed to send",
		},
	)

	// Embedding worker
	WorkerUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_worker_units_total",
			Help:      "Embedding work units processed by outcome",
		},
		[]string{"outcome"},
	)

	EmbeddingTokensTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_tokens_total",
			Help:      "Estimated tokens sent to the embedding backend",
		},
	)

	EmbeddingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_duration_seconds",
			Help:      "Embedding backend call duration",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	VectorSearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "vector_search_duration_seconds",
			Help:      "Similarity search duration",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// Embedding cache
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_cache_hits_total",
			Help:      "Embedding cache hits",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "workspace",
			Name:      "embedding_cache_misses_total",
			Help:      "Embedding cache misses",
		},
		[]string{"cache"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

func RecordNotificationCreated(notificationType string) {
	NotificationsCreatedTotal.WithLabelValues(notificationType).Inc()
}

func RecordDispatch(status string) {
	DispatchTotal.WithLabelValues(status).Inc()
}

func RecordBroadcastFailure(kind string) {
	BroadcastFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordSweep records the totals of one embedding sweep run
func RecordSweep(status string, messages, batches, failures int) {
	SweepRunsTotal.WithLabelValues(status).Inc()
	SweepMessagesTotal.Add(float64(messages))
	SweepBatchesTotal.Add(float64(batches))
	SweepSendFailuresTotal.Add(float64(failures))
}

func RecordWorkerUnit(outcome string) {
	WorkerUnitsTotal.WithLabelValues(outcome).Inc()
}

func RecordEmbedding(provider string, tokens int, durationSec float64) {
	EmbeddingTokensTotal.Add(float64(tokens))
	EmbeddingDuration.WithLabelValues(provider).Observe(durationSec)
}

func RecordVectorSearch(durationSec float64) {
	VectorSearchDuration.Observe(durationSec)
}

func RecordCacheHit(cache string) {
	CacheHitsTotal.WithLabelValues(cache).Inc()
}

func RecordCacheMiss(cache string) {
	CacheMissesTotal.WithLabelValues(cache).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

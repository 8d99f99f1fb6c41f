package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearscrub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clearscrub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	intakeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearscrub_intake_requests_total",
		Help: "Intake webhook outcomes by endpoint and result",
	}, []string{"endpoint", "result"})

	intakeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearscrub_intake_rejections_total",
		Help: "Rejected intake requests by stable error code",
	}, []string{"endpoint", "error_code"})

	ingestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clearscrub_ingest_duration_seconds",
		Help:    "Duration of statement ingestion attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearscrub_entity_resolutions_total",
		Help: "Entity resolver outcomes by entity and match path",
	}, []string{"entity", "outcome"})

	statementTransactions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clearscrub_statement_transactions",
		Help:    "Transactions per ingested statement",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	rollupRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearscrub_rollup_refreshes_total",
		Help: "Aggregate view refresh operations by scope and result",
	}, []string{"scope", "result"})

	rollupQueueDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clearscrub_rollup_queue_dropped_total",
		Help: "Refresh requests dropped because the worker queue was full",
	})

	replayCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clearscrub_replay_cache_total",
		Help: "Replay fast-path cache lookups by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveIntake records the final outcome of one intake request.
func ObserveIntake(endpoint, result string) {
	intakeRequests.WithLabelValues(endpoint, result).Inc()
}

// ObserveRejection records a rejected intake request with its error code.
func ObserveRejection(endpoint, errorCode string) {
	intakeRejections.WithLabelValues(endpoint, errorCode).Inc()
}

// ObserveIngest records the duration of a statement ingestion attempt.
func ObserveIngest(result string, duration time.Duration) {
	ingestDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveResolution records an entity resolver outcome
// (matched_ein, matched_name, matched_alias, matched_hash, created).
func ObserveResolution(entity, outcome string) {
	resolutions.WithLabelValues(entity, outcome).Inc()
}

// ObserveStatementSize records the transaction count of an accepted statement.
func ObserveStatementSize(transactionCount int) {
	statementTransactions.Observe(float64(transactionCount))
}

// ObserveRollupRefresh increments the refresh counter for a scope
// (account, company) and result (ok, error, skipped).
func ObserveRollupRefresh(scope, result string) {
	rollupRefreshes.WithLabelValues(scope, result).Inc()
}

// ObserveRollupDropped counts a refresh request dropped on a full queue.
func ObserveRollupDropped() {
	rollupQueueDropped.Inc()
}

// ObserveReplayCache records a replay fast-path lookup (hit, miss, error).
func ObserveReplayCache(result string) {
	replayCacheHits.WithLabelValues(result).Inc()
}

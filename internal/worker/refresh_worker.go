// Package worker runs the background rollup refresher. Aggregate views are
// allowed to go briefly stale; this worker is the catch-up mechanism.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/observability/metrics"
	"github.com/yourorg/clearscrub/internal/reliability/circuitbreaker"
	"github.com/yourorg/clearscrub/internal/reliability/retry"
)

// RefreshJob names the rollups touched by one ingestion.
type RefreshJob struct {
	AccountID string
	CompanyID string
}

// RefreshWorker consumes refresh requests from ingestion and recomputes the
// per-account and per-company rollups. Schedule never blocks the request
// path: when the queue is full the job is parked in the dirty set and
// handled on the next periodic sweep.
type RefreshWorker struct {
	rollups  domain.RollupRepository
	logger   *slog.Logger
	queue    chan RefreshJob
	interval time.Duration
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config

	mu    sync.Mutex
	dirty map[string]RefreshJob // keyed by account id
}

// NewRefreshWorker creates a refresh worker with the given queue capacity
// and sweep interval.
func NewRefreshWorker(rollups domain.RollupRepository, logger *slog.Logger, queueSize int, interval time.Duration) *RefreshWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshWorker{
		rollups:  rollups,
		logger:   logger,
		queue:    make(chan RefreshJob, queueSize),
		interval: interval,
		breaker:  circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		retryCfg: retry.DefaultConfig(),
		dirty:    map[string]RefreshJob{},
	}
}

// Schedule enqueues a refresh for the rollups behind one ingestion.
// Fire-and-forget: a full queue parks the job for the periodic sweep.
func (w *RefreshWorker) Schedule(accountID, companyID string) {
	job := RefreshJob{AccountID: accountID, CompanyID: companyID}
	select {
	case w.queue <- job:
	default:
		metrics.ObserveRollupDropped()
		w.park(job)
		w.logger.Warn("refresh queue full, parked for periodic sweep",
			slog.String("account_id", accountID),
		)
	}
}

// Start runs the worker loop until ctx is cancelled.
func (w *RefreshWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("refresh worker started",
		slog.Int("queue_capacity", cap(w.queue)),
		slog.Duration("sweep_interval", w.interval),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("refresh worker stopped")
			return
		case job := <-w.queue:
			w.process(ctx, job)
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// process refreshes both rollups for one job. Failure is logged and parked,
// never propagated: refresh is best-effort from the caller's point of view.
func (w *RefreshWorker) process(ctx context.Context, job RefreshJob) {
	if !w.breaker.AllowRequest() {
		metrics.ObserveRollupRefresh("account", "skipped")
		w.park(job)
		return
	}

	_, err := retry.Do(ctx, w.retryCfg, w.logger, "refresh_account_rollup", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.rollups.RefreshAccount(ctx, job.AccountID)
	})
	if err != nil {
		w.breaker.RecordFailure()
		metrics.ObserveRollupRefresh("account", "error")
		w.park(job)
		w.logger.Error("account rollup refresh failed",
			slog.String("account_id", job.AccountID),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.ObserveRollupRefresh("account", "ok")

	_, err = retry.Do(ctx, w.retryCfg, w.logger, "refresh_company_rollup", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.rollups.RefreshCompany(ctx, job.CompanyID)
	})
	if err != nil {
		w.breaker.RecordFailure()
		metrics.ObserveRollupRefresh("company", "error")
		w.park(job)
		w.logger.Error("company rollup refresh failed",
			slog.String("company_id", job.CompanyID),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.ObserveRollupRefresh("company", "ok")
	w.breaker.RecordSuccess()
}

// sweep retries everything parked since the last tick.
func (w *RefreshWorker) sweep(ctx context.Context) {
	w.mu.Lock()
	pending := w.dirty
	w.dirty = map[string]RefreshJob{}
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	w.logger.Info("sweeping parked rollup refreshes", slog.Int("count", len(pending)))
	for _, job := range pending {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.process(ctx, job)
	}
}

func (w *RefreshWorker) park(job RefreshJob) {
	w.mu.Lock()
	w.dirty[job.AccountID] = job
	w.mu.Unlock()
}

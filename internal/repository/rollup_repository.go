package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yourorg/clearscrub/internal/domain"
)

// PostgresRollupRepository recomputes the per-account and per-company
// aggregate views from statements. Refreshes are idempotent full
// recomputations of one row, so re-running after a dropped request is
// always safe.
type PostgresRollupRepository struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresRollupRepository creates a new rollup repository
func NewPostgresRollupRepository(db Querier, logger *slog.Logger) *PostgresRollupRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRollupRepository{db: db, logger: logger}
}

// RefreshAccount recomputes the rollup row for one account.
func (r *PostgresRollupRepository) RefreshAccount(ctx context.Context, accountID string) error {
	query := `
		INSERT INTO account_rollups (
			account_id, statement_count, total_deposits, total_revenue, total_nsf, last_period_end, refreshed_at
		)
		SELECT
			s.account_id,
			COUNT(*),
			COALESCE(SUM((s.metrics->>'total_deposits')::numeric), 0),
			COALESCE(SUM((s.metrics->>'true_revenue')::numeric), 0),
			COALESCE(SUM((s.metrics->>'nsf_count')::int), 0),
			MAX(s.period_end),
			now()
		FROM statements s
		WHERE s.account_id = $1
		GROUP BY s.account_id
		ON CONFLICT (account_id) DO UPDATE SET
			statement_count = EXCLUDED.statement_count,
			total_deposits  = EXCLUDED.total_deposits,
			total_revenue   = EXCLUDED.total_revenue,
			total_nsf       = EXCLUDED.total_nsf,
			last_period_end = EXCLUDED.last_period_end,
			refreshed_at    = EXCLUDED.refreshed_at
	`
	if _, err := r.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("failed to refresh account rollup: %w", err)
	}
	r.logger.Debug("account rollup refreshed", slog.String("account_id", accountID))
	return nil
}

// RefreshCompany recomputes the rollup row for one company.
func (r *PostgresRollupRepository) RefreshCompany(ctx context.Context, companyID string) error {
	query := `
		INSERT INTO company_rollups (
			company_id, account_count, statement_count, total_revenue, refreshed_at
		)
		SELECT
			s.company_id,
			COUNT(DISTINCT s.account_id),
			COUNT(*),
			COALESCE(SUM((s.metrics->>'true_revenue')::numeric), 0),
			now()
		FROM statements s
		WHERE s.company_id = $1
		GROUP BY s.company_id
		ON CONFLICT (company_id) DO UPDATE SET
			account_count   = EXCLUDED.account_count,
			statement_count = EXCLUDED.statement_count,
			total_revenue   = EXCLUDED.total_revenue,
			refreshed_at    = EXCLUDED.refreshed_at
	`
	if _, err := r.db.ExecContext(ctx, query, companyID); err != nil {
		return fmt.Errorf("failed to refresh company rollup: %w", err)
	}
	r.logger.Debug("company rollup refreshed", slog.String("company_id", companyID))
	return nil
}

var _ domain.RollupRepository = (*PostgresRollupRepository)(nil)

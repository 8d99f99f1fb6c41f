package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/clearscrub/internal/domain"
)

// PostgresStatementRepository implements domain.StatementRepository. The
// (account_id, period_start, period_end) unique constraint makes Upsert
// last-write-wins per period: reprocessing a document, or a second document
// covering the same period, updates the row instead of duplicating it.
type PostgresStatementRepository struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresStatementRepository creates a new statement repository
func NewPostgresStatementRepository(db Querier, logger *slog.Logger) *PostgresStatementRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStatementRepository{db: db, logger: logger}
}

// Upsert inserts the statement or overwrites the existing row for the same
// (account, period). The incoming extraction is authoritative for its
// period.
func (r *PostgresStatementRepository) Upsert(ctx context.Context, statement *domain.Statement) (*domain.Statement, error) {
	transactions, err := json.Marshal(statement.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transactions: %w", err)
	}
	metrics, err := json.Marshal(statement.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO statements (
			account_id, company_id, document_id, submission_id,
			period_start, period_end, opening_balance, closing_balance,
			metrics, transactions
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id, period_start, period_end) DO UPDATE SET
			company_id      = EXCLUDED.company_id,
			document_id     = EXCLUDED.document_id,
			submission_id   = EXCLUDED.submission_id,
			opening_balance = EXCLUDED.opening_balance,
			closing_balance = EXCLUDED.closing_balance,
			metrics         = EXCLUDED.metrics,
			transactions    = EXCLUDED.transactions,
			updated_at      = now()
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		statement.AccountID, statement.CompanyID, statement.DocumentID, statement.SubmissionID,
		statement.PeriodStart, statement.PeriodEnd,
		statement.OpeningBalance, statement.ClosingBalance,
		metrics, transactions,
	).Scan(&statement.ID, &statement.CreatedAt, &statement.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert statement: %w", err)
	}

	r.logger.Debug("statement upserted",
		slog.String("statement_id", statement.ID),
		slog.String("account_id", statement.AccountID),
		slog.Time("period_start", statement.PeriodStart),
		slog.Time("period_end", statement.PeriodEnd),
	)
	return statement, nil
}

// GetByPeriod retrieves the statement for (account, period), if any.
func (r *PostgresStatementRepository) GetByPeriod(ctx context.Context, accountID string, periodStart, periodEnd time.Time) (*domain.Statement, error) {
	query := `
		SELECT id, account_id, company_id, document_id, submission_id,
		       period_start, period_end, opening_balance, closing_balance,
		       metrics, transactions, created_at, updated_at
		FROM statements
		WHERE account_id = $1 AND period_start = $2 AND period_end = $3
	`
	s := &domain.Statement{}
	var metrics, transactions []byte
	err := r.db.QueryRowContext(ctx, query, accountID, periodStart, periodEnd).Scan(
		&s.ID, &s.AccountID, &s.CompanyID, &s.DocumentID, &s.SubmissionID,
		&s.PeriodStart, &s.PeriodEnd, &s.OpeningBalance, &s.ClosingBalance,
		&metrics, &transactions, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	if err := json.Unmarshal(metrics, &s.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(transactions, &s.Transactions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
	}
	return s, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/clearscrub/internal/domain"
)

// PostgresAccountRepository implements domain.AccountRepository. Identity
// within a company is the account-number hash, enforced by a unique
// constraint on (company_id, account_hash).
type PostgresAccountRepository struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresAccountRepository creates a new account repository
func NewPostgresAccountRepository(db Querier, logger *slog.Logger) *PostgresAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAccountRepository{db: db, logger: logger}
}

const accountColumns = `id, company_id, bank_name, masked_number, account_hash, account_type, status, created_at`

func scanAccount(row *sql.Row) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(&a.ID, &a.CompanyID, &a.BankName, &a.MaskedNumber, &a.AccountHash, &a.AccountType, &a.Status, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// GetByHash retrieves an account by (company, account-number hash)
func (r *PostgresAccountRepository) GetByHash(ctx context.Context, companyID, accountHash string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE company_id = $1 AND account_hash = $2
	`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, companyID, accountHash))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get account by hash: %w", err)
	}
	return a, nil
}

// InsertOrFetch inserts the account or returns the row a concurrent insert
// already created for the same (company, hash).
func (r *PostgresAccountRepository) InsertOrFetch(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (company_id, bank_name, masked_number, account_hash, account_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id, account_hash) DO NOTHING
		RETURNING ` + accountColumns + `
	`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query,
		account.CompanyID, account.BankName, account.MaskedNumber,
		account.AccountHash, account.AccountType, account.Status,
	))
	if err == nil {
		r.logger.Debug("account inserted",
			slog.String("company_id", a.CompanyID),
			slog.String("account_id", a.ID),
		)
		return a, nil
	}
	if !errors.Is(err, domain.ErrNotFound) && !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}

	existing, getErr := r.GetByHash(ctx, account.CompanyID, account.AccountHash)
	if getErr != nil {
		return nil, fmt.Errorf("failed to fetch account after conflict: %w", getErr)
	}
	return existing, nil
}

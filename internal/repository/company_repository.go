package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/clearscrub/internal/domain"
)

// PostgresCompanyRepository implements domain.CompanyRepository. Uniqueness
// on (tenant_id, normalized_name) and (tenant_id, ein) lives in the schema;
// InsertOrFetch leans on it to stay correct under concurrent inserts.
type PostgresCompanyRepository struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresCompanyRepository creates a new company repository
func NewPostgresCompanyRepository(db Querier, logger *slog.Logger) *PostgresCompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCompanyRepository{db: db, logger: logger}
}

const companyColumns = `id, tenant_id, legal_name, normalized_name, COALESCE(ein, ''), created_at, updated_at`

func scanCompany(row *sql.Row) (*domain.Company, error) {
	c := &domain.Company{}
	err := row.Scan(&c.ID, &c.TenantID, &c.LegalName, &c.NormalizedName, &c.EIN, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetByEIN retrieves a company by (tenant, ein)
func (r *PostgresCompanyRepository) GetByEIN(ctx context.Context, tenantID, ein string) (*domain.Company, error) {
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		WHERE tenant_id = $1 AND ein = $2
	`
	c, err := scanCompany(r.db.QueryRowContext(ctx, query, tenantID, ein))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company by ein: %w", err)
	}
	return c, nil
}

// GetByNormalizedName retrieves a company by (tenant, normalized name)
func (r *PostgresCompanyRepository) GetByNormalizedName(ctx context.Context, tenantID, normalizedName string) (*domain.Company, error) {
	query := `
		SELECT ` + companyColumns + `
		FROM companies
		WHERE tenant_id = $1 AND normalized_name = $2
	`
	c, err := scanCompany(r.db.QueryRowContext(ctx, query, tenantID, normalizedName))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company by name: %w", err)
	}
	return c, nil
}

// InsertOrFetch inserts the company or, when a concurrent insert already won
// on either uniqueness key, fetches and returns the surviving row.
func (r *PostgresCompanyRepository) InsertOrFetch(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	query := `
		INSERT INTO companies (tenant_id, legal_name, normalized_name, ein)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (tenant_id, normalized_name) DO NOTHING
		RETURNING ` + companyColumns + `
	`
	c, err := scanCompany(r.db.QueryRowContext(ctx, query, company.TenantID, company.LegalName, company.NormalizedName, company.EIN))
	if err == nil {
		r.logger.Debug("company inserted",
			slog.String("tenant_id", c.TenantID),
			slog.String("company_id", c.ID),
		)
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) && !isUniqueViolation(err) {
		return nil, fmt.Errorf("failed to insert company: %w", err)
	}

	// Lost the race on the name key, or the EIN partial unique index fired.
	// The surviving row is authoritative; retry the lookups in resolver
	// priority order.
	if company.EIN != "" {
		if existing, einErr := r.GetByEIN(ctx, company.TenantID, company.EIN); einErr == nil {
			return existing, nil
		} else if !errors.Is(einErr, domain.ErrNotFound) {
			return nil, einErr
		}
	}
	existing, nameErr := r.GetByNormalizedName(ctx, company.TenantID, company.NormalizedName)
	if nameErr != nil {
		return nil, fmt.Errorf("failed to fetch company after conflict: %w", nameErr)
	}
	return existing, nil
}

// Enrich records the EIN on a company created before the EIN was known. A
// no-op when the company already carries one.
func (r *PostgresCompanyRepository) Enrich(ctx context.Context, companyID, ein string) error {
	query := `
		UPDATE companies
		SET ein = $1, updated_at = now()
		WHERE id = $2 AND ein IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, ein, companyID); err != nil {
		if isUniqueViolation(err) {
			// Another company in the tenant already owns this EIN; keep the
			// name-matched record as-is rather than guessing a merge.
			return domain.ErrUniqueViolation
		}
		return fmt.Errorf("failed to enrich company: %w", err)
	}
	return nil
}

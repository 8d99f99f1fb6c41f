package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/yourorg/clearscrub/internal/domain"
)

// PostgresAliasRepository reads operator-maintained company aliases. The
// ingestion path never writes this table.
type PostgresAliasRepository struct {
	db Querier
}

// NewPostgresAliasRepository creates a new alias repository
func NewPostgresAliasRepository(db Querier) *PostgresAliasRepository {
	return &PostgresAliasRepository{db: db}
}

// GetCompanyID returns the company an alias points at.
func (r *PostgresAliasRepository) GetCompanyID(ctx context.Context, tenantID, normalizedName string) (string, error) {
	query := `
		SELECT company_id
		FROM company_aliases
		WHERE tenant_id = $1 AND normalized_name = $2
	`
	var companyID string
	err := r.db.QueryRowContext(ctx, query, tenantID, normalizedName).Scan(&companyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to get alias: %w", err)
	}
	return companyID, nil
}

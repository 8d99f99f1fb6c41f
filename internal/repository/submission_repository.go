package repository

import (
	"context"
	"fmt"

	"github.com/yourorg/clearscrub/internal/domain"
)

// PostgresSubmissionRepository persists intake submissions.
type PostgresSubmissionRepository struct {
	db Querier
}

// NewPostgresSubmissionRepository creates a new submission repository
func NewPostgresSubmissionRepository(db Querier) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

// Create stores a submission. The caller mints the id.
func (r *PostgresSubmissionRepository) Create(ctx context.Context, submission *domain.Submission) error {
	query := `
		INSERT INTO submissions (id, tenant_id, company_id, source)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		submission.ID, submission.TenantID, submission.CompanyID, submission.Source,
	).Scan(&submission.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

// PostgresApplicationRepository persists loan applications.
type PostgresApplicationRepository struct {
	db Querier
}

// NewPostgresApplicationRepository creates a new application repository
func NewPostgresApplicationRepository(db Querier) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

// Create stores an application.
func (r *PostgresApplicationRepository) Create(ctx context.Context, application *domain.Application) error {
	query := `
		INSERT INTO applications (
			tenant_id, company_id, submission_id,
			owner_first_name, owner_last_name, owner_email, requested_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		application.TenantID, application.CompanyID, application.SubmissionID,
		application.OwnerFirstName, application.OwnerLastName, application.OwnerEmail,
		application.RequestedAmount,
	).Scan(&application.ID, &application.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

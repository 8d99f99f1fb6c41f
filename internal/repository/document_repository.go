package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/clearscrub/internal/domain"
)

// PostgresDocumentRepository reads and finalizes documents. Document
// creation belongs to the upload flow; ingestion only flips status and
// records the extraction job that produced the stored payload.
type PostgresDocumentRepository struct {
	db     Querier
	logger *slog.Logger
}

// NewPostgresDocumentRepository creates a new document repository
func NewPostgresDocumentRepository(db Querier, logger *slog.Logger) *PostgresDocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDocumentRepository{db: db, logger: logger}
}

// Get retrieves a document scoped to its tenant.
func (r *PostgresDocumentRepository) Get(ctx context.Context, tenantID, documentID string) (*domain.Document, error) {
	query := `
		SELECT id, tenant_id, file_path, status, COALESCE(schema_job_id, ''), updated_at
		FROM documents
		WHERE id = $1 AND tenant_id = $2
	`
	d := &domain.Document{}
	err := r.db.QueryRowContext(ctx, query, documentID, tenantID).Scan(
		&d.ID, &d.TenantID, &d.FilePath, &d.Status, &d.SchemaJobID, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return d, nil
}

// Finalize records the extraction job id and raw payload on the document and
// marks it complete.
func (r *PostgresDocumentRepository) Finalize(ctx context.Context, tenantID, documentID, schemaJobID string, payload []byte) error {
	query := `
		UPDATE documents
		SET status = 'completed', schema_job_id = $1, payload = $2, updated_at = now()
		WHERE id = $3 AND tenant_id = $4
	`
	res, err := r.db.ExecContext(ctx, query, schemaJobID, payload, documentID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to finalize document: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	r.logger.Debug("document finalized",
		slog.String("document_id", documentID),
		slog.String("schema_job_id", schemaJobID),
	)
	return nil
}

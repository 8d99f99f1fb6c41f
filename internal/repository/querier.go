package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/pkg/database"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so every repository can
// run standalone or inside a transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StatementWriter is the view of the store handed to a unit-of-work
// callback: the statement upsert and the document finalize that must land
// together.
type StatementWriter interface {
	Statements() domain.StatementRepository
	Documents() domain.DocumentRepository
}

// UnitOfWork runs a callback with repositories bound to one transaction.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(w StatementWriter) error) error
}

// SQLUnitOfWork implements UnitOfWork over the connection pool.
type SQLUnitOfWork struct {
	pool   *database.ConnectionPool
	logger *slog.Logger
}

// NewSQLUnitOfWork creates a unit of work backed by the pool.
func NewSQLUnitOfWork(pool *database.ConnectionPool, logger *slog.Logger) *SQLUnitOfWork {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLUnitOfWork{pool: pool, logger: logger}
}

type txWriter struct {
	statements *PostgresStatementRepository
	documents  *PostgresDocumentRepository
}

func (w *txWriter) Statements() domain.StatementRepository { return w.statements }
func (w *txWriter) Documents() domain.DocumentRepository   { return w.documents }

// Execute runs fn with tx-bound repositories in a single transaction.
func (u *SQLUnitOfWork) Execute(ctx context.Context, fn func(w StatementWriter) error) error {
	return u.pool.WithinTx(ctx, func(tx *sql.Tx) error {
		return fn(&txWriter{
			statements: NewPostgresStatementRepository(tx, u.logger),
			documents:  NewPostgresDocumentRepository(tx, u.logger),
		})
	})
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (the losing side of an insert race).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

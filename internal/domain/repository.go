package domain

import (
	"context"
	"time"
)

// CompanyRepository defines data access for companies. InsertOrFetch must be
// atomic with respect to the (tenant, normalized name) and (tenant, ein)
// uniqueness constraints: when a concurrent insert wins the race, it returns
// the surviving row instead of an error.
type CompanyRepository interface {
	GetByEIN(ctx context.Context, tenantID, ein string) (*Company, error)
	GetByNormalizedName(ctx context.Context, tenantID, normalizedName string) (*Company, error)
	InsertOrFetch(ctx context.Context, company *Company) (*Company, error)
	Enrich(ctx context.Context, companyID, ein string) error
}

// AliasRepository reads operator-maintained name aliases. Never written by
// the ingestion path.
type AliasRepository interface {
	GetCompanyID(ctx context.Context, tenantID, normalizedName string) (string, error)
}

// AccountRepository defines data access for accounts, with the same
// insert-or-fetch contract on (company, account hash).
type AccountRepository interface {
	GetByHash(ctx context.Context, companyID, accountHash string) (*Account, error)
	InsertOrFetch(ctx context.Context, account *Account) (*Account, error)
}

// StatementRepository upserts statements keyed by (account, period start,
// period end); a later upsert for the same key overwrites derived fields and
// the transaction list.
type StatementRepository interface {
	Upsert(ctx context.Context, statement *Statement) (*Statement, error)
	GetByPeriod(ctx context.Context, accountID string, periodStart, periodEnd time.Time) (*Statement, error)
}

// DocumentRepository reads and finalizes documents owned by the upload flow.
type DocumentRepository interface {
	Get(ctx context.Context, tenantID, documentID string) (*Document, error)
	Finalize(ctx context.Context, tenantID, documentID, schemaJobID string, payload []byte) error
}

// SubmissionRepository persists intake submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *Submission) error
}

// ApplicationRepository persists loan applications.
type ApplicationRepository interface {
	Create(ctx context.Context, application *Application) error
}

// RollupRepository recomputes the aggregate views. Refreshes are idempotent
// and may be re-run at any time.
type RollupRepository interface {
	RefreshAccount(ctx context.Context, accountID string) error
	RefreshCompany(ctx context.Context, companyID string) error
}

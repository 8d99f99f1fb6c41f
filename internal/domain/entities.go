package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company represents a borrower entity, scoped to one tenant (org).
type Company struct {
	ID             string
	TenantID       string
	LegalName      string
	NormalizedName string // derived comparison key, see normalize package
	EIN            string // optional; empty when unknown
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Account represents a bank account belonging to a Company. The plaintext
// account number is never stored; identity is the SHA-256 of the normalized
// number and the display form shows only the last 4 digits.
type Account struct {
	ID           string
	CompanyID    string
	BankName     string
	MaskedNumber string // ****1234
	AccountHash  string // hex SHA-256 of normalized account number
	AccountType  string // checking, savings, unknown
	Status       string // active, closed
	CreatedAt    time.Time
}

// TransactionType is the classifier's label for one transaction.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionFee        TransactionType = "fee"
)

// Transaction is one validated, classified statement line item.
type Transaction struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
	Type           TransactionType `json:"type"`
}

// StatementMetrics holds the per-statement aggregates derived from the
// classified transaction list.
type StatementMetrics struct {
	DepositCount        int             `json:"deposit_count"`
	NSFCount            int             `json:"nsf_count"`
	NegativeBalanceDays int             `json:"negative_balance_days"`
	TrueRevenue         decimal.Decimal `json:"true_revenue"`
	TotalDeposits       decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals    decimal.Decimal `json:"total_withdrawals"`
	TransactionCount    int             `json:"transaction_count"`
}

// Statement is one reporting period for one Account. Within an account there
// is at most one statement per (PeriodStart, PeriodEnd); later extractions
// for the same period overwrite the earlier ones.
type Statement struct {
	ID             string
	AccountID      string
	CompanyID      string // denormalized for read paths
	DocumentID     string // provenance
	SubmissionID   string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	Metrics        StatementMetrics
	Transactions   []Transaction
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Document is the provenance record for one extraction job. Its lifecycle
// (upload, creation) is owned elsewhere; ingestion reads and updates the
// status and job-id fields only.
type Document struct {
	ID          string
	TenantID    string
	FilePath    string
	Status      string // uploaded, processing, completed, failed
	SchemaJobID string // last extraction job id applied, empty if none
	UpdatedAt   time.Time
}

// Submission groups the records produced by one intake event.
type Submission struct {
	ID        string
	TenantID  string
	CompanyID string
	Source    string // statement_webhook, application_webhook
	CreatedAt time.Time
}

// Application is a loan application created by the application-intake
// endpoint.
type Application struct {
	ID              string
	TenantID        string
	CompanyID       string
	SubmissionID    string
	OwnerFirstName  string
	OwnerLastName   string
	OwnerEmail      string
	RequestedAmount decimal.Decimal
	CreatedAt       time.Time
}

// AccountRollup is the per-account aggregate view refreshed after ingestion.
type AccountRollup struct {
	AccountID      string
	StatementCount int
	TotalDeposits  decimal.Decimal
	TotalRevenue   decimal.Decimal
	TotalNSF       int
	LastPeriodEnd  time.Time
	RefreshedAt    time.Time
}

// CompanyRollup is the per-company aggregate view.
type CompanyRollup struct {
	CompanyID      string
	AccountCount   int
	StatementCount int
	TotalRevenue   decimal.Decimal
	RefreshedAt    time.Time
}

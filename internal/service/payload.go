package service

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourorg/clearscrub/internal/analyze"
	"github.com/yourorg/clearscrub/internal/domain"
)

// StatementIntakePayload is the extraction webhook body. The extractor's
// output is loosely typed (amounts arrive as numbers or numeric strings), so
// everything numeric is held raw here and converted during validation;
// downstream components only ever see validated, strongly typed records.
type StatementIntakePayload struct {
	DocumentID       string         `json:"document_id"`
	SubmissionID     string         `json:"submission_id"`
	OrgID            string         `json:"org_id"`
	FilePath         string         `json:"file_path"`
	LlamaJobID       string         `json:"llama_job_id"`
	PartialSuccess   bool           `json:"partial_success"`
	ExtractionErrors []string       `json:"extraction_errors"`
	ExtractedData    *ExtractedData `json:"extracted_data"`
}

// ExtractedData wraps the statement section of the extractor output.
type ExtractedData struct {
	Statement *RawStatement `json:"statement"`
}

// RawStatement is the unvalidated statement section.
type RawStatement struct {
	Summary      RawSummary       `json:"summary"`
	Transactions []RawTransaction `json:"transactions"`
}

// RawSummary carries the statement header fields as extracted.
type RawSummary struct {
	CompanyName    string          `json:"company_name"`
	EIN            string          `json:"ein"`
	BankName       string          `json:"bank_name"`
	AccountNumber  string          `json:"account_number"`
	AccountType    string          `json:"account_type"`
	PeriodStart    string          `json:"period_start"`
	PeriodEnd      string          `json:"period_end"`
	OpeningBalance json.RawMessage `json:"opening_balance"`
	ClosingBalance json.RawMessage `json:"closing_balance"`
}

// RawTransaction is one unvalidated statement line.
type RawTransaction struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Balance     json.RawMessage `json:"balance"`
}

// ValidatedStatement is the strongly typed result of payload validation; the
// only shape the resolver and metrics components consume.
type ValidatedStatement struct {
	CompanyName    string
	EIN            string
	BankName       string
	AccountNumber  string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	Transactions   []domain.Transaction
}

const dateLayout = "2006-01-02"

// Validate checks the envelope and converts every transaction row, aborting
// on the first invalid row with its index named. maxTransactions is the hard
// cap per statement.
func (p *StatementIntakePayload) Validate(maxTransactions int) (*ValidatedStatement, error) {
	for _, f := range []struct{ name, value string }{
		{"document_id", p.DocumentID},
		{"org_id", p.OrgID},
		{"file_path", p.FilePath},
		{"llama_job_id", p.LlamaJobID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, domain.Reject(domain.CodeMissingField, http.StatusBadRequest, "missing required field %s", f.name)
		}
	}
	if p.ExtractedData == nil || p.ExtractedData.Statement == nil {
		return nil, domain.Reject(domain.CodeMissingField, http.StatusBadRequest, "missing required field extracted_data.statement")
	}

	stmt := p.ExtractedData.Statement
	if stmt.Summary.CompanyName == "" {
		return nil, domain.Reject(domain.CodeMissingField, http.StatusBadRequest, "missing required field extracted_data.statement.summary.company_name")
	}
	if stmt.Summary.AccountNumber == "" {
		return nil, domain.Reject(domain.CodeMissingField, http.StatusBadRequest, "missing required field extracted_data.statement.summary.account_number")
	}
	if len(stmt.Transactions) > maxTransactions {
		return nil, domain.Reject(domain.CodeTooManyTransactions, http.StatusBadRequest,
			"statement has %d transactions, limit is %d", len(stmt.Transactions), maxTransactions)
	}

	periodStart, err := time.Parse(dateLayout, stmt.Summary.PeriodStart)
	if err != nil {
		return nil, domain.Reject(domain.CodeInvalidDate, http.StatusBadRequest, "summary period_start %q is not a valid date", stmt.Summary.PeriodStart)
	}
	periodEnd, err := time.Parse(dateLayout, stmt.Summary.PeriodEnd)
	if err != nil {
		return nil, domain.Reject(domain.CodeInvalidDate, http.StatusBadRequest, "summary period_end %q is not a valid date", stmt.Summary.PeriodEnd)
	}

	opening, err := parseFlexDecimal(stmt.Summary.OpeningBalance)
	if err != nil {
		return nil, domain.Reject(domain.CodeInvalidAmount, http.StatusBadRequest, "summary opening_balance is not a valid amount")
	}
	closing, err := parseFlexDecimal(stmt.Summary.ClosingBalance)
	if err != nil {
		return nil, domain.Reject(domain.CodeInvalidAmount, http.StatusBadRequest, "summary closing_balance is not a valid amount")
	}

	transactions := make([]domain.Transaction, 0, len(stmt.Transactions))
	for i, raw := range stmt.Transactions {
		amount, err := parseFlexDecimal(raw.Amount)
		if err != nil {
			return nil, domain.Reject(domain.CodeInvalidAmount, http.StatusBadRequest, "transaction %d: invalid amount", i)
		}
		date, err := time.Parse(dateLayout, raw.Date)
		if err != nil {
			return nil, domain.Reject(domain.CodeInvalidDate, http.StatusBadRequest, "transaction %d: invalid date %q", i, raw.Date)
		}
		balance, err := parseFlexDecimal(raw.Balance)
		if err != nil {
			return nil, domain.Reject(domain.CodeInvalidAmount, http.StatusBadRequest, "transaction %d: invalid balance", i)
		}

		transactions = append(transactions, domain.Transaction{
			ID:             uuid.NewString(),
			Date:           date,
			Description:    raw.Description,
			Amount:         amount,
			RunningBalance: balance,
			Type:           analyze.Classify(amount, raw.Description),
		})
	}

	return &ValidatedStatement{
		CompanyName:    stmt.Summary.CompanyName,
		EIN:            stmt.Summary.EIN,
		BankName:       stmt.Summary.BankName,
		AccountNumber:  stmt.Summary.AccountNumber,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Transactions:   transactions,
	}, nil
}

// parseFlexDecimal accepts a JSON number or a numeric string. An absent
// value parses as zero; anything non-numeric is an error.
func parseFlexDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
		if s == "" {
			return decimal.Zero, nil
		}
	}
	// Extractors occasionally emit formatted strings like "1,234.56".
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

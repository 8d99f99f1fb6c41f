package domain

import (
	"errors"
	"fmt"
)

// Machine-readable error codes returned to the extraction pipeline.
const (
	CodeUnauthorized        = "unauthorized"
	CodeReplayWindow        = "replay_window_exceeded"
	CodeMissingField        = "missing_field"
	CodeTooManyTransactions = "too_many_transactions"
	CodeInvalidAmount       = "invalid_amount"
	CodeInvalidDate         = "invalid_date"
	CodePayloadTooLarge     = "payload_too_large"
	CodeInvalidJSON         = "invalid_json"
	CodeStatementConflict   = "statement_conflict"
	CodeDocumentNotFound    = "document_not_found"
	CodeRateLimited         = "rate_limited"
	CodeInternal            = "internal_error"
)

// ErrNotFound is returned by repositories when a lookup misses.
var ErrNotFound = errors.New("not found")

// ErrUniqueViolation signals a storage uniqueness constraint fired; the
// resolver retries the lookup instead of assuming its insert won.
var ErrUniqueViolation = errors.New("unique constraint violation")

// RejectionError is a request rejected at one of the orchestrator gates. It
// carries the stable error code and the HTTP status the handler should map
// it to.
type RejectionError struct {
	Code       string
	Message    string
	HTTPStatus int
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Reject builds a RejectionError.
func Reject(code string, status int, format string, args ...any) *RejectionError {
	return &RejectionError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: status,
	}
}

// ConflictError is a second, different extraction job targeting an already
// completed document. Surfaced distinctly so callers can alert a human
// instead of silently overwriting.
type ConflictError struct {
	DocumentID    string
	ExistingJobID string
	IncomingJobID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("statement_conflict: document %s already completed by job %s, refusing job %s",
		e.DocumentID, e.ExistingJobID, e.IncomingJobID)
}

// ResolutionStage identifies which persistence step failed.
type ResolutionStage string

const (
	StageCompany    ResolutionStage = "company"
	StageAccount    ResolutionStage = "account"
	StageStatement  ResolutionStage = "statement"
	StageDocument   ResolutionStage = "document"
	StageSubmission ResolutionStage = "submission"
)

// ResolutionError wraps a datastore failure during resolve or upsert. Fatal
// for the request; all stages map to the same 500 contract for callers, the
// stage is for diagnostics only.
type ResolutionError struct {
	Stage ResolutionStage
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s resolution failed: %v", e.Stage, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

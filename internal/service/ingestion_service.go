// Package service contains the intake orchestrators: the request-scoped
// pipelines behind the webhook endpoints.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/clearscrub/internal/analyze"
	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/observability/metrics"
	"github.com/yourorg/clearscrub/internal/repository"
	"github.com/yourorg/clearscrub/internal/resolver"
)

// ReplayCache is the fast path for exact webhook replays. Satisfied by the
// redis client wrapper; always best-effort, the Document row stays the
// source of truth.
type ReplayCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RollupScheduler accepts fire-and-forget aggregate refresh requests. It
// must never block: the worker drops requests when saturated and the
// periodic sweep catches up.
type RollupScheduler interface {
	Schedule(accountID, companyID string)
}

// IngestResult is the success body for the statement intake endpoint.
type IngestResult struct {
	DocumentID       string                  `json:"document_id"`
	StatementID      string                  `json:"statement_id"`
	CompanyID        string                  `json:"company_id"`
	AccountID        string                  `json:"account_id"`
	Status           string                  `json:"status"`
	Metrics          domain.StatementMetrics `json:"metrics"`
	IdempotentReplay bool                    `json:"idempotent_replay,omitempty"`
}

// IngestionService drives one extraction payload through validation,
// idempotency checks, entity resolution, and the statement upsert. One
// instance serves all requests; per-request state lives on the stack.
type IngestionService struct {
	documents   domain.DocumentRepository
	submissions domain.SubmissionRepository
	resolver    *resolver.Resolver
	uow         repository.UnitOfWork
	replay      ReplayCache
	rollups     RollupScheduler
	logger      *slog.Logger

	maxTransactions int
	replayTTL       time.Duration
}

// NewIngestionService creates the statement intake orchestrator. replay may
// be nil (the fast path is skipped); rollups may not.
func NewIngestionService(
	documents domain.DocumentRepository,
	submissions domain.SubmissionRepository,
	entityResolver *resolver.Resolver,
	uow repository.UnitOfWork,
	replay ReplayCache,
	rollups RollupScheduler,
	logger *slog.Logger,
	maxTransactions int,
	replayTTL time.Duration,
) *IngestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestionService{
		documents:       documents,
		submissions:     submissions,
		resolver:        entityResolver,
		uow:             uow,
		replay:          replay,
		rollups:         rollups,
		logger:          logger,
		maxTransactions: maxTransactions,
		replayTTL:       replayTTL,
	}
}

// IngestStatement processes one extraction payload. rawPayload is the exact
// request body, stored on the document for provenance. Returns a
// RejectionError, ConflictError, or ResolutionError on failure; the handler
// maps each to its HTTP contract.
func (s *IngestionService) IngestStatement(ctx context.Context, payload *StatementIntakePayload, rawPayload []byte) (*IngestResult, error) {
	start := time.Now()

	validated, err := payload.Validate(s.maxTransactions)
	if err != nil {
		metrics.ObserveIngest("rejected", time.Since(start))
		return nil, err
	}

	replayKey := fmt.Sprintf("replay:%s:%s:%s", payload.OrgID, payload.DocumentID, payload.LlamaJobID)
	if s.replay != nil {
		if _, err := s.replay.Get(ctx, replayKey); err == nil {
			metrics.ObserveReplayCache("hit")
			metrics.ObserveIngest("replay", time.Since(start))
			s.logger.Info("idempotent replay served from cache",
				slog.String("document_id", payload.DocumentID),
				slog.String("llama_job_id", payload.LlamaJobID),
			)
			return &IngestResult{IdempotentReplay: true}, nil
		}
		metrics.ObserveReplayCache("miss")
	}

	doc, err := s.documents.Get(ctx, payload.OrgID, payload.DocumentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveIngest("rejected", time.Since(start))
			return nil, domain.Reject(domain.CodeDocumentNotFound, http.StatusNotFound,
				"document %s not found for org %s", payload.DocumentID, payload.OrgID)
		}
		metrics.ObserveIngest("error", time.Since(start))
		return nil, &domain.ResolutionError{Stage: domain.StageDocument, Err: err}
	}

	// Idempotency gate. An identical job id is an exact replay; a different
	// one is a stale or competing extraction that must not clobber the
	// applied result.
	if doc.SchemaJobID != "" {
		if doc.SchemaJobID == payload.LlamaJobID {
			s.markReplayed(ctx, replayKey)
			metrics.ObserveIngest("replay", time.Since(start))
			return &IngestResult{IdempotentReplay: true}, nil
		}
		metrics.ObserveIngest("conflict", time.Since(start))
		return nil, &domain.ConflictError{
			DocumentID:    payload.DocumentID,
			ExistingJobID: doc.SchemaJobID,
			IncomingJobID: payload.LlamaJobID,
		}
	}

	statementMetrics := analyze.ComputeMetrics(validated.Transactions)

	companyID, err := s.resolver.ResolveCompany(ctx, payload.OrgID, validated.CompanyName, validated.EIN)
	if err != nil {
		metrics.ObserveIngest("error", time.Since(start))
		return nil, err
	}
	accountID, err := s.resolver.ResolveAccount(ctx, companyID, validated.AccountNumber, validated.BankName)
	if err != nil {
		metrics.ObserveIngest("error", time.Since(start))
		return nil, err
	}

	submissionID := payload.SubmissionID
	if submissionID == "" {
		submissionID = uuid.NewString()
		err := s.submissions.Create(ctx, &domain.Submission{
			ID:        submissionID,
			TenantID:  payload.OrgID,
			CompanyID: companyID,
			Source:    "statement_webhook",
		})
		if err != nil {
			metrics.ObserveIngest("error", time.Since(start))
			return nil, &domain.ResolutionError{Stage: domain.StageSubmission, Err: err}
		}
	}

	statement := &domain.Statement{
		AccountID:      accountID,
		CompanyID:      companyID,
		DocumentID:     payload.DocumentID,
		SubmissionID:   submissionID,
		PeriodStart:    validated.PeriodStart,
		PeriodEnd:      validated.PeriodEnd,
		OpeningBalance: validated.OpeningBalance,
		ClosingBalance: validated.ClosingBalance,
		Metrics:        statementMetrics,
		Transactions:   validated.Transactions,
	}

	// The upsert and the document finalize land in one transaction so a
	// partial failure never leaves a completed document without its
	// statement or vice versa.
	err = s.uow.Execute(ctx, func(w repository.StatementWriter) error {
		upserted, err := w.Statements().Upsert(ctx, statement)
		if err != nil {
			return &domain.ResolutionError{Stage: domain.StageStatement, Err: err}
		}
		statement = upserted
		if err := w.Documents().Finalize(ctx, payload.OrgID, payload.DocumentID, payload.LlamaJobID, rawPayload); err != nil {
			return &domain.ResolutionError{Stage: domain.StageDocument, Err: err}
		}
		return nil
	})
	if err != nil {
		metrics.ObserveIngest("error", time.Since(start))
		var resErr *domain.ResolutionError
		if errors.As(err, &resErr) {
			return nil, resErr
		}
		return nil, &domain.ResolutionError{Stage: domain.StageStatement, Err: err}
	}

	if payload.PartialSuccess {
		// Recorded, not acted on: the extractor's own completeness flag does
		// not downgrade the stored statement.
		s.logger.Warn("extraction reported partial success",
			slog.String("document_id", payload.DocumentID),
			slog.Int("extraction_errors", len(payload.ExtractionErrors)),
		)
	}

	s.rollups.Schedule(accountID, companyID)
	s.markReplayed(ctx, replayKey)

	metrics.ObserveStatementSize(statementMetrics.TransactionCount)
	metrics.ObserveIngest("completed", time.Since(start))
	s.logger.Info("statement ingested",
		slog.String("document_id", payload.DocumentID),
		slog.String("statement_id", statement.ID),
		slog.String("company_id", companyID),
		slog.String("account_id", accountID),
		slog.Int("transactions", statementMetrics.TransactionCount),
		slog.Duration("duration", time.Since(start)),
	)

	return &IngestResult{
		DocumentID:  payload.DocumentID,
		StatementID: statement.ID,
		CompanyID:   companyID,
		AccountID:   accountID,
		Status:      "completed",
		Metrics:     statementMetrics,
	}, nil
}

// markReplayed records the applied (org, document, job) key so an exact
// replay can be answered without touching the database. Best effort.
func (s *IngestionService) markReplayed(ctx context.Context, key string) {
	if s.replay == nil {
		return
	}
	if err := s.replay.Set(ctx, key, "1", s.replayTTL); err != nil {
		s.logger.Warn("replay cache write failed", slog.String("error", err.Error()))
	}
}

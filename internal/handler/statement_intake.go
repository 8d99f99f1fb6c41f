package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/observability/metrics"
	"github.com/yourorg/clearscrub/internal/security/audit"
	"github.com/yourorg/clearscrub/internal/security/ratelimit"
	"github.com/yourorg/clearscrub/internal/security/webhookauth"
	"github.com/yourorg/clearscrub/internal/service"
)

// StatementIntakeHandler handles POST /webhooks/statement-intake: the
// extraction pipeline's delivery endpoint for one document's structured
// statement payload.
type StatementIntakeHandler struct {
	ingestion    *service.IngestionService
	verifier     *webhookauth.Verifier
	limiter      *ratelimit.Limiter
	auditLog     *audit.Logger
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewStatementIntakeHandler creates a new statement intake handler
func NewStatementIntakeHandler(
	ingestion *service.IngestionService,
	verifier *webhookauth.Verifier,
	limiter *ratelimit.Limiter,
	auditLog *audit.Logger,
	logger *slog.Logger,
	maxBodyBytes int64,
) *StatementIntakeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementIntakeHandler{
		ingestion:    ingestion,
		verifier:     verifier,
		limiter:      limiter,
		auditLog:     auditLog,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// ServeHTTP runs the gate sequence: authenticate, size-check, decode, rate
// limit, then hand off to the ingestion service.
func (h *StatementIntakeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.verifier.Verify(r); err != nil {
		writeError(w, h.logger, "statement", err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, "statement",
				domain.Reject(domain.CodePayloadTooLarge, http.StatusRequestEntityTooLarge,
					"request body exceeds %d bytes", h.maxBodyBytes))
			return
		}
		writeError(w, h.logger, "statement",
			domain.Reject(domain.CodeInvalidJSON, http.StatusBadRequest, "failed to read request body"))
		return
	}

	var payload service.StatementIntakePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, h.logger, "statement",
			domain.Reject(domain.CodeInvalidJSON, http.StatusBadRequest, "request body is not valid JSON"))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(payload.OrgID) {
		writeError(w, h.logger, "statement",
			domain.Reject(domain.CodeRateLimited, http.StatusTooManyRequests,
				"org %s exceeded the intake rate limit", payload.OrgID))
		return
	}

	result, err := h.ingestion.IngestStatement(r.Context(), &payload, body)
	if err != nil {
		h.auditLog.LogIntake(r.Context(), payload.OrgID, payload.DocumentID, "statement_intake", "rejected", err.Error())
		writeError(w, h.logger, "statement", err)
		return
	}

	if result.IdempotentReplay {
		h.auditLog.LogIntake(r.Context(), payload.OrgID, payload.DocumentID, "statement_intake", "replay", "")
		metrics.ObserveIntake("statement", "replay")
		writeJSON(w, h.logger, http.StatusOK, map[string]bool{"idempotent_replay": true})
		return
	}

	h.auditLog.LogIntake(r.Context(), payload.OrgID, payload.DocumentID, "statement_intake", "completed", "")
	metrics.ObserveIntake("statement", "completed")
	writeJSON(w, h.logger, http.StatusOK, result)
}

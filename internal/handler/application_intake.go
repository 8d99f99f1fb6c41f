package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/security/audit"
	"github.com/yourorg/clearscrub/internal/security/ratelimit"
	"github.com/yourorg/clearscrub/internal/security/webhookauth"
	"github.com/yourorg/clearscrub/internal/service"
)

// ApplicationIntakeHandler handles POST /webhooks/application-intake.
type ApplicationIntakeHandler struct {
	applications *service.ApplicationService
	verifier     *webhookauth.Verifier
	limiter      *ratelimit.Limiter
	auditLog     *audit.Logger
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewApplicationIntakeHandler creates a new application intake handler
func NewApplicationIntakeHandler(
	applications *service.ApplicationService,
	verifier *webhookauth.Verifier,
	limiter *ratelimit.Limiter,
	auditLog *audit.Logger,
	logger *slog.Logger,
	maxBodyBytes int64,
) *ApplicationIntakeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationIntakeHandler{
		applications: applications,
		verifier:     verifier,
		limiter:      limiter,
		auditLog:     auditLog,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *ApplicationIntakeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.verifier.Verify(r); err != nil {
		writeError(w, h.logger, "application", err)
		return
	}

	var payload service.ApplicationIntakePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&payload); err != nil {
		writeError(w, h.logger, "application",
			domain.Reject(domain.CodeInvalidJSON, http.StatusBadRequest, "request body is not valid JSON"))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(payload.OrgID) {
		writeError(w, h.logger, "application",
			domain.Reject(domain.CodeRateLimited, http.StatusTooManyRequests,
				"org %s exceeded the intake rate limit", payload.OrgID))
		return
	}

	result, err := h.applications.IngestApplication(r.Context(), &payload)
	if err != nil {
		h.auditLog.LogIntake(r.Context(), payload.OrgID, "", "application_intake", "rejected", err.Error())
		writeError(w, h.logger, "application", err)
		return
	}

	h.auditLog.LogIntake(r.Context(), payload.OrgID, "", "application_intake", "completed", "")
	writeJSON(w, h.logger, http.StatusOK, result)
}

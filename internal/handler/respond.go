package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/observability/metrics"
)

// errorBody is the machine-readable error envelope. The caller is the
// extraction pipeline, not a human; error_code is the stable contract its
// retry logic keys on.
type errorBody struct {
	Meta    errorMeta `json:"meta"`
	Message string    `json:"message"`
}

type errorMeta struct {
	ErrorCode string `json:"error_code"`
	// Populated for statement_conflict so operators can compare jobs.
	ExistingJobID string `json:"existing_job_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError maps a pipeline error onto the HTTP contract: RejectionError
// keeps its code and status, ConflictError maps to 409 with the existing job
// id, and everything else is an opaque 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, endpoint string, err error) {
	var rej *domain.RejectionError
	if errors.As(err, &rej) {
		metrics.ObserveRejection(endpoint, rej.Code)
		writeJSON(w, logger, rej.HTTPStatus, errorBody{
			Meta:    errorMeta{ErrorCode: rej.Code},
			Message: rej.Message,
		})
		return
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		metrics.ObserveRejection(endpoint, domain.CodeStatementConflict)
		writeJSON(w, logger, http.StatusConflict, errorBody{
			Meta: errorMeta{
				ErrorCode:     domain.CodeStatementConflict,
				ExistingJobID: conflict.ExistingJobID,
			},
			Message: conflict.Error(),
		})
		return
	}

	var res *domain.ResolutionError
	if errors.As(err, &res) {
		logger.Error("resolution failure",
			slog.String("endpoint", endpoint),
			slog.String("stage", string(res.Stage)),
			slog.String("error", res.Err.Error()),
		)
	} else {
		logger.Error("internal error",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
	}
	metrics.ObserveRejection(endpoint, domain.CodeInternal)
	writeJSON(w, logger, http.StatusInternalServerError, errorBody{
		Meta:    errorMeta{ErrorCode: domain.CodeInternal},
		Message: "internal error",
	})
}

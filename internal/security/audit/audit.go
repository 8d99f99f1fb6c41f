// Package audit emits structured audit records for intake activity. Records
// go to the process log; shipping them elsewhere is a log-pipeline concern.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/clearscrub/internal/security/middleware"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// LogIntake records the outcome of one webhook delivery. documentID is empty
// for endpoints that do not target a document.
func (al *Logger) LogIntake(ctx context.Context, orgID, documentID, action, status, details string) {
	requestID := middleware.GetRequestID(ctx)

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("org_id", orgID),
		slog.String("document_id", documentID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

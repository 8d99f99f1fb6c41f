package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/observability/metrics"
	"github.com/yourorg/clearscrub/internal/resolver"
)

// ApplicationIntakePayload is the application webhook body.
type ApplicationIntakePayload struct {
	OrgID           string `json:"org_id"`
	CompanyName     string `json:"company_name"`
	EIN             string `json:"ein"`
	OwnerFirstName  string `json:"owner_first_name"`
	OwnerLastName   string `json:"owner_last_name"`
	OwnerEmail      string `json:"owner_email"`
	RequestedAmount string `json:"requested_amount"`
}

// ApplicationResult is the success body for the application intake endpoint.
type ApplicationResult struct {
	ApplicationID string `json:"application_id"`
	SubmissionID  string `json:"submission_id"`
	CompanyID     string `json:"company_id"`
	Status        string `json:"status"`
}

// ApplicationService handles the application-intake sibling of the statement
// pipeline: same resolver, thinner persistence.
type ApplicationService struct {
	submissions  domain.SubmissionRepository
	applications domain.ApplicationRepository
	resolver     *resolver.Resolver
	logger       *slog.Logger
}

// NewApplicationService creates the application intake service.
func NewApplicationService(
	submissions domain.SubmissionRepository,
	applications domain.ApplicationRepository,
	entityResolver *resolver.Resolver,
	logger *slog.Logger,
) *ApplicationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApplicationService{
		submissions:  submissions,
		applications: applications,
		resolver:     entityResolver,
		logger:       logger,
	}
}

// IngestApplication validates the payload, resolves the company, and creates
// the submission and application records.
func (s *ApplicationService) IngestApplication(ctx context.Context, payload *ApplicationIntakePayload) (*ApplicationResult, error) {
	start := time.Now()

	for _, f := range []struct{ name, value string }{
		{"org_id", payload.OrgID},
		{"company_name", payload.CompanyName},
		{"owner_first_name", payload.OwnerFirstName},
		{"owner_last_name", payload.OwnerLastName},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, domain.Reject(domain.CodeMissingField, http.StatusBadRequest, "missing required field %s", f.name)
		}
	}

	requested := decimal.Zero
	if payload.RequestedAmount != "" {
		var err error
		requested, err = decimal.NewFromString(strings.ReplaceAll(payload.RequestedAmount, ",", ""))
		if err != nil {
			return nil, domain.Reject(domain.CodeInvalidAmount, http.StatusBadRequest, "requested_amount is not a valid amount")
		}
	}

	companyID, err := s.resolver.ResolveCompany(ctx, payload.OrgID, payload.CompanyName, payload.EIN)
	if err != nil {
		return nil, err
	}

	submission := &domain.Submission{
		ID:        uuid.NewString(),
		TenantID:  payload.OrgID,
		CompanyID: companyID,
		Source:    "application_webhook",
	}
	if err := s.submissions.Create(ctx, submission); err != nil {
		return nil, &domain.ResolutionError{Stage: domain.StageSubmission, Err: err}
	}

	application := &domain.Application{
		TenantID:        payload.OrgID,
		CompanyID:       companyID,
		SubmissionID:    submission.ID,
		OwnerFirstName:  payload.OwnerFirstName,
		OwnerLastName:   payload.OwnerLastName,
		OwnerEmail:      payload.OwnerEmail,
		RequestedAmount: requested,
	}
	if err := s.applications.Create(ctx, application); err != nil {
		return nil, &domain.ResolutionError{Stage: domain.StageSubmission, Err: err}
	}

	metrics.ObserveIntake("application", "completed")
	s.logger.Info("application ingested",
		slog.String("application_id", application.ID),
		slog.String("company_id", companyID),
		slog.Duration("duration", time.Since(start)),
	)

	return &ApplicationResult{
		ApplicationID: application.ID,
		SubmissionID:  submission.ID,
		CompanyID:     companyID,
		Status:        "completed",
	}, nil
}

// Package resolver maps free-text company and account references from
// extraction payloads onto canonical records, creating them on first
// reference. Matching is exact on normalized keys; see the normalize
// package.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/normalize"
	"github.com/yourorg/clearscrub/internal/observability/metrics"
	"github.com/yourorg/clearscrub/pkg/cache"
)

const aliasCacheTTL = 5 * time.Minute

// Resolver finds or creates canonical Company and Account records. Safe for
// concurrent use: the find-then-create window is closed by the repositories'
// insert-or-fetch primitives, which are backed by storage uniqueness
// constraints.
type Resolver struct {
	companies  domain.CompanyRepository
	aliases    domain.AliasRepository
	accounts   domain.AccountRepository
	aliasCache *cache.Cache
	logger     *slog.Logger
}

// New creates a Resolver.
func New(
	companies domain.CompanyRepository,
	aliases domain.AliasRepository,
	accounts domain.AccountRepository,
	logger *slog.Logger,
) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		companies:  companies,
		aliases:    aliases,
		accounts:   accounts,
		aliasCache: cache.New(),
		logger:     logger,
	}
}

// ResolveCompany returns the canonical company id for (tenant, legalName,
// ein). Match priority is fixed: EIN, then normalized name, then operator
// alias, then create. EIN wins because it is a government identifier; the
// ordering must not change without migrating ambiguous data.
func (r *Resolver) ResolveCompany(ctx context.Context, tenantID, legalName, ein string) (string, error) {
	normalized := normalize.CompanyName(legalName)

	if ein != "" {
		company, err := r.companies.GetByEIN(ctx, tenantID, ein)
		if err == nil {
			metrics.ObserveResolution("company", "matched_ein")
			return company.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", &domain.ResolutionError{Stage: domain.StageCompany, Err: err}
		}
	}

	company, err := r.companies.GetByNormalizedName(ctx, tenantID, normalized)
	if err == nil {
		// Later documents may supply the EIN a name-created record lacked.
		if ein != "" && company.EIN == "" {
			if enrichErr := r.companies.Enrich(ctx, company.ID, ein); enrichErr != nil {
				r.logger.Warn("company enrichment failed",
					slog.String("company_id", company.ID),
					slog.String("error", enrichErr.Error()),
				)
			}
		}
		metrics.ObserveResolution("company", "matched_name")
		return company.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", &domain.ResolutionError{Stage: domain.StageCompany, Err: err}
	}

	aliasID, err := r.lookupAlias(ctx, tenantID, normalized)
	if err == nil {
		metrics.ObserveResolution("company", "matched_alias")
		return aliasID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", &domain.ResolutionError{Stage: domain.StageCompany, Err: err}
	}

	created, err := r.companies.InsertOrFetch(ctx, &domain.Company{
		TenantID:       tenantID,
		LegalName:      legalName,
		NormalizedName: normalized,
		EIN:            ein,
	})
	if err != nil {
		return "", &domain.ResolutionError{Stage: domain.StageCompany, Err: err}
	}
	metrics.ObserveResolution("company", "created")
	r.logger.Info("company created",
		slog.String("tenant_id", tenantID),
		slog.String("company_id", created.ID),
		slog.String("normalized_name", normalized),
	)
	return created.ID, nil
}

// ResolveAccount returns the canonical account id for an account number
// within a company. Identity is the SHA-256 of the normalized number; the
// stored display value is masked to the last 4 digits.
func (r *Resolver) ResolveAccount(ctx context.Context, companyID, accountNumber, bankName string) (string, error) {
	hash := normalize.AccountHash(accountNumber)

	account, err := r.accounts.GetByHash(ctx, companyID, hash)
	if err == nil {
		metrics.ObserveResolution("account", "matched_hash")
		return account.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", &domain.ResolutionError{Stage: domain.StageAccount, Err: err}
	}

	created, err := r.accounts.InsertOrFetch(ctx, &domain.Account{
		CompanyID:    companyID,
		BankName:     bankName,
		MaskedNumber: normalize.MaskAccountNumber(accountNumber),
		AccountHash:  hash,
		AccountType:  "checking",
		Status:       "active",
	})
	if err != nil {
		return "", &domain.ResolutionError{Stage: domain.StageAccount, Err: err}
	}
	metrics.ObserveResolution("account", "created")
	r.logger.Info("account created",
		slog.String("company_id", companyID),
		slog.String("account_id", created.ID),
		slog.String("masked_number", created.MaskedNumber),
	)
	return created.ID, nil
}

// lookupAlias consults the operator-maintained alias table, with a short
// in-process cache. Aliases change rarely (manual merges only).
func (r *Resolver) lookupAlias(ctx context.Context, tenantID, normalized string) (string, error) {
	key := fmt.Sprintf("alias:%s:%s", tenantID, normalized)
	if v, ok := r.aliasCache.Get(key); ok {
		if id, ok := v.(string); ok && id != "" {
			return id, nil
		}
		return "", domain.ErrNotFound
	}

	id, err := r.aliases.GetCompanyID(ctx, tenantID, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		// Negative entries are cached too; unknown names repeat often.
		r.aliasCache.Set(key, "", aliasCacheTTL)
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	r.aliasCache.Set(key, id, aliasCacheTTL)
	return id, nil
}

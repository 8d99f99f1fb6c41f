package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/clearscrub/internal/domain"
	"github.com/yourorg/clearscrub/internal/repository"
	"github.com/yourorg/clearscrub/internal/resolver"
)

// ---- in-memory persistence fakes ----

type memCompanyRepo struct {
	seq    int
	byID   map[string]*domain.Company
	byEIN  map[string]string
	byName map[string]string
}

func newMemCompanyRepo() *memCompanyRepo {
	return &memCompanyRepo{byID: map[string]*domain.Company{}, byEIN: map[string]string{}, byName: map[string]string{}}
}

func (m *memCompanyRepo) GetByEIN(_ context.Context, tenantID, ein string) (*domain.Company, error) {
	if id, ok := m.byEIN[tenantID+"|"+ein]; ok {
		return m.byID[id], nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCompanyRepo) GetByNormalizedName(_ context.Context, tenantID, name string) (*domain.Company, error) {
	if id, ok := m.byName[tenantID+"|"+name]; ok {
		return m.byID[id], nil
	}
	return nil, domain.ErrNotFound
}

func (m *memCompanyRepo) InsertOrFetch(_ context.Context, c *domain.Company) (*domain.Company, error) {
	if id, ok := m.byName[c.TenantID+"|"+c.NormalizedName]; ok {
		return m.byID[id], nil
	}
	m.seq++
	c.ID = fmt.Sprintf("comp-%d", m.seq)
	m.byID[c.ID] = c
	m.byName[c.TenantID+"|"+c.NormalizedName] = c.ID
	if c.EIN != "" {
		m.byEIN[c.TenantID+"|"+c.EIN] = c.ID
	}
	return c, nil
}

func (m *memCompanyRepo) Enrich(_ context.Context, companyID, ein string) error {
	if c, ok := m.byID[companyID]; ok && c.EIN == "" {
		c.EIN = ein
		m.byEIN[c.TenantID+"|"+ein] = c.ID
	}
	return nil
}

type memAliasRepo struct{}

func (memAliasRepo) GetCompanyID(context.Context, string, string) (string, error) {
	return "", domain.ErrNotFound
}

type memAccountRepo struct {
	seq    int
	byID   map[string]*domain.Account
	byHash map[string]string
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{byID: map[string]*domain.Account{}, byHash: map[string]string{}}
}

func (m *memAccountRepo) GetByHash(_ context.Context, companyID, hash string) (*domain.Account, error) {
	if id, ok := m.byHash[companyID+"|"+hash]; ok {
		return m.byID[id], nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) InsertOrFetch(_ context.Context, a *domain.Account) (*domain.Account, error) {
	if id, ok := m.byHash[a.CompanyID+"|"+a.AccountHash]; ok {
		return m.byID[id], nil
	}
	m.seq++
	a.ID = fmt.Sprintf("acct-%d", m.seq)
	m.byID[a.ID] = a
	m.byHash[a.CompanyID+"|"+a.AccountHash] = a.ID
	return a, nil
}

type memDocumentRepo struct {
	docs map[string]*domain.Document // tenant|id
	gets int
}

func (m *memDocumentRepo) key(tenantID, documentID string) string { return tenantID + "|" + documentID }

func (m *memDocumentRepo) Get(_ context.Context, tenantID, documentID string) (*domain.Document, error) {
	m.gets++
	if d, ok := m.docs[m.key(tenantID, documentID)]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memDocumentRepo) Finalize(_ context.Context, tenantID, documentID, schemaJobID string, _ []byte) error {
	d, ok := m.docs[m.key(tenantID, documentID)]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = "completed"
	d.SchemaJobID = schemaJobID
	return nil
}

type memStatementRepo struct {
	seq  int
	rows map[string]*domain.Statement // account|start|end
}

func newMemStatementRepo() *memStatementRepo {
	return &memStatementRepo{rows: map[string]*domain.Statement{}}
}

func (m *memStatementRepo) key(accountID string, start, end time.Time) string {
	return fmt.Sprintf("%s|%s|%s", accountID, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

func (m *memStatementRepo) Upsert(_ context.Context, s *domain.Statement) (*domain.Statement, error) {
	k := m.key(s.AccountID, s.PeriodStart, s.PeriodEnd)
	if existing, ok := m.rows[k]; ok {
		s.ID = existing.ID
		m.rows[k] = s
		return s, nil
	}
	m.seq++
	s.ID = fmt.Sprintf("stmt-%d", m.seq)
	m.rows[k] = s
	return s, nil
}

func (m *memStatementRepo) GetByPeriod(_ context.Context, accountID string, start, end time.Time) (*domain.Statement, error) {
	if s, ok := m.rows[m.key(accountID, start, end)]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

type memSubmissionRepo struct {
	created []*domain.Submission
}

func (m *memSubmissionRepo) Create(_ context.Context, s *domain.Submission) error {
	m.created = append(m.created, s)
	return nil
}

type memWriter struct {
	statements *memStatementRepo
	documents  *memDocumentRepo
}

func (w *memWriter) Statements() domain.StatementRepository { return w.statements }
func (w *memWriter) Documents() domain.DocumentRepository   { return w.documents }

type memUnitOfWork struct {
	writer *memWriter
}

func (u *memUnitOfWork) Execute(_ context.Context, fn func(w repository.StatementWriter) error) error {
	return fn(u.writer)
}

type memReplayCache struct {
	mu   sync.Mutex
	vals map[string]string
}

func (m *memReplayCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vals[key]; ok {
		return v, nil
	}
	return "", errors.New("cache miss")
}

func (m *memReplayCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = fmt.Sprint(value)
	return nil
}

type recordingScheduler struct {
	jobs []string
}

func (r *recordingScheduler) Schedule(accountID, companyID string) {
	r.jobs = append(r.jobs, accountID+"/"+companyID)
}

// ---- fixture ----

type fixture struct {
	svc        *IngestionService
	companies  *memCompanyRepo
	accounts   *memAccountRepo
	documents  *memDocumentRepo
	statements *memStatementRepo
	subs       *memSubmissionRepo
	replay     *memReplayCache
	scheduler  *recordingScheduler
}

func newFixture() *fixture {
	companies := newMemCompanyRepo()
	accounts := newMemAccountRepo()
	documents := &memDocumentRepo{docs: map[string]*domain.Document{}}
	statements := newMemStatementRepo()
	subs := &memSubmissionRepo{}
	replay := &memReplayCache{vals: map[string]string{}}
	scheduler := &recordingScheduler{}

	res := resolver.New(companies, memAliasRepo{}, accounts, nil)
	uow := &memUnitOfWork{writer: &memWriter{statements: statements, documents: documents}}
	svc := NewIngestionService(documents, subs, res, uow, replay, scheduler, nil, 10000, time.Hour)

	return &fixture{
		svc:        svc,
		companies:  companies,
		accounts:   accounts,
		documents:  documents,
		statements: statements,
		subs:       subs,
		replay:     replay,
		scheduler:  scheduler,
	}
}

func (f *fixture) addDocument(tenantID, documentID string) {
	f.documents.docs[tenantID+"|"+documentID] = &domain.Document{
		ID:       documentID,
		TenantID: tenantID,
		FilePath: "uploads/" + documentID + ".pdf",
		Status:   "uploaded",
	}
}

func ingest(t *testing.T, f *fixture, p *StatementIntakePayload) *IngestResult {
	t.Helper()
	raw, _ := json.Marshal(p)
	result, err := f.svc.IngestStatement(context.Background(), p, raw)
	if err != nil {
		t.Fatalf("IngestStatement: %v", err)
	}
	return result
}

// ---- tests ----

func TestIngestNewCompanyNewAccount(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")
	p := basePayload()

	result := ingest(t, f, p)

	if result.Status != "completed" {
		t.Errorf("status = %s, want completed", result.Status)
	}
	if result.CompanyID == "" || result.AccountID == "" || result.StatementID == "" {
		t.Fatalf("result missing ids: %+v", result)
	}
	if result.Metrics.DepositCount != 1 {
		t.Errorf("DepositCount = %d, want 1", result.Metrics.DepositCount)
	}
	if len(f.companies.byID) != 1 || len(f.accounts.byID) != 1 || len(f.statements.rows) != 1 {
		t.Fatalf("expected 1 company, 1 account, 1 statement; got %d, %d, %d",
			len(f.companies.byID), len(f.accounts.byID), len(f.statements.rows))
	}
	if mask := f.accounts.byID[result.AccountID].MaskedNumber; mask != "****9012" {
		t.Errorf("masked number = %q, want ****9012", mask)
	}
	doc := f.documents.docs["org-1|doc-1"]
	if doc.Status != "completed" || doc.SchemaJobID != "job-1" {
		t.Errorf("document not finalized: status=%s job=%s", doc.Status, doc.SchemaJobID)
	}
	if len(f.scheduler.jobs) != 1 {
		t.Errorf("expected 1 scheduled rollup refresh, got %d", len(f.scheduler.jobs))
	}
	if len(f.subs.created) != 1 || f.subs.created[0].Source != "statement_webhook" {
		t.Errorf("expected a minted statement_webhook submission, got %+v", f.subs.created)
	}
}

func TestIngestExactReplayIsIdempotent(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")

	first := ingest(t, f, basePayload())
	second := ingest(t, f, basePayload())

	if !second.IdempotentReplay {
		t.Fatalf("second delivery of the same job must be an idempotent replay")
	}
	if first.IdempotentReplay {
		t.Fatalf("first delivery must not be a replay")
	}
	if len(f.statements.rows) != 1 || len(f.companies.byID) != 1 || len(f.accounts.byID) != 1 {
		t.Fatalf("replay must not create rows: %d statements, %d companies, %d accounts",
			len(f.statements.rows), len(f.companies.byID), len(f.accounts.byID))
	}
}

func TestIngestReplayServedFromCacheSkipsDatabase(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")
	ingest(t, f, basePayload())

	gets := f.documents.gets
	result := ingest(t, f, basePayload())
	if !result.IdempotentReplay {
		t.Fatalf("expected replay")
	}
	if f.documents.gets != gets {
		t.Fatalf("cached replay must not hit the document store")
	}
}

func TestIngestConflictingJobRejected(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")
	ingest(t, f, basePayload())

	p := basePayload()
	p.LlamaJobID = "job-2"
	raw, _ := json.Marshal(p)
	_, err := f.svc.IngestStatement(context.Background(), p, raw)

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.ExistingJobID != "job-1" {
		t.Errorf("conflict must name the applied job, got %q", conflict.ExistingJobID)
	}
	if len(f.statements.rows) != 1 {
		t.Fatalf("conflict must not mutate statements")
	}
}

func TestIngestSecondPeriodSameCompanyAndAccount(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")
	f.addDocument("org-1", "doc-2")

	first := ingest(t, f, basePayload())

	p := basePayload()
	p.DocumentID = "doc-2"
	p.LlamaJobID = "job-2"
	p.ExtractedData.Statement.Summary.CompanyName = "ABC CORPORATION"
	p.ExtractedData.Statement.Summary.PeriodStart = "2025-04-01"
	p.ExtractedData.Statement.Summary.PeriodEnd = "2025-04-30"
	second := ingest(t, f, p)

	if second.CompanyID != first.CompanyID {
		t.Errorf("equivalent names must resolve to one company: %s vs %s", first.CompanyID, second.CompanyID)
	}
	if second.AccountID != first.AccountID {
		t.Errorf("same account number must resolve to one account: %s vs %s", first.AccountID, second.AccountID)
	}
	if len(f.statements.rows) != 2 {
		t.Fatalf("expected 2 statements for 2 periods, got %d", len(f.statements.rows))
	}
}

func TestIngestSamePeriodLastWriteWins(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")
	f.addDocument("org-1", "doc-2")

	first := ingest(t, f, basePayload())

	// Same account and period from a different document and job: the new
	// extraction is authoritative for the period.
	p := basePayload()
	p.DocumentID = "doc-2"
	p.LlamaJobID = "job-2"
	p.ExtractedData.Statement.Transactions = p.ExtractedData.Statement.Transactions[:1]
	second := ingest(t, f, p)

	if second.StatementID != first.StatementID {
		t.Fatalf("same period must update in place, got new id %s", second.StatementID)
	}
	if len(f.statements.rows) != 1 {
		t.Fatalf("expected 1 statement row, got %d", len(f.statements.rows))
	}
	stored := f.statements.rows[fmt.Sprintf("%s|2025-03-01|2025-03-31", first.AccountID)]
	if len(stored.Transactions) != 1 {
		t.Fatalf("second payload must overwrite the transaction list, got %d rows", len(stored.Transactions))
	}
	if stored.DocumentID != "doc-2" {
		t.Errorf("provenance must follow the latest write, got %s", stored.DocumentID)
	}
}

func TestIngestInvalidAmountPersistsNothing(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")

	p := basePayload()
	p.ExtractedData.Statement.Transactions[1].Amount = json.RawMessage(`"abc"`)
	raw, _ := json.Marshal(p)
	_, err := f.svc.IngestStatement(context.Background(), p, raw)

	if code := rejectionCode(t, err); code != domain.CodeInvalidAmount {
		t.Fatalf("code = %s, want invalid_amount", code)
	}
	if len(f.statements.rows) != 0 || len(f.companies.byID) != 0 || len(f.accounts.byID) != 0 {
		t.Fatalf("rejected payload must persist nothing")
	}
	if doc := f.documents.docs["org-1|doc-1"]; doc.Status != "uploaded" {
		t.Fatalf("rejected payload must not touch the document, status = %s", doc.Status)
	}
}

func TestIngestUnknownDocumentRejected(t *testing.T) {
	f := newFixture()

	p := basePayload()
	raw, _ := json.Marshal(p)
	_, err := f.svc.IngestStatement(context.Background(), p, raw)
	if code := rejectionCode(t, err); code != domain.CodeDocumentNotFound {
		t.Fatalf("code = %s, want document_not_found", code)
	}
}

func TestIngestPartialSuccessStillCompletes(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")

	p := basePayload()
	p.PartialSuccess = true
	p.ExtractionErrors = []string{"page 3 unreadable"}
	result := ingest(t, f, p)

	if result.Status != "completed" {
		t.Fatalf("partial_success must not fail the request, status = %s", result.Status)
	}
	if len(f.statements.rows) != 1 {
		t.Fatalf("expected the data to be stored")
	}
}

func TestIngestProvidedSubmissionIDIsKept(t *testing.T) {
	f := newFixture()
	f.addDocument("org-1", "doc-1")

	p := basePayload()
	p.SubmissionID = "sub-provided"
	result := ingest(t, f, p)

	stored := f.statements.rows[fmt.Sprintf("%s|2025-03-01|2025-03-31", result.AccountID)]
	if stored.SubmissionID != "sub-provided" {
		t.Errorf("submission id = %s, want sub-provided", stored.SubmissionID)
	}
	if len(f.subs.created) != 0 {
		t.Errorf("no submission should be minted when one is provided")
	}
}

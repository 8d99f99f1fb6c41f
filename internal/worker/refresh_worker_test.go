package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memRollupRepo struct {
	mu        sync.Mutex
	accounts  []string
	companies []string
	fail      bool
}

func (m *memRollupRepo) RefreshAccount(_ context.Context, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("refresh failed")
	}
	m.accounts = append(m.accounts, accountID)
	return nil
}

func (m *memRollupRepo) RefreshCompany(_ context.Context, companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("refresh failed")
	}
	m.companies = append(m.companies, companyID)
	return nil
}

func (m *memRollupRepo) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts), len(m.companies)
}

func TestProcessRefreshesBothRollups(t *testing.T) {
	repo := &memRollupRepo{}
	w := NewRefreshWorker(repo, nil, 4, time.Minute)

	w.process(context.Background(), RefreshJob{AccountID: "acct-1", CompanyID: "comp-1"})

	accounts, companies := repo.counts()
	if accounts != 1 || companies != 1 {
		t.Fatalf("expected 1 account and 1 company refresh, got %d and %d", accounts, companies)
	}
}

func TestScheduleParksWhenQueueFull(t *testing.T) {
	repo := &memRollupRepo{}
	w := NewRefreshWorker(repo, nil, 1, time.Minute)

	// Fill the queue without a running consumer, then overflow it.
	w.Schedule("acct-1", "comp-1")
	w.Schedule("acct-2", "comp-2")

	w.mu.Lock()
	parked := len(w.dirty)
	w.mu.Unlock()
	if parked != 1 {
		t.Fatalf("expected 1 parked job, got %d", parked)
	}

	// The sweep drains parked jobs.
	w.sweep(context.Background())
	accounts, _ := repo.counts()
	if accounts != 1 {
		t.Fatalf("expected sweep to process the parked job, got %d refreshes", accounts)
	}
}

func TestFailedRefreshIsParkedForSweep(t *testing.T) {
	repo := &memRollupRepo{fail: true}
	w := NewRefreshWorker(repo, nil, 4, time.Minute)
	// Keep the test fast: no backoff between attempts.
	w.retryCfg.MaxAttempts = 1

	w.process(context.Background(), RefreshJob{AccountID: "acct-1", CompanyID: "comp-1"})

	w.mu.Lock()
	_, parked := w.dirty["acct-1"]
	w.mu.Unlock()
	if !parked {
		t.Fatalf("expected failed job to be parked for the sweep")
	}

	// Once the dependency recovers, the sweep catches up.
	repo.mu.Lock()
	repo.fail = false
	repo.mu.Unlock()
	w.sweep(context.Background())

	accounts, companies := repo.counts()
	if accounts != 1 || companies != 1 {
		t.Fatalf("expected catch-up refresh, got %d accounts %d companies", accounts, companies)
	}
}

func TestStartConsumesQueue(t *testing.T) {
	repo := &memRollupRepo{}
	w := NewRefreshWorker(repo, nil, 4, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	w.Schedule("acct-1", "comp-1")

	deadline := time.After(2 * time.Second)
	for {
		accounts, _ := repo.counts()
		if accounts == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("worker did not process the scheduled job in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

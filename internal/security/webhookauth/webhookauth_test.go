package webhookauth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/yourorg/clearscrub/internal/domain"
)

func newRequest(secret, timestamp string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/statement-intake", nil)
	if secret != "" {
		r.Header.Set(SecretHeader, secret)
	}
	if timestamp != "" {
		r.Header.Set(TimestampHeader, timestamp)
	}
	return r
}

func fixedVerifier(requireTimestamp bool) (*Verifier, time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := NewVerifier("s3cret", 5*time.Minute, requireTimestamp)
	v.now = func() time.Time { return now }
	return v, now
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	return rej.Code
}

func TestVerifyAccepts(t *testing.T) {
	v, now := fixedVerifier(true)
	r := newRequest("s3cret", strconv.FormatInt(now.UnixMilli(), 10))
	if err := v.Verify(r); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestVerifyRejectsMissingSecret(t *testing.T) {
	v, now := fixedVerifier(true)
	r := newRequest("", strconv.FormatInt(now.UnixMilli(), 10))
	if code := rejectionCode(t, v.Verify(r)); code != domain.CodeUnauthorized {
		t.Fatalf("code = %s, want unauthorized", code)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v, now := fixedVerifier(true)
	r := newRequest("wrong", strconv.FormatInt(now.UnixMilli(), 10))
	if code := rejectionCode(t, v.Verify(r)); code != domain.CodeUnauthorized {
		t.Fatalf("code = %s, want unauthorized", code)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	v, now := fixedVerifier(true)
	// 10 minutes old, outside the 5 minute window.
	r := newRequest("s3cret", strconv.FormatInt(now.Add(-10*time.Minute).UnixMilli(), 10))
	if code := rejectionCode(t, v.Verify(r)); code != domain.CodeReplayWindow {
		t.Fatalf("code = %s, want replay_window_exceeded", code)
	}
}

func TestVerifyRejectsFutureTimestamp(t *testing.T) {
	v, now := fixedVerifier(true)
	r := newRequest("s3cret", strconv.FormatInt(now.Add(10*time.Minute).UnixMilli(), 10))
	if code := rejectionCode(t, v.Verify(r)); code != domain.CodeReplayWindow {
		t.Fatalf("code = %s, want replay_window_exceeded", code)
	}
}

func TestVerifyAcceptsWithinWindow(t *testing.T) {
	v, now := fixedVerifier(true)
	r := newRequest("s3cret", strconv.FormatInt(now.Add(-4*time.Minute).UnixMilli(), 10))
	if err := v.Verify(r); err != nil {
		t.Fatalf("expected success inside window, got %v", err)
	}
}

func TestVerifyRelaxedSkipsMissingTimestamp(t *testing.T) {
	v, _ := fixedVerifier(false)
	if err := v.Verify(newRequest("s3cret", "")); err != nil {
		t.Fatalf("relaxed mode must accept a missing timestamp, got %v", err)
	}
	// A present but garbage timestamp still fails.
	if err := v.Verify(newRequest("s3cret", "not-millis")); err == nil {
		t.Fatalf("garbage timestamp must be rejected even in relaxed mode")
	}
}

// Package webhookauth gates the service-role webhook path: a shared-secret
// header plus a timestamp freshness check. This is the only authentication
// on the intake endpoints; tenant scoping happens at the persistence layer.
package webhookauth

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/clearscrub/internal/domain"
)

const (
	SecretHeader    = "x-webhook-secret"
	TimestampHeader = "x-clearscrub-timestamp"
)

// Verifier checks intake request credentials. now is injectable for tests.
type Verifier struct {
	secret           []byte
	skew             time.Duration
	requireTimestamp bool
	now              func() time.Time
}

// NewVerifier creates a Verifier. When requireTimestamp is false (the
// relaxed local-dev variant) a missing timestamp header is accepted; a
// present one is still validated.
func NewVerifier(secret string, skew time.Duration, requireTimestamp bool) *Verifier {
	return &Verifier{
		secret:           []byte(secret),
		skew:             skew,
		requireTimestamp: requireTimestamp,
		now:              time.Now,
	}
}

// Verify checks the shared secret and the timestamp window. Failures are
// RejectionErrors carrying the 401 contract.
func (v *Verifier) Verify(r *http.Request) error {
	provided := r.Header.Get(SecretHeader)
	if provided == "" {
		return domain.Reject(domain.CodeUnauthorized, http.StatusUnauthorized, "missing %s header", SecretHeader)
	}
	if subtle.ConstantTimeCompare([]byte(provided), v.secret) != 1 {
		return domain.Reject(domain.CodeUnauthorized, http.StatusUnauthorized, "webhook secret mismatch")
	}

	ts := r.Header.Get(TimestampHeader)
	if ts == "" {
		if v.requireTimestamp {
			return domain.Reject(domain.CodeUnauthorized, http.StatusUnauthorized, "missing %s header", TimestampHeader)
		}
		return nil
	}

	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.Reject(domain.CodeUnauthorized, http.StatusUnauthorized, "invalid %s header", TimestampHeader)
	}

	sent := time.UnixMilli(millis)
	drift := v.now().Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.skew {
		return domain.Reject(domain.CodeReplayWindow, http.StatusUnauthorized,
			"timestamp outside the %s replay window", v.skew)
	}
	return nil
}

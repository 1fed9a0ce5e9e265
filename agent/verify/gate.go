// Package verify implements the identity-verification gate in front of
// sensitive operations. The gate is an explicit function composed into the
// tool call path, not a cross-cutting decorator, so authorization stays
// visible where it matters.
package verify

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/bankabc/voice-agent/agent/audit"
	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/data"
	"github.com/bankabc/voice-agent/agent/state"
)

const (
	DefaultMaxAttempts = 3
	DefaultWindow      = time.Minute
)

type Config struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" split_words:"true" default:"3"`
	Window      time.Duration `envconfig:"WINDOW" split_words:"true" default:"60s"`
}

// CredentialLookup is the external credential source.
type CredentialLookup interface {
	LookupCredential(ctx context.Context, customerID string) (string, error)
}

type Gate struct {
	credentials CredentialLookup
	auditor     audit.Emitter
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func NewGate(credentials CredentialLookup, auditor audit.Emitter, cfg Config) (*Gate, error) {
	if credentials == nil {
		return nil, errors.New("credential lookup is required")
	}
	if auditor == nil {
		return nil, errors.New("audit emitter is required")
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}

	return &Gate{
		credentials: credentials,
		auditor:     auditor,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}, nil
}

// RequireVerified decides whether sess may reach a sensitive operation.
func (g *Gate) RequireVerified(sess *state.Session) *contract.Failure {
	if sess == nil || !sess.Verified {
		return contract.NewFailure(contract.FailureNotVerified, "identity verification required")
	}
	return nil
}

// Verify checks customerID+pin against the external credential source and,
// on success, marks the session verified. Once the failed-attempt threshold
// is crossed within the window, the rate limit is evaluated before the
// credential comparison: a correct PIN still gets RATE_LIMITED.
func (g *Gate) Verify(ctx context.Context, sess *state.Session, customerID, pin string) *contract.Failure {
	customerID = strings.TrimSpace(customerID)
	now := g.now().UTC()

	if !sess.WindowStart.IsZero() && now.Sub(sess.WindowStart) > g.window {
		sess.FailedAttempts = 0
		sess.WindowStart = time.Time{}
	}

	if sess.FailedAttempts >= g.maxAttempts {
		g.emitAttempt(sess.ID, customerID, "rate_limited")
		return contract.NewFailure(contract.FailureRateLimited, "too many failed attempts, try again later")
	}

	stored, err := g.credentials.LookupCredential(ctx, customerID)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			g.recordFailure(sess, now)
			g.emitAttempt(sess.ID, customerID, "invalid_credentials")
			return contract.NewFailure(contract.FailureInvalidCredentials, "customer id or PIN is incorrect")
		}
		g.auditor.Emit(audit.Event{
			SessionID: sess.ID,
			Kind:      audit.KindError,
			Outcome:   string(contract.FailureAccessorError),
			Detail:    "credential lookup failed",
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return contract.NewFailure(contract.FailureUpstreamTimeout, "credential lookup timed out")
		}
		return contract.NewFailure(contract.FailureAccessorError, "credential lookup unavailable")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(pin)) != 1 {
		g.recordFailure(sess, now)
		g.emitAttempt(sess.ID, customerID, "invalid_credentials")
		return contract.NewFailure(contract.FailureInvalidCredentials, "customer id or PIN is incorrect")
	}

	sess.MarkVerified(customerID)
	g.emitAttempt(sess.ID, customerID, "success")
	return nil
}

func (g *Gate) recordFailure(sess *state.Session, now time.Time) {
	if sess.FailedAttempts == 0 {
		sess.WindowStart = now
	}
	sess.FailedAttempts++
}

// emitAttempt records the attempt with customer id and outcome. The raw PIN
// never reaches the audit trail.
func (g *Gate) emitAttempt(sessionID, customerID, outcome string) {
	g.auditor.Emit(audit.Event{
		SessionID: sessionID,
		Kind:      audit.KindVerification,
		Args:      audit.Redact(map[string]any{"customer_id": customerID}),
		Outcome:   outcome,
	})
}

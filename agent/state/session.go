package state

import (
	"errors"
	"time"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrPendingExists  = errors.New("session already has a pending action")
)

// PendingAction is the single irreversible operation awaiting explicit user
// confirmation. A session holds at most one at a time.
type PendingAction struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Prompt string         `json:"prompt,omitempty"`
}

// Session is the per-conversation state. CustomerID is empty until
// verification succeeds; Verified, once true, stays true for the lifetime
// of the session object.
type Session struct {
	ID         string `json:"session_id"`
	CustomerID string `json:"customer_id,omitempty"`
	Verified   bool   `json:"verified"`

	Flow     string `json:"flow,omitempty"`
	FlowStep string `json:"flow_step,omitempty"`

	Pending *PendingAction `json:"pending,omitempty"`

	// Verification rate-limit window, scoped to this session.
	FailedAttempts int       `json:"failed_attempts,omitempty"`
	WindowStart    time.Time `json:"window_start,omitzero"`

	LastActivity time.Time `json:"last_activity"`
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		LastActivity: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.LastActivity = now.UTC()
}

// MarkVerified records a successful verification and resets the failed
// attempt window.
func (s *Session) MarkVerified(customerID string) {
	s.Verified = true
	s.CustomerID = customerID
	s.FailedAttempts = 0
	s.WindowStart = time.Time{}
}

// EnterFlow sets the current flow and its first sub-state.
func (s *Session) EnterFlow(flow, step string) {
	s.Flow = flow
	s.FlowStep = step
}

// LeaveFlow terminates the current flow, clearing the sub-state.
func (s *Session) LeaveFlow() {
	s.Flow = ""
	s.FlowStep = ""
}

// SetPending installs the one pending irreversible action. It refuses to
// overwrite an outstanding one; confirm or cancel must clear it first.
func (s *Session) SetPending(p *PendingAction) error {
	if s.Pending != nil {
		return ErrPendingExists
	}
	s.Pending = p
	return nil
}

// ClearPending removes the pending action, if any.
func (s *Session) ClearPending() {
	s.Pending = nil
}

// IdleSince reports whether the session has seen no activity since cutoff.
func (s *Session) IdleSince(cutoff time.Time) bool {
	return s.LastActivity.Before(cutoff)
}

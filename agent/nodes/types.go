// Package nodes contains the lambda nodes the orchestrator graph is built
// from. Each node advances a shared GraphState; nodes after a short-circuit
// (smalltalk, inline verification, pending-action resolution) pass through
// untouched once the reply is settled.
package nodes

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrNilGraphState  = errors.New("graph state is nil")
)

type GraphInput struct {
	Request contract.TurnRequest
}

type GraphOutput struct {
	Response contract.TurnResponse
}

type GraphState struct {
	SessionID string
	Text      string
	Request   contract.TurnRequest
	Now       time.Time

	Session *state.Session

	Classification contract.Classification

	Reply                string
	RequiresVerification bool
	FlowLabel            string
	Settled              bool // reply decided, downstream routing nodes pass through
}

// ValidateRequest normalizes the incoming turn. A missing session id gets a
// generated one; a blank message is only acceptable when the turn carries
// verification credentials.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.Request.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	text := strings.TrimSpace(in.Request.Text)
	if text == "" && (in.Request.CustomerID == "" || in.Request.PIN == "") {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Request:   in.Request,
		Now:       nowFn().UTC(),
	}, nil
}

package nodes

import (
	"context"
	"strings"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/verify"
)

// InlineVerify handles a turn that carries Customer ID + PIN, the way the
// transport submits credentials. The VerifiedHint field is advisory only:
// verification is granted exclusively by the gate.
func InlineVerify(ctx context.Context, in *GraphState, gate *verify.Gate) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, ErrNilGraphState
	}

	customerID := strings.TrimSpace(in.Request.CustomerID)
	pin := strings.TrimSpace(in.Request.PIN)
	if customerID == "" || pin == "" {
		return in, nil
	}
	if in.Session.Verified {
		return in, nil // no re-verification mid-session
	}

	if f := gate.Verify(ctx, in.Session, customerID, pin); f != nil {
		in.Settled = true
		switch f.Code {
		case contract.FailureRateLimited:
			in.Reply = "Too many failed verification attempts. Please wait a minute before trying again."
		case contract.FailureInvalidCredentials:
			in.Reply = "Invalid credentials. Please check your Customer ID and PIN and try again."
			in.RequiresVerification = true
		default:
			in.Reply = "I couldn't verify your identity right now. Please try again in a moment."
			in.RequiresVerification = true
		}
		return in, nil
	}

	// Verified: if there is no message to process, acknowledge and stop here.
	if in.Text == "" {
		in.Settled = true
		in.Reply = "Identity verified successfully. How can I help you today?"
	}
	return in, nil
}

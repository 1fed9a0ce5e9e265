package nodes

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bankabc/voice-agent/agent/audit"
	"github.com/bankabc/voice-agent/agent/contract"
)

const phrasingPrompt = "You are a polite banking assistant. Rephrase the following reply to the customer " +
	"in a natural, friendly tone. Keep every fact, number, identifier and instruction exactly as given. " +
	"Do not add new information."

// FinalizeReply assembles the turn response. When a completion service is
// configured, flow replies get a natural-language polish; the deterministic
// reply always stands in when the service fails, and routing never depends
// on it.
func FinalizeReply(ctx context.Context, in *GraphState, completer contract.Completer, auditor audit.Emitter) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, ErrNilGraphState
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, contract.ErrValidation
	}

	if completer != nil && in.FlowLabel != "" && isServiceFlow(in.FlowLabel) {
		polished, err := completer.Generate(ctx, phrasingPrompt, reply)
		if err != nil {
			log.Warn().Err(err).Str("session_id", in.SessionID).Msg("completion service failed, using deterministic reply")
			auditor.Emit(audit.Event{
				SessionID: in.SessionID,
				Kind:      audit.KindError,
				Flow:      in.FlowLabel,
				Outcome:   string(contract.FailureUpstreamTimeout),
				Detail:    "completion service unavailable",
			})
		} else if polished != "" {
			reply = polished
		}
	}

	return GraphOutput{
		Response: contract.TurnResponse{
			Response:             reply,
			SessionID:            in.SessionID,
			RequiresVerification: in.RequiresVerification,
			Flow:                 in.FlowLabel,
		},
	}, nil
}

func isServiceFlow(label string) bool {
	switch contract.Flow(label) {
	case contract.FlowCardATMIssues, contract.FlowAccountServicing, contract.FlowAccountOpening,
		contract.FlowDigitalSupport, contract.FlowTransfersPayments, contract.FlowAccountClosure:
		return true
	}
	return false
}

package flow

import (
	"context"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/state"
)

// StubHandler acknowledges the request, captures the free-text detail, and
// terminates the flow without invoking any tool layer operation. The stub
// flows exist to prove routing coverage, not business logic.
type StubHandler struct {
	flow contract.Flow
	ack  string
}

func (h *StubHandler) Flow() contract.Flow {
	return h.flow
}

func (h *StubHandler) Handle(_ context.Context, _ *state.Session, _ string) (Outcome, error) {
	return Outcome{Reply: h.ack, Done: true}, nil
}

// StubHandlers returns the four acknowledged-but-unimplemented flows.
func StubHandlers() []Handler {
	return []Handler{
		&StubHandler{
			flow: contract.FlowAccountOpening,
			ack: "I can help you open a new account. You'll need to provide identification documents " +
				"and verify eligibility. Would you like me to note down an appointment request?",
		},
		&StubHandler{
			flow: contract.FlowDigitalSupport,
			ack: "I can help with digital banking issues like login problems, OTP issues, or app crashes. " +
				"I've noted the details; our digital support team will follow up.",
		},
		&StubHandler{
			flow: contract.FlowTransfersPayments,
			ack: "I can help with transfers and bill payments. I've captured your request; " +
				"a payments specialist will pick this up.",
		},
		&StubHandler{
			flow: contract.FlowAccountClosure,
			ack: "I understand you want to close your account. Before we proceed, may I ask why " +
				"you're considering this? We might be able to help resolve any concerns.",
		},
	}
}

package contract

// Flow is a named conversational task category with its own state machine.
type Flow string

const (
	FlowCardATMIssues     Flow = "card_atm_issues"
	FlowAccountServicing  Flow = "account_servicing"
	FlowAccountOpening    Flow = "account_opening"
	FlowDigitalSupport    Flow = "digital_support"
	FlowTransfersPayments Flow = "transfers_payments"
	FlowAccountClosure    Flow = "account_closure"
	FlowUnknown           Flow = "unknown"
)

// Classification is the routing decision for one utterance.
type Classification struct {
	Flow       Flow    `json:"flow"`
	Confidence float64 `json:"confidence"`
}

// ToolResult is what a tool layer operation hands back to the dispatcher.
// Exactly one of Data or Failure is set; a no-op success carries both Data
// and a Failure with code ALREADY_BLOCKED.
type ToolResult struct {
	Tool    string   `json:"tool"`
	Data    any      `json:"data,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the call reached the accessor and succeeded, counting
// idempotent no-ops as success.
func (r ToolResult) OK() bool {
	return r.Failure == nil || r.Failure.Code == FailureAlreadyBlocked
}

// TurnRequest is one user turn as handed over by the transport layer.
// CustomerID and PIN are the inline verification hints; VerifiedHint is
// advisory only and never grants verification.
type TurnRequest struct {
	SessionID    string `json:"session_id"`
	CustomerID   string `json:"customer_id,omitempty"`
	PIN          string `json:"pin,omitempty"`
	Text         string `json:"message"`
	VerifiedHint bool   `json:"verified,omitempty"`
}

type TurnResponse struct {
	Response             string `json:"response"`
	SessionID            string `json:"session_id"`
	RequiresVerification bool   `json:"requires_verification"`
	Flow                 string `json:"flow,omitempty"`
}

package nodes

import (
	"fmt"

	"github.com/bankabc/voice-agent/agent/audit"
	"github.com/bankabc/voice-agent/agent/contract"
)

// Classify routes the turn to a flow and records the decision in the audit
// trail, UNKNOWN included: unclear routing outcomes are part of the replay
// record, they are not errors.
func Classify(in *GraphState, classifier contract.Classifier, auditor audit.Emitter) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, ErrNilGraphState
	}
	if in.Settled {
		return in, nil
	}

	in.Classification = classifier.Classify(in.Text)
	auditor.Emit(audit.Event{
		SessionID: in.SessionID,
		Kind:      audit.KindClassification,
		Flow:      string(in.Classification.Flow),
		Outcome:   "routed",
		Detail:    fmt.Sprintf("confidence=%.2f", in.Classification.Confidence),
	})
	return in, nil
}

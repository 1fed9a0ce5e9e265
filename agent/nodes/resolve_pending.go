package nodes

import (
	"context"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/flow"
)

// ResolvePending intercepts the turn when the session has an outstanding
// irreversible action: the input is read as confirm/deny and never
// re-classified into another flow.
func ResolvePending(ctx context.Context, in *GraphState, dispatcher *flow.Dispatcher, classifier contract.Classifier) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, ErrNilGraphState
	}
	if in.Settled || !dispatcher.HasPending(in.Session) {
		return in, nil
	}

	in.FlowLabel = in.Session.Flow
	out, err := dispatcher.ResolvePending(ctx, in.Session, classifier, in.Text)
	if err != nil {
		return nil, err
	}
	in.Settled = true
	in.Reply = out.Reply
	in.RequiresVerification = out.RequiresVerification
	return in, nil
}

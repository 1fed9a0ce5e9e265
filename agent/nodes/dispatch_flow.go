package nodes

import (
	"context"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/flow"
)

// DispatchFlow hands the classified turn to the flow state machine engine.
func DispatchFlow(ctx context.Context, in *GraphState, dispatcher *flow.Dispatcher) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, ErrNilGraphState
	}
	if in.Settled {
		return in, nil
	}

	out, err := dispatcher.Dispatch(ctx, in.Session, in.Classification, in.Text)
	if err != nil {
		return nil, err
	}
	in.Reply = out.Reply
	in.RequiresVerification = out.RequiresVerification

	// An unknown classification leaves the flow unset on the response.
	switch {
	case in.Session.Flow != "":
		in.FlowLabel = in.Session.Flow
	case out.Done && in.Classification.Flow != contract.FlowUnknown:
		in.FlowLabel = string(in.Classification.Flow)
	}
	return in, nil
}

// Package flow drives the per-flow state machines: turn-by-turn progression,
// the irreversible-action confirmation sub-protocol, and termination.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/intent"
	"github.com/bankabc/voice-agent/agent/state"
	"github.com/bankabc/voice-agent/agent/tool"
)

// Outcome is the result of dispatching one turn.
type Outcome struct {
	Reply                string
	RequiresVerification bool
	Done                 bool
}

// Handler processes one turn for a flow the session is currently in.
type Handler interface {
	Flow() contract.Flow
	Handle(ctx context.Context, sess *state.Session, text string) (Outcome, error)
}

const clarificationPrompt = "I'm not sure what you need yet. I can help with card or ATM issues, " +
	"account servicing, opening or closing an account, digital banking, and transfers. " +
	"What would you like to do?"

// Dispatcher routes classified turns to flow handlers and owns the
// PendingAction confirm/deny protocol.
type Dispatcher struct {
	tools    *tool.Executor
	handlers map[contract.Flow]Handler
}

func NewDispatcher(tools *tool.Executor, handlers ...Handler) (*Dispatcher, error) {
	if tools == nil {
		return nil, errors.New("tool executor is required")
	}
	byFlow := make(map[contract.Flow]Handler, len(handlers))
	for _, h := range handlers {
		if h == nil {
			continue
		}
		byFlow[h.Flow()] = h
	}
	return &Dispatcher{tools: tools, handlers: byFlow}, nil
}

// Dispatch advances the session by one turn. The caller resolves any
// outstanding PendingAction through ResolvePending before classifying;
// by the time Dispatch runs the session has no pending action.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *state.Session, cls contract.Classification, text string) (Outcome, error) {
	target := cls.Flow

	// A turn that classifies nowhere stays in the current flow, if any.
	if target == contract.FlowUnknown && sess.Flow != "" {
		target = contract.Flow(sess.Flow)
	}

	if target == contract.FlowUnknown {
		return Outcome{Reply: clarificationPrompt}, nil
	}

	handler, ok := d.handlers[target]
	if !ok {
		return Outcome{Reply: clarificationPrompt}, nil
	}

	// Switching flows resets the old flow's sub-state.
	if sess.Flow != "" && sess.Flow != string(target) {
		sess.LeaveFlow()
	}
	if sess.Flow == "" {
		sess.EnterFlow(string(target), "")
	}

	out, err := handler.Handle(ctx, sess, text)
	if err != nil {
		return Outcome{}, err
	}
	if out.Done {
		sess.LeaveFlow()
	}
	return out, nil
}

// HasPending reports whether the session is waiting on a confirmation.
func (d *Dispatcher) HasPending(sess *state.Session) bool {
	return sess != nil && sess.Pending != nil
}

// ResolvePending interprets the turn as confirm/deny for the outstanding
// PendingAction instead of re-classifying it. An explicit affirmative
// executes the operation exactly once; an explicit negative or unclear input
// cancels without executing; input that reads like a different service
// request is rejected with a repeat of the confirmation prompt so the
// session cannot switch flows around an unconfirmed action.
func (d *Dispatcher) ResolvePending(ctx context.Context, sess *state.Session, classifier contract.Classifier, text string) (Outcome, error) {
	pending := sess.Pending
	if pending == nil {
		return Outcome{}, errors.New("no pending action to resolve")
	}

	normalized := intent.Normalize(text)
	switch {
	case isAffirmative(normalized):
		result := d.tools.Execute(ctx, sess, pending.Tool, pending.Args)
		sess.ClearPending()
		sess.LeaveFlow()
		if !result.OK() {
			return Outcome{
				Reply: "Sorry, I couldn't complete that action right now. It has been cancelled; please try again in a moment.",
				Done:  true,
			}, nil
		}
		return Outcome{Reply: executedReply(pending, result), Done: true}, nil

	case isNegative(normalized):
		sess.ClearPending()
		sess.LeaveFlow()
		return Outcome{Reply: "Okay, I won't go ahead with that. Is there anything else I can help with?", Done: true}, nil

	default:
		if cls := classifier.Classify(text); cls.Flow != contract.FlowUnknown {
			// Reject the flow switch, repeat the confirmation prompt.
			return Outcome{Reply: confirmationPrompt(pending)}, nil
		}
		sess.ClearPending()
		sess.LeaveFlow()
		return Outcome{Reply: "I'll take that as a no, so nothing was changed. Is there anything else I can help with?", Done: true}, nil
	}
}

func confirmationPrompt(p *state.PendingAction) string {
	if p.Prompt != "" {
		return p.Prompt
	}
	return fmt.Sprintf("Please confirm: should I go ahead with %s? Reply yes to confirm or no to cancel.", p.Tool)
}

func executedReply(p *state.PendingAction, result contract.ToolResult) string {
	if p.Tool == tool.ToolBlockCard {
		return blockCardReply(result)
	}
	return "Done. Is there anything else I can help with?"
}

var affirmatives = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "confirm": true,
	"confirmed": true, "sure": true, "ok": true, "okay": true,
	"go ahead": true, "do it": true, "yes please": true,
}

var negatives = map[string]bool{
	"no": true, "n": true, "nope": true, "cancel": true, "stop": true,
	"dont": true, "do not": true, "never mind": true, "nevermind": true,
	"no thanks": true,
}

func isAffirmative(normalized string) bool {
	return affirmatives[strings.TrimSpace(normalized)]
}

func isNegative(normalized string) bool {
	return negatives[strings.TrimSpace(normalized)]
}

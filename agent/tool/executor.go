package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bankabc/voice-agent/agent/audit"
	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/data"
	"github.com/bankabc/voice-agent/agent/state"
	"github.com/bankabc/voice-agent/agent/verify"
)

// Executor runs catalog operations. Every call passes the verification gate
// when sensitive, validates arguments against the spec, invokes the external
// accessor, and emits one audit event with redacted arguments.
type Executor struct {
	accessor data.Accessor
	gate     *verify.Gate
	auditor  audit.Emitter
}

func NewExecutor(accessor data.Accessor, gate *verify.Gate, auditor audit.Emitter) (*Executor, error) {
	if accessor == nil {
		return nil, errors.New("data accessor is required")
	}
	if gate == nil {
		return nil, errors.New("verification gate is required")
	}
	if auditor == nil {
		return nil, errors.New("audit emitter is required")
	}
	return &Executor{accessor: accessor, gate: gate, auditor: auditor}, nil
}

func (e *Executor) Execute(ctx context.Context, sess *state.Session, name string, args map[string]any) contract.ToolResult {
	spec, ok := Lookup(name)
	if !ok {
		return e.fail(sess, name, args, contract.FailureNotFound, fmt.Sprintf("unknown tool %q", name))
	}

	if spec.Sensitive {
		if f := e.gate.RequireVerified(sess); f != nil {
			return e.failWith(sess, name, args, f)
		}
	}

	if err := spec.validateArgs(args); err != nil {
		return e.fail(sess, name, args, contract.FailureInvalidArgument, err.Error())
	}

	result := e.invoke(ctx, sess, spec, args)
	e.auditor.Emit(audit.Event{
		SessionID: sess.ID,
		Kind:      audit.KindToolCall,
		Flow:      sess.Flow,
		Tool:      name,
		Args:      audit.Redact(args),
		Outcome:   outcomeOf(result),
	})
	return result
}

func (e *Executor) invoke(ctx context.Context, sess *state.Session, spec Spec, args map[string]any) contract.ToolResult {
	switch spec.Name {
	case ToolGetBalance:
		balance, err := e.accessor.GetBalance(ctx, sess.CustomerID)
		if err != nil {
			return failure(spec.Name, err)
		}
		return contract.ToolResult{Tool: spec.Name, Data: balance}

	case ToolGetRecentTxns:
		count := intArg(args, "count", 5)
		txns, err := e.accessor.RecentTransactions(ctx, sess.CustomerID, count)
		if err != nil {
			return failure(spec.Name, err)
		}
		return contract.ToolResult{Tool: spec.Name, Data: txns}

	case ToolGetCustomerCards:
		cards, err := e.accessor.ListCards(ctx, sess.CustomerID)
		if err != nil {
			return failure(spec.Name, err)
		}
		return contract.ToolResult{Tool: spec.Name, Data: cards}

	case ToolBlockCard:
		cardID := strings.TrimSpace(stringArg(args, "card_id"))
		reason := strings.TrimSpace(stringArg(args, "reason"))
		if reason == "" {
			reason = "Customer request - security"
		}
		result, err := e.accessor.BlockCard(ctx, sess.CustomerID, cardID, reason)
		if err != nil {
			return failure(spec.Name, err)
		}
		out := contract.ToolResult{Tool: spec.Name, Data: result}
		if result.AlreadyBlocked {
			out.Failure = contract.NewFailure(contract.FailureAlreadyBlocked, "card is already blocked")
		}
		return out

	case ToolReportLostCard:
		ticket, err := e.accessor.RecordIssue(ctx, data.IssueReport{
			CustomerID:  sess.CustomerID,
			Kind:        "lost_card",
			Description: stringArg(args, "detail"),
		})
		if err != nil {
			return failure(spec.Name, err)
		}
		return contract.ToolResult{Tool: spec.Name, Data: map[string]any{"ticket_id": ticket}}

	case ToolUpdateProfileAddress:
		customer, err := e.accessor.UpdateAddress(ctx, sess.CustomerID, stringArg(args, "new_address"))
		if err != nil {
			return failure(spec.Name, err)
		}
		return contract.ToolResult{Tool: spec.Name, Data: map[string]any{"address": customer.Address}}

	case ToolReportATMIssue:
		customerID := sess.CustomerID
		if customerID == "" {
			customerID = "anonymous"
		}
		ticket, err := e.accessor.RecordIssue(ctx, data.IssueReport{
			CustomerID:  customerID,
			Kind:        "atm_issue",
			Description: stringArg(args, "detail"),
		})
		if err != nil {
			return failure(spec.Name, err)
		}
		return contract.ToolResult{Tool: spec.Name, Data: map[string]any{"ticket_id": ticket}}
	}

	return contract.ToolResult{
		Tool:    spec.Name,
		Failure: contract.NewFailure(contract.FailureNotFound, "tool has no implementation"),
	}
}

func (e *Executor) fail(sess *state.Session, name string, args map[string]any, code contract.FailureCode, reason string) contract.ToolResult {
	return e.failWith(sess, name, args, contract.NewFailure(code, reason))
}

func (e *Executor) failWith(sess *state.Session, name string, args map[string]any, f *contract.Failure) contract.ToolResult {
	result := contract.ToolResult{Tool: name, Failure: f}
	e.auditor.Emit(audit.Event{
		SessionID: sess.ID,
		Kind:      audit.KindToolCall,
		Flow:      sess.Flow,
		Tool:      name,
		Args:      audit.Redact(args),
		Outcome:   string(f.Code),
	})
	return result
}

func failure(name string, err error) contract.ToolResult {
	code := contract.FailureAccessorError
	switch {
	case errors.Is(err, data.ErrNotFound):
		code = contract.FailureNotFound
	case errors.Is(err, context.DeadlineExceeded):
		code = contract.FailureUpstreamTimeout
	}
	return contract.ToolResult{Tool: name, Failure: contract.NewFailure(code, err.Error())}
}

func outcomeOf(r contract.ToolResult) string {
	switch {
	case r.Failure == nil:
		return "success"
	case r.Failure.Code == contract.FailureAlreadyBlocked:
		return "noop_already_blocked"
	default:
		return string(r.Failure.Code)
	}
}

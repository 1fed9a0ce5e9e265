package tool

import (
	"context"
	"testing"
	"time"

	"github.com/bankabc/voice-agent/agent/audit"
	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/data"
	"github.com/bankabc/voice-agent/agent/state"
	"github.com/bankabc/voice-agent/agent/verify"
)

// fakeAccessor counts invocations so tests can assert the gate trips before
// the record store is touched.
type fakeAccessor struct {
	calls      int
	balance    data.Balance
	cards      []data.Card
	blockErr   error
	blocked    map[string]bool
	lastIssue  data.IssueReport
	lastTicket string
}

func (f *fakeAccessor) LookupCredential(ctx context.Context, customerID string) (string, error) {
	return "", data.ErrNotFound
}

func (f *fakeAccessor) GetCustomer(ctx context.Context, customerID string) (data.Customer, error) {
	f.calls++
	return data.Customer{ID: customerID}, nil
}

func (f *fakeAccessor) GetBalance(ctx context.Context, customerID string) (data.Balance, error) {
	f.calls++
	return f.balance, nil
}

func (f *fakeAccessor) RecentTransactions(ctx context.Context, customerID string, count int) ([]data.Transaction, error) {
	f.calls++
	return nil, nil
}

func (f *fakeAccessor) ListCards(ctx context.Context, customerID string) ([]data.Card, error) {
	f.calls++
	return f.cards, nil
}

func (f *fakeAccessor) BlockCard(ctx context.Context, customerID, cardID, reason string) (data.BlockCardResult, error) {
	f.calls++
	if f.blockErr != nil {
		return data.BlockCardResult{}, f.blockErr
	}
	if f.blocked == nil {
		f.blocked = make(map[string]bool)
	}
	already := f.blocked[cardID]
	f.blocked[cardID] = true
	return data.BlockCardResult{
		Card:           data.Card{ID: cardID, Status: data.CardStatusBlocked},
		Reason:         reason,
		AlreadyBlocked: already,
	}, nil
}

func (f *fakeAccessor) UpdateAddress(ctx context.Context, customerID, newAddress string) (data.Customer, error) {
	f.calls++
	return data.Customer{ID: customerID, Address: newAddress}, nil
}

func (f *fakeAccessor) RecordIssue(ctx context.Context, report data.IssueReport) (string, error) {
	f.calls++
	f.lastIssue = report
	f.lastTicket = "TICKET-1"
	return f.lastTicket, nil
}

func newTestExecutor(t *testing.T, accessor data.Accessor) (*Executor, *audit.Recorder) {
	t.Helper()
	recorder := audit.NewRecorder()
	gate, err := verify.NewGate(accessor, recorder, verify.Config{})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	exec, err := NewExecutor(accessor, gate, recorder)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return exec, recorder
}

func verifiedSession() *state.Session {
	sess := state.NewSession("sess-1", time.Now())
	sess.MarkVerified("CUST001")
	return sess
}

func TestExecuteSensitiveRequiresVerification(t *testing.T) {
	t.Parallel()

	accessor := &fakeAccessor{}
	exec, recorder := newTestExecutor(t, accessor)
	sess := state.NewSession("sess-1", time.Now())

	result := exec.Execute(context.Background(), sess, ToolGetBalance, nil)
	if result.OK() {
		t.Fatal("unverified sensitive call must fail")
	}
	if result.Failure.Code != contract.FailureNotVerified {
		t.Fatalf("expected NOT_VERIFIED, got %s", result.Failure.Code)
	}
	if accessor.calls != 0 {
		t.Fatal("gate must trip before the accessor is reached")
	}

	events := recorder.Events("sess-1")
	if len(events) != 1 || events[0].Outcome != string(contract.FailureNotVerified) {
		t.Fatalf("unexpected audit trail: %+v", events)
	}
}

func TestExecuteNonSensitiveBypassesGate(t *testing.T) {
	t.Parallel()

	accessor := &fakeAccessor{}
	exec, _ := newTestExecutor(t, accessor)
	sess := state.NewSession("sess-1", time.Now())

	result := exec.Execute(context.Background(), sess, ToolReportATMIssue,
		map[string]any{"detail": "ATM on Main St ate my card"})
	if !result.OK() {
		t.Fatalf("atm issue report should not need verification: %v", result.Failure)
	}
	if accessor.lastIssue.Kind != "atm_issue" || accessor.lastIssue.CustomerID != "anonymous" {
		t.Fatalf("unexpected issue report: %+v", accessor.lastIssue)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	exec, _ := newTestExecutor(t, &fakeAccessor{})
	result := exec.Execute(context.Background(), verifiedSession(), "transmute_gold", nil)
	if result.OK() || result.Failure.Code != contract.FailureNotFound {
		t.Fatalf("expected NOT_FOUND for unknown tool, got %+v", result)
	}
}

func TestExecuteMissingRequiredArg(t *testing.T) {
	t.Parallel()

	accessor := &fakeAccessor{}
	exec, _ := newTestExecutor(t, accessor)

	result := exec.Execute(context.Background(), verifiedSession(), ToolBlockCard, nil)
	if result.OK() || result.Failure.Code != contract.FailureInvalidArgument {
		t.Fatalf("expected INVALID_ARGUMENT, got %+v", result)
	}
	if accessor.calls != 0 {
		t.Fatal("invalid arguments must not reach the accessor")
	}
}

func TestExecuteBlockCardIdempotent(t *testing.T) {
	t.Parallel()

	accessor := &fakeAccessor{}
	exec, recorder := newTestExecutor(t, accessor)
	sess := verifiedSession()
	args := map[string]any{"card_id": "CARD002", "reason": "Lost card"}

	first := exec.Execute(context.Background(), sess, ToolBlockCard, args)
	if !first.OK() || first.Failure != nil {
		t.Fatalf("first block should succeed cleanly: %+v", first)
	}

	second := exec.Execute(context.Background(), sess, ToolBlockCard, args)
	if !second.OK() {
		t.Fatalf("repeat block must stay a success: %+v", second)
	}
	if second.Failure == nil || second.Failure.Code != contract.FailureAlreadyBlocked {
		t.Fatalf("repeat block must carry ALREADY_BLOCKED, got %+v", second.Failure)
	}

	events := recorder.Events("sess-1")
	if len(events) != 2 {
		t.Fatalf("expected 2 audit events, got %d", len(events))
	}
	if events[0].Outcome != "success" || events[1].Outcome != "noop_already_blocked" {
		t.Fatalf("unexpected outcomes: %q then %q", events[0].Outcome, events[1].Outcome)
	}
}

func TestExecuteBlockCardDefaultReason(t *testing.T) {
	t.Parallel()

	accessor := &fakeAccessor{}
	exec, _ := newTestExecutor(t, accessor)

	result := exec.Execute(context.Background(), verifiedSession(), ToolBlockCard,
		map[string]any{"card_id": "CARD001"})
	if !result.OK() {
		t.Fatalf("unexpected failure: %+v", result.Failure)
	}
	blocked, ok := result.Data.(data.BlockCardResult)
	if !ok {
		t.Fatalf("unexpected payload type %T", result.Data)
	}
	if blocked.Reason != "Customer request - security" {
		t.Fatalf("unexpected default reason: %q", blocked.Reason)
	}
}

func TestExecuteTimeoutMapsToUpstream(t *testing.T) {
	t.Parallel()

	accessor := &fakeAccessor{blockErr: context.DeadlineExceeded}
	exec, _ := newTestExecutor(t, accessor)

	result := exec.Execute(context.Background(), verifiedSession(), ToolBlockCard,
		map[string]any{"card_id": "CARD001"})
	if result.OK() || result.Failure.Code != contract.FailureUpstreamTimeout {
		t.Fatalf("expected UPSTREAM_TIMEOUT, got %+v", result)
	}
}

func TestCatalogSensitivity(t *testing.T) {
	t.Parallel()

	for _, spec := range Catalog() {
		sensitive := spec.Name != ToolReportATMIssue
		if spec.Sensitive != sensitive {
			t.Errorf("%s: sensitive=%v, want %v", spec.Name, spec.Sensitive, sensitive)
		}
	}
	spec, ok := Lookup(ToolBlockCard)
	if !ok || !spec.Irreversible {
		t.Fatal("block_card must be marked irreversible")
	}
}

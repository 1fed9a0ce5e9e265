package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bankabc/voice-agent/agent/audit"
	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/data"
	"github.com/bankabc/voice-agent/agent/intent"
	"github.com/bankabc/voice-agent/agent/state"
	"github.com/bankabc/voice-agent/agent/tool"
	"github.com/bankabc/voice-agent/agent/verify"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *audit.Recorder) {
	t.Helper()
	store := data.MustNewFixtureStore()
	recorder := audit.NewRecorder()
	gate, err := verify.NewGate(store, recorder, verify.Config{})
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	tools, err := tool.NewExecutor(store, gate, recorder)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	d, err := NewDispatcher(tools,
		NewCardATMHandler(tools),
		NewAccountServicingHandler(tools),
	)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return d, recorder
}

func verifiedSession(id string) *state.Session {
	sess := state.NewSession(id, time.Now())
	sess.MarkVerified("CUST001")
	return sess
}

func blockCardTurn(t *testing.T, d *Dispatcher, sess *state.Session) {
	t.Helper()
	out, err := d.Dispatch(context.Background(), sess,
		contract.Classification{Flow: contract.FlowCardATMIssues, Confidence: 0.95},
		"I lost my card, please block CARD002")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sess.Pending == nil || sess.Pending.Tool != tool.ToolBlockCard {
		t.Fatalf("expected a staged block, got pending=%+v reply=%q", sess.Pending, out.Reply)
	}
	if !strings.Contains(out.Reply, "cannot be undone") {
		t.Fatalf("confirmation prompt must state irreversibility: %q", out.Reply)
	}
}

func TestResolvePendingConfirmExecutesOnce(t *testing.T) {
	t.Parallel()

	d, recorder := newTestDispatcher(t)
	sess := verifiedSession("sess-1")
	blockCardTurn(t, d, sess)

	out, err := d.ResolvePending(context.Background(), sess, intent.NewRuleClassifier(), "yes")
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}
	if !out.Done || !strings.Contains(out.Reply, "blocked successfully") {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if sess.Pending != nil || sess.Flow != "" {
		t.Fatalf("pending and flow must be cleared after execution: %+v", sess)
	}

	blocks := 0
	for _, ev := range recorder.Events("sess-1") {
		if ev.Kind == audit.KindToolCall && ev.Tool == tool.ToolBlockCard {
			blocks++
			if ev.Outcome != "success" {
				t.Fatalf("unexpected block outcome: %q", ev.Outcome)
			}
		}
	}
	if blocks != 1 {
		t.Fatalf("block_card must run exactly once, ran %d times", blocks)
	}
}

func TestResolvePendingDenyExecutesNothing(t *testing.T) {
	t.Parallel()

	d, recorder := newTestDispatcher(t)
	sess := verifiedSession("sess-1")
	blockCardTurn(t, d, sess)

	out, err := d.ResolvePending(context.Background(), sess, intent.NewRuleClassifier(), "no")
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}
	if !out.Done || sess.Pending != nil {
		t.Fatalf("deny must cancel and clear pending: %+v", out)
	}
	for _, ev := range recorder.Events("sess-1") {
		if ev.Tool == tool.ToolBlockCard {
			t.Fatalf("block_card ran after a deny: %+v", ev)
		}
	}
}

func TestResolvePendingRejectsFlowSwitch(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(t)
	sess := verifiedSession("sess-1")
	blockCardTurn(t, d, sess)
	prompt := sess.Pending.Prompt

	out, err := d.ResolvePending(context.Background(), sess, intent.NewRuleClassifier(), "what is my balance")
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}
	if sess.Pending == nil {
		t.Fatal("pending must survive a rejected flow switch")
	}
	if out.Reply != prompt {
		t.Fatalf("expected the confirmation prompt again, got %q", out.Reply)
	}
}

func TestResolvePendingUnclearCancels(t *testing.T) {
	t.Parallel()

	d, recorder := newTestDispatcher(t)
	sess := verifiedSession("sess-1")
	blockCardTurn(t, d, sess)

	out, err := d.ResolvePending(context.Background(), sess, intent.NewRuleClassifier(), "hmm maybe whatever")
	if err != nil {
		t.Fatalf("ResolvePending: %v", err)
	}
	if sess.Pending != nil || !out.Done {
		t.Fatalf("unclear input must cancel the pending action: %+v", out)
	}
	for _, ev := range recorder.Events("sess-1") {
		if ev.Tool == tool.ToolBlockCard {
			t.Fatalf("block_card ran after unclear input: %+v", ev)
		}
	}
}

func TestDispatchUnknownNoFlow(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(t)
	sess := verifiedSession("sess-1")

	out, err := d.Dispatch(context.Background(), sess, contract.Classification{Flow: contract.FlowUnknown}, "zibble")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Reply != clarificationPrompt {
		t.Fatalf("expected clarification prompt, got %q", out.Reply)
	}
	if sess.Flow != "" {
		t.Fatalf("unknown turn must not enter a flow: %q", sess.Flow)
	}
}

func TestDispatchUnknownStaysInCurrentFlow(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(t)
	sess := verifiedSession("sess-1")

	// First turn enters account servicing and asks for the new address.
	out, err := d.Dispatch(context.Background(), sess,
		contract.Classification{Flow: contract.FlowAccountServicing, Confidence: 0.75},
		"I need to update my address")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if out.Done || sess.FlowStep != stepAwaitingAddress {
		t.Fatalf("expected to await the address: %+v step=%q", out, sess.FlowStep)
	}

	// The address itself classifies nowhere but must land in the same flow.
	out, err = d.Dispatch(context.Background(), sess,
		contract.Classification{Flow: contract.FlowUnknown},
		"742 Evergreen Terrace, Springfield")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !out.Done || !strings.Contains(out.Reply, "742 Evergreen Terrace") {
		t.Fatalf("address update did not complete: %+v", out)
	}
}

func TestDispatchUnverifiedRequiresVerification(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(t)
	sess := state.NewSession("sess-1", time.Now())

	out, err := d.Dispatch(context.Background(), sess,
		contract.Classification{Flow: contract.FlowAccountServicing, Confidence: 0.75},
		"what is my balance")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !out.RequiresVerification {
		t.Fatalf("unverified balance request must ask for verification: %+v", out)
	}
}

func TestDispatchBalanceReply(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(t)
	sess := verifiedSession("sess-1")

	out, err := d.Dispatch(context.Background(), sess,
		contract.Classification{Flow: contract.FlowAccountServicing, Confidence: 0.75},
		"what is my balance")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(out.Reply, "$15,420.50") {
		t.Fatalf("balance reply missing formatted amount: %q", out.Reply)
	}
	if !out.Done || sess.Flow != "" {
		t.Fatalf("balance is a one-turn flow: %+v flow=%q", out, sess.Flow)
	}
}

func TestDispatchSwitchingFlowsResetsStep(t *testing.T) {
	t.Parallel()

	d, _ := newTestDispatcher(t)
	sess := verifiedSession("sess-1")

	if _, err := d.Dispatch(context.Background(), sess,
		contract.Classification{Flow: contract.FlowAccountServicing, Confidence: 0.75},
		"I need to update my address"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sess.FlowStep != stepAwaitingAddress {
		t.Fatalf("expected awaiting_address, got %q", sess.FlowStep)
	}

	if _, err := d.Dispatch(context.Background(), sess,
		contract.Classification{Flow: contract.FlowCardATMIssues, Confidence: 0.95},
		"actually I need to block a card"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sess.Flow != string(contract.FlowCardATMIssues) || sess.FlowStep == stepAwaitingAddress {
		t.Fatalf("flow switch must reset sub-state: flow=%q step=%q", sess.Flow, sess.FlowStep)
	}
}

func TestFormatMoney(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want string
	}{
		{15420.5, "15,420.50"},
		{0, "0.00"},
		{999.99, "999.99"},
		{1000, "1,000.00"},
		{1234567.891, "1,234,567.89"},
		{-2500, "-2,500.00"},
	}
	for _, tc := range cases {
		if got := formatMoney(tc.in); got != tc.want {
			t.Errorf("formatMoney(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

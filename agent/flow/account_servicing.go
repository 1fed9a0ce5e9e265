package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/bankabc/voice-agent/agent/contract"
	"github.com/bankabc/voice-agent/agent/data"
	"github.com/bankabc/voice-agent/agent/state"
	"github.com/bankabc/voice-agent/agent/tool"
)

const stepAwaitingAddress = "awaiting_address"

// AccountServicingHandler serves the stateless per-request operations:
// balance, transactions, profile info. Address updates take one extra turn
// when the utterance doesn't already contain the new address.
type AccountServicingHandler struct {
	tools *tool.Executor
}

func NewAccountServicingHandler(tools *tool.Executor) *AccountServicingHandler {
	return &AccountServicingHandler{tools: tools}
}

func (h *AccountServicingHandler) Flow() contract.Flow {
	return contract.FlowAccountServicing
}

func (h *AccountServicingHandler) Handle(ctx context.Context, sess *state.Session, text string) (Outcome, error) {
	if !sess.Verified {
		return Outcome{
			Reply: "I can help with account servicing. First, I need to verify your identity. " +
				"Please provide your Customer ID and PIN.",
			RequiresVerification: true,
		}, nil
	}

	if sess.FlowStep == stepAwaitingAddress {
		return h.updateAddress(ctx, sess, text)
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "address"):
		if addr := addressFromText(text); addr != "" {
			return h.updateAddress(ctx, sess, addr)
		}
		sess.FlowStep = stepAwaitingAddress
		return Outcome{Reply: "I can update your address. What's the new address?"}, nil

	case containsAny(lower, "transaction", "statement", "history", "recent"):
		result := h.tools.Execute(ctx, sess, tool.ToolGetRecentTxns, map[string]any{"count": 5})
		if !result.OK() {
			return apology(), nil
		}
		txns, _ := result.Data.([]data.Transaction)
		if len(txns) == 0 {
			return Outcome{Reply: "I don't see any recent transactions on your account.", Done: true}, nil
		}
		return Outcome{Reply: "Here are your recent transactions:\n" + transactionList(txns), Done: true}, nil

	case containsAny(lower, "balance", "how much", "money"):
		return h.balance(ctx, sess, "")

	default:
		// Balance is the most common request; answer it and offer the rest.
		return h.balance(ctx, sess, " I can also help with transaction history or profile updates.")
	}
}

func (h *AccountServicingHandler) balance(ctx context.Context, sess *state.Session, suffix string) (Outcome, error) {
	result := h.tools.Execute(ctx, sess, tool.ToolGetBalance, nil)
	if !result.OK() {
		return apology(), nil
	}
	b, _ := result.Data.(data.Balance)
	return Outcome{
		Reply: fmt.Sprintf("Your %s account (#%s) has a balance of $%s.%s",
			b.AccountType, b.AccountNumber, formatMoney(b.Balance), suffix),
		Done: true,
	}, nil
}

func (h *AccountServicingHandler) updateAddress(ctx context.Context, sess *state.Session, newAddress string) (Outcome, error) {
	result := h.tools.Execute(ctx, sess, tool.ToolUpdateProfileAddress, map[string]any{
		"new_address": strings.TrimSpace(newAddress),
	})
	if !result.OK() {
		if result.Failure.Code == contract.FailureInvalidArgument {
			return Outcome{Reply: "I didn't catch an address there. What's the new address?"}, nil
		}
		return apology(), nil
	}
	updated, _ := result.Data.(map[string]any)
	return Outcome{
		Reply: fmt.Sprintf("Your address has been updated to: %v", updated["address"]),
		Done:  true,
	}, nil
}

// addressFromText pulls the address out of utterances like
// "update my address to 12 Oak Lane, Springfield".
func addressFromText(text string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, "address to ")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(text[idx+len("address to "):])
}

func transactionList(txns []data.Transaction) string {
	lines := make([]string, 0, len(txns))
	for _, t := range txns {
		lines = append(lines, fmt.Sprintf("- %s: %s ($%.2f)", t.Date, t.Description, t.Amount))
	}
	return strings.Join(lines, "\n")
}

func containsAny(lower string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// formatMoney renders a fixed-point currency amount with thousands
// separators, e.g. 15420.5 -> "15,420.50".
func formatMoney(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	var parts []string
	for len(whole) > 3 {
		parts = append([]string{whole[len(whole)-3:]}, parts...)
		whole = whole[:len(whole)-3]
	}
	parts = append([]string{whole}, parts...)
	return sign + strings.Join(parts, ",") + "." + frac
}

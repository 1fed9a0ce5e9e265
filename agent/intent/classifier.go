// Package intent maps free-form user text to a service flow. The rule
// classifier is deterministic: rules are evaluated in a fixed declaration
// order and the first match wins, so routing is stable regardless of how
// the keywords appear in the input.
package intent

import (
	"strings"
	"unicode"

	"github.com/bankabc/voice-agent/agent/contract"
)

type rule struct {
	flow  contract.Flow
	terms []string // single words, matched against the token set
	exprs []string // multi-word phrases, matched as substrings
}

// rules is the binding priority order: card/ATM terms, then generic account
// servicing terms, then the four stub flows, then unknown. Ties between
// rule sets break by declaration order, not input order.
var rules = []rule{
	{
		flow:  contract.FlowCardATMIssues,
		terms: []string{"card", "cards", "atm", "declined", "decline", "lost", "stolen", "block", "freeze"},
		exprs: []string{"cash not dispensed"},
	},
	{
		flow:  contract.FlowAccountServicing,
		terms: []string{"balance", "transaction", "transactions", "statement", "history", "address", "profile"},
		exprs: []string{"how much", "account details", "account info", "recent activity"},
	},
	{
		flow:  contract.FlowAccountOpening,
		terms: []string{"open", "opening", "eligibility", "eligible", "documents"},
		exprs: []string{"new account"},
	},
	{
		flow:  contract.FlowDigitalSupport,
		terms: []string{"login", "otp", "password", "app", "crash", "crashes"},
		exprs: []string{"verification code", "cant log in", "can t log in"},
	},
	{
		flow:  contract.FlowTransfersPayments,
		terms: []string{"transfer", "transfers", "pay", "payment", "payments", "bill", "beneficiary", "send"},
	},
	{
		flow:  contract.FlowAccountClosure,
		terms: []string{"close", "closing", "cancel", "terminate"},
	},
}

// RuleClassifier is the default deterministic classifier. It satisfies
// contract.Classifier so a model-backed implementation can replace it
// without changing the dispatcher.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(text string) contract.Classification {
	normalized := Normalize(text)
	if normalized == "" {
		return contract.Classification{Flow: contract.FlowUnknown}
	}

	tokens := tokenSet(normalized)
	for _, r := range rules {
		matches := 0
		for _, term := range r.terms {
			if tokens[term] {
				matches++
			}
		}
		for _, expr := range r.exprs {
			if strings.Contains(normalized, expr) {
				matches++
			}
		}
		if matches > 0 {
			confidence := 0.75
			if matches > 1 {
				confidence = 0.95
			}
			return contract.Classification{Flow: r.flow, Confidence: confidence}
		}
	}
	return contract.Classification{Flow: contract.FlowUnknown}
}

// Normalize lower-cases the input and strips punctuation, keeping letters,
// digits and spaces.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '\'' || r == '-':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(normalized string) map[string]bool {
	fields := strings.Fields(normalized)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

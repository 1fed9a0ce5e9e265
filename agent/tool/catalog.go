// Package tool holds the fixed catalog of customer-data operations and the
// executor that runs them behind the verification gate and the audit trail.
package tool

import "fmt"

const (
	ToolGetBalance           = "get_balance"
	ToolGetRecentTxns        = "get_recent_transactions"
	ToolGetCustomerCards     = "get_customer_cards"
	ToolBlockCard            = "block_card"
	ToolReportLostCard       = "report_lost_card"
	ToolUpdateProfileAddress = "update_profile_address"
	ToolReportATMIssue       = "report_atm_issue"
)

type ArgSpec struct {
	Name     string
	Desc     string
	Required bool
}

// Spec declares one catalog entry: sensitivity decides whether the
// verification gate is consulted; Irreversible operations go through the
// dispatcher's confirmation sub-protocol before they reach Execute.
type Spec struct {
	Name         string
	Desc         string
	Sensitive    bool
	Irreversible bool
	Args         []ArgSpec
}

var catalog = []Spec{
	{
		Name:      ToolGetBalance,
		Desc:      "Read the current account balance for the verified customer.",
		Sensitive: true,
	},
	{
		Name:      ToolGetRecentTxns,
		Desc:      "List the most recent transactions for the verified customer.",
		Sensitive: true,
		Args: []ArgSpec{
			{Name: "count", Desc: "How many transactions to return"},
		},
	},
	{
		Name:      ToolGetCustomerCards,
		Desc:      "List the verified customer's cards.",
		Sensitive: true,
	},
	{
		Name:         ToolBlockCard,
		Desc:         "Permanently block a card. Blocking an already-blocked card is a no-op.",
		Sensitive:    true,
		Irreversible: true,
		Args: []ArgSpec{
			{Name: "card_id", Desc: "Identifier of the card to block", Required: true},
			{Name: "reason", Desc: "Why the card is being blocked"},
		},
	},
	{
		Name:      ToolReportLostCard,
		Desc:      "File a lost-card report for the verified customer.",
		Sensitive: true,
		Args: []ArgSpec{
			{Name: "detail", Desc: "Free-text description", Required: true},
		},
	},
	{
		Name:      ToolUpdateProfileAddress,
		Desc:      "Update the verified customer's mailing address.",
		Sensitive: true,
		Args: []ArgSpec{
			{Name: "new_address", Desc: "Replacement address", Required: true},
		},
	},
	{
		Name: ToolReportATMIssue,
		Desc: "File an ATM problem report. Does not touch customer records.",
		Args: []ArgSpec{
			{Name: "detail", Desc: "Free-text description of the ATM problem", Required: true},
		},
	},
}

// Catalog returns the fixed operation catalog.
func Catalog() []Spec {
	return append([]Spec(nil), catalog...)
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (Spec, bool) {
	for _, s := range catalog {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

func (s Spec) validateArgs(args map[string]any) error {
	for _, a := range s.Args {
		if !a.Required {
			continue
		}
		v, ok := args[a.Name]
		if !ok {
			return fmt.Errorf("argument %q is required", a.Name)
		}
		if str, isStr := v.(string); isStr && str == "" {
			return fmt.Errorf("argument %q must not be empty", a.Name)
		}
	}
	return nil
}

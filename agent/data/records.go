// Package data defines the typed customer records and the accessor contract
// the core reads and writes them through. Implementations are swappable
// without touching the core: a JSON-file store for local use and a
// Postgres-backed store for shared deployments.
package data

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("record not found")

const (
	CardStatusActive  = "active"
	CardStatusBlocked = "blocked"
)

type Card struct {
	ID              string  `json:"card_id"`
	Number          string  `json:"card_number"`
	Type            string  `json:"card_type"` // credit | debit
	Status          string  `json:"status"`    // active -> blocked is one-way
	CreditLimit     float64 `json:"credit_limit,omitempty"`
	AvailableCredit float64 `json:"available_credit,omitempty"`
}

type Customer struct {
	ID            string  `json:"customer_id"`
	PIN           string  `json:"pin"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone"`
	Address       string  `json:"address"`
	AccountNumber string  `json:"account_number"`
	Balance       float64 `json:"account_balance"`
	AccountType   string  `json:"account_type"`
	Cards         []Card  `json:"cards"`
}

// Transaction is append-only and read-only to the core.
type Transaction struct {
	ID          string  `json:"transaction_id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Category    string  `json:"category"`
}

type Balance struct {
	CustomerID    string  `json:"customer_id"`
	AccountNumber string  `json:"account_number"`
	Balance       float64 `json:"balance"`
	AccountType   string  `json:"account_type"`
}

// IssueReport is a customer-filed problem report (ATM fault, lost card).
type IssueReport struct {
	CustomerID  string `json:"customer_id"`
	Kind        string `json:"kind"` // atm_issue | lost_card
	Description string `json:"description"`
}

// BlockCardResult reports the card state after a block request. AlreadyBlocked
// marks the idempotent no-op case.
type BlockCardResult struct {
	Card           Card   `json:"card"`
	Reason         string `json:"reason"`
	AlreadyBlocked bool   `json:"already_blocked"`
}

// Accessor is the read/write contract the tool layer requires of the
// underlying record store.
type Accessor interface {
	LookupCredential(ctx context.Context, customerID string) (string, error)
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
	GetBalance(ctx context.Context, customerID string) (Balance, error)
	RecentTransactions(ctx context.Context, customerID string, count int) ([]Transaction, error)
	ListCards(ctx context.Context, customerID string) ([]Card, error)
	BlockCard(ctx context.Context, customerID, cardID, reason string) (BlockCardResult, error)
	UpdateAddress(ctx context.Context, customerID, newAddress string) (Customer, error)
	RecordIssue(ctx context.Context, report IssueReport) (string, error)
}

func (c Customer) validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("customer_id is required")
	}
	if strings.TrimSpace(c.AccountNumber) == "" {
		return errors.New("account_number is required")
	}
	for _, card := range c.Cards {
		if strings.TrimSpace(card.ID) == "" || strings.TrimSpace(card.Number) == "" {
			return errors.New("card_id and card_number are required")
		}
		if card.Status != CardStatusActive && card.Status != CardStatusBlocked {
			return errors.New("card status must be active or blocked")
		}
	}
	return nil
}

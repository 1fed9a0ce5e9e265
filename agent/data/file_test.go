package data

import (
	"context"
	"errors"
	"testing"
)

func TestFixtureStoreLoads(t *testing.T) {
	t.Parallel()

	store := MustNewFixtureStore()
	ctx := context.Background()

	balance, err := store.GetBalance(ctx, "CUST001")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance.Balance != 15420.50 || balance.AccountType != "checking" {
		t.Fatalf("unexpected fixture balance: %+v", balance)
	}

	pin, err := store.LookupCredential(ctx, "CUST001")
	if err != nil || pin != "1234" {
		t.Fatalf("LookupCredential: pin=%q err=%v", pin, err)
	}

	cards, err := store.ListCards(ctx, "CUST001")
	if err != nil || len(cards) != 2 {
		t.Fatalf("ListCards: %v %v", cards, err)
	}
}

func TestUnknownCustomer(t *testing.T) {
	t.Parallel()

	store := MustNewFixtureStore()
	ctx := context.Background()

	if _, err := store.GetCustomer(ctx, "NOBODY"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.LookupCredential(ctx, "NOBODY"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.BlockCard(ctx, "NOBODY", "CARD001", "test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBlockCardOneWay(t *testing.T) {
	t.Parallel()

	store := MustNewFixtureStore()
	ctx := context.Background()

	result, err := store.BlockCard(ctx, "CUST001", "CARD001", "Lost card")
	if err != nil {
		t.Fatalf("BlockCard: %v", err)
	}
	if result.AlreadyBlocked || result.Card.Status != CardStatusBlocked {
		t.Fatalf("unexpected result: %+v", result)
	}

	again, err := store.BlockCard(ctx, "CUST001", "CARD001", "Lost card")
	if err != nil {
		t.Fatalf("BlockCard repeat: %v", err)
	}
	if !again.AlreadyBlocked {
		t.Fatal("second block must report the idempotent no-op")
	}

	if _, err := store.BlockCard(ctx, "CUST001", "CARD999", "test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown card: expected ErrNotFound, got %v", err)
	}
}

func TestBlockCardWrongOwner(t *testing.T) {
	t.Parallel()

	store := MustNewFixtureStore()
	// CARD003 belongs to CUST002; CUST001 must not be able to touch it.
	if _, err := store.BlockCard(context.Background(), "CUST001", "CARD003", "test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another customer's card, got %v", err)
	}
}

func TestRecentTransactionsClampsCount(t *testing.T) {
	t.Parallel()

	store := MustNewFixtureStore()
	ctx := context.Background()

	all, err := store.RecentTransactions(ctx, "CUST001", 0)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(all) == 0 {
		t.Fatal("fixtures should carry transactions for CUST001")
	}

	two, err := store.RecentTransactions(ctx, "CUST001", 2)
	if err != nil || len(two) != 2 {
		t.Fatalf("count=2: got %d err=%v", len(two), err)
	}

	over, err := store.RecentTransactions(ctx, "CUST001", len(all)+100)
	if err != nil || len(over) != len(all) {
		t.Fatalf("oversized count must clamp: got %d want %d", len(over), len(all))
	}
}

func TestUpdateAddress(t *testing.T) {
	t.Parallel()

	store := MustNewFixtureStore()
	ctx := context.Background()

	updated, err := store.UpdateAddress(ctx, "CUST001", "742 Evergreen Terrace")
	if err != nil || updated.Address != "742 Evergreen Terrace" {
		t.Fatalf("UpdateAddress: %+v %v", updated, err)
	}
	if _, err := store.UpdateAddress(ctx, "CUST001", "   "); err == nil {
		t.Fatal("blank address must be rejected")
	}
}

func TestRecordIssueTickets(t *testing.T) {
	t.Parallel()

	store := MustNewFixtureStore()
	ctx := context.Background()

	first, err := store.RecordIssue(ctx, IssueReport{CustomerID: "CUST001", Kind: "atm_issue"})
	if err != nil {
		t.Fatalf("RecordIssue: %v", err)
	}
	second, err := store.RecordIssue(ctx, IssueReport{CustomerID: "anonymous", Kind: "atm_issue"})
	if err != nil {
		t.Fatalf("RecordIssue: %v", err)
	}
	if first == second {
		t.Fatalf("ticket ids must be unique: %q", first)
	}
}

func TestDirBackedPersistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.BlockCard(context.Background(), "CUST001", "CARD001", "Lost card"); err != nil {
		t.Fatalf("BlockCard: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	cards, err := reopened.ListCards(context.Background(), "CUST001")
	if err != nil {
		t.Fatalf("ListCards: %v", err)
	}
	for _, c := range cards {
		if c.ID == "CARD001" && c.Status != CardStatusBlocked {
			t.Fatalf("block must survive a reload: %+v", c)
		}
	}
}

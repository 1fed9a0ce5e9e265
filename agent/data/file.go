package data

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	//go:embed fixture/customers.json
	fixtureCustomersRaw []byte

	//go:embed fixture/transactions.json
	fixtureTransactionsRaw []byte
)

type customerFile struct {
	Customers []Customer `json:"customers"`
}

type transactionFile struct {
	Transactions map[string][]Transaction `json:"transactions"`
}

// FileStore serves records from JSON files under dir, seeding missing files
// from the embedded fixtures. With an empty dir it runs purely in-memory,
// which is the mode tests use.
type FileStore struct {
	mu           sync.RWMutex
	dir          string
	customers    []Customer
	transactions map[string][]Transaction
	issueSeq     int
}

func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{dir: strings.TrimSpace(dir)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustNewFixtureStore returns an in-memory store over the embedded fixtures.
func MustNewFixtureStore() *FileStore {
	s, err := NewFileStore("")
	if err != nil {
		panic(err)
	}
	return s
}

func (s *FileStore) load() error {
	rawCustomers := fixtureCustomersRaw
	rawTransactions := fixtureTransactionsRaw

	if s.dir != "" {
		if raw, err := readIfExists(filepath.Join(s.dir, "customers.json")); err != nil {
			return err
		} else if raw != nil {
			rawCustomers = raw
		}
		if raw, err := readIfExists(filepath.Join(s.dir, "transactions.json")); err != nil {
			return err
		} else if raw != nil {
			rawTransactions = raw
		}
	}

	var cf customerFile
	if err := json.Unmarshal(rawCustomers, &cf); err != nil {
		return fmt.Errorf("decode customers: %w", err)
	}
	for _, c := range cf.Customers {
		if err := c.validate(); err != nil {
			return fmt.Errorf("invalid customer record %q: %w", c.ID, err)
		}
	}

	var tf transactionFile
	if err := json.Unmarshal(rawTransactions, &tf); err != nil {
		return fmt.Errorf("decode transactions: %w", err)
	}

	s.customers = cf.Customers
	s.transactions = tf.Transactions
	if s.transactions == nil {
		s.transactions = make(map[string][]Transaction)
	}
	return nil
}

func readIfExists(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

// persist writes customers back to disk. Caller holds the write lock.
func (s *FileStore) persist() error {
	if s.dir == "" {
		return nil
	}
	payload, err := json.MarshalIndent(customerFile{Customers: s.customers}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, "customers.json"), payload, 0o644)
}

func (s *FileStore) LookupCredential(ctx context.Context, customerID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.ID == customerID {
			return c.PIN, nil
		}
	}
	return "", ErrNotFound
}

func (s *FileStore) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	if err := ctx.Err(); err != nil {
		return Customer{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.ID == customerID {
			return cloneCustomer(c), nil
		}
	}
	return Customer{}, ErrNotFound
}

func (s *FileStore) GetBalance(ctx context.Context, customerID string) (Balance, error) {
	c, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{
		CustomerID:    c.ID,
		AccountNumber: c.AccountNumber,
		Balance:       c.Balance,
		AccountType:   c.AccountType,
	}, nil
}

func (s *FileStore) RecentTransactions(ctx context.Context, customerID string, count int) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	txns, ok := s.transactions[customerID]
	if !ok {
		return nil, nil
	}
	if count <= 0 || count > len(txns) {
		count = len(txns)
	}
	return append([]Transaction(nil), txns[:count]...), nil
}

func (s *FileStore) ListCards(ctx context.Context, customerID string) ([]Card, error) {
	c, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return c.Cards, nil
}

func (s *FileStore) BlockCard(ctx context.Context, customerID, cardID, reason string) (BlockCardResult, error) {
	if err := ctx.Err(); err != nil {
		return BlockCardResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for ci := range s.customers {
		if s.customers[ci].ID != customerID {
			continue
		}
		for di := range s.customers[ci].Cards {
			card := &s.customers[ci].Cards[di]
			if card.ID != cardID {
				continue
			}
			if card.Status == CardStatusBlocked {
				return BlockCardResult{Card: *card, Reason: reason, AlreadyBlocked: true}, nil
			}
			card.Status = CardStatusBlocked
			if err := s.persist(); err != nil {
				card.Status = CardStatusActive
				return BlockCardResult{}, err
			}
			return BlockCardResult{Card: *card, Reason: reason}, nil
		}
		return BlockCardResult{}, ErrNotFound
	}
	return BlockCardResult{}, ErrNotFound
}

func (s *FileStore) UpdateAddress(ctx context.Context, customerID, newAddress string) (Customer, error) {
	if err := ctx.Err(); err != nil {
		return Customer{}, err
	}
	newAddress = strings.TrimSpace(newAddress)
	if newAddress == "" {
		return Customer{}, errors.New("address must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.customers {
		if s.customers[i].ID != customerID {
			continue
		}
		previous := s.customers[i].Address
		s.customers[i].Address = newAddress
		if err := s.persist(); err != nil {
			s.customers[i].Address = previous
			return Customer{}, err
		}
		return cloneCustomer(s.customers[i]), nil
	}
	return Customer{}, ErrNotFound
}

func (s *FileStore) RecordIssue(ctx context.Context, report IssueReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issueSeq++
	return fmt.Sprintf("TICKET-%04d", s.issueSeq), nil
}

func cloneCustomer(c Customer) Customer {
	cp := c
	cp.Cards = append([]Card(nil), c.Cards...)
	return cp
}

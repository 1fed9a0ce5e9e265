package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresConfig configures the shared-store accessor.
type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type customerRow struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID            string  `bun:"customer_id,pk"`
	PIN           string  `bun:"pin"`
	Name          string  `bun:"name"`
	Email         string  `bun:"email"`
	Phone         string  `bun:"phone"`
	Address       string  `bun:"address"`
	AccountNumber string  `bun:"account_number"`
	Balance       float64 `bun:"account_balance"`
	AccountType   string  `bun:"account_type"`
}

type cardRow struct {
	bun.BaseModel `bun:"table:cards,alias:cd"`

	ID              string  `bun:"card_id,pk"`
	CustomerID      string  `bun:"customer_id"`
	Number          string  `bun:"card_number"`
	Type            string  `bun:"card_type"`
	Status          string  `bun:"status"`
	CreditLimit     float64 `bun:"credit_limit,nullzero"`
	AvailableCredit float64 `bun:"available_credit,nullzero"`
}

type transactionRow struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID          string  `bun:"transaction_id,pk"`
	CustomerID  string  `bun:"customer_id"`
	Date        string  `bun:"date"`
	Description string  `bun:"description"`
	Amount      float64 `bun:"amount"`
	Type        string  `bun:"type"`
	Category    string  `bun:"category"`
}

type issueRow struct {
	bun.BaseModel `bun:"table:issue_reports,alias:ir"`

	ID          string    `bun:"ticket_id,pk"`
	CustomerID  string    `bun:"customer_id"`
	Kind        string    `bun:"kind"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at"`
}

// BunStore is the Postgres-backed accessor. It satisfies the same contract
// as FileStore so deployments sharing records across orchestrator instances
// can swap it in without touching the core.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(cfg PostgresConfig) (*BunStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return &BunStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

func (s *BunStore) LookupCredential(ctx context.Context, customerID string) (string, error) {
	var row customerRow
	err := s.db.NewSelect().Model(&row).
		Column("pin").
		Where("customer_id = ?", customerID).
		Scan(ctx)
	if err != nil {
		return "", mapBunErr(err)
	}
	return row.PIN, nil
}

func (s *BunStore) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	var row customerRow
	err := s.db.NewSelect().Model(&row).
		Where("customer_id = ?", customerID).
		Scan(ctx)
	if err != nil {
		return Customer{}, mapBunErr(err)
	}

	cards, err := s.ListCards(ctx, customerID)
	if err != nil {
		return Customer{}, err
	}

	c := rowToCustomer(row)
	c.Cards = cards
	return c, nil
}

func (s *BunStore) GetBalance(ctx context.Context, customerID string) (Balance, error) {
	var row customerRow
	err := s.db.NewSelect().Model(&row).
		Column("customer_id", "account_number", "account_balance", "account_type").
		Where("customer_id = ?", customerID).
		Scan(ctx)
	if err != nil {
		return Balance{}, mapBunErr(err)
	}
	return Balance{
		CustomerID:    row.ID,
		AccountNumber: row.AccountNumber,
		Balance:       row.Balance,
		AccountType:   row.AccountType,
	}, nil
}

func (s *BunStore) RecentTransactions(ctx context.Context, customerID string, count int) ([]Transaction, error) {
	if count <= 0 {
		count = 5
	}
	var rows []transactionRow
	err := s.db.NewSelect().Model(&rows).
		Where("customer_id = ?", customerID).
		Order("date DESC").
		Limit(count).
		Scan(ctx)
	if err != nil {
		return nil, mapBunErr(err)
	}

	out := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, Transaction{
			ID:          r.ID,
			Date:        r.Date,
			Description: r.Description,
			Amount:      r.Amount,
			Type:        r.Type,
			Category:    r.Category,
		})
	}
	return out, nil
}

func (s *BunStore) ListCards(ctx context.Context, customerID string) ([]Card, error) {
	var rows []cardRow
	err := s.db.NewSelect().Model(&rows).
		Where("customer_id = ?", customerID).
		Order("card_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, mapBunErr(err)
	}

	out := make([]Card, 0, len(rows))
	for _, r := range rows {
		out = append(out, Card{
			ID:              r.ID,
			Number:          r.Number,
			Type:            r.Type,
			Status:          r.Status,
			CreditLimit:     r.CreditLimit,
			AvailableCredit: r.AvailableCredit,
		})
	}
	return out, nil
}

func (s *BunStore) BlockCard(ctx context.Context, customerID, cardID, reason string) (BlockCardResult, error) {
	var result BlockCardResult
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var row cardRow
		err := tx.NewSelect().Model(&row).
			Where("card_id = ? AND customer_id = ?", cardID, customerID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return mapBunErr(err)
		}

		if row.Status == CardStatusBlocked {
			result = BlockCardResult{Card: rowToCard(row), Reason: reason, AlreadyBlocked: true}
			return nil
		}

		row.Status = CardStatusBlocked
		if _, err := tx.NewUpdate().Model(&row).
			Column("status").
			WherePK().
			Exec(ctx); err != nil {
			return mapBunErr(err)
		}
		result = BlockCardResult{Card: rowToCard(row), Reason: reason}
		return nil
	})
	if err != nil {
		return BlockCardResult{}, err
	}
	return result, nil
}

func (s *BunStore) UpdateAddress(ctx context.Context, customerID, newAddress string) (Customer, error) {
	newAddress = strings.TrimSpace(newAddress)
	if newAddress == "" {
		return Customer{}, errors.New("address must not be empty")
	}

	res, err := s.db.NewUpdate().Model((*customerRow)(nil)).
		Set("address = ?", newAddress).
		Where("customer_id = ?", customerID).
		Exec(ctx)
	if err != nil {
		return Customer{}, mapBunErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Customer{}, ErrNotFound
	}
	return s.GetCustomer(ctx, customerID)
}

func (s *BunStore) RecordIssue(ctx context.Context, report IssueReport) (string, error) {
	row := issueRow{
		ID:          "TICKET-" + uuid.NewString(),
		CustomerID:  report.CustomerID,
		Kind:        report.Kind,
		Description: report.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return "", mapBunErr(err)
	}
	return row.ID, nil
}

func rowToCustomer(row customerRow) Customer {
	return Customer{
		ID:            row.ID,
		PIN:           row.PIN,
		Name:          row.Name,
		Email:         row.Email,
		Phone:         row.Phone,
		Address:       row.Address,
		AccountNumber: row.AccountNumber,
		Balance:       row.Balance,
		AccountType:   row.AccountType,
	}
}

func rowToCard(row cardRow) Card {
	return Card{
		ID:              row.ID,
		Number:          row.Number,
		Type:            row.Type,
		Status:          row.Status,
		CreditLimit:     row.CreditLimit,
		AvailableCredit: row.AvailableCredit,
	}
}

func mapBunErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

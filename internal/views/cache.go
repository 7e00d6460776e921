// Package views serves the read-side transaction list and dashboard summary
// from a per-user cache that the import committer invalidates.
package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// TransactionSource loads a user's persisted transactions.
type TransactionSource interface {
	ListTransactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error)
}

// Summary is the dashboard roll-up of a user's transactions.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
	Count   int             `json:"count"`
}

type entry struct {
	transactions []domain.TransactionRecord
	summary      Summary
}

// Cache memoizes per-user views until Invalidate is called for that user.
type Cache struct {
	source TransactionSource

	mu          sync.Mutex
	entries     map[string]*entry
	generations map[string]uint64
}

// NewCache creates a cache in front of source.
func NewCache(source TransactionSource) *Cache {
	return &Cache{
		source:      source,
		entries:     make(map[string]*entry),
		generations: make(map[string]uint64),
	}
}

// Transactions returns the user's transactions, newest first.
func (c *Cache) Transactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
	e, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append([]domain.TransactionRecord(nil), e.transactions...), nil
}

// Summary returns income, expense and net totals for the user.
func (c *Cache) Summary(ctx context.Context, userID string) (Summary, error) {
	e, err := c.load(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return e.summary, nil
}

// Invalidate drops the cached views of one user.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userID)
	c.generations[userID]++
}

func (c *Cache) load(ctx context.Context, userID string) (*entry, error) {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok {
		c.mu.Unlock()
		return e, nil
	}
	gen := c.generations[userID]
	c.mu.Unlock()

	records, err := c.source.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("views: loading transactions: %w", err)
	}
	e := &entry{transactions: records, summary: Summarize(records)}

	c.mu.Lock()
	// An invalidation during the load means records may be stale.
	if c.generations[userID] == gen {
		c.entries[userID] = e
	}
	c.mu.Unlock()

	return e, nil
}

// Summarize totals credits as income and debits as expense.
func Summarize(records []domain.TransactionRecord) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, r := range records {
		switch r.Type {
		case domain.TypeCredit:
			s.Income = s.Income.Add(r.Amount)
		case domain.TypeDebit:
			s.Expense = s.Expense.Add(r.Amount)
		}
	}
	s.Net = s.Income.Sub(s.Expense)
	s.Count = len(records)
	return s
}

package views

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	ListTransactionsFunc func(ctx context.Context, userID string) ([]domain.TransactionRecord, error)
	calls                int
}

func (m *mockSource) ListTransactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
	m.calls++
	return m.ListTransactionsFunc(ctx, userID)
}

func record(amount string, t domain.TransactionType) domain.TransactionRecord {
	return domain.TransactionRecord{Amount: decimal.RequireFromString(amount), Type: t}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]domain.TransactionRecord{
		record("5000.00", domain.TypeCredit),
		record("150.50", domain.TypeDebit),
		record("49.50", domain.TypeDebit),
	})

	assert.True(t, decimal.RequireFromString("5000").Equal(s.Income))
	assert.True(t, decimal.RequireFromString("200").Equal(s.Expense))
	assert.True(t, decimal.RequireFromString("4800").Equal(s.Net))
	assert.Equal(t, 3, s.Count)

	empty := Summarize(nil)
	assert.True(t, empty.Net.IsZero())
	assert.Equal(t, 0, empty.Count)
}

func TestCache_MemoizesUntilInvalidated(t *testing.T) {
	data := []domain.TransactionRecord{record("10", domain.TypeCredit)}
	src := &mockSource{ListTransactionsFunc: func(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
		return data, nil
	}}
	c := NewCache(src)
	ctx := context.Background()

	_, err := c.Transactions(ctx, "user-1")
	require.NoError(t, err)
	_, err = c.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	data = append(data, record("4", domain.TypeDebit))
	c.Invalidate("user-1")

	s, err := c.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 2, s.Count)
	assert.True(t, decimal.RequireFromString("6").Equal(s.Net))
}

func TestCache_PerUser(t *testing.T) {
	src := &mockSource{ListTransactionsFunc: func(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
		return []domain.TransactionRecord{{UserID: userID}}, nil
	}}
	c := NewCache(src)
	ctx := context.Background()

	a, _ := c.Transactions(ctx, "a")
	b, _ := c.Transactions(ctx, "b")
	assert.Equal(t, "a", a[0].UserID)
	assert.Equal(t, "b", b[0].UserID)

	c.Invalidate("a")
	_, _ = c.Transactions(ctx, "b")
	assert.Equal(t, 2, src.calls, "invalidating one user keeps the other cached")
}

func TestCache_InvalidateDuringLoadIsNotCached(t *testing.T) {
	var c *Cache
	src := &mockSource{}
	src.ListTransactionsFunc = func(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
		if src.calls == 1 {
			c.Invalidate(userID)
		}
		return nil, nil
	}
	c = NewCache(src)
	ctx := context.Background()

	_, _ = c.Transactions(ctx, "user-1")
	_, _ = c.Transactions(ctx, "user-1")
	assert.Equal(t, 2, src.calls)
}

func TestCache_SourceError(t *testing.T) {
	src := &mockSource{ListTransactionsFunc: func(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
		return nil, errors.New("boom")
	}}
	c := NewCache(src)

	_, err := c.Summary(context.Background(), "user-1")
	assert.Error(t, err)
}

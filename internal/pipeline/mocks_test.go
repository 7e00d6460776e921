package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

var fixedNow = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// mockWriter is a mock TransactionWriter.
type mockWriter struct {
	InsertTransactionsFunc func(ctx context.Context, userID string, rows []domain.NewTransaction, key string) ([]string, error)

	mu    sync.Mutex
	calls int
	users []string
	keys  []string
}

func (m *mockWriter) InsertTransactions(ctx context.Context, userID string, rows []domain.NewTransaction, key string) ([]string, error) {
	m.mu.Lock()
	m.calls++
	m.users = append(m.users, userID)
	m.keys = append(m.keys, key)
	m.mu.Unlock()

	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, userID, rows, key)
	}
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = fmt.Sprintf("%s-tx-%d", userID, i+1)
	}
	return ids, nil
}

// mockViews records invalidations.
type mockViews struct {
	mu          sync.Mutex
	invalidated []string
}

func (m *mockViews) Invalidate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, userID)
}

// mockCategories is a mock CategoryLister.
type mockCategories struct {
	ListCategoriesFunc func(ctx context.Context, userID string) ([]domain.Category, error)
}

func (m *mockCategories) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, userID)
	}
	return nil, nil
}

// mockArchiver is a mock StatementArchiver.
type mockArchiver struct {
	ArchiveStatementFunc func(ctx context.Context, userID, importID, filename string, content []byte) error
	calls                int
}

func (m *mockArchiver) ArchiveStatement(ctx context.Context, userID, importID, filename string, content []byte) error {
	m.calls++
	if m.ArchiveStatementFunc != nil {
		return m.ArchiveStatementFunc(ctx, userID, importID, filename, content)
	}
	return nil
}

func newTestNormalizer(opts NormalizerOptions) *Normalizer {
	n := NewNormalizer(NewValidator(WithClock(fixedClock)), fixedClock, opts)
	seq := 0
	n.newID = func() string {
		seq++
		return fmt.Sprintf("tmp-%d", seq)
	}
	return n
}

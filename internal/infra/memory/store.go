package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of the import, view and archive storage
// interfaces. It is safe for concurrent use. Data is lost on restart.
type Store struct {
	mu           sync.RWMutex
	transactions map[string][]domain.TransactionRecord // by user
	categories   []categoryEntry
	commits      map[string][]string // user + "\x00" + key
	statements   map[string][]domain.Statement
	now          func() time.Time
}

type categoryEntry struct {
	userID   string // empty for shared categories
	category domain.Category
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		transactions: make(map[string][]domain.TransactionRecord),
		commits:      make(map[string][]string),
		statements:   make(map[string][]domain.Statement),
		now:          time.Now,
	}
}

// AddCategory registers a category. An empty userID makes it visible to everyone.
func (s *Store) AddCategory(userID string, c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, categoryEntry{userID: userID, category: c})
}

// InsertTransactions appends the whole batch under one lock so readers never
// see part of it. A repeated idempotency key returns the earlier IDs.
func (s *Store) InsertTransactions(ctx context.Context, userID string, rows []domain.NewTransaction, idempotencyKey string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("InsertTransactions: user ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	commitKey := userID + "\x00" + idempotencyKey
	if idempotencyKey != "" {
		if ids, ok := s.commits[commitKey]; ok {
			return append([]string(nil), ids...), nil
		}
	}

	now := s.now()
	ids := make([]string, len(rows))
	records := make([]domain.TransactionRecord, len(rows))
	for i, row := range rows {
		ids[i] = uuid.NewString()
		records[i] = domain.TransactionRecord{
			ID:          ids[i],
			UserID:      userID,
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
			Type:        row.Type,
			CreatedAt:   now,
		}
		if row.CategoryID != nil {
			id := *row.CategoryID
			records[i].CategoryID = &id
		}
	}
	s.transactions[userID] = append(s.transactions[userID], records...)

	if idempotencyKey != "" {
		s.commits[commitKey] = append([]string(nil), ids...)
	}
	return ids, nil
}

// ListTransactions returns a user's transactions, newest date first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
	s.mu.RLock()
	out := append([]domain.TransactionRecord(nil), s.transactions[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListCategories returns shared categories and the user's own, ordered by name.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Category{}
	for _, e := range s.categories {
		if e.userID == "" || e.userID == userID {
			out = append(out, e.category)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RecordStatement stores the archive record of an uploaded statement.
func (s *Store) RecordStatement(ctx context.Context, st domain.Statement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.statements[st.UserID] {
		if existing.ImportID == st.ImportID {
			return nil
		}
	}
	s.statements[st.UserID] = append(s.statements[st.UserID], st)
	return nil
}

// ListStatements returns a user's archived statements, newest first.
func (s *Store) ListStatements(ctx context.Context, userID string) ([]domain.Statement, error) {
	s.mu.RLock()
	out := append([]domain.Statement(nil), s.statements[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

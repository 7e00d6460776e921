package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// TransactionWriter persists committed import rows for one user.
// All rows are submitted as a single batch. idempotencyKey may be empty; stores
// that honor it return the IDs created by an earlier call with the same key.
type TransactionWriter interface {
	InsertTransactions(ctx context.Context, userID string, rows []domain.NewTransaction, idempotencyKey string) ([]string, error)
}

// CategoryLister provides the categories offered during correction.
type CategoryLister interface {
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
}

// ViewInvalidator drops cached read views after the transaction table changes.
type ViewInvalidator interface {
	Invalidate(userID string)
}

// StatementArchiver keeps a copy of an uploaded statement file. Archiving is
// best effort and never blocks a preview.
type StatementArchiver interface {
	ArchiveStatement(ctx context.Context, userID, importID, filename string, content []byte) error
}

// Clock returns the current time. Tests pin it to a fixed instant.
type Clock func() time.Time

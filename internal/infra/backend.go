// Package infra selects the storage backend configured for the service.
package infra

import (
	"context"
	"fmt"
	"io"

	"github.com/dvloznov/budget-tracker/internal/config"
	"github.com/dvloznov/budget-tracker/internal/domain"
	infraBQ "github.com/dvloznov/budget-tracker/internal/infra/bigquery"
	"github.com/dvloznov/budget-tracker/internal/infra/memory"
	"github.com/dvloznov/budget-tracker/internal/infra/postgres"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

// Backend is the storage every component of the service reads and writes.
type Backend interface {
	InsertTransactions(ctx context.Context, userID string, rows []domain.NewTransaction, idempotencyKey string) ([]string, error)
	ListTransactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error)
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	RecordStatement(ctx context.Context, s domain.Statement) error
	ListStatements(ctx context.Context, userID string) ([]domain.Statement, error)
	io.Closer
}

type memoryBackend struct {
	*memory.Store
}

func (memoryBackend) Close() error { return nil }

// Open connects to the backend named by cfg.StoreBackend. The memory backend
// is seeded with the default categories.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendBigQuery:
		repo, err := infraBQ.NewRepository(ctx, cfg.BQProjectID, cfg.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("Open: bigquery: %w", err)
		}
		return repo, nil
	case config.BackendPostgres:
		repo, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("Open: postgres: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("Open: postgres: %w", err)
		}
		if err := repo.SeedCategories(ctx, DefaultCategories); err != nil {
			repo.Close()
			return nil, fmt.Errorf("Open: postgres: %w", err)
		}
		return repo, nil
	case config.BackendMemory, "":
		log := logger.FromContext(ctx)
		log.Warn().Msg("Using in-memory storage - data is lost on restart")
		store := memory.NewStore()
		for _, c := range DefaultCategories {
			store.AddCategory("", c)
		}
		return memoryBackend{store}, nil
	}
	return nil, fmt.Errorf("Open: unknown backend %q", cfg.StoreBackend)
}

// DefaultCategories are the shared categories seeded into the memory and
// Postgres backends. The BigQuery seed migration carries the same set.
var DefaultCategories = []domain.Category{
	{ID: "groceries", Name: "Groceries"},
	{ID: "dining", Name: "Dining"},
	{ID: "transport", Name: "Transport"},
	{ID: "utilities", Name: "Utilities"},
	{ID: "housing", Name: "Housing"},
	{ID: "entertainment", Name: "Entertainment"},
	{ID: "health", Name: "Health"},
	{ID: "shopping", Name: "Shopping"},
	{ID: "salary", Name: "Salary"},
	{ID: "other", Name: "Other"},
}

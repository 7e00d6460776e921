package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/budget-tracker/internal/domain"
)

// Repository is the BigQuery implementation of the import, view and archive
// storage interfaces. It holds a shared BigQuery client to avoid creating a new
// connection for each operation.
type Repository struct {
	client    *bigquery.Client
	datasetID string
}

// NewRepository creates a Repository for projectID and datasetID.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{
		client:    client,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertTransactions delegates to InsertTransactionsWithClient with the shared client.
// Streaming inserts are not transactional; a failed Put may leave part of the
// batch written, and a retry with the same key is deduplicated by insert ID.
func (r *Repository) InsertTransactions(ctx context.Context, userID string, rows []domain.NewTransaction, idempotencyKey string) ([]string, error) {
	return InsertTransactionsWithClient(ctx, r.client, r.datasetID, userID, rows, idempotencyKey)
}

// ListTransactions returns a user's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
	rows, err := QueryTransactionsForUserWithClient(ctx, r.client, r.datasetID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TransactionRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toRecord()
	}
	return out, nil
}

// ListCategories returns the active categories visible to a user.
func (r *Repository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := ListActiveCategoriesWithClient(ctx, r.client, r.datasetID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, len(rows))
	for i, row := range rows {
		out[i] = row.toCategory()
	}
	return out, nil
}

// RecordStatement stores the archive record of an uploaded statement.
func (r *Repository) RecordStatement(ctx context.Context, s domain.Statement) error {
	return InsertStatementWithClient(ctx, r.client, r.datasetID, newStatementRow(s))
}

// ListStatements returns a user's archived statements, newest first.
func (r *Repository) ListStatements(ctx context.Context, userID string) ([]domain.Statement, error) {
	rows, err := ListStatementsForUserWithClient(ctx, r.client, r.datasetID, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Statement, len(rows))
	for i, row := range rows {
		out[i] = row.toStatement()
	}
	return out, nil
}

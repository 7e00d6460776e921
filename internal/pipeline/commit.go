package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

// CommitResult is the outcome of an import commit.
type CommitResult struct {
	Success        bool     `json:"success"`
	CreatedCount   int      `json:"created_count"`
	TransactionIDs []string `json:"transaction_ids,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func failed(err error) (CommitResult, error) {
	return CommitResult{Success: false, Error: err.Error()}, err
}

// Committer persists the user's selected rows as real transactions.
type Committer struct {
	writer    TransactionWriter
	views     ViewInvalidator
	validator *Validator
}

// NewCommitter creates a committer. views may be nil.
func NewCommitter(writer TransactionWriter, views ViewInvalidator, v *Validator) *Committer {
	if v == nil {
		v = NewValidator()
	}
	return &Committer{writer: writer, views: views, validator: v}
}

// Commit writes rows for the user in identity as one batch. The request is
// rejected as a whole when the identity is missing, the batch is empty or
// oversized, or any row fails validation; nothing is written in those cases.
// Callers pass only selected rows.
func (c *Committer) Commit(ctx context.Context, identity domain.Identity, rows []domain.ParsedTransaction, idempotencyKey string) (CommitResult, error) {
	log := logger.FromContext(ctx)

	if identity.IsZero() {
		return failed(ErrUnauthenticated)
	}
	if len(rows) == 0 {
		return failed(ErrNothingSelected)
	}
	if len(rows) > MaxCommitRows {
		return failed(fmt.Errorf("%w: %d rows, limit is %d", ErrTooManyRows, len(rows), MaxCommitRows))
	}
	if err := c.checkRows(rows); err != nil {
		return failed(err)
	}

	batch := make([]domain.NewTransaction, len(rows))
	for i, row := range rows {
		batch[i] = domain.NewTransaction{
			Date:        row.Date,
			Description: strings.TrimSpace(row.Description),
			Amount:      row.Amount,
			Type:        row.Type,
			CategoryID:  row.CategoryID,
		}
	}

	ids, err := c.writer.InsertTransactions(ctx, identity.UserID, batch, idempotencyKey)
	if err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID).Int("rows", len(batch)).Msg("Failed to commit import")
		return failed(fmt.Errorf("Commit: inserting transactions: %w", err))
	}

	if c.views != nil {
		c.views.Invalidate(identity.UserID)
	}

	log.Info().Str("user_id", identity.UserID).Int("created", len(ids)).Msg("Committed import")

	return CommitResult{Success: true, CreatedCount: len(ids), TransactionIDs: ids}, nil
}

// checkRows re-runs validation on every row and reports all failing row numbers.
func (c *Committer) checkRows(rows []domain.ParsedTransaction) error {
	var bad []string
	for _, row := range rows {
		if !row.IsValid || len(c.validator.Validate(row.Draft())) > 0 {
			bad = append(bad, fmt.Sprintf("%d", row.RowNumber))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return fmt.Errorf("%w: rows %s", ErrInvalidRows, strings.Join(bad, ", "))
}

// IsRejected reports whether err is a request problem rather than a storage failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrNothingSelected) ||
		errors.Is(err, ErrTooManyRows) ||
		errors.Is(err, ErrInvalidRows)
}

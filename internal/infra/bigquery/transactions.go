package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC, always positive
	Type   string   `bigquery:"type"`   // REQUIRED, credit | debit

	Description string              `bigquery:"description"` // REQUIRED
	CategoryID  bigquery.NullString `bigquery:"category_id"` // NULLABLE

	ImportKey bigquery.NullString `bigquery:"import_key"` // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func newTransactionRow(id, userID, importKey string, tx domain.NewTransaction, now time.Time) (*TransactionRow, error) {
	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return nil, fmt.Errorf("parsing date %q: %w", tx.Date, err)
	}

	row := &TransactionRow{
		TransactionID:   id,
		UserID:          userID,
		TransactionDate: date,
		Amount:          tx.Amount.Rat(),
		Type:            string(tx.Type),
		Description:     tx.Description,
		CreatedTS:       now,
	}
	if tx.CategoryID != nil {
		row.CategoryID = bigquery.NullString{StringVal: *tx.CategoryID, Valid: true}
	}
	if importKey != "" {
		row.ImportKey = bigquery.NullString{StringVal: importKey, Valid: true}
	}
	return row, nil
}

func (r *TransactionRow) toRecord() domain.TransactionRecord {
	rec := domain.TransactionRecord{
		ID:          r.TransactionID,
		UserID:      r.UserID,
		Date:        r.TransactionDate.String(),
		Description: r.Description,
		Amount:      decimal.Zero,
		Type:        domain.TransactionType(r.Type),
		CreatedAt:   r.CreatedTS,
	}
	if r.Amount != nil {
		rec.Amount = decimal.NewFromBigRat(r.Amount, 2)
	}
	if r.CategoryID.Valid {
		id := r.CategoryID.StringVal
		rec.CategoryID = &id
	}
	return rec
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement for a transaction.
type TransactionType string

const (
	// TypeCredit is money coming into the account.
	TypeCredit TransactionType = "credit"
	// TypeDebit is money leaving the account.
	TypeDebit TransactionType = "debit"
)

// ParseTransactionType accepts exactly "credit" or "debit".
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TypeCredit, TypeDebit:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("invalid transaction type %q", s)
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeCredit || t == TypeDebit
}

// Field names used in validation errors.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldType        = "type"
)

// ValidationError describes why a row fails a single field rule.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParsedTransaction is a candidate transaction produced by the import pipeline.
// It lives only inside an import session and is never persisted in this shape.
type ParsedTransaction struct {
	TempID              string            `json:"temp_id"`
	Date                string            `json:"date"` // YYYY-MM-DD
	Description         string            `json:"description"`
	Amount              decimal.Decimal   `json:"amount"`
	Type                TransactionType   `json:"type"`
	CategoryID          *string           `json:"category_id"`
	OriginalParticulars string            `json:"original_particulars"`
	IsSelected          bool              `json:"is_selected"`
	RowNumber           int               `json:"row_number"`
	ValidationErrors    []ValidationError `json:"validation_errors"`
	IsValid             bool              `json:"is_valid"`
}

// SetValidationErrors replaces the row's errors and recomputes IsValid.
// It is the only place IsValid is assigned.
func (p *ParsedTransaction) SetValidationErrors(errs []ValidationError) {
	if errs == nil {
		errs = []ValidationError{}
	}
	p.ValidationErrors = errs
	p.IsValid = len(errs) == 0
}

// Draft returns the editable fields of the row.
func (p *ParsedTransaction) Draft() RowDraft {
	d := RowDraft{
		Date:        p.Date,
		Description: p.Description,
		Amount:      p.Amount,
		Type:        p.Type,
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		d.CategoryID = &id
	}
	return d
}

// Apply overwrites the editable fields of the row with d. Selection and
// validation state are left untouched.
func (p *ParsedTransaction) Apply(d RowDraft) {
	p.Date = d.Date
	p.Description = d.Description
	p.Amount = d.Amount
	p.Type = d.Type
	p.CategoryID = nil
	if d.CategoryID != nil && strings.TrimSpace(*d.CategoryID) != "" {
		id := *d.CategoryID
		p.CategoryID = &id
	}
}

// SignedAmount returns the amount with credits positive and debits negative.
func (p *ParsedTransaction) SignedAmount() decimal.Decimal {
	if p.Type == TypeCredit {
		return p.Amount
	}
	return p.Amount.Neg()
}

// RowDraft is the editable subset of a ParsedTransaction.
type RowDraft struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	CategoryID  *string         `json:"category_id"`
}

// NewTransaction is the tuple handed to the persistence layer on commit.
type NewTransaction struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Type        TransactionType
	CategoryID  *string
}

// TransactionRecord is a persisted transaction as read back for list views.
type TransactionRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	CategoryID  *string         `json:"category_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Category is a label attachable to a transaction.
type Category struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Icon *string `json:"icon,omitempty"`
}

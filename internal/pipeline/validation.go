package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

// Validator applies the field rules for a candidate transaction.
// It holds no state between calls; the same draft always yields the same errors
// for the same clock reading.
type Validator struct {
	now              Clock
	descriptionLimit int
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithClock overrides the time source used for the future-date rule.
func WithClock(c Clock) ValidatorOption {
	return func(v *Validator) {
		if c != nil {
			v.now = c
		}
	}
}

// WithDescriptionLimit overrides the maximum description length.
func WithDescriptionLimit(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.descriptionLimit = n
		}
	}
}

// NewValidator creates a validator for imported rows.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		now:              time.Now,
		descriptionLimit: ImportDescriptionLimit,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns every rule violation for d, one entry per failing field, in
// the order date, description, amount, type. An empty slice means valid.
func (v *Validator) Validate(d domain.RowDraft) []domain.ValidationError {
	errs := make([]domain.ValidationError, 0, 4)

	if msg := v.checkDate(d.Date); msg != "" {
		errs = append(errs, domain.ValidationError{Field: domain.FieldDate, Message: msg})
	}
	if msg := v.checkDescription(d.Description); msg != "" {
		errs = append(errs, domain.ValidationError{Field: domain.FieldDescription, Message: msg})
	}
	if msg := checkAmount(d); msg != "" {
		errs = append(errs, domain.ValidationError{Field: domain.FieldAmount, Message: msg})
	}
	if !d.Type.Valid() {
		errs = append(errs, domain.ValidationError{Field: domain.FieldType, Message: "Type must be credit or debit"})
	}

	return errs
}

func (v *Validator) checkDate(s string) string {
	date, err := time.Parse(isoDate, strings.TrimSpace(s))
	if err != nil {
		return "Invalid date"
	}

	y, m, day := v.now().Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	if date.After(today) {
		return "Date cannot be in the future"
	}
	return ""
}

func (v *Validator) checkDescription(s string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	switch {
	case n == 0:
		return "Description is required"
	case n > v.descriptionLimit:
		return fmt.Sprintf("Description must be %d characters or less", v.descriptionLimit)
	}
	return ""
}

func checkAmount(d domain.RowDraft) string {
	switch {
	case !d.Amount.IsPositive():
		return "Amount must be greater than zero"
	case d.Amount.GreaterThanOrEqual(maxAmount):
		return "Amount is too large"
	case !d.Amount.Equal(d.Amount.Round(2)):
		return "Amount can have at most 2 decimal places"
	}
	return ""
}

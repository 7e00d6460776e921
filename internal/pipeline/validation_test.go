package pipeline

import (
	"strings"
	"testing"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validDraft() domain.RowDraft {
	return domain.RowDraft{
		Date:        "2025-10-01",
		Description: "Salary Payment",
		Amount:      decimal.RequireFromString("5000.00"),
		Type:        domain.TypeCredit,
	}
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(WithClock(fixedClock))

	tests := []struct {
		name   string
		mutate func(d *domain.RowDraft)
		want   []domain.ValidationError
	}{
		{
			name:   "valid row",
			mutate: func(d *domain.RowDraft) {},
			want:   []domain.ValidationError{},
		},
		{
			name:   "today is allowed",
			mutate: func(d *domain.RowDraft) { d.Date = "2025-10-15" },
			want:   []domain.ValidationError{},
		},
		{
			name:   "tomorrow is in the future",
			mutate: func(d *domain.RowDraft) { d.Date = "2025-10-16" },
			want:   []domain.ValidationError{{Field: domain.FieldDate, Message: "Date cannot be in the future"}},
		},
		{
			name:   "impossible calendar date",
			mutate: func(d *domain.RowDraft) { d.Date = "2025-02-30" },
			want:   []domain.ValidationError{{Field: domain.FieldDate, Message: "Invalid date"}},
		},
		{
			name:   "non-iso date",
			mutate: func(d *domain.RowDraft) { d.Date = "01/10/2025" },
			want:   []domain.ValidationError{{Field: domain.FieldDate, Message: "Invalid date"}},
		},
		{
			name:   "blank description",
			mutate: func(d *domain.RowDraft) { d.Description = "   " },
			want:   []domain.ValidationError{{Field: domain.FieldDescription, Message: "Description is required"}},
		},
		{
			name:   "description at limit",
			mutate: func(d *domain.RowDraft) { d.Description = strings.Repeat("a", 200) },
			want:   []domain.ValidationError{},
		},
		{
			name:   "description over limit",
			mutate: func(d *domain.RowDraft) { d.Description = strings.Repeat("a", 201) },
			want:   []domain.ValidationError{{Field: domain.FieldDescription, Message: "Description must be 200 characters or less"}},
		},
		{
			name:   "zero amount",
			mutate: func(d *domain.RowDraft) { d.Amount = decimal.Zero },
			want:   []domain.ValidationError{{Field: domain.FieldAmount, Message: "Amount must be greater than zero"}},
		},
		{
			name:   "largest amount",
			mutate: func(d *domain.RowDraft) { d.Amount = decimal.RequireFromString("999999999999.99") },
			want:   []domain.ValidationError{},
		},
		{
			name:   "amount too large",
			mutate: func(d *domain.RowDraft) { d.Amount = decimal.RequireFromString("1000000000000") },
			want:   []domain.ValidationError{{Field: domain.FieldAmount, Message: "Amount is too large"}},
		},
		{
			name:   "three decimal places",
			mutate: func(d *domain.RowDraft) { d.Amount = decimal.RequireFromString("10.005") },
			want:   []domain.ValidationError{{Field: domain.FieldAmount, Message: "Amount can have at most 2 decimal places"}},
		},
		{
			name:   "trailing zeros are fine",
			mutate: func(d *domain.RowDraft) { d.Amount = decimal.RequireFromString("10.500") },
			want:   []domain.ValidationError{},
		},
		{
			name:   "unknown type",
			mutate: func(d *domain.RowDraft) { d.Type = "transfer" },
			want:   []domain.ValidationError{{Field: domain.FieldType, Message: "Type must be credit or debit"}},
		},
		{
			name: "every field wrong keeps field order",
			mutate: func(d *domain.RowDraft) {
				d.Date = "garbage"
				d.Description = ""
				d.Amount = decimal.RequireFromString("-1")
				d.Type = ""
			},
			want: []domain.ValidationError{
				{Field: domain.FieldDate, Message: "Invalid date"},
				{Field: domain.FieldDescription, Message: "Description is required"},
				{Field: domain.FieldAmount, Message: "Amount must be greater than zero"},
				{Field: domain.FieldType, Message: "Type must be credit or debit"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			assert.Equal(t, tt.want, v.Validate(d))
		})
	}
}

func TestValidator_Idempotent(t *testing.T) {
	v := NewValidator(WithClock(fixedClock))
	d := validDraft()
	d.Date = "2030-01-01"
	d.Amount = decimal.Zero

	first := v.Validate(d)
	second := v.Validate(d)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestValidator_ManualDescriptionLimit(t *testing.T) {
	v := NewValidator(WithClock(fixedClock), WithDescriptionLimit(ManualDescriptionLimit))
	d := validDraft()

	d.Description = strings.Repeat("a", 500)
	assert.Empty(t, v.Validate(d))

	d.Description = strings.Repeat("a", 501)
	errs := v.Validate(d)
	if assert.Len(t, errs, 1) {
		assert.Equal(t, "Description must be 500 characters or less", errs[0].Message)
	}
}

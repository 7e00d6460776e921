package bigquery

import (
	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/budget-tracker/internal/domain"
)

type CategoryRow struct {
	CategoryID string              `bigquery:"category_id"` // REQUIRED
	UserID     bigquery.NullString `bigquery:"user_id"`     // NULLABLE, NULL for shared categories

	Slug string              `bigquery:"slug"` // REQUIRED
	Name string              `bigquery:"name"` // REQUIRED
	Icon bigquery.NullString `bigquery:"icon"` // NULLABLE

	IsActive bigquery.NullBool `bigquery:"is_active"` // NULLABLE

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // NULLABLE (defaults to CURRENT_TIMESTAMP())
}

func (r CategoryRow) toCategory() domain.Category {
	c := domain.Category{ID: r.CategoryID, Name: r.Name}
	if r.Icon.Valid {
		icon := r.Icon.StringVal
		c.Icon = &icon
	}
	return c
}

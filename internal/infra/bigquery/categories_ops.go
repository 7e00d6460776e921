package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ListActiveCategoriesWithClient returns the active categories visible to a
// user, shared ones included, ordered by name.
func ListActiveCategoriesWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string) ([]CategoryRow, error) {
	query := fmt.Sprintf(`
		SELECT
		  category_id,
		  user_id,
		  slug,
		  name,
		  icon,
		  is_active,
		  created_ts
		FROM `+"`%s.%s.categories`"+`
		WHERE is_active = TRUE
		  AND (user_id IS NULL OR user_id = @user_id)
		ORDER BY name
	`, client.Project(), datasetID)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActiveCategories: query read: %w", err)
	}

	var rows []CategoryRow
	for {
		var r CategoryRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActiveCategories: iter next: %w", err)
		}
		rows = append(rows, r)
	}

	return rows, nil
}

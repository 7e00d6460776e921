package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

const statementsTable = "statements"

// InsertStatementWithClient inserts a single StatementRow into <dataset>.statements.
func InsertStatementWithClient(ctx context.Context, client *bigquery.Client, datasetID string, row *StatementRow) error {
	inserter := client.Dataset(datasetID).Table(statementsTable).Inserter()
	saver := &bigquery.StructSaver{Struct: row, InsertID: row.ImportID}
	if err := inserter.Put(ctx, saver); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}

// ListStatementsForUserWithClient returns a user's archived statements, newest first.
func ListStatementsForUserWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string) ([]*StatementRow, error) {
	query := fmt.Sprintf(`
		SELECT
			import_id,
			user_id,
			gcs_uri,
			original_filename,
			checksum_sha256,
			size_bytes,
			upload_ts
		FROM `+"`%s.%s.statements`"+`
		WHERE user_id = @user_id
		ORDER BY upload_ts DESC
	`, client.Project(), datasetID)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListStatementsForUser: reading query: %w", err)
	}

	var statements []*StatementRow
	for {
		var row StatementRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListStatementsForUser: iterating: %w", err)
		}
		statements = append(statements, &row)
	}

	return statements, nil
}

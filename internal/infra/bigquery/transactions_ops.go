package bigquery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const transactionsTable = "transactions"

// transactionID returns a random ID, or a stable one when the batch carries an
// import key so a retried insert of the same batch reproduces the same IDs.
// The batch digest keeps a reused key on different rows from colliding.
func transactionID(userID, importKey, digest string, index int) string {
	if importKey == "" {
		return uuid.NewString()
	}
	name := fmt.Sprintf("%s:%s:%s:%d", userID, importKey, digest, index)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// batchDigest hashes the persisted fields of every row in order.
func batchDigest(txs []domain.NewTransaction) string {
	h := sha256.New()
	for _, tx := range txs {
		category := ""
		if tx.CategoryID != nil {
			category = *tx.CategoryID
		}
		fmt.Fprintf(h, "%s\x1f%s\x1f%s\x1f%s\x1f%s\x1e", tx.Date, tx.Description, tx.Amount.StringFixed(2), tx.Type, category)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// InsertTransactionsWithClient streams a batch of transactions for one user
// into <dataset>.transactions. Each row carries an insert ID derived from the
// import key so BigQuery drops duplicates of a retried batch.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string, txs []domain.NewTransaction, importKey string) ([]string, error) {
	if len(txs) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	digest := ""
	if importKey != "" {
		digest = batchDigest(txs)
	}
	ids := make([]string, len(txs))
	savers := make([]*bigquery.StructSaver, len(txs))
	for i, tx := range txs {
		ids[i] = transactionID(userID, importKey, digest, i)
		row, err := newTransactionRow(ids[i], userID, importKey, tx, now)
		if err != nil {
			return nil, fmt.Errorf("InsertTransactions: row %d: %w", i+1, err)
		}
		savers[i] = &bigquery.StructSaver{Struct: row, InsertID: ids[i]}
	}

	inserter := client.Dataset(datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return nil, fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return ids, nil
}

// QueryTransactionsForUserWithClient returns a user's transactions, newest first.
func QueryTransactionsForUserWithClient(ctx context.Context, client *bigquery.Client, datasetID, userID string) ([]*TransactionRow, error) {
	query := fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			transaction_date,
			amount,
			type,
			description,
			category_id,
			import_key,
			created_ts
		FROM `+"`%s.%s.transactions`"+`
		WHERE user_id = @user_id
		ORDER BY transaction_date DESC, created_ts DESC
	`, client.Project(), datasetID)

	q := client.Query(query)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsForUser: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsForUser: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

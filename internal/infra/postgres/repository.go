package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// Repository is the PostgreSQL implementation of the import, view and archive
// storage interfaces.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository connects to dsn and verifies the connection.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("NewRepository: ping: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close releases all pooled connections.
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// EnsureSchema creates the tables the repository needs when they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("EnsureSchema: %w", err)
		}
	}
	return nil
}

// SeedCategories adds shared categories that are not present yet. Existing
// rows, including ones a user renamed or deactivated, are left alone.
func (r *Repository) SeedCategories(ctx context.Context, categories []domain.Category) error {
	batch := &pgx.Batch{}
	for _, c := range categories {
		batch.Queue(`
			INSERT INTO categories (id, user_id, name, icon)
			VALUES ($1, NULL, $2, $3)
			ON CONFLICT (id) DO NOTHING`, c.ID, c.Name, c.Icon)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("SeedCategories: %w", err)
	}
	return nil
}

// InsertTransactions writes the batch inside one database transaction so either
// every row lands or none does. When idempotencyKey was already used by this
// user, the IDs from that earlier commit are returned and nothing is written.
func (r *Repository) InsertTransactions(ctx context.Context, userID string, rows []domain.NewTransaction, idempotencyKey string) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("InsertTransactions: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if idempotencyKey != "" {
		var existing []string
		err := tx.QueryRow(ctx,
			`SELECT transaction_ids FROM import_commits WHERE user_id = $1 AND idempotency_key = $2`,
			userID, idempotencyKey,
		).Scan(&existing)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("InsertTransactions: checking idempotency key: %w", err)
		}
	}

	ids := make([]string, len(rows))
	batch := &pgx.Batch{}
	for i, row := range rows {
		ids[i] = uuid.NewString()
		batch.Queue(`
			INSERT INTO transactions (id, user_id, date, description, amount, type, category_id)
			VALUES ($1, $2, $3::text::date, $4, $5::text::numeric, $6, $7)`,
			ids[i], userID, row.Date, row.Description, row.Amount.StringFixed(2), string(row.Type), row.CategoryID,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, fmt.Errorf("InsertTransactions: row %d: %w", i+1, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("InsertTransactions: closing batch: %w", err)
	}

	if idempotencyKey != "" {
		if _, err := tx.Exec(ctx,
			`INSERT INTO import_commits (user_id, idempotency_key, transaction_ids) VALUES ($1, $2, $3)`,
			userID, idempotencyKey, ids,
		); err != nil {
			return nil, fmt.Errorf("InsertTransactions: recording idempotency key: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("InsertTransactions: commit: %w", err)
	}
	return ids, nil
}

// ListTransactions returns a user's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, date::text, description, amount::text, type, category_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TransactionRecord
	for rows.Next() {
		var (
			rec    domain.TransactionRecord
			amount string
			txType string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Date, &rec.Description, &amount, &txType, &rec.CategoryID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: amount %q: %w", amount, err)
		}
		rec.Type = domain.TransactionType(txType)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: rows: %w", err)
	}
	return out, nil
}

// ListCategories returns the active categories visible to a user.
func (r *Repository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, icon
		FROM categories
		WHERE is_active AND (user_id IS NULL OR user_id = $1)
		ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon); err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: rows: %w", err)
	}
	return out, nil
}

// RecordStatement stores the archive record of an uploaded statement.
// Recording the same import twice keeps the first record.
func (r *Repository) RecordStatement(ctx context.Context, s domain.Statement) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO statements (import_id, user_id, gcs_uri, filename, checksum_sha256, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (import_id) DO NOTHING`,
		s.ImportID, s.UserID, s.GCSURI, s.Filename, s.ChecksumSHA256, s.SizeBytes, s.UploadedAt)
	if err != nil {
		return fmt.Errorf("RecordStatement: %w", err)
	}
	return nil
}

// ListStatements returns a user's archived statements, newest first.
func (r *Repository) ListStatements(ctx context.Context, userID string) ([]domain.Statement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT import_id, user_id, gcs_uri, filename, checksum_sha256, size_bytes, uploaded_at
		FROM statements
		WHERE user_id = $1
		ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListStatements: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Statement
	for rows.Next() {
		var s domain.Statement
		if err := rows.Scan(&s.ImportID, &s.UserID, &s.GCSURI, &s.Filename, &s.ChecksumSHA256, &s.SizeBytes, &s.UploadedAt); err != nil {
			return nil, fmt.Errorf("ListStatements: scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStatements: rows: %w", err)
	}
	return out, nil
}

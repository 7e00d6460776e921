package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRepository connects to TEST_DATABASE_URL or skips the test.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	repo, err := NewRepository(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func sampleRows() []domain.NewTransaction {
	return []domain.NewTransaction{
		{Date: "2025-10-01", Description: "Salary Payment", Amount: decimal.RequireFromString("5000.00"), Type: domain.TypeCredit},
		{Date: "2025-10-02", Description: "Grocery Shopping", Amount: decimal.RequireFromString("150.50"), Type: domain.TypeDebit},
	}
}

func TestRepository_InsertAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	userID := "test-" + uuid.NewString()

	ids, err := repo.InsertTransactions(ctx, userID, sampleRows(), "")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	records, err := repo.ListTransactions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2025-10-02", records[0].Date)
	assert.True(t, decimal.RequireFromString("150.50").Equal(records[0].Amount))
	assert.Equal(t, domain.TypeDebit, records[0].Type)
	assert.Nil(t, records[0].CategoryID)
}

func TestRepository_IdempotencyKey(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	userID := "test-" + uuid.NewString()

	first, err := repo.InsertTransactions(ctx, userID, sampleRows(), "key-1")
	require.NoError(t, err)
	second, err := repo.InsertTransactions(ctx, userID, sampleRows(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	records, err := repo.ListTransactions(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRepository_FailedBatchWritesNothing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	userID := "test-" + uuid.NewString()

	rows := sampleRows()
	rows[1].Type = "sideways"

	_, err := repo.InsertTransactions(ctx, userID, rows, "")
	require.Error(t, err)

	records, err := repo.ListTransactions(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRepository_Statements(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	userID := "test-" + uuid.NewString()

	s := domain.Statement{
		ImportID:       uuid.NewString(),
		UserID:         userID,
		Filename:       "october.csv",
		GCSURI:         "gs://bucket/statements/october.csv",
		ChecksumSHA256: "abc",
		SizeBytes:      42,
		UploadedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.RecordStatement(ctx, s))
	require.NoError(t, repo.RecordStatement(ctx, s))

	got, err := repo.ListStatements(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, s.GCSURI, got[0].GCSURI)
	assert.True(t, s.UploadedAt.Equal(got[0].UploadedAt))
}

func TestRepository_SeedCategories(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	id := "seed-" + uuid.NewString()

	seed := []domain.Category{{ID: id, Name: "Seeded"}}
	require.NoError(t, repo.SeedCategories(ctx, seed))
	seed[0].Name = "Renamed"
	require.NoError(t, repo.SeedCategories(ctx, seed), "seeding twice is a no-op")

	categories, err := repo.ListCategories(ctx, "any-user")
	require.NoError(t, err)
	var found *domain.Category
	for i := range categories {
		if categories[i].ID == id {
			found = &categories[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Seeded", found.Name)

	category := id
	rows := sampleRows()
	rows[0].CategoryID = &category
	_, err = repo.InsertTransactions(ctx, "user-"+uuid.NewString(), rows, "")
	assert.NoError(t, err, "seeded category satisfies the foreign key")
}

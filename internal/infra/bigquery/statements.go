package bigquery

import (
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
)

type StatementRow struct {
	ImportID string `bigquery:"import_id"` // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED
	GCSURI   string `bigquery:"gcs_uri"`   // REQUIRED

	OriginalFilename string `bigquery:"original_filename"` // NULLABLE
	ChecksumSHA256   string `bigquery:"checksum_sha256"`   // NULLABLE
	SizeBytes        int64  `bigquery:"size_bytes"`        // NULLABLE

	UploadTS time.Time `bigquery:"upload_ts"` // REQUIRED
}

func newStatementRow(s domain.Statement) *StatementRow {
	return &StatementRow{
		ImportID:         s.ImportID,
		UserID:           s.UserID,
		GCSURI:           s.GCSURI,
		OriginalFilename: s.Filename,
		ChecksumSHA256:   s.ChecksumSHA256,
		SizeBytes:        s.SizeBytes,
		UploadTS:         s.UploadedAt,
	}
}

func (r *StatementRow) toStatement() domain.Statement {
	return domain.Statement{
		ImportID:       r.ImportID,
		UserID:         r.UserID,
		Filename:       r.OriginalFilename,
		GCSURI:         r.GCSURI,
		ChecksumSHA256: r.ChecksumSHA256,
		SizeBytes:      r.SizeBytes,
		UploadedAt:     r.UploadTS,
	}
}

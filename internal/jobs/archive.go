package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/gcsuploader"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

// ObjectUploader stores bytes in a bucket.
type ObjectUploader interface {
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error
}

// StatementRecorder keeps the archive record of an uploaded statement.
type StatementRecorder interface {
	RecordStatement(ctx context.Context, s domain.Statement) error
}

// Archiver schedules statement archive jobs on a Publisher.
type Archiver struct {
	publisher Publisher
}

// NewArchiver creates an Archiver that publishes to p.
func NewArchiver(p Publisher) *Archiver {
	return &Archiver{publisher: p}
}

// ArchiveStatement enqueues an archive job for one uploaded file.
func (a *Archiver) ArchiveStatement(ctx context.Context, userID, importID, filename string, content []byte) error {
	job := &ArchiveStatementJob{
		ImportID: importID,
		UserID:   userID,
		Filename: filename,
		Content:  content,
	}
	if err := a.publisher.PublishArchiveStatement(ctx, job); err != nil {
		return fmt.Errorf("ArchiveStatement: publishing job: %w", err)
	}
	return nil
}

// NewArchiveHandler returns a JobHandler that uploads statement files to
// bucketName and records them with recorder.
func NewArchiveHandler(uploader ObjectUploader, recorder StatementRecorder, bucketName string, now func() time.Time) JobHandler {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, j Job) error {
		job, ok := j.(*ArchiveStatementJob)
		if !ok {
			return fmt.Errorf("archive handler: unexpected job type %s", j.GetType())
		}
		log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("import_id", job.ImportID).Logger()

		uploadedAt := now()
		objectName := gcsuploader.StatementObjectName(job.UserID, job.ImportID, job.Filename, uploadedAt)
		contentType := http.DetectContentType(job.Content)

		if err := uploader.UploadBytes(ctx, bucketName, objectName, job.Content, contentType); err != nil {
			return fmt.Errorf("archive handler: upload: %w", err)
		}

		sum := sha256.Sum256(job.Content)
		statement := domain.Statement{
			ImportID:       job.ImportID,
			UserID:         job.UserID,
			Filename:       job.Filename,
			GCSURI:         gcsuploader.GCSURI(bucketName, objectName),
			ChecksumSHA256: hex.EncodeToString(sum[:]),
			SizeBytes:      int64(len(job.Content)),
			UploadedAt:     uploadedAt,
		}
		if recorder != nil {
			if err := recorder.RecordStatement(ctx, statement); err != nil {
				return fmt.Errorf("archive handler: record statement: %w", err)
			}
		}

		job.GCSURI = statement.GCSURI
		log.Info().Str("gcs_uri", statement.GCSURI).Int64("size_bytes", statement.SizeBytes).Msg("Archived statement")
		return nil
	}
}

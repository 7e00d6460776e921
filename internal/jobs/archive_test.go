package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	UploadBytesFunc func(ctx context.Context, bucket, object string, data []byte, contentType string) error
	objects         []string
}

func (m *mockUploader) UploadBytes(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	m.objects = append(m.objects, bucket+"/"+object)
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, bucket, object, data, contentType)
	}
	return nil
}

type mockRecorder struct {
	statements []domain.Statement
}

func (m *mockRecorder) RecordStatement(ctx context.Context, s domain.Statement) error {
	m.statements = append(m.statements, s)
	return nil
}

type mockPublisher struct {
	published []*ArchiveStatementJob
	err       error
}

func (m *mockPublisher) PublishArchiveStatement(ctx context.Context, job *ArchiveStatementJob) error {
	m.published = append(m.published, job)
	return m.err
}

func (m *mockPublisher) Close() error { return nil }

func TestArchiver_PublishesJob(t *testing.T) {
	pub := &mockPublisher{}
	a := NewArchiver(pub)

	require.NoError(t, a.ArchiveStatement(context.Background(), "user-1", "imp-1", "oct.csv", []byte("x")))
	require.Len(t, pub.published, 1)
	assert.Equal(t, "imp-1", pub.published[0].ImportID)
	assert.Equal(t, "user-1", pub.published[0].UserID)

	pub.err = errors.New("queue is closed")
	assert.Error(t, a.ArchiveStatement(context.Background(), "user-1", "imp-2", "oct.csv", nil))
}

func TestArchiveHandler(t *testing.T) {
	uploader := &mockUploader{}
	recorder := &mockRecorder{}
	at := time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC)
	handler := NewArchiveHandler(uploader, recorder, "archive", func() time.Time { return at })

	job := &ArchiveStatementJob{JobID: "j1", ImportID: "imp-1", UserID: "user-1", Filename: "oct.csv", Content: []byte("Date,Amount\n")}
	require.NoError(t, handler(context.Background(), job))

	assert.Equal(t, []string{"archive/statements/user-1/2025/10/15/imp-1-oct.csv"}, uploader.objects)
	require.Len(t, recorder.statements, 1)
	s := recorder.statements[0]
	assert.Equal(t, "gs://archive/statements/user-1/2025/10/15/imp-1-oct.csv", s.GCSURI)
	assert.Equal(t, int64(12), s.SizeBytes)
	assert.Len(t, s.ChecksumSHA256, 64)
	assert.Equal(t, s.GCSURI, job.GCSURI)
}

func TestArchiveHandler_UploadFailure(t *testing.T) {
	uploader := &mockUploader{UploadBytesFunc: func(ctx context.Context, bucket, object string, data []byte, contentType string) error {
		return errors.New("permission denied")
	}}
	recorder := &mockRecorder{}
	handler := NewArchiveHandler(uploader, recorder, "archive", nil)

	err := handler(context.Background(), &ArchiveStatementJob{ImportID: "imp-1", Filename: "a.csv"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "permission denied"))
	assert.Empty(t, recorder.statements)
}

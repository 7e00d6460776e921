package gcsuploader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bucket/path/to/file.csv", "bucket", "path/to/file.csv", false},
		{"gs://bucket/file.csv", "bucket", "file.csv", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"s3://bucket/file.csv", "", "", true},
		{"/local/file.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestExtractFilenameFromGCSURI(t *testing.T) {
	assert.Equal(t, "file.csv", ExtractFilenameFromGCSURI("gs://bucket/folder/file.csv"))
	assert.Equal(t, "bucket", ExtractFilenameFromGCSURI("gs://bucket"))
}

func TestStatementObjectName(t *testing.T) {
	at := time.Date(2025, 10, 15, 23, 30, 0, 0, time.UTC)

	got := StatementObjectName("user-1", "imp-9", "../October Statement.csv", at)
	assert.Equal(t, "statements/user-1/2025/10/15/imp-9-October_Statement.csv", got)

	got = StatementObjectName("a/b", "imp", "x.csv", at)
	assert.Equal(t, "statements/a_b/2025/10/15/imp-x.csv", got)
}

func TestGCSURI(t *testing.T) {
	assert.Equal(t, "gs://b/o/x.csv", GCSURI("b", "o/x.csv"))
}

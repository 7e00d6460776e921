package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// UploadBytes writes data to gs://bucketName/objectName.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func UploadBytes(ctx context.Context, client *storage.Client, bucketName, objectName string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadBytes: writing object %s/%s: %w", bucketName, objectName, err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadBytes: finalize upload: %w", err)
	}

	return nil
}

// FetchFromGCS downloads the file bytes from the given GCS URI.
func FetchFromGCS(ctx context.Context, client *storage.Client, gcsURI string) ([]byte, error) {
	bucketName, objectPath, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("FetchFromGCS: reading bytes: %w", err)
	}

	return data, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.csv" → "file.csv"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}

var unsafeObjectChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// StatementObjectName is the archive path of an uploaded statement:
// statements/<user>/<yyyy>/<mm>/<dd>/<import>-<filename>.
func StatementObjectName(userID, importID, filename string, at time.Time) string {
	name := unsafeObjectChars.ReplaceAllString(path.Base(filename), "_")
	user := unsafeObjectChars.ReplaceAllString(userID, "_")
	return fmt.Sprintf("statements/%s/%s/%s-%s", user, at.UTC().Format("2006/01/02"), importID, name)
}

// GCSURI formats a bucket and object as gs://bucket/object.
func GCSURI(bucketName, objectName string) string {
	return "gs://" + bucketName + "/" + objectName
}

package gcsuploader

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStorageService wraps a shared storage client for the statement archive.
type GCSStorageService struct {
	client *storage.Client
}

// NewGCSStorageService creates a storage client using Application Default Credentials.
func NewGCSStorageService(ctx context.Context) (*GCSStorageService, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSStorageService: create storage client: %w", err)
	}
	return &GCSStorageService{client: client}, nil
}

// Close closes the storage client.
func (s *GCSStorageService) Close() error {
	return s.client.Close()
}

// UploadBytes delegates to UploadBytes with the shared client.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	return UploadBytes(ctx, s.client, bucketName, objectName, data, contentType)
}

// FetchFromGCS delegates to FetchFromGCS with the shared client.
func (s *GCSStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return FetchFromGCS(ctx, s.client, gcsURI)
}

package domain

import "time"

// Statement records an uploaded statement file kept in the archive bucket.
type Statement struct {
	ImportID       string    `json:"import_id"`
	UserID         string    `json:"user_id"`
	Filename       string    `json:"filename"`
	GCSURI         string    `json:"gcs_uri"`
	ChecksumSHA256 string    `json:"checksum_sha256"`
	SizeBytes      int64     `json:"size_bytes"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

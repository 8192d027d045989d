package model

import "time"

// FileRecord is the metadata kept for one stored blob.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
//
// StorageKey is the generated name the blob is addressed by; OriginalName is
// informational only and never used as a storage path. Records are
// create/read/delete only; no field is mutated after ingestion.
type FileRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	StorageKey   string    `json:"storage_key"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

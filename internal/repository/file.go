package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g. postgres) inside this directory.

import (
	"context"

	"fileapi/internal/model"
)

// FileRepository defines metadata persistence for stored files using SQL queries only.
// No business logic here, strictly persistence operations.
type FileRepository interface {
	// Insert creates a new file record.
	// The caller should provide required fields (e.g., ID, UploadedAt) according to the database schema defaults.
	// Returns the stored record (may include values set by the DB).
	Insert(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error)

	// FindByID returns a file record by its ID.
	FindByID(ctx context.Context, id string) (*model.FileRecord, error)

	// List returns all file records ordered by upload time, most recent first.
	List(ctx context.Context) ([]model.FileRecord, error)

	// Delete removes a file record by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

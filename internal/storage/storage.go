package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains blob storage abstractions and utilities for object stores (S3-compatible).
// Implementations must avoid using local disk and rely on streaming I/O only.

var (
	// ErrKeyExists is returned by Put when a blob already exists under the
	// requested key. Keys are generated to be collision-free, so this
	// surfaces a retryable condition instead of silently overwriting.
	ErrKeyExists = errors.New("storage key already exists")

	// ErrObjectNotFound is returned by Get when no blob exists under the key.
	// The caller interprets it as drift when a metadata record still points here.
	ErrObjectNotFound = errors.New("object not found")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is a reusable, S3-compatible blob store client interface.
// Methods use context and streaming readers/writers; no local disk is used.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	// It fails with ErrKeyExists rather than overwriting an existing blob.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	// Returns ErrObjectNotFound when no blob exists under the key.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Exists reports whether a blob is present under the key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes an object by key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

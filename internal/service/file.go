package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileapi/internal/config"
	"fileapi/internal/model"
	"fileapi/internal/repository"
	"fileapi/internal/storage"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("file not found")
	ErrEmptyBatch      = errors.New("no files uploaded")
	ErrTooManyFiles    = errors.New("too many files in batch")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrTooLarge        = errors.New("file exceeds size limit")
)

// uploadFieldName is the multipart field files arrive under; it also tags
// every generated storage key.
const uploadFieldName = "files"

// allowedContentTypes is the fixed validation allow-list. Types are taken
// from the client-declared value and are not sniffed from content; this is
// a documented trust boundary, not a security control.
var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// FileInput is one candidate file inside an upload batch.
type FileInput struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// RejectedFile reports why a candidate file was not stored.
type RejectedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchResult aggregates per-file outcomes of one upload batch.
// Stored preserves the order the files arrived in.
type BatchResult struct {
	Stored   []model.FileRecord `json:"files"`
	Rejected []RejectedFile     `json:"rejected,omitempty"`
}

// FileService defines the use cases for handling stored files.
type FileService interface {
	// UploadBatch validates and stores 1..N candidate files independently.
	// Per-file failures do not abort sibling files; a batch is an overall
	// success as long as the input itself was well formed.
	UploadBatch(ctx context.Context, files []FileInput) (*BatchResult, error)

	// List returns all file records, most recently uploaded first.
	List(ctx context.Context) ([]model.FileRecord, error)

	// Download resolves a record id to its blob content and metadata.
	// A record whose blob is missing (drift after an interrupted delete)
	// reports ErrNotFound, same as a never-uploaded id.
	Download(ctx context.Context, id string) (io.ReadCloser, *model.FileRecord, error)

	// Delete removes the blob first, then the metadata record, so an
	// interruption can only leave detectable record-without-blob state.
	Delete(ctx context.Context, id string) error
}

// fileService is a concrete implementation of FileService.
type fileService struct {
	store  storage.Storage
	repo   repository.FileRepository
	limits config.UploadConfig
}

// NewFileService constructs a new FileService.
func NewFileService(store storage.Storage, repo repository.FileRepository, limits config.UploadConfig) FileService {
	if limits.MaxFileSizeBytes <= 0 {
		limits.MaxFileSizeBytes = 10 << 20
	}
	if limits.MaxBatchFiles <= 0 {
		limits.MaxBatchFiles = 10
	}
	return &fileService{store: store, repo: repo, limits: limits}
}

// validate runs the gate on declared content type and declared size before
// any storage write happens.
func (s *fileService) validate(in FileInput) error {
	if _, ok := allowedContentTypes[in.ContentType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, in.ContentType)
	}
	if in.Size > s.limits.MaxFileSizeBytes {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, in.Size)
	}
	return nil
}

// generateStorageKey derives a collision-free blob name: field tag,
// nanosecond timestamp, random disambiguator, original extension. Nothing
// from the user-supplied name except the extension reaches the key.
func generateStorageKey(originalName string) string {
	ext := filepath.Ext(originalName)
	return fmt.Sprintf("%s/%s-%d-%d%s", uploadFieldName, uploadFieldName, time.Now().UnixNano(), rand.Int64N(1_000_000_000), ext)
}

func (s *fileService) UploadBatch(ctx context.Context, files []FileInput) (*BatchResult, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(files) > s.limits.MaxBatchFiles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(files), s.limits.MaxBatchFiles)
	}

	// Per-file work is independent; one slot per input keeps arrival order.
	outcomes := make([]storeOutcome, len(files))
	var wg sync.WaitGroup
	for i, in := range files {
		wg.Add(1)
		go func(i int, in FileInput) {
			defer wg.Done()
			outcomes[i] = s.storeOne(ctx, in)
		}(i, in)
	}
	wg.Wait()

	res := &BatchResult{Stored: make([]model.FileRecord, 0, len(files))}
	var firstInfraErr error
	for _, o := range outcomes {
		if o.stored != nil {
			res.Stored = append(res.Stored, *o.stored)
		}
		if o.rejected != nil {
			res.Rejected = append(res.Rejected, *o.rejected)
		}
		if o.infraErr != nil && firstInfraErr == nil {
			firstInfraErr = o.infraErr
		}
	}

	// A batch with at least one stored file is an overall success; the
	// failed entries surface through Rejected. Only when storage failed
	// for every file does the whole call report a server-side failure.
	if len(res.Stored) == 0 && firstInfraErr != nil {
		return nil, fmt.Errorf("store batch: %w", firstInfraErr)
	}
	return res, nil
}

// storeOutcome is the result of processing one candidate file.
type storeOutcome struct {
	stored   *model.FileRecord
	rejected *RejectedFile
	infraErr error
}

// storeOne runs validate, key generation, blob write and metadata insert for
// a single candidate file. The metadata insert happens only after the blob
// write succeeded; a failed insert rolls the blob back so no orphan blob survives.
func (s *fileService) storeOne(ctx context.Context, in FileInput) (o storeOutcome) {
	if err := s.validate(in); err != nil {
		reason := "unsupported content type"
		if errors.Is(err, ErrTooLarge) {
			reason = "file too large"
		}
		o.rejected = &RejectedFile{Filename: in.Filename, Reason: reason}
		return o
	}

	key := generateStorageKey(in.Filename)
	objInfo, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: in.ContentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		o.rejected = &RejectedFile{Filename: in.Filename, Reason: "storage failure"}
		o.infraErr = fmt.Errorf("upload to storage: %w", err)
		return o
	}

	rec := &model.FileRecord{
		ID:           uuid.New().String(),
		OriginalName: in.Filename,
		StorageKey:   objInfo.Key,
		SizeBytes:    objInfo.Size,
		ContentType:  in.ContentType,
		UploadedAt:   time.Now().UTC(),
	}
	stored, err := s.repo.Insert(ctx, rec)
	if err != nil {
		// Rollback: delete the blob so no unreferenced bytes remain.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			err = fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		} else {
			err = fmt.Errorf("db save failed: %w", err)
		}
		o.rejected = &RejectedFile{Filename: in.Filename, Reason: "storage failure"}
		o.infraErr = err
		return o
	}
	o.stored = stored
	return o
}

// List returns all records ordered by upload time descending.
func (s *fileService) List(ctx context.Context) ([]model.FileRecord, error) {
	return s.repo.List(ctx)
}

// Download returns the blob content stream and the record for an id.
func (s *fileService) Download(ctx context.Context, id string) (io.ReadCloser, *model.FileRecord, error) {
	if id == "" {
		return nil, nil, ErrIDRequired
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// Drift: metadata without backing bytes reads as not found,
			// never as silently empty content.
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return rc, rec, nil
}

// Delete removes the blob, then the record. Blob deletion goes first so an
// interruption leaves record-without-blob, which the next Download reports
// as ErrNotFound, rather than an unreferenced blob nothing can reclaim.
func (s *fileService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	exists, err := s.store.Exists(ctx, rec.StorageKey)
	if err != nil {
		return fmt.Errorf("check blob: %w", err)
	}
	if exists {
		if err := s.store.Delete(ctx, rec.StorageKey); err != nil {
			return fmt.Errorf("delete storage: %w", err)
		}
	}
	// An already absent blob is tolerated; deletion stays idempotent on the blob side.
	return s.repo.Delete(ctx, id)
}

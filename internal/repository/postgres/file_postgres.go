package postgres

import (
	"context"
	"database/sql"

	"fileapi/internal/model"
	"fileapi/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

// Insert creates a new file row and returns the stored record.
func (r *FilePostgres) Insert(ctx context.Context, rec *model.FileRecord) (*model.FileRecord, error) {
	const q = `
		INSERT INTO files (id, original_name, storage_key, size_bytes, content_type, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, original_name, storage_key, size_bytes, content_type, uploaded_at
	`
	row := r.db.QueryRowContext(ctx, q,
		rec.ID,
		rec.OriginalName,
		rec.StorageKey,
		rec.SizeBytes,
		rec.ContentType,
		rec.UploadedAt,
	)
	var out model.FileRecord
	if err := row.Scan(
		&out.ID,
		&out.OriginalName,
		&out.StorageKey,
		&out.SizeBytes,
		&out.ContentType,
		&out.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single file record by its ID.
func (r *FilePostgres) FindByID(ctx context.Context, id string) (*model.FileRecord, error) {
	const q = `
		SELECT id, original_name, storage_key, size_bytes, content_type, uploaded_at
		FROM files
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var rec model.FileRecord
	if err := row.Scan(
		&rec.ID,
		&rec.OriginalName,
		&rec.StorageKey,
		&rec.SizeBytes,
		&rec.ContentType,
		&rec.UploadedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all file records, most recently uploaded first.
// The id tiebreak keeps the order stable when timestamps collide.
func (r *FilePostgres) List(ctx context.Context) ([]model.FileRecord, error) {
	const q = `
		SELECT id, original_name, storage_key, size_bytes, content_type, uploaded_at
		FROM files
		ORDER BY uploaded_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.FileRecord, 0)
	for rows.Next() {
		var rec model.FileRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.OriginalName,
			&rec.StorageKey,
			&rec.SizeBytes,
			&rec.ContentType,
			&rec.UploadedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Delete removes a file record by ID. It does not return an error if the row does not exist.
func (r *FilePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM files WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	// Ignore rows affected; absence of the row is not an error at this layer.
	_, _ = res.RowsAffected()
	return nil
}

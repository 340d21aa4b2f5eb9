package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neuroserve/neuroserve/internal/domain"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const defaultListLimit = 50

// UploadRepository records stored uploads.
type UploadRepository struct {
	db DB
}

// NewUploadRepository creates a new upload repository.
func NewUploadRepository(db DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create records an upload, assigning an ID and timestamp when missing.
func (r *UploadRepository) Create(ctx context.Context, u *domain.Upload) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO uploads (id, filename, stored_as, rel_path, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Filename, u.StoredAs, u.RelPath, u.SizeBytes, u.CreatedAt,
	)
	if err != nil {
		return domain.StorageError("failed to record upload", err)
	}
	return nil
}

// GetByStoredAs retrieves an upload by its stored file name.
func (r *UploadRepository) GetByStoredAs(ctx context.Context, storedAs string) (*domain.Upload, error) {
	query := `
		SELECT id, filename, stored_as, rel_path, size_bytes, created_at
		FROM uploads WHERE stored_as = $1
	`
	u := &domain.Upload{}
	err := r.db.QueryRowContext(ctx, query, storedAs).Scan(
		&u.ID, &u.Filename, &u.StoredAs, &u.RelPath, &u.SizeBytes, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError(fmt.Sprintf("upload not found: %s", storedAs), ErrNotFound)
	}
	if err != nil {
		return nil, domain.StorageError("failed to load upload", err)
	}
	return u, nil
}

// List returns the most recent uploads, newest first.
func (r *UploadRepository) List(ctx context.Context, limit int) ([]domain.Upload, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, filename, stored_as, rel_path, size_bytes, created_at
		FROM uploads ORDER BY created_at DESC, stored_as ASC LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.StorageError("failed to list uploads", err)
	}
	defer rows.Close()

	uploads := []domain.Upload{}
	for rows.Next() {
		var u domain.Upload
		if err := rows.Scan(&u.ID, &u.Filename, &u.StoredAs, &u.RelPath, &u.SizeBytes, &u.CreatedAt); err != nil {
			return nil, domain.StorageError("failed to scan upload", err)
		}
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("failed to list uploads", err)
	}
	return uploads, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"chartly/internal/domain"
)

// UploadStore persists uploaded files: bytes on disk under the upload
// directory, one tracking row per file in SQLite.
type UploadStore struct {
	db *DB
}

func NewUploadStore(db *DB) *UploadStore {
	return &UploadStore{db: db}
}

// Save writes the file bytes to disk and records the upload.
func (s *UploadStore) Save(ctx context.Context, userID, filename string, r io.Reader) (*domain.Upload, error) {
	up := &domain.Upload{
		ID:        uuid.New().String(),
		UserID:    userID,
		Filename:  filename,
		CreatedAt: time.Now(),
	}
	up.Path = filepath.Join(up.ID[:2], up.ID+filepath.Ext(filename))

	dest := filepath.Join(s.db.uploadDir, up.Path)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("create upload subdir: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	up.SizeBytes = n

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO uploads (id, user_id, filename, path, size_bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		up.ID, up.UserID, up.Filename, up.Path, up.SizeBytes, up.CreatedAt,
	)
	if err != nil {
		os.Remove(dest)
		return nil, fmt.Errorf("record upload: %w", err)
	}
	return up, nil
}

func (s *UploadStore) Get(ctx context.Context, id string) (*domain.Upload, error) {
	up := &domain.Upload{}
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, filename, path, size_bytes, created_at FROM uploads WHERE id = ?`, id,
	).Scan(&up.ID, &up.UserID, &up.Filename, &up.Path, &up.SizeBytes, &up.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return up, nil
}

// ReadUpload returns the original filename and the stored bytes.
// Satisfies sources.FileProvider.
func (s *UploadStore) ReadUpload(ctx context.Context, id string) (string, []byte, error) {
	up, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.db.uploadDir, up.Path))
	if err != nil {
		return "", nil, fmt.Errorf("read upload bytes: %w", err)
	}
	return up.Filename, data, nil
}

func (s *UploadStore) ListByUser(ctx context.Context, userID string) ([]domain.Upload, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, user_id, filename, path, size_bytes, created_at
		 FROM uploads WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ups []domain.Upload
	for rows.Next() {
		var up domain.Upload
		if err := rows.Scan(&up.ID, &up.UserID, &up.Filename, &up.Path, &up.SizeBytes, &up.CreatedAt); err != nil {
			return nil, err
		}
		ups = append(ups, up)
	}
	return ups, rows.Err()
}

// Delete removes the tracking row and the file on disk.
func (s *UploadStore) Delete(ctx context.Context, id string) error {
	up, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.conn.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.db.uploadDir, up.Path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

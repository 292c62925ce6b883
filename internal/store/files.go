package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"depot/internal/models"
)

const fileColumns = "id, name, media_type, size_bytes, blob_id, created_at"
const blobColumns = "id, digest, size_bytes, storage_backend, blob_key, created_at"

// timeLayout is RFC 3339 UTC with fixed-width nanoseconds so the TEXT column
// sorts in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CreateFileWithBlob upserts blob metadata and inserts the file row in one
// transaction. Blobs are deduplicated by digest: when a blob with the same
// digest already exists, the new file row references the existing blob and the
// canonical blob row is returned.
func (s *Store) CreateFileWithBlob(ctx context.Context, blob *models.Blob, file *models.File) (_ *models.Blob, err error) {
	if blob == nil {
		return nil, fmt.Errorf("blob is required")
	}
	if file == nil {
		return nil, fmt.Errorf("file is required")
	}

	blob.Digest = strings.ToLower(strings.TrimSpace(blob.Digest))
	blob.BlobKey = strings.TrimSpace(blob.BlobKey)
	if blob.Digest == "" {
		return nil, fmt.Errorf("digest is required")
	}
	if blob.BlobKey == "" {
		return nil, fmt.Errorf("blob_key is required")
	}
	if blob.SizeBytes < 0 {
		return nil, fmt.Errorf("size_bytes must be >= 0")
	}
	if strings.TrimSpace(blob.StorageBackend) == "" {
		blob.StorageBackend = "local_cas"
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}

	if strings.TrimSpace(file.Name) == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if strings.TrimSpace(file.MediaType) == "" {
		return nil, fmt.Errorf("media_type is required")
	}
	if file.SizeBytes < 0 {
		return nil, fmt.Errorf("size_bytes must be >= 0")
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if strings.TrimSpace(blob.ID) == "" {
		generated, genErr := GenerateBlobID(func(id string) (bool, error) {
			return blobIDExistsTx(ctx, tx, id)
		})
		if genErr != nil {
			err = genErr
			return nil, err
		}
		blob.ID = generated
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO blobs (id, digest, size_bytes, storage_backend, blob_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, blob.ID, blob.Digest, blob.SizeBytes, blob.StorageBackend, blob.BlobKey, formatTime(blob.CreatedAt)); err != nil {
		return nil, err
	}

	canonical, err := scanBlob(tx.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE digest = ?`, blob.Digest))
	if err != nil {
		return nil, err
	}
	if canonical == nil {
		return nil, fmt.Errorf("blob not found after upsert")
	}

	if strings.TrimSpace(file.ID) == "" {
		generated, genErr := GenerateFileID(func(id string) (bool, error) {
			return fileIDExistsTx(ctx, tx, id)
		})
		if genErr != nil {
			err = genErr
			return nil, err
		}
		file.ID = generated
	}

	file.BlobID = canonical.ID
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO files (id, name, media_type, size_bytes, blob_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, file.ID, file.Name, file.MediaType, file.SizeBytes, file.BlobID, formatTime(file.CreatedAt)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return canonical, nil
}

// GetFile returns one file by id, or nil when absent.
func (s *Store) GetFile(ctx context.Context, id string) (*models.File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id)
	return scanFile(row)
}

// ListRecentFiles lists files newest first. Ties on created_at break on id
// descending so the order is stable. A non-positive limit lists everything.
func (s *Store) ListRecentFiles(ctx context.Context, limit int) ([]models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		if file == nil {
			continue
		}
		files = append(files, *file)
	}
	return files, rows.Err()
}

// GetBlob returns one blob by id, or nil when absent.
func (s *Store) GetBlob(ctx context.Context, id string) (*models.Blob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id)
	return scanBlob(row)
}

// GetBlobByDigest returns one blob by content digest, or nil when absent.
func (s *Store) GetBlobByDigest(ctx context.Context, digest string) (*models.Blob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE digest = ?`, strings.ToLower(strings.TrimSpace(digest)))
	return scanBlob(row)
}

func fileIDExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM files WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func blobIDExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM blobs WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanFile(scanner interface {
	Scan(dest ...any) error
}) (*models.File, error) {
	file := models.File{}
	var createdAt string

	err := scanner.Scan(&file.ID, &file.Name, &file.MediaType, &file.SizeBytes, &file.BlobID, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	file.CreatedAt = parsedCreated

	return &file, nil
}

func scanBlob(scanner interface {
	Scan(dest ...any) error
}) (*models.Blob, error) {
	blob := models.Blob{}
	var createdAt string

	err := scanner.Scan(&blob.ID, &blob.Digest, &blob.SizeBytes, &blob.StorageBackend, &blob.BlobKey, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	blob.CreatedAt = parsedCreated

	return &blob, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

package store

import (
	"context"

	"depot/internal/models"
)

// FileStore is the metadata persistence surface for files and blobs.
//
// File rows are immutable once written; the interface has no update or
// delete operations.
type FileStore interface {
	CreateFileWithBlob(ctx context.Context, blob *models.Blob, file *models.File) (*models.Blob, error)
	GetFile(ctx context.Context, id string) (*models.File, error)
	ListRecentFiles(ctx context.Context, limit int) ([]models.File, error)

	GetBlob(ctx context.Context, id string) (*models.Blob, error)
	GetBlobByDigest(ctx context.Context, digest string) (*models.Blob, error)

	StoreInfo(ctx context.Context) (*Info, error)
}

var _ FileStore = (*Store)(nil)

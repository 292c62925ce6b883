package server

import (
	"context"
	"fmt"
	"io"
	"strings"

	"depot/internal/blobstore"
	"depot/internal/models"
	"depot/internal/store"
)

const (
	defaultListLimit         = 50
	maxListLimit             = 200
	fallbackContentMediaType = "application/octet-stream"
)

// FileContent describes a stored payload ready to serve.
type FileContent struct {
	Reader    io.ReadCloser
	SizeBytes int64
	MediaType string
	Filename  string
}

// RetrievalService reads file metadata and opens stored content.
type RetrievalService struct {
	fileStore store.FileStore
	blobStore blobstore.BlobStore
}

// NewRetrievalService constructs a RetrievalService.
func NewRetrievalService(fileStore store.FileStore, blobStore blobstore.BlobStore) *RetrievalService {
	return &RetrievalService{fileStore: fileStore, blobStore: blobStore}
}

// DescribeFile returns one file row plus its backing blob.
func (s *RetrievalService) DescribeFile(ctx context.Context, id string) (models.File, models.Blob, error) {
	var zeroFile models.File
	var zeroBlob models.Blob
	if s == nil || s.fileStore == nil {
		return zeroFile, zeroBlob, internalError(fmt.Errorf("retrieval service is not configured"))
	}

	id = strings.TrimSpace(id)
	if !validateFileID(id) {
		return zeroFile, zeroBlob, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}

	file, err := s.fileStore.GetFile(ctx, id)
	if err != nil {
		return zeroFile, zeroBlob, err
	}
	if file == nil {
		return zeroFile, zeroBlob, notFoundCode(fmt.Errorf("file not found"), ErrCodeFileNotFound)
	}

	blob, err := s.fileStore.GetBlob(ctx, file.BlobID)
	if err != nil {
		return zeroFile, zeroBlob, err
	}
	if blob == nil {
		return zeroFile, zeroBlob, internalError(fmt.Errorf("file %s references missing blob %s", file.ID, file.BlobID))
	}
	return *file, *blob, nil
}

// ListRecent returns stored files newest first. A non-positive limit uses
// the default page size; limits above the cap are clamped.
func (s *RetrievalService) ListRecent(ctx context.Context, limit int) ([]models.File, error) {
	if s == nil || s.fileStore == nil {
		return nil, internalError(fmt.Errorf("retrieval service is not configured"))
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.fileStore.ListRecentFiles(ctx, limit)
}

// OpenContent opens the stored payload for one file.
func (s *RetrievalService) OpenContent(ctx context.Context, id string) (*FileContent, error) {
	if s == nil || s.fileStore == nil || s.blobStore == nil {
		return nil, internalError(fmt.Errorf("retrieval service is not configured"))
	}

	id = strings.TrimSpace(id)
	if !validateFileID(id) {
		return nil, badRequestCode(fmt.Errorf("invalid id"), ErrCodeInvalidID)
	}

	file, err := s.fileStore.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, notFoundCode(fmt.Errorf("file not found"), ErrCodeFileNotFound)
	}

	blob, err := s.fileStore.GetBlob(ctx, file.BlobID)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, notFoundCode(fmt.Errorf("file content not found"), ErrCodeBlobNotFound)
	}

	rc, err := s.blobStore.Open(ctx, blob.BlobKey)
	if err != nil {
		return nil, notFoundCode(fmt.Errorf("file content not found"), ErrCodeBlobNotFound)
	}

	mediaType := strings.TrimSpace(file.MediaType)
	if mediaType == "" {
		mediaType = fallbackContentMediaType
	}
	filename := strings.TrimSpace(file.Name)
	if filename == "" {
		filename = file.ID
	}

	return &FileContent{Reader: rc, SizeBytes: blob.SizeBytes, MediaType: mediaType, Filename: filename}, nil
}

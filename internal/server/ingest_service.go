package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"depot/internal/blobstore"
	"depot/internal/metrics"
	"depot/internal/models"
	"depot/internal/store"
)

// IngestService validates one upload against policy, persists the payload
// in the blob store, and records the file row. Payload bytes are written
// only after the upload passes validation.
type IngestService struct {
	fileStore store.FileStore
	blobStore blobstore.BlobStore
	policy    *UploadPolicy
	metrics   metrics.Metrics
}

// IngestInput describes one upload's declared metadata. SizeBytes is the
// content length as reported by the transport.
type IngestInput struct {
	Name      string
	MediaType string
	SizeBytes int64
}

// IngestResult couples a stored file row with its backing blob.
// Deduplicated is true when the payload matched an existing blob.
type IngestResult struct {
	File         models.File
	Blob         models.Blob
	Deduplicated bool
}

// NewIngestService constructs an IngestService.
func NewIngestService(fileStore store.FileStore, blobStore blobstore.BlobStore, policy *UploadPolicy, m metrics.Metrics) *IngestService {
	if m == nil {
		m = metrics.Noop{}
	}
	return &IngestService{fileStore: fileStore, blobStore: blobStore, policy: policy, metrics: m}
}

// Ingest runs the accept path: policy check, content-addressed write,
// then the blob upsert plus file insert in one transaction.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput, content io.Reader) (IngestResult, error) {
	var zero IngestResult
	if s == nil || s.fileStore == nil || s.blobStore == nil {
		return zero, internalError(fmt.Errorf("ingest service is not configured"))
	}
	if content == nil {
		return zero, badRequestCode(fmt.Errorf("content is required"), ErrCodeMissingRequired)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return zero, badRequestCode(fmt.Errorf("name is required"), ErrCodeMissingRequired)
	}

	if err := s.policy.Check(in.MediaType, in.SizeBytes); err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			s.metrics.IncUploadsRejected(vErr.Reason)
			return zero, validationFailed(vErr, validationErrorCode(vErr.Reason))
		}
		return zero, badRequest(err)
	}

	mediaType, err := normalizeMediaType(in.MediaType)
	if err != nil {
		return zero, badRequestCode(err, ErrCodeInvalidMediaType)
	}

	putResult, err := s.blobStore.Put(ctx, content)
	if err != nil {
		return zero, err
	}

	existing, err := s.fileStore.GetBlobByDigest(ctx, putResult.Digest)
	if err != nil {
		return zero, err
	}
	deduplicated := existing != nil

	blob := models.Blob{
		Digest:         putResult.Digest,
		SizeBytes:      putResult.SizeBytes,
		StorageBackend: "local_cas",
		BlobKey:        putResult.BlobKey,
	}
	file := models.File{
		Name:      name,
		MediaType: mediaType,
		SizeBytes: putResult.SizeBytes,
	}
	canonical, err := s.fileStore.CreateFileWithBlob(ctx, &blob, &file)
	if err != nil {
		return zero, err
	}

	s.metrics.IncUploadsAccepted(mediaType)
	if deduplicated {
		s.metrics.IncBlobsDeduplicated()
	}

	return IngestResult{File: file, Blob: *canonical, Deduplicated: deduplicated}, nil
}

func validationErrorCode(reason string) int {
	switch reason {
	case RejectReasonUnsupportedType:
		return ErrCodeUnsupportedMediaType
	case RejectReasonTooLarge:
		return ErrCodeFileTooLarge
	default:
		return ErrCodeInvalidArgument
	}
}
